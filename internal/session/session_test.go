package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/utils"
)

const testSecret = "test-secret"

func issue(t *testing.T, p model.Principal, ttlMin int) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, p, ttlMin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok.Token
}

func TestResolve(t *testing.T) {
	manager := model.Principal{ID: 7, Role: model.RoleManager, Email: "m@example.com", DisplayName: "Mara"}
	valid := issue(t, manager, 10)
	expired := issue(t, manager, -1)

	cases := []struct {
		name     string
		resolver *Resolver
		cred     string
		wantErr  error
		wantID   uint64
	}{
		{"empty is anonymous", NewResolver(testSecret), "", nil, 0},
		{"valid verified", NewResolver(testSecret), valid, nil, 7},
		{"valid unverified", NewResolver(""), valid, nil, 7},
		{"expired verified", NewResolver(testSecret), expired, model.ErrExpiredCredential, 0},
		{"expired unverified", NewResolver(""), expired, model.ErrExpiredCredential, 0},
		{"wrong secret", NewResolver("other"), valid, model.ErrInvalidCredential, 0},
		{"garbage", NewResolver(""), "not-a-jwt", model.ErrInvalidCredential, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := tc.resolver.Resolve(tc.cred)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v; want %v", err, tc.wantErr)
				}
				if !claims.Principal.IsAnonymous() {
					t.Fatalf("failure must degrade to anonymous, got %+v", claims.Principal)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err %v", err)
			}
			if claims.Principal.ID != tc.wantID {
				t.Fatalf("id = %d; want %d", claims.Principal.ID, tc.wantID)
			}
		})
	}
}

func TestResolveCarriesIdentity(t *testing.T) {
	p := model.Principal{ID: 3, Role: model.RoleAdmin, Email: "a@example.com", DisplayName: "Ada"}
	claims, err := NewResolver(testSecret).Resolve(issue(t, p, 5))
	if err != nil {
		t.Fatal(err)
	}
	if claims.Principal != p {
		t.Fatalf("principal = %+v; want %+v", claims.Principal, p)
	}
}

func TestContextInitClearsBadCredential(t *testing.T) {
	for name, cred := range map[string]string{
		"expired": issue(t, model.Principal{ID: 1, Role: model.RoleCustomer}, -5),
		"invalid": "garbage.token.value",
	} {
		t.Run(name, func(t *testing.T) {
			store := &MemoryStore{}
			_ = store.Save(cred)
			sc := NewContext(store, NewResolver(""))
			sc.Init()
			if !sc.Principal().IsAnonymous() {
				t.Fatal("expected anonymous principal")
			}
			if sc.LastError() == nil {
				t.Fatal("expected LastError to record the failure")
			}
			if v, _ := store.Load(); v != "" {
				t.Fatalf("stored credential not cleared: %q", v)
			}
		})
	}
}

func TestContextSignInAndClear(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "session", "token")}
	sc := NewContext(store, NewResolver(""))
	sc.Init()
	if !sc.Principal().IsAnonymous() {
		t.Fatal("fresh session must be anonymous")
	}
	tok := issue(t, model.Principal{ID: 9, Role: model.RoleCustomer}, 10)
	p, err := sc.SignIn(tok)
	if err != nil || p.ID != 9 {
		t.Fatalf("SignIn = %+v, %v", p, err)
	}

	reloaded := NewContext(store, NewResolver(""))
	reloaded.Init()
	if reloaded.Principal().ID != 9 || reloaded.Credential() != tok {
		t.Fatal("credential did not survive reload")
	}

	if err := reloaded.Clear(); err != nil {
		t.Fatal(err)
	}
	if !reloaded.Principal().IsAnonymous() || reloaded.Credential() != "" {
		t.Fatal("Clear must reset to anonymous")
	}
	if v, _ := store.Load(); v != "" {
		t.Fatal("file store not cleared")
	}
}

func TestContextExpiresLazily(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := &MemoryStore{}
	sc := NewContext(store, NewResolver("").WithClock(clock))
	if _, err := sc.SignIn(issue(t, model.Principal{ID: 4, Role: model.RoleManager}, 1)); err != nil {
		t.Fatal(err)
	}
	if sc.Principal().ID != 4 {
		t.Fatal("expected signed-in principal")
	}
	now = now.Add(2 * time.Minute)
	if !sc.Principal().IsAnonymous() {
		t.Fatal("session should expire once exp passes")
	}
	if !errors.Is(sc.LastError(), model.ErrExpiredCredential) {
		t.Fatalf("LastError = %v", sc.LastError())
	}
	if v, _ := store.Load(); v != "" {
		t.Fatal("expired credential must be cleared from the store")
	}
}

func TestSignInRejectsInvalid(t *testing.T) {
	sc := NewContext(&MemoryStore{}, NewResolver(""))
	if _, err := sc.SignIn("nope"); !errors.Is(err, model.ErrInvalidCredential) {
		t.Fatalf("err = %v", err)
	}
	if _, err := sc.SignIn(""); !errors.Is(err, model.ErrInvalidCredential) {
		t.Fatalf("empty err = %v", err)
	}
}

func TestResolveNumericSubject(t *testing.T) {
	sign := func(sub any) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": sub, "role": "customer", "exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}
	r := NewResolver(testSecret)
	for _, sub := range []any{-3, 2.5, 0, 1e20} {
		if _, err := r.Resolve(sign(sub)); !errors.Is(err, model.ErrInvalidCredential) {
			t.Errorf("sub %v: err = %v", sub, err)
		}
	}
	claims, err := r.Resolve(sign(42))
	if err != nil || claims.Principal.ID != 42 {
		t.Fatalf("sub 42: %+v, %v", claims.Principal, err)
	}
}
