package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/config"
	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/session"
	"github.com/iliyamo/venue-reservation/internal/utils"
)

const secret = "test-secret"

var manager = model.Principal{ID: 7, Role: model.RoleManager, Email: "m@example.com"}

func token(t *testing.T, p model.Principal, ttlMin int) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, p, ttlMin)
	if err != nil {
		t.Fatal(err)
	}
	return tok.Token
}

func newServer(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(Authenticate(session.NewResolver(secret)))
	e.GET("/who", func(c echo.Context) error {
		return c.JSON(http.StatusOK, PrincipalFrom(c))
	}, mw...)
	return e
}

func do(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestAuthenticateCredentialStatus(t *testing.T) {
	e := newServer()
	cases := []struct {
		name, auth, status string
		wantID             uint64
	}{
		{"none", "", "none", 0},
		{"valid", "Bearer " + token(t, manager, 5), "valid", 7},
		{"lowercase scheme", "bearer " + token(t, manager, 5), "valid", 7},
		{"expired", "Bearer " + token(t, manager, -1), "expired", 0},
		{"garbage", "Bearer not.a.jwt", "invalid", 0},
		{"basic auth", "Basic dXNlcjpwYXNz", "none", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.auth)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := rec.Header().Get(CredentialStatusHeader); got != tc.status {
				t.Fatalf("credential status = %q, want %q", got, tc.status)
			}
			var p model.Principal
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatal(err)
			}
			if p.ID != tc.wantID {
				t.Fatalf("principal id = %d, want %d", p.ID, tc.wantID)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	e := newServer(RequireAuth())
	cases := []struct {
		name, auth string
		code       int
		errCode    string
	}{
		{"missing", "", http.StatusUnauthorized, "unauthorized"},
		{"expired", "Bearer " + token(t, manager, -1), http.StatusUnauthorized, "expired_credential"},
		{"invalid", "Bearer x.y.z", http.StatusUnauthorized, "invalid_credential"},
		{"ok", "Bearer " + token(t, manager, 5), http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.auth)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}
			if tc.errCode != "" && errorCode(t, rec) != tc.errCode {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := newServer(RequireRole(model.RoleAdmin))
	if rec := do(e, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}
	rec := do(e, "Bearer "+token(t, manager, 5))
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "forbidden" {
		t.Fatalf("manager: %d %s", rec.Code, rec.Body.String())
	}
	admin := model.Principal{ID: 1, Role: model.RoleAdmin}
	if rec := do(e, "Bearer "+token(t, admin, 5)); rec.Code != http.StatusOK {
		t.Fatalf("admin: %d", rec.Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/restaurant/3/reservation", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/restaurant/:id/reservation")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	if got, want := buildRateKey(cfg, c), "rl:ip:10.0.0.9:user:anon:route:POST /restaurant/:id/reservation"; got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
	c.Set(principalKey, manager)
	cfg.KeyStrategy = "user"
	if got := buildRateKey(cfg, c); got != "rl:user:7" {
		t.Fatalf("key = %q", got)
	}
}

func TestCacheKeyIgnoresMethodByDefault(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	key := func(method, target string) string {
		return cacheKeyFrom(cfg, e.NewContext(httptest.NewRequest(method, target, nil), httptest.NewRecorder()))
	}
	if key(http.MethodGet, "/restaurant?name=piz") != key(http.MethodHead, "/restaurant?name=piz") {
		t.Fatal("method changed key")
	}
	if key(http.MethodGet, "/restaurant?name=piz") == key(http.MethodGet, "/restaurant?name=sus") {
		t.Fatal("query ignored")
	}
}

func TestCacheKeyNormalizesQueryOrder(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache"}
	key := func(target string) string {
		return cacheKeyFrom(cfg, e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder()))
	}
	if key("/restaurant?name=a&cuisine=b") != key("/restaurant?cuisine=b&name=a") {
		t.Fatal("parameter order changed key")
	}
	if !strings.HasPrefix(key("/restaurant"), "cache:") {
		t.Fatalf("prefix missing: %q", key("/restaurant"))
	}
}

func TestCachedResponseReplay(t *testing.T) {
	hdr := http.Header{}
	hdr.Set(echo.HeaderContentType, "application/json")
	hdr.Set(echo.HeaderXRequestID, "req-1")
	hdr.Set("X-Cache", "MISS")
	fields, err := snapshot(http.StatusOK, hdr, []byte(`[]`))
	if err != nil {
		t.Fatal(err)
	}
	cr := cachedResponse{Status: fields["status"].(int), Header: fields["header"].(string), Body: fields["body"].(string)}

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if !cr.replay(c) {
		t.Fatal("replay refused a stored entry")
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("replayed %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) != "" || rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("headers %v", rec.Header())
	}

	if (cachedResponse{}).replay(c) {
		t.Fatal("empty entry replayed")
	}
	if (cachedResponse{Status: 200, Header: "{"}).replay(c) {
		t.Fatal("corrupt header replayed")
	}
}

func TestRedisFeaturesDisabledWithoutClient(t *testing.T) {
	cacheCfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "cache"}
	e := newServer(
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
		NewRedisCache(cacheCfg, nil),
		PurgeOnWrite(cacheCfg, nil, nil),
	)
	rec := do(e, "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("status %d, X-Cache %q", rec.Code, rec.Header().Get("X-Cache"))
	}
}
