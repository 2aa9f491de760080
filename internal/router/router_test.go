package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/repository/memory"
	"github.com/iliyamo/venue-reservation/internal/service"
	"github.com/iliyamo/venue-reservation/internal/session"
)

const secret = "router-secret"

type app struct {
	t *testing.T
	e *echo.Echo
}

func newApp(t *testing.T) (*app, string) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(memory.New().Stores(), service.AuthConfig{
		JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: 4,
	}, nil, log)
	if _, err := svc.Accounts.EnsureAdmin(context.Background(), "admin@example.com", "admin-password"); err != nil {
		t.Fatal(err)
	}
	a := &app{t: t, e: New(Deps{Services: svc, Resolver: session.NewResolver(secret), Log: log})}
	return a, a.login("admin@example.com", "admin-password")
}

func (a *app) call(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) expect(rec *httptest.ResponseRecorder, status int, out any) {
	a.t.Helper()
	if rec.Code != status {
		a.t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
}

func (a *app) errCode(rec *httptest.ResponseRecorder, status int) string {
	a.t.Helper()
	var body handler.ErrorBody
	a.expect(rec, status, &body)
	return body.Error
}

func (a *app) register(email string) string {
	a.t.Helper()
	var res handler.AuthResponse
	a.expect(a.call(http.MethodPost, "/register", "", map[string]string{
		"email": email, "password": "long-enough-pw", "display_name": email,
	}), http.StatusCreated, &res)
	return res.Token
}

func (a *app) login(email, password string) string {
	a.t.Helper()
	var res handler.AuthResponse
	a.expect(a.call(http.MethodPost, "/login", "", map[string]string{"email": email, "password": password}), http.StatusOK, &res)
	return res.Token
}

func TestHealth(t *testing.T) {
	a, _ := newApp(t)
	a.expect(a.call(http.MethodGet, "/healthz", "", nil), http.StatusOK, nil)
}

func TestReservationFlowOverHTTP(t *testing.T) {
	a, admin := newApp(t)
	customer := a.register("alice@example.com")
	a.register("mario@example.com")

	var venue model.Venue
	a.expect(a.call(http.MethodPost, "/restaurant", admin, map[string]string{
		"name": "Pizza Place", "cuisine": "Pizza", "address": "1 Main St",
	}), http.StatusCreated, &venue)
	vid := strconv.FormatUint(venue.ID, 10)

	var found []model.Venue
	a.expect(a.call(http.MethodGet, "/restaurant?name=pizza", "", nil), http.StatusOK, &found)
	if len(found) != 1 || found[0].Name != "Pizza Place" || found[0].Type != model.VenueRestaurant {
		t.Fatalf("directory = %+v", found)
	}

	var item model.MenuItem
	a.expect(a.call(http.MethodPost, "/restaurant/"+vid+"/menu", admin, map[string]any{
		"name": "Margherita", "price": 9.5,
	}), http.StatusCreated, &item)
	if item.PriceCents != 950 {
		t.Fatalf("price cents = %d", item.PriceCents)
	}

	var assignment model.ManagerAssignment
	a.expect(a.call(http.MethodPost, "/restaurant/manager", admin, map[string]any{
		"restaurant_id": venue.ID, "user": "mario@example.com",
	}), http.StatusOK, &assignment)
	manager := a.login("mario@example.com", "long-enough-pw")

	var r model.Reservation
	a.expect(a.call(http.MethodPost, "/restaurant/"+vid+"/reservation", customer, map[string]any{
		"kind":                "reservation_preorder",
		"date_time":           "2025-06-01T19:00",
		"party_size":          2,
		"preordered_item_ids": []uint64{item.ID, item.ID},
		"contact_name":        "Alice",
	}), http.StatusCreated, &r)
	if r.Status != model.StatusPending || r.Kind != model.KindTableWithPreorder || len(r.PreorderedItemIDs) != 1 {
		t.Fatalf("reservation = %+v", r)
	}

	rid := strconv.FormatUint(r.ID, 10)
	if code := a.errCode(a.call(http.MethodPost, "/reservation/"+rid+"/decision", customer, map[string]string{"decision": "approved"}), http.StatusForbidden); code != "forbidden" {
		t.Fatalf("customer decision code = %q", code)
	}

	var decided model.Reservation
	a.expect(a.call(http.MethodPost, "/reservation/"+rid+"/decision", manager, map[string]string{"decision": "approved"}), http.StatusOK, &decided)
	if decided.Status != model.StatusApproved {
		t.Fatalf("status = %s", decided.Status)
	}
	if code := a.errCode(a.call(http.MethodPost, "/reservation/"+rid+"/decision", manager, map[string]string{"decision": "declined"}), http.StatusConflict); code != "already_decided" {
		t.Fatalf("second decision code = %q", code)
	}

	var part model.ReservationPartition
	a.expect(a.call(http.MethodGet, "/reservations/restaurant/"+vid, manager, nil), http.StatusOK, &part)
	if len(part.Pending) != 0 || len(part.History) != 1 || part.History[0].ID != r.ID {
		t.Fatalf("partition = %+v", part)
	}

	var managed []model.Venue
	a.expect(a.call(http.MethodGet, "/manager/restaurants", manager, nil), http.StatusOK, &managed)
	if len(managed) != 1 || managed[0].ID != venue.ID {
		t.Fatalf("managed = %+v", managed)
	}
}

func TestRequestReviewOverHTTP(t *testing.T) {
	a, admin := newApp(t)
	customer := a.register("bob@example.com")

	var req model.VenueRequest
	a.expect(a.call(http.MethodPost, "/restaurant-request", customer, map[string]string{
		"name": "Sushi Go", "cuisine": "Japanese", "status": "approved",
	}), http.StatusCreated, &req)
	if req.Status != model.StatusPending {
		t.Fatalf("client status honoured: %s", req.Status)
	}

	if code := a.errCode(a.call(http.MethodGet, "/restaurant-requests/queue", customer, nil), http.StatusForbidden); code != "forbidden" {
		t.Fatalf("queue code = %q", code)
	}
	var queue []model.VenueRequest
	a.expect(a.call(http.MethodGet, "/restaurant-requests/queue", admin, nil), http.StatusOK, &queue)
	if len(queue) != 1 || queue[0].ID != req.ID {
		t.Fatalf("queue = %+v", queue)
	}

	id := strconv.FormatUint(req.ID, 10)
	var out service.Outcome
	a.expect(a.call(http.MethodPost, "/restaurant-requests/"+id+"/approve", admin, nil), http.StatusOK, &out)
	if out.Request == nil || out.Request.Status != model.StatusApproved || out.Venue == nil || out.Venue.Name != "Sushi Go" {
		t.Fatalf("outcome = %+v", out)
	}
	if code := a.errCode(a.call(http.MethodPost, "/restaurant-requests/"+id+"/reject", admin, nil), http.StatusConflict); code != "already_decided" {
		t.Fatalf("reject code = %q", code)
	}
}

func TestErrorResponses(t *testing.T) {
	a, admin := newApp(t)
	customer := a.register("carol@example.com")

	cases := []struct {
		name, method, path, token string
		body                      any
		status                    int
		code                      string
	}{
		{"unknown venue", http.MethodGet, "/restaurant/999", "", nil, http.StatusNotFound, "not_found"},
		{"bad id", http.MethodGet, "/restaurant/abc", "", nil, http.StatusBadRequest, "invalid_input"},
		{"unknown route", http.MethodGet, "/nope", "", nil, http.StatusNotFound, "not_found"},
		{"anonymous write", http.MethodPost, "/restaurant-request", "", map[string]string{"name": "X"}, http.StatusUnauthorized, "unauthorized"},
		{"garbage token", http.MethodGet, "/user/me", "a.b.c", nil, http.StatusUnauthorized, "invalid_credential"},
		{"customer creates venue", http.MethodPost, "/restaurant", customer, map[string]string{"name": "X"}, http.StatusForbidden, "forbidden"},
		{"missing name", http.MethodPost, "/restaurant", admin, map[string]string{"cuisine": "Thai"}, http.StatusBadRequest, "invalid_input"},
		{"bad login", http.MethodPost, "/login", "", map[string]string{"email": "carol@example.com", "password": "wrong-password"}, http.StatusUnauthorized, "invalid_credentials"},
		{"duplicate email", http.MethodPost, "/register", "", map[string]string{"email": "carol@example.com", "password": "long-enough-pw"}, http.StatusConflict, "email_exists"},
		{"unknown manager", http.MethodPost, "/restaurant/manager", admin, map[string]any{"restaurant_id": 1, "user": "ghost@example.com"}, http.StatusNotFound, "user_not_found"},
		{"bad decision", http.MethodPost, "/reservation/1/decision", admin, map[string]string{"decision": "maybe"}, http.StatusBadRequest, "invalid_transition"},
		{"users list needs admin", http.MethodGet, "/users", customer, nil, http.StatusForbidden, "forbidden"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a.t = t
			if got := a.errCode(a.call(tc.method, tc.path, tc.token, tc.body), tc.status); got != tc.code {
				t.Fatalf("code = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestMenuPriceValidation(t *testing.T) {
	a, admin := newApp(t)
	var venue model.Venue
	a.expect(a.call(http.MethodPost, "/restaurant", admin, map[string]string{"name": "Cafe"}), http.StatusCreated, &venue)
	path := "/restaurant/" + strconv.FormatUint(venue.ID, 10) + "/menu"

	if code := a.errCode(a.call(http.MethodPost, path, admin, map[string]any{"name": "Tea", "price": -1}), http.StatusBadRequest); code != "invalid_menu_item" {
		t.Fatalf("negative price code = %q", code)
	}
	if code := a.errCode(a.call(http.MethodPost, path, admin, map[string]any{"name": "Tea"}), http.StatusBadRequest); code != "invalid_menu_item" {
		t.Fatalf("missing price code = %q", code)
	}
	if code := a.errCode(a.call(http.MethodPost, path, admin, map[string]any{"name": "Tea", "price": "abc"}), http.StatusBadRequest); code != "invalid_menu_item" {
		t.Fatalf("non-numeric price code = %q", code)
	}
	var free model.MenuItem
	a.expect(a.call(http.MethodPost, path, admin, map[string]any{"name": "Water", "price": 0}), http.StatusCreated, &free)
	if code := a.errCode(a.call(http.MethodPut, "/menu/"+strconv.FormatUint(free.ID, 10), admin, map[string]any{"name": "Water", "price": "free"}), http.StatusBadRequest); code != "invalid_menu_item" {
		t.Fatalf("non-numeric update price code = %q", code)
	}

	var updated model.MenuItem
	a.expect(a.call(http.MethodPut, "/menu/"+strconv.FormatUint(free.ID, 10), admin, map[string]any{"name": "Sparkling water", "price": 1.25}), http.StatusOK, &updated)
	if updated.Name != "Sparkling water" || updated.PriceCents != 125 {
		t.Fatalf("updated = %+v", updated)
	}
	a.expect(a.call(http.MethodDelete, "/menu/"+strconv.FormatUint(free.ID, 10), admin, nil), http.StatusNoContent, nil)
}

func TestAccountEndpoints(t *testing.T) {
	a, _ := newApp(t)
	var res handler.AuthResponse
	a.expect(a.call(http.MethodPost, "/register", "", map[string]string{"email": "Dan@Example.com", "password": "long-enough-pw"}), http.StatusCreated, &res)
	if res.User.Email != "dan@example.com" || res.User.Role != model.RoleCustomer || res.Refresh.Token == "" {
		t.Fatalf("register = %+v", res)
	}

	var me model.User
	a.expect(a.call(http.MethodPut, "/user/update", res.Token, map[string]string{"display_name": "Dan"}), http.StatusOK, &me)
	if me.DisplayName != "Dan" {
		t.Fatalf("me = %+v", me)
	}

	var refreshed handler.AuthResponse
	a.expect(a.call(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": res.Refresh.Token}), http.StatusOK, &refreshed)
	if code := a.errCode(a.call(http.MethodPost, "/refresh", "", map[string]string{"refresh_token": res.Refresh.Token}), http.StatusUnauthorized); code != "invalid_credential" {
		t.Fatalf("reused refresh code = %q", code)
	}

	a.expect(a.call(http.MethodPost, "/change-password", refreshed.Token, map[string]string{
		"current_password": "long-enough-pw", "new_password": "even-longer-pw",
	}), http.StatusNoContent, nil)
	a.login("dan@example.com", "even-longer-pw")
}

func TestReservationShapeErrorsOverHTTP(t *testing.T) {
	a, admin := newApp(t)
	customer := a.register("bea@example.com")
	var venue model.Venue
	a.expect(a.call(http.MethodPost, "/restaurant", admin, map[string]string{"name": "Bistro"}), http.StatusCreated, &venue)
	path := "/restaurant/" + strconv.FormatUint(venue.ID, 10) + "/reservation"

	cases := []struct {
		name string
		body any
	}{
		{"negative party size", map[string]any{"kind": "table_only", "date_time": "2025-06-01T19:00", "party_size": -1}},
		{"missing kind", map[string]any{"date_time": "2025-06-01T19:00", "party_size": 2}},
		{"unknown kind", map[string]any{"kind": "delivery", "date_time": "2025-06-01T19:00", "party_size": 2}},
		{"party size not a number", map[string]any{"kind": "table_only", "date_time": "2025-06-01T19:00", "party_size": "two"}},
		{"contact name too long", map[string]any{"kind": "table_only", "date_time": "2025-06-01T19:00", "party_size": 2, "contact_name": strings.Repeat("x", 256)}},
	}
	for _, tc := range cases {
		if code := a.errCode(a.call(http.MethodPost, path, customer, tc.body), http.StatusBadRequest); code != "invalid_reservation_request" {
			t.Fatalf("%s: code = %q", tc.name, code)
		}
	}
}

func TestDirectoryTypeFilter(t *testing.T) {
	a, admin := newApp(t)
	a.expect(a.call(http.MethodPost, "/restaurant", admin, map[string]string{"name": "Sushi World", "type": "Restaurant"}), http.StatusCreated, nil)
	a.expect(a.call(http.MethodPost, "/restaurant", admin, map[string]string{"name": "Cafe Central", "type": "Cafe", "cuisine": "Coffee"}), http.StatusCreated, nil)

	var cafes []model.Venue
	a.expect(a.call(http.MethodGet, "/restaurant?type=cafe", "", nil), http.StatusOK, &cafes)
	if len(cafes) != 1 || cafes[0].Name != "Cafe Central" || cafes[0].Type != model.VenueCafe {
		t.Fatalf("cafes = %+v", cafes)
	}
	var all []model.Venue
	a.expect(a.call(http.MethodGet, "/restaurant", "", nil), http.StatusOK, &all)
	if len(all) != 2 {
		t.Fatalf("all = %+v", all)
	}
	if code := a.errCode(a.call(http.MethodGet, "/restaurant?type=bar", "", nil), http.StatusBadRequest); code != "invalid_input" {
		t.Fatalf("unknown type code = %q", code)
	}
}
