package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

var (
	_ service.UserStore        = (*UserRepo)(nil)
	_ service.TokenStore       = (*TokenRepo)(nil)
	_ service.VenueStore       = (*VenueRepo)(nil)
	_ service.MenuStore        = (*MenuRepo)(nil)
	_ service.RequestStore     = (*RequestRepo)(nil)
	_ service.ReservationStore = (*ReservationRepo)(nil)
)

func newMock(t *testing.T) (sqlmock.Sqlmock, func() *ReservationRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return mock, func() *ReservationRepo { return NewReservationRepo(db) }
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	u := model.User{Email: " Dup@Example.com", Role: model.RoleCustomer}
	err = NewUserRepo(db).Create(context.Background(), &u)
	if !errors.Is(err, model.ErrEmailExists) {
		t.Fatalf("got %v", err)
	}
	if u.Email != "dup@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := NewUserRepo(db).GetByID(context.Background(), 9); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestUserScanRejectsUnknownRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	now := time.Now()
	mock.ExpectQuery("FROM users WHERE email=").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "display_name", "avatar_url", "is_active", "created_at", "updated_at"}).
			AddRow(1, "a@b.c", "h", "OWNER", "", "", true, now, now))

	if _, err := NewUserRepo(db).GetByEmail(context.Background(), "a@b.c"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestTokenValidateRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(3, time.Now().Add(time.Hour), time.Now()))

	if _, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestTokenRevokeIsSingleUse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	stmt := regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE revoked_at IS NULL AND token_hash = ?")
	mock.ExpectExec(stmt).WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt).WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewTokenRepo(db)
	if err := repo.RevokeByHash(context.Background(), "h"); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := repo.RevokeByHash(context.Background(), "h"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("second revoke: got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReservationDecideLostRace(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = ?, decided_by = ?, decided_at = ? WHERE id = ? AND status = 'pending'")).
		WithArgs("approved", uint64(5), sqlmock.AnyArg(), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM reservations WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("declined"))
	mock.ExpectRollback()

	_, err := repo().Decide(context.Background(), 11, model.StatusApproved, 5, time.Now())
	if !errors.Is(err, model.ErrAlreadyDecided) {
		t.Fatalf("got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestReservationDecideMissing(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reservations SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM reservations").WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	if _, err := repo().Decide(context.Background(), 11, model.StatusDeclined, 5, time.Now()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestReservationCreateWritesItems(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reservations").WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservation_items (reservation_id, menu_item_id) VALUES (?,?),(?,?)")).
		WithArgs(uint64(21), uint64(3), uint64(21), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	r := model.Reservation{VenueID: 1, CustomerID: 2, Kind: model.KindPickupOnly, DateTime: time.Now(), PreorderedItemIDs: []uint64{3, 4}}
	if err := repo().Create(context.Background(), &r); err != nil {
		t.Fatal(err)
	}
	if r.ID != 21 || r.Status != model.StatusPending {
		t.Fatalf("got %+v", r)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRequestApproveMaterializesVenue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE venue_requests SET status").
		WithArgs("approved", uint64(1), sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM venue_requests WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "requester_id", "name", "description", "address", "phone", "image_url",
			"open_time", "close_time", "venue_type", "cuisine", "status", "venue_id", "decided_by", "decided_at", "created_at"}).
			AddRow(7, 2, "Pizza Place", "", "1 Main St", "", "", "10:00", "22:00", "restaurant", "Pizza", "approved", nil, 1, created, created))
	mock.ExpectExec("INSERT INTO venues").
		WithArgs("Pizza Place", "", "1 Main St", "", "", "10:00", "22:00", "restaurant", "Pizza", 0.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE venue_requests SET venue_id = ? WHERE id = ?")).
		WithArgs(uint64(40), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, venue, err := NewRequestRepo(db).Approve(context.Background(), 7, 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if venue.ID != 40 || venue.Name != "Pizza Place" || venue.Cuisine != "Pizza" || len(venue.ManagerIDs) != 0 {
		t.Fatalf("venue = %+v", venue)
	}
	if req.Status != model.StatusApproved || req.VenueID == nil || *req.VenueID != 40 {
		t.Fatalf("request = %+v", req)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestVenueDeleteCascades(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM venues WHERE id = \\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery("SELECT id FROM reservations WHERE venue_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(12))
	mock.ExpectExec("DELETE ri FROM reservation_items").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM reservations").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM menu_items").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM venue_managers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE venue_requests SET venue_id = NULL").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM venues").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cancelled, err := NewVenueRepo(db).Delete(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(cancelled) != 2 || cancelled[0] != 10 || cancelled[1] != 12 {
		t.Fatalf("cancelled = %v", cancelled)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestVenueListFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(v.name) LIKE ? AND v.venue_type = ? AND LOWER(v.cuisine) = ? ORDER BY v.id")).
		WithArgs("%piz\\_%", "restaurant", "pizza").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "address", "phone", "image_url", "open_time", "close_time", "venue_type", "cuisine", "rating", "created_at", "updated_at"}).
			AddRow(1, "Piz_za", "", "", "", "", "", "", "restaurant", "Pizza", 4.5, now, now))
	mock.ExpectQuery("SELECT venue_id, user_id FROM venue_managers").
		WillReturnRows(sqlmock.NewRows([]string{"venue_id", "user_id"}).AddRow(1, 8).AddRow(1, 9))

	vs, err := NewVenueRepo(db).List(context.Background(), model.VenueFilter{Name: "Piz_", Type: model.VenueRestaurant, Cuisine: "PIZZA"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 || len(vs[0].ManagerIDs) != 2 || vs[0].Type != model.VenueRestaurant {
		t.Fatalf("got %+v", vs)
	}
}

func TestMenuDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec("DELETE FROM menu_items").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := NewMenuRepo(db).Delete(context.Background(), 99); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}
