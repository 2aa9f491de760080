package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/venue-reservation/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,display_name,avatar_url,is_active,created_at,updated_at"

func scanUser(s scanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.DisplayName, &u.AvatarRef, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return model.User{}, err
	}
	u.Role = r
	return u, nil
}

// Create inserts the user and fills in its ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, display_name, avatar_url, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Role.String(), u.DisplayName, u.AvatarRef, u.IsActive, now, now)
	if err != nil {
		if isDuplicate(err) {
			return model.ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, displayName, avatarRef string) (model.User, error) {
	// No RowsAffected check: MySQL reports 0 when the values are unchanged.
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET display_name=?, avatar_url=?, updated_at=? WHERE id=?",
		displayName, avatarRef, time.Now().UTC(), id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?", hash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// PromoteToManager raises a customer to manager. Managers and admins are untouched.
func (r *UserRepo) PromoteToManager(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role='manager', updated_at=? WHERE id=? AND role='customer'", time.Now().UTC(), id)
	return err
}
