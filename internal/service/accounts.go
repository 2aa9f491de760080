package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/utils"
)

// AuthConfig controls token lifetimes and password hashing.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Accounts manages user accounts and their tokens.
type Accounts struct {
	cfg    AuthConfig
	users  UserStore
	tokens TokenStore
	log    *slog.Logger
}

func NewAccounts(cfg AuthConfig, users UserStore, tokens TokenStore, log *slog.Logger) *Accounts {
	return &Accounts{cfg: cfg, users: users, tokens: tokens, log: orDefault(log).With("component", "accounts")}
}

func normalizeEmail(s string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(s))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", model.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: malformed email", model.ErrInvalidInput)
	}
	return email, nil
}

// Register creates a customer account and signs it in.
func (a *Accounts) Register(ctx context.Context, email, password, displayName string) (AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return AuthResult{}, err
	}
	if err := utils.CheckPassword(password); err != nil {
		return AuthResult{}, err
	}
	hash, err := utils.HashPassword(password, a.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}
	u := model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
		DisplayName:  strings.TrimSpace(displayName),
		IsActive:     true,
	}
	if err := a.users.Create(ctx, &u); err != nil {
		return AuthResult{}, err
	}
	a.log.Info("user registered", "user_id", u.ID)
	return a.issue(ctx, u)
}

func (a *Accounts) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, fmt.Errorf("%w: email and password are required", model.ErrInvalidInput)
	}
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return AuthResult{}, model.ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return AuthResult{}, model.ErrInvalidCredentials
	}
	return a.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.
func (a *Accounts) Refresh(ctx context.Context, raw string) (AuthResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AuthResult{}, fmt.Errorf("%w: refresh_token is required", model.ErrInvalidInput)
	}
	hash := utils.HashRefreshRaw(raw)
	userID, err := a.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return AuthResult{}, model.ErrInvalidCredential
		}
		return AuthResult{}, err
	}
	if err := a.tokens.RevokeByHash(ctx, hash); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return AuthResult{}, model.ErrInvalidCredential
		}
		return AuthResult{}, err
	}
	u, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return AuthResult{}, model.ErrInvalidCredential
		}
		return AuthResult{}, err
	}
	if !u.IsActive {
		return AuthResult{}, model.ErrInvalidCredential
	}
	return a.issue(ctx, u)
}

// Logout revokes the given refresh token, or every refresh token of p
// when none is given.
func (a *Accounts) Logout(ctx context.Context, rawRefresh string, p model.Principal) error {
	if raw := strings.TrimSpace(rawRefresh); raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := a.tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrInvalidCredential
			}
			return err
		}
		if err := a.tokens.RevokeByHash(ctx, hash); err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		return nil
	}
	if p.IsAnonymous() {
		return fmt.Errorf("%w: provide a bearer token or refresh_token", model.ErrInvalidInput)
	}
	return a.tokens.RevokeAllForUser(ctx, p.ID)
}

func (a *Accounts) Me(ctx context.Context, p model.Principal) (model.User, error) {
	if err := requireSignedIn(p); err != nil {
		return model.User{}, err
	}
	u, err := a.users.GetByID(ctx, p.ID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUserNotFound
	}
	return u, err
}

func (a *Accounts) UpdateProfile(ctx context.Context, p model.Principal, displayName, avatarRef string) (model.User, error) {
	if err := requireSignedIn(p); err != nil {
		return model.User{}, err
	}
	u, err := a.users.UpdateProfile(ctx, p.ID, strings.TrimSpace(displayName), strings.TrimSpace(avatarRef))
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUserNotFound
	}
	return u, err
}

// ChangePassword verifies the current password, stores the new one and
// signs the user out of every other session.
func (a *Accounts) ChangePassword(ctx context.Context, p model.Principal, current, next string) error {
	if err := requireSignedIn(p); err != nil {
		return err
	}
	u, err := a.users.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrUserNotFound
		}
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return model.ErrInvalidCredentials
	}
	if err := utils.CheckPassword(next); err != nil {
		return err
	}
	hash, err := utils.HashPassword(next, a.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := a.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := a.tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		return err
	}
	a.log.Info("password changed", "user_id", u.ID)
	return nil
}

func (a *Accounts) ListUsers(ctx context.Context, admin model.Principal) ([]model.User, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	return a.users.List(ctx)
}

// EnsureAdmin creates the bootstrap admin account unless the email is
// already registered.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, password string) (model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}
	if u, err := a.users.GetByEmail(ctx, email); err == nil {
		if u.Role != model.RoleAdmin {
			a.log.Warn("bootstrap admin email belongs to a non-admin account", "user_id", u.ID)
		}
		return u, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}
	if err := utils.CheckPassword(password); err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(password, a.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{Email: email, PasswordHash: hash, Role: model.RoleAdmin, DisplayName: "Administrator", IsActive: true}
	if err := a.users.Create(ctx, &u); err != nil {
		return model.User{}, err
	}
	a.log.Info("bootstrap admin created", "user_id", u.ID)
	return u, nil
}

func (a *Accounts) issue(ctx context.Context, u model.User) (AuthResult, error) {
	access, err := utils.NewAccessToken(a.cfg.JWTSecret, u.Principal(), a.cfg.AccessTTLMin)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(a.cfg.RefreshTTLDays)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := a.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return AuthResult{}, fmt.Errorf("store refresh token: %w", err)
	}
	return AuthResult{User: u, Access: access, Refresh: refresh}, nil
}
