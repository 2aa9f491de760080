package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

// AuthHandler serves account endpoints.
type AuthHandler struct {
	Accounts *service.Accounts
	Log      *slog.Logger
}

func NewAuthHandler(accounts *service.Accounts, log *slog.Logger) *AuthHandler {
	if accounts == nil {
		panic("nil accounts passed to NewAuthHandler")
	}
	return &AuthHandler{Accounts: accounts, Log: loggerOrDefault(log)}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email" validate:"required,max=255"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=255"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutReq struct {
	RefreshToken string `json:"refresh_token"`
}

type profileReq struct {
	DisplayName string `json:"display_name" validate:"max=255"`
	AvatarRef   string `json:"avatar_url" validate:"max=1024"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// AuthResponse is returned by register, login and refresh. Token repeats
// Access.Token for clients that only keep the bearer credential.
type AuthResponse struct {
	Token   string     `json:"token"`
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

func authResponse(r service.AuthResult) AuthResponse {
	return AuthResponse{
		Token:   r.Access.Token,
		User:    r.User,
		Access:  tokenPart{Token: r.Access.Token, Expires: r.Access.Exp},
		Refresh: tokenPart{Token: r.Refresh.Raw, Expires: r.Refresh.Exp},
	}
}

// Register creates a customer account and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Accounts.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, authResponse(res))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, authResponse(res))
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, authResponse(res))
}

// Logout revokes the posted refresh token, or all of the caller's refresh
// tokens when the body is empty.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return fail(c, h.Log, err)
		}
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Accounts.Logout(ctx, req.RefreshToken, principal(c)); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Accounts.Me(ctx, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe replaces the caller's display name and avatar.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Accounts.UpdateProfile(ctx, principal(c), req.DisplayName, req.AvatarRef)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Accounts.ChangePassword(ctx, principal(c), req.CurrentPassword, req.NewPassword); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUsers is the admin user directory used to resolve manager emails.
func (h *AuthHandler) ListUsers(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	users, err := h.Accounts.ListUsers(ctx, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, users)
}
