// Package router builds the Echo instance and registers the REST surface.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-reservation/internal/config"
	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
	"github.com/iliyamo/venue-reservation/internal/session"
)

// Deps is everything the HTTP layer needs. Redis, DB and the cache and
// rate-limit configs are optional.
type Deps struct {
	Services    *service.Services
	Resolver    *session.Resolver
	DB          handler.Pinger
	Redis       *redis.Client
	Cache       config.CacheConfig
	RateLimit   config.RateLimitConfig
	CORSOrigins []string
	BodyLimit   string
	Log         *slog.Logger
}

// New returns a configured Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	if d.Services == nil || d.Resolver == nil {
		panic("router: Services and Resolver are required")
	}
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	if d.BodyLimit == "" {
		d.BodyLimit = "1M"
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(d.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders: []string{middleware.CredentialStatusHeader, "X-RateLimit-Remaining", "Retry-After"},
	}))
	e.Use(middleware.Authenticate(d.Resolver))
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, log))

	RegisterRoutes(e, d.DB)
	RegisterAuth(e, handler.NewAuthHandler(d.Services.Accounts, log))

	purge := middleware.PurgeOnWrite(d.Cache, d.Redis, log)
	RegisterDirectory(e,
		handler.NewDirectoryHandler(d.Services.Directory, log),
		handler.NewManagementHandler(d.Services.Venues, log),
		middleware.NewRedisCache(d.Cache, d.Redis), purge)
	RegisterRequests(e, handler.NewRequestHandler(d.Services.Requests, log), purge)
	RegisterReservations(e, handler.NewReservationHandler(d.Services.Reservations, log))
	return e
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers account routes. Register, login, refresh and
// logout are public; the rest need a signed-in principal.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/register", a.Register)
	e.POST("/login", a.Login)
	e.POST("/refresh", a.Refresh)
	e.POST("/logout", a.Logout)

	auth := middleware.RequireAuth()
	e.GET("/user/me", a.Me, auth)
	e.PUT("/user/me", a.UpdateMe, auth)
	e.PUT("/user/update", a.UpdateMe, auth)
	e.POST("/change-password", a.ChangePassword, auth)
	e.GET("/users", a.ListUsers, auth, middleware.RequireRole(model.RoleAdmin))
}
