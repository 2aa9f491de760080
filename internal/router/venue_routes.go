package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
	"github.com/iliyamo/venue-reservation/internal/model"
)

// RegisterDirectory registers the public venue reads, wrapped in cache,
// and the venue and menu writes, wrapped in purge so cached reads are
// dropped after a change.
func RegisterDirectory(e *echo.Echo, d *handler.DirectoryHandler, m *handler.ManagementHandler, cache, purge echo.MiddlewareFunc) {
	e.GET("/restaurant", d.ListVenues, cache)
	e.GET("/restaurant/:id", d.GetVenue, cache)
	e.GET("/restaurant/:id/menu", d.Menu, cache)

	auth := middleware.RequireAuth()
	admin := middleware.RequireRole(model.RoleAdmin)

	e.PUT("/restaurant/:id", m.UpdateVenue, auth, purge)
	e.DELETE("/restaurant/:id", m.DeleteVenue, auth, admin, purge)
	e.POST("/restaurant/:id/menu", m.UpsertMenuItem, auth, purge)
	e.PUT("/menu/:id", m.UpdateMenuItem, auth, purge)
	e.DELETE("/menu/:id", m.DeleteMenuItem, auth, purge)
	e.POST("/restaurant/manager", m.AssignManager, auth, admin, purge)
	e.GET("/manager/restaurants", m.ManagedVenues, auth)
}

// RegisterRequests registers venue creation requests and their review.
// Approval creates a venue, so it purges the directory cache.
func RegisterRequests(e *echo.Echo, h *handler.RequestHandler, purge echo.MiddlewareFunc) {
	auth := middleware.RequireAuth()
	admin := middleware.RequireRole(model.RoleAdmin)

	e.POST("/restaurant", h.CreateVenue, auth, admin, purge)
	e.POST("/restaurant-request", h.Submit, auth)
	e.POST("/restaurant-requests", h.Submit, auth)
	e.GET("/restaurant-requests", h.List, auth)
	e.GET("/restaurant-requests/queue", h.Queue, auth, admin)
	e.POST("/restaurant-requests/:id/approve", h.Approve, auth, admin, purge)
	e.POST("/restaurant-requests/:id/reject", h.Reject, auth, admin)
}
