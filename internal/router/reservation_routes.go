package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
)

// RegisterReservations registers customer reservations and decisions.
// Role checks for decisions are venue-scoped and live in the gateway.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler) {
	auth := middleware.RequireAuth()
	e.POST("/restaurant/:id/reservation", h.Submit, auth)
	e.GET("/reservations/restaurant/:id", h.ListForVenue, auth)
	e.GET("/reservations/me", h.ListMine, auth)
	e.POST("/reservation/:id/decision", h.Decide, auth)
}
