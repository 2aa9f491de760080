package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

// DirectoryHandler serves the public venue directory.
type DirectoryHandler struct {
	Directory *service.Directory
	Log       *slog.Logger
}

func NewDirectoryHandler(d *service.Directory, log *slog.Logger) *DirectoryHandler {
	if d == nil {
		panic("nil directory passed to NewDirectoryHandler")
	}
	return &DirectoryHandler{Directory: d, Log: loggerOrDefault(log)}
}

// ListVenues handles GET /restaurant?name=&type=&cuisine=.
func (h *DirectoryHandler) ListVenues(c echo.Context) error {
	typ, err := model.ParseVenueType(c.QueryParam("type"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	venues, err := h.Directory.List(ctx, model.VenueFilter{
		Name:    c.QueryParam("name"),
		Type:    typ,
		Cuisine: c.QueryParam("cuisine"),
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, venues)
}

func (h *DirectoryHandler) GetVenue(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	v, err := h.Directory.Get(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Menu handles GET /restaurant/:id/menu.
func (h *DirectoryHandler) Menu(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, err := h.Directory.Menu(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}
