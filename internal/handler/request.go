package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

// RequestHandler serves venue creation requests and their review.
type RequestHandler struct {
	Requests *service.RequestWorkflow
	Log      *slog.Logger
}

func NewRequestHandler(w *service.RequestWorkflow, log *slog.Logger) *RequestHandler {
	if w == nil {
		panic("nil request workflow passed to NewRequestHandler")
	}
	return &RequestHandler{Requests: w, Log: loggerOrDefault(log)}
}

// Submit handles POST /restaurant-request. A status in the body is ignored;
// every new request starts pending.
func (h *RequestHandler) Submit(c echo.Context) error {
	var draft model.VenueDraft
	if err := bind(c, &draft); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.Requests.Submit(ctx, draft, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// List returns every request to an admin and the caller's own otherwise.
func (h *RequestHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	rs, err := h.Requests.List(ctx, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// Queue returns pending requests, oldest first.
func (h *RequestHandler) Queue(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	rs, err := h.Requests.ReviewQueue(ctx, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rs)
}

func (h *RequestHandler) Approve(c echo.Context) error {
	return h.decide(c, h.Requests.Approve)
}

func (h *RequestHandler) Reject(c echo.Context) error {
	return h.decide(c, h.Requests.Reject)
}

func (h *RequestHandler) decide(c echo.Context, fn func(ctx context.Context, id uint64, actor model.Principal) (service.Outcome, error)) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := fn(ctx, id, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateVenue handles POST /restaurant. The venue is created through an
// immediately approved request.
func (h *RequestHandler) CreateVenue(c echo.Context) error {
	var draft model.VenueDraft
	if err := bind(c, &draft); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Requests.CreateDirect(ctx, draft, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, out.Venue)
}
