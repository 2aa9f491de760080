package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/service"
)

// ReservationHandler serves customer reservations and manager decisions.
type ReservationHandler struct {
	Reservations *service.ReservationWorkflow
	Log          *slog.Logger
}

func NewReservationHandler(w *service.ReservationWorkflow, log *slog.Logger) *ReservationHandler {
	if w == nil {
		panic("nil reservation workflow passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: w, Log: loggerOrDefault(log)}
}

type reservationReq struct {
	Kind        string   `json:"kind"`
	DateTime    string   `json:"date_time"`
	PartySize   int      `json:"party_size"`
	Items       []uint64 `json:"preordered_item_ids"`
	ContactName string   `json:"contact_name"`
	Comment     string   `json:"comment"`
}

type decisionReq struct {
	Decision string `json:"decision"`
	Status   string `json:"status"`
}

// dateTimeLayouts are tried in order. The minute-precision forms are what
// an HTML datetime-local input sends.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseDateTime reads s as UTC unless it carries an offset. An empty string
// is the zero time.
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date_time %q", model.ErrInvalidReservationRequest, s)
}

// Submit handles POST /restaurant/:id/reservation.
func (h *ReservationHandler) Submit(c echo.Context) error {
	venueID, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return fail(c, h.Log, fmt.Errorf("%w: malformed reservation body", model.ErrInvalidReservationRequest))
	}
	// An absent kind is left zero for the workflow to report.
	var kind model.ReservationKind
	if strings.TrimSpace(req.Kind) != "" {
		if kind, err = model.ParseReservationKind(req.Kind); err != nil {
			return fail(c, h.Log, err)
		}
	}
	at, err := parseDateTime(req.DateTime)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	r, err := h.Reservations.Submit(ctx, service.SubmitReservation{
		VenueID:           venueID,
		Kind:              kind,
		DateTime:          at,
		PartySize:         req.PartySize,
		PreorderedItemIDs: req.Items,
		ContactName:       req.ContactName,
		Comment:           req.Comment,
	}, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// ListForVenue handles GET /reservations/restaurant/:id.
func (h *ReservationHandler) ListForVenue(c echo.Context) error {
	venueID, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	part, err := h.Reservations.ListForVenue(ctx, venueID, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, part)
}

func (h *ReservationHandler) ListMine(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	part, err := h.Reservations.ListMine(ctx, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, part)
}

// Decide handles POST /reservation/:id/decision. The body names the
// decision as "decision" or, for older clients, "status".
func (h *ReservationHandler) Decide(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req decisionReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	raw := req.Decision
	if raw == "" {
		raw = req.Status
	}
	d, err := model.ParseDecision(raw)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Reservations.Decide(ctx, id, d, principal(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out.Reservation)
}
