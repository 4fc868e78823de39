package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	CreateSeries(ctx context.Context, params application.CreateReservationSeriesParams) ([]application.Reservation, error)
	GetReservation(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	DeleteReservation(ctx context.Context, principal application.Principal, reservationID string) error
}

// ReservationHandler serves desk bookings.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *zap.Logger
}

func NewReservationHandler(service reservationService, logger *zap.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

// List filters by date, user_id and desk_id.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	q := r.URL.Query()
	params := application.ListReservationsParams{
		Principal: principal,
		UserID:    q.Get("user_id"),
		DeskID:    q.Get("desk_id"),
	}
	if raw := q.Get("date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			h.responder.writeFieldError(r.Context(), w, "date", "date must be formatted as YYYY-MM-DD")
			return
		}
		params.Date = &date
	}

	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req reservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	date, ok := h.dateField(w, r, "date", req.Date)
	if !ok {
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		DeskID:    req.DeskID,
		Date:      date,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// CreateSeries books every date of an RRULE between start and until, or none.
func (h *ReservationHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req seriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	start, ok := h.dateField(w, r, "start", req.Start)
	if !ok {
		return
	}
	until, ok := h.dateField(w, r, "until", req.Until)
	if !ok {
		return
	}

	reservations, err := h.service.CreateSeries(r.Context(), application.CreateReservationSeriesParams{
		Principal: principal,
		DeskID:    req.DeskID,
		Rule:      req.Rule,
		Start:     start,
		Until:     until,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ReservationHandler", "CreateSeries").
		Info("reservation series booked", zap.String("desk_id", req.DeskID), zap.Int("dates", len(reservations)))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.GetReservation(r.Context(), principal, chi.URLParam(r, "reservationID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteReservation(r.Context(), principal, chi.URLParam(r, "reservationID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// dateField parses an optional YYYY-MM-DD value; empty yields the zero time so
// the service reports the missing field.
func (h *ReservationHandler) dateField(w http.ResponseWriter, r *http.Request, field, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	date, err := parseDate(value)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, field, field+" must be formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

type reservationRequest struct {
	DeskID string `json:"desk_id"`
	Date   string `json:"date"`
}

type seriesRequest struct {
	DeskID string `json:"desk_id"`
	Rule   string `json:"rule"`
	Start  string `json:"start"`
	Until  string `json:"until"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	DeskID     string `json:"desk_id"`
	DeskNumber string `json:"desk_number"`
	Date       string `json:"date"`
	CreatedAt  string `json:"created_at"`
}

func toReservationDTO(res application.Reservation) reservationDTO {
	return reservationDTO{
		ID:         res.ID,
		UserID:     res.UserID,
		Username:   res.Username,
		DeskID:     res.DeskID,
		DeskNumber: res.DeskNumber,
		Date:       formatDate(res.Date),
		CreatedAt:  formatTimestamp(res.CreatedAt),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(reservations))
	for _, res := range reservations {
		out = append(out, toReservationDTO(res))
	}
	return out
}
