package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
)

type deskService interface {
	CreateDesk(ctx context.Context, params application.CreateDeskParams) (application.Desk, error)
	UpdateDesk(ctx context.Context, params application.UpdateDeskParams) (application.Desk, error)
	GetDesk(ctx context.Context, principal application.Principal, deskID string) (application.Desk, error)
	ListDesks(ctx context.Context, principal application.Principal, availableOnly bool) ([]application.Desk, error)
	DeleteDesk(ctx context.Context, principal application.Principal, deskID string) error
}

// DeskHandler serves the desk catalog.
type DeskHandler struct {
	service   deskService
	responder responder
	logger    *zap.Logger
}

// NewDeskHandler constructs a DeskHandler.
func NewDeskHandler(service deskService, logger *zap.Logger) *DeskHandler {
	base := defaultLogger(logger)
	return &DeskHandler{service: service, responder: newResponder(base), logger: base}
}

// List returns every desk; ?available=true keeps only reservable ones.
func (h *DeskHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	availableOnly := false
	if raw := r.URL.Query().Get("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeFieldError(r.Context(), w, "available", "available must be true or false")
			return
		}
		availableOnly = v
	}

	desks, err := h.service.ListDesks(r.Context(), principal, availableOnly)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listDesksResponse{Desks: toDeskDTOs(desks)})
}

func (h *DeskHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req deskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	desk, err := h.service.CreateDesk(r.Context(), application.CreateDeskParams{Principal: principal, Input: req.toInput()})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "DeskHandler", "Create").Debug("desk created", zap.String("desk_id", desk.ID))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, deskResponse{Desk: toDeskDTO(desk)})
}

func (h *DeskHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	desk, err := h.service.GetDesk(r.Context(), principal, chi.URLParam(r, "deskID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, deskResponse{Desk: toDeskDTO(desk)})
}

// Update replaces the desk; a renumbering that breaks the seating rule is a 422.
func (h *DeskHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req deskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	desk, err := h.service.UpdateDesk(r.Context(), application.UpdateDeskParams{
		Principal: principal,
		DeskID:    chi.URLParam(r, "deskID"),
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, deskResponse{Desk: toDeskDTO(desk)})
}

func (h *DeskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteDesk(r.Context(), principal, chi.URLParam(r, "deskID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type deskRequest struct {
	Number      string `json:"number"`
	Location    string `json:"location"`
	X           *int   `json:"x"`
	Y           *int   `json:"y"`
	IsAvailable *bool  `json:"is_available"`
}

func (r deskRequest) toInput() application.DeskInput {
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}
	return application.DeskInput{
		Number:      r.Number,
		Location:    r.Location,
		X:           r.X,
		Y:           r.Y,
		IsAvailable: available,
	}
}

type deskResponse struct {
	Desk deskDTO `json:"desk"`
}

type listDesksResponse struct {
	Desks []deskDTO `json:"desks"`
}

type deskDTO struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Location    string `json:"location"`
	X           *int   `json:"x"`
	Y           *int   `json:"y"`
	IsAvailable bool   `json:"is_available"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toDeskDTO(desk application.Desk) deskDTO {
	return deskDTO{
		ID:          desk.ID,
		Number:      desk.Number,
		Location:    desk.Location,
		X:           desk.X,
		Y:           desk.Y,
		IsAvailable: desk.IsAvailable,
		CreatedAt:   formatTimestamp(desk.CreatedAt),
		UpdatedAt:   formatTimestamp(desk.UpdatedAt),
	}
}

func toDeskDTOs(desks []application.Desk) []deskDTO {
	out := make([]deskDTO, 0, len(desks))
	for _, desk := range desks {
		out = append(out, toDeskDTO(desk))
	}
	return out
}
