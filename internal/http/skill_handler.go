package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
)

type skillService interface {
	CreateSkill(ctx context.Context, principal application.Principal, input application.SkillInput) (application.Skill, error)
	ListSkills(ctx context.Context, principal application.Principal) ([]application.Skill, error)
	DeleteSkill(ctx context.Context, principal application.Principal, skillID string) error
}

// SkillHandler serves the skill catalog.
type SkillHandler struct {
	service   skillService
	responder responder
}

func NewSkillHandler(service skillService, logger *zap.Logger) *SkillHandler {
	return &SkillHandler{service: service, responder: newResponder(logger)}
}

func (h *SkillHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	skills, err := h.service.ListSkills(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]skillDTO, 0, len(skills))
	for _, s := range skills {
		out = append(out, skillDTO{ID: s.ID, Name: s.Name})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSkillsResponse{Skills: out})
}

func (h *SkillHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req skillDTO
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	skill, err := h.service.CreateSkill(r.Context(), principal, application.SkillInput{Name: req.Name})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, skillResponse{Skill: skillDTO{ID: skill.ID, Name: skill.Name}})
}

func (h *SkillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteSkill(r.Context(), principal, chi.URLParam(r, "skillID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type skillDTO struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type skillResponse struct {
	Skill skillDTO `json:"skill"`
}

type listSkillsResponse struct {
	Skills []skillDTO `json:"skills"`
}
