package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type employeeService interface {
	CreateEmployee(ctx context.Context, params application.CreateEmployeeParams) (application.Employee, error)
	UpdateEmployee(ctx context.Context, params application.UpdateEmployeeParams) (application.Employee, error)
	MoveEmployee(ctx context.Context, params application.MoveEmployeeParams) (application.Employee, error)
	GetEmployee(ctx context.Context, principal application.Principal, employeeID string) (application.Employee, error)
	ListEmployees(ctx context.Context, params application.ListEmployeesParams) ([]application.Employee, error)
	DeleteEmployee(ctx context.Context, principal application.Principal, employeeID string) error
	ExportEmployees(ctx context.Context, params application.ListEmployeesParams, w io.Writer) error
}

// EmployeeHandler serves the staff directory.
type EmployeeHandler struct {
	service   employeeService
	responder responder
	logger    *zap.Logger
}

func NewEmployeeHandler(service employeeService, logger *zap.Logger) *EmployeeHandler {
	base := defaultLogger(logger)
	return &EmployeeHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EmployeeHandler) log(r *http.Request, operation string, fields ...zap.Field) *zap.Logger {
	return handlerLogger(r.Context(), h.logger, "EmployeeHandler", operation, fields...)
}

// List filters by position, gender, desk_number, skill_id and the
// min_experience_days/max_experience_days bounds.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	params, ok := h.listParams(w, r)
	if !ok {
		return
	}
	employees, err := h.service.ListEmployees(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]employeeDTO, 0, len(employees))
	for _, e := range employees {
		out = append(out, toEmployeeDTO(e))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEmployeesResponse{Employees: out})
}

// Export answers with an XLSX workbook of the filtered employees.
func (h *EmployeeHandler) Export(w http.ResponseWriter, r *http.Request) {
	params, ok := h.listParams(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportEmployees(r.Context(), params, &buf); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="employees.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log(r, "Export").Warn("failed to write export", zap.Error(err))
	}
}

func (h *EmployeeHandler) listParams(w http.ResponseWriter, r *http.Request) (application.ListEmployeesParams, bool) {
	principal, _ := PrincipalFromContext(r.Context())
	q := r.URL.Query()
	params := application.ListEmployeesParams{
		Principal:  principal,
		Position:   q.Get("position"),
		Gender:     q.Get("gender"),
		DeskNumber: q.Get("desk_number"),
		SkillID:    q.Get("skill_id"),
	}

	var err error
	if params.MinExperienceDays, err = parseOptionalInt(q.Get("min_experience_days")); err != nil {
		h.responder.writeFieldError(r.Context(), w, "min_experience_days", "min_experience_days must be an integer")
		return params, false
	}
	if params.MaxExperienceDays, err = parseOptionalInt(q.Get("max_experience_days")); err != nil {
		h.responder.writeFieldError(r.Context(), w, "max_experience_days", "max_experience_days must be an integer")
		return params, false
	}
	return params, true
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	employee, err := h.service.CreateEmployee(r.Context(), application.CreateEmployeeParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, employeeResponse{Employee: toEmployeeDTO(employee)})
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	employee, err := h.service.GetEmployee(r.Context(), principal, chi.URLParam(r, "employeeID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, employeeResponse{Employee: toEmployeeDTO(employee)})
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	employee, err := h.service.UpdateEmployee(r.Context(), application.UpdateEmployeeParams{
		Principal:  principal,
		EmployeeID: chi.URLParam(r, "employeeID"),
		Input:      input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, employeeResponse{Employee: toEmployeeDTO(employee)})
}

// Move seats the employee at desk_number. A missing or null desk_number unseats.
func (h *EmployeeHandler) Move(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var req moveRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	employee, err := h.service.MoveEmployee(r.Context(), application.MoveEmployeeParams{
		Principal:  principal,
		EmployeeID: employeeID,
		DeskNumber: req.DeskNumber,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r, "Move", zap.String("employee_id", employeeID)).Info("employee moved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, employeeResponse{Employee: toEmployeeDTO(employee)})
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteEmployee(r.Context(), principal, chi.URLParam(r, "employeeID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EmployeeHandler) decodeInput(w http.ResponseWriter, r *http.Request) (application.EmployeeInput, bool) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return application.EmployeeInput{}, false
	}

	input := application.EmployeeInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Position:   req.Position,
		Gender:     req.Gender,
		DeskNumber: req.DeskNumber,
		Skills:     make([]application.SkillLevelInput, 0, len(req.Skills)),
	}
	if req.HireDate != "" {
		hired, err := parseDate(req.HireDate)
		if err != nil {
			h.responder.writeFieldError(r.Context(), w, "hire_date", "hire_date must be formatted as YYYY-MM-DD")
			return application.EmployeeInput{}, false
		}
		input.HireDate = hired
	}
	for _, s := range req.Skills {
		input.Skills = append(input.Skills, application.SkillLevelInput{SkillID: s.SkillID, Level: s.Level})
	}
	return input, true
}

type employeeRequest struct {
	FirstName  string              `json:"first_name"`
	LastName   string              `json:"last_name"`
	Position   string              `json:"position"`
	Gender     string              `json:"gender"`
	DeskNumber *string             `json:"desk_number"`
	HireDate   string              `json:"hire_date"`
	Skills     []employeeSkillJSON `json:"skills"`
}

type moveRequest struct {
	DeskNumber *string `json:"desk_number"`
}

type employeeSkillJSON struct {
	SkillID string `json:"skill_id"`
	Name    string `json:"name,omitempty"`
	Level   int    `json:"level"`
}

type employeeResponse struct {
	Employee employeeDTO `json:"employee"`
}

type listEmployeesResponse struct {
	Employees []employeeDTO `json:"employees"`
}

type employeeDTO struct {
	ID                 string              `json:"id"`
	FirstName          string              `json:"first_name"`
	LastName           string              `json:"last_name"`
	FullName           string              `json:"full_name"`
	Position           string              `json:"position"`
	Category           string              `json:"category"`
	Gender             string              `json:"gender"`
	Desk               *deskDTO            `json:"desk"`
	HireDate           string              `json:"hire_date"`
	WorkExperienceDays int                 `json:"work_experience_days"`
	Skills             []employeeSkillJSON `json:"skills"`
	CreatedAt          string              `json:"created_at"`
	UpdatedAt          string              `json:"updated_at"`
}

func toEmployeeDTO(e application.Employee) employeeDTO {
	dto := employeeDTO{
		ID:                 e.ID,
		FirstName:          e.FirstName,
		LastName:           e.LastName,
		FullName:           e.FullName(),
		Position:           e.Position,
		Category:           e.Category,
		Gender:             e.Gender,
		HireDate:           formatDate(e.HireDate),
		WorkExperienceDays: e.WorkExperienceDays,
		Skills:             make([]employeeSkillJSON, 0, len(e.Skills)),
		CreatedAt:          formatTimestamp(e.CreatedAt),
		UpdatedAt:          formatTimestamp(e.UpdatedAt),
	}
	if e.Desk != nil {
		desk := toDeskDTO(*e.Desk)
		dto.Desk = &desk
	}
	for _, s := range e.Skills {
		dto.Skills = append(dto.Skills, employeeSkillJSON{SkillID: s.SkillID, Name: s.Name, Level: s.Level})
	}
	return dto
}
