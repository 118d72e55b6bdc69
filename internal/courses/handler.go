package courses

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tutorhub/tutorhub/internal/platform/httpx"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// Handler manages course endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers course routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Get("/{id}/professors", h.listProfessors)
	r.Post("/{id}/professors", h.assignProfessor)
	r.Delete("/{id}/professors/{professorID}", h.unassignProfessor)
	r.Get("/{id}/students", h.listStudents)
}

type createRequest struct {
	UniversityID int64  `json:"university_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,max=200"`
	Code         string `json:"code" validate:"omitempty,max=40"`
	Description  string `json:"description" validate:"omitempty,max=2000"`
}

type updateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Code        string `json:"code" validate:"omitempty,max=40"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

type assignRequest struct {
	ProfessorID int64 `json:"professor_id" validate:"required,gt=0"`
}

type courseResponse struct {
	ID           int64     `json:"id"`
	UniversityID int64     `json:"university_id"`
	Name         string    `json:"name"`
	Code         string    `json:"code,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(c *Course) courseResponse {
	return courseResponse{
		ID:           c.ID,
		UniversityID: c.UniversityID,
		Name:         c.Name,
		Code:         c.Code,
		Description:  c.Description,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	page := shared.PageFromRequest(r)

	items, pagination, err := h.service.List(r.Context(), p, page)
	if err != nil {
		shared.RespondError(w, h.logger, "list courses", err)
		return
	}
	out := make([]courseResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"courses": out, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		shared.RespondError(w, h.logger, "get course", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	c, err := h.service.Create(r.Context(), p, CreateInput{
		UniversityID: req.UniversityID,
		Name:         req.Name,
		Code:         req.Code,
		Description:  req.Description,
	})
	if err != nil {
		shared.RespondError(w, h.logger, "create course", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	c, err := h.service.Update(r.Context(), p, id, req.Name, req.Code, req.Description)
	if err != nil {
		shared.RespondError(w, h.logger, "update course", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) listProfessors(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.ListProfessors(r.Context(), p, id)
	if err != nil {
		shared.RespondError(w, h.logger, "list course professors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"professors": items})
}

func (h *Handler) assignProfessor(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.AssignProfessor(r.Context(), p, id, req.ProfessorID); err != nil {
		shared.RespondError(w, h.logger, "assign professor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unassignProfessor(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	professorID, ok := idParam(w, r, "professorID")
	if !ok {
		return
	}
	if err := h.service.UnassignProfessor(r.Context(), p, id, professorID); err != nil {
		shared.RespondError(w, h.logger, "unassign professor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.ListStudents(r.Context(), p, id)
	if err != nil {
		shared.RespondError(w, h.logger, "list course students", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"students": items})
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown resource")
		return 0, false
	}
	return id, true
}
