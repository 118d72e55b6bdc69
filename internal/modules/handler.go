package modules

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

// Handler manages course-module endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers module routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/files", h.listFiles)
	r.Post("/{id}/files", h.createFile)
	r.Delete("/files/{fileID}", h.deleteFile)
}

type moduleRequest struct {
	CourseID    int64  `json:"course_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Position    int    `json:"position" validate:"gte=0"`
}

type moduleUpdateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Position    int    `json:"position" validate:"gte=0"`
}

type fileRequest struct {
	Name        string `json:"name" validate:"required,max=300"`
	ContentType string `json:"content_type" validate:"omitempty,max=120"`
	SizeBytes   int64  `json:"size_bytes" validate:"gte=0"`
}

type moduleResponse struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(m *Module) moduleResponse {
	return moduleResponse{
		ID:          m.ID,
		CourseID:    m.CourseID,
		Name:        m.Name,
		Description: m.Description,
		Position:    m.Position,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	var courseID int64
	if raw := r.URL.Query().Get("course_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid course_id")
			return
		}
		courseID = parsed
	}

	items, err := h.service.List(r.Context(), p, courseID)
	if err != nil {
		shared.RespondError(w, h.logger, "list modules", err)
		return
	}
	out := make([]moduleResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	m, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		shared.RespondError(w, h.logger, "get module", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(m))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())

	var req moduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	m, err := h.service.Create(r.Context(), p, CreateInput{
		CourseID:    req.CourseID,
		Name:        req.Name,
		Description: req.Description,
		Position:    req.Position,
	})
	if err != nil {
		shared.RespondError(w, h.logger, "create module", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(m))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req moduleUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	m, err := h.service.Update(r.Context(), p, id, req.Name, req.Description, req.Position)
	if err != nil {
		shared.RespondError(w, h.logger, "update module", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(m))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), p, id); err != nil {
		shared.RespondError(w, h.logger, "delete module", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.ListFiles(r.Context(), p, id)
	if err != nil {
		shared.RespondError(w, h.logger, "list module files", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"files": items})
}

func (h *Handler) createFile(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req fileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	f, err := h.service.CreateFile(r.Context(), p, id, FileInput{
		Name:        req.Name,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		shared.RespondError(w, h.logger, "create module file", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, f)
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	fileID, ok := idParam(w, r, "fileID")
	if !ok {
		return
	}
	if err := h.service.DeleteFile(r.Context(), p, fileID); err != nil {
		shared.RespondError(w, h.logger, "delete module file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown resource")
		return 0, false
	}
	return id, true
}
