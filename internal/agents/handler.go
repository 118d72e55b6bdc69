package agents

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

// Handler manages AI tutor agent endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers agent routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type agentRequest struct {
	CourseID     int64  `json:"course_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,max=200"`
	Model        string `json:"model" validate:"omitempty,max=120"`
	Instructions string `json:"instructions" validate:"omitempty,max=8000"`
	Enabled      bool   `json:"enabled"`
}

type agentResponse struct {
	ID           int64     `json:"id"`
	CourseID     int64     `json:"course_id"`
	Name         string    `json:"name"`
	Model        string    `json:"model,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(a *Agent) agentResponse {
	return agentResponse{
		ID:           a.ID,
		CourseID:     a.CourseID,
		Name:         a.Name,
		Model:        a.Model,
		Instructions: a.Instructions,
		Enabled:      a.Enabled,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	items, err := h.service.List(r.Context(), p)
	if err != nil {
		shared.RespondError(w, h.logger, "list agents", err)
		return
	}
	out := make([]agentResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"agents": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	a, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		shared.RespondError(w, h.logger, "get agent", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())

	var req agentRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.Create(r.Context(), p, CreateInput{
		CourseID:     req.CourseID,
		Name:         req.Name,
		Model:        req.Model,
		Instructions: req.Instructions,
		Enabled:      req.Enabled,
	})
	if err != nil {
		shared.RespondError(w, h.logger, "create agent", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req agentRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.Update(r.Context(), p, id, CreateInput{
		CourseID:     req.CourseID,
		Name:         req.Name,
		Model:        req.Model,
		Instructions: req.Instructions,
		Enabled:      req.Enabled,
	})
	if err != nil {
		shared.RespondError(w, h.logger, "update agent", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), p, id); err != nil {
		shared.RespondError(w, h.logger, "delete agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req *agentRequest) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown agent")
		return 0, false
	}
	return id, true
}
