package universities

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

// Handler manages university endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers university routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
}

type universityRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Domain string `json:"domain" validate:"omitempty,fqdn"`
}

type universityResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(u *University) universityResponse {
	return universityResponse{ID: u.ID, Name: u.Name, Domain: u.Domain, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	page := shared.PageFromRequest(r)

	items, pagination, err := h.service.List(r.Context(), p, page)
	if err != nil {
		shared.RespondError(w, h.logger, "list universities", err)
		return
	}
	out := make([]universityResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"universities": out, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		shared.RespondError(w, h.logger, "get university", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(u))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	var req universityRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.service.Create(r.Context(), p, req.Name, req.Domain)
	if err != nil {
		shared.RespondError(w, h.logger, "create university", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(u))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req universityRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.service.Update(r.Context(), p, id, req.Name, req.Domain)
	if err != nil {
		shared.RespondError(w, h.logger, "update university", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(u))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req *universityRequest) bool {
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown university")
		return 0, false
	}
	return id, true
}
