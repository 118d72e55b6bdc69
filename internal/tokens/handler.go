package tokens

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/platform/httpx"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// Handler manages widget token endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	idem      *shared.IdempotencyStore
	validator *validator.Validate
}

// NewHandler builds a Handler instance. The idempotency store is optional;
// when nil, Idempotency-Key headers are ignored.
func NewHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		idem:      idem,
		validator: validator.New(),
	}
}

// MountRoutes registers authenticated token management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.issue)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Post("/{id}/revoke", h.revoke)
}

// MountWidgetRoutes registers the public widget validation route. Rate
// limiting is applied by the router.
func (h *Handler) MountWidgetRoutes(r chi.Router) {
	r.Get("/validate", h.validate)
}

type issueRequest struct {
	ResourceKind    string `json:"resource_kind" validate:"required,oneof=module agent"`
	ResourceID      int64  `json:"resource_id" validate:"required,gt=0"`
	Name            string `json:"name" validate:"required,max=120"`
	AllowChat       bool   `json:"allow_chat"`
	AllowFileAccess bool   `json:"allow_file_access"`
	TTLSeconds      *int64 `json:"ttl_seconds" validate:"omitempty,gte=0"`
}

type tokenResponse struct {
	ID              string     `json:"id"`
	Value           string     `json:"value,omitempty"`
	ResourceKind    string     `json:"resource_kind"`
	ResourceID      int64      `json:"resource_id"`
	Name            string     `json:"name"`
	AllowChat       bool       `json:"allow_chat"`
	AllowFileAccess bool       `json:"allow_file_access"`
	Status          string     `json:"status"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	UsageCount      int64      `json:"usage_count"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toResponse(t *Token, includeValue bool) tokenResponse {
	resp := tokenResponse{
		ID:              t.ID.String(),
		ResourceKind:    string(t.ResourceKind),
		ResourceID:      t.ResourceID,
		Name:            t.Name,
		AllowChat:       t.AllowChat,
		AllowFileAccess: t.AllowFileAccess,
		Status:          string(t.Status),
		ExpiresAt:       t.ExpiresAt,
		UsageCount:      t.UsageCount,
		LastUsedAt:      t.LastUsedAt,
		CreatedAt:       t.CreatedAt,
	}
	if includeValue {
		resp.Value = t.Value
	}
	return resp
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())

	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	in := IssueInput{
		ResourceKind:    ResourceKind(req.ResourceKind),
		ResourceID:      req.ResourceID,
		Name:            req.Name,
		AllowChat:       req.AllowChat,
		AllowFileAccess: req.AllowFileAccess,
	}
	if req.TTLSeconds != nil {
		ttl := time.Duration(*req.TTLSeconds) * time.Second
		in.TTL = &ttl
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if h.idem != nil && idemKey != "" {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "tokens"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
				return
			}
			h.respondErr(w, r, "idempotency check", err)
			return
		}
	}

	token, err := h.service.Issue(r.Context(), p, in)
	if err != nil {
		if h.idem != nil && idemKey != "" {
			if delErr := h.idem.Delete(r.Context(), idemKey); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		h.respondErr(w, r, "issue token", err)
		return
	}
	// The value is returned once, at issue time.
	httpx.JSON(w, http.StatusCreated, toResponse(token, true))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())

	if kind := r.URL.Query().Get("resource_kind"); kind != "" {
		resourceID, err := parseID(r.URL.Query().Get("resource_id"))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "resource_id required with resource_kind")
			return
		}
		items, err := h.service.ListForResource(r.Context(), p, ResourceKind(kind), resourceID)
		if err != nil {
			h.respondErr(w, r, "list tokens by resource", err)
			return
		}
		h.respondList(w, items)
		return
	}

	items, err := h.service.ListIssued(r.Context(), p)
	if err != nil {
		h.respondErr(w, r, "list issued tokens", err)
		return
	}
	h.respondList(w, items)
}

func (h *Handler) respondList(w http.ResponseWriter, items []Token) {
	out := make([]tokenResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i], false))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tokens": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown token")
		return
	}
	token, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		h.respondErr(w, r, "get token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(token, false))
}

type updateRequest struct {
	Name            string `json:"name" validate:"omitempty,max=120"`
	AllowChat       bool   `json:"allow_chat"`
	AllowFileAccess bool   `json:"allow_file_access"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown token")
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

	token, err := h.service.Update(r.Context(), p, id, UpdateInput{
		Name:            req.Name,
		AllowChat:       req.AllowChat,
		AllowFileAccess: req.AllowFileAccess,
	})
	if err != nil {
		h.respondErr(w, r, "update token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(token, false))
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	p := principal.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown token")
		return
	}
	if err := h.service.Revoke(r.Context(), p, id); err != nil {
		h.respondErr(w, r, "revoke token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validateResponse struct {
	Valid        bool   `json:"valid"`
	ResourceKind string `json:"resource_kind"`
	ResourceID   int64  `json:"resource_id"`
	Name         string `json:"name"`
}

// validate is the widget-facing check. The token arrives as a bearer
// value or a query parameter; it is never parsed, only looked up.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	value := widgetToken(r)
	capability, err := ParseCapability(r.URL.Query().Get("capability"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown capability")
		return
	}

	token, err := h.service.Validate(r.Context(), value, capability)
	if err != nil {
		h.respondErr(w, r, "validate widget token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, validateResponse{
		Valid:        true,
		ResourceKind: string(token.ResourceKind),
		ResourceID:   token.ResourceID,
		Name:         token.Name,
	})
}

func widgetToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrTokenNotFound), errors.Is(err, authz.ErrNotFound), errors.Is(err, authz.ErrScopeDenied):
		// Out-of-scope and missing look identical to the caller.
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrTokenExpired):
		httpx.RespondError(w, httpx.ErrExpired)
	case errors.Is(err, ErrCapabilityDenied), errors.Is(err, authz.ErrForbidden):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrUnknownCapability), errors.Is(err, shared.ErrInvalidInput):
		httpx.RespondError(w, httpx.ErrValidation)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
