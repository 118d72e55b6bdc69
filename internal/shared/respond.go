package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/platform/httpx"
)

// RespondError translates authorization and domain errors into the
// uniform HTTP mapping. Missing rows and out-of-scope references
// produce the same not-found response so existence is never revealed
// across tenants.
func RespondError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, authz.ErrNotFound), errors.Is(err, authz.ErrScopeDenied), errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, authz.ErrForbidden):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrConflict):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrInvalidInput):
		httpx.RespondError(w, httpx.ErrValidation)
	default:
		if logger != nil {
			logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
