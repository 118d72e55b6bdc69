package principal

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tutorhub/tutorhub/internal/platform/httpx"
)

const maxClockSkew = 30 * time.Second

type accessClaims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	UniversityID int64  `json:"university_id"`
	IsAdmin      bool   `json:"is_admin"`
}

// Middleware verifies the bearer credential, resolves the Principal once
// and stores it in request context. Credential issuance happens
// elsewhere; this side only verifies.
type Middleware struct {
	secret []byte
	logger *slog.Logger
}

// NewMiddleware constructs the boundary middleware.
func NewMiddleware(secret string, logger *slog.Logger) *Middleware {
	return &Middleware{secret: []byte(secret), logger: logger}
}

// Require rejects requests without a resolvable principal.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or malformed authorization header")
			return
		}

		var claims accessClaims
		token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
			jwt.WithValidMethods([]string{"HS256"}),
			jwt.WithLeeway(maxClockSkew),
		)
		if err != nil || !token.Valid {
			if m.logger != nil {
				m.logger.Debug("bearer verification failed", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired credential")
			return
		}

		p, err := Resolve(Claims{
			Subject:      claims.Subject,
			Role:         claims.Role,
			UniversityID: claims.UniversityID,
			IsAdmin:      claims.IsAdmin,
		})
		if err != nil {
			if m.logger != nil {
				m.logger.Debug("resolve principal", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credential claims")
			return
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), p)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
