package tokens

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/observability"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// valueLength is the wire length of a token value: 32 random bytes,
// base64url without padding.
const valueLength = 43

// maxIssueAttempts bounds regenerate-and-retry on a value collision.
const maxIssueAttempts = 5

// Service orchestrates the capability token lifecycle.
type Service struct {
	repo    Repository
	scoper  *authz.Scoper
	audit   *shared.AuditRecorder
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

// NewService constructs a Service. audit and metrics may be nil.
func NewService(repo Repository, scoper *authz.Scoper, audit *shared.AuditRecorder, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		scoper:  scoper,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// IssueInput carries the parameters for issuing a token.
type IssueInput struct {
	ResourceKind    ResourceKind
	ResourceID      int64
	Name            string
	AllowChat       bool
	AllowFileAccess bool
	TTL             *time.Duration
}

// UpdateInput carries metadata edits. The token value is immutable
// post-issue.
type UpdateInput struct {
	Name            string
	AllowChat       bool
	AllowFileAccess bool
}

// Issue creates an Active token bound to one resource. The issuer must
// pass the scope filter for that resource.
func (s *Service) Issue(ctx context.Context, p *principal.Principal, in IssueInput) (*Token, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	res, ok := in.ResourceKind.ScopeResource()
	if !ok {
		return nil, fmt.Errorf("tokens: unknown resource kind %q", in.ResourceKind)
	}
	if err := s.scoper.AuthorizeResource(ctx, p, res, in.ResourceID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tokens: name required", shared.ErrInvalidInput)
	}

	token := &Token{
		ID:              uuid.New(),
		ResourceKind:    in.ResourceKind,
		ResourceID:      in.ResourceID,
		IssuerID:        p.UserID,
		Name:            name,
		AllowChat:       in.AllowChat,
		AllowFileAccess: in.AllowFileAccess,
		Status:          StatusActive,
	}
	if in.TTL != nil {
		expiresAt := s.clock().Add(*in.TTL)
		token.ExpiresAt = &expiresAt
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		value, err := newTokenValue()
		if err != nil {
			return nil, err
		}
		token.Value = value
		err = s.repo.Insert(ctx, token)
		if err == nil {
			s.recordAudit(ctx, p, "token.issue", token.ID, map[string]any{
				"resource_kind": string(token.ResourceKind),
				"resource_id":   token.ResourceID,
			})
			return s.repo.GetByID(ctx, token.ID)
		}
		if !errors.Is(err, ErrDuplicateValue) {
			return nil, err
		}
		// 256-bit collision: regenerate silently.
	}
	return nil, fmt.Errorf("tokens: issue: value collision persisted after %d attempts", maxIssueAttempts)
}

// Validate resolves an opaque token value and checks the required
// capability. On success it records one usage before returning; a
// usage-write failure is logged and swallowed because telemetry must
// never deny a legitimate request.
func (s *Service) Validate(ctx context.Context, value string, capability Capability) (*Token, error) {
	if len(value) != valueLength {
		s.metrics.TokenValidation("not_found")
		return nil, ErrTokenNotFound
	}

	token, err := s.repo.GetActiveByValue(ctx, value)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			s.metrics.TokenValidation("not_found")
		}
		return nil, err
	}

	if token.Expired(s.clock()) {
		s.metrics.TokenValidation("expired")
		return nil, fmt.Errorf("%w: expired at %s", ErrTokenExpired, token.ExpiresAt.Format(time.RFC3339))
	}

	if !token.Allows(capability) {
		s.metrics.TokenValidation("capability_denied")
		return nil, fmt.Errorf("%w: %s", ErrCapabilityDenied, capability)
	}

	usageCount, lastUsedAt, err := s.repo.RecordUsage(ctx, token.ID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("record token usage", slog.String("token_id", token.ID.String()), slog.Any("error", err))
		}
	} else {
		token.UsageCount = usageCount
		token.LastUsedAt = &lastUsedAt
	}

	s.metrics.TokenValidation("ok")
	return token, nil
}

// Get returns a token the principal is allowed to manage.
func (s *Service) Get(ctx context.Context, p *principal.Principal, id uuid.UUID) (*Token, error) {
	token, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManage(ctx, p, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ListIssued returns the principal's own tokens.
func (s *Service) ListIssued(ctx context.Context, p *principal.Principal) ([]Token, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	return s.repo.ListByIssuer(ctx, p.UserID)
}

// ListForResource returns all tokens bound to one resource the
// principal can see.
func (s *Service) ListForResource(ctx context.Context, p *principal.Principal, kind ResourceKind, resourceID int64) ([]Token, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	res, ok := kind.ScopeResource()
	if !ok {
		return nil, fmt.Errorf("tokens: unknown resource kind %q", kind)
	}
	if err := s.scoper.AuthorizeResource(ctx, p, res, resourceID); err != nil {
		return nil, err
	}
	return s.repo.ListByResource(ctx, kind, resourceID)
}

// Update edits name and permission flags.
func (s *Service) Update(ctx context.Context, p *principal.Principal, id uuid.UUID, in UpdateInput) (*Token, error) {
	token, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManage(ctx, p, token); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = token.Name
	}
	return s.repo.UpdateMetadata(ctx, id, name, in.AllowChat, in.AllowFileAccess)
}

// Revoke transitions the token to Inactive. Revoking an already revoked
// token is a no-op; there is no way back to Active.
func (s *Service) Revoke(ctx context.Context, p *principal.Principal, id uuid.UUID) error {
	token, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeManage(ctx, p, token); err != nil {
		return err
	}
	if token.Status == StatusInactive {
		return nil
	}
	if err := s.repo.SetStatus(ctx, id, StatusInactive); err != nil {
		return err
	}
	s.recordAudit(ctx, p, "token.revoke", id, nil)
	return nil
}

// authorizeManage admits the original issuer, or any principal at
// AdminOrAbove within the bound resource's tenant.
func (s *Service) authorizeManage(ctx context.Context, p *principal.Principal, token *Token) error {
	if p == nil {
		return fmt.Errorf("%w: no principal", authz.ErrForbidden)
	}
	if p.UserID == token.IssuerID {
		return nil
	}
	if !authz.CanPerform(p, authz.AdminOrAbove) {
		return fmt.Errorf("%w: not the issuer", authz.ErrForbidden)
	}
	res, ok := token.ResourceKind.ScopeResource()
	if !ok {
		return fmt.Errorf("tokens: unknown resource kind %q", token.ResourceKind)
	}
	return s.scoper.AuthorizeResource(ctx, p, res, token.ResourceID)
}

func (s *Service) recordAudit(ctx context.Context, p *principal.Principal, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditEvent{
		ActorID:  p.UserID,
		Action:   action,
		Entity:   "widget_token",
		EntityID: id.String(),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record audit event", slog.String("action", action), slog.Any("error", err))
	}
}

// newTokenValue draws 32 bytes from the CSPRNG and encodes them
// base64url without padding, yielding 43 characters.
func newTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("tokens: generate value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
