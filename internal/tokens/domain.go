package tokens

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/authz"
)

var (
	// ErrTokenNotFound indicates no active token matches the presented value.
	ErrTokenNotFound = errors.New("tokens: token not found")
	// ErrTokenExpired indicates the token's expiry has passed. The check
	// is computed on every read; no background sweep is involved.
	ErrTokenExpired = errors.New("tokens: token expired")
	// ErrCapabilityDenied indicates the required capability is absent
	// from the token's permission flags.
	ErrCapabilityDenied = errors.New("tokens: capability denied")
	// ErrDuplicateValue indicates the generated value collided with an
	// existing one. The service regenerates and retries.
	ErrDuplicateValue = errors.New("tokens: duplicate token value")
	// ErrUnknownCapability indicates an unrecognised capability name.
	ErrUnknownCapability = errors.New("tokens: unknown capability")
)

// Status is the lifecycle state of a token. Inactive is terminal; there
// is no way back to Active.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Capability names a permission a widget token can carry.
type Capability string

const (
	CapabilityChat       Capability = "chat"
	CapabilityFileAccess Capability = "file_access"
)

// ParseCapability maps a wire name to a Capability.
func ParseCapability(raw string) (Capability, error) {
	switch Capability(raw) {
	case CapabilityChat:
		return CapabilityChat, nil
	case CapabilityFileAccess:
		return CapabilityFileAccess, nil
	default:
		return "", ErrUnknownCapability
	}
}

// ResourceKind identifies what a token is bound to.
type ResourceKind string

const (
	ResourceKindModule ResourceKind = "module"
	ResourceKindAgent  ResourceKind = "agent"
)

// ScopeResource maps the bound resource kind to its scope-filter type.
func (k ResourceKind) ScopeResource() (authz.Resource, bool) {
	switch k {
	case ResourceKindModule:
		return authz.ResourceModule, true
	case ResourceKindAgent:
		return authz.ResourceAgent, true
	default:
		return "", false
	}
}

// Token is an opaque, resource-bound, flag-scoped credential usable by
// external widget callers without a full login. The value is a lookup
// key into server state; clients never parse structure from it.
type Token struct {
	ID              uuid.UUID
	Value           string
	ResourceKind    ResourceKind
	ResourceID      int64
	IssuerID        int64
	Name            string
	AllowChat       bool
	AllowFileAccess bool
	Status          Status
	ExpiresAt       *time.Time
	UsageCount      int64
	LastUsedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Allows reports whether the token carries the capability.
func (t *Token) Allows(c Capability) bool {
	switch c {
	case CapabilityChat:
		return t.AllowChat
	case CapabilityFileAccess:
		return t.AllowFileAccess
	default:
		return false
	}
}

// Expired reports whether the token's expiry has passed at now.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}
