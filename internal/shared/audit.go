package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent represents a record stored in audit_events. Token issuance,
// revocation and professor assignment changes are recorded here so that
// administrative deletions have a trail to consult.
type AuditEvent struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditRecorder writes records into audit_events.
type AuditRecorder struct {
	pool *pgxpool.Pool
}

// NewAuditRecorder returns a new AuditRecorder.
func NewAuditRecorder(pool *pgxpool.Pool) *AuditRecorder {
	return &AuditRecorder{pool: pool}
}

// Record persists the event.
func (r *AuditRecorder) Record(ctx context.Context, event AuditEvent) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if event.Action == "" || event.Entity == "" || event.EntityID == "" {
		return errors.New("audit event requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	var at any
	if !event.At.IsZero() {
		at = event.At.UTC()
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_events (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, event.ActorID, event.Action, event.Entity, event.EntityID, metaJSON, at)
	return err
}
