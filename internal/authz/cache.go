package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedAssignments is a read-through Redis cache in front of the
// assignment source. Cache failures fall back to the source and are
// logged; losing the cache must never deny a request.
type CachedAssignments struct {
	client *redis.Client
	source AssignmentSource
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedAssignments wraps source with a Redis cache.
func NewCachedAssignments(client *redis.Client, source AssignmentSource, ttl time.Duration, logger *slog.Logger) *CachedAssignments {
	return &CachedAssignments{client: client, source: source, ttl: ttl, logger: logger}
}

func assignmentKey(professorID int64) string {
	return fmt.Sprintf("tutorhub:assignments:%d", professorID)
}

// AssignedCourses returns the cached course set, loading and storing it
// on a miss.
func (c *CachedAssignments) AssignedCourses(ctx context.Context, professorID int64) ([]int64, error) {
	key := assignmentKey(professorID)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var ids []int64
		if err := json.Unmarshal(payload, &ids); err == nil {
			return ids, nil
		}
		if c.logger != nil {
			c.logger.Warn("decode cached assignments", slog.Int64("professor_id", professorID))
		}
	} else if !errors.Is(err, redis.Nil) && c.logger != nil {
		c.logger.Warn("assignment cache read", slog.Any("error", err))
	}

	ids, err := c.source.AssignedCourses(ctx, professorID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(ids); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil && c.logger != nil {
			c.logger.Warn("assignment cache write", slog.Any("error", err))
		}
	}
	return ids, nil
}

// Invalidate drops the cached set after an assignment change.
func (c *CachedAssignments) Invalidate(ctx context.Context, professorID int64) error {
	if err := c.client.Del(ctx, assignmentKey(professorID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("authz: invalidate assignments: %w", err)
	}
	return nil
}

var _ AssignmentSource = (*CachedAssignments)(nil)
