package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for widget tokens.
type Repository interface {
	Insert(ctx context.Context, token *Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*Token, error)
	GetActiveByValue(ctx context.Context, value string) (*Token, error)
	ListByIssuer(ctx context.Context, issuerID int64) ([]Token, error)
	ListByResource(ctx context.Context, kind ResourceKind, resourceID int64) ([]Token, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, name string, allowChat, allowFileAccess bool) (*Token, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	RecordUsage(ctx context.Context, id uuid.UUID) (usageCount int64, lastUsedAt time.Time, err error)
}

const uniqueViolation = "23505"

const tokenColumns = `id, value, resource_kind, resource_id, issuer_id, name, allow_chat, allow_file_access, status, expires_at, usage_count, last_used_at, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert persists a freshly issued token. A unique violation on the
// value column surfaces as ErrDuplicateValue so the service can
// regenerate and retry.
func (r *PGRepository) Insert(ctx context.Context, token *Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO widget_tokens (id, value, resource_kind, resource_id, issuer_id, name, allow_chat, allow_file_access, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		token.ID, token.Value, token.ResourceKind, token.ResourceID, token.IssuerID,
		token.Name, token.AllowChat, token.AllowFileAccess, token.Status, token.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateValue
		}
		return fmt.Errorf("tokens: insert: %w", err)
	}
	return nil
}

// GetByID fetches a token regardless of status.
func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM widget_tokens WHERE id = $1`, id)
	return scanToken(row)
}

// GetActiveByValue fetches the active token matching the opaque value.
func (r *PGRepository) GetActiveByValue(ctx context.Context, value string) (*Token, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM widget_tokens WHERE value = $1 AND status = $2`, value, StatusActive)
	return scanToken(row)
}

// ListByIssuer returns the tokens issued by one user, newest first.
func (r *PGRepository) ListByIssuer(ctx context.Context, issuerID int64) ([]Token, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tokenColumns+` FROM widget_tokens WHERE issuer_id = $1 ORDER BY created_at DESC`, issuerID)
	if err != nil {
		return nil, fmt.Errorf("tokens: list by issuer: %w", err)
	}
	return collectTokens(rows)
}

// ListByResource returns the tokens bound to one resource, newest first.
func (r *PGRepository) ListByResource(ctx context.Context, kind ResourceKind, resourceID int64) ([]Token, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tokenColumns+` FROM widget_tokens WHERE resource_kind = $1 AND resource_id = $2 ORDER BY created_at DESC`, kind, resourceID)
	if err != nil {
		return nil, fmt.Errorf("tokens: list by resource: %w", err)
	}
	return collectTokens(rows)
}

func collectTokens(rows pgx.Rows) ([]Token, error) {
	defer rows.Close()
	var out []Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tokens: collect: %w", err)
	}
	return out, nil
}

// UpdateMetadata edits name and permission flags. The value column is
// intentionally untouched; external holders have already embedded it.
func (r *PGRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, name string, allowChat, allowFileAccess bool) (*Token, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE widget_tokens
		SET name = $2, allow_chat = $3, allow_file_access = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+tokenColumns,
		id, name, allowChat, allowFileAccess,
	)
	return scanToken(row)
}

// SetStatus transitions the token's lifecycle state.
func (r *PGRepository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE widget_tokens SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("tokens: set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// RecordUsage bumps the usage counter and the last-used timestamp in one
// atomic statement. GREATEST keeps last_used_at monotonic when
// concurrent validations commit out of order.
func (r *PGRepository) RecordUsage(ctx context.Context, id uuid.UUID) (int64, time.Time, error) {
	var usageCount int64
	var lastUsedAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE widget_tokens
		SET usage_count = usage_count + 1,
		    last_used_at = GREATEST(COALESCE(last_used_at, 'epoch'::timestamptz), NOW()),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING usage_count, last_used_at`,
		id,
	).Scan(&usageCount, &lastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, time.Time{}, ErrTokenNotFound
		}
		return 0, time.Time{}, fmt.Errorf("tokens: record usage: %w", err)
	}
	return usageCount, lastUsedAt, nil
}

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	err := row.Scan(
		&t.ID, &t.Value, &t.ResourceKind, &t.ResourceID, &t.IssuerID,
		&t.Name, &t.AllowChat, &t.AllowFileAccess, &t.Status,
		&t.ExpiresAt, &t.UsageCount, &t.LastUsedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("tokens: scan: %w", err)
	}
	return &t, nil
}

var _ Repository = (*PGRepository)(nil)
