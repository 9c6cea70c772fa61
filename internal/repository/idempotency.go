package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IdempotencyEntry is a replayable response to a movement write submitted
// with an Idempotency-Key header. StatusCode is zero while the first request
// is still running.
type IdempotencyEntry struct {
	Key          string
	UserID       uuid.UUID
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get returns nil, nil when no unexpired entry exists.
func (r *IdempotencyRepository) Get(ctx context.Context, key string, userID uuid.UUID, now time.Time) (*IdempotencyEntry, error) {
	var e IdempotencyEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT idempotency_key, user_id, request_hash, status_code, response_body, created_at, expires_at
		FROM idempotency_cache
		WHERE idempotency_key = $1 AND user_id = $2 AND expires_at > $3`,
		key, userID, now,
	).Scan(&e.Key, &e.UserID, &e.RequestHash, &e.StatusCode, &e.ResponseBody, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &e, nil
}

// Claim reserves the key for the caller as a pending entry. It reports false
// when an unexpired entry, pending or complete, already holds the key.
func (r *IdempotencyRepository) Claim(ctx context.Context, e *IdempotencyEntry) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO idempotency_cache (idempotency_key, user_id, request_hash, status_code, response_body, created_at, expires_at)
		VALUES ($1, $2, $3, 0, '', $4, $5)
		ON CONFLICT (idempotency_key, user_id) DO UPDATE SET
			request_hash = EXCLUDED.request_hash,
			status_code = 0,
			response_body = '',
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_cache.expires_at <= EXCLUDED.created_at`,
		e.Key, e.UserID, e.RequestHash, e.CreatedAt, e.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("Claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Claim: rows affected: %w", err)
	}
	return n == 1, nil
}

// Complete stores the response of a claimed key.
func (r *IdempotencyRepository) Complete(ctx context.Context, key string, userID uuid.UUID, statusCode int, body []byte) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE idempotency_cache SET status_code = $3, response_body = $4
		WHERE idempotency_key = $1 AND user_id = $2 AND status_code = 0`,
		key, userID, statusCode, body,
	)
	if err != nil {
		return fmt.Errorf("Complete: %w", err)
	}
	return nil
}

// Release drops a pending claim so the request can be retried.
func (r *IdempotencyRepository) Release(ctx context.Context, key string, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_cache WHERE idempotency_key = $1 AND user_id = $2 AND status_code = 0`,
		key, userID,
	)
	if err != nil {
		return fmt.Errorf("Release: %w", err)
	}
	return nil
}

func (e *IdempotencyEntry) Pending() bool { return e.StatusCode == 0 }

func (r *IdempotencyRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_cache WHERE expires_at <= $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: rows affected: %w", err)
	}
	return n, nil
}
