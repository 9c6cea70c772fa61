package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/agency-ledger/internal/auth"
	"github.com/josh-kwaku/agency-ledger/internal/handler"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
)

type idempotencyRepository interface {
	Get(ctx context.Context, key string, userID uuid.UUID, now time.Time) (*repository.IdempotencyEntry, error)
	Claim(ctx context.Context, entry *repository.IdempotencyEntry) (bool, error)
	Complete(ctx context.Context, key string, userID uuid.UUID, statusCode int, body []byte) error
	Release(ctx context.Context, key string, userID uuid.UUID) error
}

const (
	replayWindow      = 24 * time.Hour
	maxIdempotencyKey = 255
	maxWriteBody      = 1 << 20
)

// Idempotency replays the stored response of a write submitted again with
// the same Idempotency-Key by the same caller. The key is claimed before the
// handler runs, so a concurrent duplicate is refused instead of executed.
// Server errors release the claim so the client can retry them.
func Idempotency(repo idempotencyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			switch {
			case key == "":
				handler.RespondAppError(w, handler.ErrMissingIdempotencyKey, nil)
				return
			case len(key) > maxIdempotencyKey:
				handler.RespondAppError(w, handler.ErrInvalidRequest, map[string]string{"Idempotency-Key": "at most 255 characters"})
				return
			}

			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWriteBody))
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			log := logging.FromContext(r.Context()).With("idempotency_key", key)
			fingerprint := requestFingerprint(r, body)
			now := time.Now().UTC()

			claimed, err := repo.Claim(r.Context(), &repository.IdempotencyEntry{
				Key:         key,
				UserID:      userID,
				RequestHash: fingerprint,
				CreatedAt:   now,
				ExpiresAt:   now.Add(replayWindow),
			})
			if err != nil {
				log.Error("idempotency claim failed", "error", err)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
				return
			}
			if !claimed {
				stored, err := repo.Get(r.Context(), key, userID, now)
				if err != nil || stored == nil {
					log.Error("idempotency lookup failed", "error", err)
					handler.RespondAppError(w, handler.ErrInternalError, nil)
					return
				}
				replay(w, stored, fingerprint, log)
				return
			}

			// The claim outlives a cancelled request or a panic; it must be
			// settled either way.
			settleCtx := context.WithoutCancel(r.Context())
			settled := false
			defer func() {
				if !settled {
					if err := repo.Release(settleCtx, key, userID); err != nil {
						log.Error("idempotency release failed", "error", err)
					}
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.statusCode >= http.StatusInternalServerError {
				return
			}

			// The write happened; a claim that fails to complete stays pending
			// until it expires rather than letting a retry run it again.
			settled = true
			if err := repo.Complete(settleCtx, key, userID, rec.statusCode, rec.body.Bytes()); err != nil {
				log.Error("idempotency store failed", "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, stored *repository.IdempotencyEntry, fingerprint string, log *slog.Logger) {
	if stored.RequestHash != fingerprint {
		handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
		return
	}
	if stored.Pending() {
		handler.RespondAppError(w, handler.ErrIdempotencyInFlight, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotent-Replayed", "true")
	w.WriteHeader(stored.StatusCode)
	if _, err := w.Write(stored.ResponseBody); err != nil {
		log.Error("idempotent replay write failed", "error", err)
	}
}

// requestFingerprint ties a key to one method, path and body.
func requestFingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	io.WriteString(h, r.Method)
	io.WriteString(h, " ")
	io.WriteString(h, r.URL.Path)
	io.WriteString(h, "\n")
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
