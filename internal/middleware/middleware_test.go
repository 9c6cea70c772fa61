package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/auth"
	"github.com/josh-kwaku/agency-ledger/internal/handler"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
)

const testSecret = "test-jwt-secret"

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthAndRequireRole(t *testing.T) {
	token := func(role auth.Role) string {
		s, err := auth.GenerateToken(uuid.New(), "ops@agency.test", role, testSecret, time.Hour)
		require.NoError(t, err)
		return "Bearer " + s
	}

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{name: "admin allowed", header: token(auth.RoleAdmin), wantCode: http.StatusNoContent},
		{name: "finance allowed", header: token(auth.RoleFinance), wantCode: http.StatusNoContent},
		{name: "viewer forbidden", header: token(auth.RoleViewer), wantCode: http.StatusForbidden, wantErr: "FORBIDDEN"},
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized, wantErr: "MISSING_TOKEN"},
		{name: "not bearer", header: "Basic abc", wantCode: http.StatusUnauthorized, wantErr: "INVALID_TOKEN"},
		{name: "garbage token", header: "Bearer abc", wantCode: http.StatusUnauthorized, wantErr: "INVALID_TOKEN"},
	}

	h := Chain(ok(), Auth(testSecret), RequireRole(auth.RoleAdmin, auth.RoleFinance))

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/movements", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, errorCode(t, rec))
			}
		})
	}
}

func TestCronSecret(t *testing.T) {
	h := CronSecret("s3cret")(ok())

	tests := []struct {
		name     string
		secret   string
		wantCode int
	}{
		{name: "match", secret: "s3cret", wantCode: http.StatusNoContent},
		{name: "mismatch", secret: "s3cre7", wantCode: http.StatusUnauthorized},
		{name: "prefix only", secret: "s3c", wantCode: http.StatusUnauthorized},
		{name: "missing", secret: "", wantCode: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/cron/recurring", nil)
			if tc.secret != "" {
				req.Header.Set("X-Cron-Secret", tc.secret)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(ok(), mw("outer"), mw("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type memIdempotency struct {
	mu      sync.Mutex
	entries map[string]*repository.IdempotencyEntry
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{entries: map[string]*repository.IdempotencyEntry{}}
}

func (m *memIdempotency) Get(_ context.Context, key string, userID uuid.UUID, now time.Time) (*repository.IdempotencyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key+userID.String()]
	if !ok || !e.ExpiresAt.After(now) {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memIdempotency) Claim(_ context.Context, e *repository.IdempotencyEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[e.Key+e.UserID.String()]; ok && cur.ExpiresAt.After(e.CreatedAt) {
		return false, nil
	}
	cp := *e
	cp.StatusCode = 0
	m.entries[e.Key+e.UserID.String()] = &cp
	return true, nil
}

func (m *memIdempotency) Complete(_ context.Context, key string, userID uuid.UUID, status int, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key+userID.String()]; ok && e.Pending() {
		e.StatusCode = status
		e.ResponseBody = append([]byte(nil), body...)
	}
	return nil
}

func (m *memIdempotency) Release(_ context.Context, key string, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key+userID.String()]; ok && e.Pending() {
		delete(m.entries, key+userID.String())
	}
	return nil
}

func postWithKey(h http.Handler, user *auth.Claims, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/movements", strings.NewReader(body))
	req = req.WithContext(auth.ContextWithClaims(req.Context(), user))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency(t *testing.T) {
	var calls atomic.Int32
	status := http.StatusCreated
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		handler.RespondJSON(w, status, map[string]string{"echo": string(body)})
	})

	h := Idempotency(newMemIdempotency())(next)
	user := &auth.Claims{UserID: uuid.New(), Role: auth.RoleFinance}
	send := func(key, body string) *httptest.ResponseRecorder { return postWithKey(h, user, key, body) }

	first := send("k1", `{"amount":"10"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	replay := send("k1", `{"amount":"10"}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("X-Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, int32(1), calls.Load())

	conflict := send("k1", `{"amount":"11"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", errorCode(t, conflict))

	missing := send("", `{}`)
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	tooLong := send(strings.Repeat("k", 256), `{}`)
	assert.Equal(t, http.StatusBadRequest, tooLong.Code)

	status = http.StatusInternalServerError
	send("k2", `{}`)
	send("k2", `{}`)
	assert.Equal(t, int32(3), calls.Load(), "server errors are not replayed")
}

func TestIdempotency_ConcurrentDuplicateRunsOnce(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		close(entered)
		<-release
		handler.RespondJSON(w, http.StatusCreated, map[string]string{"id": "m1"})
	})

	h := Idempotency(newMemIdempotency())(next)
	user := &auth.Claims{UserID: uuid.New(), Role: auth.RoleFinance}

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- postWithKey(h, user, "k1", `{"amount":"10"}`) }()
	<-entered

	dup := postWithKey(h, user, "k1", `{"amount":"10"}`)
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "IDEMPOTENCY_IN_FLIGHT", errorCode(t, dup))

	close(release)
	first := <-done
	assert.Equal(t, http.StatusCreated, first.Code)

	again := postWithKey(h, user, "k1", `{"amount":"10"}`)
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "true", again.Header().Get("X-Idempotent-Replayed"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotency_PanicReleasesClaim(t *testing.T) {
	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		handler.RespondJSON(w, http.StatusCreated, map[string]string{"id": "m1"})
	})

	h := Chain(next, Recovery, Idempotency(newMemIdempotency()))
	user := &auth.Claims{UserID: uuid.New(), Role: auth.RoleFinance}

	first := postWithKey(h, user, "k1", `{}`)
	assert.Equal(t, http.StatusInternalServerError, first.Code)

	retry := postWithKey(h, user, "k1", `{}`)
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Empty(t, retry.Header().Get("X-Idempotent-Replayed"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTracing(t *testing.T) {
	var seen string
	h := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 500))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err, "oversized ids are replaced")
}

func TestRecovery(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Tracing, Recovery)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/balances", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
}
