package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/models"
	"shareit/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method    string
	Path      string
	Query     string
	UserID    string
	RequestID string
	APIKey    string
	Body      string
}

// fakeBackend records every forwarded request and answers with a fixed reply.
type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		UserID:    r.Header.Get(models.HeaderUserID),
		RequestID: r.Header.Get(models.HeaderRequestID),
		APIKey:    r.Header.Get("x-api-key"),
		Body:      string(raw),
	})
	status, body := b.status, b.body
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (b *fakeBackend) calls() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedRequest(nil), b.requests...)
}

type gatewayFixture struct {
	t       *testing.T
	backend *fakeBackend
	gw      *Gateway
	now     time.Time
}

func newGatewayFixture(t *testing.T, cfg config.GatewayConfig, limiter *repository.RedisRateLimiter) *gatewayFixture {
	t.Helper()
	backend := &fakeBackend{status: http.StatusOK, body: `{"id":1}`}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg.ServerURL = srv.URL
	logger := zerolog.New(io.Discard)
	client := NewBackendClient(srv.URL, "gw-key", "gw-extra", time.Second)

	var gw *Gateway
	if limiter != nil {
		gw = New(cfg, client, limiter, nil, &logger)
	} else {
		gw = New(cfg, client, nil, nil, &logger)
	}
	now := time.Now().Truncate(time.Second)
	gw.now = func() time.Time { return now }

	return &gatewayFixture{t: t, backend: backend, gw: gw, now: now}
}

func (f *gatewayFixture) do(method, target, userID, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(models.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	f.gw.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *gatewayFixture) wire(d time.Duration) string {
	return f.now.Add(d).Format(models.DateTimeLayout)
}

func errorText(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

func TestGateway_ValidationRejectsBeforeForwarding(t *testing.T) {
	f := newGatewayFixture(t, config.GatewayConfig{}, nil)

	tests := []struct {
		name    string
		method  string
		target  string
		userID  string
		body    string
		message string
	}{
		{"user without email", http.MethodPost, "/users", "", `{"name":"Ann"}`, "email is required"},
		{"user with bad email", http.MethodPost, "/users", "", `{"name":"Ann","email":"not-an-email"}`, "email must be a well-formed email address"},
		{"user patch with bad email", http.MethodPatch, "/users/1", "", `{"email":"nope"}`, "email must be a well-formed email address"},
		{"user bad id", http.MethodGet, "/users/abc", "", "", `invalid id "abc"`},
		{"missing sharer header", http.MethodGet, "/items", "", "", "header X-Sharer-User-Id is required"},
		{"non numeric sharer", http.MethodGet, "/items", "abc", "", "header X-Sharer-User-Id must be a positive integer"},
		{"item blank name", http.MethodPost, "/items", "1", `{"name":"  ","description":"d","available":true}`, "name must not be blank"},
		{"item missing available", http.MethodPost, "/items", "1", `{"name":"Drill","description":"d"}`, "available is required"},
		{"negative from", http.MethodGet, "/items?from=-1", "1", "", models.ErrInvalidFrom.Error()},
		{"zero size", http.MethodGet, "/items/search?text=a&size=0", "1", "", models.ErrInvalidSize.Error()},
		{"unknown state", http.MethodGet, "/bookings?state=UNSUPPORTED_STATUS", "1", "", "Unknown state: UNSUPPORTED_STATUS"},
		{"owner unknown state", http.MethodGet, "/bookings/owner?state=soon", "1", "", "Unknown state: soon"},
		{"booking without item", http.MethodPost, "/bookings", "1", `{"start":"2099-01-01T10:00:00","end":"2099-01-02T10:00:00"}`, "itemId is required"},
		{"approved missing", http.MethodPatch, "/bookings/1", "1", "", "parameter approved is required"},
		{"approved garbage", http.MethodPatch, "/bookings/1?approved=yes", "1", "", `parameter approved must be true or false, got "yes"`},
		{"blank comment", http.MethodPost, "/items/1/comment", "1", `{"text":"   "}`, "text must not be blank"},
		{"blank request", http.MethodPost, "/requests", "1", `{"description":""}`, "description is required"},
		{"malformed json", http.MethodPost, "/requests", "1", `{`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.target, tt.userID, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, errorText(t, rec))
			}
		})
	}

	assert.Empty(t, f.backend.calls())
}

func TestGateway_BookingDates(t *testing.T) {
	f := newGatewayFixture(t, config.GatewayConfig{}, nil)

	body := func(start, end time.Duration) string {
		return `{"itemId":1,"start":"` + f.wire(start) + `","end":"` + f.wire(end) + `"}`
	}

	rec := f.do(http.MethodPost, "/bookings", "2", body(-time.Hour, time.Hour))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start must be in the present or future", errorText(t, rec))

	rec = f.do(http.MethodPost, "/bookings", "2", body(-2*time.Hour, -time.Hour))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/bookings", "2", body(0, time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// end before start is left to the server
	rec = f.do(http.MethodPost, "/bookings", "2", body(2*time.Hour, time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, f.backend.calls(), 2)
}

func TestGateway_ForwardsRequests(t *testing.T) {
	f := newGatewayFixture(t, config.GatewayConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"Drill","description":"Cordless","available":true}`))
	req.Header.Set(models.HeaderUserID, "7")
	req.Header.Set(models.HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	f.gw.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
	assert.Equal(t, "req-1", rec.Header().Get(models.HeaderRequestID))

	calls := f.backend.calls()
	require.Len(t, calls, 1)
	got := calls[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/items", got.Path)
	assert.Equal(t, "7", got.UserID)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "gw-key", got.APIKey)
	assert.JSONEq(t, `{"name":"Drill","description":"Cordless","available":true}`, got.Body)

	rec = f.do(http.MethodGet, "/bookings/owner?state=current&from=0&size=5", "7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	calls = f.backend.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/bookings/owner", calls[1].Path)
	assert.Equal(t, "state=current&from=0&size=5", calls[1].Query)

	rec = f.do(http.MethodPatch, "/bookings/3?approved=true", "7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved=true", f.backend.calls()[2].Query)

	rec = f.do(http.MethodGet, "/users", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.backend.calls()[3].UserID)
}

func TestGateway_PassesBackendStatusThrough(t *testing.T) {
	f := newGatewayFixture(t, config.GatewayConfig{}, nil)
	f.backend.status = http.StatusConflict
	f.backend.body = `{"error":"email already in use"}`

	rec := f.do(http.MethodPost, "/users", "", `{"name":"Ann","email":"ann@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already in use", errorText(t, rec))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestGateway_BackendDown(t *testing.T) {
	logger := zerolog.Nop()
	client := NewBackendClient("http://127.0.0.1:1", "", "", 200*time.Millisecond)
	gw := New(config.GatewayConfig{}, client, nil, nil, &logger)

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGateway_RateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.GatewayConfig{RateLimit: config.GatewayRateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}}
	f := newGatewayFixture(t, cfg, repository.NewRedisRateLimiter(client, "test"))

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/requests", "5", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/requests", "5", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodGet, "/requests", "5", "").Code)

	// другой пользователь не затронут
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/requests", "6", "").Code)
	assert.Len(t, f.backend.calls(), 3)

	// при недоступном Redis запросы пропускаются
	mr.Close()
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/requests", "5", "").Code)
}

func TestGateway_Readyz(t *testing.T) {
	logger := zerolog.Nop()
	client := NewBackendClient("http://127.0.0.1:1", "", "", time.Second)

	gw := New(config.GatewayConfig{}, client, nil, func(context.Context) error { return errors.New("backend down") }, &logger)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	gw = New(config.GatewayConfig{}, client, nil, func(context.Context) error { return nil }, &logger)
	rec = httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateway_CORS(t *testing.T) {
	f := newGatewayFixture(t, config.GatewayConfig{AllowOrigins: []string{"http://localhost:3000"}}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/items", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	f.gw.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, f.backend.calls())
}
