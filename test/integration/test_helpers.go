//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-mod-console/internal/config"
	"go-mod-console/internal/event"
	"go-mod-console/internal/executor"
	"go-mod-console/internal/handler"
	"go-mod-console/internal/middleware"
	"go-mod-console/internal/model"
	"go-mod-console/internal/router"
	"go-mod-console/internal/service"
	"go-mod-console/internal/websocket"
)

// In-memory stores backing the services so the full HTTP surface can be
// exercised without Postgres.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]model.User{}}
}

func (s *memUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *memUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.FindByUsername(ctx, username)
	return err == nil, nil
}

func (s *memUserStore) Create(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: map[string]string{}}
}

func (s *memTokenStore) Store(_ context.Context, token string, userID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
	return nil
}

func (s *memTokenStore) Validate(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return "", model.ErrTokenNotFound
	}
	return userID, nil
}

func (s *memTokenStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

type memAuditStore struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (s *memAuditStore) Insert(_ context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memAuditStore) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]model.AuditEntry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if query.Action != "" && !strings.EqualFold(entry.Action, query.Action) {
			continue
		}
		if query.Status != "" && !strings.EqualFold(entry.Status, query.Status) {
			continue
		}
		matched = append(matched, entry)
	}
	return matched, model.Meta{Page: 1, Limit: len(matched), Total: len(matched), TotalPages: 1}, nil
}

type memOperationStore struct {
	mu      sync.Mutex
	records []model.OperationRecord
}

func (s *memOperationStore) Insert(_ context.Context, record model.OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *memOperationStore) ListBySession(_ context.Context, sessionID string, page int, limit int) ([]model.OperationRecord, model.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]model.OperationRecord, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].SessionID == sessionID {
			matched = append(matched, s.records[i])
		}
	}
	return matched, model.Meta{Page: page, Limit: limit, Total: len(matched), TotalPages: 1}, nil
}

// scriptedExecutor returns canned results in submission order.
type scriptedExecutor struct {
	mu      sync.Mutex
	results []executor.Result
	calls   [][]string
	reasons []string
}

func (s *scriptedExecutor) Execute(_ context.Context, ids []string, reason string) (executor.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, append([]string(nil), ids...))
	s.reasons = append(s.reasons, reason)

	if len(s.results) == 0 {
		return executor.Result{ProcessedCount: len(ids)}, nil
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next, nil
}

func newConsoleServer(t *testing.T, registry executor.Registry) (*httptest.Server, string) {
	t.Helper()

	users := newMemUserStore()
	tokens := newMemTokenStore()
	authService, err := service.NewAuthService("test-secret", 15*time.Minute, 24*time.Hour, users, tokens)
	require.NoError(t, err)
	require.NoError(t, authService.EnsureDefaultAdmin(context.Background()))

	authMiddleware := middleware.NewAuthMiddleware(authService)
	authHandler := handler.NewAuthHandler(authService)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	auditService := service.NewAuditService(&memAuditStore{})
	auditHandler := handler.NewAuditHandler(auditService)

	engine := service.NewExecutionService(registry)
	sessionService := service.NewSessionService(engine, service.NewRetryService(engine), auditService, &memOperationStore{}, bus)
	sessionHandler := handler.NewSessionHandler(sessionService)
	operationsHandler := handler.NewOperationsHandler(sessionService)

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		JWTSecret:        "test-secret",
		JWTAccessTTL:     15 * time.Minute,
		JWTRefreshTTL:    24 * time.Hour,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	server := httptest.NewServer(router.New(cfg, authMiddleware, authHandler, sessionHandler, operationsHandler, auditHandler, hub, nil))
	t.Cleanup(server.Close)

	loginPayload := map[string]string{"username": "admin", "password": "admin123"}
	body, err := json.Marshal(loginPayload)
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)
	require.NotEmpty(t, parsed.Data.AccessToken)

	return server, parsed.Data.AccessToken
}

func doAuthJSONRequest(t *testing.T, method string, url string, body []byte, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
