// ABOUTME: Tests for gateway assembly, store selection, and the Run/Shutdown lifecycle
// ABOUTME: Provides the shared fixture used by the HTTP API tests

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/trendclaw/internal/config"
	"github.com/2389/trendclaw/internal/identity"
	"github.com/2389/trendclaw/internal/store"
)

// fakeCaller is a scripted agent gateway.
type fakeCaller struct {
	mu        sync.Mutex
	connected bool
	results   map[string]string
	errs      map[string]error
	methods   []string
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{connected: true, results: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeCaller) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	if res, ok := f.results[method]; ok {
		return json.RawMessage(res), nil
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeCaller) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeCaller) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeCaller) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

type fixture struct {
	gw     *Gateway
	store  *store.MockStore
	caller *fakeCaller
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.PublicURL = "https://tc.example"
	cfg.Webhook.Token = "hook-secret"
	return cfg
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	s := store.NewMockStore()
	caller := newFakeCaller()
	gw := newGateway(cfg, s, caller, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(gw.dedupe.Close)
	return &fixture{gw: gw, store: s, caller: caller}
}

// do sends a request through the full router.
func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.gw.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestInitStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "tc.db")
	s, err := initStore(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*store.SQLiteStore)
	assert.True(t, ok)
}

func TestInitStorePostgresBadDSN(t *testing.T) {
	_, err := initStore(context.Background(), config.DatabaseConfig{Driver: config.DriverPostgres, DSN: "::not a dsn::"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestNewRequiresIdentity(t *testing.T) {
	_, err := New(context.Background(), testConfig(), nil, nil)
	require.Error(t, err)
}

func TestNewBuildsAgentClient(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "tc.db")

	id, err := identity.Generate()
	require.NoError(t, err)

	gw, err := New(context.Background(), cfg, id, nil)
	require.NoError(t, err)
	defer func() { _ = gw.Shutdown(context.Background()) }()

	require.NotNil(t, gw.agent)
	assert.False(t, gw.gateway.IsConnected())
	assert.Equal(t, "https://tc.example/api/webhooks/openclaw", gw.monitor.WebhookURL())
}

func TestVerifierOnlyWithSecret(t *testing.T) {
	f := newFixture(t, nil)
	assert.Nil(t, f.gw.verifier)

	cfg := testConfig()
	cfg.Auth.JWTSecret = "s3cret"
	f = newFixture(t, cfg)
	assert.NotNil(t, f.gw.verifier)
}

func TestRunServesUntilCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	f := newFixture(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.gw.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunListenError(t *testing.T) {
	cfg := testConfig()
	cfg.Server.HTTPAddr = "127.0.0.1:-1"
	f := newFixture(t, cfg)

	err := f.gw.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening")
}

type failingCloseStore struct {
	*store.MockStore
}

func (failingCloseStore) Close() error { return errors.New("disk gone") }

func TestShutdownJoinsErrors(t *testing.T) {
	gw := newGateway(testConfig(), failingCloseStore{store.NewMockStore()}, newFakeCaller(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := gw.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store close")
	assert.Contains(t, err.Error(), "disk gone")
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok", "gatewayConnected": true}, decode(t, rec))

	f.caller.setConnected(false)
	rec = f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, false, decode(t, rec)["gatewayConnected"])
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	f := newFixture(t, cfg)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trendclaw_gateway_connected")
}

func TestMetricsDisabled(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
