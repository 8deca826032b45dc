// ABOUTME: Gateway wires the store, agent gateway client, monitoring and webhook services
// ABOUTME: Owns the HTTP server and the lifecycle of every long-lived component

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/trendclaw/internal/agent"
	"github.com/2389/trendclaw/internal/auth"
	"github.com/2389/trendclaw/internal/config"
	"github.com/2389/trendclaw/internal/dedupe"
	"github.com/2389/trendclaw/internal/identity"
	"github.com/2389/trendclaw/internal/metrics"
	"github.com/2389/trendclaw/internal/monitor"
	"github.com/2389/trendclaw/internal/store"
	"github.com/2389/trendclaw/internal/webhook"
)

// Gateway orchestrates the trendclaw server components.
type Gateway struct {
	config     *config.Config
	store      store.Store
	agent      *agent.Client // nil in handler tests
	gateway    monitor.Caller
	monitor    *monitor.Service
	ingest     *webhook.Service
	dedupe     *dedupe.Cache
	verifier   auth.TokenVerifier
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the store selected by database.driver.
func initStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := store.NewPostgresStore(ctx, store.PostgresConfig{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("initializing postgres store: %w", err)
		}
		return s, nil
	default:
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
		return s, nil
	}
}

// New creates a Gateway from configuration and the device identity used for
// the agent gateway handshake. Nothing is dialed or served until Run.
func New(ctx context.Context, cfg *config.Config, id *identity.Identity, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if id == nil {
		return nil, errors.New("device identity is required")
	}

	s, err := initStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	client := agent.New(agent.Config{
		URL:              cfg.Gateway.URL,
		Token:            cfg.Gateway.Token,
		Identity:         id,
		HandshakeTimeout: cfg.Gateway.HandshakeTimeout,
		RequestTimeout:   cfg.Gateway.RequestTimeout,
		ReconnectDelay:   cfg.Gateway.ReconnectDelay,
	}, logger)

	gw := newGateway(cfg, s, client, logger)
	gw.agent = client
	return gw, nil
}

// newGateway assembles the services around an existing store and gateway caller.
func newGateway(cfg *config.Config, s store.Store, caller monitor.Caller, logger *slog.Logger) *Gateway {
	gw := &Gateway{
		config:  cfg,
		store:   s,
		gateway: caller,
		dedupe:  dedupe.New(cfg.Webhook.DedupeWindow, dedupe.DefaultMaxSize),
		logger:  logger.With("component", "gateway"),
	}
	if cfg.Auth.JWTSecret != "" {
		gw.verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	}

	gw.monitor = monitor.New(monitor.Config{
		PublicURL: cfg.Server.PublicURL,
		Interval:  cfg.Monitoring.Interval,
	}, caller, s, logger)
	gw.ingest = webhook.NewService(s, gw.dedupe, logger)

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return gw
}

// Handler returns the HTTP handler serving every route.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run connects to the agent gateway, serves HTTP, and blocks until ctx is
// canceled or the server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	if g.agent != nil {
		eg.Go(func() error {
			g.agent.Start(egCtx)
			return nil
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		g.logger.Info("context canceled, initiating shutdown")
		return g.gracefulShutdown()
	})

	return eg.Wait()
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server, drops the gateway connection, and closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.agent != nil {
		g.agent.Disconnect()
	}
	g.dedupe.Close()
	errs = appendCloseError(errs, "store close", g.store.Close())

	return errors.Join(errs...)
}
