// ABOUTME: Tenant HTTP API for clients, niches, signals, and monitoring jobs
// ABOUTME: chi routes behind JWT auth, plus health probes and the gateway webhook

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"

	"github.com/2389/trendclaw/internal/auth"
	"github.com/2389/trendclaw/internal/metrics"
	"github.com/2389/trendclaw/internal/monitor"
	"github.com/2389/trendclaw/internal/signals"
	"github.com/2389/trendclaw/internal/store"
	"github.com/2389/trendclaw/internal/webhook"
)

// recentSignals is how many signals a single client lookup includes.
const recentSignals = 20

// dashboardSignals is how many signals the dashboard summary includes.
const dashboardSignals = 10

// errNoJobID means cron.add succeeded without reporting a job id.
var errNoJobID = errors.New("gateway returned no job id")

// routes builds the chi router.
func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(g.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth)
	r.Get("/health/ready", g.handleReady)
	if g.config.Metrics.Enabled {
		r.Handle(g.config.Metrics.Path, metrics.Handler())
	}

	hook := webhook.NewHandler(g.ingest, webhook.HandlerConfig{
		Token:                g.config.Webhook.Token,
		AllowUnauthenticated: g.config.Webhook.AllowUnauthenticated,
	}, g.logger)
	r.Method(http.MethodPost, monitor.WebhookPath, hook)

	r.Get("/api/health", g.handleAPIHealth)

	r.Route("/api", func(r chi.Router) {
		if g.verifier != nil {
			r.Use(auth.HTTPAuthMiddleware(g.verifier))
		} else {
			r.Use(auth.DevMiddleware(g.logger))
		}

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", g.handleListClients)
			r.Post("/", g.handleCreateClient)
			r.Get("/{id}", g.handleGetClient)
			r.Patch("/{id}", g.handleUpdateClient)
			r.Delete("/{id}", g.handleDeleteClient)
			r.Post("/{id}/rescan", g.handleRescanClient)
		})

		r.Route("/niches", func(r chi.Router) {
			r.Get("/", g.handleListNiches)
			r.Post("/", g.handleCreateNiche)
			r.Get("/{id}", g.handleGetNiche)
			r.Patch("/{id}", g.handleUpdateNiche)
			r.Delete("/{id}", g.handleDeleteNiche)
			r.Post("/{id}/rescan", g.handleRescanNiche)
		})

		r.Get("/signals", g.handleListSignals)
		r.Get("/dashboard/stats", g.handleDashboardStats)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", g.handleListJobs)
			r.Get("/remote", g.handleListRemoteJobs)
			r.Get("/status", g.handleJobStatus)
			r.Get("/{remoteId}/runs", g.handleJobRuns)
			r.Post("/{remoteId}/run", g.handleForceRun)
		})
	})

	return r
}

// requestLogger logs one line per request at debug level, errors at warn.
func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		g.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the agent gateway connection is authenticated.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if !g.gateway.IsConnected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("gateway not connected"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (g *Gateway) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"gatewayConnected": g.gateway.IsConnected(),
	})
}

// writeJSON writes body as a JSON response.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// writeRaw writes a gateway result through unchanged.
func (g *Gateway) writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.writeJSON(w, status, map[string]string{"error": message})
}

// sendStoreError maps storage and gateway errors to status codes.
func (g *Gateway) sendStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, notFound)
	case errors.Is(err, monitor.ErrUnavailable):
		g.sendJSONError(w, http.StatusServiceUnavailable, "gateway not connected")
	default:
		g.logger.Error("request failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes a bounded JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// --- clients ---

type clientJSON struct {
	ID                string       `json:"id"`
	TenantID          string       `json:"tenantId"`
	Name              string       `json:"name"`
	Domain            string       `json:"domain,omitempty"`
	Description       string       `json:"description,omitempty"`
	Industry          string       `json:"industry,omitempty"`
	LinkedInURL       string       `json:"linkedinUrl,omitempty"`
	TwitterURL        string       `json:"twitterUrl,omitempty"`
	FacebookURL       string       `json:"facebookUrl,omitempty"`
	InstagramURL      string       `json:"instagramUrl,omitempty"`
	CustomURLs        []string     `json:"customUrls"`
	Keywords          []string     `json:"keywords"`
	MonitorCategories []string     `json:"monitorCategories"`
	IsActive          bool         `json:"isActive"`
	RemoteJobID       string       `json:"remoteJobId,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	Signals           []signalJSON `json:"signals,omitempty"`
}

func toClientJSON(c *store.Client) clientJSON {
	return clientJSON{
		ID:                c.ID,
		TenantID:          c.TenantID,
		Name:              c.Name,
		Domain:            c.Domain,
		Description:       c.Description,
		Industry:          c.Industry,
		LinkedInURL:       c.LinkedInURL,
		TwitterURL:        c.TwitterURL,
		FacebookURL:       c.FacebookURL,
		InstagramURL:      c.InstagramURL,
		CustomURLs:        nonNil(c.CustomURLs),
		Keywords:          nonNil(c.Keywords),
		MonitorCategories: nonNil(c.MonitorCategories),
		IsActive:          c.IsActive,
		RemoteJobID:       c.RemoteJobID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// clientInput is a create or patch body. Nil fields are left unchanged on patch.
type clientInput struct {
	Name              *string   `json:"name"`
	Domain            *string   `json:"domain"`
	Description       *string   `json:"description"`
	Industry          *string   `json:"industry"`
	LinkedInURL       *string   `json:"linkedinUrl"`
	TwitterURL        *string   `json:"twitterUrl"`
	FacebookURL       *string   `json:"facebookUrl"`
	InstagramURL      *string   `json:"instagramUrl"`
	CustomURLs        *[]string `json:"customUrls"`
	Keywords          *[]string `json:"keywords"`
	MonitorCategories *[]string `json:"monitorCategories"`
	IsActive          *bool     `json:"isActive"`
}

func (in *clientInput) apply(c *store.Client) error {
	setString(&c.Name, in.Name)
	setString(&c.Domain, in.Domain)
	setString(&c.Description, in.Description)
	setString(&c.Industry, in.Industry)
	setString(&c.LinkedInURL, in.LinkedInURL)
	setString(&c.TwitterURL, in.TwitterURL)
	setString(&c.FacebookURL, in.FacebookURL)
	setString(&c.InstagramURL, in.InstagramURL)
	setList(&c.CustomURLs, in.CustomURLs)
	setList(&c.Keywords, in.Keywords)
	if in.MonitorCategories != nil {
		for _, key := range *in.MonitorCategories {
			if cat, ok := signals.Lookup(key); !ok || cat.Key == signals.TrendingTopic {
				return fmt.Errorf("unknown monitor category %q", key)
			}
		}
		setList(&c.MonitorCategories, in.MonitorCategories)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (g *Gateway) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := g.store.ListClients(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	out := make([]clientJSON, 0, len(clients))
	for _, c := range clients {
		out = append(out, toClientJSON(c))
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"clients": out})
}

func (g *Gateway) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)

	var in clientInput
	if err := decodeBody(w, r, &in); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := &store.Client{TenantID: tenantID, IsActive: true}
	if err := in.apply(c); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if limit := g.config.Monitoring.MaxClientsPerTenant; limit > 0 {
		n, err := g.store.CountClients(ctx, tenantID)
		if err != nil {
			g.sendStoreError(w, err, "")
			return
		}
		if n >= limit {
			g.sendJSONError(w, http.StatusForbidden, fmt.Sprintf("Client limit reached (%d)", limit))
			return
		}
	}

	if err := g.store.CreateClient(ctx, c); err != nil {
		g.sendStoreError(w, err, "")
		return
	}

	// The client exists either way; provisioning can be retried with a rescan.
	if _, err := g.monitor.ProvisionClient(ctx, tenantID, c); err != nil {
		g.logger.Error("failed to provision client monitoring", "client_id", c.ID, "error", err)
	}

	g.writeJSON(w, http.StatusCreated, map[string]any{"client": toClientJSON(c)})
}

func (g *Gateway) handleGetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)

	c, err := g.store.GetClient(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		g.sendStoreError(w, err, "Client not found")
		return
	}

	recent, _, err := g.store.ListSignals(ctx, store.SignalFilter{TenantID: tenantID, ClientID: c.ID, Limit: recentSignals})
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}

	out := toClientJSON(c)
	out.Signals = toSignalsJSON(recent)
	g.writeJSON(w, http.StatusOK, map[string]any{"client": out})
}

func (g *Gateway) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := g.store.GetClient(ctx, auth.TenantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		g.sendStoreError(w, err, "Client not found")
		return
	}

	var in clientInput
	if err := decodeBody(w, r, &in); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.apply(c); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := g.store.UpdateClient(ctx, c); err != nil {
		g.sendStoreError(w, err, "Client not found")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"client": toClientJSON(c)})
}

func (g *Gateway) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)

	c, err := g.store.GetClient(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		g.sendStoreError(w, err, "Client not found")
		return
	}

	if c.RemoteJobID != "" {
		if err := g.monitor.Deprovision(ctx, c.RemoteJobID); err != nil {
			g.logger.Error("failed to deprovision client monitoring", "client_id", c.ID, "error", err)
		}
	}

	if err := g.store.DeleteClient(ctx, tenantID, c.ID); err != nil {
		g.sendStoreError(w, err, "Client not found")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleRescanClient force-runs a provisioned client, or provisions it.
func (g *Gateway) handleRescanClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)

	c, err := g.store.GetClient(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		g.sendStoreError(w, err, "Client not found")
		return
	}

	remoteID := c.RemoteJobID
	if remoteID != "" {
		err = g.monitor.ForceRun(ctx, remoteID)
	} else {
		remoteID, err = g.monitor.ProvisionClient(ctx, tenantID, c)
		if err == nil && remoteID == "" {
			err = g.unprovisioned()
		}
	}
	if err != nil {
		g.sendRescanError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "remoteJobId": remoteID})
}

// unprovisioned explains an empty job id from a provisioning call.
func (g *Gateway) unprovisioned() error {
	if !g.gateway.IsConnected() {
		return monitor.ErrUnavailable
	}
	return errNoJobID
}

func (g *Gateway) sendRescanError(w http.ResponseWriter, err error) {
	if errors.Is(err, monitor.ErrUnavailable) {
		g.sendJSONError(w, http.StatusServiceUnavailable, "gateway not connected")
		return
	}
	if errors.Is(err, errNoJobID) {
		g.logger.Warn("rescan provisioned no job", "error", err)
		g.sendJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	g.logger.Error("rescan failed", "error", err)
	g.sendJSONError(w, http.StatusBadGateway, err.Error())
}

// --- niches ---

type nicheJSON struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Keywords    []string  `json:"keywords"`
	Sources     []string  `json:"sources"`
	RemoteJobID string    `json:"remoteJobId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toNicheJSON(n *store.Niche) nicheJSON {
	return nicheJSON{
		ID:          n.ID,
		TenantID:    n.TenantID,
		Name:        n.Name,
		Keywords:    nonNil(n.Keywords),
		Sources:     nonNil(n.Sources),
		RemoteJobID: n.RemoteJobID,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

type nicheInput struct {
	Name     *string   `json:"name"`
	Keywords *[]string `json:"keywords"`
	Sources  *[]string `json:"sources"`
}

func (in *nicheInput) apply(n *store.Niche) error {
	setString(&n.Name, in.Name)
	setList(&n.Keywords, in.Keywords)
	setList(&n.Sources, in.Sources)
	if strings.TrimSpace(n.Name) == "" || len(n.Keywords) == 0 {
		return errors.New("name and keywords are required")
	}
	return nil
}

func (g *Gateway) handleListNiches(w http.ResponseWriter, r *http.Request) {
	niches, err := g.store.ListNiches(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	out := make([]nicheJSON, 0, len(niches))
	for _, n := range niches {
		out = append(out, toNicheJSON(n))
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"niches": out})
}

func (g *Gateway) handleCreateNiche(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)

	var in nicheInput
	if err := decodeBody(w, r, &in); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := &store.Niche{TenantID: tenantID}
	if err := in.apply(n); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := g.store.CreateNiche(ctx, n); err != nil {
		g.sendStoreError(w, err, "")
		return
	}

	if _, err := g.monitor.ProvisionNiche(ctx, tenantID, n); err != nil {
		g.logger.Error("failed to provision niche monitoring", "niche_id", n.ID, "error", err)
	}

	g.writeJSON(w, http.StatusCreated, map[string]any{"niche": toNicheJSON(n)})
}

func (g *Gateway) handleGetNiche(w http.ResponseWriter, r *http.Request) {
	n, err := g.store.GetNiche(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		g.sendStoreError(w, err, "Niche not found")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"niche": toNicheJSON(n)})
}

func (g *Gateway) handleUpdateNiche(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := g.store.GetNiche(ctx, auth.TenantID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		g.sendStoreError(w, err, "Niche not found")
		return
	}

	var in nicheInput
	if err := decodeBody(w, r, &in); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.apply(n); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := g.store.UpdateNiche(ctx, n); err != nil {
		g.sendStoreError(w, err, "Niche not found")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"niche": toNicheJSON(n)})
}

func (g *Gateway) handleDeleteNiche(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)

	n, err := g.store.GetNiche(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		g.sendStoreError(w, err, "Niche not found")
		return
	}

	if n.RemoteJobID != "" {
		if err := g.monitor.Deprovision(ctx, n.RemoteJobID); err != nil {
			g.logger.Error("failed to deprovision niche monitoring", "niche_id", n.ID, "error", err)
		}
	}

	if err := g.store.DeleteNiche(ctx, tenantID, n.ID); err != nil {
		g.sendStoreError(w, err, "Niche not found")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (g *Gateway) handleRescanNiche(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)

	n, err := g.store.GetNiche(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		g.sendStoreError(w, err, "Niche not found")
		return
	}

	remoteID := n.RemoteJobID
	if remoteID != "" {
		err = g.monitor.ForceRun(ctx, remoteID)
	} else {
		remoteID, err = g.monitor.ProvisionNiche(ctx, tenantID, n)
		if err == nil && remoteID == "" {
			err = g.unprovisioned()
		}
	}
	if err != nil {
		g.sendRescanError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "remoteJobId": remoteID})
}

// --- signals ---

type signalJSON struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenantId"`
	ClientID   string          `json:"clientId,omitempty"`
	NicheID    string          `json:"nicheId,omitempty"`
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Summary    string          `json:"summary"`
	SourceURL  string          `json:"sourceUrl,omitempty"`
	SourceName string          `json:"sourceName,omitempty"`
	Confidence float64         `json:"confidence"`
	RawData    json.RawMessage `json:"rawData,omitempty"`
	DetectedAt time.Time       `json:"detectedAt"`
}

func toSignalsJSON(in []*store.Signal) []signalJSON {
	out := make([]signalJSON, 0, len(in))
	for _, s := range in {
		out = append(out, signalJSON{
			ID:         s.ID,
			TenantID:   s.TenantID,
			ClientID:   s.ClientID,
			NicheID:    s.NicheID,
			Type:       s.Type,
			Title:      s.Title,
			Summary:    s.Summary,
			SourceURL:  s.SourceURL,
			SourceName: s.SourceName,
			Confidence: s.Confidence,
			RawData:    s.RawData,
			DetectedAt: s.DetectedAt,
		})
	}
	return out
}

// parseSignalFilter reads the list query. Limits above the page cap are clamped.
func parseSignalFilter(r *http.Request) (store.SignalFilter, error) {
	q := r.URL.Query()
	f := store.SignalFilter{
		TenantID: auth.TenantID(r.Context()),
		ClientID: q.Get("clientId"),
		NicheID:  q.Get("nicheId"),
		Type:     q.Get("type"),
	}

	var err error
	if f.From, err = parseTime(q.Get("from")); err != nil {
		return f, fmt.Errorf("invalid from: %w", err)
	}
	if f.To, err = parseTime(q.Get("to")); err != nil {
		return f, fmt.Errorf("invalid to: %w", err)
	}
	if f.Limit, err = parseNonNegative(q.Get("limit")); err != nil {
		return f, fmt.Errorf("invalid limit: %w", err)
	}
	if f.Offset, err = parseNonNegative(q.Get("offset")); err != nil {
		return f, fmt.Errorf("invalid offset: %w", err)
	}
	return f, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func parseNonNegative(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

func (g *Gateway) handleListSignals(w http.ResponseWriter, r *http.Request) {
	f, err := parseSignalFilter(r)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, total, err := g.store.ListSignals(r.Context(), f)
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"signals": toSignalsJSON(page), "total": total})
}

// --- dashboard ---

func (g *Gateway) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)

	clients, err := g.store.ListClients(ctx, tenantID)
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	active := 0
	for _, c := range clients {
		if c.IsActive {
			active++
		}
	}

	recent, total, err := g.store.ListSignals(ctx, store.SignalFilter{TenantID: tenantID, Limit: dashboardSignals})
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	_, today, err := g.store.ListSignals(ctx, store.SignalFilter{TenantID: tenantID, From: midnight, Limit: 1})
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"clientCount":       len(clients),
		"activeClientCount": active,
		"signalCountToday":  today,
		"signalCountTotal":  total,
		"recentSignals":     toSignalsJSON(recent),
	})
}

// --- jobs ---

type jobJSON struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	RemoteJobID string     `json:"remoteJobId"`
	JobType     string     `json:"jobType"`
	TargetID    string     `json:"targetId"`
	Schedule    string     `json:"schedule"`
	LastRunAt   *time.Time `json:"lastRunAt"`
	LastStatus  string     `json:"lastStatus,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (g *Gateway) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := g.monitor.ListJobs(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	out := make([]jobJSON, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobJSON{
			ID:          j.ID,
			TenantID:    j.TenantID,
			RemoteJobID: j.RemoteJobID,
			JobType:     string(j.JobType),
			TargetID:    j.TargetID,
			Schedule:    j.Schedule,
			LastRunAt:   j.LastRunAt,
			LastStatus:  j.LastStatus,
			CreatedAt:   j.CreatedAt,
		})
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

// handleListRemoteJobs returns the gateway's jobs belonging to the caller's tenant.
func (g *Gateway) handleListRemoteJobs(w http.ResponseWriter, r *http.Request) {
	raw, err := g.monitor.ListRemoteJobs(r.Context())
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"jobs": tenantJobs(raw, auth.TenantID(r.Context()))})
}

// tenantJobs keeps the cron.list entries whose name carries the tenant
// prefix. The list may be bare or under "jobs".
func tenantJobs(raw json.RawMessage, tenantID string) []json.RawMessage {
	list := gjson.ParseBytes(raw)
	if !list.IsArray() {
		list = list.Get("jobs")
	}
	prefix := "tc:" + tenantID + ":"
	out := []json.RawMessage{}
	list.ForEach(func(_, job gjson.Result) bool {
		if strings.HasPrefix(job.Get("name").String(), prefix) {
			out = append(out, json.RawMessage(job.Raw))
		}
		return true
	})
	return out
}

func (g *Gateway) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := g.monitor.JobStatus(r.Context())
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	g.writeRaw(w, raw)
}

// tenantJob resolves a remote id to a job owned by the caller's tenant.
func (g *Gateway) tenantJob(r *http.Request) (*store.MonitoringJob, error) {
	job, err := g.store.GetJobByRemoteID(r.Context(), chi.URLParam(r, "remoteId"))
	if err != nil {
		return nil, err
	}
	if job.TenantID != auth.TenantID(r.Context()) {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func (g *Gateway) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	job, err := g.tenantJob(r)
	if err != nil {
		g.sendStoreError(w, err, "Job not found")
		return
	}
	raw, err := g.monitor.JobRuns(r.Context(), job.RemoteJobID)
	if err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	g.writeRaw(w, raw)
}

func (g *Gateway) handleForceRun(w http.ResponseWriter, r *http.Request) {
	job, err := g.tenantJob(r)
	if err != nil {
		g.sendStoreError(w, err, "Job not found")
		return
	}
	if err := g.monitor.ForceRun(r.Context(), job.RemoteJobID); err != nil {
		g.sendStoreError(w, err, "")
		return
	}
	g.writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "remoteJobId": job.RemoteJobID})
}

// --- helpers ---

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setList(dst *[]string, v *[]string) {
	if v == nil {
		return
	}
	out := make([]string, 0, len(*v))
	for _, s := range *v {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
