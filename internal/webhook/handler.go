// ABOUTME: HTTP handler for gateway completion callbacks
// ABOUTME: Applies the pre-shared token policy and maps ingestion results to JSON responses

package webhook

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/2389/trendclaw/internal/auth"
	"github.com/2389/trendclaw/internal/metrics"
)

// maxBodyBytes bounds a callback body. Agent summaries are a few KB.
const maxBodyBytes = 4 << 20

// HandlerConfig is the token policy.
type HandlerConfig struct {
	// Token is the expected bearer token. Empty disables the check.
	Token string
	// AllowUnauthenticated processes callbacks whose token does not match,
	// logging each one at error level.
	AllowUnauthenticated bool
}

// response is the callback response body.
type response struct {
	OK      bool   `json:"ok"`
	Signals *int   `json:"signals,omitempty"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

func count(n int) *int { return &n }

// Handler serves POST callbacks.
type Handler struct {
	svc    *Service
	cfg    HandlerConfig
	logger *slog.Logger
}

// NewHandler creates the callback handler. An empty token is warned about once here.
func NewHandler(svc *Service, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webhook")
	switch {
	case cfg.Token == "":
		logger.Warn("webhook token not configured, callbacks are not authenticated")
	case cfg.AllowUnauthenticated:
		logger.Warn("webhook accepts callbacks with a mismatched token")
	}
	return &Handler{svc: svc, cfg: cfg, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Token != "" && !auth.BearerMatches(r.Header.Get("Authorization"), h.cfg.Token) {
		if !h.cfg.AllowUnauthenticated {
			h.logger.Warn("rejected callback with invalid token", "remote_addr", r.RemoteAddr)
			metrics.ObserveWebhook(metrics.OutcomeDenied)
			writeJSON(w, http.StatusUnauthorized, response{Error: "unauthorized"})
			return
		}
		h.logger.Error("callback token mismatch, processing anyway", "remote_addr", r.RemoteAddr)
	}

	var cb Callback
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cb); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "invalid JSON body"})
		return
	}

	res, err := h.svc.Ingest(r.Context(), cb)
	switch {
	case errors.Is(err, ErrUnknownJob):
		writeJSON(w, http.StatusNotFound, response{Error: "unknown job"})
	case err != nil:
		h.logger.Error("callback ingestion failed", "job_id", cb.JobID, "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Error: "failed to store signals"})
	case res.Duplicate:
		writeJSON(w, http.StatusOK, response{OK: true, Signals: count(0), Skipped: true})
	case res.Skipped:
		writeJSON(w, http.StatusOK, response{OK: true, Skipped: true})
	case res.ParseFailed:
		writeJSON(w, http.StatusOK, response{OK: true, Signals: count(0), Error: "failed to parse summary"})
	default:
		writeJSON(w, http.StatusOK, response{OK: true, Signals: count(res.Stored)})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
