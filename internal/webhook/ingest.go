// ABOUTME: Webhook ingestion turns a gateway job completion into stored signals
// ABOUTME: Resolves the job owner, records the run, extracts entries, and bulk inserts them

package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/trendclaw/internal/dedupe"
	"github.com/2389/trendclaw/internal/metrics"
	"github.com/2389/trendclaw/internal/signals"
	"github.com/2389/trendclaw/internal/store"
)

// ActionFinished is the only callback action that is processed.
const ActionFinished = "finished"

// StatusOK is the job status that carries a usable summary.
const StatusOK = "ok"

// ErrUnknownJob is returned when a callback names a job this instance never provisioned.
var ErrUnknownJob = errors.New("unknown job")

// Callback is the gateway's completion payload.
type Callback struct {
	Action  string `json:"action"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

// Result describes what one callback did.
type Result struct {
	// Skipped is set for non-finished actions and redeliveries.
	Skipped bool
	// Duplicate is set when the delivery was already stored.
	Duplicate bool
	// ParseFailed is set when the summary was not JSON.
	ParseFailed bool
	Stored      int
}

// Store defines what ingestion needs from storage
type Store interface {
	GetJobByRemoteID(ctx context.Context, remoteJobID string) (*store.MonitoringJob, error)
	RecordJobRun(ctx context.Context, remoteJobID string, at time.Time, status string) error
	CreateSignals(ctx context.Context, signals []*store.Signal) (int, error)
}

// Service ingests job completions.
type Service struct {
	store  Store
	seen   *dedupe.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an ingestion service. A nil cache disables redelivery suppression.
func NewService(s Store, seen *dedupe.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		seen:   seen,
		logger: logger.With("component", "webhook"),
		now:    time.Now,
	}
}

// Ingest processes one callback. Parse failures are reported in Result, not
// as errors; a returned error is either ErrUnknownJob or a storage failure.
func (s *Service) Ingest(ctx context.Context, cb Callback) (Result, error) {
	if cb.Action != ActionFinished {
		s.logger.Debug("ignoring callback", "action", cb.Action, "job_id", cb.JobID)
		metrics.ObserveWebhook(metrics.OutcomeSkipped)
		return Result{Skipped: true}, nil
	}

	job, err := s.store.GetJobByRemoteID(ctx, cb.JobID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("callback for unknown job", "job_id", cb.JobID)
		metrics.ObserveWebhook(metrics.OutcomeUnknown)
		return Result{}, ErrUnknownJob
	}
	if err != nil {
		metrics.ObserveWebhook(metrics.OutcomeError)
		return Result{}, fmt.Errorf("looking up job: %w", err)
	}

	if err := s.store.RecordJobRun(ctx, cb.JobID, s.now(), cb.Status); err != nil {
		metrics.ObserveWebhook(metrics.OutcomeError)
		return Result{}, fmt.Errorf("recording job run: %w", err)
	}

	if cb.Status != StatusOK || cb.Summary == "" {
		s.logger.Info("job finished without signals", "job_id", cb.JobID, "status", cb.Status)
		metrics.ObserveWebhook(metrics.OutcomeOK)
		return Result{}, nil
	}

	key := dedupe.DeliveryKey(cb.JobID, cb.Status, cb.Summary)
	if !s.reserve(key) {
		s.logger.Info("duplicate delivery acknowledged", "job_id", cb.JobID)
		metrics.ObserveWebhook(metrics.OutcomeSkipped)
		return Result{Skipped: true, Duplicate: true}, nil
	}

	extracted := signals.Extract(cb.Summary)
	switch extracted.Kind {
	case signals.NotJSON:
		s.logger.Error("failed to parse summary", "job_id", cb.JobID, "summary", truncate(cb.Summary, 500))
		s.forget(key)
		metrics.ObserveWebhook(metrics.OutcomeParse)
		return Result{ParseFailed: true}, nil
	case signals.Empty:
		s.logger.Info("job reported no signals", "job_id", cb.JobID)
		s.remember(key)
		metrics.ObserveWebhook(metrics.OutcomeOK)
		return Result{}, nil
	}

	batch := make([]*store.Signal, 0, len(extracted.Entries))
	detected := s.now()
	for _, e := range extracted.Entries {
		batch = append(batch, signalFor(job, e, detected))
	}

	n, err := s.store.CreateSignals(ctx, batch)
	if err != nil {
		s.forget(key)
		metrics.ObserveWebhook(metrics.OutcomeError)
		return Result{}, fmt.Errorf("storing signals: %w", err)
	}
	s.remember(key)

	counts := make(map[string]int)
	for _, sig := range batch {
		counts[sig.Type]++
	}
	for t, c := range counts {
		metrics.AddSignals(t, c)
	}
	metrics.ObserveWebhook(metrics.OutcomeOK)

	s.logger.Info("stored signals",
		"job_id", cb.JobID,
		"tenant_id", job.TenantID,
		"target", job.TargetID,
		"count", n,
	)
	return Result{Stored: n}, nil
}

// reserve claims key for this delivery. A delivery already stored, or one
// still being processed by a concurrent request, is not claimable.
func (s *Service) reserve(key string) bool {
	if s.seen == nil {
		return true
	}
	return s.seen.Reserve(key)
}

func (s *Service) forget(key string) {
	if s.seen != nil {
		s.seen.Forget(key)
	}
}

func (s *Service) remember(key string) {
	if s.seen != nil {
		s.seen.Remember(key)
	}
}

// signalFor builds a signal owned by the job's target.
func signalFor(job *store.MonitoringJob, e signals.Entry, detected time.Time) *store.Signal {
	sig := &store.Signal{
		TenantID:   job.TenantID,
		Type:       e.Type,
		Title:      e.Title,
		Summary:    e.Summary,
		SourceURL:  e.SourceURL,
		SourceName: e.SourceName,
		Confidence: e.Confidence,
		RawData:    e.Raw,
		DetectedAt: detected,
	}
	if job.JobType == store.JobTypeNiche {
		sig.NicheID = job.TargetID
	} else {
		sig.ClientID = job.TargetID
	}
	return sig
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
