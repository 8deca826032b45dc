// ABOUTME: Service turns clients and niches into recurring gateway jobs and tracks them locally
// ABOUTME: Handles provisioning, manual re-runs, teardown, and the diagnostic cron.* pass-throughs

package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/2389/trendclaw/internal/agent"
	"github.com/2389/trendclaw/internal/prompts"
	"github.com/2389/trendclaw/internal/store"
)

// WebhookPath is where the gateway delivers job completions.
const WebhookPath = "/api/webhooks/openclaw"

// DefaultInterval is the scan period for every provisioned job.
const DefaultInterval = 12 * time.Hour

// runsLimit caps cron.runs history lookups.
const runsLimit = 10

// ErrUnavailable is returned when an operation needs the gateway and it is not connected.
var ErrUnavailable = errors.New("gateway not connected")

// Caller is the part of the gateway transport the service needs.
type Caller interface {
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
	IsConnected() bool
}

// JobStore defines what the service needs from storage
type JobStore interface {
	CreateJob(ctx context.Context, job *store.MonitoringJob) error
	ListJobs(ctx context.Context, tenantID string) ([]*store.MonitoringJob, error)
	DeleteJobByRemoteID(ctx context.Context, remoteJobID string) error
	UpdateClient(ctx context.Context, client *store.Client) error
	UpdateNiche(ctx context.Context, niche *store.Niche) error
}

// Config controls job definitions.
type Config struct {
	// PublicURL is this service's externally reachable base URL.
	PublicURL string
	// Interval between scheduled runs. Zero means DefaultInterval.
	Interval time.Duration
}

// Service provisions and manages monitoring jobs.
type Service struct {
	gateway  Caller
	store    JobStore
	logger   *slog.Logger
	webhook  string
	interval time.Duration
}

// New creates a monitoring service.
func New(cfg Config, gateway Caller, s JobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		gateway:  gateway,
		store:    s,
		logger:   logger.With("component", "monitor"),
		webhook:  strings.TrimRight(cfg.PublicURL, "/") + WebhookPath,
		interval: interval,
	}
}

// WebhookURL returns the delivery target handed to the gateway.
func (s *Service) WebhookURL() string {
	return s.webhook
}

// cronSchedule is the cron.add schedule block.
type cronSchedule struct {
	Kind    string `json:"kind"`
	EveryMs int64  `json:"everyMs"`
}

type cronPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type cronDelivery struct {
	Mode string `json:"mode"`
	To   string `json:"to"`
}

// cronJob is the cron.add parameter block.
type cronJob struct {
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Enabled       bool         `json:"enabled"`
	Schedule      cronSchedule `json:"schedule"`
	SessionTarget string       `json:"sessionTarget"`
	WakeMode      string       `json:"wakeMode"`
	Payload       cronPayload  `json:"payload"`
	Delivery      cronDelivery `json:"delivery"`
}

// JobName returns the deterministic remote job name for an entity.
func JobName(tenantID, entityID string, jobType store.JobType) string {
	return fmt.Sprintf("tc:%s:%s:%s", tenantID, entityID, jobType)
}

// ProvisionClient creates the recurring scan for a client and records it.
// It returns "" without error when the gateway is not connected or did not
// report a job id; the client stays unprovisioned and can be retried.
func (s *Service) ProvisionClient(ctx context.Context, tenantID string, c *store.Client) (string, error) {
	remoteID, err := s.provision(ctx, tenantID, c.ID, store.JobTypeClient,
		fmt.Sprintf("Monitor %s for buying signals", c.Name),
		prompts.BuildClientPrompt(c))
	if err != nil || remoteID == "" {
		return "", err
	}

	c.RemoteJobID = remoteID
	if err := s.store.UpdateClient(ctx, c); err != nil {
		return remoteID, fmt.Errorf("recording job on client: %w", err)
	}
	return remoteID, nil
}

// ProvisionNiche creates the recurring scan for a niche and records it.
func (s *Service) ProvisionNiche(ctx context.Context, tenantID string, n *store.Niche) (string, error) {
	remoteID, err := s.provision(ctx, tenantID, n.ID, store.JobTypeNiche,
		fmt.Sprintf("Track trending content for %s", n.Name),
		prompts.BuildNichePrompt(n))
	if err != nil || remoteID == "" {
		return "", err
	}

	n.RemoteJobID = remoteID
	if err := s.store.UpdateNiche(ctx, n); err != nil {
		return remoteID, fmt.Errorf("recording job on niche: %w", err)
	}
	return remoteID, nil
}

func (s *Service) provision(ctx context.Context, tenantID, targetID string, jobType store.JobType, description, prompt string) (string, error) {
	name := JobName(tenantID, targetID, jobType)
	if !s.gateway.IsConnected() {
		s.logger.Warn("gateway not connected, skipping provisioning", "job", name)
		return "", nil
	}

	s.logger.Info("provisioning monitoring job",
		"job", name,
		"prompt_length", len(prompt),
		"webhook", s.webhook,
	)

	result, err := s.gateway.Request(ctx, "cron.add", cronJob{
		Name:          name,
		Description:   description,
		Enabled:       true,
		Schedule:      cronSchedule{Kind: "every", EveryMs: s.interval.Milliseconds()},
		SessionTarget: "isolated",
		WakeMode:      "now",
		Payload:       cronPayload{Kind: "agentTurn", Message: prompt},
		Delivery:      cronDelivery{Mode: "webhook", To: s.webhook},
	})
	if err != nil {
		return "", fmt.Errorf("cron.add: %w", s.unavailable(err))
	}

	remoteID := remoteJobID(result)
	if remoteID == "" {
		s.logger.Error("cron.add response has no job id", "job", name, "response", string(result))
		return "", nil
	}

	job := &store.MonitoringJob{
		TenantID:    tenantID,
		RemoteJobID: remoteID,
		JobType:     jobType,
		TargetID:    targetID,
		Schedule:    scheduleLabel(s.interval),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("saving monitoring job: %w", err)
	}

	s.logger.Info("monitoring job provisioned", "job", name, "remote_job_id", remoteID)
	return remoteID, nil
}

// ForceRun triggers an immediate run. Completion arrives later via webhook.
func (s *Service) ForceRun(ctx context.Context, remoteJobID string) error {
	if !s.gateway.IsConnected() {
		return ErrUnavailable
	}
	if _, err := s.gateway.Request(ctx, "cron.run", map[string]any{"jobId": remoteJobID, "mode": "force"}); err != nil {
		return fmt.Errorf("cron.run: %w", s.unavailable(err))
	}
	s.logger.Info("forced job run", "remote_job_id", remoteJobID)
	return nil
}

// Deprovision removes the remote job when possible and always removes the
// local record. Remote failures are logged, not returned.
func (s *Service) Deprovision(ctx context.Context, remoteJobID string) error {
	if s.gateway.IsConnected() {
		if _, err := s.gateway.Request(ctx, "cron.remove", map[string]any{"id": remoteJobID}); err != nil {
			s.logger.Error("failed to remove remote job", "remote_job_id", remoteJobID, "error", err)
		}
	} else {
		s.logger.Warn("gateway not connected, remote job left in place", "remote_job_id", remoteJobID)
	}

	if err := s.store.DeleteJobByRemoteID(ctx, remoteJobID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("deleting monitoring job: %w", err)
	}
	return nil
}

// ListJobs returns the tenant's locally tracked jobs.
func (s *Service) ListJobs(ctx context.Context, tenantID string) ([]*store.MonitoringJob, error) {
	return s.store.ListJobs(ctx, tenantID)
}

// ListRemoteJobs returns the gateway's job list, disabled jobs included.
func (s *Service) ListRemoteJobs(ctx context.Context) (json.RawMessage, error) {
	return s.passThrough(ctx, "cron.list", map[string]any{"includeDisabled": true})
}

// JobStatus returns the gateway's scheduler status.
func (s *Service) JobStatus(ctx context.Context) (json.RawMessage, error) {
	return s.passThrough(ctx, "cron.status", map[string]any{})
}

// JobRuns returns recent runs of one job.
func (s *Service) JobRuns(ctx context.Context, remoteJobID string) (json.RawMessage, error) {
	return s.passThrough(ctx, "cron.runs", map[string]any{"id": remoteJobID, "limit": runsLimit})
}

func (s *Service) passThrough(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !s.gateway.IsConnected() {
		return nil, ErrUnavailable
	}
	result, err := s.gateway.Request(ctx, method, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, s.unavailable(err))
	}
	return result, nil
}

// unavailable folds transport-level disconnects into ErrUnavailable.
func (s *Service) unavailable(err error) error {
	if errors.Is(err, agent.ErrNotConnected) || errors.Is(err, agent.ErrConnectionClosed) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// remoteJobID finds the job id in a cron.add result. Gateways have reported
// it as id, jobId, or job.id.
func remoteJobID(result json.RawMessage) string {
	for _, r := range gjson.GetManyBytes(result, "id", "jobId", "job.id") {
		if id := r.String(); r.Exists() && id != "" {
			return id
		}
	}
	return ""
}

// scheduleLabel renders an interval as the stored schedule description.
func scheduleLabel(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("every:%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("every:%dm", d/time.Minute)
	default:
		return "every:" + d.String()
	}
}
