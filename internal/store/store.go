// ABOUTME: Store interfaces and data types for trendclaw persistence
// ABOUTME: Defines clients, niches, monitoring jobs, and signals plus the Store interface

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateJob is returned when a monitoring job for the same remote id already exists
var ErrDuplicateJob = errors.New("monitoring job already exists")

// JobType says which kind of entity a monitoring job scans.
type JobType string

const (
	JobTypeClient JobType = "client"
	JobTypeNiche  JobType = "niche"
)

// Client is a company a tenant monitors for buying signals
type Client struct {
	ID                string
	TenantID          string
	Name              string
	Domain            string
	Description       string
	Industry          string
	LinkedInURL       string
	TwitterURL        string
	FacebookURL       string
	InstagramURL      string
	CustomURLs        []string
	Keywords          []string
	MonitorCategories []string
	IsActive          bool
	RemoteJobID       string // empty until provisioned
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Niche is a topic a tenant monitors for trending content
type Niche struct {
	ID          string
	TenantID    string
	Name        string
	Keywords    []string
	Sources     []string
	RemoteJobID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MonitoringJob links a remote recurring job to the entity it scans
type MonitoringJob struct {
	ID          string
	TenantID    string
	RemoteJobID string
	JobType     JobType
	TargetID    string
	Schedule    string
	LastRunAt   *time.Time
	LastStatus  string
	CreatedAt   time.Time
}

// Signal is one timestamped finding reported by a completed job.
// Exactly one of ClientID and NicheID is set.
type Signal struct {
	ID         string
	TenantID   string
	ClientID   string
	NicheID    string
	Type       string
	Title      string
	Summary    string
	SourceURL  string
	SourceName string
	Confidence float64
	RawData    json.RawMessage
	DetectedAt time.Time
}

// SignalFilter narrows ListSignals. Zero values mean "any".
type SignalFilter struct {
	TenantID string
	ClientID string
	NicheID  string
	Type     string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// JobStore persists monitoring jobs
type JobStore interface {
	CreateJob(ctx context.Context, job *MonitoringJob) error
	GetJobByRemoteID(ctx context.Context, remoteJobID string) (*MonitoringJob, error)
	ListJobs(ctx context.Context, tenantID string) ([]*MonitoringJob, error)
	// RecordJobRun stamps the outcome of the latest run.
	RecordJobRun(ctx context.Context, remoteJobID string, at time.Time, status string) error
	DeleteJobByRemoteID(ctx context.Context, remoteJobID string) error
}

// SignalStore persists signals. Signals are written in bulk and never mutated.
type SignalStore interface {
	CreateSignals(ctx context.Context, signals []*Signal) (int, error)
	// ListSignals returns one page, newest first, and the total match count.
	ListSignals(ctx context.Context, filter SignalFilter) ([]*Signal, int, error)
}

// EntityStore persists the clients and niches tenants monitor.
// Every lookup is scoped to a tenant.
type EntityStore interface {
	CreateClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, tenantID, id string) (*Client, error)
	ListClients(ctx context.Context, tenantID string) ([]*Client, error)
	CountClients(ctx context.Context, tenantID string) (int, error)
	UpdateClient(ctx context.Context, client *Client) error
	// DeleteClient removes the client and its signals.
	DeleteClient(ctx context.Context, tenantID, id string) error

	CreateNiche(ctx context.Context, niche *Niche) error
	GetNiche(ctx context.Context, tenantID, id string) (*Niche, error)
	ListNiches(ctx context.Context, tenantID string) ([]*Niche, error)
	UpdateNiche(ctx context.Context, niche *Niche) error
	// DeleteNiche removes the niche and its signals.
	DeleteNiche(ctx context.Context, tenantID, id string) error
}

// Store is the full persistence surface
type Store interface {
	JobStore
	SignalStore
	EntityStore
	Close() error
}

// MaxSignalPage caps a single ListSignals page.
const MaxSignalPage = 100

// DefaultSignalPage is used when a filter has no limit.
const DefaultSignalPage = 50

// pageBounds normalizes limit and offset.
func (f SignalFilter) pageBounds() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = DefaultSignalPage
	}
	if limit > MaxSignalPage {
		limit = MaxSignalPage
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
