// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows service and handler tests to run without SQLite

package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	clients map[string]*Client        // keyed by client ID
	niches  map[string]*Niche         // keyed by niche ID
	jobs    map[string]*MonitoringJob // keyed by remote job ID
	signals []*Signal

	// FailSignals makes CreateSignals fail, for exercising storage errors.
	FailSignals error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		clients: make(map[string]*Client),
		niches:  make(map[string]*Niche),
		jobs:    make(map[string]*MonitoringJob),
	}
}

func copyList(v []string) []string {
	out := make([]string, len(v))
	copy(out, v)
	return out
}

func copyClient(c *Client) *Client {
	out := *c
	out.CustomURLs = copyList(c.CustomURLs)
	out.Keywords = copyList(c.Keywords)
	out.MonitorCategories = copyList(c.MonitorCategories)
	return &out
}

func copyNiche(n *Niche) *Niche {
	out := *n
	out.Keywords = copyList(n.Keywords)
	out.Sources = copyList(n.Sources)
	return &out
}

func copyJob(j *MonitoringJob) *MonitoringJob {
	out := *j
	if j.LastRunAt != nil {
		t := *j.LastRunAt
		out.LastRunAt = &t
	}
	return &out
}

func copySignal(s *Signal) *Signal {
	out := *s
	if s.RawData != nil {
		out.RawData = append(json.RawMessage(nil), s.RawData...)
	}
	return &out
}

// CreateJob stores a monitoring job.
func (m *MockStore) CreateJob(ctx context.Context, job *MonitoringJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.RemoteJobID]; exists {
		return ErrDuplicateJob
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	m.jobs[job.RemoteJobID] = copyJob(job)
	return nil
}

// GetJobByRemoteID retrieves a monitoring job by remote id.
func (m *MockStore) GetJobByRemoteID(ctx context.Context, remoteJobID string) (*MonitoringJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[remoteJobID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(j), nil
}

// ListJobs returns a tenant's jobs, oldest first.
func (m *MockStore) ListJobs(ctx context.Context, tenantID string) ([]*MonitoringJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*MonitoringJob{}
	for _, j := range m.jobs {
		if j.TenantID == tenantID {
			out = append(out, copyJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

// RecordJobRun stamps the latest run.
func (m *MockStore) RecordJobRun(ctx context.Context, remoteJobID string, at time.Time, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[remoteJobID]
	if !ok {
		return ErrNotFound
	}
	t := at
	j.LastRunAt = &t
	j.LastStatus = status
	return nil
}

// DeleteJobByRemoteID removes a job if present.
func (m *MockStore) DeleteJobByRemoteID(ctx context.Context, remoteJobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.jobs, remoteJobID)
	return nil
}

// CreateSignals appends signals.
func (m *MockStore) CreateSignals(ctx context.Context, signals []*Signal) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSignals != nil {
		return 0, m.FailSignals
	}
	now := time.Now()
	for _, s := range signals {
		if s.ClientID == "" && s.NicheID == "" {
			return 0, errors.New("signal has no owner")
		}
		prepareSignal(s, now)
	}
	for _, s := range signals {
		m.signals = append(m.signals, copySignal(s))
	}
	return len(signals), nil
}

// ListSignals filters, sorts newest first, and pages.
func (m *MockStore) ListSignals(ctx context.Context, f SignalFilter) ([]*Signal, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Signal
	for _, s := range m.signals {
		switch {
		case s.TenantID != f.TenantID:
		case f.ClientID != "" && s.ClientID != f.ClientID:
		case f.NicheID != "" && s.NicheID != f.NicheID:
		case f.Type != "" && s.Type != f.Type:
		case !f.From.IsZero() && s.DetectedAt.Before(f.From):
		case !f.To.IsZero() && s.DetectedAt.After(f.To):
		default:
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, k int) bool { return matched[i].DetectedAt.After(matched[k].DetectedAt) })

	limit, offset := f.pageBounds()
	out := []*Signal{}
	for i := offset; i < len(matched) && len(out) < limit; i++ {
		out = append(out, copySignal(matched[i]))
	}
	return out, len(matched), nil
}

// Signals returns every stored signal in insertion order.
func (m *MockStore) Signals() []*Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Signal, len(m.signals))
	for i, s := range m.signals {
		out[i] = copySignal(s)
	}
	return out
}

// CreateClient stores a client.
func (m *MockStore) CreateClient(ctx context.Context, c *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	m.clients[c.ID] = copyClient(c)
	return nil
}

// GetClient retrieves a tenant's client.
func (m *MockStore) GetClient(ctx context.Context, tenantID, id string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok || c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return copyClient(c), nil
}

// ListClients returns a tenant's clients, newest first.
func (m *MockStore) ListClients(ctx context.Context, tenantID string) ([]*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Client{}
	for _, c := range m.clients {
		if c.TenantID == tenantID {
			out = append(out, copyClient(c))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

// CountClients counts a tenant's clients.
func (m *MockStore) CountClients(ctx context.Context, tenantID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, c := range m.clients {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// UpdateClient replaces a client.
func (m *MockStore) UpdateClient(ctx context.Context, c *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.clients[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now()
	m.clients[c.ID] = copyClient(c)
	return nil
}

// DeleteClient removes a client and its signals.
func (m *MockStore) DeleteClient(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[id]
	if !ok || c.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.clients, id)
	m.dropSignals(func(s *Signal) bool { return s.ClientID == id })
	return nil
}

// CreateNiche stores a niche.
func (m *MockStore) CreateNiche(ctx context.Context, n *Niche) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.UpdatedAt = n.CreatedAt
	m.niches[n.ID] = copyNiche(n)
	return nil
}

// GetNiche retrieves a tenant's niche.
func (m *MockStore) GetNiche(ctx context.Context, tenantID, id string) (*Niche, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.niches[id]
	if !ok || n.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return copyNiche(n), nil
}

// ListNiches returns a tenant's niches, newest first.
func (m *MockStore) ListNiches(ctx context.Context, tenantID string) ([]*Niche, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Niche{}
	for _, n := range m.niches {
		if n.TenantID == tenantID {
			out = append(out, copyNiche(n))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

// UpdateNiche replaces a niche.
func (m *MockStore) UpdateNiche(ctx context.Context, n *Niche) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.niches[n.ID]
	if !ok || existing.TenantID != n.TenantID {
		return ErrNotFound
	}
	n.UpdatedAt = time.Now()
	m.niches[n.ID] = copyNiche(n)
	return nil
}

// DeleteNiche removes a niche and its signals.
func (m *MockStore) DeleteNiche(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.niches[id]
	if !ok || n.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.niches, id)
	m.dropSignals(func(s *Signal) bool { return s.NicheID == id })
	return nil
}

// dropSignals removes matching signals. Caller holds mu.
func (m *MockStore) dropSignals(match func(*Signal) bool) {
	kept := m.signals[:0]
	for _, s := range m.signals {
		if !match(s) {
			kept = append(kept, s)
		}
	}
	m.signals = kept
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store
var _ Store = (*MockStore)(nil)
