// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers job tracking, bulk signal writes, filtering, and tenant scoping

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.CreateJob(ctx, &MonitoringJob{TenantID: "t1", RemoteJobID: "r1", JobType: JobTypeClient, TargetID: "c1", Schedule: "every:12h"}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	job, err := second.GetJobByRemoteID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "c1", job.TargetID)
}

func TestSQLiteStore_Jobs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := &MonitoringJob{
		TenantID:    "tenant-1",
		RemoteJobID: "cron-abc",
		JobType:     JobTypeNiche,
		TargetID:    "niche-1",
		Schedule:    "every:12h",
	}
	require.NoError(t, store.CreateJob(ctx, job))
	assert.NotEmpty(t, job.ID)

	err := store.CreateJob(ctx, &MonitoringJob{TenantID: "tenant-1", RemoteJobID: "cron-abc", JobType: JobTypeClient, TargetID: "x", Schedule: "every:12h"})
	assert.ErrorIs(t, err, ErrDuplicateJob)

	got, err := store.GetJobByRemoteID(ctx, "cron-abc")
	require.NoError(t, err)
	assert.Equal(t, JobTypeNiche, got.JobType)
	assert.Nil(t, got.LastRunAt)
	assert.Equal(t, "", got.LastStatus)

	ranAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordJobRun(ctx, "cron-abc", ranAt, "error"))

	got, err = store.GetJobByRemoteID(ctx, "cron-abc")
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, ranAt.Equal(*got.LastRunAt))
	assert.Equal(t, "error", got.LastStatus)

	assert.ErrorIs(t, store.RecordJobRun(ctx, "missing", ranAt, "ok"), ErrNotFound)

	jobs, err := store.ListJobs(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	jobs, err = store.ListJobs(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Empty(t, jobs)

	require.NoError(t, store.DeleteJobByRemoteID(ctx, "cron-abc"))
	require.NoError(t, store.DeleteJobByRemoteID(ctx, "cron-abc"), "deleting twice is not an error")

	_, err = store.GetJobByRemoteID(ctx, "cron-abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SignalsBulkAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	signals := []*Signal{
		{TenantID: "t1", ClientID: "c1", Type: "funding", Title: "A", Confidence: 0.9, RawData: json.RawMessage(`{"type":"funding"}`), DetectedAt: base},
		{TenantID: "t1", ClientID: "c1", Type: "hiring", Title: "B", Confidence: 0.5, DetectedAt: base.Add(time.Hour)},
		{TenantID: "t1", NicheID: "n1", Type: "trending_topic", Title: "C", Confidence: 0.2, SourceURL: "https://x.example", DetectedAt: base.Add(2 * time.Hour)},
		{TenantID: "t2", ClientID: "c9", Type: "funding", Title: "D", Confidence: 1, DetectedAt: base},
	}
	n, err := store.CreateSignals(ctx, signals)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	for _, s := range signals {
		assert.NotEmpty(t, s.ID)
	}

	page, total, err := store.ListSignals(ctx, SignalFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 3)
	assert.Equal(t, "C", page[0].Title, "newest first")
	assert.Equal(t, "n1", page[0].NicheID)
	assert.Equal(t, "", page[0].ClientID)
	assert.Equal(t, "https://x.example", page[0].SourceURL)
	assert.JSONEq(t, `{"type":"funding"}`, string(page[2].RawData))
	assert.Nil(t, page[1].RawData)

	page, total, err = store.ListSignals(ctx, SignalFilter{TenantID: "t1", ClientID: "c1", Type: "funding"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "A", page[0].Title)

	page, total, err = store.ListSignals(ctx, SignalFilter{TenantID: "t1", From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "B", page[0].Title)

	page, total, err = store.ListSignals(ctx, SignalFilter{TenantID: "t1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total, "total ignores paging")
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].Title)
}

func TestSQLiteStore_CreateSignalsIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// The second signal violates the single-owner check, so nothing is stored.
	_, err := store.CreateSignals(ctx, []*Signal{
		{TenantID: "t1", ClientID: "c1", Type: "funding", Title: "ok", Confidence: 0.5},
		{TenantID: "t1", Type: "funding", Title: "orphan", Confidence: 0.5},
	})
	require.Error(t, err)

	_, total, err := store.ListSignals(ctx, SignalFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestSQLiteStore_CreateSignalsEmpty(t *testing.T) {
	store := newTestStore(t)
	n, err := store.CreateSignals(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLiteStore_ClientLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := &Client{
		TenantID:          "t1",
		Name:              "Acme",
		Domain:            "acme.example",
		LinkedInURL:       "https://linkedin.com/company/acme",
		CustomURLs:        []string{"https://acme.example/blog"},
		Keywords:          []string{"acme", "rockets"},
		MonitorCategories: []string{"funding"},
		IsActive:          true,
	}
	require.NoError(t, store.CreateClient(ctx, c))
	require.NotEmpty(t, c.ID)

	got, err := store.GetClient(ctx, "t1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, []string{"acme", "rockets"}, got.Keywords)
	assert.Equal(t, []string{"funding"}, got.MonitorCategories)
	assert.True(t, got.IsActive)
	assert.Equal(t, "", got.RemoteJobID)

	_, err = store.GetClient(ctx, "t2", c.ID)
	assert.ErrorIs(t, err, ErrNotFound, "clients are tenant scoped")

	got.RemoteJobID = "cron-1"
	got.IsActive = false
	got.Keywords = nil
	require.NoError(t, store.UpdateClient(ctx, got))

	got, err = store.GetClient(ctx, "t1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "cron-1", got.RemoteJobID)
	assert.False(t, got.IsActive)
	assert.Equal(t, []string{}, got.Keywords)

	count, err := store.CountClients(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.CreateSignals(ctx, []*Signal{
		{TenantID: "t1", ClientID: c.ID, Type: "funding", Title: "x", Confidence: 0.5},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteClient(ctx, "t1", c.ID))
	assert.ErrorIs(t, store.DeleteClient(ctx, "t1", c.ID), ErrNotFound)

	_, total, err := store.ListSignals(ctx, SignalFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 0, total, "client signals are removed with the client")
}

func TestSQLiteStore_UpdateClientWrongTenant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := &Client{TenantID: "t1", Name: "Acme"}
	require.NoError(t, store.CreateClient(ctx, c))

	c.TenantID = "t2"
	err := store.UpdateClient(ctx, c)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateClient across tenants: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListClientsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := &Client{TenantID: "t1", Name: "Old", CreatedAt: time.Now().Add(-time.Hour)}
	fresh := &Client{TenantID: "t1", Name: "Fresh"}
	require.NoError(t, store.CreateClient(ctx, old))
	require.NoError(t, store.CreateClient(ctx, fresh))

	clients, err := store.ListClients(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Fresh", clients[0].Name)
	assert.Equal(t, "Old", clients[1].Name)
}

func TestSQLiteStore_NicheLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n := &Niche{TenantID: "t1", Name: "AI agents", Keywords: []string{"agents", "llm"}, Sources: []string{"hn"}}
	require.NoError(t, store.CreateNiche(ctx, n))

	got, err := store.GetNiche(ctx, "t1", n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"agents", "llm"}, got.Keywords)
	assert.Equal(t, []string{"hn"}, got.Sources)

	got.Name = "Agents"
	got.RemoteJobID = "cron-n"
	require.NoError(t, store.UpdateNiche(ctx, got))

	niches, err := store.ListNiches(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, niches, 1)
	assert.Equal(t, "Agents", niches[0].Name)
	assert.Equal(t, "cron-n", niches[0].RemoteJobID)

	require.NoError(t, store.DeleteNiche(ctx, "t1", n.ID))
	_, err = store.GetNiche(ctx, "t1", n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
