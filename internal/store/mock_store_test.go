// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on duplicate detection, copying, and paging edge cases

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_CreateJob_Duplicate(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	job := &MonitoringJob{TenantID: "t1", RemoteJobID: "r1", JobType: JobTypeClient, TargetID: "c1"}
	require.NoError(t, store.CreateJob(ctx, job))

	err := store.CreateJob(ctx, &MonitoringJob{TenantID: "t2", RemoteJobID: "r1", JobType: JobTypeNiche, TargetID: "n1"})
	assert.ErrorIs(t, err, ErrDuplicateJob, "remote job id is unique across tenants")
}

func TestMockStore_ReturnsCopies(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	c := &Client{TenantID: "t1", Name: "Acme", Keywords: []string{"a"}}
	require.NoError(t, store.CreateClient(ctx, c))

	c.Keywords[0] = "mutated"
	got, err := store.GetClient(ctx, "t1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Keywords)

	got.Name = "Changed"
	again, err := store.GetClient(ctx, "t1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name)
}

func TestMockStore_RecordJobRun(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, &MonitoringJob{TenantID: "t1", RemoteJobID: "r1", JobType: JobTypeClient, TargetID: "c1"}))
	at := time.Now()
	require.NoError(t, store.RecordJobRun(ctx, "r1", at, "ok"))

	job, err := store.GetJobByRemoteID(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, job.LastRunAt)
	assert.True(t, at.Equal(*job.LastRunAt))
	assert.Equal(t, "ok", job.LastStatus)

	assert.ErrorIs(t, store.RecordJobRun(ctx, "nope", at, "ok"), ErrNotFound)
}

func TestMockStore_ListSignalsPaging(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var batch []*Signal
	for i := 0; i < 120; i++ {
		batch = append(batch, &Signal{TenantID: "t1", ClientID: "c1", Type: "funding", Title: "s", Confidence: 0.5, DetectedAt: base.Add(time.Duration(i) * time.Second)})
	}
	n, err := store.CreateSignals(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 120, n)

	page, total, err := store.ListSignals(ctx, SignalFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 120, total)
	assert.Len(t, page, DefaultSignalPage)
	assert.True(t, page[0].DetectedAt.After(page[1].DetectedAt))

	page, _, err = store.ListSignals(ctx, SignalFilter{TenantID: "t1", Limit: 500})
	require.NoError(t, err)
	assert.Len(t, page, MaxSignalPage)

	page, _, err = store.ListSignals(ctx, SignalFilter{TenantID: "t1", Offset: 110, Limit: 50})
	require.NoError(t, err)
	assert.Len(t, page, 10)
}

func TestMockStore_FailSignals(t *testing.T) {
	store := NewMockStore()
	store.FailSignals = errors.New("disk full")

	_, err := store.CreateSignals(context.Background(), []*Signal{{TenantID: "t1", ClientID: "c1"}})
	assert.EqualError(t, err, "disk full")
	assert.Empty(t, store.Signals())
}

func TestMockStore_DeleteNicheRemovesSignals(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	n := &Niche{TenantID: "t1", Name: "AI"}
	require.NoError(t, store.CreateNiche(ctx, n))
	_, err := store.CreateSignals(ctx, []*Signal{
		{TenantID: "t1", NicheID: n.ID, Type: "trending_topic"},
		{TenantID: "t1", ClientID: "c1", Type: "funding"},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteNiche(ctx, "t1", n.ID))
	remaining := store.Signals()
	require.Len(t, remaining, 1)
	assert.Equal(t, "c1", remaining[0].ClientID)

	assert.ErrorIs(t, store.DeleteNiche(ctx, "t1", n.ID), ErrNotFound)
}
