// ABOUTME: Tests for the tenant HTTP API routed through chi
// ABOUTME: Exercises client, niche, signal, and job endpoints against MockStore and a fake gateway

package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/trendclaw/internal/agent"
	"github.com/2389/trendclaw/internal/auth"
	"github.com/2389/trendclaw/internal/store"
)

const jsonHeader = "Content-Type"

func (f *fixture) createClient(t *testing.T, body string) map[string]any {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/clients", body, jsonHeader, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["client"].(map[string]any)
}

func TestCreateClientProvisions(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.add"] = `{"id":"job-1"}`

	client := f.createClient(t, `{"name":"Acme","domain":"acme.io","monitorCategories":["funding","hiring"]}`)
	assert.Equal(t, "Acme", client["name"])
	assert.Equal(t, auth.DevTenantID, client["tenantId"])
	assert.Equal(t, "job-1", client["remoteJobId"])
	assert.Equal(t, true, client["isActive"])
	assert.Equal(t, []any{"funding", "hiring"}, client["monitorCategories"])

	assert.Equal(t, []string{"cron.add"}, f.caller.called())

	job, err := f.store.GetJobByRemoteID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, client["id"], job.TargetID)
	assert.Equal(t, store.JobTypeClient, job.JobType)
}

func TestCreateClientWhileDisconnected(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.setConnected(false)

	client := f.createClient(t, `{"name":"Acme"}`)
	_, provisioned := client["remoteJobId"]
	assert.False(t, provisioned)
	assert.Empty(t, f.caller.called())
}

func TestCreateClientSurvivesProvisionError(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.errs["cron.add"] = &agent.RemoteError{Method: "cron.add", Code: "INVALID", Message: "bad schedule"}

	client := f.createClient(t, `{"name":"Acme"}`)
	_, provisioned := client["remoteJobId"]
	assert.False(t, provisioned)
}

func TestCreateClientValidation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, "request body is required"},
		{"bad json", `{"name":`, "invalid JSON body"},
		{"missing name", `{"domain":"acme.io"}`, "name is required"},
		{"blank name", `{"name":"   "}`, "name is required"},
		{"unknown category", `{"name":"Acme","monitorCategories":["gossip"]}`, `unknown monitor category "gossip"`},
		{"niche category", `{"name":"Acme","monitorCategories":["trending_topic"]}`, `unknown monitor category "trending_topic"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/clients", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
		})
	}
}

func TestCreateClientLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Monitoring.MaxClientsPerTenant = 1
	f := newFixture(t, cfg)

	f.createClient(t, `{"name":"One"}`)

	rec := f.do(t, http.MethodPost, "/api/clients", `{"name":"Two"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Client limit reached (1)", decode(t, rec)["error"])
}

func TestGetClientIncludesRecentSignals(t *testing.T) {
	f := newFixture(t, nil)
	client := f.createClient(t, `{"name":"Acme"}`)
	id := client["id"].(string)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var batch []*store.Signal
	for i := 0; i < 25; i++ {
		batch = append(batch, &store.Signal{
			TenantID: auth.DevTenantID, ClientID: id, Type: "hiring",
			Title: "t", DetectedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	_, err := f.store.CreateSignals(context.Background(), batch)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/clients/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["client"].(map[string]any)
	sigs := got["signals"].([]any)
	assert.Len(t, sigs, recentSignals)

	newest := sigs[0].(map[string]any)
	assert.Equal(t, base.Add(24*time.Hour).Format(time.RFC3339), newest["detectedAt"])
}

func TestGetClientNotFound(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/clients/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Client not found", decode(t, rec)["error"])
}

func TestListClients(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/clients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["clients"])

	f.createClient(t, `{"name":"Acme"}`)
	rec = f.do(t, http.MethodGet, "/api/clients", "")
	assert.Len(t, decode(t, rec)["clients"], 1)
}

func TestUpdateClientPartial(t *testing.T) {
	f := newFixture(t, nil)
	client := f.createClient(t, `{"name":"Acme","domain":"acme.io","keywords":["rockets"]}`)
	id := client["id"].(string)

	rec := f.do(t, http.MethodPatch, "/api/clients/"+id, `{"industry":"aerospace","isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode(t, rec)["client"].(map[string]any)
	assert.Equal(t, "Acme", got["name"])
	assert.Equal(t, "acme.io", got["domain"])
	assert.Equal(t, "aerospace", got["industry"])
	assert.Equal(t, false, got["isActive"])
	assert.Equal(t, []any{"rockets"}, got["keywords"])

	rec = f.do(t, http.MethodPatch, "/api/clients/"+id, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := f.store.GetClient(context.Background(), auth.DevTenantID, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.Name)
}

func TestDeleteClientDeprovisions(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.add"] = `{"jobId":"job-9"}`
	client := f.createClient(t, `{"name":"Acme"}`)
	id := client["id"].(string)

	rec := f.do(t, http.MethodDelete, "/api/clients/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true}, decode(t, rec))
	assert.Equal(t, []string{"cron.add", "cron.remove"}, f.caller.called())

	_, err := f.store.GetJobByRemoteID(context.Background(), "job-9")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.store.GetClient(context.Background(), auth.DevTenantID, id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec = f.do(t, http.MethodDelete, "/api/clients/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteClientWhenRemoteRemoveFails(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.add"] = `{"id":"job-1"}`
	f.caller.errs["cron.remove"] = errors.New("boom")
	id := f.createClient(t, `{"name":"Acme"}`)["id"].(string)

	rec := f.do(t, http.MethodDelete, "/api/clients/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRescanClient(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.setConnected(false)
	id := f.createClient(t, `{"name":"Acme"}`)["id"].(string)

	rec := f.do(t, http.MethodPost, "/api/clients/"+id+"/rescan", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Unprovisioned clients are provisioned on rescan.
	f.caller.setConnected(true)
	f.caller.results["cron.add"] = `{"id":"job-2"}`
	rec = f.do(t, http.MethodPost, "/api/clients/"+id+"/rescan", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "job-2", decode(t, rec)["remoteJobId"])

	// Provisioned clients are force-run.
	rec = f.do(t, http.MethodPost, "/api/clients/"+id+"/rescan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"cron.add", "cron.run"}, f.caller.called())
}

func TestRescanClientRemoteError(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.add"] = `{"id":"job-1"}`
	f.caller.errs["cron.run"] = &agent.RemoteError{Method: "cron.run", Code: "NOT_FOUND", Message: "no such job"}
	id := f.createClient(t, `{"name":"Acme"}`)["id"].(string)

	rec := f.do(t, http.MethodPost, "/api/clients/"+id+"/rescan", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRescanClientNoJobID(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.setConnected(false)
	id := f.createClient(t, `{"name":"Acme"}`)["id"].(string)

	f.caller.setConnected(true)
	f.caller.results["cron.add"] = `{}`
	rec := f.do(t, http.MethodPost, "/api/clients/"+id+"/rescan", "")
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	assert.Equal(t, "gateway returned no job id", decode(t, rec)["error"])
}

func TestRescanNicheNoJobID(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.setConnected(false)
	rec := f.do(t, http.MethodPost, "/api/niches", `{"name":"Rust","keywords":["rust"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["niche"].(map[string]any)["id"].(string)

	rec = f.do(t, http.MethodPost, "/api/niches/"+id+"/rescan", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "gateway not connected", decode(t, rec)["error"])

	f.caller.setConnected(true)
	f.caller.results["cron.add"] = `{}`
	rec = f.do(t, http.MethodPost, "/api/niches/"+id+"/rescan", "")
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	assert.Equal(t, "gateway returned no job id", decode(t, rec)["error"])
}

func TestNicheLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.add"] = `{"id":"job-n"}`

	rec := f.do(t, http.MethodPost, "/api/niches", `{"name":"Rust"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name and keywords are required", decode(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/api/niches", `{"name":"Rust","keywords":["rust","cargo"],"sources":["reddit","news.ycombinator.com"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	niche := decode(t, rec)["niche"].(map[string]any)
	id := niche["id"].(string)
	assert.Equal(t, "job-n", niche["remoteJobId"])

	job, err := f.store.GetJobByRemoteID(context.Background(), "job-n")
	require.NoError(t, err)
	assert.Equal(t, store.JobTypeNiche, job.JobType)

	rec = f.do(t, http.MethodGet, "/api/niches", "")
	assert.Len(t, decode(t, rec)["niches"], 1)

	rec = f.do(t, http.MethodPatch, "/api/niches/"+id, `{"keywords":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/niches/"+id, `{"sources":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["niche"].(map[string]any)["sources"])

	rec = f.do(t, http.MethodPost, "/api/niches/"+id+"/rescan", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/niches/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"cron.add", "cron.run", "cron.remove"}, f.caller.called())

	rec = f.do(t, http.MethodGet, "/api/niches/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedSignals(t *testing.T, s *store.MockStore) {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC) }
	_, err := s.CreateSignals(context.Background(), []*store.Signal{
		{TenantID: auth.DevTenantID, ClientID: "c1", Type: "funding", Title: "a", DetectedAt: day(1)},
		{TenantID: auth.DevTenantID, ClientID: "c1", Type: "hiring", Title: "b", DetectedAt: day(2)},
		{TenantID: auth.DevTenantID, ClientID: "c2", Type: "funding", Title: "c", DetectedAt: day(3)},
		{TenantID: auth.DevTenantID, NicheID: "n1", Type: "trending_topic", Title: "d", DetectedAt: day(4)},
		{TenantID: "other", ClientID: "c9", Type: "funding", Title: "e", DetectedAt: day(5)},
	})
	require.NoError(t, err)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.setConnected(false)
	seedSignals(t, f.store)
	_, err := f.store.CreateSignals(context.Background(), []*store.Signal{
		{TenantID: auth.DevTenantID, ClientID: "c1", Type: "funding", Title: "today", DetectedAt: time.Now().UTC()},
	})
	require.NoError(t, err)

	f.createClient(t, `{"name":"Acme"}`)
	idle := f.createClient(t, `{"name":"Globex"}`)["id"].(string)
	rec := f.do(t, http.MethodPatch, "/api/clients/"+idle, `{"isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/dashboard/stats", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, 2.0, body["clientCount"])
	assert.Equal(t, 1.0, body["activeClientCount"])
	assert.Equal(t, 1.0, body["signalCountToday"])
	assert.Equal(t, 5.0, body["signalCountTotal"])

	recent := body["recentSignals"].([]any)
	require.Len(t, recent, 5)
	assert.Equal(t, "today", recent[0].(map[string]any)["title"])
}

func TestDashboardStatsEmpty(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/dashboard/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 0.0, body["clientCount"])
	assert.Equal(t, 0.0, body["signalCountTotal"])
	assert.Equal(t, []any{}, body["recentSignals"])
}

func TestListSignalsFilters(t *testing.T) {
	f := newFixture(t, nil)
	seedSignals(t, f.store)

	tests := []struct {
		name   string
		query  string
		total  float64
		titles []any
	}{
		{"all", "", 4, []any{"d", "c", "b", "a"}},
		{"client", "?clientId=c1", 2, []any{"b", "a"}},
		{"niche", "?nicheId=n1", 1, []any{"d"}},
		{"type", "?type=funding", 2, []any{"c", "a"}},
		{"date range", "?from=2026-03-02&to=2026-03-03T23:00:00Z", 2, []any{"c", "b"}},
		{"paged", "?limit=1&offset=1", 4, []any{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/signals"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, tt.total, body["total"])

			var titles []any
			for _, s := range body["signals"].([]any) {
				titles = append(titles, s.(map[string]any)["title"])
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestListSignalsBadQuery(t *testing.T) {
	f := newFixture(t, nil)

	for _, q := range []string{"?limit=abc", "?limit=-1", "?offset=x", "?from=yesterday", "?to=03/01/2026"} {
		rec := f.do(t, http.MethodGet, "/api/signals"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestListJobs(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.add"] = `{"id":"job-1"}`
	f.createClient(t, `{"name":"Acme"}`)

	rec := f.do(t, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode(t, rec)["jobs"].([]any)
	require.Len(t, jobs, 1)
	job := jobs[0].(map[string]any)
	assert.Equal(t, "job-1", job["remoteJobId"])
	assert.Equal(t, "client", job["jobType"])
	assert.Equal(t, "every:12h", job["schedule"])
	assert.Nil(t, job["lastRunAt"])
}

func TestListRemoteJobsFiltersTenant(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.list"] = `{"jobs":[
		{"id":"1","name":"tc:default:c1:client"},
		{"id":"2","name":"tc:other:c2:client"},
		{"id":"3","name":"backup"}
	]}`

	rec := f.do(t, http.MethodGet, "/api/jobs/remote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode(t, rec)["jobs"].([]any)
	require.Len(t, jobs, 1)
	assert.Equal(t, "1", jobs[0].(map[string]any)["id"])
}

func TestTenantJobsBareArray(t *testing.T) {
	got := tenantJobs([]byte(`[{"name":"tc:t1:a:niche"},{"name":"tc:t10:b:niche"}]`), "t1")
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"name":"tc:t1:a:niche"}`, string(got[0]))

	assert.Empty(t, tenantJobs([]byte(`null`), "t1"))
}

func TestJobStatusPassThrough(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.status"] = `{"enabled":true,"jobs":3}`

	rec := f.do(t, http.MethodGet, "/api/jobs/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":true,"jobs":3}`, rec.Body.String())

	f.caller.setConnected(false)
	rec = f.do(t, http.MethodGet, "/api/jobs/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobRunsAndForceRunTenancy(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.CreateJob(ctx, &store.MonitoringJob{TenantID: auth.DevTenantID, RemoteJobID: "mine", JobType: store.JobTypeClient, TargetID: "c1"}))
	require.NoError(t, f.store.CreateJob(ctx, &store.MonitoringJob{TenantID: "other", RemoteJobID: "theirs", JobType: store.JobTypeClient, TargetID: "c2"}))
	f.caller.results["cron.runs"] = `{"entries":[{"status":"ok"}]}`

	rec := f.do(t, http.MethodGet, "/api/jobs/mine/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":[{"status":"ok"}]}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/jobs/mine/run", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	for _, path := range []string{"/api/jobs/theirs/runs", "/api/jobs/missing/runs"} {
		rec = f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec = f.do(t, http.MethodPost, "/api/jobs/theirs/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"cron.runs", "cron.run"}, f.caller.called())
}

func TestForceRunDisconnected(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.store.CreateJob(context.Background(), &store.MonitoringJob{TenantID: auth.DevTenantID, RemoteJobID: "mine", JobType: store.JobTypeClient, TargetID: "c1"}))
	f.caller.setConnected(false)

	rec := f.do(t, http.MethodPost, "/api/jobs/mine/run", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJWTAuthScopesTenant(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "s3cret"
	f := newFixture(t, cfg)
	signer := auth.NewJWTVerifier([]byte("s3cret"))

	tokenFor := func(tenant string) string {
		tok, err := signer.Generate(auth.Identity{UserID: "u-" + tenant, TenantID: tenant}, time.Hour)
		require.NoError(t, err)
		return "Bearer " + tok
	}

	rec := f.do(t, http.MethodGet, "/api/clients", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/clients", "", "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/clients", `{"name":"Acme"}`, "Authorization", tokenFor("t1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["client"].(map[string]any)["id"].(string)

	rec = f.do(t, http.MethodGet, "/api/clients/"+id, "", "Authorization", tokenFor("t1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/clients/"+id, "", "Authorization", tokenFor("t2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Health and webhook stay outside tenant auth.
	rec = f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookToSignals(t *testing.T) {
	f := newFixture(t, nil)
	f.caller.results["cron.add"] = `{"id":"job-1"}`
	id := f.createClient(t, `{"name":"Acme"}`)["id"].(string)

	callback := `{"action":"finished","jobId":"job-1","status":"ok","summary":"[{\"type\":\"hiring\",\"title\":\"Hiring SREs\",\"summary\":\"s\",\"confidence\":0.7}]"}`

	rec := f.do(t, http.MethodPost, "/api/webhooks/openclaw", callback, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/webhooks/openclaw", callback, "Authorization", "Bearer hook-secret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"signals":1}`, rec.Body.String())

	// Redelivery is acknowledged without storing twice.
	rec = f.do(t, http.MethodPost, "/api/webhooks/openclaw", callback, "Authorization", "Bearer hook-secret")
	assert.JSONEq(t, `{"ok":true,"signals":0,"skipped":true}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/signals?clientId="+id, "")
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total"])
	sig := body["signals"].([]any)[0].(map[string]any)
	assert.Equal(t, "Hiring SREs", sig["title"])
	assert.Equal(t, 0.7, sig["confidence"])

	rec = f.do(t, http.MethodGet, "/api/jobs", "")
	job := decode(t, rec)["jobs"].([]any)[0].(map[string]any)
	assert.Equal(t, "ok", job["lastStatus"])
	assert.NotNil(t, job["lastRunAt"])
}
