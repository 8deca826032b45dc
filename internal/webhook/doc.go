// Package webhook ingests job completions delivered by the agent gateway.
//
// The gateway POSTs {action, jobId, status, summary} to
// /api/webhooks/openclaw when a provisioned job finishes. The summary is the
// agent's free-text answer, which is asked to be a JSON array of signals but
// is not guaranteed to be.
//
// # Pipeline
//
//  1. Token check (Handler): constant-time bearer comparison. An empty token
//     skips the check. A mismatch is 401 unless AllowUnauthenticated is set.
//  2. Actions other than "finished" are acknowledged and ignored.
//  3. The job is looked up by remote id; unknown jobs are 404.
//  4. lastRunAt and lastStatus are recorded for every matched job.
//  5. A non-ok status or empty summary stores nothing.
//  6. signals.Extract recovers entries; NotJSON is a soft failure.
//  7. Entries become signals owned by the job's client or niche and are
//     inserted in one batch. A storage failure is 500 so the sender retries.
//
// Identical redeliveries inside the dedupe window are acknowledged with
// skipped:true once a delivery has been stored.
package webhook
