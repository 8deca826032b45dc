// Package monitor provisions and manages the recurring gateway jobs that scan
// clients and niches.
//
// Each monitored entity maps to one remote cron job named
// tc:<tenant>:<entity>:<type>, created with cron.add. The job runs every 12
// hours in an isolated session, fires once immediately, and delivers its
// result to this service's webhook. The returned remote job id is stored as a
// MonitoringJob and on the entity itself; it is the only key webhook
// ingestion uses to find the owner of a completion.
//
// Provisioning degrades gracefully: when the gateway is not connected, or
// cron.add returns no id, nothing is persisted and "" is returned so the
// caller can retry later (for example on a manual rescan). Deprovisioning
// always deletes the local record even if the remote removal fails.
//
// ForceRun and the diagnostic reads (ListRemoteJobs, JobStatus, JobRuns)
// fail fast with ErrUnavailable when the gateway is down.
package monitor
