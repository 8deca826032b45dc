// Package dedupe suppresses duplicate webhook deliveries.
//
// The gateway may redeliver a completion it believes failed. Ingestion
// remembers DeliveryKey(jobId, status, summary) after signals are stored and
// acknowledges an identical delivery inside the window without storing again.
// Keys are only remembered after a successful store, so a delivery that
// failed with a storage error is processed again when retried.
package dedupe
