// Package gateway is the trendclaw composition root.
//
// # Overview
//
// Gateway owns every long-lived component: the store, the agent gateway
// client, the monitoring and webhook services, the delivery dedupe cache, and
// the HTTP server. New builds them from configuration; Run dials the agent
// gateway and serves HTTP until its context is canceled.
//
// # HTTP API
//
// Unauthenticated:
//
//	GET  /health                 liveness, always "OK"
//	GET  /health/ready           503 until the agent gateway handshake completes
//	GET  /api/health             {"status":"ok","gatewayConnected":bool}
//	POST /api/webhooks/openclaw  job completion callbacks (bearer token checked by the webhook handler)
//	GET  /metrics                Prometheus, when metrics.enabled
//
// Tenant scoped, behind a bearer JWT (or the default tenant when no
// auth.jwt_secret is configured):
//
//	GET|POST             /api/clients
//	GET|PATCH|DELETE     /api/clients/{id}
//	POST                 /api/clients/{id}/rescan
//	GET|POST             /api/niches
//	GET|PATCH|DELETE     /api/niches/{id}
//	POST                 /api/niches/{id}/rescan
//	GET                  /api/signals
//	GET                  /api/dashboard/stats
//	GET                  /api/jobs, /api/jobs/remote, /api/jobs/status
//	GET                  /api/jobs/{remoteId}/runs
//	POST                 /api/jobs/{remoteId}/run
//
// Errors are JSON objects of the form {"error": "..."}. Operations that need
// the agent gateway answer 503 while it is disconnected, except client and
// niche creation, which always succeed and leave the entity unprovisioned.
// A rescan that reaches the gateway but gets no job id back answers 502.
//
// # Shutdown
//
// Shutdown stops the HTTP server, closes the agent connection permanently,
// stops the dedupe sweeper, and closes the store. Errors are joined.
package gateway
