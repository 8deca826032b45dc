// Package auth authenticates callers of the trendclaw HTTP surface.
//
// # Tenant API
//
// Dashboard users call the tenant API with an HS256 JWT:
//
//	Authorization: Bearer <jwt>
//
// The token must carry a user ("sub", or "userId") and a tenant ("tenant_id",
// or "tenantId"). HTTPAuthMiddleware verifies it and stores the Identity in
// the request context; handlers read it back with FromContext or TenantID.
// Token issuance belongs to the dashboard's session service. Generate exists
// for the CLI and tests.
//
// Without a configured secret, DevMiddleware runs every request as tenant
// "default" and logs a warning once.
//
// # Webhook
//
// Gateway callbacks carry a pre-shared token. BearerMatches compares it in
// constant time; the webhook package decides what a mismatch means.
package auth
