// Package config handles configuration loading for trendclaw.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by extension)
// with environment variable expansion, then defaults and deployment
// environment overrides are applied and the result is validated. A missing
// file is not an error for LoadOrDefault; the service then runs on defaults
// and environment variables alone.
//
// # Configuration File
//
// The CLI looks in order at:
//
//  1. Path from the TRENDCLAW_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/trendclaw/config.yaml
//  3. ~/.config/trendclaw/config.yaml
//
// # Environment Variable Expansion
//
//	gateway:
//	  token: "${OPENCLAW_GATEWAY_TOKEN}"
//
// # Environment Overrides
//
// These win over file values:
//
//	OPENCLAW_GATEWAY_URL    gateway.url
//	OPENCLAW_GATEWAY_TOKEN  gateway.token
//	OPENCLAW_WEBHOOK_TOKEN  webhook.token
//	BACKEND_URL             server.public_url
//	DATABASE_URL            postgres:// selects the postgres driver, anything else is a sqlite path
//	JWT_SECRET              auth.jwt_secret
//	PORT                    server.http_addr becomes ":<PORT>"
//
// # Configuration Sections
//
//	server:
//	  http_addr: ":4000"
//	  public_url: "https://trendclaw.example.com"
//
//	gateway:
//	  url: "ws://localhost:18789"
//	  token: ""
//	  identity_path: ""          # defaults to the data directory
//	  handshake_timeout: "15s"
//	  request_timeout: "30s"
//	  reconnect_delay: "5s"
//
//	webhook:
//	  token: "${OPENCLAW_WEBHOOK_TOKEN}"
//	  allow_unauthenticated: false
//	  dedupe_window: "10m"
//
//	database:
//	  driver: "sqlite"           # sqlite, postgres
//	  path: "./trendclaw.db"
//	  dsn: ""
//	  max_conns: 10
//
//	auth:
//	  jwt_secret: "${JWT_SECRET}" # empty runs the API as tenant "default"
//
//	monitoring:
//	  interval: "12h"
//	  max_clients_per_tenant: 0  # 0 = unlimited
//
//	logging:
//	  level: "info"              # debug, info, warn, error
//	  format: "text"             # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// Duration values use Go's time.ParseDuration syntax and must be positive.
package config
