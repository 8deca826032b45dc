// ABOUTME: Entry point for the trendclaw monitoring service
// ABOUTME: Serves the tenant API and drives scans through the agent gateway

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/trendclaw/internal/auth"
	"github.com/2389/trendclaw/internal/config"
	"github.com/2389/trendclaw/internal/gateway"
	"github.com/2389/trendclaw/internal/identity"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _                      _      _
| |_ _ __ ___ _ __   __| | ___| | __ ___      __
| __| '__/ _ \ '_ \ / _' |/ __| |/ _' \ \ /\ / /
| |_| | |  __/ | | | (_| | (__| | (_| |\ V  V /
 \__|_|  \___|_| |_|\__,_|\___|_|\__,_| \_/\_/
`

// getConfigPath returns the path to the config file.
// Priority: TRENDCLAW_CONFIG env var > XDG_CONFIG_HOME/trendclaw/config.yaml > ~/.config/trendclaw/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TRENDCLAW_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "trendclaw", "config.yaml")
}

// getDataPath returns the path to the trendclaw data directory.
// Priority: XDG_DATA_HOME/trendclaw > ~/.local/share/trendclaw
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "trendclaw")
}

// identityPath returns the configured device identity file or the data directory default.
func identityPath(cfg *config.Config) string {
	if cfg.Gateway.IdentityPath != "" {
		return cfg.Gateway.IdentityPath
	}
	return filepath.Join(getDataPath(), "identity", "device.json")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: trendclaw <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                      Start the service")
		fmt.Println("  init                       Create a new config file interactively")
		fmt.Println("  identity                   Show the device identity used with the agent gateway")
		fmt.Println("  token --tenant ID [--user ID] [--ttl 720h]")
		fmt.Println("                             Issue a tenant API token")
		fmt.Println("  health                     Check service health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin)
	case "identity":
		err = runIdentity()
	case "token":
		err = runToken(os.Args[2:])
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	id, err := identity.LoadOrCreate(identityPath(cfg))
	if err != nil {
		return fmt.Errorf("loading device identity: %w", err)
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Gateway:   %s\n", cfg.Gateway.URL)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Device:    ")
	gray.Println(id.DeviceID)
	if cfg.Auth.JWTSecret == "" {
		yellow.Println("    ! no jwt_secret configured, API runs as the default tenant")
	}
	fmt.Println()

	logger.Info("starting trendclaw",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"gateway_url", cfg.Gateway.URL,
		"device_id", id.DeviceID,
	)

	gw, err := gateway.New(ctx, cfg, id, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func runIdentity() error {
	cfg, err := config.LoadOrDefault(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := identityPath(cfg)
	id, err := identity.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("loading device identity: %w", err)
	}
	key, err := id.AuthorizedKey()
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("  Device Identity")
	cyan.Println("  ---------------")
	fmt.Printf("  File:      %s\n", path)
	fmt.Printf("  Device ID: %s\n", id.DeviceID)
	fmt.Printf("  Key:       %s\n", key)
	return nil
}

// parseTokenArgs reads --tenant, --user, and --ttl in "--flag value" or "--flag=value" form.
func parseTokenArgs(args []string) (auth.Identity, time.Duration, error) {
	var id auth.Identity
	ttl := 30 * 24 * time.Hour

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, inline := strings.Cut(arg, "=")
		switch name {
		case "--tenant", "--user", "--ttl":
		default:
			if strings.HasPrefix(arg, "-") {
				return id, 0, fmt.Errorf("unknown flag: %s", arg)
			}
			return id, 0, fmt.Errorf("unexpected argument: %s", arg)
		}
		if !inline {
			if i+1 >= len(args) {
				return id, 0, fmt.Errorf("%s requires a value", name)
			}
			value = args[i+1]
			i++
		}

		switch name {
		case "--tenant":
			id.TenantID = strings.TrimSpace(value)
		case "--user":
			id.UserID = strings.TrimSpace(value)
		case "--ttl":
			d, err := time.ParseDuration(value)
			if err != nil || d <= 0 {
				return id, 0, fmt.Errorf("invalid --ttl %q", value)
			}
			ttl = d
		}
	}

	if id.TenantID == "" {
		return id, 0, fmt.Errorf("--tenant flag is required")
	}
	if id.UserID == "" {
		id.UserID = id.TenantID
	}
	return id, ttl, nil
}

func runToken(args []string) error {
	id, ttl, err := parseTokenArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(id, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// healthURL turns a listen address into a URL reachable from this host.
func healthURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("http://%s/health/ready", addr)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/health/ready", net.JoinHostPort(host, port))
}

func runHealth(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(cfg.Server.HTTPAddr), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println("healthy")
	return nil
}

func runInit(in io.Reader) error {
	reader := bufio.NewReader(in)

	fmt.Println("trendclaw configuration setup")
	fmt.Println("=============================")
	fmt.Println()

	defaultDBPath := filepath.Join(getDataPath(), "trendclaw.db")

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)
	publicURL := prompt(reader, "Public URL (webhook callbacks)", config.DefaultPublicURL)

	fmt.Println("\n--- Agent Gateway ---")
	gatewayURL := prompt(reader, "Gateway URL", config.DefaultGatewayURL)
	gatewayToken := prompt(reader, "Gateway token (leave empty for none)", "")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDBPath)

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	jwtSecret, err := randomSecret()
	if err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	webhookToken, err := randomSecret()
	if err != nil {
		return fmt.Errorf("generating webhook token: %w", err)
	}

	var cfg strings.Builder
	cfg.WriteString("# trendclaw configuration\n")
	cfg.WriteString("# Generated by trendclaw init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString(fmt.Sprintf("  public_url: %q\n", publicURL))
	cfg.WriteString("\n")

	cfg.WriteString("gateway:\n")
	cfg.WriteString(fmt.Sprintf("  url: %q\n", gatewayURL))
	if gatewayToken != "" {
		cfg.WriteString(fmt.Sprintf("  token: %q\n", gatewayToken))
	}
	cfg.WriteString("  request_timeout: \"30s\"\n")
	cfg.WriteString("  reconnect_delay: \"5s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("webhook:\n")
	cfg.WriteString(fmt.Sprintf("  token: %q\n", webhookToken))
	cfg.WriteString("  dedupe_window: \"10m\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString("  driver: \"sqlite\"\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", jwtSecret))
	cfg.WriteString("\n")

	cfg.WriteString("monitoring:\n")
	cfg.WriteString("  max_clients_per_tenant: 0\n")
	cfg.WriteString("  interval: \"12h\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString("  path: \"/metrics\"\n")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Secrets live in this file.
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  trendclaw serve\n")

	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
