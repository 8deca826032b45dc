// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Persists clients, niches, monitoring jobs, and signals with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeFormat sorts lexicographically, so range filters compare as strings.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Webhook bursts write concurrently; wait on the lock instead of failing.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS clients (
			id                 TEXT PRIMARY KEY,
			tenant_id          TEXT NOT NULL,
			name               TEXT NOT NULL,
			domain             TEXT NOT NULL DEFAULT '',
			description        TEXT NOT NULL DEFAULT '',
			industry           TEXT NOT NULL DEFAULT '',
			linkedin_url       TEXT NOT NULL DEFAULT '',
			twitter_url        TEXT NOT NULL DEFAULT '',
			facebook_url       TEXT NOT NULL DEFAULT '',
			instagram_url      TEXT NOT NULL DEFAULT '',
			custom_urls        TEXT NOT NULL DEFAULT '[]',
			keywords           TEXT NOT NULL DEFAULT '[]',
			monitor_categories TEXT NOT NULL DEFAULT '[]',
			is_active          INTEGER NOT NULL DEFAULT 1,
			remote_job_id      TEXT NOT NULL DEFAULT '',
			created_at         TEXT NOT NULL,
			updated_at         TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_clients_tenant ON clients(tenant_id, created_at);

		CREATE TABLE IF NOT EXISTS niches (
			id            TEXT PRIMARY KEY,
			tenant_id     TEXT NOT NULL,
			name          TEXT NOT NULL,
			keywords      TEXT NOT NULL DEFAULT '[]',
			sources       TEXT NOT NULL DEFAULT '[]',
			remote_job_id TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_niches_tenant ON niches(tenant_id, created_at);

		CREATE TABLE IF NOT EXISTS monitoring_jobs (
			id            TEXT PRIMARY KEY,
			tenant_id     TEXT NOT NULL,
			remote_job_id TEXT NOT NULL UNIQUE,
			job_type      TEXT NOT NULL,
			target_id     TEXT NOT NULL,
			schedule      TEXT NOT NULL,
			last_run_at   TEXT,
			last_status   TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,

			CHECK (job_type IN ('client', 'niche'))
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_tenant ON monitoring_jobs(tenant_id);

		CREATE TABLE IF NOT EXISTS signals (
			id          TEXT PRIMARY KEY,
			tenant_id   TEXT NOT NULL,
			client_id   TEXT,
			niche_id    TEXT,
			type        TEXT NOT NULL,
			title       TEXT NOT NULL,
			summary     TEXT NOT NULL DEFAULT '',
			source_url  TEXT,
			source_name TEXT,
			confidence  REAL NOT NULL,
			raw_data    TEXT,
			detected_at TEXT NOT NULL,

			CHECK ((client_id IS NULL) <> (niche_id IS NULL)),
			CHECK (confidence >= 0 AND confidence <= 1)
		);

		CREATE INDEX IF NOT EXISTS idx_signals_tenant_detected ON signals(tenant_id, detected_at DESC);
		CREATE INDEX IF NOT EXISTS idx_signals_client ON signals(client_id);
		CREATE INDEX IF NOT EXISTS idx_signals_niche ON signals(niche_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func decodeList(s string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ---------------------------------------------------------------------------
// Monitoring jobs
// ---------------------------------------------------------------------------

// CreateJob inserts a monitoring job.
// Returns ErrDuplicateJob if the remote job id is already tracked.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *MonitoringJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	var lastRun any
	if job.LastRunAt != nil {
		lastRun = formatTime(*job.LastRunAt)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitoring_jobs (id, tenant_id, remote_job_id, job_type, target_id, schedule, last_run_at, last_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		job.TenantID,
		job.RemoteJobID,
		string(job.JobType),
		job.TargetID,
		job.Schedule,
		lastRun,
		job.LastStatus,
		formatTime(job.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateJob
		}
		return fmt.Errorf("inserting monitoring job: %w", err)
	}

	s.logger.Debug("created monitoring job", "id", job.ID, "remote_job_id", job.RemoteJobID, "type", job.JobType)
	return nil
}

const jobColumns = `id, tenant_id, remote_job_id, job_type, target_id, schedule, last_run_at, last_status, created_at`

func scanJob(row rowScanner) (*MonitoringJob, error) {
	var job MonitoringJob
	var jobType, createdAt string
	var lastRun sql.NullString

	if err := row.Scan(
		&job.ID,
		&job.TenantID,
		&job.RemoteJobID,
		&jobType,
		&job.TargetID,
		&job.Schedule,
		&lastRun,
		&job.LastStatus,
		&createdAt,
	); err != nil {
		return nil, err
	}
	job.JobType = JobType(jobType)

	var err error
	job.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if lastRun.Valid {
		t, err := parseTime(lastRun.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_run_at: %w", err)
		}
		job.LastRunAt = &t
	}
	return &job, nil
}

// GetJobByRemoteID retrieves a monitoring job by the gateway's job id.
// Returns ErrNotFound if the job is not tracked.
func (s *SQLiteStore) GetJobByRemoteID(ctx context.Context, remoteJobID string) (*MonitoringJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM monitoring_jobs WHERE remote_job_id = ?`, remoteJobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying monitoring job: %w", err)
	}
	return job, nil
}

// ListJobs returns a tenant's monitoring jobs, oldest first.
func (s *SQLiteStore) ListJobs(ctx context.Context, tenantID string) ([]*MonitoringJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM monitoring_jobs WHERE tenant_id = ? ORDER BY created_at ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying monitoring jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*MonitoringJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning monitoring job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// RecordJobRun stamps the latest run time and status.
// Returns ErrNotFound if the job is not tracked.
func (s *SQLiteStore) RecordJobRun(ctx context.Context, remoteJobID string, at time.Time, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE monitoring_jobs SET last_run_at = ?, last_status = ? WHERE remote_job_id = ?`,
		formatTime(at), status, remoteJobID,
	)
	if err != nil {
		return fmt.Errorf("updating monitoring job: %w", err)
	}
	return requireAffected(result)
}

// DeleteJobByRemoteID removes a monitoring job. Deleting an untracked job is not an error.
func (s *SQLiteStore) DeleteJobByRemoteID(ctx context.Context, remoteJobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM monitoring_jobs WHERE remote_job_id = ?`, remoteJobID); err != nil {
		return fmt.Errorf("deleting monitoring job: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// CreateSignals inserts signals in a single transaction and returns how many were stored.
func (s *SQLiteStore) CreateSignals(ctx context.Context, signals []*Signal) (int, error) {
	if len(signals) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (id, tenant_id, client_id, niche_id, type, title, summary, source_url, source_name, confidence, raw_data, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing signal insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, sig := range signals {
		prepareSignal(sig, now)
		if _, err := stmt.ExecContext(ctx,
			sig.ID,
			sig.TenantID,
			nullString(sig.ClientID),
			nullString(sig.NicheID),
			sig.Type,
			sig.Title,
			sig.Summary,
			nullString(sig.SourceURL),
			nullString(sig.SourceName),
			sig.Confidence,
			nullRaw(sig.RawData),
			formatTime(sig.DetectedAt),
		); err != nil {
			return 0, fmt.Errorf("inserting signal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing signals: %w", err)
	}
	s.logger.Debug("stored signals", "count", len(signals))
	return len(signals), nil
}

// prepareSignal fills generated fields.
func prepareSignal(sig *Signal, now time.Time) {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.DetectedAt.IsZero() {
		sig.DetectedAt = now
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// ListSignals returns one page of signals matching filter, newest first, plus the total.
func (s *SQLiteStore) ListSignals(ctx context.Context, filter SignalFilter) ([]*Signal, int, error) {
	where := []string{"tenant_id = ?"}
	args := []any{filter.TenantID}
	if filter.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.NicheID != "" {
		where = append(where, "niche_id = ?")
		args = append(args, filter.NicheID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if !filter.From.IsZero() {
		where = append(where, "detected_at >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "detected_at <= ?")
		args = append(args, formatTime(filter.To))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting signals: %w", err)
	}

	limit, offset := filter.pageBounds()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, client_id, niche_id, type, title, summary, source_url, source_name, confidence, raw_data, detected_at
		FROM signals
		WHERE `+clause+`
		ORDER BY detected_at DESC, id ASC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying signals: %w", err)
	}
	defer rows.Close()

	out := []*Signal{}
	for rows.Next() {
		var sig Signal
		var clientID, nicheID, sourceURL, sourceName, raw sql.NullString
		var detectedAt string
		if err := rows.Scan(
			&sig.ID,
			&sig.TenantID,
			&clientID,
			&nicheID,
			&sig.Type,
			&sig.Title,
			&sig.Summary,
			&sourceURL,
			&sourceName,
			&sig.Confidence,
			&raw,
			&detectedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning signal: %w", err)
		}
		sig.ClientID = clientID.String
		sig.NicheID = nicheID.String
		sig.SourceURL = sourceURL.String
		sig.SourceName = sourceName.String
		if raw.Valid {
			sig.RawData = json.RawMessage(raw.String)
		}
		sig.DetectedAt, err = parseTime(detectedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("parsing detected_at: %w", err)
		}
		out = append(out, &sig)
	}
	return out, total, rows.Err()
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

// CreateClient inserts a client, assigning an id and timestamps if unset.
func (s *SQLiteStore) CreateClient(ctx context.Context, c *Client) error {
	now := time.Now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, tenant_id, name, domain, description, industry, linkedin_url, twitter_url,
			facebook_url, instagram_url, custom_urls, keywords, monitor_categories, is_active, remote_job_id,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.TenantID, c.Name, c.Domain, c.Description, c.Industry, c.LinkedInURL, c.TwitterURL,
		c.FacebookURL, c.InstagramURL, encodeList(c.CustomURLs), encodeList(c.Keywords),
		encodeList(c.MonitorCategories), c.IsActive, c.RemoteJobID,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting client: %w", err)
	}
	return nil
}

const clientColumns = `id, tenant_id, name, domain, description, industry, linkedin_url, twitter_url,
	facebook_url, instagram_url, custom_urls, keywords, monitor_categories, is_active, remote_job_id,
	created_at, updated_at`

func scanClient(row rowScanner) (*Client, error) {
	var c Client
	var customURLs, keywords, categories, createdAt, updatedAt string
	if err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Domain, &c.Description, &c.Industry, &c.LinkedInURL, &c.TwitterURL,
		&c.FacebookURL, &c.InstagramURL, &customURLs, &keywords, &categories, &c.IsActive, &c.RemoteJobID,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if c.CustomURLs, err = decodeList(customURLs); err != nil {
		return nil, fmt.Errorf("decoding custom_urls: %w", err)
	}
	if c.Keywords, err = decodeList(keywords); err != nil {
		return nil, fmt.Errorf("decoding keywords: %w", err)
	}
	if c.MonitorCategories, err = decodeList(categories); err != nil {
		return nil, fmt.Errorf("decoding monitor_categories: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &c, nil
}

// GetClient retrieves a tenant's client by id.
// Returns ErrNotFound if the client doesn't exist or belongs to another tenant.
func (s *SQLiteStore) GetClient(ctx context.Context, tenantID, id string) (*Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ? AND tenant_id = ?`, id, tenantID)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying client: %w", err)
	}
	return c, nil
}

// ListClients returns a tenant's clients, newest first.
func (s *SQLiteStore) ListClients(ctx context.Context, tenantID string) ([]*Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	defer rows.Close()

	clients := []*Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CountClients returns how many clients a tenant has.
func (s *SQLiteStore) CountClients(ctx context.Context, tenantID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients WHERE tenant_id = ?`, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting clients: %w", err)
	}
	return n, nil
}

// UpdateClient overwrites a client's mutable fields and bumps updated_at.
func (s *SQLiteStore) UpdateClient(ctx context.Context, c *Client) error {
	c.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE clients SET name = ?, domain = ?, description = ?, industry = ?, linkedin_url = ?,
			twitter_url = ?, facebook_url = ?, instagram_url = ?, custom_urls = ?, keywords = ?,
			monitor_categories = ?, is_active = ?, remote_job_id = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?
	`,
		c.Name, c.Domain, c.Description, c.Industry, c.LinkedInURL,
		c.TwitterURL, c.FacebookURL, c.InstagramURL, encodeList(c.CustomURLs), encodeList(c.Keywords),
		encodeList(c.MonitorCategories), c.IsActive, c.RemoteJobID, formatTime(c.UpdatedAt),
		c.ID, c.TenantID,
	)
	if err != nil {
		return fmt.Errorf("updating client: %w", err)
	}
	return requireAffected(result)
}

// DeleteClient removes a client and its signals.
// Returns ErrNotFound if the client doesn't exist.
func (s *SQLiteStore) DeleteClient(ctx context.Context, tenantID, id string) error {
	return s.deleteWithSignals(ctx, "clients", "client_id", tenantID, id)
}

func (s *SQLiteStore) deleteWithSignals(ctx context.Context, table, signalColumn, tenantID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM signals WHERE `+signalColumn+` = ? AND tenant_id = ?`, id, tenantID); err != nil {
		return fmt.Errorf("deleting signals: %w", err)
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Niches
// ---------------------------------------------------------------------------

// CreateNiche inserts a niche, assigning an id and timestamps if unset.
func (s *SQLiteStore) CreateNiche(ctx context.Context, n *Niche) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.UpdatedAt = n.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO niches (id, tenant_id, name, keywords, sources, remote_job_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.TenantID, n.Name, encodeList(n.Keywords), encodeList(n.Sources), n.RemoteJobID,
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting niche: %w", err)
	}
	return nil
}

const nicheColumns = `id, tenant_id, name, keywords, sources, remote_job_id, created_at, updated_at`

func scanNiche(row rowScanner) (*Niche, error) {
	var n Niche
	var keywords, sources, createdAt, updatedAt string
	if err := row.Scan(&n.ID, &n.TenantID, &n.Name, &keywords, &sources, &n.RemoteJobID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if n.Keywords, err = decodeList(keywords); err != nil {
		return nil, fmt.Errorf("decoding keywords: %w", err)
	}
	if n.Sources, err = decodeList(sources); err != nil {
		return nil, fmt.Errorf("decoding sources: %w", err)
	}
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &n, nil
}

// GetNiche retrieves a tenant's niche by id.
// Returns ErrNotFound if the niche doesn't exist or belongs to another tenant.
func (s *SQLiteStore) GetNiche(ctx context.Context, tenantID, id string) (*Niche, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nicheColumns+` FROM niches WHERE id = ? AND tenant_id = ?`, id, tenantID)
	n, err := scanNiche(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying niche: %w", err)
	}
	return n, nil
}

// ListNiches returns a tenant's niches, newest first.
func (s *SQLiteStore) ListNiches(ctx context.Context, tenantID string) ([]*Niche, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+nicheColumns+` FROM niches WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying niches: %w", err)
	}
	defer rows.Close()

	niches := []*Niche{}
	for rows.Next() {
		n, err := scanNiche(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning niche: %w", err)
		}
		niches = append(niches, n)
	}
	return niches, rows.Err()
}

// UpdateNiche overwrites a niche's mutable fields and bumps updated_at.
func (s *SQLiteStore) UpdateNiche(ctx context.Context, n *Niche) error {
	n.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE niches SET name = ?, keywords = ?, sources = ?, remote_job_id = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?
	`,
		n.Name, encodeList(n.Keywords), encodeList(n.Sources), n.RemoteJobID, formatTime(n.UpdatedAt),
		n.ID, n.TenantID,
	)
	if err != nil {
		return fmt.Errorf("updating niche: %w", err)
	}
	return requireAffected(result)
}

// DeleteNiche removes a niche and its signals.
// Returns ErrNotFound if the niche doesn't exist.
func (s *SQLiteStore) DeleteNiche(ctx context.Context, tenantID, id string) error {
	return s.deleteWithSignals(ctx, "niches", "niche_id", tenantID, id)
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
