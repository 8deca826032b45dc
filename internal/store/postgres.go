// ABOUTME: Postgres implementation of the Store interface using pgx/v5
// ABOUTME: Bulk signal inserts go through COPY; schema is bootstrapped on open

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for a UNIQUE constraint failure.
const uniqueViolation = "23505"

// pgPool is the subset of *pgxpool.Pool the store uses, so tests can supply pgxmock.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresConfig controls the connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// PostgresStore implements Store on Postgres.
type PostgresStore struct {
	pool   pgPool
	logger *slog.Logger
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
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
		custom_urls        TEXT[] NOT NULL DEFAULT '{}',
		keywords           TEXT[] NOT NULL DEFAULT '{}',
		monitor_categories TEXT[] NOT NULL DEFAULT '{}',
		is_active          BOOLEAN NOT NULL DEFAULT TRUE,
		remote_job_id      TEXT NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_tenant ON clients(tenant_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS niches (
		id            TEXT PRIMARY KEY,
		tenant_id     TEXT NOT NULL,
		name          TEXT NOT NULL,
		keywords      TEXT[] NOT NULL DEFAULT '{}',
		sources       TEXT[] NOT NULL DEFAULT '{}',
		remote_job_id TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_niches_tenant ON niches(tenant_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS monitoring_jobs (
		id            TEXT PRIMARY KEY,
		tenant_id     TEXT NOT NULL,
		remote_job_id TEXT NOT NULL UNIQUE,
		job_type      TEXT NOT NULL CHECK (job_type IN ('client', 'niche')),
		target_id     TEXT NOT NULL,
		schedule      TEXT NOT NULL,
		last_run_at   TIMESTAMPTZ,
		last_status   TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_tenant ON monitoring_jobs(tenant_id)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id          TEXT PRIMARY KEY,
		tenant_id   TEXT NOT NULL,
		client_id   TEXT,
		niche_id    TEXT,
		type        TEXT NOT NULL,
		title       TEXT NOT NULL,
		summary     TEXT NOT NULL DEFAULT '',
		source_url  TEXT,
		source_name TEXT,
		confidence  DOUBLE PRECISION NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
		raw_data    JSONB,
		detected_at TIMESTAMPTZ NOT NULL,
		CHECK ((client_id IS NULL) <> (niche_id IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_tenant_detected ON signals(tenant_id, detected_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_client ON signals(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_niche ON signals(niche_id)`,
}

// NewPostgresStore connects to Postgres and bootstraps the schema.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := newPostgresStoreWithPool(pool)
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	s.logger.Info("Postgres store initialized", "max_conns", poolCfg.MaxConns)
	return s, nil
}

func newPostgresStoreWithPool(pool pgPool) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: slog.Default().With("component", "store"),
	}
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing Postgres store")
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func optionalText(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// CreateJob inserts a monitoring job.
func (s *PostgresStore) CreateJob(ctx context.Context, job *MonitoringJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO monitoring_jobs (id, tenant_id, remote_job_id, job_type, target_id, schedule, last_run_at, last_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.TenantID, job.RemoteJobID, string(job.JobType), job.TargetID, job.Schedule,
		job.LastRunAt, job.LastStatus, job.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateJob
		}
		return fmt.Errorf("insert monitoring job: %w", err)
	}
	return nil
}

func scanPgJob(row pgx.Row) (*MonitoringJob, error) {
	var job MonitoringJob
	var jobType string
	if err := row.Scan(
		&job.ID, &job.TenantID, &job.RemoteJobID, &jobType, &job.TargetID, &job.Schedule,
		&job.LastRunAt, &job.LastStatus, &job.CreatedAt,
	); err != nil {
		return nil, err
	}
	job.JobType = JobType(jobType)
	return &job, nil
}

// GetJobByRemoteID retrieves a job by the gateway's id.
func (s *PostgresStore) GetJobByRemoteID(ctx context.Context, remoteJobID string) (*MonitoringJob, error) {
	job, err := scanPgJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM monitoring_jobs WHERE remote_job_id = $1`, remoteJobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query monitoring job: %w", err)
	}
	return job, nil
}

// ListJobs returns a tenant's jobs, oldest first.
func (s *PostgresStore) ListJobs(ctx context.Context, tenantID string) ([]*MonitoringJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM monitoring_jobs WHERE tenant_id = $1 ORDER BY created_at ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query monitoring jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*MonitoringJob{}
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitoring job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// RecordJobRun stamps the latest run.
func (s *PostgresStore) RecordJobRun(ctx context.Context, remoteJobID string, at time.Time, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE monitoring_jobs SET last_run_at = $1, last_status = $2 WHERE remote_job_id = $3`,
		at.UTC(), status, remoteJobID)
	if err != nil {
		return fmt.Errorf("update monitoring job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteJobByRemoteID removes a job if present.
func (s *PostgresStore) DeleteJobByRemoteID(ctx context.Context, remoteJobID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM monitoring_jobs WHERE remote_job_id = $1`, remoteJobID); err != nil {
		return fmt.Errorf("delete monitoring job: %w", err)
	}
	return nil
}

var signalCopyColumns = []string{
	"id", "tenant_id", "client_id", "niche_id", "type", "title", "summary",
	"source_url", "source_name", "confidence", "raw_data", "detected_at",
}

// CreateSignals writes all signals with one COPY.
func (s *PostgresStore) CreateSignals(ctx context.Context, signals []*Signal) (int, error) {
	if len(signals) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for _, sig := range signals {
		prepareSignal(sig, now)
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"signals"}, signalCopyColumns,
		pgx.CopyFromSlice(len(signals), func(i int) ([]any, error) {
			sig := signals[i]
			var raw any
			if len(sig.RawData) > 0 {
				raw = []byte(sig.RawData)
			}
			return []any{
				sig.ID, sig.TenantID, nullString(sig.ClientID), nullString(sig.NicheID),
				sig.Type, sig.Title, sig.Summary, nullString(sig.SourceURL), nullString(sig.SourceName),
				sig.Confidence, raw, sig.DetectedAt.UTC(),
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy signals: %w", err)
	}
	s.logger.Debug("stored signals", "count", n)
	return int(n), nil
}

// signalWhere builds the WHERE clause and args shared by the count and page queries.
func signalWhere(f SignalFilter) (string, []any) {
	where := []string{"tenant_id = $1"}
	args := []any{f.TenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.NicheID != "" {
		add("niche_id = $%d", f.NicheID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if !f.From.IsZero() {
		add("detected_at >= $%d", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("detected_at <= $%d", f.To.UTC())
	}
	return strings.Join(where, " AND "), args
}

// ListSignals returns one page newest first plus the total.
func (s *PostgresStore) ListSignals(ctx context.Context, f SignalFilter) ([]*Signal, int, error) {
	clause, args := signalWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM signals WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count signals: %w", err)
	}

	limit, offset := f.pageBounds()
	page := fmt.Sprintf(" ORDER BY detected_at DESC, id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, `
SELECT id, tenant_id, client_id, niche_id, type, title, summary, source_url, source_name, confidence, raw_data, detected_at
FROM signals WHERE `+clause+page, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	out := []*Signal{}
	for rows.Next() {
		var sig Signal
		var clientID, nicheID, sourceURL, sourceName *string
		var raw []byte
		if err := rows.Scan(
			&sig.ID, &sig.TenantID, &clientID, &nicheID, &sig.Type, &sig.Title, &sig.Summary,
			&sourceURL, &sourceName, &sig.Confidence, &raw, &sig.DetectedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan signal: %w", err)
		}
		sig.ClientID = optionalText(clientID)
		sig.NicheID = optionalText(nicheID)
		sig.SourceURL = optionalText(sourceURL)
		sig.SourceName = optionalText(sourceName)
		if len(raw) > 0 {
			sig.RawData = raw
		}
		out = append(out, &sig)
	}
	return out, total, rows.Err()
}

// CreateClient inserts a client.
func (s *PostgresStore) CreateClient(ctx context.Context, c *Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt

	_, err := s.pool.Exec(ctx, `
INSERT INTO clients (id, tenant_id, name, domain, description, industry, linkedin_url, twitter_url,
	facebook_url, instagram_url, custom_urls, keywords, monitor_categories, is_active, remote_job_id,
	created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID, c.TenantID, c.Name, c.Domain, c.Description, c.Industry, c.LinkedInURL, c.TwitterURL,
		c.FacebookURL, c.InstagramURL, nonNil(c.CustomURLs), nonNil(c.Keywords), nonNil(c.MonitorCategories),
		c.IsActive, c.RemoteJobID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func scanPgClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Domain, &c.Description, &c.Industry, &c.LinkedInURL, &c.TwitterURL,
		&c.FacebookURL, &c.InstagramURL, &c.CustomURLs, &c.Keywords, &c.MonitorCategories, &c.IsActive,
		&c.RemoteJobID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.CustomURLs = nonNil(c.CustomURLs)
	c.Keywords = nonNil(c.Keywords)
	c.MonitorCategories = nonNil(c.MonitorCategories)
	return &c, nil
}

// GetClient retrieves a tenant's client.
func (s *PostgresStore) GetClient(ctx context.Context, tenantID, id string) (*Client, error) {
	c, err := scanPgClient(s.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query client: %w", err)
	}
	return c, nil
}

// ListClients returns a tenant's clients, newest first.
func (s *PostgresStore) ListClients(ctx context.Context, tenantID string) ([]*Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	clients := []*Client{}
	for rows.Next() {
		c, err := scanPgClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CountClients counts a tenant's clients.
func (s *PostgresStore) CountClients(ctx context.Context, tenantID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE tenant_id = $1`, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return n, nil
}

// UpdateClient overwrites a client's mutable fields.
func (s *PostgresStore) UpdateClient(ctx context.Context, c *Client) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
UPDATE clients SET name = $1, domain = $2, description = $3, industry = $4, linkedin_url = $5,
	twitter_url = $6, facebook_url = $7, instagram_url = $8, custom_urls = $9, keywords = $10,
	monitor_categories = $11, is_active = $12, remote_job_id = $13, updated_at = $14
WHERE id = $15 AND tenant_id = $16`,
		c.Name, c.Domain, c.Description, c.Industry, c.LinkedInURL,
		c.TwitterURL, c.FacebookURL, c.InstagramURL, nonNil(c.CustomURLs), nonNil(c.Keywords),
		nonNil(c.MonitorCategories), c.IsActive, c.RemoteJobID, c.UpdatedAt,
		c.ID, c.TenantID,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient removes a client and its signals in one transaction.
func (s *PostgresStore) DeleteClient(ctx context.Context, tenantID, id string) error {
	return s.deleteWithSignals(ctx, "clients", "client_id", tenantID, id)
}

func (s *PostgresStore) deleteWithSignals(ctx context.Context, table, signalColumn, tenantID, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM signals WHERE `+signalColumn+` = $1 AND tenant_id = $2`, id, tenantID); err != nil {
		return fmt.Errorf("delete signals: %w", err)
	}
	return tx.Commit(ctx)
}

// CreateNiche inserts a niche.
func (s *PostgresStore) CreateNiche(ctx context.Context, n *Niche) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.UpdatedAt = n.CreatedAt

	_, err := s.pool.Exec(ctx, `
INSERT INTO niches (id, tenant_id, name, keywords, sources, remote_job_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.TenantID, n.Name, nonNil(n.Keywords), nonNil(n.Sources), n.RemoteJobID, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert niche: %w", err)
	}
	return nil
}

func scanPgNiche(row pgx.Row) (*Niche, error) {
	var n Niche
	if err := row.Scan(&n.ID, &n.TenantID, &n.Name, &n.Keywords, &n.Sources, &n.RemoteJobID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Keywords = nonNil(n.Keywords)
	n.Sources = nonNil(n.Sources)
	return &n, nil
}

// GetNiche retrieves a tenant's niche.
func (s *PostgresStore) GetNiche(ctx context.Context, tenantID, id string) (*Niche, error) {
	n, err := scanPgNiche(s.pool.QueryRow(ctx,
		`SELECT `+nicheColumns+` FROM niches WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query niche: %w", err)
	}
	return n, nil
}

// ListNiches returns a tenant's niches, newest first.
func (s *PostgresStore) ListNiches(ctx context.Context, tenantID string) ([]*Niche, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+nicheColumns+` FROM niches WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query niches: %w", err)
	}
	defer rows.Close()

	niches := []*Niche{}
	for rows.Next() {
		n, err := scanPgNiche(rows)
		if err != nil {
			return nil, fmt.Errorf("scan niche: %w", err)
		}
		niches = append(niches, n)
	}
	return niches, rows.Err()
}

// UpdateNiche overwrites a niche's mutable fields.
func (s *PostgresStore) UpdateNiche(ctx context.Context, n *Niche) error {
	n.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
UPDATE niches SET name = $1, keywords = $2, sources = $3, remote_job_id = $4, updated_at = $5
WHERE id = $6 AND tenant_id = $7`,
		n.Name, nonNil(n.Keywords), nonNil(n.Sources), n.RemoteJobID, n.UpdatedAt, n.ID, n.TenantID,
	)
	if err != nil {
		return fmt.Errorf("update niche: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNiche removes a niche and its signals in one transaction.
func (s *PostgresStore) DeleteNiche(ctx context.Context, tenantID, id string) error {
	return s.deleteWithSignals(ctx, "niches", "niche_id", tenantID, id)
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)
