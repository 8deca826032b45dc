// Package store provides persistent storage for trendclaw.
//
// # Architecture
//
// The store package uses an interface-driven architecture with three
// specialized interfaces combined into Store:
//
//   - JobStore: Monitoring jobs keyed by the gateway's remote job id
//   - SignalStore: Bulk signal inserts and filtered, paged reads
//   - EntityStore: Tenant-scoped clients and niches
//
// Three implementations satisfy Store:
//
//   - SQLiteStore: modernc.org/sqlite, one file, automatic schema
//   - PostgresStore: pgx/v5 connection pool, COPY for bulk signal inserts
//   - MockStore: in-memory, for service and handler tests
//
// # Data Models
//
//   - Client: A company monitored for buying signals
//   - Niche: A topic monitored for trending content
//   - MonitoringJob: Links a remote recurring job to its client or niche
//   - Signal: One finding; owned by exactly one client or niche
//
// Signals are only ever created by webhook ingestion and are never updated.
// Deleting a client or niche deletes its signals.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//
// Timestamps are stored as fixed-width UTC strings so range filters compare
// lexically. String lists are stored as JSON arrays.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist (or belongs to another tenant)
//   - ErrDuplicateJob: The remote job id is already tracked
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	store := store.NewMockStore()
//
// Use NewSQLiteStore(filepath.Join(t.TempDir(), "test.db")) for integration
// tests with real SQLite. PostgresStore is tested against pgxmock.
package store
