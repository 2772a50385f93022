package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"logforge/core"
)

// SQLite writes records into a local SQLite database file.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

const sqliteRecordsDDL = `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		source_type TEXT NOT NULL,
		message TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		correlation_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		is_anomaly INTEGER NOT NULL DEFAULT 0,
		anomaly_type TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_records_source_type ON records(source_type);
	CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_records_correlation_id ON records(correlation_id);
`

// NewSQLite opens the database file, applies the connection pragmas, and
// creates the records table if it does not exist.
func NewSQLite(path string, logger *zap.SugaredLogger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// WAL mode supports a single writer; one connection avoids
	// SQLITE_BUSY contention between our own writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteRecordsDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create records table: %w", err)
	}

	logger.Infow("Opened SQLite database", "path", path)

	return &SQLite{db: db, path: path, logger: logger}, nil
}

// Name identifies the sink.
func (s *SQLite) Name() string { return "sqlite" }

// WriteBatch inserts the records in a single transaction. Records whose ID
// is already present are replaced.
func (s *SQLite) WriteBatch(ctx context.Context, records []*core.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records (
			id, timestamp, level, source_type, message, raw_text,
			correlation_id, request_id, session_id, ip_address,
			is_anomaly, anomaly_type, severity, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ID,
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			string(rec.Level),
			string(rec.SourceType),
			rec.Message,
			rec.RawText,
			rec.CorrelationID,
			rec.RequestID,
			rec.SessionID,
			rec.IPAddress,
			rec.IsAnomaly,
			string(rec.AnomalyType),
			string(rec.Severity),
			detailJSON(rec),
		)
		if err != nil {
			return fmt.Errorf("batch insert failed at record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close(ctx context.Context) error {
	return s.db.Close()
}
