package sink

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"logforge/core"
)

// ClickHouseOptions configures the ClickHouse sink.
type ClickHouseOptions struct {
	Addr           string
	Database       string
	Username       string
	Password       string
	TLS            bool
	MaxPoolSize    int
	BatchSize      int
	Deduplication  bool
	DedupCacheSize int
}

// ClickHouse writes records into a MergeTree table. With deduplication
// enabled, record IDs already written through this sink are skipped.
type ClickHouse struct {
	conn      driver.Conn
	batchSize int
	dedup     *lru.Cache[string, bool]
	logger    *zap.SugaredLogger
}

const recordsTableDDL = `
	CREATE TABLE IF NOT EXISTS records (
		id String,
		timestamp DateTime64(3, 'UTC'),
		level LowCardinality(String),
		source_type LowCardinality(String),
		message String,
		raw_text String,
		correlation_id String,
		request_id String,
		session_id String,
		ip_address String,
		is_anomaly Bool,
		anomaly_type LowCardinality(String),
		severity LowCardinality(String),
		detail String,
		INDEX idx_source_type source_type TYPE set(0) GRANULARITY 1,
		INDEX idx_level level TYPE set(0) GRANULARITY 1,
		INDEX idx_correlation_id correlation_id TYPE bloom_filter(0.01) GRANULARITY 1
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (timestamp, source_type)
	SETTINGS index_granularity = 8192
`

// NewClickHouse connects to ClickHouse, creates the records table if it
// does not exist, and returns the sink.
func NewClickHouse(opts ClickHouseOptions, logger *zap.SugaredLogger) (*ClickHouse, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	maxPool := opts.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 10
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	chOpts := &clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    maxPool,
		MaxIdleConns:    maxPool / 2,
		ConnMaxLifetime: 1 * time.Hour,
	}
	if opts.TLS {
		chOpts.TLS = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, recordsTableDDL); err != nil {
		return nil, fmt.Errorf("failed to create records table: %w", err)
	}

	var dedup *lru.Cache[string, bool]
	if opts.Deduplication {
		size := opts.DedupCacheSize
		if size <= 0 {
			size = 10000
		}
		dedup, err = lru.New[string, bool](size)
		if err != nil {
			return nil, fmt.Errorf("failed to create LRU cache: %w", err)
		}
	}

	logger.Infow("Connected to ClickHouse", "addr", opts.Addr, "database", opts.Database)

	return &ClickHouse{
		conn:      conn,
		batchSize: batchSize,
		dedup:     dedup,
		logger:    logger,
	}, nil
}

// Name identifies the sink.
func (s *ClickHouse) Name() string { return "clickhouse" }

// WriteBatch inserts the records using the ClickHouse batch API, splitting
// oversized inputs into batches of the configured size.
func (s *ClickHouse) WriteBatch(ctx context.Context, records []*core.LogRecord) error {
	if s.conn == nil {
		s.logger.Warn("Skipping batch insert, ClickHouse connection not available")
		return nil
	}

	batch := records
	if s.dedup != nil {
		batch = make([]*core.LogRecord, 0, len(records))
		for _, rec := range records {
			if _, seen := s.dedup.Get(rec.ID); seen {
				continue
			}
			s.dedup.Add(rec.ID, true)
			batch = append(batch, rec)
		}
		if skipped := len(records) - len(batch); skipped > 0 {
			s.logger.Debugw("Skipped duplicate records", "skipped", skipped)
		}
	}

	for start := 0; start < len(batch); start += s.batchSize {
		end := start + s.batchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.insertBatch(ctx, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// insertBatch sends one prepared batch to ClickHouse.
func (s *ClickHouse) insertBatch(ctx context.Context, batch []*core.LogRecord) error {
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()

	prepared, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO records (
			id, timestamp, level, source_type, message, raw_text,
			correlation_id, request_id, session_id, ip_address,
			is_anomaly, anomaly_type, severity, detail
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, rec := range batch {
		err := prepared.Append(
			rec.ID,
			rec.Timestamp,
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
			return fmt.Errorf("failed to append record %s: %w", rec.ID, err)
		}
	}

	if err := prepared.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.logger.Debugw("Inserted batch", "records", len(batch), "duration", time.Since(start))
	return nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouse) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// detailJSON serializes the source-specific field block of a record for
// storage in a single string column.
func detailJSON(rec *core.LogRecord) string {
	var fields interface{}
	switch {
	case rec.SIEM != nil:
		fields = rec.SIEM
	case rec.ERP != nil:
		fields = rec.ERP
	case rec.App != nil:
		fields = rec.App
	default:
		return ""
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(data)
}
