// Package dataset exports labeled training rows from scored records.
// Each row carries the scoring factors as features and the severity as
// the label; model training itself happens elsewhere.
package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"logforge/core"
	"logforge/score"
)

// Export formats.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// Options configures the exporter.
type Options struct {
	Dir    string
	Format string
	// Compress writes zstd-compressed files with a .zst suffix.
	Compress bool
}

// Row is one labeled training example.
type Row struct {
	ID             string `json:"id"`
	Timestamp      string `json:"timestamp"`
	SourceType     string `json:"source_type"`
	Level          string `json:"level"`
	Service        string `json:"service"`
	Endpoint       string `json:"endpoint,omitempty"`
	Message        string `json:"message"`
	IsAnomaly      bool   `json:"is_anomaly"`
	AnomalyType    string `json:"anomaly_type,omitempty"`
	Correlated     bool   `json:"correlated"`
	ServicePoints  int    `json:"service_points"`
	LevelPoints    int    `json:"level_points"`
	MessagePoints  int    `json:"message_points"`
	EndpointPoints int    `json:"endpoint_points"`
	TotalPoints    int    `json:"total_points"`
	Severity       string `json:"severity"`
}

// csvHeader lists the CSV columns in Row order.
var csvHeader = []string{
	"id", "timestamp", "source_type", "level", "service", "endpoint",
	"message", "is_anomaly", "anomaly_type", "correlated",
	"service_points", "level_points", "message_points", "endpoint_points",
	"total_points", "severity",
}

// Exporter writes labeled datasets to the configured directory.
type Exporter struct {
	opts   Options
	scorer *score.Scorer
	logger *zap.SugaredLogger
}

// NewExporter validates the options and returns an exporter. The scorer
// recomputes the factor breakdown per record and must match the one the
// records were scored with. Nil scorer and logger fall back to defaults.
func NewExporter(opts Options, scorer *score.Scorer, logger *zap.SugaredLogger) (*Exporter, error) {
	if opts.Format == "" {
		opts.Format = FormatJSONL
	}
	if opts.Format != FormatJSONL && opts.Format != FormatCSV {
		return nil, fmt.Errorf("unknown dataset format %q", opts.Format)
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("dataset directory cannot be empty")
	}
	if scorer == nil {
		scorer = score.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Exporter{opts: opts, scorer: scorer, logger: logger}, nil
}

// Export writes one labeled file named after the stem and returns its path.
func (e *Exporter) Export(records []*core.LogRecord, stem string) (string, error) {
	path := filepath.Join(e.opts.Dir, stem+"."+e.opts.Format)
	if e.opts.Compress {
		path += ".zst"
	}

	if err := os.MkdirAll(e.opts.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dataset directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create dataset file: %w", err)
	}

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var zw *zstd.Encoder
	if e.opts.Compress {
		zw, err = zstd.NewWriter(bw)
		if err != nil {
			f.Close()
			return "", fmt.Errorf("failed to create zstd writer: %w", err)
		}
		w = zw
	}

	switch e.opts.Format {
	case FormatJSONL:
		err = e.writeJSONL(w, records)
	case FormatCSV:
		err = e.writeCSV(w, records)
	}
	if err != nil {
		f.Close()
		return "", err
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to close zstd writer: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to flush dataset file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close dataset file: %w", err)
	}

	e.logger.Infow("Dataset exported", "path", path, "records", len(records), "format", e.opts.Format)
	return path, nil
}

// row flattens one record into a labeled example.
func (e *Exporter) row(rec *core.LogRecord) Row {
	ex := e.scorer.Explain(rec)
	severity := rec.Severity
	if severity == "" {
		severity = ex.Severity
	}
	return Row{
		ID:             rec.ID,
		Timestamp:      rec.Timestamp.UTC().Format(time.RFC3339Nano),
		SourceType:     string(rec.SourceType),
		Level:          string(rec.Level),
		Service:        rec.ServiceName(),
		Endpoint:       rec.Endpoint(),
		Message:        rec.Message,
		IsAnomaly:      rec.IsAnomaly,
		AnomalyType:    string(rec.AnomalyType),
		Correlated:     rec.CorrelationID != "",
		ServicePoints:  ex.ServicePoints,
		LevelPoints:    ex.LevelPoints,
		MessagePoints:  ex.MessagePoints,
		EndpointPoints: ex.EndpointPoints,
		TotalPoints:    ex.Total,
		Severity:       string(severity),
	}
}

func (e *Exporter) writeJSONL(w io.Writer, records []*core.LogRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(e.row(rec)); err != nil {
			return fmt.Errorf("failed to encode row for record %s: %w", rec.ID, err)
		}
	}
	return nil
}

func (e *Exporter) writeCSV(w io.Writer, records []*core.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		row := e.row(rec)
		fields := []string{
			row.ID,
			row.Timestamp,
			row.SourceType,
			row.Level,
			row.Service,
			row.Endpoint,
			row.Message,
			strconv.FormatBool(row.IsAnomaly),
			row.AnomalyType,
			strconv.FormatBool(row.Correlated),
			strconv.Itoa(row.ServicePoints),
			strconv.Itoa(row.LevelPoints),
			strconv.Itoa(row.MessagePoints),
			strconv.Itoa(row.EndpointPoints),
			strconv.Itoa(row.TotalPoints),
			row.Severity,
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("failed to write CSV row for record %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
