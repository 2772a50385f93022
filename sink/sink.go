// Package sink persists generated log records to external destinations.
// Every sink receives the same batches; a failure in one sink does not
// stop writes to the others.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"logforge/core"
	"logforge/metrics"
	"logforge/util/goroutine"
)

// defaultWriteBatchSize bounds how many records go to the sinks per write.
const defaultWriteBatchSize = 1000

// errWriteIncomplete reports a sink write that ended without returning.
var errWriteIncomplete = errors.New("write did not complete")

// Sink writes batches of log records to one destination.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// WriteBatch persists the given records. Implementations must not
	// retain the slice.
	WriteBatch(ctx context.Context, records []*core.LogRecord) error

	// Close flushes buffered data and releases the connection.
	Close(ctx context.Context) error
}

// Manager fans record batches out to every configured sink.
type Manager struct {
	sinks     []Sink
	limiter   *rate.Limiter
	batchSize int
	logger    *zap.SugaredLogger
}

// NewManager creates a manager over the given sinks. rateLimit caps records
// written per second across all sinks; 0 disables the limit. A nil logger
// defaults to a no-op logger.
func NewManager(sinks []Sink, rateLimit int, logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	m := &Manager{
		sinks:     sinks,
		batchSize: defaultWriteBatchSize,
		logger:    logger,
	}
	if rateLimit > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
		// WaitN cannot request more than the limiter burst.
		if m.batchSize > rateLimit {
			m.batchSize = rateLimit
		}
	}
	return m
}

// Names returns the names of the managed sinks.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

// WriteAll writes the records to every sink in rate-limited batches. All
// sinks receive all batches even when some of them fail; the combined
// error reports every failed sink.
func (m *Manager) WriteAll(ctx context.Context, records []*core.LogRecord) error {
	if len(m.sinks) == 0 || len(records) == 0 {
		return nil
	}

	var failed []error
	for start := 0; start < len(records); start += m.batchSize {
		end := start + m.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if m.limiter != nil {
			if err := m.limiter.WaitN(ctx, len(batch)); err != nil {
				failed = append(failed, fmt.Errorf("rate limit wait: %w", err))
				break
			}
		}
		failed = append(failed, m.writeBatch(ctx, batch)...)
	}

	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	m.logger.Infow("Records written to sinks", "records", len(records), "sinks", m.Names())
	return nil
}

// writeBatch sends one batch to every sink concurrently.
func (m *Manager) writeBatch(ctx context.Context, batch []*core.LogRecord) []error {
	var wg sync.WaitGroup
	errs := make([]error, len(m.sinks))

	for i, s := range m.sinks {
		// A recovered panic inside WriteBatch leaves the pre-filled
		// error in place.
		errs[i] = errWriteIncomplete
		goroutine.GoWait(&wg, fmt.Sprintf("sink-%s", s.Name()), m.logger, func() {
			errs[i] = s.WriteBatch(ctx, batch)
		})
	}
	wg.Wait()

	var failed []error
	for i, err := range errs {
		name := m.sinks[i].Name()
		if err != nil {
			m.logger.Errorw("Sink write failed", "sink", name, "records", len(batch), "error", err)
			metrics.SinkWriteFailures.WithLabelValues(name).Inc()
			failed = append(failed, fmt.Errorf("sink %s: %w", name, err))
			continue
		}
		metrics.SinkBatchesWritten.WithLabelValues(name).Inc()
	}
	return failed
}

// Close closes every sink and combines their errors.
func (m *Manager) Close(ctx context.Context) error {
	var failed []error
	for _, s := range m.sinks {
		if err := s.Close(ctx); err != nil {
			m.logger.Errorw("Sink close failed", "sink", s.Name(), "error", err)
			failed = append(failed, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(failed...)
}
