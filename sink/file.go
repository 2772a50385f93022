package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"logforge/core"
)

// File sink formats.
const (
	FormatJSONL   = "jsonl"
	FormatMsgpack = "msgpack"
)

// FileOptions configures the flat file sink.
type FileOptions struct {
	Path string
	// Format is FormatJSONL or FormatMsgpack. Empty means jsonl.
	Format string
	// Compress writes the file through a zstd encoder and appends a
	// .zst suffix to the path.
	Compress bool
}

// File writes records to a local file, one JSON document per line or as a
// stream of msgpack-encoded records.
type File struct {
	mu     sync.Mutex
	f      *os.File
	bw     *bufio.Writer
	zw     *zstd.Encoder
	jsonl  *json.Encoder
	binary *msgpack.Encoder
	path   string
	logger *zap.SugaredLogger
}

// NewFile creates the output file, truncating any previous run.
func NewFile(opts FileOptions, logger *zap.SugaredLogger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	format := opts.Format
	if format == "" {
		format = FormatJSONL
	}
	if format != FormatJSONL && format != FormatMsgpack {
		return nil, fmt.Errorf("unknown file sink format %q", opts.Format)
	}

	path := opts.Path
	if opts.Compress && !strings.HasSuffix(path, ".zst") {
		path += ".zst"
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	sink := &File{
		f:      f,
		bw:     bufio.NewWriter(f),
		path:   path,
		logger: logger,
	}

	var w io.Writer = sink.bw
	if opts.Compress {
		zw, err := zstd.NewWriter(sink.bw)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		sink.zw = zw
		w = zw
	}

	switch format {
	case FormatJSONL:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		sink.jsonl = enc
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		sink.binary = enc
	}

	logger.Infow("Opened file sink", "path", path, "format", format)
	return sink, nil
}

// Name identifies the sink.
func (s *File) Name() string { return "file" }

// Path returns the path being written, including any compression suffix.
func (s *File) Path() string { return s.path }

// WriteBatch appends the records to the file.
func (s *File) WriteBatch(ctx context.Context, records []*core.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		var err error
		if s.jsonl != nil {
			err = s.jsonl.Encode(rec)
		} else {
			err = s.binary.Encode(rec)
		}
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Close flushes buffered data and closes the file.
func (s *File) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.zw != nil {
		if err := s.zw.Close(); err != nil {
			s.f.Close()
			return fmt.Errorf("failed to close zstd writer: %w", err)
		}
	}
	if err := s.bw.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return s.f.Close()
}
