package cmd

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"logforge/core"
	"logforge/fieldlib"
	"logforge/gen"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generated(t *testing.T, src core.SourceType, n int) []*core.LogRecord {
	t.Helper()
	g, err := gen.New(src, fieldlib.Default(), 11)
	require.NoError(t, err)
	window := core.NewTimeWindow(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 24*time.Hour)
	records, err := g.Generate(n, window)
	require.NoError(t, err)
	return records
}

func writeRecordLines(t *testing.T, path string, records []*core.LogRecord, compress bool) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	var w io.Writer = f
	var zw *zstd.Encoder
	if compress {
		zw, err = zstd.NewWriter(f)
		require.NoError(t, err)
		w = zw
	}

	enc := json.NewEncoder(w)
	for _, rec := range records {
		require.NoError(t, enc.Encode(rec))
	}
	if zw != nil {
		require.NoError(t, zw.Close())
	}
	require.NoError(t, f.Close())
}

// TestReadRecordFile reads a JSONL file back grouped by source
func TestReadRecordFile(t *testing.T) {
	records := append(generated(t, core.SourceApp, 8), generated(t, core.SourceSIEM, 5)...)
	path := filepath.Join(t.TempDir(), "records.jsonl")
	writeRecordLines(t, path, records, false)

	batches, err := readRecordFile(path)
	require.NoError(t, err)
	assert.Len(t, batches[core.SourceApp], 8)
	assert.Len(t, batches[core.SourceSIEM], 5)
	assert.Empty(t, batches[core.SourceERP])
	assert.Equal(t, records[0].ID, batches[core.SourceApp][0].ID)
}

// TestReadRecordFile_Compressed reads a zstd-compressed file
func TestReadRecordFile_Compressed(t *testing.T) {
	records := generated(t, core.SourceERP, 6)
	path := filepath.Join(t.TempDir(), "records.jsonl.zst")
	writeRecordLines(t, path, records, true)

	batches, err := readRecordFile(path)
	require.NoError(t, err)
	assert.Len(t, batches[core.SourceERP], 6)
}

// TestReadRecordFile_Garbage rejects unparseable lines
func TestReadRecordFile_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o600))

	_, err := readRecordFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

// TestReadRecordFile_UnknownSource rejects unknown source types
func TestReadRecordFile_UnknownSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	line := `{"id":"x","source_type":"mainframe"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0o600))

	_, err := readRecordFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source type")
}

// TestReadRecordFile_Missing surfaces the open error
func TestReadRecordFile_Missing(t *testing.T) {
	_, err := readRecordFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open record file")
}
