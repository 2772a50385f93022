package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"logforge/config"
	"logforge/core"
	"logforge/quality"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
)

// maxRecordLine bounds a single JSONL line when reading a dataset back.
const maxRecordLine = 1024 * 1024

// newValidateCmd creates the 'validate' subcommand
func newValidateCmd() *cobra.Command {
	var requireSeverity bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Run quality checks on a record file",
		Long: `Validate a previously generated record file against the dataset quality
checks: structural completeness, identifier uniqueness, JSON schema
conformance, raw line format, level distribution, anomaly consistency,
and correlation linkage.

Accepts plain or zstd-compressed JSONL. Exits non-zero when a check fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			sugar, cleanup, err := initLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer cleanup()

			batches, err := readRecordFile(args[0])
			if err != nil {
				return err
			}

			total := 0
			for _, batch := range batches {
				total += len(batch)
			}
			if total == 0 {
				return fmt.Errorf("no records found in %s", args[0])
			}
			sugar.Infow("Records loaded", "file", args[0], "records", total)

			checker, err := quality.New(qualityConfig(cfg))
			if err != nil {
				return err
			}

			report := checker.Check(batches, quality.Expectations{RequireSeverity: requireSeverity})

			if outputJSON {
				if err := outputAsJSON(report); err != nil {
					return err
				}
			} else {
				renderQualityReport(report)
			}

			if !report.Passed() {
				return fmt.Errorf("quality checks failed: %d of %d",
					len(report.Failures()), len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&requireSeverity, "require-severity", false, "Fail records missing a severity label")

	return cmd
}

// readRecordFile loads a JSONL record file, transparently decompressing
// .zst files, and groups the records by source type.
func readRecordFile(path string) (map[core.SourceType][]*core.LogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	batches := make(map[core.SourceType][]*core.LogRecord)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxRecordLine)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec core.LogRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse record: %w", line, err)
		}
		if !rec.SourceType.IsValid() {
			return nil, fmt.Errorf("line %d: unknown source type %q", line, rec.SourceType)
		}
		batches[rec.SourceType] = append(batches[rec.SourceType], &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	return batches, nil
}
