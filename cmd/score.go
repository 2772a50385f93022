package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"logforge/config"
	"logforge/core"
	"logforge/score"

	"github.com/spf13/cobra"
)

// newScoreCmd creates the 'score' subcommand
func newScoreCmd() *cobra.Command {
	var (
		file     string
		source   string
		level    string
		service  string
		message  string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one record and explain the result",
		Long: `Assign a severity to a single record and print the per-factor breakdown.

The record is read from --file as a JSON document, or assembled from the
--source, --level, --service, --message, and --endpoint flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			scorer := score.New(nil)
			if cfg.Scoring.Path != "" {
				scoreCfg, err := score.Load(cfg.Scoring.Path)
				if err != nil {
					return err
				}
				scorer = score.New(scoreCfg)
			}

			var rec *core.LogRecord
			if file != "" {
				rec, err = readRecord(file)
			} else {
				rec, err = buildRecord(source, level, service, message, endpoint)
			}
			if err != nil {
				return err
			}

			explanation := scorer.Explain(rec)

			if outputJSON {
				return outputAsJSON(explanation)
			}

			renderExplanation(rec, explanation)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file holding one record")
	cmd.Flags().StringVar(&source, "source", "application", "Source type (siem, erp, application)")
	cmd.Flags().StringVar(&level, "level", "INFO", "Log level")
	cmd.Flags().StringVar(&service, "service", "", "Service, module, or process name")
	cmd.Flags().StringVar(&message, "message", "", "Log message")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Endpoint or transaction code")

	return cmd
}

// readRecord parses one JSON record from a file.
func readRecord(path string) (*core.LogRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	var rec core.LogRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}

// buildRecord assembles a minimal record from flag values.
func buildRecord(source, level, service, message, endpoint string) (*core.LogRecord, error) {
	src := core.SourceType(source)
	if !src.IsValid() {
		return nil, fmt.Errorf("unknown source type %q", source)
	}
	lvl, err := core.ParseLevel(strings.ToUpper(level))
	if err != nil {
		return nil, err
	}

	rec := core.NewLogRecord(src)
	rec.Level = lvl
	rec.Message = message
	switch src {
	case core.SourceSIEM:
		rec.SIEM = &core.SIEMFields{ProcessName: service}
	case core.SourceERP:
		rec.ERP = &core.ERPFields{Module: service, TransactionCode: endpoint}
	case core.SourceApp:
		rec.App = &core.AppFields{Service: service, Endpoint: endpoint}
	}
	return rec, nil
}
