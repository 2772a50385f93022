package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"logforge/config"
	"logforge/core"
	"logforge/dataset"
	"logforge/fieldlib"
	"logforge/pipeline"
	"logforge/quality"
	"logforge/score"
	"logforge/sink"
	"logforge/util/goroutine"

	"github.com/briandowns/spinner"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runSummary is the result of one generate invocation, also used as the
// --json output shape.
type runSummary struct {
	Seed        int64                   `json:"seed"`
	Records     int                     `json:"records"`
	Counts      map[core.SourceType]int `json:"counts"`
	Injected    map[core.SourceType]int `json:"injected"`
	PoolSize    int                     `json:"pool_size"`
	Adopted     map[core.SourceType]int `json:"adopted"`
	DurationSec float64                 `json:"duration_seconds"`
	Sinks       []string                `json:"sinks,omitempty"`
	DatasetPath string                  `json:"dataset_path,omitempty"`
	Quality     *quality.Report         `json:"quality,omitempty"`
}

// newGenerateCmd creates the 'generate' subcommand
func newGenerateCmd() *cobra.Command {
	var (
		siemCount    int
		erpCount     int
		appCount     int
		windowHours  int
		seed         int64
		name         string
		metricsAddr  string
		export       bool
		check        bool
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a labeled synthetic dataset",
		Long: `Run the full pipeline: generate records for every source, inject anomalies,
correlate request identifiers across sources, and assign severity labels.

The labeled dataset is exported to the configured output directory and the
records are written to every enabled sink. Flags override config values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Flags override config only when explicitly set.
			if cmd.Flags().Changed("siem") {
				cfg.Run.SIEMCount = siemCount
			}
			if cmd.Flags().Changed("erp") {
				cfg.Run.ERPCount = erpCount
			}
			if cmd.Flags().Changed("app") {
				cfg.Run.AppCount = appCount
			}
			if cmd.Flags().Changed("window") {
				cfg.Run.WindowHours = windowHours
			}
			if cmd.Flags().Changed("seed") {
				cfg.Run.Seed = seed
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Enabled = metricsAddr != ""
				cfg.Metrics.Addr = metricsAddr
			}

			sugar, cleanup, err := initLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer cleanup()

			if cfg.Metrics.Enabled {
				shutdown := serveMetrics(cfg.Metrics.Addr, sugar)
				defer shutdown()
			}

			lib := fieldlib.Default()
			if cfg.FieldLibrary.Path != "" {
				lib, err = fieldlib.Load(cfg.FieldLibrary.Path)
				if err != nil {
					return err
				}
			}

			scorer := score.New(nil)
			if cfg.Scoring.Path != "" {
				scoreCfg, err := score.Load(cfg.Scoring.Path)
				if err != nil {
					return err
				}
				scorer = score.New(scoreCfg)
			}

			runCfg := cfg.RunConfig(time.Now().UTC())
			if runCfg.Seed == 0 {
				runCfg.Seed = time.Now().UnixNano()
				sugar.Infow("Derived seed from clock", "seed", runCfg.Seed)
			}

			p := pipeline.New(&lib, scorer, sugar, nil)

			if !outputJSON && !quiet {
				total := 0
				for _, n := range runCfg.Counts {
					total += n
				}
				infoColor.Printf("Generating %d records (seed %d)\n", total, runCfg.Seed)
			}

			// Show progress spinner if requested
			var s *spinner.Spinner
			if showProgress && !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = " Generating records..."
				s.Start()
			}

			result, err := p.Run(ctx, runCfg)

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return fmt.Errorf("pipeline run failed: %w", err)
			}

			summary := &runSummary{
				Seed:        runCfg.Seed,
				Records:     result.Total(),
				Counts:      make(map[core.SourceType]int, len(result.Batches)),
				Injected:    result.Injected,
				PoolSize:    result.Correlation.PoolSize,
				Adopted:     result.Correlation.Adopted,
				DurationSec: result.Duration.Seconds(),
			}
			for src, batch := range result.Batches {
				summary.Counts[src] = len(batch)
			}

			if check {
				checker, err := quality.New(qualityConfig(cfg))
				if err != nil {
					return err
				}
				summary.Quality = checker.Check(result.Batches, quality.Expectations{
					Counts:          runCfg.Counts,
					Window:          runCfg.Window,
					AnomalyRates:    runCfg.AnomalyRates,
					RequireSeverity: true,
				})
			}

			if err := writeSinks(ctx, cfg, result, summary, sugar); err != nil {
				return err
			}

			if export {
				exporter, err := dataset.NewExporter(dataset.Options{
					Dir:      cfg.Output.Dir,
					Format:   cfg.Output.Format,
					Compress: cfg.Output.Compress,
				}, scorer, sugar)
				if err != nil {
					return err
				}
				path, err := exporter.Export(result.All(), name)
				if err != nil {
					return fmt.Errorf("failed to export dataset: %w", err)
				}
				summary.DatasetPath = path
			}

			if outputJSON {
				if err := outputAsJSON(summary); err != nil {
					return err
				}
			} else {
				if !export && len(summary.Sinks) == 0 && !quiet {
					warningColor.Println("⚠ No sinks enabled and export disabled; records were not persisted")
				}
				renderRunSummary(summary)
			}

			if summary.Quality != nil && !summary.Quality.Passed() {
				return fmt.Errorf("quality checks failed: %d of %d",
					len(summary.Quality.Failures()), len(summary.Quality.Results))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&siemCount, "siem", 0, "SIEM records to generate")
	cmd.Flags().IntVar(&erpCount, "erp", 0, "ERP records to generate")
	cmd.Flags().IntVar(&appCount, "app", 0, "Application records to generate")
	cmd.Flags().IntVar(&windowHours, "window", 0, "Generation window in hours, ending now")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 derives one from the clock)")
	cmd.Flags().StringVar(&name, "name", "dataset", "Output file name without extension")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address for the run (empty disables)")
	cmd.Flags().BoolVar(&export, "export", true, "Write the labeled dataset file")
	cmd.Flags().BoolVar(&check, "check", true, "Run quality checks on the result")
	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress indicator")

	return cmd
}

// qualityConfig maps the loaded settings onto checker thresholds.
func qualityConfig(cfg *config.Config) *quality.Config {
	return &quality.Config{
		LevelTolerance: cfg.Quality.LevelTolerance,
		MinSample:      cfg.Quality.MinSample,
		SchemaSample:   cfg.Quality.SchemaSample,
		MatchTimeout:   cfg.MatchTimeout(),
	}
}

// buildSinks constructs every sink the config enables. On failure the sinks
// already built are closed before returning.
func buildSinks(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) ([]sink.Sink, error) {
	var sinks []sink.Sink

	fail := func(err error) ([]sink.Sink, error) {
		closeSinks(ctx, sinks, sugar)
		return nil, err
	}

	if cfg.Sinks.ClickHouse.Enabled {
		ch, err := sink.NewClickHouse(sink.ClickHouseOptions{
			Addr:           cfg.Sinks.ClickHouse.Addr,
			Database:       cfg.Sinks.ClickHouse.Database,
			Username:       cfg.Sinks.ClickHouse.Username,
			Password:       cfg.Sinks.ClickHouse.Password,
			TLS:            cfg.Sinks.ClickHouse.TLS,
			MaxPoolSize:    cfg.Sinks.ClickHouse.MaxPoolSize,
			BatchSize:      cfg.Sinks.ClickHouse.BatchSize,
			Deduplication:  cfg.Sinks.ClickHouse.Deduplication,
			DedupCacheSize: cfg.Sinks.ClickHouse.DedupCacheSize,
		}, sugar)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, ch)
	}

	if cfg.Sinks.SQLite.Enabled {
		sq, err := sink.NewSQLite(cfg.Sinks.SQLite.Path, sugar)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, sq)
	}

	if cfg.Sinks.MongoDB.Enabled {
		mg, err := sink.NewMongoDB(sink.MongoOptions{
			URI:                cfg.Sinks.MongoDB.URI,
			Database:           cfg.Sinks.MongoDB.Database,
			Collection:         cfg.Sinks.MongoDB.Collection,
			BatchInsertTimeout: cfg.Sinks.MongoDB.BatchInsertTimeout,
			MaxPoolSize:        cfg.Sinks.MongoDB.MaxPoolSize,
		}, sugar)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, mg)
	}

	if cfg.Sinks.Redis.Enabled {
		rd, err := sink.NewRedis(sink.RedisOptions{
			Addr:     cfg.Sinks.Redis.Addr,
			Password: cfg.Sinks.Redis.Password,
			DB:       cfg.Sinks.Redis.DB,
			Stream:   cfg.Sinks.Redis.Stream,
			MaxLen:   cfg.Sinks.Redis.MaxLen,
			PoolSize: cfg.Sinks.Redis.PoolSize,
		}, sugar)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, rd)
	}

	if cfg.Sinks.File.Enabled {
		f, err := sink.NewFile(sink.FileOptions{
			Path:     cfg.Sinks.File.Path,
			Format:   cfg.Sinks.File.Format,
			Compress: cfg.Sinks.File.Compress,
		}, sugar)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, f)
	}

	return sinks, nil
}

func closeSinks(ctx context.Context, sinks []sink.Sink, sugar *zap.SugaredLogger) {
	for _, s := range sinks {
		if err := s.Close(ctx); err != nil {
			sugar.Warnw("Failed to close sink", "sink", s.Name(), "error", err)
		}
	}
}

// writeSinks streams the run result into every enabled sink.
func writeSinks(ctx context.Context, cfg *config.Config, result *pipeline.Result, summary *runSummary, sugar *zap.SugaredLogger) error {
	sinks, err := buildSinks(ctx, cfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to initialize sinks: %w", err)
	}
	if len(sinks) == 0 {
		return nil
	}

	mgr := sink.NewManager(sinks, cfg.Sinks.RateLimit, sugar)
	summary.Sinks = mgr.Names()
	defer func() {
		if err := mgr.Close(context.Background()); err != nil {
			sugar.Warnw("Failed to close sinks", "error", err)
		}
	}()

	if err := mgr.WriteAll(ctx, result.All()); err != nil {
		return fmt.Errorf("failed to write to sinks: %w", err)
	}
	return nil
}

// serveMetrics exposes the Prometheus registry for the duration of the run.
// The returned function shuts the listener down.
func serveMetrics(addr string, sugar *zap.SugaredLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	goroutine.Go("metrics-server", sugar, func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorw("Metrics server failed", "addr", addr, "error", err)
		}
	})

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
