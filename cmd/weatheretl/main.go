// Command weatheretl is a batch ETL pipeline for weather observations.
//
// Usage:
//
//	weatheretl [-config path] <command> [flags]
//
// Commands:
//
//	extract    fetch a raw reading from OpenWeatherMap (or ingest -in file)
//	transform  normalize raw readings and write the cleaned CSV
//	load       load cleaned readings into the relational store
//	plot       render charts from the relational store
//	validate   check persisted outputs and write a validation report
//	run        extract, transform, load and plot in one invocation
//
// Each command is a standalone run: exit code 0 on success, non-zero on a
// fatal condition (empty input, unreadable source, unavailable sink).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Sia112904/etl-weather-pipeline/internal/charts"
	"github.com/Sia112904/etl-weather-pipeline/internal/config"
	"github.com/Sia112904/etl-weather-pipeline/internal/logger"
	"github.com/Sia112904/etl-weather-pipeline/internal/models"
	"github.com/Sia112904/etl-weather-pipeline/internal/normalize"
	"github.com/Sia112904/etl-weather-pipeline/internal/notify"
	"github.com/Sia112904/etl-weather-pipeline/internal/report"
	"github.com/Sia112904/etl-weather-pipeline/internal/sink"
	"github.com/Sia112904/etl-weather-pipeline/internal/source"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func usage() {
	fmt.Fprintf(os.Stderr, "usage: weatheretl [-config path] <extract|transform|load|plot|validate|run> [flags]\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	command := args[0]

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	runID := uuid.New().String()
	logger.Info("weatheretl %s starting (run %s)", command, runID)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cmdErr error
	switch command {
	case "extract":
		cmdErr = runExtract(ctx, cfg, args[1:])
	case "transform":
		cmdErr = runTransform(cfg, args[1:])
	case "load":
		cmdErr = runLoad(ctx, cfg, args[1:])
	case "plot":
		cmdErr = runPlot(ctx, cfg)
	case "validate":
		cmdErr = runValidate(ctx, cfg)
	case "run":
		cmdErr = runAll(ctx, cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		notifyError(cfg, command, cmdErr)
		logger.Error("%s failed: %v", command, cmdErr)
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("%s completed", command)
}

// normalizeOptions builds the normalizer options for raw source data.
func normalizeOptions(cfg *config.Config) normalize.Options {
	return normalize.Options{
		Units:            cfg.Source.Units,
		TimestampLayouts: cfg.Normalize.TimestampLayouts,
		DefaultStation:   cfg.Source.City,
	}
}

// acquireRaw obtains the raw batch for transform-style commands: from a
// local file when inPath is set, otherwise one API observation appended to
// the configured raw file.
func acquireRaw(ctx context.Context, cfg *config.Config, inPath, city string) ([]models.RawReading, error) {
	if inPath != "" {
		logger.Info("reading raw readings from %s", inPath)
		return source.ReadFile(inPath)
	}

	if city == "" {
		return nil, errors.New("no city configured: set source.city or pass -city")
	}

	client := source.NewOpenWeatherClient(
		cfg.Source.APIBaseURL,
		cfg.Source.APIKey,
		cfg.Source.Units,
		cfg.Source.Timeout,
		cfg.Source.MaxRetries,
		cfg.Source.RetryDelayBase,
	)
	logger.Info("fetching current weather for %s", city)
	raw, err := client.Fetch(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather: %w", err)
	}

	if err := source.AppendRaw(cfg.Source.RawPath, raw); err != nil {
		return nil, err
	}
	logger.Info("appended raw reading to %s", cfg.Source.RawPath)

	// The batch for this run is everything accumulated so far.
	return source.ReadFile(cfg.Source.RawPath)
}

func runExtract(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	city := fs.String("city", cfg.Source.City, "City to fetch, e.g. \"Dallas,US\"")
	in := fs.String("in", "", "Ingest raw readings from a local file instead of the API")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *in != "" {
		rows, err := source.ReadFile(*in)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return normalize.ErrEmptyInput
		}
		if err := source.WriteRaw(cfg.Source.RawPath, rows); err != nil {
			return err
		}
		logger.Info("ingested %d raw readings into %s", len(rows), cfg.Source.RawPath)
		return nil
	}

	rows, err := acquireRaw(ctx, cfg, "", *city)
	if err != nil {
		return err
	}
	logger.Info("raw file now holds %d readings", len(rows))
	return nil
}

func runTransform(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	in := fs.String("in", cfg.Source.RawPath, "Raw readings file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rows, err := source.ReadFile(*in)
	if err != nil {
		return err
	}

	readings, rep, err := normalize.Batch(rows, normalizeOptions(cfg))
	if err != nil {
		return err
	}
	logReport(rep)

	if err := sink.WriteCSV(cfg.Sink.CSVPath, readings); err != nil {
		return err
	}
	logger.Info("wrote %d cleaned readings to %s", len(readings), cfg.Sink.CSVPath)
	return nil
}

func runLoad(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	in := fs.String("in", cfg.Sink.CSVPath, "Cleaned readings file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rows, err := source.ReadFile(*in)
	if err != nil {
		return err
	}

	// Cleaned files are already canonical Celsius; only re-coerce types here,
	// never re-convert units.
	opts := normalizeOptions(cfg)
	opts.Units = "metric"
	readings, rep, err := normalize.Batch(rows, opts)
	if err != nil {
		return err
	}
	logReport(rep)

	written, err := writeStore(ctx, cfg, readings)
	if err != nil {
		return err
	}
	logger.Info("loaded %d of %d readings into %s", written, rep.Input, cfg.Sink.DBPath)
	return nil
}

func runPlot(ctx context.Context, cfg *config.Config) error {
	store, err := sink.Open(cfg.Sink.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	readings, err := store.Readings(ctx)
	if err != nil {
		return err
	}

	renderer := charts.NewRenderer(cfg.Charts.OutputDir, cfg.Charts.RollingWindow)
	paths, err := renderer.Render(readings)
	if err != nil {
		return err
	}
	logger.Info("rendered %d charts into %s", len(paths), cfg.Charts.OutputDir)
	return nil
}

func runValidate(ctx context.Context, cfg *config.Config) error {
	limits := report.Limits{
		TemperatureMin: cfg.Report.TemperatureMin,
		TemperatureMax: cfg.Report.TemperatureMax,
	}
	rep, err := report.Validate(ctx, cfg.Sink.CSVPath, cfg.Sink.DBPath, limits)
	if err != nil {
		return err
	}
	if err := report.Write(cfg.Report.Path, rep); err != nil {
		return err
	}

	if !rep.Passed() {
		for _, problem := range rep.Problems {
			logger.Warn("validation: %s", problem)
		}
		return fmt.Errorf("validation failed with %d problems, see %s", len(rep.Problems), cfg.Report.Path)
	}
	logger.Info("validation passed, report written to %s", cfg.Report.Path)
	return nil
}

func runAll(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	city := fs.String("city", cfg.Source.City, "City to fetch, e.g. \"Dallas,US\"")
	in := fs.String("in", "", "Use a local raw file instead of fetching from the API")
	if err := fs.Parse(args); err != nil {
		return err
	}

	start := time.Now()

	rows, err := acquireRaw(ctx, cfg, *in, *city)
	if err != nil {
		return err
	}

	readings, rep, err := normalize.Batch(rows, normalizeOptions(cfg))
	if err != nil {
		return err
	}
	logReport(rep)

	if err := sink.WriteCSV(cfg.Sink.CSVPath, readings); err != nil {
		return err
	}

	written, err := writeStore(ctx, cfg, readings)
	if err != nil {
		return err
	}
	logger.Info("persisted %d readings (csv: %s, db: %s)", written, cfg.Sink.CSVPath, cfg.Sink.DBPath)

	if err := runPlot(ctx, cfg); err != nil {
		return err
	}

	notifySummary(cfg, rep, written, time.Since(start))
	return nil
}

// writeStore persists a normalized batch to the relational sink with scoped
// acquisition: the connection is closed on every path out.
func writeStore(ctx context.Context, cfg *config.Config, readings []models.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, normalize.ErrEmptyInput
	}

	store, err := sink.Open(cfg.Sink.DBPath)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	return store.WriteBatch(ctx, readings)
}

func logReport(rep normalize.Report) {
	logger.Info("normalized %d of %d readings (%d dropped)", rep.Normalized, rep.Input, rep.Dropped)
	for reason, count := range rep.ByReason {
		logger.Warn("dropped %d readings: %s", count, reason)
	}
}

func buildNotifier(cfg *config.Config) *notify.Notifier {
	if !cfg.Notify.Enabled {
		return nil
	}
	notifier, err := notify.New(cfg.Notify.BotToken, cfg.Notify.ChatID)
	if err != nil {
		logger.Warn("failed to initialize notifier: %v", err)
		return nil
	}
	return notifier
}

func notifySummary(cfg *config.Config, rep normalize.Report, written int, duration time.Duration) {
	notifier := buildNotifier(cfg)
	if notifier == nil {
		return
	}
	if err := notifier.SendSummary(cfg.Source.City, rep, written, duration); err != nil {
		logger.Warn("failed to send run summary: %v", err)
	}
}

func notifyError(cfg *config.Config, stage string, runErr error) {
	notifier := buildNotifier(cfg)
	if notifier == nil {
		return
	}
	if err := notifier.SendError(stage, runErr); err != nil {
		logger.Warn("failed to send error notification: %v", err)
	}
}
