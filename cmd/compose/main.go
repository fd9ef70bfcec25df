// Command compose builds a composite best-estimate dataset from a
// long-format CSV of overlapping sources, according to the priorities and
// filling strategies in the configuration file.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"tscompose/internal/compose"
	"tscompose/internal/config"
	"tscompose/internal/dataio"
	"tscompose/internal/exporter"
	"tscompose/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "config.yaml", "configuration file with definitions")
	input := flag.String("input", "", "input long-format csv file")
	outData := flag.String("out-data", "composite.csv", "output csv file for the composed dataset")
	outTrace := flag.String("out-trace", "traces.json", "output json file for the processing traces")
	outReport := flag.String("out-report", "", "optional xlsx coverage report for the composed dataset")
	workers := flag.Int("workers", 0, "parallel workers, overrides the configuration (0 keeps it)")
	flag.Parse()

	if *input == "" {
		slog.Error("missing required flag -input")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "config", *configPath)
		os.Exit(1)
	}
	if cfg.Definitions.Empty() {
		slog.Error("configuration contains no composition definitions", "config", *configPath)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Compose.Workers = *workers
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()
	ctx := infrastructure.ContextWithTraceID(context.Background())

	ds, err := dataio.ReadDataset(*input, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read input dataset", "error", err, "input", *input)
		os.Exit(1)
	}

	prioDef := cfg.Definitions.BuildPriority()
	stratDef, err := cfg.Definitions.BuildStrategies(logger)
	if err != nil {
		logger.ErrorContext(ctx, "invalid strategy definitions", "error", err)
		os.Exit(1)
	}
	params, err := cfg.Definitions.BuildParams(cfg.Compose)
	if err != nil {
		logger.ErrorContext(ctx, "invalid composition parameters", "error", err)
		os.Exit(1)
	}

	opts := compose.Options{
		Workers: cfg.Compose.Workers,
		Logger:  logger,
		Progress: func(done, total int) {
			logger.DebugContext(ctx, "composition progress", "done", done, "total", total)
		},
	}

	result, err := compose.CreateCompositeSource(ctx, ds, prioDef, stratDef, params, opts)
	if err != nil {
		logger.ErrorContext(ctx, "composition failed", "error", err)
		os.Exit(1)
	}

	if result.Dataset != nil {
		writer := exporter.NewCSVWriter(logger)
		if err := writer.WriteDataset(*outData, result.Dataset); err != nil {
			logger.ErrorContext(ctx, "failed to write composed dataset", "error", err, "path", *outData)
			os.Exit(1)
		}
	}
	if err := exporter.WriteTraces(*outTrace, result, logger); err != nil {
		logger.ErrorContext(ctx, "failed to write processing traces", "error", err, "path", *outTrace)
		os.Exit(1)
	}
	if *outReport != "" && result.Dataset != nil {
		if err := exporter.WriteReport(*outReport, result.Dataset, logger); err != nil {
			logger.ErrorContext(ctx, "failed to write report", "error", err, "path", *outReport)
			os.Exit(1)
		}
	}

	composed := 0
	if result.Dataset != nil {
		composed = len(result.Dataset.Series)
	}
	logger.InfoContext(ctx, "composition complete",
		"run_id", result.RunID,
		"composed_series", composed,
		"failed_combinations", len(result.Failed),
		"out_data", *outData,
		"out_trace", *outTrace,
	)
}
