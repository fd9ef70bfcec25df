// Command gapreport lists the missing-value regions of every timeseries in a
// long-format CSV dataset.
package main

import (
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
	input := flag.String("input", "", "input long-format csv file")
	out := flag.String("out", "gaps.csv", "output csv file with the gap listing")
	flag.Parse()

	if *input == "" {
		slog.Error("missing required flag -input")
		os.Exit(2)
	}

	logger := infrastructure.MustInitializeLogger(config.Default().Logging)
	defer infrastructure.CloseLogFile()

	ds, err := dataio.ReadDataset(*input, logger)
	if err != nil {
		logger.Error("failed to read input dataset", "error", err, "input", *input)
		os.Exit(1)
	}

	headers := []string{"variable", "coordinates", "type", "left", "right"}
	var records [][]string
	gapCount := 0
	for _, s := range ds.Series {
		for _, gap := range compose.GetGaps(s) {
			records = append(records, []string{
				s.Name,
				s.CoordRepr(),
				string(gap.Type),
				gap.Left.Format("2006-01-02"),
				gap.Right.Format("2006-01-02"),
			})
			gapCount++
		}
	}

	writer := exporter.NewCSVWriter(logger)
	if err := writer.WriteCSV(*out, exporter.WriteOptions{Headers: headers, Records: records}); err != nil {
		logger.Error("failed to write gap listing", "error", err, "path", *out)
		os.Exit(1)
	}

	logger.Info("gap report complete",
		"series", len(ds.Series),
		"gaps", gapCount,
		"out", *out,
	)
}
