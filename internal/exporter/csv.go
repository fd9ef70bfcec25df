package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"tscompose/internal/dataset"
	"tscompose/internal/errors"
	"tscompose/internal/timeseries"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Info("writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewStorageError("failed to create directory", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return errors.NewStorageError("failed to create file", err)
	}
	defer file.Close()

	// BOM helps Excel recognize UTF-8
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return errors.NewStorageError("failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return errors.NewStorageError("failed to write headers", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return errors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}
	return writer.Error()
}

// WriteDataset writes a dataset as long-format CSV: the fixed columns
// variable, unit, time and value plus one column per coordinate dimension.
// Missing values are written as empty cells, so the output reads back into
// an identical dataset.
func (w *CSVWriter) WriteDataset(filePath string, ds *dataset.Dataset) error {
	dims := ds.Dims()
	headers := append([]string{"variable", "unit"}, dims...)
	headers = append(headers, "time", "value")

	var records [][]string
	for _, s := range sortedSeries(ds) {
		for i, t := range s.Times {
			record := make([]string, 0, len(headers))
			record = append(record, s.Name, s.Unit)
			for _, dim := range dims {
				record = append(record, s.Coords[dim])
			}
			record = append(record, t.Format("2006-01-02"), formatValue(s.Values[i]))
			records = append(records, record)
		}
	}

	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// sortedSeries orders the series by name and coordinates so the output is
// stable across runs.
func sortedSeries(ds *dataset.Dataset) []*timeseries.Series {
	out := make([]*timeseries.Series, len(ds.Series))
	copy(out, ds.Series)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CoordRepr() < out[j].CoordRepr()
	})
	return out
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
