// Package dataio reads source datasets from long-format CSV files.
//
// The expected layout has one observation per row with the fixed columns
// variable, unit, time and value; every additional column is treated as a
// coordinate dimension (area, category, source and so on). Rows belonging to
// the same variable and coordinates form one timeseries; the dataset's time
// index is the sorted union of all observed timestamps, with missing slots
// filled as NaN.
package dataio

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"tscompose/internal/dataset"
	"tscompose/internal/errors"
	"tscompose/internal/timeseries"
)

const timeLayout = "2006-01-02"

var requiredColumns = []string{"variable", "unit", "time", "value"}

// ReadDataset reads a long-format CSV file into an aligned dataset.
func ReadDataset(path string, logger *slog.Logger) (*dataset.Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("opening input file %s", path), err)
	}
	defer file.Close()

	ds, err := readDataset(file, logger)
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("reading input file %s", path), err)
	}
	logger.Info("read input dataset",
		"path", path,
		"series", len(ds.Series),
		"time_steps", len(ds.Times()),
	)
	return ds, nil
}

type columnLayout struct {
	variable, unit, timeCol, value int
	coordDims                      []string
	coordCols                      []int
}

func splitHeader(header []string) (columnLayout, error) {
	layout := columnLayout{variable: -1, unit: -1, timeCol: -1, value: -1}
	for i, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "variable":
			layout.variable = i
		case "unit":
			layout.unit = i
		case "time":
			layout.timeCol = i
		case "value":
			layout.value = i
		default:
			layout.coordDims = append(layout.coordDims, strings.TrimSpace(name))
			layout.coordCols = append(layout.coordCols, i)
		}
	}
	for _, required := range requiredColumns {
		missing := false
		switch required {
		case "variable":
			missing = layout.variable < 0
		case "unit":
			missing = layout.unit < 0
		case "time":
			missing = layout.timeCol < 0
		case "value":
			missing = layout.value < 0
		}
		if missing {
			return layout, fmt.Errorf("missing required column %q in header %v", required, header)
		}
	}
	return layout, nil
}

// seriesAccum collects the observations of one timeseries before alignment.
type seriesAccum struct {
	name   string
	unit   string
	coords map[string]string
	values map[time.Time]float64
}

func readDataset(r io.Reader, logger *slog.Logger) (*dataset.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	// strip a UTF-8 BOM written for spreadsheet compatibility
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	layout, err := splitHeader(header)
	if err != nil {
		return nil, err
	}

	accums := map[string]*seriesAccum{}
	var order []string
	timeSet := map[time.Time]bool{}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		t, err := time.Parse(timeLayout, record[layout.timeCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing time %q: %w", line, record[layout.timeCol], err)
		}
		value, err := parseValue(record[layout.value])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing value %q: %w", line, record[layout.value], err)
		}

		coords := make(map[string]string, len(layout.coordDims))
		for i, dim := range layout.coordDims {
			coords[dim] = record[layout.coordCols[i]]
		}
		key := seriesKey(record[layout.variable], coords)
		accum, ok := accums[key]
		if !ok {
			accum = &seriesAccum{
				name:   record[layout.variable],
				unit:   record[layout.unit],
				coords: coords,
				values: map[time.Time]float64{},
			}
			accums[key] = accum
			order = append(order, key)
		}
		if accum.unit != record[layout.unit] {
			return nil, fmt.Errorf("line %d: series %s has conflicting units %q and %q",
				line, key, accum.unit, record[layout.unit])
		}
		if _, dup := accum.values[t]; dup {
			logger.Warn("duplicate observation, keeping first value",
				"series", key,
				"time", t.Format(timeLayout),
			)
			continue
		}
		accum.values[t] = value
		timeSet[t] = true
	}

	if len(accums) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	times := make([]time.Time, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	series := make([]*timeseries.Series, 0, len(accums))
	for _, key := range order {
		accum := accums[key]
		values := make([]float64, len(times))
		for i, t := range times {
			if v, ok := accum.values[t]; ok {
				values[i] = v
			} else {
				values[i] = math.NaN()
			}
		}
		ts, err := timeseries.New(accum.name, accum.coords, times, values)
		if err != nil {
			return nil, fmt.Errorf("building series %s: %w", key, err)
		}
		ts.Unit = accum.unit
		series = append(series, ts)
	}

	ds, err := dataset.New(series)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// parseValue converts a CSV value cell; an empty cell means missing.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func seriesKey(name string, coords map[string]string) string {
	dims := make([]string, 0, len(coords))
	for dim := range coords {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	parts := make([]string, 0, len(dims)+1)
	parts = append(parts, name)
	for _, dim := range dims {
		parts = append(parts, fmt.Sprintf("%s=%s", dim, coords[dim]))
	}
	return strings.Join(parts, ",")
}
