package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tscompose/internal/compose"
	"tscompose/internal/dataset"
	"tscompose/internal/errors"
)

// WriteReport writes an xlsx summary of a dataset: a Summary sheet with
// per-series coverage and a Gaps sheet listing every missing-value region.
func WriteReport(filePath string, ds *dataset.Dataset, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("writing xlsx report",
		slog.String("file_path", filePath),
		slog.Int("series_count", len(ds.Series)))

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, ds); err != nil {
		return err
	}
	if err := writeGapsSheet(f, ds); err != nil {
		return err
	}
	// the default sheet is replaced by Summary
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.NewStorageError("failed to remove default sheet", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.NewStorageError("failed to create directory", err)
	}
	if err := f.SaveAs(filePath); err != nil {
		return errors.NewStorageError("failed to save report", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, ds *dataset.Dataset) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("failed to create summary sheet", err)
	}

	headers := []interface{}{"variable", "coordinates", "unit", "time steps", "missing", "gaps"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return errors.NewStorageError("failed to write summary header", err)
	}
	for i, s := range sortedSeries(ds) {
		row := []interface{}{
			s.Name,
			s.CoordRepr(),
			s.Unit,
			s.Len(),
			s.MissingCount(),
			len(compose.GetGaps(s)),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.NewStorageError("failed to write summary row", err)
		}
	}
	return nil
}

func writeGapsSheet(f *excelize.File, ds *dataset.Dataset) error {
	const sheet = "Gaps"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("failed to create gaps sheet", err)
	}

	headers := []interface{}{"variable", "coordinates", "type", "left", "right"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return errors.NewStorageError("failed to write gaps header", err)
	}
	row := 2
	for _, s := range sortedSeries(ds) {
		for _, gap := range compose.GetGaps(s) {
			record := []interface{}{
				s.Name,
				s.CoordRepr(),
				string(gap.Type),
				gap.Left.Format("2006-01-02"),
				gap.Right.Format("2006-01-02"),
			}
			cell := fmt.Sprintf("A%d", row)
			if err := f.SetSheetRow(sheet, cell, &record); err != nil {
				return errors.NewStorageError("failed to write gap row", err)
			}
			row++
		}
	}
	return nil
}
