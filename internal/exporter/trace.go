package exporter

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"tscompose/internal/compose"
	"tscompose/internal/errors"
)

// traceDocument is the on-disk layout of a composition's provenance.
type traceDocument struct {
	RunID    string                    `json:"run_id"`
	Metadata map[string]string         `json:"metadata,omitempty"`
	Traces   []compose.ProcessingTrace `json:"traces"`
	Failed   map[string]string         `json:"failed,omitempty"`
}

// WriteTraces writes the processing traces of a composition result as an
// indented JSON document.
func WriteTraces(filePath string, result *compose.Result, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("writing processing traces",
		slog.String("file_path", filePath),
		slog.Int("trace_count", len(result.Traces)))

	doc := traceDocument{
		RunID:    result.RunID,
		Metadata: result.Metadata,
		Traces:   result.Traces,
	}
	if len(result.Failed) > 0 {
		doc.Failed = make(map[string]string, len(result.Failed))
		for key, err := range result.Failed {
			doc.Failed[key] = err.Error()
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to encode traces", err)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.NewStorageError("failed to create directory", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return errors.NewStorageError("failed to write traces file", err)
	}
	return nil
}
