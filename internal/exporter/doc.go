// Package exporter writes composition results to files: the composed dataset
// as long-format CSV, the processing traces as JSON, and an optional xlsx
// summary report with per-series coverage and gap listings.
package exporter
