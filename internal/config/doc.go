// Package config provides centralized configuration management for the
// composition tools. It handles loading configuration from multiple sources,
// validation, and building the priority and strategy definitions used by a
// composition run.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern TSCOMPOSE_* for namespacing:
//
//	TSCOMPOSE_LOGGING_LEVEL=debug
//	TSCOMPOSE_COMPOSE_WORKERS=8
//	TSCOMPOSE_MERGE_TOLERANCE=0.05
//
// The composition definitions (priorities, exclusions, strategies) are too
// structured for environment variables and are configured in YAML only:
//
//	definitions:
//	  priority_dimensions: [source]
//	  priorities:
//	    - {source: A}
//	    - {source: B, area: {not: [XYZ]}}
//	  strategies:
//	    - selector: {source: B}
//	      type: localTrends
//	      fit: {fit_degree: 1, fallback_degree: 0, trend_length: 10, trend_length_unit: YS, min_trend_points: 5}
//	    - selector: {}
//	      type: substitution
//	  result_coords: {source: composite}
package config
