package config

import (
	"fmt"
	"log/slog"
	"time"

	"tscompose/internal/compose"
	"tscompose/internal/errors"
)

// SelectorValue is one selector entry in YAML form: a scalar string, a list
// of accepted values, or a negation of the form {not: [...]}.
type SelectorValue struct {
	One  string
	Many []string
	Not  []string
}

func (v *SelectorValue) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var scalar string
	if err := unmarshal(&scalar); err == nil {
		v.One = scalar
		return nil
	}
	var list []string
	if err := unmarshal(&list); err == nil {
		v.Many = list
		return nil
	}
	var negated struct {
		Not []string `yaml:"not"`
	}
	if err := unmarshal(&negated); err == nil && len(negated.Not) > 0 {
		v.Not = negated.Not
		return nil
	}
	return fmt.Errorf("selector value must be a string, a list of strings or {not: [...]}")
}

func (v SelectorValue) build() compose.Value {
	switch {
	case len(v.Not) > 0:
		return compose.Not(v.Not...)
	case len(v.Many) > 0:
		return compose.OneOf(v.Many...)
	default:
		return compose.Scalar(v.One)
	}
}

// SelectorConfig is a selector in YAML form, mapping dimension names to
// selector values.
type SelectorConfig map[string]SelectorValue

func (sc SelectorConfig) build() compose.Selector {
	sel := make(compose.Selector, len(sc))
	for dim, val := range sc {
		sel[dim] = val.build()
	}
	return sel
}

// FitConfig is the YAML form of the polynomial fit parameters used by the
// local strategies.
type FitConfig struct {
	FitDegree       int    `yaml:"fit_degree"`
	FallbackDegree  int    `yaml:"fallback_degree"`
	TrendLength     int    `yaml:"trend_length"`
	TrendLengthUnit string `yaml:"trend_length_unit"`
	MinTrendPoints  int    `yaml:"min_trend_points"`
}

func (fc *FitConfig) build() compose.FitParameters {
	if fc == nil {
		return compose.DefaultFitParameters()
	}
	return compose.FitParameters{
		FitDegree:       fc.FitDegree,
		FallbackDegree:  fc.FallbackDegree,
		TrendLength:     fc.TrendLength,
		TrendLengthUnit: fc.TrendLengthUnit,
		MinTrendPoints:  fc.MinTrendPoints,
	}
}

// StrategyConfig configures one (selector, strategy) entry.
type StrategyConfig struct {
	Selector      SelectorConfig `yaml:"selector"`
	Type          string         `yaml:"type" validate:"required,oneof=substitution identity null globalLSQ localTrends localLSQ"`
	AllowShift    bool           `yaml:"allow_shift"`
	AllowNegative bool           `yaml:"allow_negative"`
	Fit           *FitConfig     `yaml:"fit"`
}

func (sc StrategyConfig) build(logger *slog.Logger) (compose.FillStrategy, error) {
	switch sc.Type {
	case "substitution":
		return compose.SubstitutionStrategy{}, nil
	case "identity":
		return compose.IdentityStrategy{}, nil
	case "null":
		return compose.NullStrategy{}, nil
	case "globalLSQ":
		return compose.GlobalLSQStrategy{
			AllowShift:    sc.AllowShift,
			AllowNegative: sc.AllowNegative,
		}, nil
	case "localTrends":
		fit := sc.Fit.build()
		if err := fit.Validate(); err != nil {
			return nil, err
		}
		return compose.LocalTrendsStrategy{
			FitParams:     fit,
			AllowNegative: sc.AllowNegative,
			Logger:        logger,
		}, nil
	case "localLSQ":
		fit := sc.Fit.build()
		if err := fit.Validate(); err != nil {
			return nil, err
		}
		return compose.LocalLSQStrategy{
			FitParams:     fit,
			AllowShift:    sc.AllowShift,
			AllowNegative: sc.AllowNegative,
			Logger:        logger,
		}, nil
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown strategy type %q", sc.Type), nil)
	}
}

// DefinitionsConfig is the YAML form of a full composition setup: priorities,
// exclusions, strategies and the wrapper parameters.
type DefinitionsConfig struct {
	PriorityDimensions []string         `yaml:"priority_dimensions"`
	Priorities         []SelectorConfig `yaml:"priorities"`
	ExcludeInput       []SelectorConfig `yaml:"exclude_input"`
	ExcludeResult      []SelectorConfig `yaml:"exclude_result"`
	Strategies         []StrategyConfig `yaml:"strategies" validate:"dive"`
	ResultCoords       map[string]string   `yaml:"result_coords"`
	LimitCoords        map[string][]string `yaml:"limit_coords"`
	Metadata           map[string]string   `yaml:"metadata"`
}

// Empty reports whether no definitions were configured at all.
func (dc DefinitionsConfig) Empty() bool {
	return len(dc.PriorityDimensions) == 0 && len(dc.Priorities) == 0 && len(dc.Strategies) == 0
}

// Validate checks structural completeness and that the built priority
// definition satisfies its own invariants.
func (dc DefinitionsConfig) Validate() error {
	if len(dc.PriorityDimensions) == 0 {
		return errors.NewConfigError("definitions: priority_dimensions must not be empty", nil)
	}
	if len(dc.Priorities) == 0 {
		return errors.NewConfigError("definitions: priorities must not be empty", nil)
	}
	if len(dc.Strategies) == 0 {
		return errors.NewConfigError("definitions: strategies must not be empty", nil)
	}
	if err := dc.BuildPriority().CheckDimensions(); err != nil {
		return err
	}
	if _, err := dc.BuildStrategies(nil); err != nil {
		return err
	}
	return nil
}

// BuildPriority converts the YAML form into a priority definition.
func (dc DefinitionsConfig) BuildPriority() compose.PriorityDefinition {
	pd := compose.PriorityDefinition{
		PriorityDimensions: dc.PriorityDimensions,
	}
	for _, sel := range dc.Priorities {
		pd.Priorities = append(pd.Priorities, sel.build())
	}
	for _, sel := range dc.ExcludeInput {
		pd.ExcludeInput = append(pd.ExcludeInput, sel.build())
	}
	for _, sel := range dc.ExcludeResult {
		pd.ExcludeResult = append(pd.ExcludeResult, sel.build())
	}
	return pd
}

// BuildStrategies converts the YAML form into a strategy definition. The
// logger is handed to the strategies that emit fit diagnostics.
func (dc DefinitionsConfig) BuildStrategies(logger *slog.Logger) (compose.StrategyDefinition, error) {
	var sd compose.StrategyDefinition
	for i, sc := range dc.Strategies {
		strategy, err := sc.build(logger)
		if err != nil {
			return sd, errors.NewConfigError(fmt.Sprintf("definitions: strategy %d invalid", i), err)
		}
		sd.Entries = append(sd.Entries, compose.StrategyEntry{
			Selector: sc.Selector.build(),
			Strategy: strategy,
		})
	}
	return sd, nil
}

// BuildParams converts the wrapper parameters, combining the definitions with
// the runtime time range.
func (dc DefinitionsConfig) BuildParams(cc ComposeConfig) (compose.CompositeParams, error) {
	params := compose.CompositeParams{
		ResultCoords: dc.ResultCoords,
		LimitCoords:  dc.LimitCoords,
		Metadata:     dc.Metadata,
	}
	var err error
	if cc.TimeFrom != "" {
		params.TimeFrom, err = time.Parse("2006-01-02", cc.TimeFrom)
		if err != nil {
			return params, errors.NewParsingError("parsing compose.time_from", err)
		}
	}
	if cc.TimeTo != "" {
		params.TimeTo, err = time.Parse("2006-01-02", cc.TimeTo)
		if err != nil {
			return params, errors.NewParsingError("parsing compose.time_to", err)
		}
	}
	return params, nil
}
