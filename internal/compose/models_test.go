package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tscompose/internal/errors"
)

func TestValueMatches(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		coord string
		want  bool
	}{
		{"scalar match", Scalar("A"), "A", true},
		{"scalar mismatch", Scalar("A"), "B", false},
		{"one of match", OneOf("A", "B"), "B", true},
		{"one of mismatch", OneOf("A", "B"), "C", false},
		{"not excludes listed", Not("A", "B"), "A", false},
		{"not accepts others", Not("A", "B"), "C", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Matches(tt.coord))
		})
	}
}

func TestValueIsScalar(t *testing.T) {
	assert.True(t, Scalar("A").IsScalar())
	assert.False(t, OneOf("A", "B").IsScalar())
	assert.False(t, Not("A").IsScalar())
}

func TestSelectorMatchSeries(t *testing.T) {
	series := ts(t, 1, 2, 3) // name CO2, area COL

	tests := []struct {
		name string
		sel  Selector
		want bool
	}{
		{"empty matches everything", Selector{}, true},
		{"coordinate match", Selector{"area": Scalar("COL")}, true},
		{"coordinate mismatch", Selector{"area": Scalar("MEX")}, false},
		{"variable match", Selector{VariableDim: Scalar("CO2")}, true},
		{"variable mismatch", Selector{VariableDim: Scalar("CH4")}, false},
		{"unknown dimension never matches", Selector{"category": Scalar("1.A")}, false},
		{"negated coordinate", Selector{"area": Not("MEX")}, true},
		{"all entries must match", Selector{"area": Scalar("COL"), VariableDim: Scalar("CH4")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.MatchSeries(series))
		})
	}
}

func TestPriorityDefinitionCheckDimensions(t *testing.T) {
	valid := PriorityDefinition{
		PriorityDimensions: []string{"source"},
		Priorities: []Selector{
			{"source": Scalar("A")},
			{"source": Scalar("B"), "area": Scalar("COL")},
		},
	}
	assert.NoError(t, valid.CheckDimensions())

	missing := PriorityDefinition{
		PriorityDimensions: []string{"source"},
		Priorities:         []Selector{{"area": Scalar("COL")}},
	}
	err := missing.CheckDimensions()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	nonScalar := PriorityDefinition{
		PriorityDimensions: []string{"source"},
		Priorities:         []Selector{{"source": OneOf("A", "B")}},
	}
	assert.Error(t, nonScalar.CheckDimensions())

	exclusion := PriorityDefinition{
		PriorityDimensions: []string{"source"},
		Priorities:         []Selector{{"source": Scalar("A")}},
		ExcludeResult:      []Selector{{"source": Scalar("B")}},
	}
	assert.Error(t, exclusion.CheckDimensions(), "result exclusions may not constrain priority dimensions")
}

func TestPriorityDefinitionLimit(t *testing.T) {
	pd := PriorityDefinition{
		PriorityDimensions: []string{"source"},
		Priorities: []Selector{
			{"source": Scalar("A")},
			{"source": Scalar("B"), "area": Scalar("COL")},
			{"source": Scalar("C"), "area": OneOf("MEX", "ARG")},
		},
	}

	limited := pd.Limit("area", "COL")
	require.Len(t, limited.Priorities, 2)
	// unconstrained entry kept unchanged
	assert.Equal(t, Selector{"source": Scalar("A")}, limited.Priorities[0])
	// matching constraint removed
	assert.Equal(t, Selector{"source": Scalar("B")}, limited.Priorities[1])

	limited = pd.Limit("area", "ARG")
	require.Len(t, limited.Priorities, 2)
	assert.Equal(t, Selector{"source": Scalar("C")}, limited.Priorities[1])
}

func TestStrategyDefinitionFindStrategies(t *testing.T) {
	sd := StrategyDefinition{Entries: []StrategyEntry{
		{Selector: Selector{"area": Scalar("COL")}, Strategy: IdentityStrategy{}},
		{Selector: Selector{}, Strategy: SubstitutionStrategy{}},
	}}

	colombian := ts(t, 1, 2, 3) // area COL
	found := sd.FindStrategies(colombian)
	require.Len(t, found, 2)
	assert.Equal(t, "identity", found[0].Type())
	assert.Equal(t, "substitution", found[1].Type())

	first, err := sd.FindStrategy(colombian)
	require.NoError(t, err)
	assert.Equal(t, "identity", first.Type())
}

func TestStrategyDefinitionFindStrategyNoMatch(t *testing.T) {
	sd := StrategyDefinition{Entries: []StrategyEntry{
		{Selector: Selector{"area": Scalar("MEX")}, Strategy: SubstitutionStrategy{}},
	}}

	_, err := sd.FindStrategy(ts(t, 1))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Empty(t, sd.FindStrategies(ts(t, 1)))
}

func TestStrategyDefinitionLimit(t *testing.T) {
	sd := StrategyDefinition{Entries: []StrategyEntry{
		{Selector: Selector{"area": Scalar("COL"), "source": Scalar("B")}, Strategy: IdentityStrategy{}},
		{Selector: Selector{"area": Scalar("MEX")}, Strategy: NullStrategy{}},
		{Selector: Selector{}, Strategy: SubstitutionStrategy{}},
	}}

	limited := sd.Limit("area", "COL")
	require.Len(t, limited.Entries, 2)
	assert.Equal(t, Selector{"source": Scalar("B")}, limited.Entries[0].Selector)
	assert.Equal(t, Selector{}, limited.Entries[1].Selector)
}

func TestStrategyDefinitionCheckDimensions(t *testing.T) {
	sd := StrategyDefinition{Entries: []StrategyEntry{
		{Selector: Selector{"area": Scalar("COL"), VariableDim: Scalar("CO2")}, Strategy: SubstitutionStrategy{}},
	}}
	assert.NoError(t, sd.CheckDimensions([]string{"area", "source"}))
	assert.Error(t, sd.CheckDimensions([]string{"source"}))
}

func TestExclusions(t *testing.T) {
	pd := PriorityDefinition{
		PriorityDimensions: []string{"source"},
		Priorities:         []Selector{{"source": Scalar("A")}},
		ExcludeInput:       []Selector{{"area": Scalar("COL")}},
		ExcludeResult:      []Selector{{"area": Scalar("MEX")}},
	}

	colombian := ts(t, 1) // area COL
	assert.True(t, pd.ExcludesInput(colombian))
	assert.False(t, pd.ExcludesResult(colombian))
}
