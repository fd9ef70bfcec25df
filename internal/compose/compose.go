package compose

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tscompose/internal/dataset"
	"tscompose/internal/errors"
	"tscompose/internal/timeseries"
)

// Options controls a composition run.
type Options struct {
	// Workers bounds the number of combinations processed in parallel.
	// Zero or negative means one worker per CPU.
	Workers int
	// Logger receives per-combination progress and diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger
	// Progress, if set, is called after each finished combination with the
	// number of combinations done and the total. Reporting only; it must be
	// safe for concurrent calls.
	Progress func(done, total int)
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Result is the outcome of a composition run. The priority dimensions are
// resolved away: result series carry only the fixed coordinates. Failed maps
// the combination keys of unrecoverably failed combinations to their errors;
// such combinations have no series in the result dataset.
type Result struct {
	Dataset  *dataset.Dataset
	Traces   []ProcessingTrace
	RunID    string
	Failed   map[string]error
	Metadata map[string]string
}

// Compose builds the composite dataset from the source dataset according to
// the priority and strategy definitions.
//
// The dataset is split into independent combinations of the non-priority
// coordinates and the variable name; combinations are processed in parallel.
// Sources within one combination are tried in descending priority order, the
// highest-priority source initializes the result and each following source
// fills remaining missing values through its matching strategy. A failing
// combination is recorded in Result.Failed and does not abort its siblings.
//
// Invalid definitions are configuration errors and fail the whole run before
// any combination is processed.
func Compose(ctx context.Context, ds *dataset.Dataset, prioDef PriorityDefinition, stratDef StrategyDefinition, opts Options) (*Result, error) {
	if err := prioDef.CheckDimensions(); err != nil {
		return nil, err
	}
	if err := stratDef.CheckDimensions(ds.Dims()); err != nil {
		return nil, err
	}

	combinations, err := ds.Combinations(prioDef.PriorityDimensions)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	logger := opts.logger()
	runID := uuid.NewString()
	logger.InfoContext(ctx, "starting composition",
		"run_id", runID,
		"combinations", len(combinations),
		"workers", opts.workers(),
	)

	type outcome struct {
		series *timeseries.Series
		trace  ProcessingTrace
		err    error
	}
	outcomes := make([]outcome, len(combinations))

	var done int
	var progressMu sync.Mutex
	report := func() {
		if opts.Progress == nil {
			return
		}
		progressMu.Lock()
		done++
		d := done
		progressMu.Unlock()
		opts.Progress(d, len(combinations))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, comb := range combinations {
		g.Go(func() error {
			defer report()
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			series, trace, err := composeCombination(ctx, ds.Times(), comb, prioDef, stratDef, logger)
			outcomes[i] = outcome{series: series, trace: trace, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{RunID: runID, Failed: map[string]error{}}
	var composed []*timeseries.Series
	for i, o := range outcomes {
		if o.err != nil {
			key := combinations[i].Key()
			logger.ErrorContext(ctx, "combination failed",
				"run_id", runID,
				"combination", key,
				"error", o.err,
			)
			result.Failed[key] = o.err
			continue
		}
		composed = append(composed, o.series)
		result.Traces = append(result.Traces, o.trace)
	}
	if len(composed) > 0 {
		result.Dataset = &dataset.Dataset{Series: composed}
	}

	logger.InfoContext(ctx, "composition finished",
		"run_id", runID,
		"composed", len(composed),
		"failed", len(result.Failed),
	)
	return result, nil
}

// composeCombination specializes the definitions to one combination's fixed
// coordinates and runs the fill loop over its candidates.
func composeCombination(ctx context.Context, times []time.Time, comb dataset.Combination, prioDef PriorityDefinition, stratDef StrategyDefinition, logger *slog.Logger) (*timeseries.Series, ProcessingTrace, error) {
	trace := ProcessingTrace{FixedCoords: traceCoords(comb)}

	prio := prioDef.Limit(VariableDim, comb.Variable)
	strat := stratDef.Limit(VariableDim, comb.Variable)
	fixedDims := make([]string, 0, len(comb.FixedCoords))
	for dim := range comb.FixedCoords {
		fixedDims = append(fixedDims, dim)
	}
	sort.Strings(fixedDims)
	for _, dim := range fixedDims {
		prio = prio.Limit(dim, comb.FixedCoords[dim])
		strat = strat.Limit(dim, comb.FixedCoords[dim])
	}
	if err := checkSpecialized(prio); err != nil {
		return nil, trace, err
	}

	probe := &timeseries.Series{Name: comb.Variable, Coords: comb.FixedCoords}
	if prioDef.ExcludesResult(probe) {
		trace.Steps = append(trace.Steps, ProcessingStepDescription{
			Time:        TimeAll,
			Description: "excluded from the result, not processed",
			Function:    "compose",
		})
		empty, err := emptySeries(comb, times)
		return empty, trace, err
	}

	var result *timeseries.Series
	for _, sel := range prio.Priorities {
		fillTS, err := selectCandidate(comb, sel)
		if err != nil {
			return nil, trace, err
		}
		if fillTS == nil {
			logger.DebugContext(ctx, "no data found for selector, skipping",
				"selector", sel.String(),
				"combination", comb.Key(),
			)
			continue
		}
		repr := sourceRepr(prio.PriorityDimensions, sel)

		if prioDef.ExcludesInput(fillTS) {
			trace.Steps = append(trace.Steps, ProcessingStepDescription{
				Time:        TimeNone,
				Description: fmt.Sprintf("%s is excluded from processing, skipped", repr),
				Function:    "compose",
				Source:      repr,
			})
			continue
		}
		if fillTS.AllMissing() {
			trace.Steps = append(trace.Steps, ProcessingStepDescription{
				Time:        TimeNone,
				Description: fmt.Sprintf("%s is fully missing, skipped", repr),
				Function:    "compose",
				Source:      repr,
			})
			continue
		}

		if result == nil {
			result = fillTS.Clone()
			trace.Steps = append(trace.Steps, ProcessingStepDescription{
				Time:        TimeAll,
				Description: "used as the initial timeseries",
				Function:    "initial",
				Source:      repr,
			})
		} else {
			result, err = fillFromCandidate(result, fillTS, repr, strat, &trace)
			if err != nil {
				return nil, trace, err
			}
		}

		if !result.HasMissing() {
			break
		}
	}

	if result == nil {
		return nil, trace, errors.NewDataError(
			fmt.Sprintf("no source found for combination %s", comb.Key()), nil)
	}

	out, err := timeseries.New(comb.Variable, copyCoords(comb.FixedCoords), times, result.Values)
	if err != nil {
		return nil, trace, errors.NewDataError("building composed series", err)
	}
	out.Unit = result.Unit
	return out, trace, nil
}

// fillFromCandidate applies the first applicable strategy that can handle the
// candidate, falling through on recoverable strategy failures. Every skipped
// strategy leaves a trace step.
func fillFromCandidate(result, fillTS *timeseries.Series, repr string, strat StrategyDefinition, trace *ProcessingTrace) (*timeseries.Series, error) {
	strategies := strat.FindStrategies(fillTS)
	if len(strategies) == 0 {
		return nil, errors.NewNotFoundError(
			fmt.Sprintf("matching strategy for series %q (%s)", fillTS.Name, fillTS.CoordRepr()))
	}
	for _, strategy := range strategies {
		filled, steps, err := strategy.Fill(result, fillTS, repr)
		if IsUnableToProcess(err) {
			trace.Steps = append(trace.Steps, ProcessingStepDescription{
				Time:        TimeNone,
				Description: fmt.Sprintf("%s, skipped strategy", err.Error()),
				Function:    strategy.Type(),
				Source:      repr,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		trace.Steps = append(trace.Steps, steps...)
		return filled, nil
	}
	return nil, errors.NewStrategyError(
		fmt.Sprintf("all %d matching strategies unable to process %s", len(strategies), repr), nil)
}

// checkSpecialized verifies that limiting to the fixed coordinates removed
// every non-priority constraint from the kept priority entries. A leftover
// constraint means the selector uses a dimension the dataset does not have.
func checkSpecialized(prio PriorityDefinition) error {
	isPriority := make(map[string]bool, len(prio.PriorityDimensions))
	for _, dim := range prio.PriorityDimensions {
		isPriority[dim] = true
	}
	for _, sel := range prio.Priorities {
		for dim := range sel {
			if !isPriority[dim] {
				return errors.NewConfigError(
					fmt.Sprintf("in priority %s: %q is not a dimension of the dataset", sel, dim), nil)
			}
		}
	}
	return nil
}

// selectCandidate returns the unique candidate matching the specialized
// priority selector, nil if none exists.
func selectCandidate(comb dataset.Combination, sel Selector) (*timeseries.Series, error) {
	var found *timeseries.Series
	for _, ts := range comb.Candidates {
		if !sel.MatchSeries(ts) {
			continue
		}
		if found != nil {
			return nil, errors.NewDataError(
				fmt.Sprintf("selector %s matches multiple series in combination %s", sel, comb.Key()), nil)
		}
		found = ts
	}
	return found, nil
}

// sourceRepr renders the priority-dimension values of a selector as a short
// human-readable source identifier, e.g. "source=A".
func sourceRepr(priorityDims []string, sel Selector) string {
	parts := make([]string, 0, len(priorityDims))
	for _, dim := range priorityDims {
		val, ok := sel[dim]
		if !ok || len(val.Values) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", dim, val.Values[0]))
	}
	return strings.Join(parts, ", ")
}

func traceCoords(comb dataset.Combination) map[string]string {
	coords := copyCoords(comb.FixedCoords)
	coords[VariableDim] = comb.Variable
	return coords
}

func copyCoords(coords map[string]string) map[string]string {
	out := make(map[string]string, len(coords))
	for k, v := range coords {
		out[k] = v
	}
	return out
}

func emptySeries(comb dataset.Combination, times []time.Time) (*timeseries.Series, error) {
	values := make([]float64, len(times))
	for i := range values {
		values[i] = math.NaN()
	}
	ts, err := timeseries.New(comb.Variable, copyCoords(comb.FixedCoords), times, values)
	if err != nil {
		return nil, errors.NewDataError("building empty series", err)
	}
	return ts, nil
}
