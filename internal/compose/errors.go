package compose

import "errors"

// StrategyUnableToProcess reports that a filling strategy cannot process the
// given pair of timeseries, usually due to missing data such as insufficient
// overlap. It is a recoverable condition: the orchestrator skips to the next
// applicable strategy.
type StrategyUnableToProcess struct {
	Reason string
}

func (e *StrategyUnableToProcess) Error() string {
	return "strategy unable to process: " + e.Reason
}

// unableToProcess is a convenience constructor.
func unableToProcess(reason string) error {
	return &StrategyUnableToProcess{Reason: reason}
}

// IsUnableToProcess reports whether err is a recoverable strategy failure.
func IsUnableToProcess(err error) bool {
	var target *StrategyUnableToProcess
	return errors.As(err, &target)
}
