package compose

import (
	"strings"
	"time"
)

// Markers for the Time field of a ProcessingStepDescription.
const (
	// TimeAll marks a step affecting the whole time range.
	TimeAll = "all"
	// TimeNone marks a step that changed no values.
	TimeNone = "none"
)

// ProcessingStepDescription is an immutable provenance record explaining how
// a time range of the composite result was derived.
type ProcessingStepDescription struct {
	Time        string `json:"time"`
	Description string `json:"description"`
	Function    string `json:"function"`
	Source      string `json:"source"`
}

// ProcessingTrace collects the ordered processing steps for one result
// timeseries.
type ProcessingTrace struct {
	FixedCoords map[string]string           `json:"fixed_coords"`
	Steps       []ProcessingStepDescription `json:"steps"`
}

// formatTimes renders a list of timestamps for the Time field of a
// description. An empty list renders as TimeNone.
func formatTimes(times []time.Time) string {
	if len(times) == 0 {
		return TimeNone
	}
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = t.Format("2006-01-02")
	}
	return strings.Join(parts, ",")
}

// maskedTimes returns the timestamps where mask is true.
func maskedTimes(times []time.Time, mask []bool) []time.Time {
	var out []time.Time
	for i, ok := range mask {
		if ok {
			out = append(out, times[i])
		}
	}
	return out
}

func anyTrue(mask []bool) bool {
	for _, v := range mask {
		if v {
			return true
		}
	}
	return false
}

func allTrue(mask []bool) bool {
	for _, v := range mask {
		if !v {
			return false
		}
	}
	return true
}
