package domain

import "math"

// SeverityThresholdPercent splits visual alerts into tiers. A diff above
// this is a layout-level change, not drift.
const SeverityThresholdPercent = 20.0

// DiffResult is the transient outcome of one image comparison. Only its
// derived fields are persisted (into Alert and Run).
type DiffResult struct {
	Significant      bool
	Percent          float64
	DimensionChanged bool
	OverlayRef       string
}

// SeverityFor classifies a diff percentage into an alert tier.
func SeverityFor(percent float64) Severity {
	if percent > SeverityThresholdPercent {
		return SeverityHigh
	}
	return SeverityLow
}

// Round2 rounds to two decimal places, the precision stored on alerts
// and runs.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
