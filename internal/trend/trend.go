// Package trend classifies windowed mood movement: the mean score of a
// recent window against the window before it.
package trend

import (
	"time"
)

// Direction labels the movement between the two windows.
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

// Thresholds used by the two call sites. The API trend uses the looser
// DefaultThreshold; the two-week trend feeding coach context uses the
// stricter CoachingThreshold. A caller must use one consistently.
const (
	DefaultThreshold  = 0.5
	CoachingThreshold = 0.3
)

// Sample is the minimal shape the aggregator needs.
type Sample struct {
	Score     int
	CreatedAt time.Time
}

// Result is the derived trend claim.
type Result struct {
	CurrentAvg  float64   `json:"current_avg"`
	PreviousAvg float64   `json:"previous_avg"`
	Change      float64   `json:"change"`
	Trend       Direction `json:"trend"`
}

// Options control window size and classification threshold.
type Options struct {
	Window    time.Duration // each window's span; 7 days if zero
	Threshold float64       // |change| <= Threshold is stable; DefaultThreshold if zero
}

// Compute returns the trend over [now-Window, now) versus the Window before
// it, or nil when either window has no samples: with an empty window there
// is no trend claim to make, and callers must not coerce that into "stable".
func Compute(samples []Sample, now time.Time, opts Options) *Result {
	window := opts.Window
	if window == 0 {
		window = 7 * 24 * time.Hour
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	recentStart := now.Add(-window)
	previousStart := now.Add(-2 * window)

	var recentSum, previousSum float64
	var recentN, previousN int
	for _, s := range samples {
		switch {
		case !s.CreatedAt.Before(recentStart) && s.CreatedAt.Before(now):
			recentSum += float64(s.Score)
			recentN++
		case !s.CreatedAt.Before(previousStart) && s.CreatedAt.Before(recentStart):
			previousSum += float64(s.Score)
			previousN++
		}
	}
	if recentN == 0 || previousN == 0 {
		return nil
	}

	res := &Result{
		CurrentAvg:  recentSum / float64(recentN),
		PreviousAvg: previousSum / float64(previousN),
	}
	res.Change = res.CurrentAvg - res.PreviousAvg
	switch {
	case res.Change > threshold:
		res.Trend = Improving
	case res.Change < -threshold:
		res.Trend = Declining
	default:
		res.Trend = Stable
	}
	return res
}
