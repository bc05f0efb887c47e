package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func sampleSet(recentScore, previousScore int) []Sample {
	return []Sample{
		{Score: recentScore, CreatedAt: now.AddDate(0, 0, -2)},
		{Score: recentScore, CreatedAt: now.AddDate(0, 0, -5)},
		{Score: previousScore, CreatedAt: now.AddDate(0, 0, -9)},
		{Score: previousScore, CreatedAt: now.AddDate(0, 0, -12)},
	}
}

func TestCompute_NilWhenRecentWindowEmpty(t *testing.T) {
	samples := []Sample{{Score: 5, CreatedAt: now.AddDate(0, 0, -10)}}
	assert.Nil(t, Compute(samples, now, Options{}))
}

func TestCompute_NilWhenPreviousWindowEmpty(t *testing.T) {
	samples := []Sample{{Score: 5, CreatedAt: now.AddDate(0, 0, -2)}}
	assert.Nil(t, Compute(samples, now, Options{}))
}

func TestCompute_Improving(t *testing.T) {
	res := Compute(sampleSet(7, 6), now, Options{})
	require.NotNil(t, res)
	assert.Equal(t, Improving, res.Trend)
	assert.InDelta(t, 7.0, res.CurrentAvg, 0.001)
	assert.InDelta(t, 6.0, res.PreviousAvg, 0.001)
	assert.InDelta(t, 1.0, res.Change, 0.001)
}

func TestCompute_Declining(t *testing.T) {
	res := Compute(sampleSet(4, 6), now, Options{})
	require.NotNil(t, res)
	assert.Equal(t, Declining, res.Trend)
}

func TestCompute_StableAtThresholdBoundary(t *testing.T) {
	// change of exactly +0.5 is stable, not improving
	samples := []Sample{
		{Score: 6, CreatedAt: now.AddDate(0, 0, -1)},
		{Score: 7, CreatedAt: now.AddDate(0, 0, -2)},
		{Score: 6, CreatedAt: now.AddDate(0, 0, -9)},
	}
	res := Compute(samples, now, Options{})
	require.NotNil(t, res)
	assert.Equal(t, Stable, res.Trend)
	assert.InDelta(t, 0.5, res.Change, 0.001)
}

func TestCompute_CoachingThresholdIsStricter(t *testing.T) {
	samples := []Sample{
		{Score: 6, CreatedAt: now.AddDate(0, 0, -1)},
		{Score: 7, CreatedAt: now.AddDate(0, 0, -2)},
		{Score: 6, CreatedAt: now.AddDate(0, 0, -9)},
	}
	res := Compute(samples, now, Options{Threshold: CoachingThreshold})
	require.NotNil(t, res)
	assert.Equal(t, Improving, res.Trend)
}

func TestCompute_IgnoresSamplesOutsideBothWindows(t *testing.T) {
	samples := append(sampleSet(7, 6),
		Sample{Score: 1, CreatedAt: now.AddDate(0, 0, -20)})
	res := Compute(samples, now, Options{})
	require.NotNil(t, res)
	assert.InDelta(t, 7.0, res.CurrentAvg, 0.001)
	assert.InDelta(t, 6.0, res.PreviousAvg, 0.001)
}
