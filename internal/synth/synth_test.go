package synth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moodloop/internal/models"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	patterns    []models.Pattern
	cbt         []models.CBTExercise
	reflection  *models.Reflection
	samples     []models.MoodSample
	postSamples []models.MoodSample
	failAll     bool
}

var errFake = errors.New("source down")

func (f *fakeRepo) ListSurfacedPatterns(context.Context, int, int) ([]models.Pattern, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.patterns, nil
}
func (f *fakeRepo) ListRecentCBTExercises(context.Context, int, int) ([]models.CBTExercise, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.cbt, nil
}
func (f *fakeRepo) LatestReflection(context.Context, int) (*models.Reflection, error) {
	if f.failAll || f.reflection == nil {
		return nil, errFake
	}
	return f.reflection, nil
}
func (f *fakeRepo) ListMoodSamples(context.Context, int, time.Time, int) ([]models.MoodSample, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.samples, nil
}
func (f *fakeRepo) ListPostActivitySamples(context.Context, int, int) ([]models.MoodSample, error) {
	if f.failAll {
		return nil, errFake
	}
	return f.postSamples, nil
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func fullRepo() *fakeRepo {
	return &fakeRepo{
		patterns: []models.Pattern{
			{Description: "Mood dips on weekday evenings", Confidence: 0.9, IsActive: true},
			{Description: "Morning walks lift the whole day", Confidence: 0.8, IsActive: true},
		},
		cbt: []models.CBTExercise{
			{OriginalThought: "I always fail at everything", ReframedThought: "One setback is not a pattern"},
		},
		reflection: &models.Reflection{Content: "This week I noticed I sleep better when I walk."},
		samples: []models.MoodSample{
			{Score: 7, CreatedAt: testNow.AddDate(0, 0, -2)},
			{Score: 6, CreatedAt: testNow.AddDate(0, 0, -9)},
		},
		postSamples: []models.MoodSample{
			{Type: models.MoodPostActivity, ActivityType: strPtr("walking"), Improvement: floatPtr(1.5)},
			{Type: models.MoodPostActivity, ActivityType: strPtr("reading"), Improvement: floatPtr(0.5)},
			{Type: models.MoodPostActivity, ActivityType: strPtr("doomscrolling"), Improvement: floatPtr(-1.0)},
		},
	}
}

func newTestSynth(repo Repository, maxChars int, order []Section) *Synthesizer {
	s := New(repo, maxChars, order, zap.NewNop())
	s.nowFunc = func() time.Time { return testNow }
	return s
}

func TestBuildContext_NeverExceedsBudgetPlusFooter(t *testing.T) {
	for _, maxChars := range []int{len(header) + 1, 120, 300, 800, 1500} {
		s := newTestSynth(fullRepo(), maxChars, nil)
		out := s.BuildContext(context.Background(), 1)
		assert.LessOrEqual(t, len(out), maxChars+len(footer), "budget %d", maxChars)
	}
}

func TestBuildContext_AllSourcesEmpty(t *testing.T) {
	s := newTestSynth(&fakeRepo{}, 1500, nil)
	out := s.BuildContext(context.Background(), 1)
	assert.Equal(t, header+footer, out)
}

func TestBuildContext_SourceFailuresDegradeToEmpty(t *testing.T) {
	s := newTestSynth(&fakeRepo{failAll: true}, 1500, nil)
	out := s.BuildContext(context.Background(), 1)
	assert.Equal(t, header+footer, out)
}

func TestBuildContext_ContainsAllSectionsUnderGenerousBudget(t *testing.T) {
	s := newTestSynth(fullRepo(), 1500, nil)
	out := s.BuildContext(context.Background(), 1)
	assert.Contains(t, out, "Mood trend: improving")
	assert.Contains(t, out, "Mood dips on weekday evenings")
	assert.Contains(t, out, "walking")
	assert.Contains(t, out, "thought reframes")
	assert.Contains(t, out, "weekly reflection")
}

func TestBuildContext_TrendSurvivesTightBudget(t *testing.T) {
	// Under a tight budget the default order must keep the highest-value
	// section: the trend fits, later sections are dropped.
	s := newTestSynth(fullRepo(), len(header)+70, nil)
	out := s.BuildContext(context.Background(), 1)
	assert.Contains(t, out, "Mood trend")
	assert.NotContains(t, out, "weekly reflection")
}

func TestBuildContext_OrderIsHonored(t *testing.T) {
	// With reflection ordered first and a budget for one section only, the
	// reflection wins instead of the trend.
	order := []Section{SectionReflection, SectionTrend}
	s := newTestSynth(fullRepo(), len(header)+80, order)
	out := s.BuildContext(context.Background(), 1)
	assert.Contains(t, out, "weekly reflection")
	assert.NotContains(t, out, "Mood trend")
}

func TestBuildContext_WhatWorksExcludesNegativeActivities(t *testing.T) {
	s := newTestSynth(fullRepo(), 1500, nil)
	out := s.BuildContext(context.Background(), 1)
	assert.NotContains(t, out, "doomscrolling")
}

func TestBuildContext_TruncatesLongFields(t *testing.T) {
	repo := &fakeRepo{
		patterns: []models.Pattern{{
			Description: strings.Repeat("very long description ", 30),
			Confidence:  0.9, IsActive: true,
		}},
	}
	s := newTestSynth(repo, 1500, []Section{SectionPatterns})
	out := s.BuildContext(context.Background(), 1)
	require.Contains(t, out, "Observed patterns")
	// one pattern line: cap plus ellipsis and list framing
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "- ") {
			assert.LessOrEqual(t, len(line), descCap+6)
		}
	}
}

func TestAnonymize(t *testing.T) {
	in := "Talked to jane.doe@example.com, call me at +1 (555) 123-4567, my name is Jane"
	out := Anonymize(in)
	assert.NotContains(t, out, "jane.doe@example.com")
	assert.NotContains(t, out, "555")
	assert.NotContains(t, out, "Jane")
	assert.Contains(t, out, "[email]")
	assert.Contains(t, out, "[phone]")
	assert.Contains(t, out, "[name]")
}

func TestRankActivities_OrdersByAverageImprovement(t *testing.T) {
	samples := []models.MoodSample{
		{ActivityType: strPtr("walking"), Improvement: floatPtr(2.0)},
		{ActivityType: strPtr("walking"), Improvement: floatPtr(1.0)},
		{ActivityType: strPtr("reading"), Improvement: floatPtr(2.5)},
		{ActivityType: strPtr("chores"), Improvement: floatPtr(0.1)},
		{ActivityType: strPtr("scrolling"), Improvement: floatPtr(-0.5)},
	}
	top := rankActivities(samples, 3)
	assert.Equal(t, []string{"reading", "walking", "chores"}, top)
}
