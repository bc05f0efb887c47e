package pattern

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moodloop/internal/llm"
	"moodloop/internal/models"
)

type fakeRepo struct {
	entryCount int
	entries    []models.JournalEntry
	samples    []models.MoodSample
	history    []models.Pattern
	inserted   []models.Pattern
	insertErr  error
}

func (f *fakeRepo) CountJournalEntriesSince(context.Context, int, time.Time) (int, error) {
	return f.entryCount, nil
}
func (f *fakeRepo) ListJournalEntries(context.Context, int, int) ([]models.JournalEntry, error) {
	return f.entries, nil
}
func (f *fakeRepo) ListMoodSamples(context.Context, int, time.Time, int) ([]models.MoodSample, error) {
	return f.samples, nil
}
func (f *fakeRepo) ListPatternHistory(context.Context, int) ([]models.Pattern, error) {
	return f.history, nil
}
func (f *fakeRepo) ListSurfacedPatterns(context.Context, int, int) ([]models.Pattern, error) {
	var out []models.Pattern
	for _, p := range f.history {
		if p.Surfaced() {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakeRepo) InsertPattern(_ context.Context, p *models.Pattern) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	p.CreatedAt = time.Now()
	f.inserted = append(f.inserted, *p)
	return nil
}

type fakeDetector struct {
	candidates []llm.Candidate
	err        error
	called     bool
}

func (f *fakeDetector) DetectPatterns(context.Context, string) ([]llm.Candidate, error) {
	f.called = true
	return f.candidates, f.err
}

func newTestEngine(repo *fakeRepo, det *fakeDetector) *Engine {
	return NewEngine(repo, det, zap.NewNop())
}

func TestDetect_GateSkipsCollaboratorBelowMinEntries(t *testing.T) {
	repo := &fakeRepo{entryCount: 4}
	det := &fakeDetector{candidates: []llm.Candidate{{Type: "x", Description: "y", Confidence: 0.9}}}

	saved, err := newTestEngine(repo, det).Detect(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, saved)
	assert.False(t, det.called)
}

func TestDetect_PersistsValidCandidates(t *testing.T) {
	repo := &fakeRepo{entryCount: 6}
	det := &fakeDetector{candidates: []llm.Candidate{
		{Type: "evening-slump", Description: "Mood dips on weekday evenings after work", Confidence: 0.8},
	}}

	saved, err := newTestEngine(repo, det).Detect(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.True(t, saved[0].IsActive)
	assert.False(t, saved[0].Dismissed)
	assert.NotEmpty(t, saved[0].ID)
	assert.Equal(t, "evening-slump", saved[0].Type)
}

func TestDetect_RejectsOutOfRangeConfidence(t *testing.T) {
	repo := &fakeRepo{entryCount: 6}
	det := &fakeDetector{candidates: []llm.Candidate{
		{Type: "a", Description: "confidence too high here", Confidence: 1.5},
		{Type: "b", Description: "confidence negative here", Confidence: -0.1},
		{Type: "c", Description: "confidence not a number", Confidence: math.NaN()},
		{Type: "d", Description: "confidence infinite value", Confidence: math.Inf(1)},
	}}

	saved, err := newTestEngine(repo, det).Detect(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDetect_RejectsDuplicateOfActivePattern(t *testing.T) {
	repo := &fakeRepo{
		entryCount: 6,
		history: []models.Pattern{{
			Type:        "evening-slump",
			Description: "Mood dips on weekday evenings after work",
			Confidence:  0.8,
			IsActive:    true,
			CreatedAt:   time.Now().AddDate(0, 0, -30),
		}},
	}
	det := &fakeDetector{candidates: []llm.Candidate{
		{Type: "evening-slump", Description: "Mood dips on weekday evenings after work", Confidence: 0.9},
	}}

	saved, err := newTestEngine(repo, det).Detect(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDetect_RejectsSameTypeSurfacedRecently(t *testing.T) {
	repo := &fakeRepo{
		entryCount: 6,
		history: []models.Pattern{{
			Type:        "evening-slump",
			Description: "completely different wording about something else entirely",
			Confidence:  0.8,
			IsActive:    true,
			CreatedAt:   time.Now().AddDate(0, 0, -2),
		}},
	}
	det := &fakeDetector{candidates: []llm.Candidate{
		{Type: "evening-slump", Description: "Mood dips on weekday evenings after work", Confidence: 0.9},
	}}

	saved, err := newTestEngine(repo, det).Detect(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDetect_DismissedPatternNeverResurfaces(t *testing.T) {
	// Dedup must consult dismissed history, not just the active set: the
	// user explicitly rejected this insight.
	repo := &fakeRepo{
		entryCount: 6,
		history: []models.Pattern{{
			Type:        "evening-slump",
			Description: "Mood dips on weekday evenings after work",
			Confidence:  0.8,
			IsActive:    false,
			Dismissed:   true,
			CreatedAt:   time.Now().AddDate(0, -6, 0),
		}},
	}
	det := &fakeDetector{candidates: []llm.Candidate{
		{Type: "evening-slump", Description: "Mood dips on weekday evenings after work", Confidence: 0.95},
	}}

	saved, err := newTestEngine(repo, det).Detect(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDetect_CollaboratorFailureReturnsEmptyNotError(t *testing.T) {
	repo := &fakeRepo{entryCount: 6}
	det := &fakeDetector{err: errors.New("model unavailable")}

	saved, err := newTestEngine(repo, det).Detect(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDetect_InsertFailureDropsCandidateOnly(t *testing.T) {
	repo := &fakeRepo{entryCount: 6, insertErr: errors.New("db down")}
	det := &fakeDetector{candidates: []llm.Candidate{
		{Type: "a", Description: "some behavioral observation worth keeping", Confidence: 0.9},
	}}

	saved, err := newTestEngine(repo, det).Detect(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestListActive_FiltersDismissedAndLowConfidence(t *testing.T) {
	repo := &fakeRepo{history: []models.Pattern{
		{ID: "surfaced", Type: "a", Description: "high confidence active", Confidence: 0.9, IsActive: true},
		{ID: "low", Type: "b", Description: "below threshold", Confidence: 0.5, IsActive: true},
		{ID: "dismissed", Type: "c", Description: "user said no", Confidence: 0.9, IsActive: true, Dismissed: true},
	}}

	active, err := newTestEngine(repo, &fakeDetector{}).ListActive(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "surfaced", active[0].ID)
}

func TestDescriptionSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, descriptionSimilarity("mood dips after work", "mood dips after work"))
	assert.Less(t, descriptionSimilarity("mood dips after work", "sleep improves with morning runs"), 0.2)
}
