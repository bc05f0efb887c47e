package insights

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moodloop/internal/models"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	lastActivity time.Time
	samples      []models.MoodSample
	cbtCount     int
	patterns     []models.Pattern
}

func (f *fakeRepo) LastActivityAt(context.Context, int) (time.Time, error) {
	return f.lastActivity, nil
}
func (f *fakeRepo) ListMoodSamples(context.Context, int, time.Time, int) ([]models.MoodSample, error) {
	return f.samples, nil
}
func (f *fakeRepo) CountCBTExercises(context.Context, int) (int, error) {
	return f.cbtCount, nil
}
func (f *fakeRepo) ListSurfacedPatterns(context.Context, int, int) ([]models.Pattern, error) {
	return f.patterns, nil
}

func newTestService(repo Repository) *Service {
	s := NewService(repo, zap.NewNop())
	s.nowFunc = func() time.Time { return testNow }
	return s
}

func messageTypes(resp Response) []string {
	out := make([]string, len(resp.Messages))
	for i, m := range resp.Messages {
		out[i] = m.Type
	}
	return out
}

func TestDerive_InactivityNudge(t *testing.T) {
	repo := &fakeRepo{lastActivity: testNow.AddDate(0, 0, -4)}
	resp := newTestService(repo).Derive(context.Background(), 1)

	assert.Contains(t, messageTypes(resp), "inactivity")
	require.NotNil(t, resp.SuggestedAction)
	assert.Equal(t, "/journal", resp.SuggestedAction.Link)
}

func TestDerive_NoInactivityNudgeWhenRecentlyActive(t *testing.T) {
	repo := &fakeRepo{lastActivity: testNow.AddDate(0, 0, -1)}
	resp := newTestService(repo).Derive(context.Background(), 1)
	assert.NotContains(t, messageTypes(resp), "inactivity")
}

func TestDerive_TrendMessages(t *testing.T) {
	improving := &fakeRepo{
		lastActivity: testNow,
		samples: []models.MoodSample{
			{Score: 8, CreatedAt: testNow.AddDate(0, 0, -2)},
			{Score: 5, CreatedAt: testNow.AddDate(0, 0, -9)},
		},
	}
	resp := newTestService(improving).Derive(context.Background(), 1)
	assert.Contains(t, messageTypes(resp), "trend")

	declining := &fakeRepo{
		lastActivity: testNow,
		samples: []models.MoodSample{
			{Score: 4, CreatedAt: testNow.AddDate(0, 0, -2)},
			{Score: 7, CreatedAt: testNow.AddDate(0, 0, -9)},
		},
	}
	resp = newTestService(declining).Derive(context.Background(), 1)
	assert.Contains(t, messageTypes(resp), "trend")
	require.NotNil(t, resp.SuggestedAction)
	assert.Equal(t, "/cbt", resp.SuggestedAction.Link)
}

func TestDerive_NoTrendClaimWithEmptyWindow(t *testing.T) {
	repo := &fakeRepo{
		lastActivity: testNow,
		samples: []models.MoodSample{
			{Score: 8, CreatedAt: testNow.AddDate(0, 0, -2)},
		},
	}
	resp := newTestService(repo).Derive(context.Background(), 1)
	assert.NotContains(t, messageTypes(resp), "trend")
}

func TestDerive_CBTMilestoneFiresOnMultiplesOfThree(t *testing.T) {
	for count, want := range map[int]bool{0: false, 2: false, 3: true, 6: true, 7: false} {
		repo := &fakeRepo{lastActivity: testNow, cbtCount: count}
		resp := newTestService(repo).Derive(context.Background(), 1)
		if want {
			assert.Contains(t, messageTypes(resp), "cbt-milestone", "count %d", count)
		} else {
			assert.NotContains(t, messageTypes(resp), "cbt-milestone", "count %d", count)
		}
	}
}

func TestDerive_PatternOnlyForRecentlyActiveUsers(t *testing.T) {
	pattern := models.Pattern{Description: "evenings are hard", Confidence: 0.9, IsActive: true}

	active := &fakeRepo{lastActivity: testNow.AddDate(0, 0, -1), patterns: []models.Pattern{pattern}}
	resp := newTestService(active).Derive(context.Background(), 1)
	assert.Contains(t, messageTypes(resp), "pattern")

	inactive := &fakeRepo{lastActivity: testNow.AddDate(0, 0, -5), patterns: []models.Pattern{pattern}}
	resp = newTestService(inactive).Derive(context.Background(), 1)
	assert.NotContains(t, messageTypes(resp), "pattern")
}
