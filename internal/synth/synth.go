// Package synth assembles the length-bounded context blob handed to the
// inference collaborator with every chat request.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"moodloop/internal/models"
	"moodloop/internal/trend"
)

// Section identifies one candidate block of the context blob.
type Section string

const (
	SectionTrend      Section = "trend"
	SectionPatterns   Section = "patterns"
	SectionWhatWorks  Section = "what-works"
	SectionCBT        Section = "cbt"
	SectionReflection Section = "reflection"
)

// DefaultOrder tries sections by value under a tight budget: the mood trend
// first, the reflection last. The order is an explicit parameter precisely
// because greedy packing silently drops whatever comes after the budget runs
// out.
var DefaultOrder = []Section{
	SectionTrend,
	SectionPatterns,
	SectionWhatWorks,
	SectionCBT,
	SectionReflection,
}

const (
	header = "Context about this user (background only, never quote verbatim):\n"
	footer = "\n--- end of context ---"

	maxPatterns   = 2
	maxCBT        = 2
	maxActivities = 3

	descCap       = 100
	thoughtCap    = 80
	reflectionCap = 200

	postActivityWindow = 20
)

// Repository is the slice of the persistence collaborator the synthesizer
// fetches each input from, independently.
type Repository interface {
	ListSurfacedPatterns(ctx context.Context, userID, limit int) ([]models.Pattern, error)
	ListRecentCBTExercises(ctx context.Context, userID, limit int) ([]models.CBTExercise, error)
	LatestReflection(ctx context.Context, userID int) (*models.Reflection, error)
	ListMoodSamples(ctx context.Context, userID int, since time.Time, limit int) ([]models.MoodSample, error)
	ListPostActivitySamples(ctx context.Context, userID, limit int) ([]models.MoodSample, error)
}

type Synthesizer struct {
	repo     Repository
	maxChars int
	order    []Section
	logger   *zap.Logger
	nowFunc  func() time.Time
}

func New(repo Repository, maxChars int, order []Section, logger *zap.Logger) *Synthesizer {
	if maxChars <= 0 {
		maxChars = 1500
	}
	if order == nil {
		order = DefaultOrder
	}
	return &Synthesizer{repo: repo, maxChars: maxChars, order: order, logger: logger, nowFunc: time.Now}
}

// BuildContext renders each section in order and appends it only while it
// fits the budget; a section that does not fit is silently dropped. The
// result never exceeds maxChars plus the fixed footer. A fetch failure
// drops that section only; context is always best-effort.
func (s *Synthesizer) BuildContext(ctx context.Context, userID int) string {
	running := header
	for _, sec := range s.order {
		text := s.render(ctx, userID, sec)
		if text == "" {
			continue
		}
		if len(running)+len(text) >= s.maxChars {
			continue
		}
		running += text
	}
	return running + footer
}

func (s *Synthesizer) render(ctx context.Context, userID int, sec Section) string {
	switch sec {
	case SectionTrend:
		return s.renderTrend(ctx, userID)
	case SectionPatterns:
		return s.renderPatterns(ctx, userID)
	case SectionWhatWorks:
		return s.renderWhatWorks(ctx, userID)
	case SectionCBT:
		return s.renderCBT(ctx, userID)
	case SectionReflection:
		return s.renderReflection(ctx, userID)
	}
	return ""
}

// renderTrend uses the two-week rolling trend with the stricter coaching
// threshold (trend.CoachingThreshold), not the API's default.
func (s *Synthesizer) renderTrend(ctx context.Context, userID int) string {
	now := s.nowFunc()
	samples, err := s.repo.ListMoodSamples(ctx, userID, now.Add(-14*24*time.Hour), 500)
	if err != nil {
		s.logger.Debug("trend section skipped", zap.Error(err))
		return ""
	}
	points := make([]trend.Sample, len(samples))
	for i, m := range samples {
		points[i] = trend.Sample{Score: m.Score, CreatedAt: m.CreatedAt}
	}
	res := trend.Compute(points, now, trend.Options{Threshold: trend.CoachingThreshold})
	if res == nil {
		return ""
	}
	return fmt.Sprintf("Mood trend: %s (this week avg %.1f, prior week avg %.1f).\n",
		res.Trend, res.CurrentAvg, res.PreviousAvg)
}

func (s *Synthesizer) renderPatterns(ctx context.Context, userID int) string {
	patterns, err := s.repo.ListSurfacedPatterns(ctx, userID, maxPatterns)
	if err != nil {
		s.logger.Debug("patterns section skipped", zap.Error(err))
		return ""
	}
	if len(patterns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Observed patterns:\n")
	for _, p := range patterns {
		fmt.Fprintf(&b, "- %s\n", truncate(Anonymize(p.Description), descCap))
	}
	return b.String()
}

func (s *Synthesizer) renderWhatWorks(ctx context.Context, userID int) string {
	samples, err := s.repo.ListPostActivitySamples(ctx, userID, postActivityWindow)
	if err != nil {
		s.logger.Debug("what-works section skipped", zap.Error(err))
		return ""
	}
	top := rankActivities(samples, maxActivities)
	if len(top) == 0 {
		return ""
	}
	return "Activities that lift their mood: " + strings.Join(top, ", ") + ".\n"
}

func (s *Synthesizer) renderCBT(ctx context.Context, userID int) string {
	exercises, err := s.repo.ListRecentCBTExercises(ctx, userID, maxCBT)
	if err != nil {
		s.logger.Debug("cbt section skipped", zap.Error(err))
		return ""
	}
	if len(exercises) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent thought reframes:\n")
	for _, ex := range exercises {
		fmt.Fprintf(&b, "- %q -> %q\n",
			truncate(Anonymize(ex.OriginalThought), thoughtCap),
			truncate(Anonymize(ex.ReframedThought), thoughtCap))
	}
	return b.String()
}

func (s *Synthesizer) renderReflection(ctx context.Context, userID int) string {
	rf, err := s.repo.LatestReflection(ctx, userID)
	if err != nil || rf == nil {
		return ""
	}
	return "Latest weekly reflection: " + truncate(Anonymize(rf.Content), reflectionCap) + "\n"
}

// rankActivities averages the improvement delta per activity type over the
// supplied post-activity samples and returns the top n, descending.
func rankActivities(samples []models.MoodSample, n int) []string {
	type acc struct {
		sum   float64
		count int
	}
	byActivity := make(map[string]*acc)
	for _, m := range samples {
		if m.ActivityType == nil || m.Improvement == nil {
			continue
		}
		a, ok := byActivity[*m.ActivityType]
		if !ok {
			a = &acc{}
			byActivity[*m.ActivityType] = a
		}
		a.sum += *m.Improvement
		a.count++
	}

	type ranked struct {
		name string
		avg  float64
	}
	items := make([]ranked, 0, len(byActivity))
	for name, a := range byActivity {
		avg := a.sum / float64(a.count)
		if avg <= 0 {
			continue // only activities with a positive average delta
		}
		items = append(items, ranked{name: name, avg: avg})
	}
	// Insertion sort: the map never holds more than a handful of activities.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].avg > items[j-1].avg; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.name
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
