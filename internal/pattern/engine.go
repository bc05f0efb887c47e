// Package pattern gates, validates, deduplicates, and persists behavioral
// patterns proposed by the inference collaborator.
package pattern

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"moodloop/internal/llm"
	"moodloop/internal/models"
)

const (
	// Detection only runs with enough signal: at least minEntries journal
	// entries inside the eligibility window. Below that the collaborator is
	// never invoked.
	minEntries        = 5
	eligibilityWindow = 28 * 24 * time.Hour

	// An active pattern of the same type blocks re-admission inside this
	// window even when the descriptions differ.
	recentTypeWindow = 14 * 24 * time.Hour

	// Word-overlap ratio above which two descriptions of the same type are
	// judged duplicates.
	similarityThreshold = 0.6

	digestEntries = 10
)

// Repository is the slice of the persistence collaborator the engine needs.
type Repository interface {
	CountJournalEntriesSince(ctx context.Context, userID int, since time.Time) (int, error)
	ListJournalEntries(ctx context.Context, userID, limit int) ([]models.JournalEntry, error)
	ListMoodSamples(ctx context.Context, userID int, since time.Time, limit int) ([]models.MoodSample, error)
	ListPatternHistory(ctx context.Context, userID int) ([]models.Pattern, error)
	ListSurfacedPatterns(ctx context.Context, userID, limit int) ([]models.Pattern, error)
	InsertPattern(ctx context.Context, p *models.Pattern) error
}

// Detector is the collaborator call the engine delegates candidate
// generation to.
type Detector interface {
	DetectPatterns(ctx context.Context, historyDigest string) ([]llm.Candidate, error)
}

type Engine struct {
	repo     Repository
	detector Detector
	logger   *zap.Logger
	nowFunc  func() time.Time
}

func NewEngine(repo Repository, detector Detector, logger *zap.Logger) *Engine {
	return &Engine{repo: repo, detector: detector, logger: logger, nowFunc: time.Now}
}

// Detect runs one detection pass and returns only the newly persisted
// patterns. Collaborator failure is absorbed: previously persisted patterns
// are unaffected and the result is simply empty.
func (e *Engine) Detect(ctx context.Context, userID int) ([]models.Pattern, error) {
	now := e.nowFunc()

	n, err := e.repo.CountJournalEntriesSince(ctx, userID, now.Add(-eligibilityWindow))
	if err != nil {
		return nil, err
	}
	if n < minEntries {
		return nil, nil
	}

	digest, err := e.buildDigest(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	candidates, err := e.detector.DetectPatterns(ctx, digest)
	if err != nil {
		e.logger.Warn("pattern detection collaborator failed",
			zap.Int("user_id", userID), zap.Error(err))
		return nil, nil
	}

	history, err := e.repo.ListPatternHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	var saved []models.Pattern
	for _, c := range candidates {
		if reason := e.rejectCandidate(c, history, now); reason != "" {
			e.logger.Debug("rejecting pattern candidate",
				zap.String("type", c.Type), zap.String("reason", reason))
			continue
		}
		p := models.Pattern{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        normalizeType(c.Type),
			Description: strings.TrimSpace(c.Description),
			Confidence:  c.Confidence,
			IsActive:    true,
			Dismissed:   false,
		}
		// Saves are per-candidate: one failed insert drops that candidate
		// only, never the batch.
		if err := e.repo.InsertPattern(ctx, &p); err != nil {
			e.logger.Warn("could not persist pattern",
				zap.String("type", p.Type), zap.Error(err))
			continue
		}
		history = append(history, p)
		saved = append(saved, p)
	}
	return saved, nil
}

// ListActive returns surfaced patterns: active, non-dismissed, and above the
// confidence threshold.
func (e *Engine) ListActive(ctx context.Context, userID int) ([]models.Pattern, error) {
	return e.repo.ListSurfacedPatterns(ctx, userID, 20)
}

// rejectCandidate returns a non-empty reason when the candidate fails
// validation or duplicates history. Dedup checks dismissed history too: a
// pattern the user explicitly rejected must never resurface under a new id.
func (e *Engine) rejectCandidate(c llm.Candidate, history []models.Pattern, now time.Time) string {
	if math.IsNaN(c.Confidence) || math.IsInf(c.Confidence, 0) || c.Confidence < 0 || c.Confidence > 1 {
		return "confidence out of range"
	}
	typ := normalizeType(c.Type)
	if typ == "" {
		return "empty type"
	}
	desc := strings.TrimSpace(c.Description)
	if desc == "" {
		return "empty description"
	}

	for _, p := range history {
		if normalizeType(p.Type) != typ {
			continue
		}
		similar := descriptionSimilarity(p.Description, desc) >= similarityThreshold
		if p.Dismissed && similar {
			return "matches dismissed pattern"
		}
		if p.IsActive && !p.Dismissed {
			if similar {
				return "duplicate of active pattern"
			}
			if now.Sub(p.CreatedAt) < recentTypeWindow {
				return "same type surfaced recently"
			}
		}
	}
	return ""
}

func (e *Engine) buildDigest(ctx context.Context, userID int, now time.Time) (string, error) {
	entries, err := e.repo.ListJournalEntries(ctx, userID, digestEntries)
	if err != nil {
		return "", err
	}
	samples, err := e.repo.ListMoodSamples(ctx, userID, now.Add(-eligibilityWindow), 200)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Recent journal entries (newest first):\n")
	for _, en := range entries {
		fmt.Fprintf(&b, "- [%s] mood %d/10, sentiment %s", en.CreatedAt.Format("2006-01-02"), en.MoodRating, en.SentimentLabel)
		if len(en.Activities) > 0 {
			fmt.Fprintf(&b, ", activities: %s", strings.Join(en.Activities, ", "))
		}
		fmt.Fprintf(&b, ": %s\n", firstN(en.Content, 200))
	}
	if len(samples) > 0 {
		var sum int
		for _, s := range samples {
			sum += s.Score
		}
		fmt.Fprintf(&b, "Mood samples in the last 4 weeks: %d, average score %.1f/10\n",
			len(samples), float64(sum)/float64(len(samples)))
	}
	return b.String(), nil
}

func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// descriptionSimilarity is the word-set overlap (Jaccard) of the two
// normalized descriptions.
func descriptionSimilarity(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	intersection := 0
	for w := range wa {
		if wb[w] {
			intersection++
		}
	}
	union := len(wa) + len(wb) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:'\"")
		if len(w) > 2 { // skip stopword-sized tokens
			out[w] = true
		}
	}
	return out
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
