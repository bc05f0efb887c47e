// Package insights derives proactive coach messages from the engine's
// streak, trend, and pattern outputs.
package insights

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moodloop/internal/models"
	"moodloop/internal/trend"
)

// Message is one proactive nudge, typed so the client can style it.
type Message struct {
	Type    string `json:"type"` // inactivity, trend, cbt-milestone, pattern
	Message string `json:"message"`
}

// Action is the single suggested next step attached to the response.
type Action struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// Response is the GET /coach-insights payload.
type Response struct {
	Messages        []Message `json:"messages"`
	SuggestedAction *Action   `json:"suggested_action"`
}

const (
	inactivityDays = 3
	cbtMilestone   = 3

	// A surfaced pattern is only worth nudging about while the user is
	// actually around: active within the last 3 days.
	patternRecency = 3 * 24 * time.Hour
)

// Repository is the read surface insights consumes.
type Repository interface {
	LastActivityAt(ctx context.Context, userID int) (time.Time, error)
	ListMoodSamples(ctx context.Context, userID int, since time.Time, limit int) ([]models.MoodSample, error)
	CountCBTExercises(ctx context.Context, userID int) (int, error)
	ListSurfacedPatterns(ctx context.Context, userID, limit int) ([]models.Pattern, error)
}

type Service struct {
	repo    Repository
	logger  *zap.Logger
	nowFunc func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, nowFunc: time.Now}
}

// Derive builds the coach messages. Each source is fetched independently; a
// failed source drops its message rather than failing the response.
func (s *Service) Derive(ctx context.Context, userID int) Response {
	now := s.nowFunc()
	var resp Response

	lastActivity, err := s.repo.LastActivityAt(ctx, userID)
	if err != nil {
		s.logger.Warn("could not read last activity", zap.Error(err))
	}
	active := !lastActivity.IsZero() && now.Sub(lastActivity) < patternRecency

	if !lastActivity.IsZero() {
		days := int(now.Sub(lastActivity).Hours() / 24)
		if days >= inactivityDays {
			resp.Messages = append(resp.Messages, Message{
				Type:    "inactivity",
				Message: fmt.Sprintf("It's been %d days since your last check-in. Even a one-line entry keeps the habit alive.", days),
			})
			resp.SuggestedAction = &Action{Text: "Write a quick journal entry", Link: "/journal"}
		}
	}

	// 1wk-vs-prior-1wk windows with the default +-0.5 threshold.
	if samples, err := s.repo.ListMoodSamples(ctx, userID, now.Add(-14*24*time.Hour), 500); err == nil {
		points := make([]trend.Sample, len(samples))
		for i, m := range samples {
			points[i] = trend.Sample{Score: m.Score, CreatedAt: m.CreatedAt}
		}
		if res := trend.Compute(points, now, trend.Options{Threshold: trend.DefaultThreshold}); res != nil {
			switch res.Trend {
			case trend.Improving:
				resp.Messages = append(resp.Messages, Message{
					Type:    "trend",
					Message: fmt.Sprintf("Your mood is trending up: %.1f this week vs %.1f last week. Whatever you're doing, it's working.", res.CurrentAvg, res.PreviousAvg),
				})
			case trend.Declining:
				resp.Messages = append(resp.Messages, Message{
					Type:    "trend",
					Message: "This week has been heavier than the last. Be extra kind to yourself, and consider a thought-challenge exercise.",
				})
				if resp.SuggestedAction == nil {
					resp.SuggestedAction = &Action{Text: "Try a thought challenge", Link: "/cbt"}
				}
			}
		}
	} else {
		s.logger.Warn("could not read mood samples", zap.Error(err))
	}

	if n, err := s.repo.CountCBTExercises(ctx, userID); err == nil && n > 0 && n%cbtMilestone == 0 {
		resp.Messages = append(resp.Messages, Message{
			Type:    "cbt-milestone",
			Message: fmt.Sprintf("You've completed %d thought challenges. Reframing gets easier every time you practice.", n),
		})
	}

	if active {
		if patterns, err := s.repo.ListSurfacedPatterns(ctx, userID, 1); err == nil && len(patterns) > 0 {
			resp.Messages = append(resp.Messages, Message{
				Type:    "pattern",
				Message: "Something worth noticing: " + patterns[0].Description,
			})
		}
	}

	return resp
}
