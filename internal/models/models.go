package models

import "time"

// MoodSampleType enumerates the contexts in which a mood score is captured.
type MoodSampleType string

const (
	MoodBaseline     MoodSampleType = "baseline"
	MoodPulseCheck   MoodSampleType = "pulse-check"
	MoodJournaling   MoodSampleType = "journaling"
	MoodPostActivity MoodSampleType = "post-activity"
	MoodMorning      MoodSampleType = "morning"
	MoodEvening      MoodSampleType = "evening"
	MoodTriggered    MoodSampleType = "triggered"
)

// ValidMoodSampleType reports whether t is one of the known sample types.
func ValidMoodSampleType(t MoodSampleType) bool {
	switch t {
	case MoodBaseline, MoodPulseCheck, MoodJournaling, MoodPostActivity,
		MoodMorning, MoodEvening, MoodTriggered:
		return true
	}
	return false
}

// MoodSample is a single time-stamped mood score. Immutable once created.
type MoodSample struct {
	ID           int            `db:"id" json:"id"`
	UserID       int            `db:"user_id" json:"user_id"`
	Score        int            `db:"score" json:"score"`
	Type         MoodSampleType `db:"type" json:"type"`
	ActivityType *string        `db:"activity_type" json:"activity_type,omitempty"`
	Improvement  *float64       `db:"improvement" json:"improvement,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// JournalEntry is a free-text journal record. The sentiment fields start as
// placeholders and are written exactly once by the asynchronous analysis.
type JournalEntry struct {
	ID             int       `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	Title          string    `db:"title" json:"title"`     // Encrypted in DB
	Content        string    `db:"content" json:"content"` // Encrypted in DB
	MoodRating     int       `db:"mood_rating" json:"mood_rating"`
	Activities     []string  `db:"-" json:"activities"`
	ActivitiesRaw  string    `db:"activities" json:"-"` // comma-joined storage form
	SentimentScore float64   `db:"sentiment_score" json:"sentiment_score"`
	SentimentLabel string    `db:"sentiment_label" json:"sentiment_label"`
	Feedback       string    `db:"feedback" json:"feedback"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Placeholder values a journal entry carries until analysis lands.
const (
	SentimentPending      = "pending"
	FeedbackPending       = "Your entry is being reviewed. Check back shortly."
	SentimentNeutralScore = 0.0
)

// Pattern is a behavioral insight admitted through the pattern engine's
// validation path. Callers never write these rows directly.
type Pattern struct {
	ID          string    `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	Confidence  float64   `db:"confidence" json:"confidence"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	Dismissed   bool      `db:"dismissed" json:"dismissed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SurfaceConfidence is the minimum confidence for a pattern to be shown to
// the user or folded into coach messages.
const SurfaceConfidence = 0.7

// Surfaced reports whether the pattern qualifies as a user-facing insight.
func (p Pattern) Surfaced() bool {
	return p.IsActive && !p.Dismissed && p.Confidence >= SurfaceConfidence
}

// ChatMessage is one side of a coach conversation.
type ChatMessage struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`       // "user" or "assistant"
	Content   string    `db:"content" json:"content"` // Encrypted in DB
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CBTExercise is a completed thought-challenge exercise.
type CBTExercise struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"user_id"`
	OriginalThought string    `db:"original_thought" json:"original_thought"`
	Distortion      string    `db:"distortion" json:"distortion"`
	ReframedThought string    `db:"reframed_thought" json:"reframed_thought"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Reflection is a weekly free-form reflection.
type Reflection struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	WeekStart time.Time `db:"week_start" json:"week_start"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Streak is derived from activity timestamps, never persisted.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// User mirrors the auth tables; email is encrypted with a blind index for
// lookup.
type User struct {
	ID              int       `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"` // Encrypted in DB
	EmailBlindIndex string    `db:"email_blind_index" json:"-"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
