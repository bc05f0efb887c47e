// Package store is the persistence collaborator: ordered, filterable reads
// and writes over the engine's entities. Journal and chat text is encrypted
// at rest; callers only ever see plaintext.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"moodloop/internal/crypto"
	"moodloop/internal/models"
)

type Store struct {
	db     *sqlx.DB
	cipher *crypto.Cipher
	logger *zap.Logger
}

func New(db *sqlx.DB, cipher *crypto.Cipher, logger *zap.Logger) *Store {
	return &Store{db: db, cipher: cipher, logger: logger}
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	encrypted, err := s.cipher.Encrypt(email)
	if err != nil {
		return models.User{}, err
	}
	blindIndex := s.cipher.BlindIndex(email)

	var u models.User
	err = s.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, email_blind_index, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, email_blind_index, password_hash, created_at`,
		encrypted, blindIndex, passwordHash).StructScan(&u)
	if err != nil {
		return models.User{}, err
	}
	u.Email = email
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, email, email_blind_index, password_hash, created_at
		 FROM users WHERE email_blind_index=$1`,
		s.cipher.BlindIndex(email))
	if err != nil {
		return models.User{}, err
	}
	u.Email = email
	return u, nil
}

// ---- mood ----

// CreateMoodSample writes the sample and dual-writes the legacy mood_entries
// row that older read paths still consume. The writes are best-effort
// parallel, not a transaction: a legacy failure is logged, never propagated,
// and never rolls back the primary row.
func (s *Store) CreateMoodSample(ctx context.Context, sample *models.MoodSample) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO mood_samples (user_id, score, type, activity_type, improvement)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		sample.UserID, sample.Score, sample.Type, sample.ActivityType, sample.Improvement).
		Scan(&sample.ID, &sample.CreatedAt)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO mood_entries (user_id, score, created_at) VALUES ($1, $2, $3)`,
		sample.UserID, sample.Score, sample.CreatedAt); err != nil {
		s.logger.Warn("legacy mood_entries dual-write failed",
			zap.Int("user_id", sample.UserID), zap.Error(err))
	}
	return nil
}

func (s *Store) ListMoodSamples(ctx context.Context, userID int, since time.Time, limit int) ([]models.MoodSample, error) {
	var out []models.MoodSample
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, score, type, activity_type, improvement, created_at
		 FROM mood_samples
		 WHERE user_id=$1 AND created_at >= $2
		 ORDER BY created_at DESC LIMIT $3`,
		userID, since, limit)
	return out, err
}

// ListPostActivitySamples returns the most recent post-activity samples that
// carry both an activity type and an improvement delta, newest first.
func (s *Store) ListPostActivitySamples(ctx context.Context, userID, limit int) ([]models.MoodSample, error) {
	var out []models.MoodSample
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, score, type, activity_type, improvement, created_at
		 FROM mood_samples
		 WHERE user_id=$1 AND type='post-activity'
		   AND activity_type IS NOT NULL AND improvement IS NOT NULL
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	return out, err
}

// ---- journal ----

func (s *Store) CreateJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	encTitle, err := s.cipher.Encrypt(entry.Title)
	if err != nil {
		return err
	}
	encContent, err := s.cipher.Encrypt(entry.Content)
	if err != nil {
		return err
	}
	entry.ActivitiesRaw = strings.Join(entry.Activities, ",")

	return s.db.QueryRowxContext(ctx,
		`INSERT INTO journal_entries
		   (user_id, title, content, mood_rating, activities, sentiment_score, sentiment_label, feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		entry.UserID, encTitle, encContent, entry.MoodRating, entry.ActivitiesRaw,
		models.SentimentNeutralScore, models.SentimentPending, models.FeedbackPending).
		Scan(&entry.ID, &entry.CreatedAt)
}

func (s *Store) ListJournalEntries(ctx context.Context, userID, limit int) ([]models.JournalEntry, error) {
	var rows []models.JournalEntry
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, title, content, mood_rating, activities,
		        sentiment_score, sentiment_label, feedback, created_at
		 FROM journal_entries
		 WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, e := range rows {
		if err := s.decryptEntry(&e); err != nil {
			// An undecryptable row is skipped rather than failing the list.
			s.logger.Warn("skipping undecryptable journal entry",
				zap.Int("entry_id", e.ID), zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) CountJournalEntriesSince(ctx context.Context, userID int, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM journal_entries WHERE user_id=$1 AND created_at >= $2`,
		userID, since)
	return n, err
}

// ApplyAnalysis writes the sentiment triple exactly once: the guard on the
// pending label makes a duplicate or late application a no-op.
func (s *Store) ApplyAnalysis(ctx context.Context, entryID int, score float64, label, feedback string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE journal_entries
		 SET sentiment_score=$2, sentiment_label=$3, feedback=$4
		 WHERE id=$1 AND sentiment_label=$5`,
		entryID, score, label, feedback, models.SentimentPending)
	return err
}

func (s *Store) decryptEntry(e *models.JournalEntry) error {
	title, err := s.cipher.Decrypt(e.Title)
	if err != nil {
		return err
	}
	content, err := s.cipher.Decrypt(e.Content)
	if err != nil {
		return err
	}
	e.Title, e.Content = title, content
	if e.ActivitiesRaw != "" {
		e.Activities = strings.Split(e.ActivitiesRaw, ",")
	}
	return nil
}

// ---- activity (streaks) ----

// ActivityTimestamps returns every mood-sample and journal timestamp for the
// user, newest first, capped at two years of history.
func (s *Store) ActivityTimestamps(ctx context.Context, userID int) ([]time.Time, error) {
	var out []time.Time
	err := s.db.SelectContext(ctx, &out,
		`SELECT created_at FROM mood_samples WHERE user_id=$1 AND created_at >= NOW() - INTERVAL '2 years'
		 UNION ALL
		 SELECT created_at FROM journal_entries WHERE user_id=$1 AND created_at >= NOW() - INTERVAL '2 years'
		 ORDER BY created_at DESC`,
		userID)
	return out, err
}

// LastActivityAt returns the most recent activity timestamp, or zero time
// when the user has none.
func (s *Store) LastActivityAt(ctx context.Context, userID int) (time.Time, error) {
	var t sql.NullTime
	err := s.db.GetContext(ctx, &t,
		`SELECT MAX(ts) FROM (
		   SELECT MAX(created_at) AS ts FROM mood_samples WHERE user_id=$1
		   UNION ALL
		   SELECT MAX(created_at) FROM journal_entries WHERE user_id=$1
		 ) latest`,
		userID)
	if err != nil || !t.Valid {
		return time.Time{}, err
	}
	return t.Time, nil
}

// ---- patterns ----

func (s *Store) InsertPattern(ctx context.Context, p *models.Pattern) error {
	return s.db.QueryRowxContext(ctx,
		`INSERT INTO patterns (id, user_id, type, description, confidence, is_active, dismissed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		p.ID, p.UserID, p.Type, p.Description, p.Confidence, p.IsActive, p.Dismissed).
		Scan(&p.CreatedAt)
}

// ListSurfacedPatterns returns active, non-dismissed patterns meeting the
// surfacing confidence threshold, newest first.
func (s *Store) ListSurfacedPatterns(ctx context.Context, userID, limit int) ([]models.Pattern, error) {
	var out []models.Pattern
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, type, description, confidence, is_active, dismissed, created_at
		 FROM patterns
		 WHERE user_id=$1 AND is_active AND NOT dismissed AND confidence >= $2
		 ORDER BY created_at DESC LIMIT $3`,
		userID, models.SurfaceConfidence, limit)
	return out, err
}

// ListPatternHistory returns all patterns including dismissed and
// low-confidence ones; the engine's dedup reads this, not the surfaced set.
func (s *Store) ListPatternHistory(ctx context.Context, userID int) ([]models.Pattern, error) {
	var out []models.Pattern
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, type, description, confidence, is_active, dismissed, created_at
		 FROM patterns WHERE user_id=$1 ORDER BY created_at DESC`,
		userID)
	return out, err
}

// DismissPattern permanently excludes the pattern from the active set.
// Returns false when no row matched.
func (s *Store) DismissPattern(ctx context.Context, userID int, patternID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE patterns SET dismissed=true WHERE id=$1 AND user_id=$2`,
		patternID, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ---- chat ----

func (s *Store) InsertChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	enc, err := s.cipher.Encrypt(msg.Content)
	if err != nil {
		return err
	}
	return s.db.QueryRowxContext(ctx,
		`INSERT INTO chat_messages (user_id, role, content) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		msg.UserID, msg.Role, enc).Scan(&msg.ID, &msg.CreatedAt)
}

// ListRecentChatMessages returns the latest messages in chronological order.
func (s *Store) ListRecentChatMessages(ctx context.Context, userID, limit int) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, role, content, created_at FROM chat_messages
		 WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.ChatMessage, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		m := rows[i]
		content, err := s.cipher.Decrypt(m.Content)
		if err != nil {
			s.logger.Warn("skipping undecryptable chat message",
				zap.Int("message_id", m.ID), zap.Error(err))
			continue
		}
		m.Content = content
		out = append(out, m)
	}
	return out, nil
}

// ---- cbt / reflections ----

func (s *Store) InsertCBTExercise(ctx context.Context, ex *models.CBTExercise) error {
	return s.db.QueryRowxContext(ctx,
		`INSERT INTO cbt_exercises (user_id, original_thought, distortion, reframed_thought)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		ex.UserID, ex.OriginalThought, ex.Distortion, ex.ReframedThought).
		Scan(&ex.ID, &ex.CreatedAt)
}

func (s *Store) ListRecentCBTExercises(ctx context.Context, userID, limit int) ([]models.CBTExercise, error) {
	var out []models.CBTExercise
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, original_thought, distortion, reframed_thought, created_at
		 FROM cbt_exercises WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	return out, err
}

func (s *Store) CountCBTExercises(ctx context.Context, userID int) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM cbt_exercises WHERE user_id=$1`, userID)
	return n, err
}

func (s *Store) UpsertReflection(ctx context.Context, rf *models.Reflection) error {
	return s.db.QueryRowxContext(ctx,
		`INSERT INTO reflections (user_id, content, week_start)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, week_start)
		 DO UPDATE SET content = EXCLUDED.content
		 RETURNING id, created_at`,
		rf.UserID, rf.Content, rf.WeekStart).Scan(&rf.ID, &rf.CreatedAt)
}

func (s *Store) LatestReflection(ctx context.Context, userID int) (*models.Reflection, error) {
	var rf models.Reflection
	err := s.db.GetContext(ctx, &rf,
		`SELECT id, user_id, content, week_start, created_at
		 FROM reflections WHERE user_id=$1 ORDER BY week_start DESC LIMIT 1`,
		userID)
	if err != nil {
		return nil, err
	}
	return &rf, nil
}
