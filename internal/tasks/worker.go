// Package tasks runs journal sentiment analysis off the request path. The
// journal write returns immediately with placeholder fields; the analysis
// result lands asynchronously, so a client can briefly observe the pending
// placeholders. That staleness window is contract, not accident.
package tasks

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"moodloop/internal/llm"
)

// AnalysisJob carries everything the worker needs; it never re-reads (and
// never re-decrypts) the entry.
type AnalysisJob struct {
	EntryID    int
	UserID     int
	Title      string
	Content    string
	MoodRating int
}

// Analyzer is the collaborator call under test-friendly abstraction.
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, title, content string, moodRating int) (llm.Sentiment, error)
}

// Applier writes the analysis result back, exactly once.
type Applier interface {
	ApplyAnalysis(ctx context.Context, entryID int, score float64, label, feedback string) error
}

// Worker is a bounded-queue pool. A full queue drops the job with a log
// line; the entry then simply keeps its placeholder feedback.
type Worker struct {
	jobs     chan AnalysisJob
	analyzer Analyzer
	applier  Applier
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewWorker(analyzer Analyzer, applier Applier, queueSize, workers int, logger *zap.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	if workers <= 0 {
		workers = 2
	}
	w := &Worker{
		jobs:     make(chan AnalysisJob, queueSize),
		analyzer: analyzer,
		applier:  applier,
		logger:   logger,
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Enqueue submits a job without blocking the request. Returns false when the
// queue is full.
func (w *Worker) Enqueue(job AnalysisJob) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		w.logger.Warn("analysis queue full, dropping job",
			zap.Int("entry_id", job.EntryID))
		return false
	}
}

// Close drains the queue and waits for in-flight jobs.
func (w *Worker) Close() {
	close(w.jobs)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for job := range w.jobs {
		w.process(job)
	}
}

// process analyzes one entry. A timeout goes straight to the neutral
// default; a hard failure gets one retry first. Either way the entry always
// ends up with usable feedback.
func (w *Worker) process(job AnalysisJob) {
	ctx := context.Background()

	sentiment, err := w.analyzer.AnalyzeSentiment(ctx, job.Title, job.Content, job.MoodRating)
	if err != nil && !errors.Is(err, llm.ErrTimeout) {
		sentiment, err = w.analyzer.AnalyzeSentiment(ctx, job.Title, job.Content, job.MoodRating)
	}
	if err != nil {
		w.logger.Warn("sentiment analysis failed, applying neutral default",
			zap.Int("entry_id", job.EntryID), zap.Error(err))
		sentiment = llm.Neutral()
	}

	if err := w.applier.ApplyAnalysis(ctx, job.EntryID, sentiment.Score, sentiment.Label, sentiment.Feedback); err != nil {
		w.logger.Error("could not apply analysis result",
			zap.Int("entry_id", job.EntryID), zap.Error(err))
	}
}
