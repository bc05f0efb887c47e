package handlers

import (
	"net/http"
	"time"

	"moodloop/internal/store"
	"moodloop/internal/streak"
	"moodloop/internal/trend"
)

// StatsHandler serves the derived streak and trend reads.
type StatsHandler struct {
	store *store.Store
	loc   *time.Location
}

func NewStatsHandler(store *store.Store, referenceTZ string) (*StatsHandler, error) {
	loc, err := time.LoadLocation(referenceTZ)
	if err != nil {
		return nil, err
	}
	return &StatsHandler{store: store, loc: loc}, nil
}

func (h *StatsHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	activity, err := h.store.ActivityTimestamps(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not compute streak")
		return
	}
	writeJSON(w, http.StatusOK, streak.Compute(activity, time.Now(), h.loc))
}

// GetTrend serves the 7-day-vs-prior-7-day trend with the default +-0.5
// threshold. A null body means a window was empty and no claim is possible.
func (h *StatsHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	samples, err := h.store.ListMoodSamples(r.Context(), userID(r), now.AddDate(0, 0, -14), 500)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "could not fetch mood samples")
		return
	}
	points := make([]trend.Sample, len(samples))
	for i, m := range samples {
		points[i] = trend.Sample{Score: m.Score, CreatedAt: m.CreatedAt}
	}
	res := trend.Compute(points, now, trend.Options{Threshold: trend.DefaultThreshold})
	writeJSON(w, http.StatusOK, map[string]any{"trend": res})
}
