// Package streak computes consecutive-activity-day streaks. Day boundaries
// use a fixed reference timezone so a streak never flickers with server
// location or the caller's ambient zone.
package streak

import (
	"sort"
	"time"

	"moodloop/internal/models"
)

// maxWalk caps the backward scan for the current streak so very old accounts
// cannot make the walk unbounded.
const maxWalk = 365

// Compute derives current/longest streaks from activity timestamps (mood
// samples and journal entries combined). A day qualifies if at least one
// timestamp falls inside its [start, end) bounds in loc.
func Compute(activity []time.Time, now time.Time, loc *time.Location) models.Streak {
	days := make(map[string]bool, len(activity))
	for _, t := range activity {
		days[t.In(loc).Format("2006-01-02")] = true
	}
	if len(days) == 0 {
		return models.Streak{}
	}

	today := dateOnly(now.In(loc))

	// "Haven't logged yet today" must not zero an active streak: when today
	// does not qualify, the walk starts from yesterday instead.
	cursor := today
	if !days[cursor.Format("2006-01-02")] {
		cursor = cursor.AddDate(0, 0, -1)
	}

	current := 0
	for i := 0; i < maxWalk; i++ {
		if !days[cursor.Format("2006-01-02")] {
			break
		}
		current++
		cursor = cursor.AddDate(0, 0, -1)
	}

	longest := longestRun(days, loc)
	if current > longest {
		longest = current
	}
	return models.Streak{Current: current, Longest: longest}
}

// longestRun scans the full qualifying-day set once, ascending, tracking the
// longest run of consecutive calendar days.
func longestRun(days map[string]bool, loc *time.Location) int {
	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		t, err := time.ParseInLocation("2006-01-02", d, loc)
		if err != nil {
			continue
		}
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 0, 0
	for i, d := range sorted {
		// AddDate, not a 24h delta: DST days are 23 or 25 hours long.
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
