package answers

import (
	"math"
	"time"
)

// StreakThreshold is the minimum daily score that keeps a streak alive.
const StreakThreshold = 70.0

// ScorePercentage returns correct/total as a percentage rounded to one decimal.
func ScorePercentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

// Rank grades a daily score.
func Rank(pct float64) string {
	switch {
	case pct >= 100:
		return "S"
	case pct >= 80:
		return "A"
	case pct >= 70:
		return "B"
	case pct >= 60:
		return "C"
	default:
		return "D"
	}
}

// ComputeStreaks returns the current and best run of consecutive days in
// days (YYYY-MM-DD, any order). The current run counts only if it ends on
// today or the day before.
func ComputeStreaks(days []string, today time.Time) (current, best int) {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}

	for d := range set {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		// Only start counting at the first day of a run.
		if set[day.AddDate(0, 0, -1).Format("2006-01-02")] {
			continue
		}
		run := 1
		for set[day.AddDate(0, 0, run).Format("2006-01-02")] {
			run++
		}
		if run > best {
			best = run
		}
	}

	today = today.UTC()
	anchor := today
	if !set[anchor.Format("2006-01-02")] {
		anchor = today.AddDate(0, 0, -1)
	}
	for set[anchor.AddDate(0, 0, -current).Format("2006-01-02")] {
		current++
	}
	return current, best
}
