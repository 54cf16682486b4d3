package answers

import (
	"testing"
	"time"
)

func TestScorePercentage(t *testing.T) {
	tests := []struct {
		correct, total int
		want           float64
	}{
		{10, 10, 100},
		{7, 10, 70},
		{2, 3, 66.7},
		{0, 10, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := ScorePercentage(tt.correct, tt.total); got != tt.want {
			t.Errorf("ScorePercentage(%d, %d) = %v, want %v", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "S"},
		{99.9, "A"},
		{80, "A"},
		{79.9, "B"},
		{70, "B"},
		{69.9, "C"},
		{60, "C"},
		{59.9, "D"},
		{0, "D"},
	}
	for _, tt := range tests {
		if got := Rank(tt.pct); got != tt.want {
			t.Errorf("Rank(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestComputeStreaks(t *testing.T) {
	today := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		days        []string
		wantCurrent int
		wantBest    int
	}{
		{"none", nil, 0, 0},
		{"today only", []string{"2026-03-14"}, 1, 1},
		{"ending yesterday", []string{"2026-03-12", "2026-03-13"}, 2, 2},
		{"broken", []string{"2026-03-10", "2026-03-11", "2026-03-12"}, 0, 3},
		{"best earlier", []string{"2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04", "2026-03-13", "2026-03-14"}, 2, 4},
		{"unordered with duplicates", []string{"2026-03-14", "2026-03-12", "2026-03-13", "2026-03-13"}, 3, 3},
		{"across month boundary", []string{"2026-02-28", "2026-03-01", "2026-03-02"}, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, best := ComputeStreaks(tt.days, today)
			if current != tt.wantCurrent || best != tt.wantBest {
				t.Errorf("ComputeStreaks() = (%d, %d), want (%d, %d)", current, best, tt.wantCurrent, tt.wantBest)
			}
		})
	}
}
