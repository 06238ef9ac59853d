package storage

import (
	"testing"
	"time"

	"github.com/meltforce/fittrack/internal/models"
)

// TestHealthReportThresholds verifies the warning and critical cutoffs.
func TestHealthReportThresholds(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "healthy"},
		{1024, "healthy"},
		{4*1024*1024 - 1, "healthy"},
		{4 * 1024 * 1024, "warning"},
		{4*1024*1024 + 512*1024, "critical"},
		{6 * 1024 * 1024, "critical"},
	}
	for _, tt := range tests {
		got := healthReport(tt.size)
		if got.Status != tt.want {
			t.Errorf("healthReport(%d).Status = %q, want %q", tt.size, got.Status, tt.want)
		}
		if got.SizeBytes != tt.size {
			t.Errorf("healthReport(%d).SizeBytes = %d", tt.size, got.SizeBytes)
		}
	}
	if got := healthReport(5 * 1024 * 1024).Percentage; got != 100 {
		t.Errorf("percentage at quota = %d, want 100", got)
	}
}

// TestWeeklySetCounts verifies the calendar-week bucketing: buckets start on
// today's midnight stepped back in 7-day strides, oldest labeled W-1.
func TestWeeklySetCounts(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	sets := []models.CompletedSet{
		{Date: day.Add(2 * time.Hour)},                 // newest bucket
		{Date: day.AddDate(0, 0, -7)},                  // previous bucket
		{Date: day.AddDate(0, 0, -7).Add(time.Hour)},   // previous bucket
		{Date: day.AddDate(0, 0, -8)},                  // two buckets back
		{Date: day.AddDate(0, 0, -100)},                // outside the window
	}

	got := WeeklySetCounts(sets, 3, now)
	if len(got) != 3 {
		t.Fatalf("buckets = %d, want 3", len(got))
	}
	wantLabels := []string{"W-1", "W-2", "W-3"}
	wantCounts := []int{1, 2, 1}
	for i := range got {
		if got[i].Label != wantLabels[i] {
			t.Errorf("bucket %d label = %q, want %q", i, got[i].Label, wantLabels[i])
		}
		if got[i].Sets != wantCounts[i] {
			t.Errorf("bucket %d sets = %d, want %d", i, got[i].Sets, wantCounts[i])
		}
	}
}

// TestWeeklySetCountsEmpty verifies empty input still yields labeled buckets.
func TestWeeklySetCountsEmpty(t *testing.T) {
	got := WeeklySetCounts(nil, 4, time.Now())
	if len(got) != 4 {
		t.Fatalf("buckets = %d, want 4", len(got))
	}
	for _, b := range got {
		if b.Sets != 0 {
			t.Errorf("bucket %s sets = %d, want 0", b.Label, b.Sets)
		}
	}
}
