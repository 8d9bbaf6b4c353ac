package pipeline

import (
	"testing"
	"time"

	"github.com/theirongolddev/gwlens/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize_ClipsToRange(t *testing.T) {
	now := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	var buckets []model.DayBucket
	// Ten days, newest first, to exercise the sort.
	for i := 0; i < 10; i++ {
		buckets = append(buckets, model.DayBucket{Date: day(2024, 3, 20-i), Requests: int64(10 + i)})
	}

	points := Normalize(buckets, 7, now)
	if len(points) > 7 {
		t.Fatalf("len = %d, want <= 7", len(points))
	}

	today := day(2024, 3, 20)
	earliest := today.AddDate(0, 0, -7)
	for i, p := range points {
		if p.Date.Before(earliest) || p.Date.After(today) {
			t.Errorf("points[%d].Date = %s, outside [%s, %s]", i, p.Date, earliest, today)
		}
		if i > 0 && !points[i-1].Date.Before(p.Date) {
			t.Errorf("points not ascending at %d: %s then %s", i, points[i-1].Date, p.Date)
		}
	}
	if last := points[len(points)-1]; last.Label != "Mar 20" || last.Requests != 10 {
		t.Errorf("last = %+v, want Mar 20 with 10 requests", last)
	}
}

func TestNormalize_Empty(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		days      []model.DayBucket
		rangeDays int
	}{
		{"nil buckets", nil, 7},
		{"zero range", []model.DayBucket{{Date: now, Requests: 1}}, 0},
		{"negative range", []model.DayBucket{{Date: now, Requests: 1}}, -3},
		{"all too old", []model.DayBucket{{Date: now.AddDate(0, 0, -40), Requests: 1}}, 7},
		{"zero date", []model.DayBucket{{Requests: 1}}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.days, tt.rangeDays, now)
			if got == nil {
				t.Fatal("got nil slice, want empty")
			}
			if len(got) != 0 {
				t.Errorf("len = %d, want 0", len(got))
			}
		})
	}
}

func TestNormalize_KeepsSuccessRatePresence(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	rate := 97.5
	points := Normalize([]model.DayBucket{
		{Date: day(2024, 1, 1), Requests: 4},
		{Date: day(2024, 1, 2), Requests: 8, SuccessRate: &rate},
	}, 7, now)

	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if points[0].SuccessRate != nil {
		t.Errorf("points[0].SuccessRate = %v, want nil", *points[0].SuccessRate)
	}
	if points[1].SuccessRate == nil || *points[1].SuccessRate != 97.5 {
		t.Errorf("points[1].SuccessRate = %v, want 97.5", points[1].SuccessRate)
	}
}
