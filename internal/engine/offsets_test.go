package engine

import (
	"testing"
	"time"
)

func TestComputeFireTimes(t *testing.T) {
	anchor := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		offsets   []int64
		atTimeUTC string
		expected  []time.Time
	}{
		{
			name:    "one day before",
			offsets: []int64{-86400},
			expected: []time.Time{
				time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "before and after in offset order",
			offsets: []int64{-86400, 86400},
			expected: []time.Time{
				time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "zero offset fires at anchor",
			offsets: []int64{0},
			expected: []time.Time{
				anchor,
			},
		},
		{
			name:      "at time replaces the clock on the offset date",
			offsets:   []int64{-86400},
			atTimeUTC: "09:00",
			expected: []time.Time{
				time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:      "sub-day offset collapses onto the at time",
			offsets:   []int64{-3600},
			atTimeUTC: "09:00",
			expected: []time.Time{
				time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:      "malformed at time is ignored",
			offsets:   []int64{3600},
			atTimeUTC: "25:99",
			expected: []time.Time{
				time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC),
			},
		},
	}

	var s OffsetScheduler
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ComputeFireTimes(anchor, tt.offsets, tt.atTimeUTC)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d fire times, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if !got[i].Equal(tt.expected[i]) {
					t.Errorf("fire time %d: expected %s, got %s", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestComputeFireTimesAtTimeIgnoresAnchorClock(t *testing.T) {
	anchor := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

	var s OffsetScheduler
	got := s.ComputeFireTimes(anchor, []int64{-86400}, "09:00")
	expected := time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC)
	if len(got) != 1 || !got[0].Equal(expected) {
		t.Errorf("expected %s, got %v", expected, got)
	}
}

func TestComputeFireTimesNonUTCAnchor(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	anchor := time.Date(2024, 1, 9, 22, 0, 0, 0, loc) // 2024-01-10 03:00 UTC

	var s OffsetScheduler
	got := s.ComputeFireTimes(anchor, []int64{0}, "09:00")
	expected := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	if len(got) != 1 || !got[0].Equal(expected) {
		t.Errorf("expected %s, got %v", expected, got)
	}
}

func TestComputeFireTimesDedupe(t *testing.T) {
	anchor := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	offsets := []int64{-3600, -7200} // both collapse onto 09:00 the prior day

	var plain OffsetScheduler
	if got := plain.ComputeFireTimes(anchor, offsets, "09:00"); len(got) != 2 {
		t.Errorf("expected duplicates kept by default, got %d fire times", len(got))
	}

	deduped := OffsetScheduler{DedupeFireTimes: true}
	got := deduped.ComputeFireTimes(anchor, offsets, "09:00")
	if len(got) != 1 {
		t.Fatalf("expected duplicates collapsed, got %d fire times", len(got))
	}
	expected := time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)
	if !got[0].Equal(expected) {
		t.Errorf("expected %s, got %s", expected, got[0])
	}
}
