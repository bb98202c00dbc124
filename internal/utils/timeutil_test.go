package utils

import (
	"testing"
	"time"
)

func TestHoursBetween(t *testing.T) {
	if got := HoursBetween("08:00:00", "16:30:00"); got != 8.5 {
		t.Fatalf("expected 8.5 hours, got %v", got)
	}
	if got := HoursBetween("09:00", "12:00"); got != 3 {
		t.Fatalf("expected 3 hours for HH:MM input, got %v", got)
	}
}

func TestHoursBetweenOvernight(t *testing.T) {
	if got := HoursBetween("22:00:00", "02:00:00"); got != 4 {
		t.Fatalf("expected overnight shift to span 4 hours, got %v", got)
	}
}

func TestHoursBetweenBadInput(t *testing.T) {
	if got := HoursBetween("not-a-time", "16:00:00"); got != 0 {
		t.Fatalf("expected 0 for unparseable input, got %v", got)
	}
}

func TestRoundToBlock(t *testing.T) {
	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		minute int
		want   string
	}{
		{10, "10:00:00"},
		{20, "10:30:00"},
		{44, "10:30:00"},
		{46, "11:00:00"},
	}
	for _, tc := range cases {
		rounded := RoundToBlock(base.Add(time.Duration(tc.minute)*time.Minute), 30*time.Minute)
		if got := ClockString(rounded); got != tc.want {
			t.Errorf("minute %d: expected %s, got %s", tc.minute, tc.want, got)
		}
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps("09:00:00", "10:00:00", "09:30:00", "11:00:00") {
		t.Fatalf("expected overlapping windows to overlap")
	}
	if Overlaps("09:00:00", "10:00:00", "10:00:00", "11:00:00") {
		t.Fatalf("expected adjacent windows not to overlap")
	}
}

func TestRounding(t *testing.T) {
	if got := Round2(91.6666666); got != 91.67 {
		t.Fatalf("expected 91.67, got %v", got)
	}
	if got := Round1(4.25); got != 4.3 {
		t.Fatalf("expected 4.3, got %v", got)
	}
}
