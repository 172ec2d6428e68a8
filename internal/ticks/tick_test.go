package ticks

import (
	"testing"
	"time"
)

func TestTimeRoundTrip(t *testing.T) {
	tests := []time.Time{
		time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC),
		time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2999, 12, 31, 23, 59, 59, 0, time.UTC),
	}

	for _, tt := range tests {
		tick := FromTime(tt)
		got := tick.Time()
		if !got.Equal(tt) {
			t.Errorf("FromTime(%v).Time() = %v, want %v", tt, got, tt)
		}
	}
}

func TestLeapSecondFlags(t *testing.T) {
	tick := FromTime(time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC))

	flagged := tick.WithLeapSecond()
	if !flagged.IsLeapSecond() {
		t.Fatal("expected leap second flag to be set")
	}
	if flagged.Value() != tick.Value() {
		t.Fatal("leap second flag must not disturb the underlying value")
	}

	negFlagged := tick.WithNegativeLeapSecond()
	if !negFlagged.IsNegativeLeapSecond() {
		t.Fatal("expected negative leap second flag to be set")
	}
	if negFlagged.Value() != tick.Value() {
		t.Fatal("negative leap second flag must not disturb the underlying value")
	}
}

func TestIsReasonable(t *testing.T) {
	now := FromTime(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name  string
		value Tick
		want  bool
	}{
		{"exactly now", now, true},
		{"within lag", FromTime(now.Time().Add(-5 * time.Second)), true},
		{"within lead", FromTime(now.Time().Add(3 * time.Second)), true},
		{"too far in the past", FromTime(now.Time().Add(-30 * time.Second)), false},
		{"too far in the future", FromTime(now.Time().Add(30 * time.Second)), false},
	}

	for _, tt := range tests {
		got := IsReasonable(tt.value, now, 10*time.Second, 5*time.Second)
		if got != tt.want {
			t.Errorf("%s: IsReasonable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
