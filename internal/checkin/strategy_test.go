package checkin

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 21, 30, 0, 0, time.UTC)

func TestCooldownRemaining(t *testing.T) {
	tests := []struct {
		name            string
		lastInteraction time.Time
		wantBlocked     bool
	}{
		{"never interacted", time.Time{}, false},
		{"ten hours ago", testNow.Add(-10 * time.Hour), true},
		{"nineteen hours ago", testNow.Add(-19 * time.Hour), true},
		{"exactly twenty hours ago", testNow.Add(-20 * time.Hour), false},
		{"a day ago", testNow.Add(-24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining := cooldownRemaining(tt.lastInteraction, testNow)
			if (remaining > 0) != tt.wantBlocked {
				t.Errorf("remaining = %v, want blocked=%v", remaining, tt.wantBlocked)
			}
		})
	}
}

func TestCooldownErrorReportsRemainingWait(t *testing.T) {
	err := &CooldownError{Remaining: 10 * time.Hour}
	if !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Error("CooldownError should match ErrAlreadyCheckedIn")
	}
	if err.Error() == "" || err.Error() == ErrAlreadyCheckedIn.Error() {
		t.Errorf("message should carry the remaining wait, got %q", err.Error())
	}
}

func TestNextStreak(t *testing.T) {
	day := func(offset int, hour int) time.Time {
		return time.Date(2025, 6, 15+offset, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		current  int
		last     time.Time
		hasPrior bool
		want     int
	}{
		{"no prior check-in starts at one", 0, time.Time{}, false, 1},
		{"yesterday extends", 4, day(-1, 23), true, 5},
		{"two days ago resets", 9, day(-2, 8), true, 1},
		{"a week ago resets", 30, day(-7, 12), true, 1},
		{"earlier today leaves streak alone", 4, day(0, 1), true, 4},
		// Late-night yesterday vs early check today is still continuous:
		// the comparison is on calendar days, not elapsed hours.
		{"yesterday 23:59 counts as yesterday", 2, day(-1, 23).Add(59 * time.Minute), true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextStreak(tt.current, tt.last, tt.hasPrior, testNow); got != tt.want {
				t.Errorf("nextStreak(%d, %v) = %d, want %d", tt.current, tt.last, got, tt.want)
			}
		})
	}
}
