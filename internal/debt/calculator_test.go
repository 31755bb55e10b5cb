package debt

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func TestCalculateScenarios(t *testing.T) {
	tests := []struct {
		name            string
		baseDebt        int
		limit           int
		lastInteraction time.Time
		want            Stats
	}{
		{
			name:            "within grace period",
			baseDebt:        0,
			limit:           7,
			lastInteraction: daysAgo(3),
			want: Stats{
				BaseDebt: 0, TotalDebt: 0, DaysMissed: 3, DaysOverLimit: 0,
				Limit: 7, BankruptcyLimit: 14,
				IsBankrupt: false, IsInWarningZone: false, DaysUntilBankrupt: 14,
			},
		},
		{
			name:            "ten days with limit seven",
			baseDebt:        0,
			limit:           7,
			lastInteraction: daysAgo(10),
			want: Stats{
				BaseDebt: 0, TotalDebt: 3, DaysMissed: 10, DaysOverLimit: 3,
				Limit: 7, BankruptcyLimit: 14,
				IsBankrupt: false, IsInWarningZone: false, DaysUntilBankrupt: 11,
			},
		},
		{
			name:            "sixteen days with limit five is bankrupt",
			baseDebt:        0,
			limit:           5,
			lastInteraction: daysAgo(16),
			want: Stats{
				BaseDebt: 0, TotalDebt: 11, DaysMissed: 16, DaysOverLimit: 11,
				Limit: 5, BankruptcyLimit: 10,
				IsBankrupt: true, IsInWarningZone: false, DaysUntilBankrupt: 0,
			},
		},
		{
			name:            "base debt puts total in warning zone",
			baseDebt:        8,
			limit:           7,
			lastInteraction: daysAgo(2),
			want: Stats{
				BaseDebt: 8, TotalDebt: 8, DaysMissed: 2, DaysOverLimit: 0,
				Limit: 7, BankruptcyLimit: 14,
				IsBankrupt: false, IsInWarningZone: true, DaysUntilBankrupt: 6,
			},
		},
		{
			name:            "exactly at bankruptcy threshold",
			baseDebt:        14,
			limit:           7,
			lastInteraction: testNow,
			want: Stats{
				BaseDebt: 14, TotalDebt: 14, DaysMissed: 0, DaysOverLimit: 0,
				Limit: 7, BankruptcyLimit: 14,
				IsBankrupt: true, IsInWarningZone: false, DaysUntilBankrupt: 0,
			},
		},
		{
			name:            "exactly at warning threshold",
			baseDebt:        7,
			limit:           7,
			lastInteraction: testNow,
			want: Stats{
				BaseDebt: 7, TotalDebt: 7, DaysMissed: 0, DaysOverLimit: 0,
				Limit: 7, BankruptcyLimit: 14,
				IsBankrupt: false, IsInWarningZone: true, DaysUntilBankrupt: 7,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.baseDebt, tt.limit, tt.lastInteraction, testNow)
			if got != tt.want {
				t.Errorf("Calculate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	last := daysAgo(23)
	first := Calculate(5, 7, last, testNow)
	second := Calculate(5, 7, last, testNow)
	if first != second {
		t.Errorf("identical inputs produced different results: %+v vs %+v", first, second)
	}
}

func TestCalculateGracePeriod(t *testing.T) {
	// No interest accrues while daysMissed <= limit.
	for days := 0; days <= 7; days++ {
		got := Calculate(4, 7, daysAgo(days), testNow)
		if got.TotalDebt != 4 {
			t.Errorf("daysMissed=%d: TotalDebt = %d, want baseDebt 4", days, got.TotalDebt)
		}
	}
	got := Calculate(4, 7, daysAgo(8), testNow)
	if got.TotalDebt != 5 {
		t.Errorf("daysMissed=8: TotalDebt = %d, want 5", got.TotalDebt)
	}
}

func TestCalculateDefaults(t *testing.T) {
	got := Calculate(-3, 0, time.Time{}, testNow)
	if got.BaseDebt != 0 {
		t.Errorf("negative baseDebt not floored: %d", got.BaseDebt)
	}
	if got.Limit != DefaultLimitDays {
		t.Errorf("zero limit not defaulted: %d", got.Limit)
	}
	// A missing lastInteraction counts from the epoch, so the perspective is
	// deep in bankruptcy rather than debt-free.
	if !got.IsBankrupt {
		t.Error("epoch lastInteraction should be bankrupt")
	}
}

func TestCalculateFutureLastInteraction(t *testing.T) {
	// Clock skew must never produce negative debt.
	got := Calculate(0, 7, testNow.Add(36*time.Hour), testNow)
	if got.DaysMissed != 1 {
		t.Errorf("DaysMissed = %d, want 1", got.DaysMissed)
	}
	if got.TotalDebt < 0 {
		t.Errorf("TotalDebt = %d, want non-negative", got.TotalDebt)
	}
}

func TestThresholdsPartitionTheRange(t *testing.T) {
	// For every debt value, exactly one of clean / warning / bankrupt holds.
	const limit = 7
	for total := 0; total <= 3*limit; total++ {
		got := Calculate(total, limit, testNow, testNow)
		wantBankrupt := total >= 2*limit
		wantWarning := total >= limit && total < 2*limit
		if got.IsBankrupt != wantBankrupt || got.IsInWarningZone != wantWarning {
			t.Errorf("total=%d: bankrupt=%v warning=%v, want %v %v",
				total, got.IsBankrupt, got.IsInWarningZone, wantBankrupt, wantWarning)
		}
	}
}
