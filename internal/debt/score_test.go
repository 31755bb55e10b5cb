package debt

import "testing"

func TestCreditScore(t *testing.T) {
	tests := []struct {
		name       string
		totalDebt  int
		daysMissed int
		want       int
	}{
		{"clean record", 0, 0, 850},
		{"small debt", 3, 10, 744},
		{"floored at minimum", 100, 100, 300},
		{"exactly at floor boundary", 25, 50, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CreditScore(tt.totalDebt, tt.daysMissed); got != tt.want {
				t.Errorf("CreditScore(%d, %d) = %d, want %d",
					tt.totalDebt, tt.daysMissed, got, tt.want)
			}
		})
	}
}

func TestCreditScoreBounds(t *testing.T) {
	for debt := 0; debt <= 500; debt += 50 {
		for days := 0; days <= 500; days += 50 {
			got := CreditScore(debt, days)
			if got < MinCreditScore || got > MaxCreditScore {
				t.Fatalf("CreditScore(%d, %d) = %d out of [%d, %d]",
					debt, days, got, MinCreditScore, MaxCreditScore)
			}
		}
	}
}

func TestRankFor(t *testing.T) {
	tests := []struct {
		debt int
		want Rank
	}{
		{0, RankCleanRecord},
		{1, RankRookie},
		{9, RankRookie},
		{10, RankNenUser},
		{29, RankNenUser},
		{30, RankPhantomTroupe},
		{49, RankPhantomTroupe},
		{50, RankChimeraAnt},
		{999, RankChimeraAnt},
	}

	for _, tt := range tests {
		if got := RankFor(tt.debt); got != tt.want {
			t.Errorf("RankFor(%d) = %q, want %q", tt.debt, got, tt.want)
		}
	}
}
