package debt

import "time"

// Defaults applied when a perspective was created without explicit values.
const (
	DefaultLimitDays = 7
)

// Stats is the full result of a debt calculation for one perspective at one
// instant. The daily accrual job, the on-demand recalculation endpoint and
// the client preview all consume this exact struct, so the three paths can
// never disagree on the formula.
type Stats struct {
	BaseDebt          int  `json:"base_debt"`
	TotalDebt         int  `json:"total_debt"`
	DaysMissed        int  `json:"days_missed"`
	DaysOverLimit     int  `json:"days_over_limit"`
	Limit             int  `json:"limit"`
	BankruptcyLimit   int  `json:"bankruptcy_limit"`
	IsBankrupt        bool `json:"is_bankrupt"`
	IsInWarningZone   bool `json:"is_in_warning_zone"`
	DaysUntilBankrupt int  `json:"days_until_bankrupt"`
}

// Calculate computes the current debt state for one side of a friendship.
//
// Interest accrues one unit per day of silence beyond the grace period
// (limit). Bankruptcy is declared when total debt reaches twice the limit;
// the warning zone covers [limit, 2*limit).
//
// The function is pure and total: invalid inputs are defaulted (baseDebt
// floored at 0, limit defaulted to DefaultLimitDays, a zero lastInteraction
// treated as the Unix epoch) and it never fails. The absolute difference
// means a lastInteraction ahead of now still yields non-negative days
// missed; write paths are expected to reject future timestamps, the
// calculator only guarantees it never produces negative debt.
func Calculate(baseDebt, limit int, lastInteraction, now time.Time) Stats {
	if baseDebt < 0 {
		baseDebt = 0
	}
	if limit <= 0 {
		limit = DefaultLimitDays
	}
	if lastInteraction.IsZero() {
		lastInteraction = time.Unix(0, 0)
	}

	diff := now.Sub(lastInteraction)
	if diff < 0 {
		diff = -diff
	}
	daysMissed := int(diff / (24 * time.Hour))

	daysOverLimit := daysMissed - limit
	if daysOverLimit < 0 {
		daysOverLimit = 0
	}

	totalDebt := baseDebt + daysOverLimit
	bankruptcyLimit := limit * 2

	daysUntilBankrupt := bankruptcyLimit - totalDebt
	if daysUntilBankrupt < 0 {
		daysUntilBankrupt = 0
	}

	return Stats{
		BaseDebt:          baseDebt,
		TotalDebt:         totalDebt,
		DaysMissed:        daysMissed,
		DaysOverLimit:     daysOverLimit,
		Limit:             limit,
		BankruptcyLimit:   bankruptcyLimit,
		IsBankrupt:        totalDebt >= bankruptcyLimit,
		IsInWarningZone:   totalDebt >= limit && totalDebt < bankruptcyLimit,
		DaysUntilBankrupt: daysUntilBankrupt,
	}
}
