package debt

// Credit score bounds. The aura score is a vanity credit rating, not a
// currency balance.
const (
	MinCreditScore = 300
	MaxCreditScore = 850
)

// CreditScore derives a bounded aura score from current debt and days
// missed. Each day of silence costs 10 points, each unit of debt 2.
func CreditScore(totalDebt, daysMissed int) int {
	score := MaxCreditScore - daysMissed*10 - totalDebt*2
	if score < MinCreditScore {
		return MinCreditScore
	}
	return score
}

// Rank is the display tier for a debt amount.
type Rank string

const (
	RankCleanRecord   Rank = "CLEAN RECORD"
	RankRookie        Rank = "ROOKIE"
	RankNenUser       Rank = "NEN USER"
	RankPhantomTroupe Rank = "PHANTOM TROUPE"
	RankChimeraAnt    Rank = "CHIMERA ANT"
)

// RankFor maps a total debt to its tier.
func RankFor(totalDebt int) Rank {
	switch {
	case totalDebt == 0:
		return RankCleanRecord
	case totalDebt < 10:
		return RankRookie
	case totalDebt < 30:
		return RankNenUser
	case totalDebt < 50:
		return RankPhantomTroupe
	default:
		return RankChimeraAnt
	}
}
