package domain

import "github.com/shopspring/decimal"

// DefaultPrizeShares pays ranks 1-3 half, 30% and 15% of the pool. The
// remaining 5% is not distributed.
var DefaultPrizeShares = []decimal.Decimal{
	decimal.RequireFromString("0.50"),
	decimal.RequireFromString("0.30"),
	decimal.RequireFromString("0.15"),
}

// MoneyPlaces matches the numeric(10,2) columns money is stored in.
const MoneyPlaces = 2

// Award is a prize owed to one ranked participant.
type Award struct {
	Rank   int             `json:"rank"`
	UserID int64           `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

// SplitPrizes assigns shares[i] of pool to ranked[i]. Ranks without a share get
// nothing and missing ranks are skipped; their share is not redistributed.
func SplitPrizes(pool decimal.Decimal, shares []decimal.Decimal, ranked []RankedParticipant) []Award {
	n := len(shares)
	if len(ranked) < n {
		n = len(ranked)
	}
	awards := make([]Award, 0, n)
	for i := 0; i < n; i++ {
		amount := pool.Mul(shares[i]).Round(MoneyPlaces)
		if !amount.IsPositive() {
			continue
		}
		awards = append(awards, Award{
			Rank:   ranked[i].Rank,
			UserID: ranked[i].UserID,
			Amount: amount,
		})
	}
	return awards
}
