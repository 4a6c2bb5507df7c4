package policy

import "github.com/shopspring/decimal"

// FeeBracket maps a principal ceiling to a flat insurance fee. A zero
// UpTo means "no ceiling".
type FeeBracket struct {
	UpTo decimal.Decimal
	Fee  decimal.Decimal
}

// DefaultFeeSchedule is the standard insurance fee schedule by principal
// size band.
func DefaultFeeSchedule() []FeeBracket {
	return []FeeBracket{
		{UpTo: decimal.NewFromInt(5000), Fee: decimal.NewFromInt(200)},
		{UpTo: decimal.NewFromInt(15000), Fee: decimal.NewFromInt(300)},
		{UpTo: decimal.Decimal{}, Fee: decimal.NewFromInt(500)},
	}
}

// InsuranceFee returns the flat insurance fee for the given principal.
func (p CreditPolicy) InsuranceFee(principal decimal.Decimal) decimal.Decimal {
	for _, b := range p.FeeSchedule {
		if b.UpTo.IsZero() || principal.LessThanOrEqual(b.UpTo) {
			return b.Fee
		}
	}
	return decimal.Zero
}
