// Package pricing computes fares.  It performs no I/O and never mutates its
// inputs.  All arithmetic is decimal so half-cent ties round the same way
// for every base price the journeys table can hold.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/model"
)

// ErrUnknownTier is returned for a loyalty status outside the discount
// table.
var ErrUnknownTier = errors.New("unknown loyalty tier")

var discountRates = map[model.LoyaltyTier]decimal.Decimal{
	model.TierNone:     decimal.Zero,
	model.TierBronze:   decimal.Zero,
	model.TierSilver:   decimal.RequireFromString("0.05"),
	model.TierGold:     decimal.RequireFromString("0.10"),
	model.TierPlatinum: decimal.RequireFromString("0.15"),
}

var one = decimal.NewFromInt(1)

// DiscountRate returns the fraction taken off the class price for tier.
func DiscountRate(tier model.LoyaltyTier) (decimal.Decimal, error) {
	r, ok := discountRates[tier]
	if !ok {
		return decimal.Zero, ErrUnknownTier
	}
	return r, nil
}

// Price returns base × class multiplier × (1 − discount), rounded half up to
// two decimals.  TierNone is an anonymous caller and gets no discount.
func Price(base decimal.Decimal, classID string, tier model.LoyaltyTier) (decimal.Decimal, error) {
	m, err := catalog.Multiplier(classID)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := DiscountRate(tier)
	if err != nil {
		return decimal.Zero, err
	}
	return Round(base.Mul(m).Mul(one.Sub(rate))), nil
}

// Round rounds v to two decimal places.  decimal rounds half away from
// zero, which is half up for the non-negative amounts priced here.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Cents converts a price to minor units, rounding first.
func Cents(v decimal.Decimal) int64 {
	return Round(v).Shift(2).IntPart()
}
