// Package loyalty owns passenger points and the tier derived from them.
package loyalty

import "github.com/iliyamo/rail-booking/internal/model"

// Threshold is the minimum balance for a tier.
type Threshold struct {
	Tier   model.LoyaltyTier
	Points int64
}

// Thresholds lists tiers from highest to lowest.  TierOf walks it in
// order, so it must stay sorted by descending Points.
var Thresholds = []Threshold{
	{Tier: model.TierPlatinum, Points: 5000},
	{Tier: model.TierGold, Points: 2500},
	{Tier: model.TierSilver, Points: 1000},
	{Tier: model.TierBronze, Points: 0},
}

// TierOf returns the tier for a points balance.  It is monotonic: a larger
// balance never yields a lower tier.
func TierOf(points int64) model.LoyaltyTier {
	for _, t := range Thresholds {
		if points >= t.Points {
			return t.Tier
		}
	}
	return model.TierBronze
}

// PointsFor returns the points earned for a booking amount in minor units:
// one point per full `divisor` major units.
func PointsFor(amountCents int64, divisor int64) int64 {
	if amountCents <= 0 || divisor <= 0 {
		return 0
	}
	return amountCents / (divisor * 100)
}
