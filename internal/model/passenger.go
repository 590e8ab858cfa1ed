package model

import "time"

// LoyaltyTier is a passenger's discount eligibility level.  It is always
// derived from the points balance and never set on its own.
type LoyaltyTier string

const (
	TierNone     LoyaltyTier = "" // anonymous caller, no loyalty data
	TierBronze   LoyaltyTier = "BRONZE"
	TierSilver   LoyaltyTier = "SILVER"
	TierGold     LoyaltyTier = "GOLD"
	TierPlatinum LoyaltyTier = "PLATINUM"
)

// Rank orders tiers BRONZE < SILVER < GOLD < PLATINUM.  Unknown tiers and
// TierNone rank below BRONZE.
func (t LoyaltyTier) Rank() int {
	switch t {
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	case TierPlatinum:
		return 4
	}
	return 0
}

// Passenger mirrors the passengers table.  LoyaltyStatus and LoyaltyPoints
// are owned by the loyalty ledger.
type Passenger struct {
	ID            string      // passengers.pid
	Name          string      // passengers.name
	Email         string      // passengers.email
	Phone         string      // passengers.phone
	LoyaltyStatus LoyaltyTier // passengers.loyalty_status
	LoyaltyPoints int64       // passengers.loyalty_points
	CreatedAt     time.Time   // passengers.created_at
}

// LoyaltySnapshot is the read-only loyalty view exposed to collaborators.
type LoyaltySnapshot struct {
	PassengerID   string      `json:"passenger_id"`
	LoyaltyStatus LoyaltyTier `json:"loyalty_status"`
	LoyaltyPoints int64       `json:"loyalty_points"`
}

// Snapshot returns the passenger's loyalty view.
func (p Passenger) Snapshot() LoyaltySnapshot {
	return LoyaltySnapshot{PassengerID: p.ID, LoyaltyStatus: p.LoyaltyStatus, LoyaltyPoints: p.LoyaltyPoints}
}
