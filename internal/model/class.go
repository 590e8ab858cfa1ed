package model

import "github.com/shopspring/decimal"

// ClassFeatures describes the on-board amenities of a fare class.
type ClassFeatures struct {
	WiFi          bool `json:"wifi"`
	Meals         bool `json:"meals"`
	Entertainment bool `json:"entertainment"`
	PowerOutlets  bool `json:"power_outlets"`
	ExtraLegroom  bool `json:"extra_legroom"`
}

// Class is a fare tier.  Classes are static reference data; the
// multiplier is always greater than zero.  SeatPrefix is the coach letter
// used in seat labels (e.g. "B" in "B-2").
type Class struct {
	ID         string          `json:"id"`
	NameEn     string          `json:"name_en"`
	NameAr     string          `json:"name_ar"`
	Multiplier decimal.Decimal `json:"price_multiplier"`
	SeatPrefix string          `json:"seat_prefix"`
	Features   ClassFeatures   `json:"features"`
}
