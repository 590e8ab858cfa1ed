// Package catalog holds the journey and class reference data consumed by
// pricing, seat availability and the allocator.
package catalog

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rail-booking/internal/model"
)

// ErrUnknownClass is returned when a class id is not part of the catalog.
var ErrUnknownClass = errors.New("unknown class")

// classes is the static fare table.  Multipliers are always positive.
var classes = map[string]model.Class{
	"CLS001": {
		ID:         "CLS001",
		NameEn:     "First Class",
		NameAr:     "الدرجة الأولى",
		Multiplier: decimal.NewFromInt(2),
		SeatPrefix: "A",
		Features:   model.ClassFeatures{WiFi: true, Meals: true, Entertainment: true, PowerOutlets: true, ExtraLegroom: true},
	},
	"CLS002": {
		ID:         "CLS002",
		NameEn:     "Business Class",
		NameAr:     "درجة رجال الأعمال",
		Multiplier: decimal.RequireFromString("1.5"),
		SeatPrefix: "B",
		Features:   model.ClassFeatures{WiFi: true, Meals: true, PowerOutlets: true, ExtraLegroom: true},
	},
	"CLS003": {
		ID:         "CLS003",
		NameEn:     "Economy Class",
		NameAr:     "الدرجة السياحية",
		Multiplier: decimal.NewFromInt(1),
		SeatPrefix: "C",
		Features:   model.ClassFeatures{WiFi: true, PowerOutlets: true},
	},
}

// Class looks up a class by id.
func Class(id string) (model.Class, error) {
	c, ok := classes[id]
	if !ok {
		return model.Class{}, ErrUnknownClass
	}
	return c, nil
}

// Multiplier returns the price multiplier for a class id.
func Multiplier(id string) (decimal.Decimal, error) {
	c, err := Class(id)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Multiplier, nil
}

// Classes returns every class ordered by id.
func Classes() []model.Class {
	out := make([]model.Class, 0, len(classes))
	for _, c := range classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
