package memstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rail-booking/internal/model"
)

type leg struct {
	code     string
	offset   time.Duration
	dwell    time.Duration
	platform int
}

var demoRoutes = []struct {
	train string
	base  int64
	start time.Duration
	legs  []leg
}{
	{"T100", 150, 7 * time.Hour, []leg{{"RUH", 0, 0, 2}, {"HOF", 3 * time.Hour, 10 * time.Minute, 1}, {"DMM", 4*time.Hour + 30*time.Minute, 0, 3}}},
	{"T200", 120, 13 * time.Hour, []leg{{"RUH", 0, 0, 4}, {"DMM", 4 * time.Hour, 0, 1}}},
	{"T300", 250, 9 * time.Hour, []leg{{"JED", 0, 0, 1}, {"MKH", time.Hour, 5 * time.Minute, 2}, {"MED", 3 * time.Hour, 0, 1}}},
}

// SeedDemo loads a few SCHEDULED journeys per route for each of the given
// number of days starting at day, plus two passengers.
func (s *Store) SeedDemo(day time.Time, days int) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	for d := 0; d < days; d++ {
		date := day.AddDate(0, 0, d)
		for _, r := range demoRoutes {
			dep := date.Add(r.start)
			j := model.Journey{
				ID:        fmt.Sprintf("%s-%s", r.train, date.Format("20060102")),
				TrainID:   r.train,
				Capacity:  map[string]int{"CLS001": 12, "CLS002": 24, "CLS003": 60},
				Status:    model.JourneyScheduled,
				BasePrice: decimal.NewFromInt(r.base),
				CreatedAt: day,
				UpdatedAt: day,
			}
			for i, l := range r.legs {
				at := dep.Add(l.offset)
				j.Stations = append(j.Stations, model.JourneyStation{
					StationCode:    l.code,
					SequenceNumber: i + 1,
					ArrivalTime:    at,
					DepartureTime:  at.Add(l.dwell),
					PlatformNumber: l.platform,
				})
			}
			s.PutJourney(j)
		}
	}
	s.PutPassenger(model.Passenger{ID: "P1001", Name: "Demo Bronze", Email: "bronze@example.com", CreatedAt: day})
	s.PutPassenger(model.Passenger{ID: "P1002", Name: "Demo Gold", Email: "gold@example.com", LoyaltyPoints: 2600, CreatedAt: day})
}
