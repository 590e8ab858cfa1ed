package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/pricing"
	"github.com/iliyamo/rail-booking/internal/seat"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// SearchQuery is one route lookup.  Date is YYYY-MM-DD in UTC.
type SearchQuery struct {
	From string
	To   string
	Date string
}

// SearchResult is one bookable class on one journey.  DiscountedPrice is
// set only for authenticated passengers.
type SearchResult struct {
	JourneyID          string    `json:"journey_id"`
	TrainID            string    `json:"train_id"`
	ClassID            string    `json:"class_id"`
	ClassName          string    `json:"class_name"`
	DepartureTime      time.Time `json:"departure_time"`
	ArrivalTime        time.Time `json:"arrival_time"`
	OriginalPrice      float64   `json:"original_price"`
	DiscountedPrice    *float64  `json:"discounted_price,omitempty"`
	AvailableSeatCount int       `json:"available_seat_count"`
}

// Search lists every class offered by the SCHEDULED journeys on the route,
// ordered by departure then class id.
func (s *Service) Search(ctx context.Context, actor booking.Actor, q SearchQuery) ([]SearchResult, error) {
	from, to := strings.ToUpper(strings.TrimSpace(q.From)), strings.ToUpper(strings.TrimSpace(q.To))
	if from == "" || to == "" {
		return nil, ErrInvalidRequest
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(q.Date), time.UTC)
	if err != nil {
		return nil, ErrInvalidDate
	}
	tier, discounted, err := s.tierOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	journeys, err := s.catalog.Search(ctx, from, to, day)
	if err != nil {
		return nil, err
	}

	type row struct {
		journey model.Journey
		class   model.Class
	}
	rows := make([]row, 0)
	for _, j := range journeys {
		for _, c := range catalog.Classes() {
			if j.ClassCapacity(c.ID) > 0 {
				rows = append(rows, row{j, c})
			}
		}
	}

	out := make([]SearchResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, r := range rows {
		g.Go(func() error {
			free, err := s.seats.Free(gctx, r.journey, r.class.ID)
			if err != nil {
				return err
			}
			res, err := resultFor(r.journey, r.class, from, to, tier, discounted)
			if err != nil {
				return err
			}
			res.AvailableSeatCount = len(free)
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storage.Classify(err)
	}
	return out, nil
}

func resultFor(j model.Journey, c model.Class, from, to string, tier model.LoyaltyTier, discounted bool) (SearchResult, error) {
	original, err := pricing.Price(j.BasePrice, c.ID, model.TierNone)
	if err != nil {
		return SearchResult{}, err
	}
	res := SearchResult{
		JourneyID:     j.ID,
		TrainID:       j.TrainID,
		ClassID:       c.ID,
		ClassName:     c.NameEn,
		DepartureTime: j.Stations[j.StationIndex(from)].DepartureTime.UTC(),
		ArrivalTime:   j.Stations[j.StationIndex(to)].ArrivalTime.UTC(),
		OriginalPrice: original.InexactFloat64(),
	}
	if discounted {
		p, err := pricing.Price(j.BasePrice, c.ID, tier)
		if err != nil {
			return SearchResult{}, err
		}
		f := p.InexactFloat64()
		res.DiscountedPrice = &f
	}
	return res, nil
}

// SeatMap lists the seats of one class on a journey in sequence order.
func (s *Service) SeatMap(ctx context.Context, journeyID, classID string) ([]seat.Seat, error) {
	return s.seats.SeatMap(ctx, journeyID, strings.ToUpper(strings.TrimSpace(classID)))
}

// StationView is one call of a journey.
type StationView struct {
	StationCode    string    `json:"station_code"`
	SequenceNumber int       `json:"sequence_number"`
	ArrivalTime    time.Time `json:"arrival_time"`
	DepartureTime  time.Time `json:"departure_time"`
	PlatformNumber int       `json:"platform_number"`
}

// ClassAvailability is the seat count of one class on a journey.
type ClassAvailability struct {
	ClassID        string  `json:"class_id"`
	ClassName      string  `json:"class_name"`
	Capacity       int     `json:"capacity"`
	AvailableSeats int     `json:"available_seats"`
	Price          float64 `json:"price"`
}

// JourneyDetail is a journey with its stations and live availability.
type JourneyDetail struct {
	JourneyID string              `json:"journey_id"`
	TrainID   string              `json:"train_id"`
	Status    model.JourneyStatus `json:"status"`
	BasePrice float64             `json:"base_price"`
	Stations  []StationView       `json:"stations"`
	Classes   []ClassAvailability `json:"classes"`
}

// Journey returns the detail view of one journey.
func (s *Service) Journey(ctx context.Context, id string) (JourneyDetail, error) {
	j, err := s.catalog.Journey(ctx, id)
	if err != nil {
		return JourneyDetail{}, err
	}
	return s.detail(ctx, j)
}

// UpdateJourneyStatus is the employee operation moving a journey through
// its lifecycle.
func (s *Service) UpdateJourneyStatus(ctx context.Context, id string, next model.JourneyStatus) (JourneyDetail, error) {
	j, err := s.catalog.UpdateStatus(ctx, id, model.JourneyStatus(strings.ToUpper(string(next))))
	if err != nil {
		return JourneyDetail{}, err
	}
	s.log.Info("journey status changed", "journey_id", j.ID, "status", string(j.Status))
	return s.detail(ctx, j)
}

func (s *Service) detail(ctx context.Context, j model.Journey) (JourneyDetail, error) {
	d := JourneyDetail{
		JourneyID: j.ID,
		TrainID:   j.TrainID,
		Status:    j.Status,
		BasePrice: j.BasePrice.InexactFloat64(),
		Stations:  make([]StationView, 0, len(j.Stations)),
		Classes:   make([]ClassAvailability, 0),
	}
	for _, st := range j.Stations {
		d.Stations = append(d.Stations, StationView{
			StationCode:    st.StationCode,
			SequenceNumber: st.SequenceNumber,
			ArrivalTime:    st.ArrivalTime.UTC(),
			DepartureTime:  st.DepartureTime.UTC(),
			PlatformNumber: st.PlatformNumber,
		})
	}
	for _, c := range catalog.Classes() {
		if capacity := j.ClassCapacity(c.ID); capacity > 0 {
			price, err := pricing.Price(j.BasePrice, c.ID, model.TierNone)
			if err != nil {
				return JourneyDetail{}, err
			}
			d.Classes = append(d.Classes, ClassAvailability{ClassID: c.ID, ClassName: c.NameEn, Capacity: capacity, Price: price.InexactFloat64()})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i := range d.Classes {
		g.Go(func() error {
			free, err := s.seats.Free(gctx, j, d.Classes[i].ClassID)
			if err != nil {
				return err
			}
			d.Classes[i].AvailableSeats = len(free)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return JourneyDetail{}, storage.Classify(err)
	}
	return d, nil
}
