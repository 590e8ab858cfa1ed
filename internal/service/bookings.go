package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// CreateBookingRequest is the create-booking input.  An anonymous or
// employee caller without PassengerID must send PassengerDetails.
type CreateBookingRequest struct {
	JourneyID        string                    `json:"journey_id"`
	ClassID          string                    `json:"class_id"`
	SeatNumber       string                    `json:"seat_number"`
	PassengerID      string                    `json:"passenger_id"`
	PassengerDetails *booking.PassengerDetails `json:"passenger_details"`
	PaymentMethod    string                    `json:"payment_method"`
	Waitlist         bool                      `json:"waitlist"`
}

// BookingCreated is the create-booking output.
type BookingCreated struct {
	BookingID  string              `json:"booking_id"`
	Amount     float64             `json:"amount"`
	Status     model.BookingStatus `json:"status"`
	SeatNumber string              `json:"seat_number"`
}

// BookingView is a booking as returned to clients.
type BookingView struct {
	BookingID     string              `json:"booking_id"`
	PassengerID   string              `json:"passenger_id"`
	JourneyID     string              `json:"journey_id"`
	TrainID       string              `json:"train_id"`
	ClassID       string              `json:"class_id"`
	CoachNumber   string              `json:"coach_number"`
	SeatNumber    string              `json:"seat_number"`
	Status        model.BookingStatus `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	PaymentMethod string              `json:"payment_method"`
	Amount        float64             `json:"amount"`
	BookedAt      time.Time           `json:"booked_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func viewOf(b model.Booking) BookingView {
	return BookingView{
		BookingID:     b.ID,
		PassengerID:   b.PassengerID,
		JourneyID:     b.JourneyID,
		TrainID:       b.TrainID,
		ClassID:       b.ClassID,
		CoachNumber:   b.CoachNumber,
		SeatNumber:    b.SeatNumber,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		PaymentMethod: b.PaymentMethod,
		Amount:        b.Amount(),
		BookedAt:      b.BookedAt.UTC(),
		UpdatedAt:     b.UpdatedAt.UTC(),
	}
}

func viewsOf(list []model.Booking) []BookingView {
	out := make([]BookingView, 0, len(list))
	for _, b := range list {
		out = append(out, viewOf(b))
	}
	return out
}

// CreateBooking allocates one seat.
func (s *Service) CreateBooking(ctx context.Context, actor booking.Actor, req CreateBookingRequest) (BookingCreated, error) {
	if strings.TrimSpace(req.JourneyID) == "" || strings.TrimSpace(req.ClassID) == "" || strings.TrimSpace(req.SeatNumber) == "" {
		return BookingCreated{}, ErrInvalidRequest
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = "card"
	}
	b, err := s.allocator.Allocate(ctx, actor, booking.AllocateRequest{
		JourneyID:     strings.TrimSpace(req.JourneyID),
		ClassID:       strings.ToUpper(strings.TrimSpace(req.ClassID)),
		SeatNumber:    strings.TrimSpace(req.SeatNumber),
		PassengerID:   strings.TrimSpace(req.PassengerID),
		Passenger:     req.PassengerDetails,
		PaymentMethod: method,
		Waitlist:      req.Waitlist,
	})
	if err != nil {
		return BookingCreated{}, err
	}
	return BookingCreated{BookingID: b.ID, Amount: b.Amount(), Status: b.Status, SeatNumber: b.SeatNumber}, nil
}

// CancelBooking cancels a booking on behalf of actor.
func (s *Service) CancelBooking(ctx context.Context, actor booking.Actor, id string) (BookingView, error) {
	b, err := s.allocator.Cancel(ctx, id, actor)
	if err != nil {
		return BookingView{}, err
	}
	return viewOf(b), nil
}

// UpdateBookingStatus is the employee status override.
func (s *Service) UpdateBookingStatus(ctx context.Context, id string, next model.BookingStatus) (BookingView, error) {
	b, err := s.allocator.SetStatus(ctx, id, model.BookingStatus(strings.ToUpper(string(next))))
	if err != nil {
		return BookingView{}, err
	}
	return viewOf(b), nil
}

// GetBooking returns one booking.  Passengers only see their own.
func (s *Service) GetBooking(ctx context.Context, actor booking.Actor, id string) (BookingView, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	b, err := s.bookings.Booking(ctx, id)
	if err != nil {
		return BookingView{}, storage.Classify(err)
	}
	if actor.Role == model.RolePassenger && actor.PassengerID != b.PassengerID {
		return BookingView{}, booking.ErrForbidden
	}
	return viewOf(b), nil
}

// ListBookings returns every booking for employees and the caller's own
// for passengers, newest first.
func (s *Service) ListBookings(ctx context.Context, actor booking.Actor) ([]BookingView, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	var (
		list []model.Booking
		err  error
	)
	switch actor.Role {
	case model.RoleEmployee:
		list, err = s.bookings.ListBookings(ctx)
	case model.RolePassenger:
		list, err = s.bookings.BookingsByPassenger(ctx, actor.PassengerID)
	default:
		return nil, booking.ErrForbidden
	}
	if err != nil {
		return nil, storage.Classify(err)
	}
	return viewsOf(list), nil
}

// Notifications returns the passenger's inbox, newest first.
func (s *Service) Notifications(ctx context.Context, passengerID string) ([]model.Notification, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	list, err := s.notifications.NotificationsByPassenger(ctx, passengerID)
	if err != nil {
		return nil, storage.Classify(err)
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

// MarkNotificationRead marks one notification of the passenger READ.
func (s *Service) MarkNotificationRead(ctx context.Context, passengerID, id string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return storage.Classify(s.notifications.MarkNotificationRead(ctx, id, passengerID))
}
