package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingWaitlisted BookingStatus = "WAITLISTED"
	BookingCancelled  BookingStatus = "CANCELLED"
)

// PaymentStatus tracks the payment side of a booking.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingConfirmed:  {BookingCancelled},
	BookingWaitlisted: {BookingConfirmed, BookingCancelled},
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingWaitlisted, BookingCancelled:
		return true
	}
	return false
}

// Active reports whether a booking in status s holds its seat.
func (s BookingStatus) Active() bool {
	return s == BookingConfirmed || s == BookingWaitlisted
}

// CanTransitionTo reports whether the booking transition s -> next is legal.
// CANCELLED is terminal and CONFIRMED never goes back to WAITLISTED.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, n := range bookingTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Booking is a passenger's claim on one seat of a journey class.  The
// amount is frozen at creation time and is never recalculated.  Rows are
// never deleted; cancellation only changes the status.
//
// Fields:
//  ID            – time ordered identifier generated at creation.
//  PassengerID   – passenger the seat belongs to.
//  JourneyID     – journey being travelled.
//  ClassID       – fare class of the seat.
//  CoachNumber   – coach letter derived from the seat label.
//  SeatNumber    – canonical seat label (<prefix>-<sequence>).
//  Status        – CONFIRMED, WAITLISTED or CANCELLED.
//  PaymentStatus – PENDING, COMPLETED or REFUNDED.
//  PaymentMethod – free form method supplied by the caller.
//  AmountCents   – price charged in minor units.
type Booking struct {
	ID            string        // bookings.booking_id
	PassengerID   string        // bookings.passenger_id
	JourneyID     string        // bookings.journey_id
	TrainID       string        // bookings.train_id
	ClassID       string        // bookings.class_id
	CoachNumber   string        // bookings.coach_number
	SeatNumber    string        // bookings.seat_number
	SeatSequence  int           // bookings.seat_sequence
	Status        BookingStatus // bookings.booking_status
	PaymentStatus PaymentStatus // bookings.payment_status
	PaymentMethod string        // bookings.payment_method
	AmountCents   int64         // bookings.amount_cents
	BookedAt      time.Time     // bookings.booking_date
	UpdatedAt     time.Time     // bookings.updated_at
}

// Amount returns the charged amount in major currency units.
func (b Booking) Amount() float64 {
	return float64(b.AmountCents) / 100
}
