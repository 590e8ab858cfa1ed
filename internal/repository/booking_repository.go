package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// BookingRepo persists bookings.  Seat exclusivity is enforced by the
// uq_bookings_active_seat unique key over the active_seat generated column,
// which is 1 for CONFIRMED and WAITLISTED rows and NULL otherwise.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for health checks.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `booking_id, passenger_id, journey_id, train_id, class_id, coach_number, seat_number,
	seat_sequence, booking_status, payment_status, payment_method, amount_cents, booking_date, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var b model.Booking
	err := s.Scan(&b.ID, &b.PassengerID, &b.JourneyID, &b.TrainID, &b.ClassID, &b.CoachNumber, &b.SeatNumber,
		&b.SeatSequence, &b.Status, &b.PaymentStatus, &b.PaymentMethod, &b.AmountCents, &b.BookedAt, &b.UpdatedAt)
	return b, err
}

// Claim inserts b after locking the journey row in share mode and checking
// it is SCHEDULED.  Concurrent claims on the same seat collide on the
// unique key; the loser gets storage.ErrSeatTaken and its transaction is
// rolled back.
func (r *BookingRepo) Claim(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status model.JourneyStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM journeys WHERE jid = ? FOR SHARE`, b.JourneyID).Scan(&status)
	if err != nil {
		return notFound(err, storage.ErrJourneyNotFound)
	}
	if status != model.JourneyScheduled {
		return storage.ErrJourneyNotScheduled
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.PassengerID, b.JourneyID, b.TrainID, b.ClassID, b.CoachNumber, b.SeatNumber,
		b.SeatSequence, b.Status, b.PaymentStatus, b.PaymentMethod, b.AmountCents, b.BookedAt, b.UpdatedAt)
	if isDuplicate(err) {
		return storage.ErrSeatTaken
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Booking returns one booking by id.
func (r *BookingRepo) Booking(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ?`, id))
	if err != nil {
		return model.Booking{}, notFound(err, storage.ErrBookingNotFound)
	}
	return b, nil
}

// ClaimedSeats returns the sequences held by active bookings.  Reads run
// at the default isolation level and never observe uncommitted claims.
func (r *BookingRepo) ClaimedSeats(ctx context.Context, journeyID, classID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_sequence FROM bookings
		 WHERE journey_id = ? AND class_id = ? AND booking_status IN ('CONFIRMED', 'WAITLISTED')
		 ORDER BY seat_sequence`, journeyID, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]int, 0)
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TransitionStatus is a compare-and-swap on booking_status.  Cancelling
// sets active_seat to NULL, which frees the seat in the same statement.
func (r *BookingRepo) TransitionStatus(ctx context.Context, id string, from, to model.BookingStatus, payment model.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET booking_status = ?, payment_status = ?, updated_at = ?
		 WHERE booking_id = ? AND booking_status = ?`,
		to, payment, time.Now().UTC(), id, from)
	if isDuplicate(err) {
		return storage.ErrSeatTaken
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var current string
	err = r.db.QueryRowContext(ctx, `SELECT booking_status FROM bookings WHERE booking_id = ?`, id).Scan(&current)
	if err != nil {
		return notFound(err, storage.ErrBookingNotFound)
	}
	return storage.ErrStatusConflict
}

// ListBookings returns all bookings, newest first.
func (r *BookingRepo) ListBookings(ctx context.Context) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY booking_id DESC`)
}

// BookingsByPassenger returns a passenger's bookings, newest first.
func (r *BookingRepo) BookingsByPassenger(ctx context.Context, passengerID string) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE passenger_id = ? ORDER BY booking_id DESC`, passengerID)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
