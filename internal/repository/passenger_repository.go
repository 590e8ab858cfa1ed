package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/rail-booking/internal/loyalty"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// PassengerRepo persists passengers and their loyalty balance.
type PassengerRepo struct {
	db *sql.DB
}

func NewPassengerRepo(db *sql.DB) *PassengerRepo { return &PassengerRepo{db: db} }

const passengerColumns = `pid, name, email, phone, loyalty_status, loyalty_points, created_at`

// addPointsQuery increments the balance and recomputes the tier in one
// statement.  MySQL evaluates single-table SET assignments left to right,
// so the CASE sees the incremented loyalty_points.
var addPointsQuery = func() string {
	var b strings.Builder
	b.WriteString("UPDATE passengers SET loyalty_points = loyalty_points + ?, loyalty_status = CASE")
	last := loyalty.Thresholds[len(loyalty.Thresholds)-1]
	for _, t := range loyalty.Thresholds[:len(loyalty.Thresholds)-1] {
		fmt.Fprintf(&b, " WHEN loyalty_points >= %d THEN '%s'", t.Points, t.Tier)
	}
	fmt.Fprintf(&b, " ELSE '%s' END WHERE pid = ?", last.Tier)
	return b.String()
}()

func scanPassenger(s rowScanner) (model.Passenger, error) {
	var p model.Passenger
	var phone sql.NullString
	err := s.Scan(&p.ID, &p.Name, &p.Email, &phone, &p.LoyaltyStatus, &p.LoyaltyPoints, &p.CreatedAt)
	p.Phone = phone.String
	return p, err
}

func (r *PassengerRepo) Passenger(ctx context.Context, id string) (model.Passenger, error) {
	p, err := scanPassenger(r.db.QueryRowContext(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE pid = ?`, id))
	if err != nil {
		return model.Passenger{}, notFound(err, storage.ErrPassengerNotFound)
	}
	return p, nil
}

// PassengerByEmail looks a passenger up by normalized email.
func (r *PassengerRepo) PassengerByEmail(ctx context.Context, email string) (model.Passenger, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, err := scanPassenger(r.db.QueryRowContext(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE email = ? LIMIT 1`, email))
	if err != nil {
		return model.Passenger{}, notFound(err, storage.ErrPassengerNotFound)
	}
	return p, nil
}

// CreatePassenger inserts p with the tier derived from its balance.
func (r *PassengerRepo) CreatePassenger(ctx context.Context, p *model.Passenger) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.LoyaltyStatus = loyalty.TierOf(p.LoyaltyPoints)
	_, err := r.db.ExecContext(ctx, `INSERT INTO passengers (`+passengerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, p.Phone, p.LoyaltyStatus, p.LoyaltyPoints, p.CreatedAt)
	if isDuplicate(err) {
		return storage.ErrPassengerExists
	}
	return err
}

// AddPoints atomically increments the balance and returns the new snapshot
// read in the same transaction.
func (r *PassengerRepo) AddPoints(ctx context.Context, passengerID string, points int64) (model.LoyaltySnapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.LoyaltySnapshot{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, addPointsQuery, points, passengerID)
	if err != nil {
		return model.LoyaltySnapshot{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.LoyaltySnapshot{}, err
	} else if n == 0 && points > 0 {
		return model.LoyaltySnapshot{}, storage.ErrPassengerNotFound
	}

	snap := model.LoyaltySnapshot{PassengerID: passengerID}
	err = tx.QueryRowContext(ctx, `SELECT loyalty_status, loyalty_points FROM passengers WHERE pid = ?`, passengerID).
		Scan(&snap.LoyaltyStatus, &snap.LoyaltyPoints)
	if err != nil {
		return model.LoyaltySnapshot{}, notFound(err, storage.ErrPassengerNotFound)
	}
	if err := tx.Commit(); err != nil {
		return model.LoyaltySnapshot{}, err
	}
	committed = true
	return snap, nil
}

// LoyaltySnapshot returns the current balance and tier.
func (r *PassengerRepo) LoyaltySnapshot(ctx context.Context, passengerID string) (model.LoyaltySnapshot, error) {
	snap := model.LoyaltySnapshot{PassengerID: passengerID}
	err := r.db.QueryRowContext(ctx, `SELECT loyalty_status, loyalty_points FROM passengers WHERE pid = ?`, passengerID).
		Scan(&snap.LoyaltyStatus, &snap.LoyaltyPoints)
	if err != nil {
		return model.LoyaltySnapshot{}, notFound(err, storage.ErrPassengerNotFound)
	}
	return snap, nil
}
