package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// JourneyRepo reads journeys with their classes and stations.
type JourneyRepo struct {
	db *sql.DB
}

func NewJourneyRepo(db *sql.DB) *JourneyRepo { return &JourneyRepo{db: db} }

// Journey returns one journey with capacity and ordered stations.
func (r *JourneyRepo) Journey(ctx context.Context, id string) (model.Journey, error) {
	var j model.Journey
	err := r.db.QueryRowContext(ctx,
		`SELECT jid, train_id, status, base_price, created_at, updated_at FROM journeys WHERE jid = ?`, id,
	).Scan(&j.ID, &j.TrainID, &j.Status, &j.BasePrice, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return model.Journey{}, notFound(err, storage.ErrJourneyNotFound)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT class_id, capacity FROM journey_classes WHERE journey_id = ?`, id)
	if err != nil {
		return model.Journey{}, err
	}
	defer rows.Close()
	j.Capacity = make(map[string]int)
	for rows.Next() {
		var classID string
		var capacity int
		if err := rows.Scan(&classID, &capacity); err != nil {
			return model.Journey{}, err
		}
		j.Capacity[classID] = capacity
	}
	if err := rows.Err(); err != nil {
		return model.Journey{}, err
	}

	srows, err := r.db.QueryContext(ctx,
		`SELECT station_code, sequence_number, arrival_time, departure_time, platform_number
		 FROM journey_stations WHERE journey_id = ? ORDER BY sequence_number`, id)
	if err != nil {
		return model.Journey{}, err
	}
	defer srows.Close()
	for srows.Next() {
		var st model.JourneyStation
		if err := srows.Scan(&st.StationCode, &st.SequenceNumber, &st.ArrivalTime, &st.DepartureTime, &st.PlatformNumber); err != nil {
			return model.Journey{}, err
		}
		j.Stations = append(j.Stations, st)
	}
	return j, srows.Err()
}

// SearchJourneys returns SCHEDULED journeys calling at from before to and
// departing from on the UTC day of day, ordered by that departure.
func (r *JourneyRepo) SearchJourneys(ctx context.Context, from, to string, day time.Time) ([]model.Journey, error) {
	d := day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	const q = `SELECT j.jid
	           FROM journeys j
	           JOIN journey_stations f ON f.journey_id = j.jid AND f.station_code = ?
	           JOIN journey_stations t ON t.journey_id = j.jid AND t.station_code = ?
	           WHERE j.status = 'SCHEDULED'
	             AND f.sequence_number < t.sequence_number
	             AND f.departure_time >= ? AND f.departure_time < ?
	           ORDER BY f.departure_time, j.jid`
	rows, err := r.db.QueryContext(ctx, q, from, to, start, start.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Journey, 0, len(ids))
	for _, id := range ids {
		j, err := r.Journey(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// UpdateJourneyStatus is a compare-and-swap on journeys.status.
func (r *JourneyRepo) UpdateJourneyStatus(ctx context.Context, id string, from, to model.JourneyStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE journeys SET status = ?, updated_at = UTC_TIMESTAMP() WHERE jid = ? AND status = ?`, to, id, from)
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
	err = r.db.QueryRowContext(ctx, `SELECT status FROM journeys WHERE jid = ?`, id).Scan(&current)
	if err != nil {
		return notFound(err, storage.ErrJourneyNotFound)
	}
	return storage.ErrStatusConflict
}
