package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// NotificationRepo persists passenger notifications.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// SaveNotification inserts n.  Redelivered messages carry the same id and
// are ignored.
func (r *NotificationRepo) SaveNotification(ctx context.Context, n model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (notification_id, passenger_id, booking_id, type, message, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE notification_id = notification_id`,
		n.ID, n.PassengerID, n.BookingID, n.Type, n.Message, n.Status, n.CreatedAt)
	return err
}

// NotificationsByPassenger lists a passenger's notifications, newest first.
func (r *NotificationRepo) NotificationsByPassenger(ctx context.Context, passengerID string) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT notification_id, passenger_id, booking_id, type, message, status, created_at
		 FROM notifications WHERE passenger_id = ? ORDER BY created_at DESC, notification_id DESC`, passengerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.PassengerID, &n.BookingID, &n.Type, &n.Message, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead sets status READ on a passenger's notification.
func (r *NotificationRepo) MarkNotificationRead(ctx context.Context, id, passengerID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'READ' WHERE notification_id = ? AND passenger_id = ?`, id, passengerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}
	// zero rows also means it was already READ
	var one int
	err = r.db.QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE notification_id = ? AND passenger_id = ?`, id, passengerID).Scan(&one)
	return notFound(err, storage.ErrNotificationNotFound)
}
