// Package queue carries booking notifications over RabbitMQ.  The server
// publishes, cmd/worker consumes and persists.  Without a broker the Inline
// notifier writes straight to the store.
package queue

import (
	"errors"
	"time"

	"github.com/iliyamo/rail-booking/internal/model"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "booking.notifications"

var errMalformed = errors.New("malformed notification event")

// NotificationEvent is the JSON body of one queued message.
type NotificationEvent struct {
	NotificationID string `json:"notification_id"`
	PassengerID    string `json:"passenger_id"`
	BookingID      string `json:"booking_id"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	CreatedAt      string `json:"created_at"`
}

func eventOf(n model.Notification) NotificationEvent {
	return NotificationEvent{
		NotificationID: n.ID,
		PassengerID:    n.PassengerID,
		BookingID:      n.BookingID,
		Type:           string(n.Type),
		Message:        n.Message,
		CreatedAt:      n.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Notification validates the event and converts it back to a record with
// the given delivery status.
func (ev NotificationEvent) Notification(status model.NotificationStatus) (model.Notification, error) {
	if ev.NotificationID == "" || ev.PassengerID == "" || ev.BookingID == "" {
		return model.Notification{}, errMalformed
	}
	typ := model.NotificationType(ev.Type)
	switch typ {
	case model.NotifyBookingConfirmation, model.NotifyBookingCancellation, model.NotifyBookingStatusUpdate:
	default:
		return model.Notification{}, errMalformed
	}
	created, err := time.Parse(time.RFC3339Nano, ev.CreatedAt)
	if err != nil {
		return model.Notification{}, errMalformed
	}
	return model.Notification{
		ID:          ev.NotificationID,
		PassengerID: ev.PassengerID,
		BookingID:   ev.BookingID,
		Type:        typ,
		Message:     ev.Message,
		Status:      status,
		CreatedAt:   created.UTC(),
	}, nil
}
