package model

import "time"

// NotificationType classifies booking notifications.
type NotificationType string

const (
	NotifyBookingConfirmation NotificationType = "BOOKING_CONFIRMATION"
	NotifyBookingCancellation NotificationType = "BOOKING_CANCELLATION"
	NotifyBookingStatusUpdate NotificationType = "BOOKING_STATUS_UPDATE"
)

// NotificationStatus is the delivery state of a notification.
type NotificationStatus string

const (
	NotificationSent      NotificationStatus = "SENT"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationRead      NotificationStatus = "READ"
)

// Notification is a message addressed to a passenger about one of their
// bookings.  It is also the payload published on the notification queue.
type Notification struct {
	ID          string             `json:"notification_id"` // notifications.notification_id
	PassengerID string             `json:"passenger_id"`    // notifications.passenger_id
	BookingID   string             `json:"booking_id"`      // notifications.booking_id
	Type        NotificationType   `json:"type"`            // notifications.type
	Message     string             `json:"message"`         // notifications.message
	Status      NotificationStatus `json:"status"`          // notifications.status
	CreatedAt   time.Time          `json:"created_at"`      // notifications.created_at
}
