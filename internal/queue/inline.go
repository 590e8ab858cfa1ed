package queue

import (
	"context"

	"github.com/iliyamo/rail-booking/internal/model"
)

// Store persists notifications.  Saving an id twice must be a no-op.
type Store interface {
	SaveNotification(ctx context.Context, n model.Notification) error
}

// Inline persists notifications synchronously with status SENT.
type Inline struct {
	store Store
}

func NewInline(store Store) *Inline {
	return &Inline{store: store}
}

func (i *Inline) Notify(ctx context.Context, n model.Notification) error {
	n.Status = model.NotificationSent
	return i.store.SaveNotification(ctx, n)
}
