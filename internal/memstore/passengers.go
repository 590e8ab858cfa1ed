package memstore

import (
	"context"
	"sort"

	"github.com/iliyamo/rail-booking/internal/loyalty"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

func (s *Store) Passenger(ctx context.Context, id string) (model.Passenger, error) {
	if err := ctx.Err(); err != nil {
		return model.Passenger{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passengers[id]
	if !ok {
		return model.Passenger{}, storage.ErrPassengerNotFound
	}
	return p, nil
}

func (s *Store) PassengerByEmail(ctx context.Context, email string) (model.Passenger, error) {
	if err := ctx.Err(); err != nil {
		return model.Passenger{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return model.Passenger{}, storage.ErrPassengerNotFound
	}
	return s.passengers[id], nil
}

func (s *Store) CreatePassenger(ctx context.Context, p *model.Passenger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[p.Email]; ok {
		return storage.ErrPassengerExists
	}
	p.LoyaltyStatus = loyalty.TierOf(p.LoyaltyPoints)
	s.passengers[p.ID] = *p
	s.emails[p.Email] = p.ID
	return nil
}

// AddPoints increments the balance and recomputes the tier under the write
// lock, so readers never see the two disagree.
func (s *Store) AddPoints(ctx context.Context, passengerID string, points int64) (model.LoyaltySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.LoyaltySnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.passengers[passengerID]
	if !ok {
		return model.LoyaltySnapshot{}, storage.ErrPassengerNotFound
	}
	p.LoyaltyPoints += points
	p.LoyaltyStatus = loyalty.TierOf(p.LoyaltyPoints)
	s.passengers[passengerID] = p
	return p.Snapshot(), nil
}

func (s *Store) LoyaltySnapshot(ctx context.Context, passengerID string) (model.LoyaltySnapshot, error) {
	p, err := s.Passenger(ctx, passengerID)
	if err != nil {
		return model.LoyaltySnapshot{}, err
	}
	return p.Snapshot(), nil
}

// SaveNotification stores n; saving the same id twice keeps the first copy.
func (s *Store) SaveNotification(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; !ok {
		s.notifications[n.ID] = n
	}
	return nil
}

func (s *Store) NotificationsByPassenger(ctx context.Context, passengerID string) ([]model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.Notification, 0)
	for _, n := range s.notifications {
		if n.PassengerID == passengerID {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, passengerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.PassengerID != passengerID {
		return storage.ErrNotificationNotFound
	}
	n.Status = model.NotificationRead
	s.notifications[id] = n
	return nil
}
