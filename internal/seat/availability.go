package seat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/model"
	"github.com/iliyamo/rail-booking/internal/storage"
)

// Reader is the read side the index needs.  ClaimedSeats returns the seat
// sequences held by committed CONFIRMED or WAITLISTED bookings; it must not
// observe uncommitted claims.
type Reader interface {
	Journey(ctx context.Context, id string) (model.Journey, error)
	ClaimedSeats(ctx context.Context, journeyID, classID string) ([]int, error)
}

// Seat is one entry of a seat map.
type Seat struct {
	Number    string `json:"seat_number"`
	Sequence  int    `json:"sequence"`
	Available bool   `json:"available"`
}

// Index answers availability questions per (journey, class).  Nothing is
// cached: every call recomputes from the current booking state.
type Index struct {
	reader  Reader
	timeout time.Duration
}

// NewIndex returns an Index bounded by timeout per store call.
func NewIndex(r Reader, timeout time.Duration) *Index {
	return &Index{reader: r, timeout: timeout}
}

func (x *Index) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if x.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, x.timeout)
}

func (x *Index) journey(ctx context.Context, id string) (model.Journey, error) {
	ctx, cancel := x.bound(ctx)
	defer cancel()
	j, err := x.reader.Journey(ctx, id)
	return j, storage.Classify(err)
}

// Free returns the unclaimed sequences of classID on an already loaded
// journey, ascending.
func (x *Index) Free(ctx context.Context, j model.Journey, classID string) ([]int, error) {
	if _, err := catalog.Class(classID); err != nil {
		return nil, err
	}
	capacity := j.ClassCapacity(classID)
	if capacity <= 0 {
		return []int{}, nil
	}
	ctx, cancel := x.bound(ctx)
	defer cancel()
	claimed, err := x.reader.ClaimedSeats(ctx, j.ID, classID)
	if err != nil {
		return nil, storage.Classify(err)
	}
	taken := make(map[int]struct{}, len(claimed))
	for _, s := range claimed {
		taken[s] = struct{}{}
	}
	free := make([]int, 0, capacity-len(taken))
	for s := 1; s <= capacity; s++ {
		if _, ok := taken[s]; !ok {
			free = append(free, s)
		}
	}
	return free, nil
}

// ListAvailable returns the labels of free seats, ascending by sequence.
func (x *Index) ListAvailable(ctx context.Context, journeyID, classID string) ([]string, error) {
	j, err := x.journey(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	free, err := x.Free(ctx, j, classID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(free))
	for _, s := range free {
		l, _ := Label(classID, s)
		out = append(out, l)
	}
	return out, nil
}

// IsAvailable reports whether the seat is free.  Labels outside
// [1, capacity] fail with ErrInvalidSeat.
func (x *Index) IsAvailable(ctx context.Context, journeyID, classID, label string) (bool, error) {
	j, err := x.journey(ctx, journeyID)
	if err != nil {
		return false, err
	}
	seq, err := Parse(classID, label)
	if err != nil {
		return false, err
	}
	return x.SequenceFree(ctx, j, classID, seq)
}

// SequenceFree is IsAvailable for a parsed sequence on a loaded journey.
func (x *Index) SequenceFree(ctx context.Context, j model.Journey, classID string, seq int) (bool, error) {
	if err := CheckRange(j, classID, seq); err != nil {
		return false, err
	}
	free, err := x.Free(ctx, j, classID)
	if err != nil {
		return false, err
	}
	i := sort.SearchInts(free, seq)
	return i < len(free) && free[i] == seq, nil
}

// SeatMap returns every seat of the class with its availability flag.
func (x *Index) SeatMap(ctx context.Context, journeyID, classID string) ([]Seat, error) {
	j, err := x.journey(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	free, err := x.Free(ctx, j, classID)
	if err != nil {
		return nil, err
	}
	isFree := make(map[int]bool, len(free))
	for _, s := range free {
		isFree[s] = true
	}
	capacity := j.ClassCapacity(classID)
	out := make([]Seat, 0, capacity)
	for s := 1; s <= capacity; s++ {
		l, _ := Label(classID, s)
		out = append(out, Seat{Number: l, Sequence: s, Available: isFree[s]})
	}
	return out, nil
}

// CheckRange fails with ErrInvalidSeat when seq is outside the capacity of
// classID on j.
func CheckRange(j model.Journey, classID string, seq int) error {
	if capacity := j.ClassCapacity(classID); seq < 1 || seq > capacity {
		return fmt.Errorf("%w: seat %d outside 1..%d", ErrInvalidSeat, seq, capacity)
	}
	return nil
}
