// Package seat derives seat occupancy from active bookings.  Seats have no
// rows of their own: a seat is occupied iff a CONFIRMED or WAITLISTED
// booking claims its (journey, class, sequence) triple.
package seat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/rail-booking/internal/catalog"
)

// ErrInvalidSeat is returned for labels that do not parse for the class or
// whose sequence is outside [1, capacity].
var ErrInvalidSeat = errors.New("invalid seat")

// Label formats the canonical label "<prefix>-<sequence>" for a class.
func Label(classID string, seq int) (string, error) {
	c, err := catalog.Class(classID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d", c.SeatPrefix, seq), nil
}

// Parse returns the sequence number of a seat label.  It accepts "B-2",
// "B2" and "2" for a class whose prefix is B; the prefix is matched
// case-insensitively.  Parse does not check capacity.
func Parse(classID, label string) (int, error) {
	c, err := catalog.Class(classID)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(label)
	if len(s) > 0 && (s[0] < '0' || s[0] > '9') {
		if !strings.HasPrefix(strings.ToUpper(s), strings.ToUpper(c.SeatPrefix)) {
			return 0, fmt.Errorf("%w: %q is not a %s seat", ErrInvalidSeat, label, c.ID)
		}
		s = strings.TrimPrefix(s[len(c.SeatPrefix):], "-")
	}
	seq, err := strconv.Atoi(s)
	if err != nil || seq < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeat, label)
	}
	return seq, nil
}
