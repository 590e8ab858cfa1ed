// Package repository implements the storage contracts on MySQL.  Driver
// errors never leave this package: missing rows become the storage
// not-found sentinels and duplicate keys become storage.ErrSeatTaken or
// storage.ErrPassengerExists.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// erDupEntry is the MySQL error number for a unique key violation.
const erDupEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == erDupEntry
}

// notFound maps sql.ErrNoRows to sentinel and returns other errors as is.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

// Store bundles every repository so one value satisfies all storage
// contracts.
type Store struct {
	*JourneyRepo
	*BookingRepo
	*PassengerRepo
	*NotificationRepo
}

// NewStore returns repositories bound to db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		JourneyRepo:      NewJourneyRepo(db),
		BookingRepo:      NewBookingRepo(db),
		PassengerRepo:    NewPassengerRepo(db),
		NotificationRepo: NewNotificationRepo(db),
	}
}
