package database

import (
	"context"
	"database/sql"
	"fmt"
)

// tables are created in order; later tables reference earlier ones.
var tables = []struct {
	name string
	ddl  string
}{
	{"journeys", `CREATE TABLE IF NOT EXISTS journeys (
		jid        VARCHAR(36)   NOT NULL PRIMARY KEY,
		train_id   VARCHAR(36)   NOT NULL,
		status     ENUM('SCHEDULED','IN_PROGRESS','COMPLETED','CANCELLED') NOT NULL DEFAULT 'SCHEDULED',
		base_price DECIMAL(10,2) NOT NULL,
		created_at DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CHECK (base_price >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"journey_classes", `CREATE TABLE IF NOT EXISTS journey_classes (
		journey_id VARCHAR(36)  NOT NULL,
		class_id   VARCHAR(16)  NOT NULL,
		capacity   INT UNSIGNED NOT NULL,
		PRIMARY KEY (journey_id, class_id),
		CONSTRAINT fk_journey_classes_journey FOREIGN KEY (journey_id) REFERENCES journeys (jid)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"journey_stations", `CREATE TABLE IF NOT EXISTS journey_stations (
		journey_id      VARCHAR(36)  NOT NULL,
		station_code    VARCHAR(16)  NOT NULL,
		sequence_number INT UNSIGNED NOT NULL,
		arrival_time    DATETIME     NOT NULL,
		departure_time  DATETIME     NOT NULL,
		platform_number INT UNSIGNED NOT NULL DEFAULT 0,
		PRIMARY KEY (journey_id, sequence_number),
		KEY idx_journey_stations_station (station_code, departure_time),
		CONSTRAINT fk_journey_stations_journey FOREIGN KEY (journey_id) REFERENCES journeys (jid)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"passengers", `CREATE TABLE IF NOT EXISTS passengers (
		pid            VARCHAR(36)  NOT NULL PRIMARY KEY,
		name           VARCHAR(191) NOT NULL,
		email          VARCHAR(191) NOT NULL,
		phone          VARCHAR(32)  NULL,
		loyalty_status ENUM('BRONZE','SILVER','GOLD','PLATINUM') NOT NULL DEFAULT 'BRONZE',
		loyalty_points BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at     DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_passengers_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	// active_seat is 1 while the booking holds its seat and NULL afterwards.
	// NULLs never collide in a unique key, so any number of cancelled rows
	// may share a seat while at most one active row can.
	{"bookings", `CREATE TABLE IF NOT EXISTS bookings (
		booking_id     VARCHAR(36)  NOT NULL PRIMARY KEY,
		passenger_id   VARCHAR(36)  NOT NULL,
		journey_id     VARCHAR(36)  NOT NULL,
		train_id       VARCHAR(36)  NOT NULL,
		class_id       VARCHAR(16)  NOT NULL,
		coach_number   VARCHAR(8)   NOT NULL,
		seat_number    VARCHAR(16)  NOT NULL,
		seat_sequence  INT UNSIGNED NOT NULL,
		booking_status ENUM('CONFIRMED','WAITLISTED','CANCELLED') NOT NULL,
		payment_status ENUM('PENDING','COMPLETED','REFUNDED') NOT NULL,
		payment_method VARCHAR(32)  NOT NULL DEFAULT '',
		amount_cents   BIGINT UNSIGNED NOT NULL,
		booking_date   DATETIME(6)  NOT NULL,
		updated_at     DATETIME(6)  NOT NULL,
		active_seat    TINYINT AS (IF(booking_status IN ('CONFIRMED','WAITLISTED'), 1, NULL)) STORED,
		UNIQUE KEY uq_bookings_active_seat (journey_id, class_id, seat_sequence, active_seat),
		KEY idx_bookings_passenger (passenger_id, booking_id),
		CONSTRAINT fk_bookings_journey FOREIGN KEY (journey_id) REFERENCES journeys (jid),
		CONSTRAINT fk_bookings_passenger FOREIGN KEY (passenger_id) REFERENCES passengers (pid)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"notifications", `CREATE TABLE IF NOT EXISTS notifications (
		notification_id VARCHAR(36)  NOT NULL PRIMARY KEY,
		passenger_id    VARCHAR(36)  NOT NULL,
		booking_id      VARCHAR(36)  NOT NULL,
		type            ENUM('BOOKING_CONFIRMATION','BOOKING_CANCELLATION','BOOKING_STATUS_UPDATE') NOT NULL,
		message         TEXT         NOT NULL,
		status          ENUM('SENT','DELIVERED','READ') NOT NULL,
		created_at      DATETIME(6)  NOT NULL,
		KEY idx_notifications_passenger (passenger_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// Migrate creates any missing tables.  It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("creating %s table: %w", t.name, err)
		}
	}
	return nil
}
