package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JourneyStatus is the operational state of a scheduled run.
type JourneyStatus string

const (
	JourneyScheduled  JourneyStatus = "SCHEDULED"
	JourneyInProgress JourneyStatus = "IN_PROGRESS"
	JourneyCompleted  JourneyStatus = "COMPLETED"
	JourneyCancelled  JourneyStatus = "CANCELLED"
)

// journeyTransitions lists the statuses reachable from each status.  The
// table only moves forward; COMPLETED and CANCELLED are terminal.
var journeyTransitions = map[JourneyStatus][]JourneyStatus{
	JourneyScheduled:  {JourneyInProgress, JourneyCancelled},
	JourneyInProgress: {JourneyCompleted},
}

// Valid reports whether s is one of the known journey statuses.
func (s JourneyStatus) Valid() bool {
	switch s {
	case JourneyScheduled, JourneyInProgress, JourneyCompleted, JourneyCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a journey may move from s to next.
func (s JourneyStatus) CanTransitionTo(next JourneyStatus) bool {
	for _, n := range journeyTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Journey represents a scheduled run of a train between an ordered list
// of stations.  Seat capacity is tracked per class; a class missing from
// Capacity (or mapped to zero) is not offered on the journey.
//
// Fields:
//  ID        – primary key identifier (journeys.jid).
//  TrainID   – train operating the run.
//  Capacity  – seats per class id (journey_classes rows).
//  Status    – SCHEDULED, IN_PROGRESS, COMPLETED or CANCELLED.
//  BasePrice – fare before class multiplier and loyalty discount.
//  Stations  – stops ordered by sequence number.
type Journey struct {
	ID        string           // journeys.jid
	TrainID   string           // journeys.train_id
	Capacity  map[string]int   // journey_classes.capacity keyed by class_id
	Status    JourneyStatus    // journeys.status
	BasePrice decimal.Decimal  // journeys.base_price
	Stations  []JourneyStation // journey_stations ordered by sequence_number
	CreatedAt time.Time        // journeys.created_at
	UpdatedAt time.Time        // journeys.updated_at
}

// ClassCapacity returns the capacity for classID, zero when the class is
// not offered.
func (j Journey) ClassCapacity(classID string) int {
	if j.Capacity == nil {
		return 0
	}
	return j.Capacity[classID]
}

// StationIndex returns the position of code in the station list, or -1.
func (j Journey) StationIndex(code string) int {
	for i, st := range j.Stations {
		if st.StationCode == code {
			return i
		}
	}
	return -1
}

// JourneyStation is one stop of a journey.
type JourneyStation struct {
	StationCode    string    // journey_stations.station_code
	SequenceNumber int       // journey_stations.sequence_number
	ArrivalTime    time.Time // journey_stations.arrival_time
	DepartureTime  time.Time // journey_stations.departure_time
	PlatformNumber int       // journey_stations.platform_number
}
