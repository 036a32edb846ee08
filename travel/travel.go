// Package travel defines the booking records extracted from travel pages.
package travel

import (
	"errors"
	"fmt"
	"time"
)

// DataType names the kind of booking being extracted.
type DataType string

const (
	KindFlight  DataType = "flight"
	KindLodging DataType = "lodging"
)

// ErrInvalidRecord is wrapped by Validate failures.
var ErrInvalidRecord = errors.New("invalid travel record")

// Record is a parsed booking. It is implemented by Flight and Lodging.
type Record interface {
	Kind() DataType
	Clone() Record
	Validate() error
}

// Flight holds the fields extracted from a flight booking page.
type Flight struct {
	OriginAirport      string  `json:"origin_airport"`
	DestinationAirport string  `json:"destination_airport"`
	Duration           int     `json:"duration"` // minutes
	TotalCost          float64 `json:"total_cost"`
	TotalCostPerPerson float64 `json:"total_cost_per_person"`
	Segment            int     `json:"segment"`
	FlightNumber       string  `json:"flight_number"`
}

// Lodging holds the fields extracted from a hotel or rental booking page.
type Lodging struct {
	Name               string    `json:"name"`
	Location           string    `json:"location"`
	NumberOfGuests     int       `json:"number_of_guests"`
	TotalCost          float64   `json:"total_cost"`
	TotalCostPerPerson int       `json:"total_cost_per_person"`
	NumberOfNights     int       `json:"number_of_nights"`
	CheckIn            time.Time `json:"check_in"`
	CheckOut           time.Time `json:"check_out"`
}

func (Flight) Kind() DataType  { return KindFlight }
func (Lodging) Kind() DataType { return KindLodging }

func (f Flight) Clone() Record  { return f }
func (l Lodging) Clone() Record { return l }

// Validate checks the numeric bounds of a flight.
func (f Flight) Validate() error {
	switch {
	case f.Duration < 0:
		return fmt.Errorf("%w: duration %d is negative", ErrInvalidRecord, f.Duration)
	case f.TotalCost < 0:
		return fmt.Errorf("%w: total_cost %.2f is negative", ErrInvalidRecord, f.TotalCost)
	case f.TotalCostPerPerson < 0:
		return fmt.Errorf("%w: total_cost_per_person %.2f is negative", ErrInvalidRecord, f.TotalCostPerPerson)
	case f.Segment < 0:
		return fmt.Errorf("%w: segment %d is negative", ErrInvalidRecord, f.Segment)
	}
	return nil
}

// Validate checks the numeric bounds of a lodging.
func (l Lodging) Validate() error {
	switch {
	case l.NumberOfGuests < 1:
		return fmt.Errorf("%w: number_of_guests must be at least 1, got %d", ErrInvalidRecord, l.NumberOfGuests)
	case l.NumberOfNights < 1:
		return fmt.Errorf("%w: number_of_nights must be at least 1, got %d", ErrInvalidRecord, l.NumberOfNights)
	case l.TotalCost < 0:
		return fmt.Errorf("%w: total_cost %.2f is negative", ErrInvalidRecord, l.TotalCost)
	case l.TotalCostPerPerson < 0:
		return fmt.Errorf("%w: total_cost_per_person %d is negative", ErrInvalidRecord, l.TotalCostPerPerson)
	}
	return nil
}

// DefaultFlight is returned for fields the page did not mention.
func DefaultFlight() Flight {
	return Flight{
		OriginAirport:      unknown,
		DestinationAirport: unknown,
		Segment:            1,
		FlightNumber:       unknown,
	}
}

// DefaultLodging is returned for fields the page did not mention.
func DefaultLodging() Lodging {
	return Lodging{
		Name:           unknown,
		Location:       unknown,
		NumberOfGuests: 1,
		NumberOfNights: 1,
		CheckIn:        defaultCheckIn,
		CheckOut:       defaultCheckOut,
	}
}

const unknown = "Unknown"

var (
	defaultCheckIn  = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultCheckOut = time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)
)
