package domain

import "errors"

var (
	// ErrMalformedTimestamp is returned when a timestamp cannot be canonicalized.
	ErrMalformedTimestamp = errors.New("interval: malformed timestamp")
	// ErrNegativeTotal is returned for physically invalid production/consumption.
	ErrNegativeTotal = errors.New("interval: negative total")
	// ErrNegativeFlow is returned when a flow total is negative.
	ErrNegativeFlow = errors.New("interval: negative flow total")
	// ErrRecordNotFound is returned when no record exists for a slot.
	ErrRecordNotFound = errors.New("interval: record not found")
	// ErrInvalidDay is returned when a day boundary is zero.
	ErrInvalidDay = errors.New("interval: invalid day")
)
