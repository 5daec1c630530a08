package domain

import "errors"

// Construction failures. Strict constructors return them wrapped with context;
// safe factories log them and drop the event.
var (
	ErrUnknownZone       = errors.New("unknown zone")
	ErrUnknownExchange   = errors.New("unknown exchange")
	ErrMissingTimezone   = errors.New("datetime is missing or has no timezone")
	ErrImplausibleTime   = errors.New("datetime precedes 2000-01-01")
	ErrFutureMeasurement = errors.New("non-forecast datetime is more than 24h ahead")
	ErrEmptyMix          = errors.New("production mix has no value")
	ErrNegativeTotal     = errors.New("total is negative")
	ErrNegativeValue     = errors.New("production value is negative")
	ErrImplausiblyHigh   = errors.New("value is implausibly high")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrInvalidSourceType = errors.New("invalid source type")
	ErrUnknownMode       = errors.New("unknown mode")
	ErrMalformedRecord   = errors.New("malformed record")
)
