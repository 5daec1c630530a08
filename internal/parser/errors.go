package parser

import "errors"

var (
	ErrInvalidParserKind = errors.New("invalid parser kind")
	ErrUnknownParser     = errors.New("unknown parser")
	ErrNoParser          = errors.New("no parser configured")
	ErrDuplicateParser   = errors.New("parser already registered")

	// Raised by adapters.
	ErrHistoricalDataUnavailable = errors.New("historical data unavailable")
	ErrMissingCredential         = errors.New("missing credential")
	ErrUpstreamFailure           = errors.New("upstream failure")
)
