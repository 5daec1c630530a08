package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// Bounds shared by every event kind.
const (
	MaxTotal        = 500_000.0 // MW
	MaxNetFlow      = 100_000.0 // MW
	futureTolerance = 24 * time.Hour
)

// Earliest is the oldest datetime an event may carry.
var Earliest = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// EventKind names a canonical event type.
type EventKind string

const (
	KindExchange            EventKind = "exchange"
	KindTotalConsumption    EventKind = "totalConsumption"
	KindTotalProduction     EventKind = "totalProduction"
	KindProductionBreakdown EventKind = "productionBreakdown"
	KindPrice               EventKind = "price"
)

// SourceType is the provenance class of a datapoint.
type SourceType string

const (
	Measured   SourceType = "measured"
	Forecasted SourceType = "forecasted"
	Estimated  SourceType = "estimated"
)

// ParseSourceType validates s. An empty string means measured.
func ParseSourceType(s string) (SourceType, error) {
	switch st := SourceType(s); st {
	case "":
		return Measured, nil
	case Measured, Forecasted, Estimated:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSourceType, s)
	}
}

// ZoneIndex answers membership questions against the zone configuration.
// *zone.Config implements it.
type ZoneIndex interface {
	HasZone(zone.Key) bool
	HasExchange(zone.ExchangeKey) bool
}

// Meta carries the fields shared by every event.
type Meta struct {
	Datetime   time.Time
	Source     string
	SourceType SourceType
}

// validate checks the time invariants. Every datapoint except forecasts is
// bounded against the future, and none are when futureAllowed is set.
func (m Meta) validate(futureAllowed bool) error {
	if m.Datetime.IsZero() {
		return ErrMissingTimezone
	}
	if _, err := ParseSourceType(string(m.SourceType)); err != nil {
		return err
	}
	if m.Datetime.Before(Earliest) {
		return fmt.Errorf("%w: %s", ErrImplausibleTime, m.Datetime.Format(time.RFC3339))
	}
	if futureAllowed || m.SourceType == Forecasted {
		return nil
	}
	if m.Datetime.After(clock.Now().Add(futureTolerance)) {
		return fmt.Errorf("%w: %s", ErrFutureMeasurement, m.Datetime.Format(time.RFC3339))
	}
	return nil
}

func (m Meta) normalized() Meta {
	if m.SourceType == "" {
		m.SourceType = Measured
	}
	return m
}

func checkZone(zones ZoneIndex, k zone.Key) error {
	if k == "" || !zones.HasZone(k) {
		return fmt.Errorf("%w: %q", ErrUnknownZone, k)
	}
	return nil
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
