package domain

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// ExchangeInput carries the fields for building an Exchange. Key is the raw
// "A->B" string as reported by the adapter.
type ExchangeInput struct {
	Key     string
	NetFlow float64
	Meta
}

// Exchange is the net flow across an interconnection. A positive NetFlow runs
// from the first zone of the key to the second.
type Exchange struct {
	Key     zone.ExchangeKey
	NetFlow float64
	Meta
}

// NewExchange validates in and returns the event.
func NewExchange(zones ZoneIndex, in ExchangeInput) (Exchange, error) {
	a, b, err := zone.ParseExchangeKey(in.Key)
	if err != nil {
		return Exchange{}, fmt.Errorf("new exchange: %w: %w", ErrUnknownExchange, err)
	}
	for _, end := range []zone.Key{a, b} {
		if err := checkZone(zones, end); err != nil {
			return Exchange{}, fmt.Errorf("new exchange %s: %w", in.Key, err)
		}
	}
	key := zone.ExchangeKey(in.Key)
	if !zones.HasExchange(key) {
		return Exchange{}, fmt.Errorf("new exchange: %w: %s", ErrUnknownExchange, key)
	}
	meta := in.Meta.normalized()
	if err := meta.validate(false); err != nil {
		return Exchange{}, fmt.Errorf("new exchange %s: %w", key, err)
	}
	if math.IsNaN(in.NetFlow) || math.IsInf(in.NetFlow, 0) {
		return Exchange{}, fmt.Errorf("new exchange %s: %w: net flow is not finite", key, ErrMalformedRecord)
	}
	if math.Abs(in.NetFlow) > MaxNetFlow {
		return Exchange{}, fmt.Errorf("new exchange %s: %w: |%g| > %g MW", key, ErrImplausiblyHigh, in.NetFlow, MaxNetFlow)
	}
	return Exchange{Key: key, NetFlow: in.NetFlow, Meta: meta}, nil
}

// CreateExchange is the safe factory: it logs and reports false instead of
// returning an error.
func CreateExchange(logger *slog.Logger, zones ZoneIndex, in ExchangeInput) (Exchange, bool) {
	ev, err := NewExchange(zones, in)
	if err != nil {
		logDrop(logger, KindExchange, in.Key, in.Meta, err)
		return Exchange{}, false
	}
	return ev, true
}

// Record returns the canonical wire form.
func (e Exchange) Record() Record {
	return Record{
		FieldDatetime:       e.Datetime,
		FieldSortedZoneKeys: string(e.Key),
		FieldNetFlow:        e.NetFlow,
		FieldSource:         e.Source,
		FieldSourceType:     string(e.SourceType),
	}
}
