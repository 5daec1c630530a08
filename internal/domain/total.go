package domain

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// TotalInput carries the fields for building a TotalConsumption or TotalProduction.
type TotalInput struct {
	ZoneKey zone.Key
	Value   float64
	Meta
}

// TotalConsumption is the total load of a zone in MW.
type TotalConsumption struct {
	ZoneKey     zone.Key
	Consumption float64
	Meta
}

// TotalProduction is the total generation of a zone in MW.
type TotalProduction struct {
	ZoneKey    zone.Key
	Generation float64
	Meta
}

// NewTotalConsumption validates in and returns the event.
func NewTotalConsumption(zones ZoneIndex, in TotalInput) (TotalConsumption, error) {
	meta, err := validateTotal(zones, in)
	if err != nil {
		return TotalConsumption{}, fmt.Errorf("new consumption: %w", err)
	}
	return TotalConsumption{ZoneKey: in.ZoneKey, Consumption: in.Value, Meta: meta}, nil
}

// CreateTotalConsumption is the safe factory for TotalConsumption.
func CreateTotalConsumption(logger *slog.Logger, zones ZoneIndex, in TotalInput) (TotalConsumption, bool) {
	ev, err := NewTotalConsumption(zones, in)
	if err != nil {
		logDrop(logger, KindTotalConsumption, string(in.ZoneKey), in.Meta, err)
		return TotalConsumption{}, false
	}
	return ev, true
}

// NewTotalProduction validates in and returns the event.
func NewTotalProduction(zones ZoneIndex, in TotalInput) (TotalProduction, error) {
	meta, err := validateTotal(zones, in)
	if err != nil {
		return TotalProduction{}, fmt.Errorf("new production total: %w", err)
	}
	return TotalProduction{ZoneKey: in.ZoneKey, Generation: in.Value, Meta: meta}, nil
}

// CreateTotalProduction is the safe factory for TotalProduction.
func CreateTotalProduction(logger *slog.Logger, zones ZoneIndex, in TotalInput) (TotalProduction, bool) {
	ev, err := NewTotalProduction(zones, in)
	if err != nil {
		logDrop(logger, KindTotalProduction, string(in.ZoneKey), in.Meta, err)
		return TotalProduction{}, false
	}
	return ev, true
}

// Record returns the canonical wire form.
func (e TotalConsumption) Record() Record {
	return Record{
		FieldDatetime:    e.Datetime,
		FieldZoneKey:     string(e.ZoneKey),
		FieldConsumption: e.Consumption,
		FieldSource:      e.Source,
		FieldSourceType:  string(e.SourceType),
	}
}

// Record returns the canonical wire form.
func (e TotalProduction) Record() Record {
	return Record{
		FieldDatetime:   e.Datetime,
		FieldZoneKey:    string(e.ZoneKey),
		FieldGeneration: e.Generation,
		FieldSource:     e.Source,
		FieldSourceType: string(e.SourceType),
	}
}

func validateTotal(zones ZoneIndex, in TotalInput) (Meta, error) {
	if err := checkZone(zones, in.ZoneKey); err != nil {
		return Meta{}, err
	}
	meta := in.Meta.normalized()
	if err := meta.validate(false); err != nil {
		return Meta{}, fmt.Errorf("%s: %w", in.ZoneKey, err)
	}
	switch {
	case math.IsNaN(in.Value) || math.IsInf(in.Value, 0):
		return Meta{}, fmt.Errorf("%s: %w: value is not finite", in.ZoneKey, ErrMalformedRecord)
	case in.Value < 0:
		return Meta{}, fmt.Errorf("%s: %w: %g", in.ZoneKey, ErrNegativeTotal, in.Value)
	case in.Value > MaxTotal:
		return Meta{}, fmt.Errorf("%s: %w: %g > %g MW", in.ZoneKey, ErrImplausiblyHigh, in.Value, MaxTotal)
	}
	return meta, nil
}

func logDrop(logger *slog.Logger, kind EventKind, key string, meta Meta, err error) {
	logger.Error("dropping event",
		"error", err,
		"kind", kind,
		"zone_key", key,
		"datetime", meta.Datetime,
		"source", meta.Source,
	)
}
