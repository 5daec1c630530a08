package domain

import (
	"fmt"
	"log/slog"
	"maps"
	"math"

	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// ProductionBreakdownInput carries the fields for building a ProductionBreakdown.
type ProductionBreakdownInput struct {
	ZoneKey    zone.Key
	Production ProductionMix
	Storage    StorageMix
	// Capacity optionally reports installed capacity per mode next to the sample.
	Capacity map[string]float64
	Meta
}

// ProductionBreakdown is production per mode, with optional storage, for one zone.
type ProductionBreakdown struct {
	ZoneKey    zone.Key
	Production ProductionMix
	Storage    StorageMix
	Capacity   map[string]float64
	Meta
}

// NewProductionBreakdown validates in and returns the event. Negative
// production is an error here; CreateProductionBreakdown corrects it first.
func NewProductionBreakdown(zones ZoneIndex, in ProductionBreakdownInput) (ProductionBreakdown, error) {
	if err := checkZone(zones, in.ZoneKey); err != nil {
		return ProductionBreakdown{}, fmt.Errorf("new production breakdown: %w", err)
	}
	meta := in.Meta.normalized()
	if err := meta.validate(false); err != nil {
		return ProductionBreakdown{}, fmt.Errorf("new production breakdown %s: %w", in.ZoneKey, err)
	}
	for _, mode := range in.Production.Modes() {
		v, _ := in.Production.Get(mode)
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return ProductionBreakdown{}, fmt.Errorf("new production breakdown %s: %w: %s is not finite", in.ZoneKey, ErrMalformedRecord, mode)
		case v < 0:
			return ProductionBreakdown{}, fmt.Errorf("new production breakdown %s: %w: %s=%g", in.ZoneKey, ErrNegativeValue, mode, v)
		case v > MaxTotal:
			return ProductionBreakdown{}, fmt.Errorf("new production breakdown %s: %w: %s=%g", in.ZoneKey, ErrImplausiblyHigh, mode, v)
		}
	}
	if in.Production.Empty() {
		return ProductionBreakdown{}, fmt.Errorf("new production breakdown %s: %w", in.ZoneKey, ErrEmptyMix)
	}
	return ProductionBreakdown{
		ZoneKey:    in.ZoneKey,
		Production: in.Production.Clone(),
		Storage:    in.Storage.Clone(),
		Capacity:   maps.Clone(in.Capacity),
		Meta:       meta,
	}, nil
}

// CreateProductionBreakdown is the safe factory. Negative production modes are
// set to null with a warning before the empty-mix check. Storage is never
// corrected because negative storage means discharging.
func CreateProductionBreakdown(logger *slog.Logger, zones ZoneIndex, in ProductionBreakdownInput) (ProductionBreakdown, bool) {
	in.Production = in.Production.Clone()
	for _, mode := range in.Production.Modes() {
		if v, _ := in.Production.Get(mode); v < 0 {
			logger.Warn("negative production corrected to null",
				"zone_key", in.ZoneKey,
				"datetime", in.Datetime,
				"mode", mode,
				"value", v,
			)
		}
	}
	in.Production.CorrectNegatives()

	ev, err := NewProductionBreakdown(zones, in)
	if err != nil {
		logDrop(logger, KindProductionBreakdown, string(in.ZoneKey), in.Meta, err)
		return ProductionBreakdown{}, false
	}
	return ev, true
}

// Record returns the canonical wire form. Absent modes are omitted.
func (e ProductionBreakdown) Record() Record {
	r := Record{
		FieldDatetime:   e.Datetime,
		FieldZoneKey:    string(e.ZoneKey),
		FieldProduction: e.Production.Map(),
		FieldSource:     e.Source,
		FieldSourceType: string(e.SourceType),
	}
	if !e.Storage.Empty() {
		r[FieldStorage] = e.Storage.Map()
	}
	if len(e.Capacity) > 0 {
		r[FieldCapacity] = maps.Clone(e.Capacity)
	}
	if corrected := e.Production.CorrectedModes(); len(corrected) > 0 {
		names := make([]string, len(corrected))
		for i, m := range corrected {
			names[i] = string(m)
		}
		r[FieldCorrectedModes] = names
	}
	return r
}

// Equal reports whether two breakdowns carry the same data.
func (e ProductionBreakdown) Equal(o ProductionBreakdown) bool {
	return e.ZoneKey == o.ZoneKey &&
		e.Datetime.Equal(o.Datetime) &&
		e.Source == o.Source &&
		e.SourceType == o.SourceType &&
		e.Production.Equal(o.Production) &&
		e.Storage.Equal(o.Storage) &&
		maps.Equal(e.Capacity, o.Capacity)
}
