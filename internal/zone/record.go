package zone

import (
	"fmt"
	"maps"
	"slices"

	"github.com/couchcryptid/grid-ingest/internal/dated"
)

// BoundingBox is [[lonMin, latMin], [lonMax, latMax]].
type BoundingBox [2][2]float64

// Validate checks that both corners are ordered.
func (b BoundingBox) Validate() error {
	if b[0][0] >= b[1][0] {
		return fmt.Errorf("bounding box longitude %g must be below %g", b[0][0], b[1][0])
	}
	if b[0][1] >= b[1][1] {
		return fmt.Errorf("bounding box latitude %g must be below %g", b[0][1], b[1][1])
	}
	return nil
}

// FactorTable maps a factor type ("lifecycle", "direct") to per-mode entries.
type FactorTable map[string]map[string]dated.Entry

// ValidationRules holds the optional per-zone plausibility rules for
// production breakdowns.
type ValidationRules struct {
	Required       []string              `yaml:"required"`
	Floor          *float64              `yaml:"floor" validate:"omitempty,gte=0"`
	Range          *[2]float64           `yaml:"range"`
	ExpectedRange  map[string][2]float64 `yaml:"expectedRange"`
	MaxDiff        map[string]float64    `yaml:"maxDiff" validate:"dive,gt=0"`
	RejectAllZeros *bool                 `yaml:"rejectAllZeros"`
}

// Record is the declarative configuration of one zone.
type Record struct {
	Key               Key                    `yaml:"-"`
	Timezone          string                 `yaml:"timezone" validate:"required,timezone"`
	BoundingBox       *BoundingBox           `yaml:"bounding_box"`
	SubZoneNames      []Key                  `yaml:"subZoneNames" validate:"dive,required"`
	Contributors      []string               `yaml:"contributors"`
	Capacity          map[string]dated.Entry `yaml:"capacity"`
	Parsers           map[string]string      `yaml:"parsers" validate:"dive,keys,required,endkeys,required"`
	Delays            map[string]int         `yaml:"delays" validate:"dive,keys,required,endkeys,gte=0"`
	EmissionFactors   FactorTable            `yaml:"emissionFactors"`
	FallbackZoneMixes map[string]any         `yaml:"fallbackZoneMixes"`
	IsLowCarbon       map[string]dated.Entry `yaml:"isLowCarbon"`
	IsRenewable       map[string]dated.Entry `yaml:"isRenewable"`
	Disclaimer        string                 `yaml:"disclaimer"`
	Comment           string                 `yaml:"comment"`
	Validation        *ValidationRules       `yaml:"validation"`
}

// IsParent reports whether the zone aggregates sub-zones.
func (r Record) IsParent() bool { return len(r.SubZoneNames) > 0 }

// Clone returns a copy of r that shares no maps, slices or pointers with it.
// Dated entries are immutable values and are copied by value.
func (r Record) Clone() Record {
	out := r
	if r.BoundingBox != nil {
		bb := *r.BoundingBox
		out.BoundingBox = &bb
	}
	out.SubZoneNames = slices.Clone(r.SubZoneNames)
	out.Contributors = slices.Clone(r.Contributors)
	out.Capacity = maps.Clone(r.Capacity)
	out.Parsers = maps.Clone(r.Parsers)
	out.Delays = maps.Clone(r.Delays)
	out.EmissionFactors = r.EmissionFactors.Clone()
	out.FallbackZoneMixes = maps.Clone(r.FallbackZoneMixes)
	out.IsLowCarbon = maps.Clone(r.IsLowCarbon)
	out.IsRenewable = maps.Clone(r.IsRenewable)
	if r.Validation != nil {
		v := r.Validation.Clone()
		out.Validation = &v
	}
	return out
}

// Clone returns a deep copy of v.
func (v ValidationRules) Clone() ValidationRules {
	out := v
	out.Required = slices.Clone(v.Required)
	if v.Floor != nil {
		f := *v.Floor
		out.Floor = &f
	}
	if v.Range != nil {
		rg := *v.Range
		out.Range = &rg
	}
	out.ExpectedRange = maps.Clone(v.ExpectedRange)
	out.MaxDiff = maps.Clone(v.MaxDiff)
	if v.RejectAllZeros != nil {
		b := *v.RejectAllZeros
		out.RejectAllZeros = &b
	}
	return out
}

// Clone returns a copy of t with its per-type tables copied.
func (t FactorTable) Clone() FactorTable {
	if t == nil {
		return nil
	}
	out := make(FactorTable, len(t))
	for typ, modes := range t {
		out[typ] = maps.Clone(modes)
	}
	return out
}

// ExchangeRecord is the declarative configuration of one interconnection.
type ExchangeRecord struct {
	Key ExchangeKey `yaml:"-"`
	// Capacity is (import, export) in MW. Import capacity is usually negative.
	Capacity *[2]float64       `yaml:"capacity"`
	LonLat   *[2]float64       `yaml:"lonlat"`
	Parsers  map[string]string `yaml:"parsers" validate:"dive,keys,required,endkeys,required"`
	Rotation *float64          `yaml:"rotation" validate:"omitempty,gte=-360,lte=360"`
	Comment  string            `yaml:"comment"`
}

// Clone returns a copy of r that shares no maps or pointers with it.
func (r ExchangeRecord) Clone() ExchangeRecord {
	out := r
	if r.Capacity != nil {
		c := *r.Capacity
		out.Capacity = &c
	}
	if r.LonLat != nil {
		ll := *r.LonLat
		out.LonLat = &ll
	}
	out.Parsers = maps.Clone(r.Parsers)
	if r.Rotation != nil {
		rot := *r.Rotation
		out.Rotation = &rot
	}
	return out
}

// Defaults holds the global emission factors and classification tables.
type Defaults struct {
	EmissionFactors FactorTable            `yaml:"emissionFactors"`
	IsLowCarbon     map[string]dated.Entry `yaml:"isLowCarbon"`
	IsRenewable     map[string]dated.Entry `yaml:"isRenewable"`
}

// Clone returns a copy of d that shares no maps with it.
func (d Defaults) Clone() Defaults {
	return Defaults{
		EmissionFactors: d.EmissionFactors.Clone(),
		IsLowCarbon:     maps.Clone(d.IsLowCarbon),
		IsRenewable:     maps.Clone(d.IsRenewable),
	}
}
