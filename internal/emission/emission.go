// Package emission resolves emission factors and mode classifications for a
// zone, mode and datetime.
//
// Lookup precedence is the zone's own override, then its parent's override,
// then the global default. The chosen entry is resolved in time with the
// same rule as capacity: the record with the greatest datetime <= dt, or the
// oldest record when dt precedes all of them.
package emission

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/dated"
	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// ErrNoFactor is returned when neither the zone, its parent nor the defaults
// define the requested value.
var ErrNoFactor = errors.New("no emission factor")

// Type selects a factor table.
type Type string

const (
	Lifecycle Type = "lifecycle"
	Direct    Type = "direct"
)

// ParseType validates s. An empty string means lifecycle.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case "":
		return Lifecycle, nil
	case Lifecycle, Direct:
		return t, nil
	default:
		return "", fmt.Errorf("invalid emission factor type %q", s)
	}
}

// Variant tells which branch of the lookup produced a value.
type Variant string

const (
	GlobalExactTimeless  Variant = "GLOBAL_EXACT_TIMELESS"
	ZoneExactTimeless    Variant = "ZONE_EXACT_TIMELESS"
	GlobalExactTimely    Variant = "GLOBAL_EXACT_TIMELY"
	ZoneExactTimely      Variant = "ZONE_EXACT_TIMELY"
	GlobalFallbackLatest Variant = "GLOBAL_FALLBACK_LATEST"
	ZoneFallbackLatest   Variant = "ZONE_FALLBACK_LATEST"
	GlobalFallbackOlder  Variant = "GLOBAL_FALLBACK_OLDER"
	ZoneFallbackOlder    Variant = "ZONE_FALLBACK_OLDER"
	GlobalFallbackOldest Variant = "GLOBAL_FALLBACK_OLDEST"
	ZoneFallbackOldest   Variant = "ZONE_FALLBACK_OLDEST"
)

// variantOf labels a match. override is true for zone and parent overrides.
func variantOf(m dated.Match, dt time.Time, override bool) Variant {
	var suffix string
	switch {
	case m.Selection == dated.SelectTimeless:
		suffix = "EXACT_TIMELESS"
	case m.Selection == dated.SelectOldest:
		suffix = "FALLBACK_OLDEST"
	case m.Record.Datetime.UTC().Year() == dt.UTC().Year():
		suffix = "EXACT_TIMELY"
	case m.Latest:
		suffix = "FALLBACK_LATEST"
	default:
		suffix = "FALLBACK_OLDER"
	}
	if override {
		return Variant("ZONE_" + suffix)
	}
	return Variant("GLOBAL_" + suffix)
}

// Storage discharge modes carry their own factors.
const (
	BatteryDischarge = "battery discharge"
	HydroDischarge   = "hydro discharge"
)

// ValidMode reports whether name can carry an emission factor.
func ValidMode(name string) bool {
	if name == BatteryDischarge || name == HydroDischarge {
		return true
	}
	return domain.Mode(name).Valid()
}

// Factor is a resolved value.
type Factor struct {
	Value  float64 `json:"value"`
	Source string  `json:"source,omitempty"`
	// Datetime is set when the chosen record is dated.
	Datetime *time.Time `json:"datetime,omitempty"`
	Variant  Variant    `json:"variant"`
	// Zone is the zone whose override was used; empty for defaults.
	Zone zone.Key `json:"zone,omitempty"`
}
