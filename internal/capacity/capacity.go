// Package capacity resolves installed generation capacity per mode from a
// zone's capacity section.
package capacity

import (
	"maps"
	"slices"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/dated"
	"github.com/couchcryptid/grid-ingest/internal/domain"
)

// Section is the capacity block of a zone, keyed by capacity mode.
type Section map[string]dated.Entry

// Storage capacity modes accepted next to the production modes.
const (
	BatteryStorage = "battery storage"
	HydroStorage   = "hydro storage"
)

// ValidMode reports whether name is a production mode or a storage capacity mode.
func ValidMode(name string) bool {
	if name == BatteryStorage || name == HydroStorage {
		return true
	}
	return domain.Mode(name).Valid()
}

// Value is a resolved capacity with its provenance.
type Value struct {
	Value  float64 `json:"value"`
	Source string  `json:"source,omitempty"`
	// Datetime is the datetime of the chosen record; nil for scalars and timeless records.
	Datetime *time.Time `json:"datetime,omitempty"`
}

// Resolve returns the capacity of every mode at dt. Modes whose entry is empty
// map to nil.
func Resolve(section Section, dt time.Time) map[string]*float64 {
	out := make(map[string]*float64, len(section))
	for mode, entry := range section {
		if v, ok := entry.Value(dt); ok {
			out[mode] = &v
		} else {
			out[mode] = nil
		}
	}
	return out
}

// ResolveWithSource is Resolve with the source and datetime of each chosen record.
func ResolveWithSource(section Section, dt time.Time) map[string]*Value {
	out := make(map[string]*Value, len(section))
	for mode, entry := range section {
		m, ok := entry.At(dt)
		if !ok {
			out[mode] = nil
			continue
		}
		v := &Value{Value: m.Record.Value, Source: m.Record.Source}
		if !m.Record.Timeless() {
			at := m.Record.Datetime
			v.Datetime = &at
		}
		out[mode] = v
	}
	return out
}

// Modes returns the sorted mode names of the section.
func (s Section) Modes() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a shallow copy; entries are values.
func (s Section) Clone() Section { return maps.Clone(s) }
