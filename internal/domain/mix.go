package domain

import (
	"fmt"
	"maps"
	"slices"
)

// NegativePolicy decides what Add does with a negative contribution.
type NegativePolicy int

const (
	// NegativeIgnore leaves the accumulator untouched.
	NegativeIgnore NegativePolicy = iota
	// NegativeClipToZero sets an absent accumulator to zero.
	NegativeClipToZero
)

// ProductionMix holds one optional value per production mode. An absent mode
// and a mode at zero are different: zero means curtailed, absent means unknown.
// The zero value is an empty mix.
type ProductionMix struct {
	values    map[Mode]float64
	corrected map[Mode]struct{}
}

// NewProductionMix builds a mix from wire-level mode names.
func NewProductionMix(values map[string]float64) (ProductionMix, error) {
	var m ProductionMix
	for _, name := range slices.Sorted(maps.Keys(values)) {
		mode, err := ParseMode(name)
		if err != nil {
			return ProductionMix{}, err
		}
		m.Set(mode, values[name])
	}
	return m, nil
}

// Set stores v for mode. Unknown modes are ignored; use ParseMode at the boundary.
func (m *ProductionMix) Set(mode Mode, v float64) {
	if !mode.Valid() {
		return
	}
	if m.values == nil {
		m.values = make(map[Mode]float64)
	}
	m.values[mode] = v
}

// Clear makes mode absent.
func (m *ProductionMix) Clear(mode Mode) {
	delete(m.values, mode)
}

// Get returns the value of mode and whether it is present.
func (m ProductionMix) Get(mode Mode) (float64, bool) {
	v, ok := m.values[mode]
	return v, ok
}

// Add accumulates v into mode. Negative contributions never change a present
// value; the mode is recorded as corrected either way.
func (m *ProductionMix) Add(mode Mode, v float64, policy NegativePolicy) {
	if !mode.Valid() {
		return
	}
	cur, present := m.values[mode]
	if v < 0 {
		if !present && policy == NegativeClipToZero {
			m.Set(mode, 0)
		}
		m.markCorrected(mode)
		return
	}
	m.Set(mode, cur+v)
}

// Modes returns the present modes in canonical order.
func (m ProductionMix) Modes() []Mode {
	out := make([]Mode, 0, len(m.values))
	for _, mode := range ProductionModes {
		if _, ok := m.values[mode]; ok {
			out = append(out, mode)
		}
	}
	return out
}

// Empty reports whether no mode is present.
func (m ProductionMix) Empty() bool { return len(m.values) == 0 }

// Total sums the present modes.
func (m ProductionMix) Total() (float64, bool) {
	if m.Empty() {
		return 0, false
	}
	var sum float64
	for _, v := range m.values {
		sum += v
	}
	return sum, true
}

// AllZeroOrAbsent reports whether every present mode is exactly zero.
func (m ProductionMix) AllZeroOrAbsent() bool {
	for _, v := range m.values {
		if v != 0 {
			return false
		}
	}
	return true
}

// CorrectedModes returns the modes whose negative value was corrected, in canonical order.
func (m ProductionMix) CorrectedModes() []Mode {
	out := make([]Mode, 0, len(m.corrected))
	for _, mode := range ProductionModes {
		if _, ok := m.corrected[mode]; ok {
			out = append(out, mode)
		}
	}
	return out
}

// CorrectNegatives clears every negative mode, records it and returns the
// cleared modes in canonical order.
func (m *ProductionMix) CorrectNegatives() []Mode {
	var out []Mode
	for _, mode := range ProductionModes {
		if v, ok := m.values[mode]; ok && v < 0 {
			m.Clear(mode)
			m.markCorrected(mode)
			out = append(out, mode)
		}
	}
	return out
}

// Clone returns an independent copy.
func (m ProductionMix) Clone() ProductionMix {
	return ProductionMix{values: maps.Clone(m.values), corrected: maps.Clone(m.corrected)}
}

// Map returns the present values keyed by wire-level mode name.
func (m ProductionMix) Map() map[string]float64 {
	out := make(map[string]float64, len(m.values))
	for mode, v := range m.values {
		out[string(mode)] = v
	}
	return out
}

// Equal reports whether both mixes hold the same values and corrections.
func (m ProductionMix) Equal(o ProductionMix) bool {
	return maps.Equal(m.values, o.values) && maps.Equal(m.corrected, o.corrected)
}

func (m ProductionMix) String() string {
	return fmt.Sprint(m.Map())
}

func (m *ProductionMix) markCorrected(mode Mode) {
	if m.corrected == nil {
		m.corrected = make(map[Mode]struct{})
	}
	m.corrected[mode] = struct{}{}
}

// StorageMix holds one optional signed value per storage mode.
type StorageMix struct {
	values map[StorageMode]float64
}

// NewStorageMix builds a mix from wire-level mode names.
func NewStorageMix(values map[string]float64) (StorageMix, error) {
	var m StorageMix
	for _, name := range slices.Sorted(maps.Keys(values)) {
		mode, err := ParseStorageMode(name)
		if err != nil {
			return StorageMix{}, err
		}
		m.Set(mode, values[name])
	}
	return m, nil
}

// Set stores v for mode. Unknown modes are ignored.
func (m *StorageMix) Set(mode StorageMode, v float64) {
	if !mode.Valid() {
		return
	}
	if m.values == nil {
		m.values = make(map[StorageMode]float64)
	}
	m.values[mode] = v
}

// Clear makes mode absent.
func (m *StorageMix) Clear(mode StorageMode) { delete(m.values, mode) }

// Get returns the value of mode and whether it is present.
func (m StorageMix) Get(mode StorageMode) (float64, bool) {
	v, ok := m.values[mode]
	return v, ok
}

// Empty reports whether no mode is present.
func (m StorageMix) Empty() bool { return len(m.values) == 0 }

// Modes returns the present modes in canonical order.
func (m StorageMix) Modes() []StorageMode {
	out := make([]StorageMode, 0, len(m.values))
	for _, mode := range StorageModes {
		if _, ok := m.values[mode]; ok {
			out = append(out, mode)
		}
	}
	return out
}

// Clone returns an independent copy.
func (m StorageMix) Clone() StorageMix { return StorageMix{values: maps.Clone(m.values)} }

// Map returns the present values keyed by wire-level mode name.
func (m StorageMix) Map() map[string]float64 {
	out := make(map[string]float64, len(m.values))
	for mode, v := range m.values {
		out[string(mode)] = v
	}
	return out
}

// Equal reports whether both mixes hold the same values.
func (m StorageMix) Equal(o StorageMix) bool { return maps.Equal(m.values, o.values) }
