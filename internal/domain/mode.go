package domain

import "fmt"

// Mode is a production mode. The set is closed.
type Mode string

const (
	Biomass    Mode = "biomass"
	Coal       Mode = "coal"
	Gas        Mode = "gas"
	Geothermal Mode = "geothermal"
	Hydro      Mode = "hydro"
	Nuclear    Mode = "nuclear"
	Oil        Mode = "oil"
	Solar      Mode = "solar"
	Unknown    Mode = "unknown"
	Wind       Mode = "wind"
)

// ProductionModes lists every production mode in canonical order.
var ProductionModes = []Mode{Biomass, Coal, Gas, Geothermal, Hydro, Nuclear, Oil, Solar, Unknown, Wind}

// StorageMode is a storage mode. Positive values charge (remove power from the
// grid), negative values discharge.
type StorageMode string

const (
	Battery      StorageMode = "battery"
	HydroStorage StorageMode = "hydro"
)

// StorageModes lists every storage mode in canonical order.
var StorageModes = []StorageMode{Battery, HydroStorage}

// ParseMode validates s against the production modes.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: production mode %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Valid reports whether m is a production mode.
func (m Mode) Valid() bool {
	switch m {
	case Biomass, Coal, Gas, Geothermal, Hydro, Nuclear, Oil, Solar, Unknown, Wind:
		return true
	}
	return false
}

// ParseStorageMode validates s against the storage modes.
func ParseStorageMode(s string) (StorageMode, error) {
	m := StorageMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: storage mode %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Valid reports whether m is a storage mode.
func (m StorageMode) Valid() bool {
	return m == Battery || m == HydroStorage
}
