package capacity

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/dated"
	"github.com/couchcryptid/grid-ingest/internal/domain"
)

var (
	ErrUnknownMode   = errors.New("unknown capacity mode")
	ErrInvalidValue  = errors.New("invalid capacity value")
	ErrMissingSource = errors.New("capacity observation has no source")
)

// Observation is one capacity datapoint reported by a capacity adapter.
type Observation struct {
	Mode     string
	Datetime time.Time
	Value    float64
	Source   string
}

// Update returns a copy of section with obs folded into its mode entry.
func Update(section Section, obs Observation) Section {
	out := section.Clone()
	if out == nil {
		out = make(Section)
	}
	out[obs.Mode] = out[obs.Mode].Upsert(dated.Record{
		Datetime: obs.Datetime,
		Value:    obs.Value,
		Source:   obs.Source,
	})
	return out
}

// Apply folds every observation into section in order.
func Apply(section Section, observations []Observation) Section {
	out := section.Clone()
	for _, obs := range observations {
		out = Update(out, obs)
	}
	return out
}

// ObservationsFromRecord parses a capacity adapter record of the form
// {datetime, zoneKey, capacity: {mode: value}, source}. Null modes are skipped.
func ObservationsFromRecord(r domain.Record) ([]Observation, error) {
	dt, err := r.Datetime()
	if err != nil {
		return nil, err
	}
	source, _ := r[domain.FieldSource].(string)
	if source == "" {
		return nil, ErrMissingSource
	}
	raw, ok := r[domain.FieldCapacity]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrMalformedRecord, domain.FieldCapacity)
	}
	values, err := capacityValues(raw)
	if err != nil {
		return nil, err
	}

	var (
		out  []Observation
		errs []error
	)
	for _, mode := range slices.Sorted(maps.Keys(values)) {
		v := values[mode]
		if v == nil {
			continue
		}
		switch {
		case !ValidMode(mode):
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownMode, mode))
		case *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0):
			errs = append(errs, fmt.Errorf("%w: %s=%g", ErrInvalidValue, mode, *v))
		default:
			out = append(out, Observation{Mode: mode, Datetime: dt, Value: *v, Source: source})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func capacityValues(raw any) (map[string]*float64, error) {
	out := make(map[string]*float64)
	switch m := raw.(type) {
	case map[string]float64:
		for k, v := range m {
			out[k] = &v
		}
	case map[string]any:
		for k, item := range m {
			switch n := item.(type) {
			case nil:
				out[k] = nil
			case float64:
				out[k] = &n
			case int:
				f := float64(n)
				out[k] = &f
			default:
				return nil, fmt.Errorf("%w: capacity.%s of type %T", domain.ErrMalformedRecord, k, item)
			}
		}
	default:
		return nil, fmt.Errorf("%w: capacity of type %T", domain.ErrMalformedRecord, raw)
	}
	return out, nil
}
