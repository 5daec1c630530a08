package emission

import (
	"fmt"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/dated"
	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// Store is the read-only view of the parameter tables. *zone.Config implements it.
type Store interface {
	Zone(zone.Key) (zone.Record, bool)
	Parent(zone.Key) (zone.Key, bool)
	Defaults() zone.Defaults
}

// Resolver resolves factors and classifications against a Store.
type Resolver struct {
	store Store
}

// NewResolver returns a resolver over store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the lifecycle emission factor of mode in zone k at dt.
func (r *Resolver) Resolve(k zone.Key, mode string, dt time.Time) (Factor, error) {
	return r.ResolveType(k, Lifecycle, mode, dt)
}

// ResolveType returns the emission factor from the given table.
func (r *Resolver) ResolveType(k zone.Key, typ Type, mode string, dt time.Time) (Factor, error) {
	return r.lookup(k, mode, dt, string(typ), func(t tables) map[string]dated.Entry {
		return t.factors[typ]
	})
}

// IsLowCarbon returns 1 when mode counts as low-carbon in zone k at dt, else 0.
func (r *Resolver) IsLowCarbon(k zone.Key, mode string, dt time.Time) (Factor, error) {
	return r.lookup(k, mode, dt, "isLowCarbon", func(t tables) map[string]dated.Entry {
		return t.lowCarbon
	})
}

// IsRenewable returns 1 when mode counts as renewable in zone k at dt, else 0.
func (r *Resolver) IsRenewable(k zone.Key, mode string, dt time.Time) (Factor, error) {
	return r.lookup(k, mode, dt, "isRenewable", func(t tables) map[string]dated.Entry {
		return t.renewable
	})
}

type tables struct {
	factors   map[Type]map[string]dated.Entry
	lowCarbon map[string]dated.Entry
	renewable map[string]dated.Entry
}

func zoneTables(rec zone.Record) tables {
	return tables{
		factors:   factorTables(rec.EmissionFactors),
		lowCarbon: rec.IsLowCarbon,
		renewable: rec.IsRenewable,
	}
}

func defaultTables(d zone.Defaults) tables {
	return tables{
		factors:   factorTables(d.EmissionFactors),
		lowCarbon: d.IsLowCarbon,
		renewable: d.IsRenewable,
	}
}

func factorTables(ft zone.FactorTable) map[Type]map[string]dated.Entry {
	out := make(map[Type]map[string]dated.Entry, len(ft))
	for name, modes := range ft {
		out[Type(name)] = modes
	}
	return out
}

func (r *Resolver) lookup(k zone.Key, mode string, dt time.Time, table string, pick func(tables) map[string]dated.Entry) (Factor, error) {
	rec, ok := r.store.Zone(k)
	if !ok {
		return Factor{}, fmt.Errorf("emission: %w: %q", domain.ErrUnknownZone, k)
	}
	if !ValidMode(mode) {
		return Factor{}, fmt.Errorf("emission: %w: %q", domain.ErrUnknownMode, mode)
	}

	if e, ok := pick(zoneTables(rec))[mode]; ok {
		if f, ok := resolveEntry(e, dt, k); ok {
			return f, nil
		}
	}
	if parent, ok := r.store.Parent(k); ok {
		if prec, ok := r.store.Zone(parent); ok {
			if e, ok := pick(zoneTables(prec))[mode]; ok {
				if f, ok := resolveEntry(e, dt, parent); ok {
					return f, nil
				}
			}
		}
	}
	if e, ok := pick(defaultTables(r.store.Defaults()))[mode]; ok {
		if f, ok := resolveEntry(e, dt, ""); ok {
			return f, nil
		}
	}
	return Factor{}, fmt.Errorf("%w: %s %s for %s", ErrNoFactor, table, mode, k)
}

func resolveEntry(e dated.Entry, dt time.Time, owner zone.Key) (Factor, bool) {
	m, ok := e.At(dt)
	if !ok {
		return Factor{}, false
	}
	f := Factor{
		Value:   m.Record.Value,
		Source:  m.Record.Source,
		Variant: variantOf(m, dt, owner != ""),
		Zone:    owner,
	}
	if !m.Record.Timeless() {
		at := m.Record.Datetime
		f.Datetime = &at
	}
	return f, true
}
