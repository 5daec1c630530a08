package capacity

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// Resolver answers capacity queries against a zone configuration. Parent
// zones without their own capacity section get the aggregate of their
// sub-zones, computed once at construction.
type Resolver struct {
	sections map[zone.Key]Section
}

// NewResolver prepares the capacity section of every zone in cfg.
func NewResolver(logger *slog.Logger, cfg *zone.Config) *Resolver {
	r := &Resolver{sections: make(map[zone.Key]Section)}
	for _, k := range cfg.ZoneKeys() {
		r.section(logger, cfg, k)
	}
	return r
}

func (r *Resolver) section(logger *slog.Logger, cfg *zone.Config, k zone.Key) Section {
	if s, ok := r.sections[k]; ok {
		return s
	}
	rec, _ := cfg.Zone(k)
	s := Section(rec.Capacity)
	if len(s) == 0 && rec.IsParent() {
		subs := make(map[zone.Key]Section, len(rec.SubZoneNames))
		for _, sub := range rec.SubZoneNames {
			subs[sub] = r.section(logger, cfg, sub)
		}
		s = Aggregate(logger.With("zone_key", k), subs)
	}
	r.sections[k] = s
	return s
}

// Section returns the (possibly aggregated) capacity section of k.
func (r *Resolver) Section(k zone.Key) (Section, error) {
	s, ok := r.sections[k]
	if !ok {
		return nil, fmt.Errorf("capacity: %w: %q", domain.ErrUnknownZone, k)
	}
	return s.Clone(), nil
}

// At resolves the capacity of k at dt with provenance.
func (r *Resolver) At(k zone.Key, dt time.Time) (map[string]*Value, error) {
	s, err := r.Section(k)
	if err != nil {
		return nil, err
	}
	return ResolveWithSource(s, dt), nil
}
