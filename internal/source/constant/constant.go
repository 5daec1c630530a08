// Package constant implements the CONSTANT source: an estimated production
// breakdown equal to the zone's installed capacity per production mode.
package constant

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/capacity"
	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/parser"
	"github.com/couchcryptid/grid-ingest/internal/zone"
	"github.com/jonboulle/clockwork"
)

// ProductionID is the identifier zones use to select this adapter.
const ProductionID = "CONSTANT.fetch_production"

const (
	source = "constant"
	step   = time.Hour
	span   = 24 * time.Hour
)

// Capacities resolves a zone's capacity section. *capacity.Resolver implements it.
type Capacities interface {
	Section(zone.Key) (capacity.Section, error)
}

// Source serves production breakdowns from configured capacity.
type Source struct {
	capacities Capacities
	clock      clockwork.Clock
}

// New returns a source reading capacity from capacities.
func New(capacities Capacities, clock clockwork.Clock) *Source {
	return &Source{capacities: capacities, clock: clock}
}

// Register adds the source's adapters to catalog.
func (s *Source) Register(catalog *parser.Catalog) error {
	return catalog.Register(parser.RootParsers, ProductionID,
		parser.Zone(s.FetchProduction, parser.WithRefetchFrequency(span)))
}

// FetchProduction returns one hourly sample per hour of the UTC day containing
// target, or of the 24 hours up to now when target is nil.
func (s *Source) FetchProduction(ctx context.Context, key zone.Key, _ *http.Client, target *time.Time, logger *slog.Logger) ([]domain.Record, error) {
	section, err := s.capacities.Section(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", parser.ErrUpstreamFailure, err)
	}
	modes := productionModes(section)
	if len(modes) == 0 {
		return nil, fmt.Errorf("%w: zone %s has no production capacity", parser.ErrUpstreamFailure, key)
	}

	var start time.Time
	if target == nil {
		start = s.clock.Now().UTC().Truncate(step).Add(-span + step)
	} else {
		start = target.UTC().Truncate(span)
	}

	records := make([]domain.Record, 0, int(span/step))
	for at := start; at.Before(start.Add(span)); at = at.Add(step) {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		production := make(map[string]float64, len(modes))
		for _, mode := range modes {
			if v, ok := section[mode].Value(at); ok {
				production[mode] = v
			}
		}
		if len(production) == 0 {
			continue
		}
		records = append(records, domain.Record{
			domain.FieldDatetime:   at,
			domain.FieldZoneKey:    string(key),
			domain.FieldProduction: production,
			domain.FieldSource:     source,
			domain.FieldSourceType: string(domain.Estimated),
		})
	}
	logger.Debug("constant production generated", "zone_key", key, "samples", len(records))
	return records, nil
}

func productionModes(section capacity.Section) []string {
	var out []string
	for _, name := range slices.Sorted(maps.Keys(section)) {
		if domain.Mode(name).Valid() {
			out = append(out, name)
		}
	}
	return out
}
