package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/capacity"
	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/observability"
	"github.com/couchcryptid/grid-ingest/internal/parser"
	"github.com/couchcryptid/grid-ingest/internal/quality"
	"github.com/couchcryptid/grid-ingest/internal/zone"
	"github.com/jonboulle/clockwork"
)

// Sessions hands out the HTTP client an adapter call runs with.
type Sessions interface {
	Session(country string) (*http.Client, error)
}

// Fetcher runs one fetch request end to end: registry lookup, window
// planning, adapter invocation and normalization into canonical records.
type Fetcher struct {
	registry *parser.Registry
	zones    *zone.Config
	sessions Sessions
	rules    map[zone.Key]quality.ProductionRules
	fallback quality.ProductionRules
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewFetcher precomputes the production rules of every zone. rejectAllZeros
// applies to zones whose validation block does not set it.
func NewFetcher(registry *parser.Registry, zones *zone.Config, sessions Sessions, rejectAllZeros bool, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Fetcher, error) {
	f := &Fetcher{
		registry: registry,
		zones:    zones,
		sessions: sessions,
		rules:    make(map[zone.Key]quality.ProductionRules),
		fallback: quality.ProductionRules{RejectAllZeros: rejectAllZeros},
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}

	var errs []error
	for _, k := range zones.ZoneKeys() {
		rec, _ := zones.Zone(k)
		rules, err := quality.RulesFromZone(rec.Validation, rejectAllZeros)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: zones/%s: validation: %w", zone.ErrConfigLoad, k, err))
			continue
		}
		f.rules[k] = rules
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return f, nil
}

// Fetch invokes the adapter bound to (req.Kind, req.Key) once per planned
// window and returns the surviving canonical records. A failed window does not
// stop the others: records gathered so far are returned with the joined error.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]domain.Record, error) {
	entry, err := f.registry.Lookup(req.Kind, req.Key)
	if err != nil {
		return nil, err
	}
	meta := entry.Metadata()

	session, err := f.sessions.Session(meta.UseProxy)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", parser.ErrUpstreamFailure, entry.ID, err)
	}

	logger := f.logger.With("kind", req.Kind, "zone_key", req.Key, "parser", entry.ID)

	var raw []domain.Record
	var errs []error
	for _, target := range parser.Plan(meta, req.TargetDatetime, req.Start, req.End) {
		records, err := f.call(ctx, entry, session, target, logger)
		if err != nil {
			logger.Error("adapter window failed", "error", err, "target_datetime", formatTarget(target))
			errs = append(errs, fmt.Errorf("window %s: %w", formatTarget(target), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		raw = append(raw, records...)
	}

	out := f.normalize(req.Kind, raw, logger)
	if dropped := len(raw) - len(out); dropped > 0 {
		f.metrics.RecordsDropped.WithLabelValues(string(req.Kind)).Add(float64(dropped))
	}
	return out, errors.Join(errs...)
}

func (f *Fetcher) call(ctx context.Context, entry parser.Entry, session *http.Client, target *time.Time, logger *slog.Logger) ([]domain.Record, error) {
	start := f.clock.Now()
	records, err := entry.Call(ctx, session, target, logger)
	f.metrics.AdapterDuration.WithLabelValues(string(entry.Kind)).Observe(f.clock.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.metrics.AdapterCalls.WithLabelValues(string(entry.Kind), outcome).Inc()
	return records, err
}

// normalize validates raw adapter output and applies the plausibility gates
// for the kind. Rejected records are logged and dropped.
func (f *Fetcher) normalize(kind parser.Kind, raw []domain.Record, logger *slog.Logger) []domain.Record {
	evKind, ok := kind.EventKind()
	if !ok {
		return f.capacityRecords(raw, logger)
	}

	now := f.clock.Now()
	valid := make([]domain.Record, 0, len(raw))
	for _, r := range raw {
		if err := quality.ValidateRecord(evKind, r, now); err != nil {
			logger.Error("dropping invalid record", "error", err, "datetime", r[domain.FieldDatetime])
			continue
		}
		valid = append(valid, r)
	}

	switch evKind {
	case domain.KindExchange:
		list := domain.NewExchangeList(logger, f.zones)
		for _, r := range valid {
			list.AppendRecord(r)
		}
		return domain.ToRecords(quality.FilterExchanges(logger, f.zones, list.Events()))
	case domain.KindProductionBreakdown:
		list := domain.NewProductionBreakdownList(logger, f.zones)
		for _, r := range valid {
			list.AppendRecord(r)
		}
		return domain.ToRecords(quality.FilterProduction(logger, f.rulesFor, list.Events()))
	default:
		list, err := domain.NewList(evKind, logger, f.zones)
		if err != nil {
			logger.Error("no event list for kind", "error", err)
			return nil
		}
		for _, r := range valid {
			list.AppendRecord(r)
		}
		return list.ToList()
	}
}

// capacityRecords keeps capacity observations that parse and name a known zone.
func (f *Fetcher) capacityRecords(raw []domain.Record, logger *slog.Logger) []domain.Record {
	out := make([]domain.Record, 0, len(raw))
	for _, r := range raw {
		if k := zone.Key(r.Key()); !f.zones.HasZone(k) {
			logger.Error("dropping capacity record", "error", fmt.Errorf("%w: %q", domain.ErrUnknownZone, k))
			continue
		}
		if _, err := capacity.ObservationsFromRecord(r); err != nil {
			logger.Error("dropping capacity record", "error", err, "datetime", r[domain.FieldDatetime])
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f *Fetcher) rulesFor(k zone.Key) quality.ProductionRules {
	if r, ok := f.rules[k]; ok {
		return r
	}
	return f.fallback
}

func formatTarget(t *time.Time) string {
	if t == nil {
		return "latest"
	}
	return t.UTC().Format(time.RFC3339)
}
