package parser

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// Entry is one bound adapter.
type Entry struct {
	Kind    Kind
	Key     string
	ID      string
	Adapter Adapter
}

// Metadata returns the adapter metadata.
func (e Entry) Metadata() Metadata { return e.Adapter.meta }

type entryKey struct {
	kind Kind
	key  string
}

// Registry maps (kind, key) to the adapter configured for it. It is built
// once and read-only afterwards.
type Registry struct {
	entries map[entryKey]Entry
}

// Build binds every parser named in cfg to a catalog adapter. All failures are
// reported together, each wrapping zone.ErrConfigLoad.
func Build(cfg *zone.Config, catalog *Catalog) (*Registry, error) {
	r := &Registry{entries: make(map[entryKey]Entry)}
	var errs []error

	bind := func(owner, key string, exchange bool, parsers map[string]string) {
		for _, name := range slices.Sorted(maps.Keys(parsers)) {
			id := parsers[name]
			kind, err := ParseKind(name)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %w", zone.ErrConfigLoad, owner, err))
				continue
			}
			if kind.ExchangeScoped() != exchange {
				errs = append(errs, fmt.Errorf("%w: %s: %w: %s is not allowed here", zone.ErrConfigLoad, owner, ErrInvalidParserKind, kind))
				continue
			}
			a, ok := catalog.Lookup(kind.Root(), id)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s: %w: %s/%s", zone.ErrConfigLoad, owner, ErrUnknownParser, kind.Root(), id))
				continue
			}
			if a.ExchangeScoped() != exchange {
				errs = append(errs, fmt.Errorf("%w: %s: %s has the wrong scope for %s", zone.ErrConfigLoad, owner, id, kind))
				continue
			}
			r.entries[entryKey{kind, key}] = Entry{Kind: kind, Key: key, ID: id, Adapter: a}
		}
	}

	for _, k := range cfg.ZoneKeys() {
		rec, _ := cfg.Zone(k)
		bind("zones/"+string(k), string(k), false, rec.Parsers)
	}
	for _, k := range cfg.ExchangeKeys() {
		rec, _ := cfg.Exchange(k)
		bind("exchanges/"+string(k), string(k), true, rec.Parsers)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// Lookup returns the entry for (kind, key).
func (r *Registry) Lookup(kind Kind, key string) (Entry, error) {
	e, ok := r.entries[entryKey{kind, key}]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s for %s", ErrNoParser, kind, key)
	}
	return e, nil
}

// Entries returns every entry ordered by kind then key.
func (r *Registry) Entries() []Entry {
	out := slices.Collect(maps.Values(r.entries))
	slices.SortFunc(out, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Key, b.Key))
	})
	return out
}

// Len returns the number of bound adapters.
func (r *Registry) Len() int { return len(r.entries) }

// Call invokes the adapter, retrying according to its policy. Historical-data
// and credential errors are never retried.
func (e Entry) Call(ctx context.Context, session *http.Client, target *time.Time, logger *slog.Logger) ([]domain.Record, error) {
	policy := e.Adapter.meta.Retry
	if policy == nil || policy.Attempts <= 1 {
		return e.invoke(ctx, session, target, logger)
	}

	op := func() ([]domain.Record, error) {
		records, err := e.invoke(ctx, session, target, logger)
		if err != nil && isPermanent(err) {
			return nil, backoff.Permanent(err)
		}
		return records, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("adapter call failed, retrying",
			"error", err,
			"kind", e.Kind,
			"zone_key", e.Key,
			"parser", e.ID,
			"wait", wait,
		)
	}
	return backoff.RetryNotifyWithData[[]domain.Record](op, policy.backOff(ctx), notify)
}

func (e Entry) invoke(ctx context.Context, session *http.Client, target *time.Time, logger *slog.Logger) ([]domain.Record, error) {
	if e.Adapter.exchangeFn != nil {
		a, b, err := zone.ParseExchangeKey(e.Key)
		if err != nil {
			return nil, err
		}
		return e.Adapter.exchangeFn(ctx, a, b, session, target, logger)
	}
	return e.Adapter.zoneFn(ctx, zone.Key(e.Key), session, target, logger)
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts-1)), ctx)
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrHistoricalDataUnavailable) ||
		errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
