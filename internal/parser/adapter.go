// Package parser routes (kind, key) requests to source adapters.
//
// Adapters are registered in a Catalog at startup under "<module>.<function>"
// identifiers. Build binds the identifiers named in zone and exchange
// configuration to catalog entries and fails on anything it cannot resolve.
// Each entry carries the adapter's Metadata: its refetch frequency, retry
// policy and proxy requirement.
package parser

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// ZoneFunc fetches data for one zone. A nil target asks for the latest data.
// The session belongs to the caller.
type ZoneFunc func(ctx context.Context, key zone.Key, session *http.Client, target *time.Time, logger *slog.Logger) ([]domain.Record, error)

// ExchangeFunc fetches data for the interconnection between a and b.
type ExchangeFunc func(ctx context.Context, a, b zone.Key, session *http.Client, target *time.Time, logger *slog.Logger) ([]domain.Record, error)

// LegacyZoneFunc is a zone adapter returning a single record.
type LegacyZoneFunc func(ctx context.Context, key zone.Key, session *http.Client, target *time.Time, logger *slog.Logger) (domain.Record, error)

// RetryPolicy bounds how an adapter call is retried.
type RetryPolicy struct {
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Metadata describes how an adapter must be called.
type Metadata struct {
	// RefetchFrequency is the backfill quantum. Zero means the adapter is only
	// called once, for the latest data.
	RefetchFrequency time.Duration
	Retry            *RetryPolicy
	// UseProxy is the ISO country code whose proxy the session must route through.
	UseProxy string
}

// Option sets adapter metadata.
type Option func(*Metadata)

// WithRefetchFrequency sets the backfill quantum.
func WithRefetchFrequency(d time.Duration) Option {
	return func(m *Metadata) { m.RefetchFrequency = d }
}

// WithRetry sets the retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(m *Metadata) { m.Retry = &p }
}

// WithProxy requires calls to go through the proxy of country.
func WithProxy(country string) Option {
	return func(m *Metadata) { m.UseProxy = country }
}

// Adapter is a callable source together with its metadata. Exactly one of the
// function fields is set.
type Adapter struct {
	zoneFn     ZoneFunc
	exchangeFn ExchangeFunc
	meta       Metadata
}

// Zone wraps a zone-scoped adapter.
func Zone(fn ZoneFunc, opts ...Option) Adapter {
	return Adapter{zoneFn: fn, meta: newMetadata(opts)}
}

// Exchange wraps an exchange-scoped adapter.
func Exchange(fn ExchangeFunc, opts ...Option) Adapter {
	return Adapter{exchangeFn: fn, meta: newMetadata(opts)}
}

// LegacyZone wraps a single-record adapter so that it returns a list.
func LegacyZone(fn LegacyZoneFunc, opts ...Option) Adapter {
	return Zone(func(ctx context.Context, key zone.Key, session *http.Client, target *time.Time, logger *slog.Logger) ([]domain.Record, error) {
		r, err := fn(ctx, key, session, target, logger)
		if err != nil || r == nil {
			return nil, err
		}
		return []domain.Record{r}, nil
	}, opts...)
}

// Metadata returns the adapter's calling metadata.
func (a Adapter) Metadata() Metadata { return a.meta }

// ExchangeScoped reports whether the adapter takes a pair of zones.
func (a Adapter) ExchangeScoped() bool { return a.exchangeFn != nil }

func newMetadata(opts []Option) Metadata {
	var m Metadata
	for _, opt := range opts {
		opt(&m)
	}
	return m
}
