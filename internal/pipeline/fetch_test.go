package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/adapter/httpclient"
	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/logtest"
	"github.com/couchcryptid/grid-ingest/internal/observability"
	"github.com/couchcryptid/grid-ingest/internal/parser"
	"github.com/couchcryptid/grid-ingest/internal/pipeline"
	"github.com/couchcryptid/grid-ingest/internal/zone"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fetchNow = time.Date(2023, time.January, 3, 0, 0, 0, 0, time.UTC)

func freeze(t *testing.T) clockwork.Clock {
	t.Helper()
	clock := clockwork.NewFakeClockAt(fetchNow)
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })
	return clock
}

func productionRecord(dt string, production map[string]any) domain.Record {
	return domain.Record{
		"datetime":   dt,
		"zoneKey":    "FR",
		"production": production,
		"source":     "test",
	}
}

type fetchFixture struct {
	fetcher *pipeline.Fetcher
	metrics *observability.Metrics
	logs    *logtest.Recorder
	targets []*time.Time
}

// newFetchFixture binds production for FR and exchange for AT->DE and DE->FR
// against the zone fixture.
func newFetchFixture(t *testing.T, production parser.ZoneFunc, exchange parser.ExchangeFunc, opts ...parser.Option) *fetchFixture {
	t.Helper()
	cfg, err := zone.Load("../zone/testdata/config")
	require.NoError(t, err)

	fx := &fetchFixture{metrics: observability.NewMetricsForTesting()}
	recording := func(ctx context.Context, k zone.Key, s *http.Client, target *time.Time, l *slog.Logger) ([]domain.Record, error) {
		fx.targets = append(fx.targets, target)
		return production(ctx, k, s, target, l)
	}

	catalog := parser.NewCatalog()
	require.NoError(t, catalog.Register(parser.RootParsers, "CONSTANT.fetch_production", parser.Zone(recording, opts...)))
	require.NoError(t, catalog.Register(parser.RootParsers, "ENTSOE.fetch_exchange", parser.Exchange(exchange)))
	registry, err := parser.Build(cfg, catalog)
	require.NoError(t, err)

	var logger *slog.Logger
	logger, fx.logs = logtest.New()
	fx.fetcher, err = pipeline.NewFetcher(registry, cfg, httpclient.New(time.Second, ""), true, freeze(t), logger, fx.metrics)
	require.NoError(t, err)
	return fx
}

func noExchange(context.Context, zone.Key, zone.Key, *http.Client, *time.Time, *slog.Logger) ([]domain.Record, error) {
	return nil, nil
}

func TestFetcher_ProductionQualityGates(t *testing.T) {
	production := func(context.Context, zone.Key, *http.Client, *time.Time, *slog.Logger) ([]domain.Record, error) {
		return []domain.Record{
			productionRecord("2023-01-01T00:00:00Z", map[string]any{"nuclear": 40000.0, "hydro": 5000.0}),
			productionRecord("2023-01-01T01:00:00Z", map[string]any{"gas": 20000.0}),
			productionRecord("2023-01-01T02:00:00", map[string]any{"nuclear": 40000.0}),
			productionRecord("2023-01-01T03:00:00Z", map[string]any{"nuclear": 60000.0}),
		}, nil
	}
	fx := newFetchFixture(t, production, noExchange)

	target := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	records, err := fx.fetcher.Fetch(context.Background(), pipeline.Request{
		Kind: parser.KindProduction, Key: "FR", TargetDatetime: &target,
	})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "FR", records[0].Key())
	dt, ok := records[0]["datetime"].(time.Time)
	require.True(t, ok)
	assert.True(t, target.Equal(dt))

	require.Len(t, fx.targets, 1)
	assert.Equal(t, target, *fx.targets[0])

	// missing required mode, naive datetime, nuclear step change
	assert.InDelta(t, 3, testutil.ToFloat64(fx.metrics.RecordsDropped.WithLabelValues("production")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.AdapterCalls.WithLabelValues("production", "success")), 0)
	assert.Equal(t, 2, fx.logs.Count(slog.LevelError))
	assert.Equal(t, 1, fx.logs.Count(slog.LevelWarn))
}

func TestFetcher_BackfillWindows(t *testing.T) {
	failOn := time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC)
	production := func(_ context.Context, _ zone.Key, _ *http.Client, target *time.Time, _ *slog.Logger) ([]domain.Record, error) {
		if target != nil && target.Equal(failOn) {
			return nil, fmt.Errorf("%w: status 503", parser.ErrUpstreamFailure)
		}
		return []domain.Record{
			productionRecord(target.Format(time.RFC3339), map[string]any{"nuclear": 40000.0}),
		}, nil
	}
	fx := newFetchFixture(t, production, noExchange, parser.WithRefetchFrequency(24*time.Hour))

	start := time.Date(2023, time.January, 1, 5, 0, 0, 0, time.UTC)
	end := time.Date(2023, time.January, 2, 5, 0, 0, 0, time.UTC)
	records, err := fx.fetcher.Fetch(context.Background(), pipeline.Request{
		Kind: parser.KindProduction, Key: "FR", Start: &start, End: &end,
	})

	require.ErrorIs(t, err, parser.ErrUpstreamFailure)
	require.Len(t, records, 1)
	require.Len(t, fx.targets, 2)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), *fx.targets[0])
	assert.Equal(t, failOn, *fx.targets[1])
	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.AdapterCalls.WithLabelValues("production", "error")), 0)
	assert.Contains(t, fx.logs.Messages(slog.LevelError), "adapter window failed")
}

func TestFetcher_ExchangeCapacity(t *testing.T) {
	exchange := func(_ context.Context, a, b zone.Key, _ *http.Client, _ *time.Time, _ *slog.Logger) ([]domain.Record, error) {
		key := string(zone.NewExchangeKey(a, b))
		return []domain.Record{
			{"datetime": "2023-01-01T00:00:00Z", "sortedZoneKeys": key, "netFlow": 1000.0, "source": "entsoe"},
			{"datetime": "2023-01-01T01:00:00Z", "sortedZoneKeys": key, "netFlow": 6000.0, "source": "entsoe"},
		}, nil
	}
	fx := newFetchFixture(t, func(context.Context, zone.Key, *http.Client, *time.Time, *slog.Logger) ([]domain.Record, error) {
		return nil, nil
	}, exchange)

	records, err := fx.fetcher.Fetch(context.Background(), pipeline.Request{Kind: parser.KindExchange, Key: "AT->DE"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 1000.0, records[0]["netFlow"], 0)
	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.RecordsDropped.WithLabelValues("exchange")), 0)
}

func TestFetcher_NoParser(t *testing.T) {
	fx := newFetchFixture(t, nil, noExchange)

	_, err := fx.fetcher.Fetch(context.Background(), pipeline.Request{Kind: parser.KindConsumption, Key: "FR"})
	assert.ErrorIs(t, err, parser.ErrNoParser)
}

func TestFetcher_ProxyWithoutTemplate(t *testing.T) {
	called := false
	production := func(context.Context, zone.Key, *http.Client, *time.Time, *slog.Logger) ([]domain.Record, error) {
		called = true
		return nil, nil
	}
	fx := newFetchFixture(t, production, noExchange, parser.WithProxy("FR"))

	_, err := fx.fetcher.Fetch(context.Background(), pipeline.Request{Kind: parser.KindProduction, Key: "FR"})
	require.ErrorIs(t, err, parser.ErrUpstreamFailure)
	assert.ErrorIs(t, err, httpclient.ErrNoProxy)
	assert.False(t, called)
}

func TestFetcher_CapacityObservations(t *testing.T) {
	cfg, err := zone.New(
		[]zone.Record{{Key: "FR", Timezone: "Europe/Paris", Parsers: map[string]string{"productionCapacity": "RTE.fetch_capacity"}}},
		nil,
		zone.Defaults{},
	)
	require.NoError(t, err)

	catalog := parser.NewCatalog()
	catalog.MustRegister(parser.RootCapacity, "RTE.fetch_capacity", parser.Zone(
		func(context.Context, zone.Key, *http.Client, *time.Time, *slog.Logger) ([]domain.Record, error) {
			return []domain.Record{
				{"datetime": "2023-01-01T00:00:00Z", "zoneKey": "FR", "capacity": map[string]any{"solar": 17000.0}, "source": "rte"},
				{"datetime": "2023-01-01T00:00:00Z", "zoneKey": "FR", "capacity": map[string]any{"fusion": 1.0}, "source": "rte"},
				{"datetime": "2023-01-01T00:00:00Z", "zoneKey": "ES", "capacity": map[string]any{"solar": 1.0}, "source": "ree"},
			}, nil
		}))
	registry, err := parser.Build(cfg, catalog)
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	fetcher, err := pipeline.NewFetcher(registry, cfg, httpclient.New(time.Second, ""), true, freeze(t), logtest.Discard(), metrics)
	require.NoError(t, err)

	records, err := fetcher.Fetch(context.Background(), pipeline.Request{Kind: parser.KindProductionCapacity, Key: "FR"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rte", records[0]["source"])
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RecordsDropped.WithLabelValues("productionCapacity")), 0)
}

func TestNewFetcher_InvalidValidationRules(t *testing.T) {
	cfg, err := zone.New(
		[]zone.Record{{Key: "FR", Timezone: "Europe/Paris", Validation: &zone.ValidationRules{Required: []string{"fusion"}}}},
		nil,
		zone.Defaults{},
	)
	require.NoError(t, err)
	registry, err := parser.Build(cfg, parser.NewCatalog())
	require.NoError(t, err)

	_, err = pipeline.NewFetcher(registry, cfg, httpclient.New(time.Second, ""), true, clockwork.NewFakeClock(), logtest.Discard(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.True(t, errors.Is(err, zone.ErrConfigLoad))
}
