package capacity

import (
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/dated"
	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/logtest"
	"github.com/couchcryptid/grid-ingest/internal/zone"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestResolve_List(t *testing.T) {
	section := Section{
		"coal": dated.List(
			dated.Record{Datetime: day(2022, 1, 1), Value: 5},
			dated.Record{Datetime: day(2023, 6, 1), Value: 8},
		),
	}

	tests := []struct {
		name string
		dt   time.Time
		want float64
	}{
		{"exact", day(2023, 6, 1), 8},
		{"between", day(2022, 6, 1), 5},
		{"before oldest", day(2021, 1, 1), 5},
		{"after latest", day(2024, 1, 1), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(section, tt.dt)
			require.NotNil(t, got["coal"])
			assert.Equal(t, tt.want, *got["coal"])
		})
	}
}

func TestResolve_Shapes(t *testing.T) {
	section := Section{
		"hydro":   dated.Scalar(25700),
		"gas":     dated.Single(dated.Record{Datetime: day(2023, 1, 1), Value: 12800, Source: "rte"}),
		"unknown": {},
	}

	got := Resolve(section, day(2020, 1, 1))
	assert.Equal(t, 25700.0, *got["hydro"])
	assert.Equal(t, 12800.0, *got["gas"])
	assert.Nil(t, got["unknown"])

	withSource := ResolveWithSource(section, day(2024, 1, 1))
	assert.Equal(t, &Value{Value: 25700}, withSource["hydro"])
	at := day(2023, 1, 1)
	assert.Equal(t, &Value{Value: 12800, Source: "rte", Datetime: &at}, withSource["gas"])
	assert.Nil(t, withSource["unknown"])
}

func TestResolve_LatestAfterAppend(t *testing.T) {
	var section Section
	for i, v := range []float64{100, 90, 120} {
		section = Update(section, Observation{Mode: "wind", Datetime: day(2020+i, 1, 1), Value: v, Source: "x"})
	}
	assert.Equal(t, 120.0, *Resolve(section, day(2022, 1, 1))["wind"])
	assert.Equal(t, 90.0, *Resolve(section, day(2021, 7, 1))["wind"])
}

func TestAggregate(t *testing.T) {
	solar := func(source string) dated.Entry {
		return dated.List(
			dated.Record{Datetime: day(2022, 1, 1), Value: 3, Source: source},
			dated.Record{Datetime: day(2023, 1, 1), Value: 4, Source: source},
		)
	}

	t.Run("dated lists", func(t *testing.T) {
		got := Aggregate(logtest.Discard(), map[zone.Key]Section{
			"X1": {"solar": solar("a")},
			"X2": {"solar": solar("b")},
		})
		want := []dated.Record{
			{Datetime: day(2022, 1, 1), Value: 6, Source: "a,b"},
			{Datetime: day(2023, 1, 1), Value: 8, Source: "a,b"},
		}
		assert.Equal(t, dated.ShapeList, got["solar"].Shape())
		if diff := cmp.Diff(want, got["solar"].Records()); diff != "" {
			t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("same source once", func(t *testing.T) {
		got := Aggregate(logtest.Discard(), map[zone.Key]Section{
			"X1": {"solar": solar("a")},
			"X2": {"solar": solar("a")},
		})
		assert.Equal(t, "a", got["solar"].Records()[0].Source)
	})

	t.Run("unshared datetime skipped", func(t *testing.T) {
		logger, rec := logtest.New()
		got := Aggregate(logger, map[zone.Key]Section{
			"X1": {"wind": dated.List(dated.Record{Datetime: day(2022, 1, 1), Value: 1}, dated.Record{Datetime: day(2023, 1, 1), Value: 2})},
			"X2": {"wind": dated.List(dated.Record{Datetime: day(2023, 1, 1), Value: 5})},
		})
		records := got["wind"].Records()
		require.Len(t, records, 1)
		assert.Equal(t, 7.0, records[0].Value)
		assert.Equal(t, 1, rec.Count(slog.LevelWarn))
	})

	t.Run("scalars sum", func(t *testing.T) {
		got := Aggregate(logtest.Discard(), map[zone.Key]Section{
			"X1": {"hydro": dated.Scalar(10)},
			"X2": {"hydro": dated.Scalar(15)},
			"X3": {"coal": dated.Scalar(1)},
		})
		v, ok := got["hydro"].ScalarValue()
		assert.True(t, ok)
		assert.Equal(t, 25.0, v)
		v, _ = got["coal"].ScalarValue()
		assert.Equal(t, 1.0, v)
	})

	t.Run("mixed shapes skipped", func(t *testing.T) {
		logger, rec := logtest.New()
		got := Aggregate(logger, map[zone.Key]Section{
			"X1": {"gas": dated.Scalar(10)},
			"X2": {"gas": solar("b")},
		})
		_, ok := got["gas"]
		assert.False(t, ok)
		assert.Equal(t, 1, rec.Count(slog.LevelWarn))
	})
}

func TestResolver(t *testing.T) {
	cfg, err := zone.Load("../zone/testdata/config")
	require.NoError(t, err)
	r := NewResolver(logtest.Discard(), cfg)

	t.Run("parent aggregates sub-zones", func(t *testing.T) {
		section, err := r.Section("DK")
		require.NoError(t, err)
		records := section["solar"].Records()
		require.Len(t, records, 2)
		assert.Equal(t, 6.0, records[0].Value)
		assert.Equal(t, 8.0, records[1].Value)
		assert.Equal(t, "energinet,dea", records[1].Source)
	})

	t.Run("zone capacity at datetime", func(t *testing.T) {
		got, err := r.At("FR", day(2023, 3, 1))
		require.NoError(t, err)
		assert.Equal(t, 61370.0, got["nuclear"].Value)
		assert.Equal(t, "rte", got["nuclear"].Source)
		assert.Equal(t, 25700.0, got["hydro"].Value)
		assert.Nil(t, got["hydro"].Datetime)
	})

	t.Run("unknown zone", func(t *testing.T) {
		_, err := r.At("XX", day(2023, 1, 1))
		assert.ErrorIs(t, err, domain.ErrUnknownZone)
	})
}

func TestUpdate(t *testing.T) {
	obs := Observation{Mode: "solar", Datetime: day(2024, 1, 1), Value: 5, Source: "new"}

	tests := []struct {
		name      string
		entry     dated.Entry
		wantShape dated.Shape
		wantLen   int
	}{
		{"absent", dated.Entry{}, dated.ShapeRecord, 1},
		{"scalar replaced", dated.Scalar(3), dated.ShapeRecord, 1},
		{"single other date", dated.Single(dated.Record{Datetime: day(2023, 1, 1), Value: 3}), dated.ShapeList, 2},
		{"single same date", dated.Single(dated.Record{Datetime: day(2024, 1, 1), Value: 3}), dated.ShapeRecord, 1},
		{"list append", dated.List(dated.Record{Datetime: day(2022, 1, 1), Value: 1}, dated.Record{Datetime: day(2023, 1, 1), Value: 2}), dated.ShapeList, 3},
		{"list overwrite", dated.List(dated.Record{Datetime: day(2022, 1, 1), Value: 1}, dated.Record{Datetime: day(2024, 1, 1), Value: 2}), dated.ShapeList, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := Section{}
			if !tt.entry.IsZero() {
				section["solar"] = tt.entry
			}
			got := Update(section, obs)
			assert.Equal(t, tt.wantShape, got["solar"].Shape())
			assert.Len(t, got["solar"].Records(), tt.wantLen)
			assert.Equal(t, 5.0, *Resolve(got, day(2024, 1, 1))["solar"])
		})
	}

	t.Run("input untouched", func(t *testing.T) {
		section := Section{"solar": dated.Scalar(3)}
		Update(section, obs)
		v, _ := section["solar"].ScalarValue()
		assert.Equal(t, 3.0, v)
	})
}

func TestApply_ReencodesYAML(t *testing.T) {
	section := Section{"hydro": dated.Scalar(100)}
	section = Apply(section, []Observation{
		{Mode: "wind", Datetime: day(2023, 1, 1), Value: 10, Source: "a"},
		{Mode: "wind", Datetime: day(2024, 1, 1), Value: 12, Source: "a"},
	})

	data, err := yaml.Marshal(map[string]dated.Entry(section))
	require.NoError(t, err)

	var back map[string]dated.Entry
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, dated.ShapeScalar, back["hydro"].Shape())
	assert.Equal(t, dated.ShapeList, back["wind"].Shape())
	assert.Equal(t, 12.0, *Resolve(back, day(2025, 1, 1))["wind"])
}

func TestObservationsFromRecord(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		obs, err := ObservationsFromRecord(domain.Record{
			"datetime": "2024-01-01T00:00:00Z",
			"zoneKey":  "FR",
			"capacity": map[string]any{"solar": 20000.0, "battery storage": 800.0, "oil": nil},
			"source":   "rte",
		})
		require.NoError(t, err)
		require.Len(t, obs, 2)
		assert.Equal(t, "battery storage", obs[0].Mode)
		assert.Equal(t, "solar", obs[1].Mode)
		assert.Equal(t, day(2024, 1, 1), obs[1].Datetime.UTC())
	})

	tests := []struct {
		name    string
		rec     domain.Record
		wantErr error
	}{
		{"unknown mode", domain.Record{"datetime": "2024-01-01T00:00:00Z", "capacity": map[string]any{"fusion": 1.0}, "source": "x"}, ErrUnknownMode},
		{"negative", domain.Record{"datetime": "2024-01-01T00:00:00Z", "capacity": map[string]float64{"solar": -1}, "source": "x"}, ErrInvalidValue},
		{"no source", domain.Record{"datetime": "2024-01-01T00:00:00Z", "capacity": map[string]float64{"solar": 1}}, ErrMissingSource},
		{"naive datetime", domain.Record{"datetime": "2024-01-01T00:00:00", "capacity": map[string]float64{"solar": 1}, "source": "x"}, domain.ErrMissingTimezone},
		{"no capacity", domain.Record{"datetime": "2024-01-01T00:00:00Z", "source": "x"}, domain.ErrMalformedRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ObservationsFromRecord(tt.rec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
