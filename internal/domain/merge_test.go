package domain

import (
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/logtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakdowns(t *testing.T, source string, points map[time.Time]map[string]float64, order ...time.Time) *ProductionBreakdownList {
	t.Helper()
	l := NewProductionBreakdownList(logtest.Discard(), testZones)
	for _, at := range order {
		require.True(t, l.Append(ProductionBreakdownInput{
			ZoneKey:    "DE",
			Production: mixOf(t, points[at]),
			Meta:       Meta{Datetime: at, Source: source},
		}))
	}
	return l
}

func TestMergeProductionBreakdowns(t *testing.T) {
	h0 := jan2023
	h1 := h0.Add(time.Hour)
	h2 := h0.Add(2 * time.Hour)

	older := breakdowns(t, "entsoe.eu", map[time.Time]map[string]float64{
		h0: {"wind": 10, "solar": 0},
		h1: {"wind": 12},
	}, h0, h1)
	newer := breakdowns(t, "smard.de", map[time.Time]map[string]float64{
		h1: {"wind": 15, "gas": 4},
		h2: {"wind": 9},
	}, h1, h2)

	t.Run("keeps all points", func(t *testing.T) {
		logger, rec := logtest.New()
		merged := MergeProductionBreakdowns(logger, older, newer, false)

		events := merged.Events()
		require.Len(t, events, 3)
		assert.True(t, events[0].Datetime.Equal(h0))
		assert.True(t, events[1].Datetime.Equal(h1))
		assert.True(t, events[2].Datetime.Equal(h2))

		assert.Equal(t, map[string]float64{"wind": 15, "gas": 4}, events[1].Production.Map())
		assert.Equal(t, "entsoe.eu, smard.de", events[1].Source)
		assert.Equal(t, 1, rec.Count(slog.LevelWarn))
	})

	t.Run("matching timestamps only", func(t *testing.T) {
		merged := MergeProductionBreakdowns(logtest.Discard(), older, newer, true)
		events := merged.Events()
		require.Len(t, events, 1)
		assert.True(t, events[0].Datetime.Equal(h1))
	})

	t.Run("fills absent modes from either side", func(t *testing.T) {
		a := breakdowns(t, "a", map[time.Time]map[string]float64{h0: {"coal": 100}}, h0)
		b := breakdowns(t, "b", map[time.Time]map[string]float64{h0: {"nuclear": 300}}, h0)
		logger, rec := logtest.New()

		merged := MergeProductionBreakdowns(logger, a, b, true)
		require.Equal(t, 1, merged.Len())
		assert.Equal(t, map[string]float64{"coal": 100, "nuclear": 300}, merged.Events()[0].Production.Map())
		assert.Zero(t, rec.Count(slog.LevelWarn))
	})

	t.Run("matches across time zones", func(t *testing.T) {
		cet := time.FixedZone("CET", 3600)
		a := breakdowns(t, "a", map[time.Time]map[string]float64{h0: {"coal": 1}}, h0)
		b := breakdowns(t, "a", map[time.Time]map[string]float64{h0.In(cet): {"gas": 2}}, h0.In(cet))

		merged := MergeProductionBreakdowns(logtest.Discard(), a, b, true)
		assert.Equal(t, 1, merged.Len())
	})

	t.Run("corrected modes are unioned", func(t *testing.T) {
		a := NewProductionBreakdownList(logtest.Discard(), testZones)
		require.True(t, a.Append(ProductionBreakdownInput{ZoneKey: "DE", Production: mixOf(t, map[string]float64{"wind": 1, "solar": -1}), Meta: Meta{Datetime: h0}}))
		b := NewProductionBreakdownList(logtest.Discard(), testZones)
		require.True(t, b.Append(ProductionBreakdownInput{ZoneKey: "DE", Production: mixOf(t, map[string]float64{"wind": 1, "hydro": -1}), Meta: Meta{Datetime: h0}}))

		merged := MergeProductionBreakdowns(logtest.Discard(), a, b, false)
		assert.Equal(t, []Mode{Hydro, Solar}, merged.Events()[0].Production.CorrectedModes())
	})

	t.Run("merging with itself is stable", func(t *testing.T) {
		logger, rec := logtest.New()
		merged := MergeProductionBreakdowns(logger, older, older, false)

		want := older.Events()
		got := merged.Events()
		require.Len(t, got, len(want))
		for i := range want {
			assert.True(t, want[i].Equal(got[i]), "point %d", i)
		}
		assert.Zero(t, rec.Count(slog.LevelWarn))
	})
}
