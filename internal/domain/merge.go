package domain

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/zone"
)

type breakdownKey struct {
	zone zone.Key
	at   int64
}

func keyOf(ev ProductionBreakdown) breakdownKey {
	return breakdownKey{zone: ev.ZoneKey, at: ev.Datetime.UnixNano()}
}

// MergeProductionBreakdowns combines two lists point by point on (zone,
// datetime). Absent modes on one side are filled from the other; when both
// sides carry a different value the newer list wins and a warning is logged.
// With matchingOnly, points present in only one list are dropped.
//
// The result keeps the order of older, followed by the points only newer has.
func MergeProductionBreakdowns(logger *slog.Logger, older, newer *ProductionBreakdownList, matchingOnly bool) *ProductionBreakdownList {
	out := &ProductionBreakdownList{eventList[ProductionBreakdown]{
		kind:   KindProductionBreakdown,
		logger: logger,
		zones:  older.zones,
	}}

	byKey := make(map[breakdownKey]ProductionBreakdown, newer.Len())
	for _, ev := range newer.events {
		byKey[keyOf(ev)] = ev
	}

	used := make(map[breakdownKey]bool, len(byKey))
	for _, ev := range older.events {
		k := keyOf(ev)
		match, ok := byKey[k]
		if !ok {
			if !matchingOnly {
				out.events = append(out.events, ev)
			}
			continue
		}
		used[k] = true
		out.events = append(out.events, mergeBreakdown(logger, ev, match))
	}
	if matchingOnly {
		return out
	}
	for _, ev := range newer.events {
		if !used[keyOf(ev)] {
			out.events = append(out.events, ev)
		}
	}
	return out
}

func mergeBreakdown(logger *slog.Logger, older, newer ProductionBreakdown) ProductionBreakdown {
	merged := ProductionBreakdown{
		ZoneKey:    newer.ZoneKey,
		Production: older.Production.Clone(),
		Storage:    older.Storage.Clone(),
		Capacity:   maps.Clone(older.Capacity),
		Meta: Meta{
			Datetime:   newer.Datetime,
			Source:     joinSources(older.Source, newer.Source),
			SourceType: newer.SourceType,
		},
	}

	for _, mode := range newer.Production.Modes() {
		v, _ := newer.Production.Get(mode)
		if cur, ok := merged.Production.Get(mode); ok && cur != v {
			warnConflict(logger, newer.ZoneKey, newer.Datetime, string(mode), cur, v)
		}
		merged.Production.Set(mode, v)
	}
	for _, mode := range newer.Production.CorrectedModes() {
		merged.Production.markCorrected(mode)
	}

	for _, mode := range newer.Storage.Modes() {
		v, _ := newer.Storage.Get(mode)
		if cur, ok := merged.Storage.Get(mode); ok && cur != v {
			warnConflict(logger, newer.ZoneKey, newer.Datetime, "storage."+string(mode), cur, v)
		}
		merged.Storage.Set(mode, v)
	}

	if len(newer.Capacity) > 0 && merged.Capacity == nil {
		merged.Capacity = make(map[string]float64, len(newer.Capacity))
	}
	maps.Copy(merged.Capacity, newer.Capacity)
	return merged
}

func warnConflict(logger *slog.Logger, key zone.Key, at time.Time, mode string, older, newer float64) {
	logger.Warn("conflicting values while merging breakdowns, keeping newer",
		"zone_key", key,
		"datetime", at,
		"mode", mode,
		"older", older,
		"newer", newer,
	)
}

// joinSources returns the distinct comma-separated sources of both sides in order.
func joinSources(a, b string) string {
	var parts []string
	for _, s := range []string{a, b} {
		for _, p := range strings.Split(s, ",") {
			p = strings.TrimSpace(p)
			if p != "" && !slices.Contains(parts, p) {
				parts = append(parts, p)
			}
		}
	}
	return strings.Join(parts, ", ")
}
