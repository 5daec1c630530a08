package capacity

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/dated"
	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// Aggregate derives a parent's capacity section by summing its sub-zones per
// mode. A sub-zone without the mode does not take part in it.
//
// When every participant is timeless the sum is a scalar. Dated participants
// are summed at each datetime they all share; datetimes missing from some
// participant are skipped with a warning. A mode mixing timeless and dated
// participants is skipped with a warning. Sources are the distinct sub-zone
// sources joined with ",".
func Aggregate(logger *slog.Logger, subZones map[zone.Key]Section) Section {
	keys := slices.Sorted(maps.Keys(subZones))
	modes := make(map[string]struct{})
	for _, k := range keys {
		for mode := range subZones[k] {
			modes[mode] = struct{}{}
		}
	}

	out := make(Section)
	for _, mode := range slices.Sorted(maps.Keys(modes)) {
		var participants []dated.Entry
		for _, k := range keys {
			if e, ok := subZones[k][mode]; ok && !e.IsZero() {
				participants = append(participants, e)
			}
		}
		if entry, ok := aggregateMode(logger, mode, participants); ok {
			out[mode] = entry
		}
	}
	return out
}

func aggregateMode(logger *slog.Logger, mode string, participants []dated.Entry) (dated.Entry, bool) {
	timeless := 0
	for _, e := range participants {
		if isTimeless(e) {
			timeless++
		}
	}

	switch {
	case len(participants) == 0:
		return dated.Entry{}, false
	case timeless == len(participants):
		var sum float64
		for _, e := range participants {
			v, _ := e.Value(time.Time{})
			sum += v
		}
		return dated.Scalar(sum), true
	case timeless > 0:
		logger.Warn("skipping capacity mode mixing timeless and dated sub-zone entries", "mode", mode)
		return dated.Entry{}, false
	}

	counts := make(map[int64]int)
	var all []time.Time
	for _, e := range participants {
		for _, dt := range e.Datetimes() {
			if counts[dt.UnixNano()] == 0 {
				all = append(all, dt)
			}
			counts[dt.UnixNano()]++
		}
	}
	slices.SortFunc(all, time.Time.Compare)

	var records []dated.Record
	for _, dt := range all {
		if counts[dt.UnixNano()] != len(participants) {
			logger.Warn("skipping capacity datetime not shared by every sub-zone",
				"mode", mode,
				"datetime", dt,
			)
			continue
		}
		var (
			sum     float64
			sources []string
		)
		for _, e := range participants {
			r, _ := e.RecordAt(dt)
			sum += r.Value
			for _, s := range strings.Split(r.Source, ",") {
				if s = strings.TrimSpace(s); s != "" && !slices.Contains(sources, s) {
					sources = append(sources, s)
				}
			}
		}
		records = append(records, dated.Record{Datetime: dt, Value: sum, Source: strings.Join(sources, ",")})
	}
	if len(records) == 0 {
		return dated.Entry{}, false
	}
	return dated.List(records...), true
}

func isTimeless(e dated.Entry) bool {
	if e.Shape() == dated.ShapeScalar {
		return true
	}
	return len(e.Datetimes()) == 0
}
