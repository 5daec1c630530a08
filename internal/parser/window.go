package parser

import "time"

// Windows returns the targets covering [start, end] at the given frequency.
// Targets are aligned to freq in UTC; the first is the window containing start.
func Windows(start, end time.Time, freq time.Duration) []time.Time {
	if freq <= 0 || end.Before(start) {
		return nil
	}
	var out []time.Time
	for w := start.UTC().Truncate(freq); !w.After(end); w = w.Add(freq) {
		out = append(out, w)
	}
	return out
}

// Plan returns the target datetimes to call an adapter with. A nil element
// means "latest".
//
//   - neither target nor range: one call for the latest data
//   - target: one call at target
//   - range with a refetch frequency: one call per window
//   - range without one: a single call for the latest data
func Plan(meta Metadata, target *time.Time, start, end *time.Time) []*time.Time {
	switch {
	case target != nil:
		t := *target
		return []*time.Time{&t}
	case start != nil && end != nil && meta.RefetchFrequency > 0:
		windows := Windows(*start, *end, meta.RefetchFrequency)
		out := make([]*time.Time, len(windows))
		for i := range windows {
			out[i] = &windows[i]
		}
		return out
	default:
		return []*time.Time{nil}
	}
}
