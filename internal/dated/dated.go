// Package dated models configuration values that may change over time.
//
// A value is stored in one of three shapes:
//
//	coal: 1200                                   # scalar, legacy "current" value
//	coal: {datetime: 2022-01-01, value: 1200, source: regulator}
//	coal:                                        # list of dated records
//	  - {datetime: 2022-01-01, value: 1200, source: regulator}
//	  - {datetime: 2023-06-01, value: 1450, source: regulator}
//
// A single record is a singleton list. The record valid at a datetime dt is the
// one with the greatest datetime <= dt; when dt precedes every record, the
// oldest record applies.
package dated

import (
	"fmt"
	"slices"
	"time"
)

// Record is one observation of a value. A zero Datetime marks a timeless record.
type Record struct {
	Datetime time.Time
	Value    float64
	Source   string
}

// Timeless reports whether the record carries no datetime.
func (r Record) Timeless() bool { return r.Datetime.IsZero() }

// Shape identifies which on-disk form an Entry was declared in.
type Shape int

const (
	ShapeScalar Shape = iota + 1
	ShapeRecord
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeRecord:
		return "record"
	case ShapeList:
		return "list"
	default:
		return "empty"
	}
}

// Entry is a value in one of its three shapes. The zero Entry is empty.
type Entry struct {
	shape   Shape
	scalar  float64
	records []Record
}

// Scalar returns a legacy scalar entry.
func Scalar(v float64) Entry {
	return Entry{shape: ShapeScalar, scalar: v}
}

// Single returns a single-record entry.
func Single(r Record) Entry {
	return Entry{shape: ShapeRecord, records: []Record{r}}
}

// List returns a list entry holding a sorted copy of records.
func List(records ...Record) Entry {
	rs := slices.Clone(records)
	sortRecords(rs)
	return Entry{shape: ShapeList, records: rs}
}

// Shape reports the declared shape of the entry.
func (e Entry) Shape() Shape { return e.shape }

// IsZero reports whether the entry holds nothing.
func (e Entry) IsZero() bool { return e.shape == 0 }

// ScalarValue returns the scalar and true when the entry is a scalar.
func (e Entry) ScalarValue() (float64, bool) {
	return e.scalar, e.shape == ShapeScalar
}

// Records returns the dated records in ascending datetime order. Scalars have none.
func (e Entry) Records() []Record {
	return slices.Clone(e.records)
}

// Datetimes returns the distinct datetimes of the entry's records, ascending.
func (e Entry) Datetimes() []time.Time {
	out := make([]time.Time, 0, len(e.records))
	for _, r := range e.records {
		if r.Timeless() {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Equal(r.Datetime) {
			continue
		}
		out = append(out, r.Datetime)
	}
	return out
}

// RecordAt returns the record whose datetime equals dt exactly.
func (e Entry) RecordAt(dt time.Time) (Record, bool) {
	for _, r := range e.records {
		if r.Datetime.Equal(dt) {
			return r, true
		}
	}
	return Record{}, false
}

// Selection describes which branch of the temporal rule picked a record.
type Selection int

const (
	// SelectTimeless means the entry is a scalar or a record without datetime.
	SelectTimeless Selection = iota + 1
	// SelectPrior means the record has the greatest datetime <= dt.
	SelectPrior
	// SelectOldest means dt precedes every record and the oldest one applies.
	SelectOldest
)

// Match is the result of resolving an entry at a datetime.
type Match struct {
	Record    Record
	Selection Selection
	// Latest is true when the chosen record is the newest record of the entry.
	Latest bool
}

// At resolves the entry at dt. It returns false for an empty entry.
func (e Entry) At(dt time.Time) (Match, bool) {
	switch e.shape {
	case ShapeScalar:
		return Match{Record: Record{Value: e.scalar}, Selection: SelectTimeless, Latest: true}, true
	case ShapeRecord, ShapeList:
	default:
		return Match{}, false
	}
	if len(e.records) == 0 {
		return Match{}, false
	}
	if len(e.records) == 1 && e.records[0].Timeless() {
		return Match{Record: e.records[0], Selection: SelectTimeless, Latest: true}, true
	}

	last := len(e.records) - 1
	if dt.Before(e.records[0].Datetime) {
		return Match{Record: e.records[0], Selection: SelectOldest, Latest: last == 0}, true
	}
	idx := 0
	for i, r := range e.records {
		if r.Datetime.After(dt) {
			break
		}
		idx = i
	}
	return Match{Record: e.records[idx], Selection: SelectPrior, Latest: idx == last}, true
}

// Value resolves the entry at dt and returns only the number.
func (e Entry) Value(dt time.Time) (float64, bool) {
	m, ok := e.At(dt)
	return m.Record.Value, ok
}

// Upsert returns a copy of the entry with r folded in:
//
//   - empty or scalar: replaced by r as a single record
//   - single record with another datetime: becomes a two-element list
//   - single record with the same datetime: overwritten
//   - list: r is appended, or overwrites the element with the same datetime
func (e Entry) Upsert(r Record) Entry {
	switch e.shape {
	case ShapeRecord:
		if e.records[0].Datetime.Equal(r.Datetime) {
			return Single(r)
		}
		return List(e.records[0], r)
	case ShapeList:
		rs := slices.Clone(e.records)
		for i := range rs {
			if rs[i].Datetime.Equal(r.Datetime) {
				rs[i] = r
				return List(rs...)
			}
		}
		return List(append(rs, r)...)
	default:
		return Single(r)
	}
}

func (e Entry) String() string {
	switch e.shape {
	case ShapeScalar:
		return fmt.Sprintf("%g", e.scalar)
	case ShapeRecord, ShapeList:
		return fmt.Sprintf("%s(%d records)", e.shape, len(e.records))
	default:
		return "empty"
	}
}

func sortRecords(rs []Record) {
	slices.SortStableFunc(rs, func(a, b Record) int {
		return a.Datetime.Compare(b.Datetime)
	})
}
