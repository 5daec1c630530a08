package dated

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNaiveDatetime is returned for timestamps that carry a time of day but no UTC offset.
var ErrNaiveDatetime = errors.New("datetime has no timezone offset")

var (
	dateOnly = "2006-01-02"
	naive    = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"}
)

// ParseDatetime parses a configuration timestamp. Dates without a time of day
// are UTC midnight. Timestamps with a time of day must carry an offset.
func ParseDatetime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	for _, layout := range naive {
		if _, err := time.Parse(layout, s); err == nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrNaiveDatetime, s)
		}
	}
	return time.Time{}, fmt.Errorf("parse datetime %q: unsupported format", s)
}

// FormatDatetime renders t the way ParseDatetime reads it back.
func FormatDatetime(t time.Time) string {
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format(dateOnly)
	}
	return t.Format(time.RFC3339)
}

type yamlRecord struct {
	Datetime string    `yaml:"datetime,omitempty"`
	Value    yaml.Node `yaml:"value"`
	Source   string    `yaml:"source,omitempty"`
}

// UnmarshalYAML decodes any of the three shapes.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v, err := scalarNumber(node)
		if err != nil {
			return err
		}
		*e = Scalar(v)
		return nil
	case yaml.MappingNode:
		r, err := decodeRecord(node)
		if err != nil {
			return err
		}
		*e = Single(r)
		return nil
	case yaml.SequenceNode:
		records := make([]Record, 0, len(node.Content))
		for i, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: list item %d must be a mapping", item.Line, i)
			}
			r, err := decodeRecord(item)
			if err != nil {
				return err
			}
			if r.Timeless() {
				return fmt.Errorf("line %d: list item %d has no datetime", item.Line, i)
			}
			records = append(records, r)
		}
		*e = List(records...)
		return nil
	default:
		return fmt.Errorf("line %d: unsupported value", node.Line)
	}
}

// MarshalYAML encodes the entry in its declared shape.
func (e Entry) MarshalYAML() (any, error) {
	switch e.shape {
	case ShapeScalar:
		return e.scalar, nil
	case ShapeRecord:
		return encodeRecord(e.records[0]), nil
	case ShapeList:
		out := make([]map[string]any, len(e.records))
		for i, r := range e.records {
			out[i] = encodeRecord(r)
		}
		return out, nil
	default:
		return nil, nil
	}
}

func decodeRecord(node *yaml.Node) (Record, error) {
	var raw yamlRecord
	if err := node.Decode(&raw); err != nil {
		return Record{}, err
	}
	if raw.Value.Kind == 0 {
		return Record{}, fmt.Errorf("line %d: record has no value", node.Line)
	}
	v, err := scalarNumber(&raw.Value)
	if err != nil {
		return Record{}, err
	}
	r := Record{Value: v, Source: raw.Source}
	if raw.Datetime != "" {
		dt, err := ParseDatetime(raw.Datetime)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		r.Datetime = dt
	}
	return r, nil
}

func encodeRecord(r Record) map[string]any {
	m := map[string]any{"value": r.Value}
	if !r.Timeless() {
		m["datetime"] = FormatDatetime(r.Datetime)
	}
	if r.Source != "" {
		m["source"] = r.Source
	}
	return m
}

// scalarNumber reads a numeric or boolean scalar. Booleans map to 1 and 0 so
// classification tables share the representation.
func scalarNumber(node *yaml.Node) (float64, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: value must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		v, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return 0, err
		}
		if b {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("line %d: %q is not a number", node.Line, node.Value)
	}
}
