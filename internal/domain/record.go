package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/zone"
	"github.com/shopspring/decimal"
)

// Record is the canonical, loosely typed form of an event as exchanged with
// adapters and downstream consumers.
type Record map[string]any

// Wire-level field names.
const (
	FieldDatetime       = "datetime"
	FieldSource         = "source"
	FieldSourceType     = "sourceType"
	FieldZoneKey        = "zoneKey"
	FieldSortedZoneKeys = "sortedZoneKeys"
	FieldNetFlow        = "netFlow"
	FieldConsumption    = "consumption"
	FieldGeneration     = "generation"
	FieldProduction     = "production"
	FieldStorage        = "storage"
	FieldCapacity       = "capacity"
	FieldCorrectedModes = "correctedModes"
	FieldCurrency       = "currency"
	FieldPrice          = "price"
)

var naiveLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// ParseDatetime reads a datetime field value. Strings must be RFC 3339 with an
// offset; naive timestamps fail with ErrMissingTimezone.
func ParseDatetime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, ErrMissingTimezone
		}
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, ErrMissingTimezone
		}
		return ParseDatetime(*t)
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, nil
		}
		for _, layout := range naiveLayouts {
			if _, err := time.Parse(layout, t); err == nil {
				return time.Time{}, fmt.Errorf("%w: %q", ErrMissingTimezone, t)
			}
		}
		return time.Time{}, fmt.Errorf("%w: datetime %q", ErrMalformedRecord, t)
	case nil:
		return time.Time{}, ErrMissingTimezone
	default:
		return time.Time{}, fmt.Errorf("%w: datetime of type %T", ErrMalformedRecord, v)
	}
}

// Datetime returns the parsed datetime field.
func (r Record) Datetime() (time.Time, error) {
	return ParseDatetime(r[FieldDatetime])
}

// Key returns the zone key or, for exchanges, the sorted zone keys.
func (r Record) Key() string {
	if s, ok := r[FieldZoneKey].(string); ok {
		return s
	}
	s, _ := r[FieldSortedZoneKeys].(string)
	return s
}

// SourceType returns the parsed sourceType field, defaulting to measured.
func (r Record) SourceType() (SourceType, error) {
	s, err := optionalString(r, FieldSourceType)
	if err != nil {
		return "", err
	}
	return ParseSourceType(s)
}

// Clone returns a shallow copy.
func (r Record) Clone() Record { return maps.Clone(r) }

// DecodeExchange reads an exchange record.
func DecodeExchange(r Record) (ExchangeInput, error) {
	meta, err := decodeMeta(r)
	if err != nil {
		return ExchangeInput{}, err
	}
	key, err := requiredString(r, FieldSortedZoneKeys)
	if err != nil {
		return ExchangeInput{}, err
	}
	flow, err := requiredNumber(r, FieldNetFlow)
	if err != nil {
		return ExchangeInput{}, err
	}
	return ExchangeInput{Key: key, NetFlow: flow, Meta: meta}, nil
}

// DecodeTotalConsumption reads a consumption record.
func DecodeTotalConsumption(r Record) (TotalInput, error) {
	return decodeTotal(r, FieldConsumption)
}

// DecodeTotalProduction reads a total production record.
func DecodeTotalProduction(r Record) (TotalInput, error) {
	return decodeTotal(r, FieldGeneration)
}

// DecodeProductionBreakdown reads a production breakdown record. Null modes are absent.
func DecodeProductionBreakdown(r Record) (ProductionBreakdownInput, error) {
	meta, err := decodeMeta(r)
	if err != nil {
		return ProductionBreakdownInput{}, err
	}
	key, err := requiredString(r, FieldZoneKey)
	if err != nil {
		return ProductionBreakdownInput{}, err
	}
	production, err := numberMap(r, FieldProduction, true)
	if err != nil {
		return ProductionBreakdownInput{}, err
	}
	var mix ProductionMix
	for _, name := range slices.Sorted(maps.Keys(production)) {
		mode, err := ParseMode(name)
		if err != nil {
			return ProductionBreakdownInput{}, err
		}
		if v := production[name]; v != nil {
			mix.Set(mode, *v)
		}
	}
	storage, err := numberMap(r, FieldStorage, false)
	if err != nil {
		return ProductionBreakdownInput{}, err
	}
	var store StorageMix
	for _, name := range slices.Sorted(maps.Keys(storage)) {
		mode, err := ParseStorageMode(name)
		if err != nil {
			return ProductionBreakdownInput{}, err
		}
		if v := storage[name]; v != nil {
			store.Set(mode, *v)
		}
	}
	capacity, err := numberMap(r, FieldCapacity, false)
	if err != nil {
		return ProductionBreakdownInput{}, err
	}
	var installed map[string]float64
	for name, v := range capacity {
		if v == nil {
			continue
		}
		if installed == nil {
			installed = make(map[string]float64, len(capacity))
		}
		installed[name] = *v
	}
	return ProductionBreakdownInput{
		ZoneKey:    zone.Key(key),
		Production: mix,
		Storage:    store,
		Capacity:   installed,
		Meta:       meta,
	}, nil
}

// DecodePrice reads a price record.
func DecodePrice(r Record) (PriceInput, error) {
	meta, err := decodeMeta(r)
	if err != nil {
		return PriceInput{}, err
	}
	key, err := requiredString(r, FieldZoneKey)
	if err != nil {
		return PriceInput{}, err
	}
	currency, err := requiredString(r, FieldCurrency)
	if err != nil {
		return PriceInput{}, err
	}
	price, err := decimalValue(r[FieldPrice])
	if err != nil {
		return PriceInput{}, fmt.Errorf("%s: %w", FieldPrice, err)
	}
	return PriceInput{ZoneKey: zone.Key(key), Price: price, Currency: currency, Meta: meta}, nil
}

func decodeTotal(r Record, field string) (TotalInput, error) {
	meta, err := decodeMeta(r)
	if err != nil {
		return TotalInput{}, err
	}
	key, err := requiredString(r, FieldZoneKey)
	if err != nil {
		return TotalInput{}, err
	}
	v, err := requiredNumber(r, field)
	if err != nil {
		return TotalInput{}, err
	}
	return TotalInput{ZoneKey: zone.Key(key), Value: v, Meta: meta}, nil
}

func decodeMeta(r Record) (Meta, error) {
	dt, err := r.Datetime()
	if err != nil {
		return Meta{}, err
	}
	source, err := optionalString(r, FieldSource)
	if err != nil {
		return Meta{}, err
	}
	st, err := r.SourceType()
	if err != nil {
		return Meta{}, err
	}
	return Meta{Datetime: dt, Source: source, SourceType: st}, nil
}

func requiredString(r Record, field string) (string, error) {
	s, err := optionalString(r, field)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: missing %s", ErrMalformedRecord, field)
	}
	return s, nil
}

func optionalString(r Record, field string) (string, error) {
	switch v := r[field].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case zone.Key:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %s of type %T", ErrMalformedRecord, field, v)
	}
}

func requiredNumber(r Record, field string) (float64, error) {
	v, ok, err := number(r[field])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedRecord, field)
	}
	return v, nil
}

// numberMap reads a mode->value mapping; nil values stay nil to mark absent modes.
func numberMap(r Record, field string, required bool) (map[string]*float64, error) {
	raw, present := r[field]
	if !present || raw == nil {
		if required {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedRecord, field)
		}
		return nil, nil
	}
	out := make(map[string]*float64)
	switch m := raw.(type) {
	case map[string]float64:
		for k, v := range m {
			out[k] = &v
		}
	case map[string]*float64:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, item := range m {
			v, ok, err := number(item)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", field, k, err)
			}
			if ok {
				out[k] = &v
			} else {
				out[k] = nil
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s of type %T", ErrMalformedRecord, field, raw)
	}
	return out, nil
}

// number converts the numeric representations produced by adapters and JSON
// decoding. A nil value is reported as absent.
func number(v any) (float64, bool, error) {
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return n, true, nil
	case *float64:
		if n == nil {
			return 0, false, nil
		}
		return *n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return f, true, nil
	case decimal.Decimal:
		return n.InexactFloat64(), true, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %q is not a number", ErrMalformedRecord, n)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("%w: number of type %T", ErrMalformedRecord, v)
	}
}

func decimalValue(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		return d, nil
	case nil:
		return decimal.Decimal{}, fmt.Errorf("%w: missing value", ErrMalformedRecord)
	default:
		f, ok, err := number(v)
		if err != nil {
			return decimal.Decimal{}, err
		}
		if !ok {
			return decimal.Decimal{}, fmt.Errorf("%w: missing value", ErrMalformedRecord)
		}
		return decimal.NewFromFloat(f), nil
	}
}
