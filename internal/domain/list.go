package domain

import (
	"fmt"
	"log/slog"
	"slices"
)

// Canonical is implemented by every event type.
type Canonical interface {
	Record() Record
}

// ToRecords serializes events to their canonical records.
func ToRecords[T Canonical](events []T) []Record {
	out := make([]Record, len(events))
	for i, ev := range events {
		out[i] = ev.Record()
	}
	return out
}

// RecordList is the kind-independent view of an event list.
type RecordList interface {
	AppendRecord(r Record) bool
	Len() int
	ToList() []Record
}

// NewList returns an empty list for the given event kind.
func NewList(kind EventKind, logger *slog.Logger, zones ZoneIndex) (RecordList, error) {
	switch kind {
	case KindExchange:
		return NewExchangeList(logger, zones), nil
	case KindTotalConsumption:
		return NewTotalConsumptionList(logger, zones), nil
	case KindTotalProduction:
		return NewTotalProductionList(logger, zones), nil
	case KindProductionBreakdown:
		return NewProductionBreakdownList(logger, zones), nil
	case KindPrice:
		return NewPriceList(logger, zones), nil
	default:
		return nil, fmt.Errorf("new list: unknown event kind %q", kind)
	}
}

// eventList is an append-only batch that keeps only well-formed events. It is
// owned by a single caller.
type eventList[T Canonical] struct {
	kind   EventKind
	logger *slog.Logger
	zones  ZoneIndex
	events []T
}

// Len returns the number of retained events.
func (l *eventList[T]) Len() int { return len(l.events) }

// Events returns the retained events in append order.
func (l *eventList[T]) Events() []T { return slices.Clone(l.events) }

// ToList serializes the retained events.
func (l *eventList[T]) ToList() []Record { return ToRecords(l.events) }

func (l *eventList[T]) keep(ev T, ok bool) bool {
	if ok {
		l.events = append(l.events, ev)
	}
	return ok
}

func (l *eventList[T]) reject(r Record, err error) bool {
	l.logger.Error("dropping malformed record",
		"error", err,
		"kind", l.kind,
		"zone_key", r.Key(),
		"datetime", r[FieldDatetime],
	)
	return false
}

// ExchangeList collects Exchange events.
type ExchangeList struct{ eventList[Exchange] }

// NewExchangeList returns an empty list.
func NewExchangeList(logger *slog.Logger, zones ZoneIndex) *ExchangeList {
	return &ExchangeList{eventList[Exchange]{kind: KindExchange, logger: logger, zones: zones}}
}

// Append builds the event through the safe factory and keeps it if valid.
func (l *ExchangeList) Append(in ExchangeInput) bool {
	return l.keep(CreateExchange(l.logger, l.zones, in))
}

// AppendRecord decodes r and appends it.
func (l *ExchangeList) AppendRecord(r Record) bool {
	in, err := DecodeExchange(r)
	if err != nil {
		return l.reject(r, err)
	}
	return l.Append(in)
}

// TotalConsumptionList collects TotalConsumption events.
type TotalConsumptionList struct{ eventList[TotalConsumption] }

// NewTotalConsumptionList returns an empty list.
func NewTotalConsumptionList(logger *slog.Logger, zones ZoneIndex) *TotalConsumptionList {
	return &TotalConsumptionList{eventList[TotalConsumption]{kind: KindTotalConsumption, logger: logger, zones: zones}}
}

// Append builds the event through the safe factory and keeps it if valid.
func (l *TotalConsumptionList) Append(in TotalInput) bool {
	return l.keep(CreateTotalConsumption(l.logger, l.zones, in))
}

// AppendRecord decodes r and appends it.
func (l *TotalConsumptionList) AppendRecord(r Record) bool {
	in, err := DecodeTotalConsumption(r)
	if err != nil {
		return l.reject(r, err)
	}
	return l.Append(in)
}

// TotalProductionList collects TotalProduction events.
type TotalProductionList struct{ eventList[TotalProduction] }

// NewTotalProductionList returns an empty list.
func NewTotalProductionList(logger *slog.Logger, zones ZoneIndex) *TotalProductionList {
	return &TotalProductionList{eventList[TotalProduction]{kind: KindTotalProduction, logger: logger, zones: zones}}
}

// Append builds the event through the safe factory and keeps it if valid.
func (l *TotalProductionList) Append(in TotalInput) bool {
	return l.keep(CreateTotalProduction(l.logger, l.zones, in))
}

// AppendRecord decodes r and appends it.
func (l *TotalProductionList) AppendRecord(r Record) bool {
	in, err := DecodeTotalProduction(r)
	if err != nil {
		return l.reject(r, err)
	}
	return l.Append(in)
}

// ProductionBreakdownList collects ProductionBreakdown events.
type ProductionBreakdownList struct{ eventList[ProductionBreakdown] }

// NewProductionBreakdownList returns an empty list.
func NewProductionBreakdownList(logger *slog.Logger, zones ZoneIndex) *ProductionBreakdownList {
	return &ProductionBreakdownList{eventList[ProductionBreakdown]{kind: KindProductionBreakdown, logger: logger, zones: zones}}
}

// Append builds the event through the safe factory and keeps it if valid.
func (l *ProductionBreakdownList) Append(in ProductionBreakdownInput) bool {
	return l.keep(CreateProductionBreakdown(l.logger, l.zones, in))
}

// AppendRecord decodes r and appends it.
func (l *ProductionBreakdownList) AppendRecord(r Record) bool {
	in, err := DecodeProductionBreakdown(r)
	if err != nil {
		return l.reject(r, err)
	}
	return l.Append(in)
}

// PriceList collects Price events.
type PriceList struct{ eventList[Price] }

// NewPriceList returns an empty list.
func NewPriceList(logger *slog.Logger, zones ZoneIndex) *PriceList {
	return &PriceList{eventList[Price]{kind: KindPrice, logger: logger, zones: zones}}
}

// Append builds the event through the safe factory and keeps it if valid.
func (l *PriceList) Append(in PriceInput) bool {
	return l.keep(CreatePrice(l.logger, l.zones, in))
}

// AppendRecord decodes r and appends it.
func (l *PriceList) AppendRecord(r Record) bool {
	in, err := DecodePrice(r)
	if err != nil {
		return l.reject(r, err)
	}
	return l.Append(in)
}
