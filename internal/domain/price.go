package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/grid-ingest/internal/zone"
	"github.com/shopspring/decimal"
)

// validCurrencies is the closed set of ISO-4217 codes prices may carry.
var validCurrencies = map[string]struct{}{
	"ARS": {}, "AUD": {}, "BAM": {}, "BGN": {}, "BRL": {}, "CAD": {}, "CHF": {}, "CLP": {},
	"CNY": {}, "COP": {}, "CRC": {}, "CZK": {}, "DKK": {}, "EUR": {}, "GBP": {}, "HUF": {},
	"IDR": {}, "ILS": {}, "INR": {}, "ISK": {}, "JPY": {}, "KRW": {}, "MDL": {}, "MKD": {},
	"MXN": {}, "MYR": {}, "NOK": {}, "NZD": {}, "PEN": {}, "PHP": {}, "PLN": {}, "RON": {},
	"RSD": {}, "RUB": {}, "SEK": {}, "SGD": {}, "THB": {}, "TRY": {}, "TWD": {}, "UAH": {},
	"USD": {}, "UYU": {}, "ZAR": {},
}

// ValidCurrency reports whether code is an accepted currency.
func ValidCurrency(code string) bool {
	_, ok := validCurrencies[code]
	return ok
}

// PriceInput carries the fields for building a Price.
type PriceInput struct {
	ZoneKey  zone.Key
	Price    decimal.Decimal
	Currency string
	Meta
}

// Price is a market price per MWh. Prices may lie in the future.
type Price struct {
	ZoneKey  zone.Key
	Price    decimal.Decimal
	Currency string
	Meta
}

// NewPrice validates in and returns the event.
func NewPrice(zones ZoneIndex, in PriceInput) (Price, error) {
	if err := checkZone(zones, in.ZoneKey); err != nil {
		return Price{}, fmt.Errorf("new price: %w", err)
	}
	meta := in.Meta.normalized()
	if err := meta.validate(true); err != nil {
		return Price{}, fmt.Errorf("new price %s: %w", in.ZoneKey, err)
	}
	if !ValidCurrency(in.Currency) {
		return Price{}, fmt.Errorf("new price %s: %w: %q", in.ZoneKey, ErrInvalidCurrency, in.Currency)
	}
	return Price{ZoneKey: in.ZoneKey, Price: in.Price, Currency: in.Currency, Meta: meta}, nil
}

// CreatePrice is the safe factory for Price.
func CreatePrice(logger *slog.Logger, zones ZoneIndex, in PriceInput) (Price, bool) {
	ev, err := NewPrice(zones, in)
	if err != nil {
		logDrop(logger, KindPrice, string(in.ZoneKey), in.Meta, err)
		return Price{}, false
	}
	return ev, true
}

// Record returns the canonical wire form. The price is a JSON number.
func (e Price) Record() Record {
	return Record{
		FieldDatetime:   e.Datetime,
		FieldZoneKey:    string(e.ZoneKey),
		FieldCurrency:   e.Currency,
		FieldPrice:      json.Number(e.Price.String()),
		FieldSource:     e.Source,
		FieldSourceType: string(e.SourceType),
	}
}
