package parser

import (
	"fmt"

	"github.com/couchcryptid/grid-ingest/internal/domain"
)

// Kind is the data kind an adapter serves.
type Kind string

const (
	KindConsumption               Kind = "consumption"
	KindConsumptionForecast       Kind = "consumptionForecast"
	KindProduction                Kind = "production"
	KindProductionPerModeForecast Kind = "productionPerModeForecast"
	KindProductionCapacity        Kind = "productionCapacity"
	KindGenerationForecast        Kind = "generationForecast"
	KindExchange                  Kind = "exchange"
	KindExchangeForecast          Kind = "exchangeForecast"
	KindPrice                     Kind = "price"
)

// Kinds lists every known kind.
var Kinds = []Kind{
	KindConsumption, KindConsumptionForecast,
	KindProduction, KindProductionPerModeForecast, KindProductionCapacity,
	KindGenerationForecast,
	KindExchange, KindExchangeForecast,
	KindPrice,
}

// ParseKind validates s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidParserKind, s)
}

// ExchangeScoped reports whether adapters of this kind take a pair of zones.
func (k Kind) ExchangeScoped() bool {
	return k == KindExchange || k == KindExchangeForecast
}

// EventKind returns the canonical event kind an adapter of this kind emits.
// Capacity adapters emit observations rather than events and report false.
func (k Kind) EventKind() (domain.EventKind, bool) {
	switch k {
	case KindConsumption, KindConsumptionForecast:
		return domain.KindTotalConsumption, true
	case KindProduction, KindProductionPerModeForecast:
		return domain.KindProductionBreakdown, true
	case KindGenerationForecast:
		return domain.KindTotalProduction, true
	case KindExchange, KindExchangeForecast:
		return domain.KindExchange, true
	case KindPrice:
		return domain.KindPrice, true
	default:
		return "", false
	}
}

// Root is the namespace an adapter identifier resolves in.
type Root string

const (
	RootParsers  Root = "parsers"
	RootCapacity Root = "capacity_parsers"
)

// Root returns the namespace adapters of this kind are registered under.
func (k Kind) Root() Root {
	if k == KindProductionCapacity {
		return RootCapacity
	}
	return RootParsers
}
