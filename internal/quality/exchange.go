package quality

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// CapacityMargin is the tolerance applied to declared exchange capacity.
const CapacityMargin = 0.1

// ExchangeCapacities looks up the declared (import, export) capacity of an
// interconnection. *zone.Config implements it.
type ExchangeCapacities interface {
	Exchange(zone.ExchangeKey) (zone.ExchangeRecord, bool)
}

// CheckExchangeCapacity verifies that the flow lies within the declared
// capacity widened by CapacityMargin. Exchanges without declared capacity pass.
func CheckExchangeCapacity(caps ExchangeCapacities, ev domain.Exchange) error {
	rec, ok := caps.Exchange(ev.Key)
	if !ok || rec.Capacity == nil {
		return nil
	}
	low := rec.Capacity[0] * (1 + CapacityMargin)
	high := rec.Capacity[1] * (1 + CapacityMargin)
	if ev.NetFlow < low || ev.NetFlow > high {
		return fmt.Errorf("%w: %s net flow %g outside [%g, %g]", ErrCapacityExceeded, ev.Key, ev.NetFlow, low, high)
	}
	return nil
}

// FilterExchanges drops the exchanges whose flow exceeds declared capacity.
func FilterExchanges(logger *slog.Logger, caps ExchangeCapacities, events []domain.Exchange) []domain.Exchange {
	kept := make([]domain.Exchange, 0, len(events))
	for _, ev := range events {
		if err := CheckExchangeCapacity(caps, ev); err != nil {
			logger.Error("dropping exchange",
				"error", err,
				"zone_key", ev.Key,
				"datetime", ev.Datetime,
				"source", ev.Source,
			)
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}
