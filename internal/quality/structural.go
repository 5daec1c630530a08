// Package quality holds the validation layers applied around event
// construction: structural checks on raw adapter records and plausibility
// gates on constructed events.
package quality

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/domain"
)

// FutureTolerance bounds how far ahead of now a non-forecast record may be.
const FutureTolerance = 24 * time.Hour

var requiredKeys = map[domain.EventKind][]string{
	domain.KindExchange:            {domain.FieldSortedZoneKeys, domain.FieldNetFlow},
	domain.KindTotalConsumption:    {domain.FieldZoneKey, domain.FieldConsumption},
	domain.KindTotalProduction:     {domain.FieldZoneKey, domain.FieldGeneration},
	domain.KindProductionBreakdown: {domain.FieldZoneKey, domain.FieldProduction},
	domain.KindPrice:               {domain.FieldZoneKey, domain.FieldCurrency, domain.FieldPrice},
}

// RequiredKeys returns the top-level keys a raw record of kind must carry,
// including datetime and source.
func RequiredKeys(kind domain.EventKind) []string {
	return append([]string{domain.FieldDatetime, domain.FieldSource}, requiredKeys[kind]...)
}

// ValidateRecord checks a raw adapter record before event construction. Every
// missing key is reported; time checks run only once datetime parses.
func ValidateRecord(kind domain.EventKind, r domain.Record, now time.Time) error {
	if _, ok := requiredKeys[kind]; !ok {
		return fmt.Errorf("validate record: unknown event kind %q", kind)
	}

	var errs []error
	for _, key := range RequiredKeys(kind) {
		if v, ok := r[key]; !ok || v == nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingKey, key))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	dt, err := r.Datetime()
	if err != nil {
		return err
	}
	if dt.Before(domain.Earliest) {
		return fmt.Errorf("%w: %s", domain.ErrImplausibleTime, dt.Format(time.RFC3339))
	}

	st, err := r.SourceType()
	if err != nil {
		return err
	}
	if kind == domain.KindPrice || st == domain.Forecasted {
		return nil
	}
	if dt.After(now.Add(FutureTolerance)) {
		return fmt.Errorf("%w: %s", domain.ErrFutureMeasurement, dt.Format(time.RFC3339))
	}
	return nil
}
