package quality

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/zone"
)

// ProductionRules are the plausibility rules for one zone's breakdowns.
type ProductionRules struct {
	Required       []domain.Mode
	Floor          *float64
	Range          *[2]float64
	ExpectedRange  map[domain.Mode][2]float64
	MaxDiff        map[domain.Mode]float64
	RejectAllZeros bool
}

// RulesFromZone converts zone configuration into rules. rejectAllZeros is used
// when the zone does not override it.
func RulesFromZone(v *zone.ValidationRules, rejectAllZeros bool) (ProductionRules, error) {
	rules := ProductionRules{RejectAllZeros: rejectAllZeros}
	if v == nil {
		return rules, nil
	}
	if v.RejectAllZeros != nil {
		rules.RejectAllZeros = *v.RejectAllZeros
	}
	rules.Floor = v.Floor
	rules.Range = v.Range

	var errs []error
	for _, name := range v.Required {
		mode, err := domain.ParseMode(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("required: %w", err))
			continue
		}
		rules.Required = append(rules.Required, mode)
	}
	for _, name := range slices.Sorted(maps.Keys(v.ExpectedRange)) {
		mode, err := domain.ParseMode(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("expectedRange: %w", err))
			continue
		}
		if rules.ExpectedRange == nil {
			rules.ExpectedRange = make(map[domain.Mode][2]float64)
		}
		rules.ExpectedRange[mode] = v.ExpectedRange[name]
	}
	for _, name := range slices.Sorted(maps.Keys(v.MaxDiff)) {
		mode, err := domain.ParseMode(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("maxDiff: %w", err))
			continue
		}
		if rules.MaxDiff == nil {
			rules.MaxDiff = make(map[domain.Mode]float64)
		}
		rules.MaxDiff[mode] = v.MaxDiff[name]
	}
	if len(errs) > 0 {
		return ProductionRules{}, errors.Join(errs...)
	}
	return rules, nil
}

// Check applies the single-point rules to one breakdown.
func (r ProductionRules) Check(ev domain.ProductionBreakdown) error {
	mix := ev.Production
	if r.RejectAllZeros && mix.AllZeroOrAbsent() {
		return ErrAllZeros
	}
	for _, mode := range r.Required {
		if _, ok := mix.Get(mode); !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredMode, mode)
		}
	}
	total, _ := mix.Total()
	if r.Floor != nil && total < *r.Floor {
		return fmt.Errorf("%w: %g < %g", ErrFloorNotMet, total, *r.Floor)
	}
	if r.Range != nil && (total < r.Range[0] || total > r.Range[1]) {
		return fmt.Errorf("%w: total %g not in [%g, %g]", ErrRangeViolated, total, r.Range[0], r.Range[1])
	}
	for _, mode := range domain.ProductionModes {
		bounds, ok := r.ExpectedRange[mode]
		if !ok {
			continue
		}
		v, present := mix.Get(mode)
		if !present {
			continue
		}
		if v < bounds[0] || v > bounds[1] {
			return fmt.Errorf("%w: %s %g not in [%g, %g]", ErrRangeViolated, mode, v, bounds[0], bounds[1])
		}
	}
	return nil
}

// StepChange compares two consecutive breakdowns of the same zone. Modes
// absent on either side are not compared.
func StepChange(prev, cur domain.ProductionBreakdown, maxDiff map[domain.Mode]float64) error {
	for _, mode := range domain.ProductionModes {
		limit, ok := maxDiff[mode]
		if !ok {
			continue
		}
		a, okA := prev.Production.Get(mode)
		b, okB := cur.Production.Get(mode)
		if !okA || !okB {
			continue
		}
		if diff := math.Abs(b - a); diff > limit {
			return fmt.Errorf("%w: %s changed by %g (max %g)", ErrStepChangeExceeded, mode, diff, limit)
		}
	}
	return nil
}

// FilterProduction applies rulesFor to every breakdown and then the step-change
// rule between consecutive retained points of each zone. The result is ordered
// by datetime.
func FilterProduction(logger *slog.Logger, rulesFor func(zone.Key) ProductionRules, events []domain.ProductionBreakdown) []domain.ProductionBreakdown {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b domain.ProductionBreakdown) int {
		return cmp.Compare(a.Datetime.UnixNano(), b.Datetime.UnixNano())
	})

	last := make(map[zone.Key]domain.ProductionBreakdown)
	kept := make([]domain.ProductionBreakdown, 0, len(sorted))
	for _, ev := range sorted {
		rules := rulesFor(ev.ZoneKey)
		if err := rules.Check(ev); err != nil {
			logger.Error("dropping production breakdown",
				"error", err,
				"zone_key", ev.ZoneKey,
				"datetime", ev.Datetime,
				"source", ev.Source,
			)
			continue
		}
		if prev, ok := last[ev.ZoneKey]; ok && len(rules.MaxDiff) > 0 {
			if err := StepChange(prev, ev, rules.MaxDiff); err != nil {
				logger.Warn("dropping production breakdown",
					"error", err,
					"zone_key", ev.ZoneKey,
					"datetime", ev.Datetime,
					"previous_datetime", prev.Datetime,
				)
				continue
			}
		}
		last[ev.ZoneKey] = ev
		kept = append(kept, ev)
	}
	return kept
}
