// Command validate lints a zone configuration directory offline. It loads
// zones, exchanges and defaults, binds every configured parser against the
// built-in adapter catalog, and resolves capacity and emission factors for
// every zone, reporting each phase as PASS or FAIL.
//
// Usage:
//
//	go run ./cmd/validate -config-dir config
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/capacity"
	"github.com/couchcryptid/grid-ingest/internal/emission"
	"github.com/couchcryptid/grid-ingest/internal/parser"
	"github.com/couchcryptid/grid-ingest/internal/quality"
	"github.com/couchcryptid/grid-ingest/internal/source/constant"
	"github.com/couchcryptid/grid-ingest/internal/zone"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	configDir := flag.String("config-dir", "config", "directory holding zones/, exchanges/ and defaults.yaml")
	flag.Parse()

	os.Exit(run(*configDir, time.Now().UTC(), os.Stdout))
}

func run(dir string, now time.Time, out io.Writer) int {
	cfg, err := zone.Load(dir)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load %s:\n", dir)
		for _, e := range flatten(err) {
			fmt.Fprintf(out, "  %s\n", e)
		}
		return 1
	}

	logger := slog.New(slog.DiscardHandler)
	capacities := capacity.NewResolver(logger, cfg)

	// ── Run validation phases ──
	phases := []*phase{
		validateZones(cfg),
		validateExchanges(cfg),
		validateRegistry(cfg, capacities),
		validateCapacity(cfg, capacities, now),
		validateEmission(cfg, capacities, now),
	}

	// ── Report results ──
	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Config: %d zones, %d exchanges\n", len(cfg.ZoneKeys()), len(cfg.ExchangeKeys()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validateZones(cfg *zone.Config) *phase {
	p := &phase{name: "Phase 1: Zones"}
	for _, k := range cfg.ZoneKeys() {
		rec, _ := cfg.Zone(k)
		for kind := range rec.Delays {
			if _, err := parser.ParseKind(kind); err != nil {
				p.errorf("%s: delays: %v", k, err)
			}
		}
		if _, err := quality.RulesFromZone(rec.Validation, true); err != nil {
			p.errorf("%s: validation: %v", k, err)
		}
		for mode := range rec.Capacity {
			if !capacity.ValidMode(mode) {
				p.errorf("%s: capacity: unknown mode %q", k, mode)
			}
		}
		if rec.IsParent() && len(rec.Parsers) > 0 {
			p.errorf("%s: parent zone binds parsers; bind them on its sub-zones", k)
		}
	}
	return p
}

func validateExchanges(cfg *zone.Config) *phase {
	p := &phase{name: "Phase 2: Exchanges"}
	for _, k := range cfg.ExchangeKeys() {
		rec, _ := cfg.Exchange(k)
		if rec.Capacity == nil {
			p.errorf("%s: no capacity, exchange flows cannot be bounded", k)
			continue
		}
		if rec.Capacity[0] > rec.Capacity[1] {
			p.errorf("%s: import capacity %g exceeds export capacity %g", k, rec.Capacity[0], rec.Capacity[1])
		}
	}
	return p
}

func validateRegistry(cfg *zone.Config, capacities *capacity.Resolver) *phase {
	p := &phase{name: "Phase 3: Parser registry"}
	catalog := parser.NewCatalog()
	if err := constant.New(capacities, clockwork.NewRealClock()).Register(catalog); err != nil {
		p.errorf("register built-in adapters: %v", err)
		return p
	}
	if _, err := parser.Build(cfg, catalog); err != nil {
		for _, e := range flatten(err) {
			p.errorf("%s", e)
		}
	}
	return p
}

func validateCapacity(cfg *zone.Config, capacities *capacity.Resolver, now time.Time) *phase {
	p := &phase{name: "Phase 4: Capacity resolution"}
	for _, k := range cfg.ZoneKeys() {
		values, err := capacities.At(k, now)
		if err != nil {
			p.errorf("%s: %v", k, err)
			continue
		}
		for _, mode := range slices.Sorted(maps.Keys(values)) {
			if v := values[mode]; v != nil && v.Value < 0 {
				p.errorf("%s: %s capacity %g is negative", k, mode, v.Value)
			}
		}
	}
	return p
}

func validateEmission(cfg *zone.Config, capacities *capacity.Resolver, now time.Time) *phase {
	p := &phase{name: "Phase 5: Emission factor resolution"}
	factors := emission.NewResolver(cfg)
	for _, k := range cfg.ZoneKeys() {
		section, err := capacities.Section(k)
		if err != nil {
			p.errorf("%s: %v", k, err)
			continue
		}
		for _, mode := range section.Modes() {
			if mode == capacity.BatteryStorage || mode == capacity.HydroStorage {
				continue
			}
			if _, err := factors.Resolve(k, mode, now); err != nil {
				p.errorf("%s: %v", k, err)
			}
		}
	}
	return p
}

// flatten splits an errors.Join result into one line per error.
func flatten(err error) []string {
	return strings.Split(err.Error(), "\n")
}
