package zone

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfigLoad marks any failure to load or validate zone configuration. It is fatal at startup.
var ErrConfigLoad = errors.New("config load error")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the read-only view over zone and exchange configuration. It is
// built once at startup and never mutated afterwards.
type Config struct {
	zones      map[Key]Record
	exchanges  map[ExchangeKey]ExchangeRecord
	defaults   Defaults
	neighbours map[Key][]Key
	parents    map[Key]Key
	locations  map[Key]*time.Location
}

// New validates the given records and derives neighbours and parents.
// All problems are reported together, each wrapping ErrConfigLoad.
func New(zones []Record, exchanges []ExchangeRecord, defaults Defaults) (*Config, error) {
	c := &Config{
		zones:      make(map[Key]Record, len(zones)),
		exchanges:  make(map[ExchangeKey]ExchangeRecord, len(exchanges)),
		defaults:   defaults,
		neighbours: make(map[Key][]Key),
		parents:    make(map[Key]Key),
		locations:  make(map[Key]*time.Location, len(zones)),
	}

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrConfigLoad, fmt.Sprintf(format, args...)))
	}

	for _, z := range zones {
		if z.Key == "" {
			fail("zone record without key")
			continue
		}
		if _, dup := c.zones[z.Key]; dup {
			fail("zone %s declared twice", z.Key)
			continue
		}
		if err := validate.Struct(z); err != nil {
			fail("zone %s: %v", z.Key, err)
		}
		if z.BoundingBox != nil {
			if err := z.BoundingBox.Validate(); err != nil {
				fail("zone %s: %v", z.Key, err)
			}
		}
		if loc, err := time.LoadLocation(z.Timezone); err == nil && z.Timezone != "" {
			c.locations[z.Key] = loc
		}
		c.zones[z.Key] = z
	}

	for _, key := range slices.Sorted(maps.Keys(c.zones)) {
		for _, sub := range c.zones[key].SubZoneNames {
			if _, ok := c.zones[sub]; !ok {
				fail("zone %s lists unknown sub-zone %s", key, sub)
				continue
			}
			if sub == key {
				fail("zone %s lists itself as a sub-zone", key)
				continue
			}
			if other, taken := c.parents[sub]; taken {
				fail("sub-zone %s has two parents: %s and %s", sub, other, key)
				continue
			}
			c.parents[sub] = key
		}
	}
	for _, cycle := range c.parentCycles() {
		fail("sub-zone cycle: %s", cycle)
	}

	for _, ex := range exchanges {
		a, b, err := ParseExchangeKey(string(ex.Key))
		if err != nil {
			fail("exchange %s: %v", ex.Key, err)
			continue
		}
		if _, dup := c.exchanges[ex.Key]; dup {
			fail("exchange %s declared twice", ex.Key)
			continue
		}
		if err := validate.Struct(ex); err != nil {
			fail("exchange %s: %v", ex.Key, err)
		}
		for _, end := range []Key{a, b} {
			if _, ok := c.zones[end]; !ok {
				fail("exchange %s references unknown zone %s", ex.Key, end)
			}
		}
		if ex.Capacity != nil && ex.Capacity[0] > ex.Capacity[1] {
			fail("exchange %s: import capacity %g exceeds export capacity %g", ex.Key, ex.Capacity[0], ex.Capacity[1])
		}
		c.exchanges[ex.Key] = ex
		if len(ex.Parsers) > 0 {
			c.neighbours[a] = append(c.neighbours[a], b)
			c.neighbours[b] = append(c.neighbours[b], a)
		}
	}
	for k := range c.neighbours {
		slices.Sort(c.neighbours[k])
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// parentCycles returns each loop in the parent relation once, as
// "A -> B -> A", starting from its smallest key.
func (c *Config) parentCycles() []string {
	var out []string
	done := make(map[Key]bool, len(c.parents))
	for _, start := range slices.Sorted(maps.Keys(c.parents)) {
		if done[start] {
			continue
		}
		var path []Key
		onPath := make(map[Key]int)
		k, ok := start, true
		for ok && !done[k] {
			if i, seen := onPath[k]; seen {
				loop := path[i:]
				first := slices.Index(loop, slices.Min(loop))
				loop = append(slices.Clone(loop[first:]), loop[:first]...)
				names := make([]string, 0, len(loop)+1)
				for _, z := range append(loop, loop[0]) {
					names = append(names, string(z))
				}
				out = append(out, strings.Join(names, " -> "))
				break
			}
			onPath[k] = len(path)
			path = append(path, k)
			k, ok = c.parents[k]
		}
		for _, z := range path {
			done[z] = true
		}
	}
	return out
}

// Zones returns a copy of the zone mapping. Records are deep copies.
func (c *Config) Zones() map[Key]Record {
	out := make(map[Key]Record, len(c.zones))
	for k, z := range c.zones {
		out[k] = z.Clone()
	}
	return out
}

// Exchanges returns a copy of the exchange mapping. Records are deep copies.
func (c *Config) Exchanges() map[ExchangeKey]ExchangeRecord {
	out := make(map[ExchangeKey]ExchangeRecord, len(c.exchanges))
	for k, ex := range c.exchanges {
		out[k] = ex.Clone()
	}
	return out
}

// ZoneKeys returns every zone key in sorted order.
func (c *Config) ZoneKeys() []Key { return slices.Sorted(maps.Keys(c.zones)) }

// ExchangeKeys returns every exchange key in sorted order.
func (c *Config) ExchangeKeys() []ExchangeKey { return slices.Sorted(maps.Keys(c.exchanges)) }

// Zone returns a copy of the record for k.
func (c *Config) Zone(k Key) (Record, bool) {
	z, ok := c.zones[k]
	return z.Clone(), ok
}

// Exchange returns a copy of the record for k.
func (c *Config) Exchange(k ExchangeKey) (ExchangeRecord, bool) {
	ex, ok := c.exchanges[k]
	return ex.Clone(), ok
}

// HasZone reports whether k is a configured zone.
func (c *Config) HasZone(k Key) bool {
	_, ok := c.zones[k]
	return ok
}

// HasExchange reports whether k is a configured exchange.
func (c *Config) HasExchange(k ExchangeKey) bool {
	_, ok := c.exchanges[k]
	return ok
}

// Neighbours returns the zones connected to k by an exchange that has a parser.
func (c *Config) Neighbours(k Key) []Key { return slices.Clone(c.neighbours[k]) }

// Parent returns the zone that lists k as a sub-zone.
func (c *Config) Parent(k Key) (Key, bool) {
	p, ok := c.parents[k]
	return p, ok
}

// SubZones returns the sub-zones of k, if any.
func (c *Config) SubZones(k Key) []Key { return slices.Clone(c.zones[k].SubZoneNames) }

// BoundingBox returns the bounding box of k when one is configured.
func (c *Config) BoundingBox(k Key) (BoundingBox, bool) {
	z, ok := c.zones[k]
	if !ok || z.BoundingBox == nil {
		return BoundingBox{}, false
	}
	return *z.BoundingBox, true
}

// Location returns the IANA location of k, or UTC when unknown.
func (c *Config) Location(k Key) *time.Location {
	if loc, ok := c.locations[k]; ok {
		return loc
	}
	return time.UTC
}

// Delay returns the publication delay configured for a data kind in zone k.
func (c *Config) Delay(kind string, k Key) time.Duration {
	return time.Duration(c.zones[k].Delays[kind]) * time.Hour
}

// Defaults returns the global factor and classification tables.
func (c *Config) Defaults() Defaults { return c.defaults.Clone() }
