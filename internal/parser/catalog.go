package parser

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Catalog holds the adapters available to the registry, keyed by root and
// "<module>.<function>" identifier. Registration happens at startup.
type Catalog struct {
	mu       sync.RWMutex
	adapters map[Root]map[string]Adapter
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{adapters: make(map[Root]map[string]Adapter)}
}

// Register adds an adapter under id in root.
func (c *Catalog) Register(root Root, id string, a Adapter) error {
	if err := validIdentifier(id); err != nil {
		return err
	}
	if a.zoneFn == nil && a.exchangeFn == nil {
		return fmt.Errorf("register %s/%s: adapter has no function", root, id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	byID, ok := c.adapters[root]
	if !ok {
		byID = make(map[string]Adapter)
		c.adapters[root] = byID
	}
	if _, dup := byID[id]; dup {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateParser, root, id)
	}
	byID[id] = a
	return nil
}

// MustRegister is Register for package initialisation; it panics on error.
func (c *Catalog) MustRegister(root Root, id string, a Adapter) {
	if err := c.Register(root, id, a); err != nil {
		panic(err)
	}
}

// Lookup returns the adapter registered under id in root.
func (c *Catalog) Lookup(root Root, id string) (Adapter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.adapters[root][id]
	return a, ok
}

// IDs returns the sorted identifiers registered in root.
func (c *Catalog) IDs(root Root) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.adapters[root]))
}

func validIdentifier(id string) error {
	module, function, ok := strings.Cut(id, ".")
	if !ok || module == "" || function == "" || strings.Contains(function, ".") {
		return fmt.Errorf("%w: identifier %q is not <module>.<function>", ErrUnknownParser, id)
	}
	return nil
}
