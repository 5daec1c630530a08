package zone

import (
	"errors"
	"fmt"
	"strings"
)

// Key identifies a zone, e.g. "FR", "DK-DK1" or "IN-EA".
type Key string

// ExchangeKey identifies an interconnection as "A->B" with A < B.
type ExchangeKey string

const exchangeSeparator = "->"

// ErrInvalidExchangeKey is returned for exchange keys that are malformed or not sorted.
var ErrInvalidExchangeKey = errors.New("invalid exchange key")

// NewExchangeKey builds the canonical key for the interconnection between a and b.
func NewExchangeKey(a, b Key) ExchangeKey {
	if b < a {
		a, b = b, a
	}
	return ExchangeKey(string(a) + exchangeSeparator + string(b))
}

// ParseExchangeKey splits s into its two zones. The zones must be distinct,
// non-empty and in lexicographic order.
func ParseExchangeKey(s string) (Key, Key, error) {
	a, b, ok := strings.Cut(s, exchangeSeparator)
	if !ok || a == "" || b == "" || strings.Contains(b, exchangeSeparator) {
		return "", "", fmt.Errorf("%w: %q is not of the form A->B", ErrInvalidExchangeKey, s)
	}
	if a >= b {
		return "", "", fmt.Errorf("%w: zone keys in %q are not sorted", ErrInvalidExchangeKey, s)
	}
	return Key(a), Key(b), nil
}

// Zones returns both ends of the exchange. The key is assumed to be canonical.
func (k ExchangeKey) Zones() (Key, Key) {
	a, b, _ := strings.Cut(string(k), exchangeSeparator)
	return Key(a), Key(b)
}

func (k ExchangeKey) String() string { return string(k) }
