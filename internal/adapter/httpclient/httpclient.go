// Package httpclient builds the HTTP sessions handed to source adapters.
package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNoProxy is returned when an adapter needs a proxy and none is configured.
var ErrNoProxy = errors.New("no proxy configured")

// Sessions hands out HTTP clients with a fixed timeout. Clients routed through
// a country proxy are built once per country and reused.
type Sessions struct {
	timeout  time.Duration
	template string
	direct   *http.Client

	mu        sync.Mutex
	byCountry map[string]*http.Client
}

// New returns a session source. proxyTemplate may be empty; otherwise its %s
// is replaced by the lower-case country code.
func New(timeout time.Duration, proxyTemplate string) *Sessions {
	return &Sessions{
		timeout:   timeout,
		template:  proxyTemplate,
		direct:    &http.Client{Timeout: timeout},
		byCountry: make(map[string]*http.Client),
	}
}

// Session returns the client for an adapter call. An empty country means a
// direct connection.
func (s *Sessions) Session(country string) (*http.Client, error) {
	if country == "" {
		return s.direct, nil
	}
	if s.template == "" {
		return nil, fmt.Errorf("%w for country %q", ErrNoProxy, country)
	}
	country = strings.ToLower(country)

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.byCountry[country]; ok {
		return c, nil
	}
	proxy, err := url.Parse(fmt.Sprintf(s.template, country))
	if err != nil {
		return nil, fmt.Errorf("proxy url for %q: %w", country, err)
	}
	c := &http.Client{
		Timeout:   s.timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxy)},
	}
	s.byCountry[country] = c
	return c, nil
}
