package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/grid-ingest/internal/domain"
)

// Header keys set on every output event.
const (
	HeaderRequestID = "request_id"
	HeaderKind      = "kind"
	HeaderEventKind = "event_kind"
)

// capacityEventKind labels capacity observations, which are not canonical events.
const capacityEventKind = "capacity"

// RequestFetcher is the part of *Fetcher the transformer depends on.
type RequestFetcher interface {
	Fetch(ctx context.Context, req Request) ([]domain.Record, error)
}

// GridTransformer turns a fetch request into the canonical events it yields.
type GridTransformer struct {
	fetcher RequestFetcher
	logger  *slog.Logger
}

// NewTransformer creates a GridTransformer.
func NewTransformer(fetcher RequestFetcher, logger *slog.Logger) *GridTransformer {
	return &GridTransformer{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Transform parses the request and runs it. A partially failed fetch still
// yields the records it produced; only a fetch with no records and an error
// fails the message.
func (t *GridTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	req, err := ParseRequest(raw.Value)
	if err != nil {
		return nil, err
	}

	records, err := t.fetcher.Fetch(ctx, req)
	if err != nil {
		if len(records) == 0 {
			return nil, fmt.Errorf("fetch %s for %s: %w", req.Kind, req.Key, err)
		}
		t.logger.Warn("partial fetch",
			"error", err,
			"request_id", req.ID,
			"kind", req.Kind,
			"zone_key", req.Key,
			"records", len(records),
		)
	}

	eventKind := capacityEventKind
	if k, ok := req.Kind.EventKind(); ok {
		eventKind = string(k)
	}

	out := make([]domain.OutputEvent, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("serialize %s record: %w", eventKind, err)
		}
		out = append(out, domain.OutputEvent{
			Key:   []byte(r.Key()),
			Value: data,
			Headers: map[string]string{
				HeaderRequestID: req.ID,
				HeaderKind:      string(req.Kind),
				HeaderEventKind: eventKind,
			},
		})
	}
	return out, nil
}
