package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/couchcryptid/grid-ingest/internal/capacity"
	"github.com/couchcryptid/grid-ingest/internal/domain"
	"github.com/couchcryptid/grid-ingest/internal/emission"
	"github.com/couchcryptid/grid-ingest/internal/zone"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

// Zones answers topology questions. *zone.Config implements it.
type Zones interface {
	HasZone(zone.Key) bool
	Neighbours(zone.Key) []zone.Key
}

// Capacities resolves installed capacity. *capacity.Resolver implements it.
type Capacities interface {
	At(k zone.Key, dt time.Time) (map[string]*capacity.Value, error)
}

// Factors resolves emission factors. *emission.Resolver implements it.
type Factors interface {
	ResolveType(k zone.Key, typ emission.Type, mode string, dt time.Time) (emission.Factor, error)
}

// Resolvers groups the lookups served under /v1/zones. Clock supplies the
// datetime when a request does not name one; nil means real time.
type Resolvers struct {
	Zones      Zones
	Capacities Capacities
	Factors    Factors
	Clock      clockwork.Clock
}

type zoneHandlers struct {
	resolvers Resolvers
	logger    *slog.Logger
}

func (h *zoneHandlers) neighbours(w http.ResponseWriter, r *http.Request) {
	k := zone.Key(r.PathValue("zone"))
	if !h.resolvers.Zones.HasZone(k) {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", domain.ErrUnknownZone, k))
		return
	}
	out := slices.Sorted(slices.Values(h.resolvers.Zones.Neighbours(k)))
	if out == nil {
		out = []zone.Key{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (h *zoneHandlers) capacity(w http.ResponseWriter, r *http.Request) {
	k := zone.Key(r.PathValue("zone"))
	dt, err := h.datetime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	values, err := h.resolvers.Capacities.At(k, dt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make(map[string]*capacity.Value, len(values))
	for mode, v := range values {
		if v != nil {
			out[mode] = v
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (h *zoneHandlers) emissionFactor(w http.ResponseWriter, r *http.Request) {
	k := zone.Key(r.PathValue("zone"))
	dt, err := h.datetime(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	typ, err := emission.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	f, err := h.resolvers.Factors.ResolveType(k, typ, r.PathValue("mode"), dt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, f)
}

func (h *zoneHandlers) datetime(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("datetime")
	if s == "" {
		if h.resolvers.Clock != nil {
			return h.resolvers.Clock.Now(), nil
		}
		return time.Now(), nil
	}
	dt, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: want RFC 3339", s)
	}
	return dt, nil
}

func (h *zoneHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownZone), errors.Is(err, emission.ErrNoFactor):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("resolver request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, err)
	}
}
