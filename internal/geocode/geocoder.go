package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vigiapp/vigia/internal/domain"
	"github.com/vigiapp/vigia/internal/observability"
)

// Provider resolves a free-text place query to coordinates. A nil result
// with a nil error means the provider had no match.
type Provider interface {
	Resolve(ctx context.Context, query string) (*domain.Geo, error)
}

// Geocoder resolves place descriptions with a process-lifetime cache and a
// shared provider throttle. Provider failures yield "absent", never an
// error: the caller decides whether to skip the record.
type Geocoder struct {
	provider Provider
	gate     *Gate
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu    sync.RWMutex
	cache map[string]domain.Geo
}

// New creates a Geocoder around a provider and a throttle gate. The gate is
// passed in explicitly so callers control which instances share a throttle.
func New(provider Provider, gate *Gate, logger *slog.Logger, metrics *observability.Metrics) *Geocoder {
	return &Geocoder{
		provider: provider,
		gate:     gate,
		logger:   logger,
		metrics:  metrics,
		cache:    make(map[string]domain.Geo),
	}
}

// Geocode resolves a neighborhood/municipality/state triple. A cache hit
// never re-queries the provider; a miss waits on the gate before calling
// out. Cache writes race harmlessly: the value for a key is always the same.
func (g *Geocoder) Geocode(ctx context.Context, neighborhood, municipality, state string) (domain.Geo, bool) {
	key := cacheKey(neighborhood, municipality, state)

	g.mu.RLock()
	cached, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		g.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return cached, true
	}
	g.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	if err := g.gate.Wait(ctx); err != nil {
		g.logger.Warn("geocode cancelled while throttled", "error", err)
		return domain.Geo{}, false
	}

	query := fmt.Sprintf("%s, %s, %s", neighborhood, municipality, state)
	geo, err := g.provider.Resolve(ctx, query)
	if err != nil {
		g.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		g.logger.Warn("geocode provider failed", "query", query, "error", err)
		return domain.Geo{}, false
	}
	if geo == nil {
		g.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		g.logger.Debug("geocode returned no match", "query", query)
		return domain.Geo{}, false
	}
	g.metrics.GeocodeRequests.WithLabelValues("success").Inc()

	g.mu.Lock()
	g.cache[key] = *geo
	g.mu.Unlock()

	return *geo, true
}

// BatchGeocode resolves a batch sequentially, attaching coordinates where
// the lookup succeeded. Sequential on purpose: every miss goes through the
// shared 1-request throttle, and parallel calls would just queue on it.
func (g *Geocoder) BatchGeocode(ctx context.Context, raws []domain.RawIncident) []domain.GeocodedIncident {
	geocoded := make([]domain.GeocodedIncident, 0, len(raws))
	for _, raw := range raws {
		gi := domain.GeocodedIncident{RawIncident: raw}
		if geo, ok := g.Geocode(ctx, raw.Neighborhood, raw.Municipality, raw.State); ok {
			gi.Geo = &geo
		}
		geocoded = append(geocoded, gi)
	}
	return geocoded
}

func cacheKey(neighborhood, municipality, state string) string {
	parts := []string{neighborhood, municipality, state}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}
