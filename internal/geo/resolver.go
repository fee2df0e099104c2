// Package geo resolves free-text addresses and cluster centroids to
// coordinates and city labels, shielding the engine from unreliable external
// geocoders with a persisted, tenant-scoped cache.
package geo

import (
	"context"
	"errors"
	"strings"

	"freightopt/internal/metrics"
	"freightopt/internal/model"
	"freightopt/internal/store"
)

// Result is the tagged outcome of one provider attempt. A provider failure is
// carried as Found=false (or an error), never as panic-level control flow.
type Result struct {
	Point model.GeoPoint
	City  string
	Found bool
}

// Provider is one tier of the geocoding chain.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (Result, error)
	ReverseCity(ctx context.Context, p model.GeoPoint) (string, error)
}

// Resolver looks addresses up in the persisted cache first and walks the
// provider list in order on a miss, writing results through with
// first-writer-wins semantics.
type Resolver struct {
	Store     store.Store
	Providers []Provider
}

func NewResolver(st store.Store, providers ...Provider) *Resolver {
	return &Resolver{Store: st, Providers: providers}
}

// Normalize canonicalizes an address for cache keying: lowercase, collapsed
// whitespace.
func Normalize(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Resolve returns coordinates for an address, or found=false after the cache
// and every provider tier failed. Callers proceed with degraded data; Resolve
// never returns an error.
func (r *Resolver) Resolve(ctx context.Context, address, tenantID string) (model.GeoPoint, bool) {
	addr := Normalize(address)
	if addr == "" {
		return model.GeoPoint{}, false
	}
	if e, err := r.Store.GetGeoCache(ctx, tenantID, addr); err == nil {
		metrics.CacheLookups.WithLabelValues("geo", "hit").Inc()
		return e.Point, true
	} else if !errors.Is(err, store.ErrNotFound) {
		// cache unavailable; fall through to providers
	}
	metrics.CacheLookups.WithLabelValues("geo", "miss").Inc()
	for _, p := range r.Providers {
		res, err := p.Geocode(ctx, addr)
		if err != nil {
			metrics.ProviderCalls.WithLabelValues(p.Name(), "error").Inc()
			continue
		}
		if !res.Found {
			metrics.ProviderCalls.WithLabelValues(p.Name(), "miss").Inc()
			continue
		}
		metrics.ProviderCalls.WithLabelValues(p.Name(), "ok").Inc()
		_ = r.Store.PutGeoCache(ctx, model.GeoCacheEntry{
			Address:  addr,
			TenantID: tenantID,
			Point:    res.Point,
			City:     res.City,
			Provider: p.Name(),
		})
		return res.Point, true
	}
	return model.GeoPoint{}, false
}

// ResolveCity reverse-geocodes a centroid to a city label through the same
// cache and provider chain. Reverse entries share the geo cache table keyed by
// the coordinate.
func (r *Resolver) ResolveCity(ctx context.Context, centroid model.GeoPoint, tenantID string) (string, bool) {
	key := "rev:" + store.PointKey(centroid)
	if e, err := r.Store.GetGeoCache(ctx, tenantID, key); err == nil && e.City != "" {
		metrics.CacheLookups.WithLabelValues("geo", "hit").Inc()
		return e.City, true
	}
	metrics.CacheLookups.WithLabelValues("geo", "miss").Inc()
	for _, p := range r.Providers {
		city, err := p.ReverseCity(ctx, centroid)
		if err != nil {
			metrics.ProviderCalls.WithLabelValues(p.Name(), "error").Inc()
			continue
		}
		if city == "" {
			metrics.ProviderCalls.WithLabelValues(p.Name(), "miss").Inc()
			continue
		}
		metrics.ProviderCalls.WithLabelValues(p.Name(), "ok").Inc()
		_ = r.Store.PutGeoCache(ctx, model.GeoCacheEntry{
			Address:  key,
			TenantID: tenantID,
			Point:    centroid,
			City:     city,
			Provider: p.Name(),
		})
		return city, true
	}
	return "", false
}
