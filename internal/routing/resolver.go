// Package routing resolves (origin, destination) pairs to road distance,
// duration and path, backed by a persisted cache in front of a self-hosted
// routing engine and a quota-limited directions API.
package routing

import (
	"context"
	"errors"
	"math"

	"freightopt/internal/metrics"
	"freightopt/internal/model"
	"freightopt/internal/store"
)

// Leg is a resolved (or estimated) road connection. Resolved=false marks a
// leg no provider could answer; its distance/duration are great-circle
// estimates, never silent zeros.
type Leg struct {
	DistanceKm  float64
	DurationMin float64
	Path        []model.GeoPoint
	Resolved    bool
	Provider    string
}

// Provider is one tier of the routing chain.
type Provider interface {
	Name() string
	Route(ctx context.Context, origin, dest model.GeoPoint) (Leg, error)
}

// Resolver serves legs from the persisted cache, then from the provider list
// in order. All cache writes are first-writer-wins.
type Resolver struct {
	Store       store.Store
	Providers   []Provider
	AvgSpeedKmh float64 // used for the degraded estimate when all tiers fail
}

func NewResolver(st store.Store, avgSpeedKmh float64, providers ...Provider) *Resolver {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 40
	}
	return &Resolver{Store: st, Providers: providers, AvgSpeedKmh: avgSpeedKmh}
}

// Resolve never returns an error: after the cache and every provider fail it
// returns an estimated leg with Resolved=false and counts the degradation.
func (r *Resolver) Resolve(ctx context.Context, origin, dest model.GeoPoint) Leg {
	if origin == dest {
		return Leg{Resolved: true, Provider: "identity"}
	}
	if e, err := r.Store.GetRouteCache(ctx, origin, dest); err == nil {
		metrics.CacheLookups.WithLabelValues("route", "hit").Inc()
		return Leg{DistanceKm: e.DistanceKm, DurationMin: e.DurationMin, Path: e.Path, Resolved: true, Provider: e.Provider}
	} else if !errors.Is(err, store.ErrNotFound) {
		// cache unavailable; fall through to providers
	}
	metrics.CacheLookups.WithLabelValues("route", "miss").Inc()
	for _, p := range r.Providers {
		leg, err := p.Route(ctx, origin, dest)
		if err != nil {
			metrics.ProviderCalls.WithLabelValues(p.Name(), "error").Inc()
			continue
		}
		metrics.ProviderCalls.WithLabelValues(p.Name(), "ok").Inc()
		leg.Resolved = true
		leg.Provider = p.Name()
		_ = r.Store.PutRouteCache(ctx, model.RouteCacheEntry{
			Origin:      origin,
			Dest:        dest,
			DistanceKm:  leg.DistanceKm,
			DurationMin: leg.DurationMin,
			Path:        leg.Path,
			Provider:    p.Name(),
		})
		return leg
	}
	metrics.UnresolvedLegs.Inc()
	return r.Estimate(origin, dest)
}

// Estimate returns a great-circle fallback leg, explicitly marked unresolved.
func (r *Resolver) Estimate(origin, dest model.GeoPoint) Leg {
	km := Haversine(origin, dest)
	return Leg{
		DistanceKm:  km,
		DurationMin: km / r.AvgSpeedKmh * 60,
		Resolved:    false,
	}
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(a, b model.GeoPoint) float64 {
	const earthRadiusKm = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
