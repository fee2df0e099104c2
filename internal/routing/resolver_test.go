package routing

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"freightopt/internal/model"
	"freightopt/internal/store"
)

type fakeProvider struct {
	mu    sync.Mutex
	name  string
	leg   Leg
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Route(ctx context.Context, origin, dest model.GeoPoint) (Leg, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.leg, f.err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var (
	saoPaulo = model.GeoPoint{Lat: -23.5505, Lon: -46.6333}
	campinas = model.GeoPoint{Lat: -22.9068, Lon: -47.0626}
)

func TestResolveCachesLeg(t *testing.T) {
	p := &fakeProvider{name: "fake", leg: Leg{DistanceKm: 98, DurationMin: 80}}
	r := NewResolver(store.NewMemory(), 40, p)
	ctx := context.Background()

	first := r.Resolve(ctx, saoPaulo, campinas)
	if !first.Resolved || first.DistanceKm != 98 { t.Fatalf("first: %+v", first) }
	second := r.Resolve(ctx, saoPaulo, campinas)
	if second.DistanceKm != first.DistanceKm || second.DurationMin != first.DurationMin {
		t.Fatalf("cache changed the leg: %+v vs %+v", first, second)
	}
	if p.callCount() != 1 { t.Fatalf("provider called %d times, want 1", p.callCount()) }
}

func TestResolveIdenticalPair(t *testing.T) {
	p := &fakeProvider{name: "fake"}
	r := NewResolver(store.NewMemory(), 40, p)
	leg := r.Resolve(context.Background(), saoPaulo, saoPaulo)
	if !leg.Resolved || leg.DistanceKm != 0 || leg.DurationMin != 0 { t.Fatalf("identity leg: %+v", leg) }
	if p.callCount() != 0 { t.Fatal("identity pair reached a provider") }
}

func TestResolveFallsThroughChain(t *testing.T) {
	down := &fakeProvider{name: "down", err: errors.New("timeout")}
	up := &fakeProvider{name: "up", leg: Leg{DistanceKm: 100, DurationMin: 90}}
	r := NewResolver(store.NewMemory(), 40, down, up)

	leg := r.Resolve(context.Background(), saoPaulo, campinas)
	if !leg.Resolved || leg.Provider != "up" { t.Fatalf("leg: %+v", leg) }
	if down.callCount() != 1 || up.callCount() != 1 { t.Fatal("chain not walked") }
}

func TestResolveUnresolvedEstimate(t *testing.T) {
	down := &fakeProvider{name: "down", err: errors.New("timeout")}
	st := store.NewMemory()
	r := NewResolver(st, 40, down)

	leg := r.Resolve(context.Background(), saoPaulo, campinas)
	if leg.Resolved { t.Fatal("failed leg marked resolved") }
	want := Haversine(saoPaulo, campinas)
	if math.Abs(leg.DistanceKm-want) > 1e-9 { t.Fatalf("estimate: got %.3f, want %.3f", leg.DistanceKm, want) }
	if math.Abs(leg.DurationMin-want/40*60) > 1e-9 { t.Fatalf("duration: %.3f", leg.DurationMin) }
	// estimates must not poison the cache
	if _, err := st.GetRouteCache(context.Background(), saoPaulo, campinas); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("estimate was cached: %v", err)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	got := Haversine(saoPaulo, campinas)
	if got < 85 || got > 100 { t.Fatalf("sao paulo - campinas: got %.1f km", got) }
	if Haversine(saoPaulo, saoPaulo) != 0 { t.Fatal("zero distance expected") }
}
