package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"freightopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set, and by
// tests. Semantics mirror Postgres, including first-writer-wins cache puts.
type Memory struct {
	mu         sync.Mutex
	deliveries map[string][]model.Delivery          // tenant|date -> deliveries
	tariffs    map[string][]model.VehicleTariff     // tenant|context -> tariffs
	hubs       map[string]model.Hub                 // tenant -> hub
	clusters   map[string][]model.Cluster           // tenant|date|k -> clusters
	transfers  map[string][]model.TransferRoute     // tenant|date|k
	lastmile   map[string][]model.LastMileRoute     // tenant|date|k
	results    map[string]*model.SimulationResult   // tenant|date|k
	geoCache   map[string]model.GeoCacheEntry       // tenant|address
	routeCache map[string]model.RouteCacheEntry     // originKey|destKey
}

func NewMemory() *Memory {
	return &Memory{
		deliveries: map[string][]model.Delivery{},
		tariffs:    map[string][]model.VehicleTariff{},
		hubs:       map[string]model.Hub{},
		clusters:   map[string][]model.Cluster{},
		transfers:  map[string][]model.TransferRoute{},
		lastmile:   map[string][]model.LastMileRoute{},
		results:    map[string]*model.SimulationResult{},
		geoCache:   map[string]model.GeoCacheEntry{},
		routeCache: map[string]model.RouteCacheEntry{},
	}
}

func iterKey(tenantID, date string, k int) string { return fmt.Sprintf("%s|%s|%d", tenantID, date, k) }

// SeedDeliveries loads delivery fixtures (external ingestion stand-in).
func (m *Memory) SeedDeliveries(ds []model.Delivery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range ds {
		key := d.TenantID + "|" + d.ShipmentDate
		m.deliveries[key] = append(m.deliveries[key], d)
	}
}

// SeedTariffs loads tariff fixtures for a context.
func (m *Memory) SeedTariffs(tenantID, tariffCtx string, ts []model.VehicleTariff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tariffs[tenantID+"|"+tariffCtx] = append([]model.VehicleTariff(nil), ts...)
}

// SetHub sets the tenant's hub fixture.
func (m *Memory) SetHub(h model.Hub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hubs[h.TenantID] = h
}

// ClustersFor returns the saved clusters of one iteration (test helper).
func (m *Memory) ClustersFor(tenantID, date string, k int) []model.Cluster {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Cluster(nil), m.clusters[iterKey(tenantID, date, k)]...)
}

func (m *Memory) ListDeliveries(ctx context.Context, tenantID, date string) ([]model.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.Delivery(nil), m.deliveries[tenantID+"|"+date]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListVehicleTariffs(ctx context.Context, tenantID, tariffCtx string) ([]model.VehicleTariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.VehicleTariff(nil), m.tariffs[tenantID+"|"+tariffCtx]...)
	sort.Slice(out, func(i, j int) bool { return out[i].MaxKg < out[j].MaxKg })
	return out, nil
}

func (m *Memory) GetHub(ctx context.Context, tenantID string) (model.Hub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hubs[tenantID]
	if !ok {
		return model.Hub{}, ErrNotFound
	}
	return h, nil
}

func (m *Memory) SaveClusters(ctx context.Context, clusters []model.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := clusters[0]
	key := iterKey(c.TenantID, c.ShipmentDate, c.K)
	m.clusters[key] = append(m.clusters[key], clusters...)
	return nil
}

func (m *Memory) SaveTransferRoutes(ctx context.Context, routes []model.TransferRoute) error {
	if len(routes) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := routes[0]
	key := iterKey(r.TenantID, r.ShipmentDate, r.K)
	m.transfers[key] = append(m.transfers[key], routes...)
	return nil
}

func (m *Memory) SaveLastMileRoutes(ctx context.Context, routes []model.LastMileRoute) error {
	if len(routes) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := routes[0]
	key := iterKey(r.TenantID, r.ShipmentDate, r.K)
	m.lastmile[key] = append(m.lastmile[key], routes...)
	return nil
}

func (m *Memory) HasSimulationResult(ctx context.Context, tenantID, date string, k int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.results[iterKey(tenantID, date, k)]
	return ok, nil
}

func (m *Memory) SaveSimulationResult(ctx context.Context, res model.SimulationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res.IsOptimal = false
	cp := res
	m.results[iterKey(res.TenantID, res.ShipmentDate, res.K)] = &cp
	return nil
}

func (m *Memory) DeleteSweepIteration(ctx context.Context, tenantID, date string, k int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := iterKey(tenantID, date, k)
	delete(m.clusters, key)
	delete(m.transfers, key)
	delete(m.lastmile, key)
	delete(m.results, key)
	return nil
}

func (m *Memory) ListSimulationResults(ctx context.Context, tenantID, date string) ([]model.SimulationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.SimulationResult{}
	for _, r := range m.results {
		if r.TenantID == tenantID && r.ShipmentDate == date {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].K < out[j].K })
	return out, nil
}

func (m *Memory) MarkOptimal(ctx context.Context, tenantID, date string, k int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var target *model.SimulationResult
	for _, r := range m.results {
		if r.TenantID != tenantID || r.ShipmentDate != date {
			continue
		}
		r.IsOptimal = false
		if r.K == k {
			target = r
		}
	}
	if target == nil {
		return ErrNotFound
	}
	target.IsOptimal = true
	return nil
}

func (m *Memory) GetGeoCache(ctx context.Context, tenantID, address string) (model.GeoCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.geoCache[tenantID+"|"+address]
	if !ok {
		return model.GeoCacheEntry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) PutGeoCache(ctx context.Context, e model.GeoCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := e.TenantID + "|" + e.Address
	if _, exists := m.geoCache[key]; exists {
		return nil // first writer wins
	}
	m.geoCache[key] = e
	return nil
}

func (m *Memory) GetRouteCache(ctx context.Context, origin, dest model.GeoPoint) (model.RouteCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.routeCache[PointKey(origin)+"|"+PointKey(dest)]
	if !ok {
		return model.RouteCacheEntry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) PutRouteCache(ctx context.Context, e model.RouteCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := PointKey(e.Origin) + "|" + PointKey(e.Dest)
	if _, exists := m.routeCache[key]; exists {
		return nil
	}
	m.routeCache[key] = e
	return nil
}
