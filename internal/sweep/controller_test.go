package sweep

import (
	"context"
	"fmt"
	"testing"

	"freightopt/internal/config"
	"freightopt/internal/geo"
	"freightopt/internal/model"
	"freightopt/internal/routing"
	"freightopt/internal/store"
)

const (
	testTenant = "t_test"
	testDate   = "2026-09-01"
)

func seedStore(t *testing.T, deliveries int) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	m.SetHub(model.Hub{TenantID: testTenant, Name: "CD Central", Location: model.GeoPoint{Lat: -23.55, Lon: -46.63}})
	m.SeedTariffs(testTenant, model.TariffTransfer, []model.VehicleTariff{
		{VehicleClass: "vuc", MinKg: 0, MaxKg: 3500, PerKmRate: 1.8},
		{VehicleClass: "truck", MinKg: 3500, MaxKg: 12000, PerKmRate: 2.9},
	})
	m.SeedTariffs(testTenant, model.TariffLastMile, []model.VehicleTariff{
		{VehicleClass: "moto", MinKg: 0, MaxKg: 150, PerKmRate: 0.6, PerDeliveryRate: 2},
		{VehicleClass: "van", MinKg: 150, MaxKg: 1500, PerKmRate: 1.2, PerDeliveryRate: 3},
	})
	ds := make([]model.Delivery, 0, deliveries)
	for i := 0; i < deliveries; i++ {
		// two towns, deliveries alternating between them
		base := model.GeoPoint{Lat: -23.5, Lon: -46.6}
		if i%2 == 1 {
			base = model.GeoPoint{Lat: -22.9, Lon: -47.06}
		}
		ds = append(ds, model.Delivery{
			ID:           fmt.Sprintf("d%03d", i),
			TenantID:     testTenant,
			ShipmentDate: testDate,
			Dest:         model.GeoPoint{Lat: base.Lat + float64(i)*0.001, Lon: base.Lon},
			WeightKg:     20,
			Volumes:      1,
			FreightValue: 500,
		})
	}
	m.SeedDeliveries(ds)
	return m
}

func newController(m *store.Memory) *Controller {
	return New(m, geo.NewResolver(m), routing.NewResolver(m, 40), config.Default().Sweep)
}

func TestRunSweepProducesOneOptimum(t *testing.T) {
	m := seedStore(t, 120)
	c := newController(m)

	results, err := c.Run(context.Background(), model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate, KMin: 2, KMax: 4})
	if err != nil { t.Fatalf("run: %v", err) }
	if len(results) != 3 { t.Fatalf("got %d rows, want 3", len(results)) }

	optimal := 0
	minCost := results[0].TotalCost
	for _, r := range results {
		if r.TotalCost <= 0 { t.Fatalf("k=%d has non-positive total %.2f", r.K, r.TotalCost) }
		if r.TotalCost < minCost {
			minCost = r.TotalCost
		}
		if r.IsOptimal {
			optimal++
		}
	}
	if optimal != 1 { t.Fatalf("got %d optimal rows, want 1", optimal) }
	for _, r := range results {
		if r.IsOptimal && r.TotalCost != minCost { t.Fatalf("optimum k=%d is not the cheapest", r.K) }
	}
}

func TestRunSweepSkipsExistingRows(t *testing.T) {
	m := seedStore(t, 30)
	c := newController(m)
	req := model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate, KMin: 2, KMax: 3}

	first, err := c.Run(context.Background(), req)
	if err != nil { t.Fatalf("first run: %v", err) }

	var stages []string
	c.Progress = func(e ProgressEvent) { stages = append(stages, e.Stage) }
	second, err := c.Run(context.Background(), req)
	if err != nil { t.Fatalf("second run: %v", err) }

	skipped := 0
	for _, s := range stages {
		if s == "k_skipped" {
			skipped++
		}
	}
	if skipped != 2 { t.Fatalf("got %d skipped iterations, want 2", skipped) }
	if len(first) != len(second) { t.Fatalf("row count changed: %d vs %d", len(first), len(second)) }
	for i := range first {
		if first[i].TotalCost != second[i].TotalCost { t.Fatalf("k=%d total changed on idempotent re-run", first[i].K) }
	}
}

func TestRunSweepForceReplacesOnlyRequestedK(t *testing.T) {
	m := seedStore(t, 30)
	c := newController(m)
	ctx := context.Background()

	if _, err := c.Run(ctx, model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate, KMin: 2, KMax: 4}); err != nil {
		t.Fatalf("initial run: %v", err)
	}
	results, err := c.Run(ctx, model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate, KMin: 3, KMax: 3, Force: true})
	if err != nil { t.Fatalf("forced run: %v", err) }
	if len(results) != 3 { t.Fatalf("rows outside the forced k were touched: %d rows", len(results)) }
	optimal := 0
	for _, r := range results {
		if r.IsOptimal {
			optimal++
		}
	}
	if optimal != 1 { t.Fatalf("got %d optimal rows after force", optimal) }
}

func TestRunSweepTieMarksSmallestK(t *testing.T) {
	m := seedStore(t, 10)
	c := newController(m)
	ctx := context.Background()

	// rows saved larger-k first; equal totals must still resolve to k=2
	for _, k := range []int{3, 2} {
		if err := m.SaveSimulationResult(ctx, model.SimulationResult{TenantID: testTenant, ShipmentDate: testDate, K: k, TotalCost: 100}); err != nil {
			t.Fatalf("save k=%d: %v", k, err)
		}
	}
	results, err := c.Run(ctx, model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate, KMin: 2, KMax: 3})
	if err != nil { t.Fatalf("run: %v", err) }
	for _, r := range results {
		if r.IsOptimal && r.K != 2 { t.Fatalf("tie resolved to k=%d, want 2", r.K) }
	}
	optimal := 0
	for _, r := range results {
		if r.IsOptimal {
			optimal++
		}
	}
	if optimal != 1 { t.Fatalf("got %d optimal rows", optimal) }
}

func TestRunSweepClampsKToDeliveryCount(t *testing.T) {
	m := seedStore(t, 5)
	c := newController(m)
	results, err := c.Run(context.Background(), model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate})
	if err != nil { t.Fatalf("run: %v", err) }
	if len(results) != 4 { t.Fatalf("got %d rows, want k=2..5", len(results)) }
	for _, r := range results {
		if r.K < 2 || r.K > 5 { t.Fatalf("unexpected k=%d", r.K) }
	}
}

func TestRunSweepNoDeliveries(t *testing.T) {
	m := store.NewMemory()
	m.SetHub(model.Hub{TenantID: testTenant, Location: model.GeoPoint{Lat: 0, Lon: 0}})
	c := newController(m)
	if _, err := c.Run(context.Background(), model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate}); err == nil {
		t.Fatal("expected error for empty delivery set")
	}
}

func TestRunSweepMissingHub(t *testing.T) {
	m := store.NewMemory()
	m.SeedDeliveries([]model.Delivery{
		{ID: "d1", TenantID: testTenant, ShipmentDate: testDate, Dest: model.GeoPoint{Lat: -23.5, Lon: -46.6}, WeightKg: 10},
		{ID: "d2", TenantID: testTenant, ShipmentDate: testDate, Dest: model.GeoPoint{Lat: -22.9, Lon: -47.0}, WeightKg: 10},
	})
	c := newController(m)
	if _, err := c.Run(context.Background(), model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate}); err == nil {
		t.Fatal("expected error for missing hub")
	}
}

func TestRunSweepValidatesRequest(t *testing.T) {
	c := newController(store.NewMemory())
	if _, err := c.Run(context.Background(), model.SweepRequest{}); err == nil { t.Fatal("expected validation error") }
}

func TestRunSweepCountsUnresolvedLegs(t *testing.T) {
	// no routing providers are configured, so every resolved pair within an
	// iteration degrades to an estimate and must be surfaced in the row
	m := seedStore(t, 20)
	c := newController(m)
	results, err := c.Run(context.Background(), model.SweepRequest{TenantID: testTenant, ShipmentDate: testDate, KMin: 2, KMax: 2})
	if err != nil { t.Fatalf("run: %v", err) }
	if len(results) != 1 { t.Fatalf("rows: %d", len(results)) }
	if results[0].UnresolvedLegs == 0 { t.Fatal("unresolved legs not counted") }
}

func TestRunSweepHubSentinelCluster(t *testing.T) {
	m := store.NewMemory()
	hub := model.Hub{TenantID: "t_other", Name: "CD Norte", Location: model.GeoPoint{Lat: -23.55, Lon: -46.63}}
	m.SetHub(hub)
	m.SeedTariffs("t_other", model.TariffTransfer, []model.VehicleTariff{{VehicleClass: "truck", MinKg: 0, MaxKg: 12000, PerKmRate: 2.9}})
	m.SeedTariffs("t_other", model.TariffLastMile, []model.VehicleTariff{{VehicleClass: "van", MinKg: 0, MaxKg: 1500, PerKmRate: 1.2}})
	ds := []model.Delivery{}
	// one pocket right at the hub, one far away
	for i := 0; i < 4; i++ {
		ds = append(ds, model.Delivery{ID: fmt.Sprintf("h%d", i), TenantID: "t_other", ShipmentDate: testDate, Dest: hub.Location, WeightKg: 10, Volumes: 1})
	}
	for i := 0; i < 4; i++ {
		ds = append(ds, model.Delivery{ID: fmt.Sprintf("f%d", i), TenantID: "t_other", ShipmentDate: testDate, Dest: model.GeoPoint{Lat: -22.9, Lon: -47.06}, WeightKg: 10, Volumes: 1})
	}
	m.SeedDeliveries(ds)

	c := newController(m)
	if _, err := c.Run(context.Background(), model.SweepRequest{TenantID: "t_other", ShipmentDate: testDate, KMin: 2, KMax: 2}); err != nil {
		t.Fatalf("run: %v", err)
	}
	// the hub-side cluster must carry the sentinel id and the hub's name
	found := false
	for _, cl := range m.ClustersFor("t_other", testDate, 2) {
		if cl.ID == model.HubClusterID {
			found = true
			if cl.City != hub.Name { t.Fatalf("sentinel city: %q", cl.City) }
			if cl.Centroid != hub.Location { t.Fatalf("sentinel centroid moved: %+v", cl.Centroid) }
		}
	}
	if !found { t.Fatal("no sentinel cluster produced for hub-side pocket") }
}

func TestRunSweepSentinelAssignedOnce(t *testing.T) {
	m := store.NewMemory()
	hub := model.Hub{TenantID: "t_twin", Name: "CD Sul", Location: model.GeoPoint{Lat: -23.55, Lon: -46.63}}
	m.SetHub(hub)
	m.SeedTariffs("t_twin", model.TariffTransfer, []model.VehicleTariff{{VehicleClass: "truck", MinKg: 0, MaxKg: 12000, PerKmRate: 2.9}})
	m.SeedTariffs("t_twin", model.TariffLastMile, []model.VehicleTariff{{VehicleClass: "van", MinKg: 0, MaxKg: 1500, PerKmRate: 1.2}})
	ds := []model.Delivery{}
	// two tight pockets, both within the 500 m hub radius; with k=2 both
	// centroids land next to the hub and only one may take the sentinel id
	for i := 0; i < 4; i++ {
		ds = append(ds, model.Delivery{ID: fmt.Sprintf("a%d", i), TenantID: "t_twin", ShipmentDate: testDate, Dest: model.GeoPoint{Lat: hub.Location.Lat + 0.002, Lon: hub.Location.Lon}, WeightKg: 10, Volumes: 1})
	}
	for i := 0; i < 4; i++ {
		ds = append(ds, model.Delivery{ID: fmt.Sprintf("b%d", i), TenantID: "t_twin", ShipmentDate: testDate, Dest: model.GeoPoint{Lat: hub.Location.Lat - 0.002, Lon: hub.Location.Lon}, WeightKg: 10, Volumes: 1})
	}
	m.SeedDeliveries(ds)

	c := newController(m)
	if _, err := c.Run(context.Background(), model.SweepRequest{TenantID: "t_twin", ShipmentDate: testDate, KMin: 2, KMax: 2}); err != nil {
		t.Fatalf("run: %v", err)
	}
	clusters := m.ClustersFor("t_twin", testDate, 2)
	if len(clusters) != 2 { t.Fatalf("got %d clusters, want 2", len(clusters)) }
	sentinels := 0
	for _, cl := range clusters {
		if cl.ID == model.HubClusterID {
			sentinels++
		}
	}
	if sentinels != 1 { t.Fatalf("got %d sentinel clusters, want 1", sentinels) }
}
