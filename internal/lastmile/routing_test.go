package lastmile

import (
	"context"
	"math"
	"testing"

	"freightopt/internal/model"
	"freightopt/internal/routing"
	"freightopt/internal/store"
	"freightopt/internal/vehicle"
)

func lastMileTariffs() []model.VehicleTariff {
	return []model.VehicleTariff{
		{VehicleClass: "moto", MinKg: 0, MaxKg: 150, PerKmRate: 0.6, PerDeliveryRate: 2},
		{VehicleClass: "van", MinKg: 150, MaxKg: 1500, PerKmRate: 1.2, PerDeliveryRate: 3},
	}
}

func testEngine() *Engine {
	return &Engine{
		Routes: routing.NewResolver(store.NewMemory(), 30),
		Policy: vehicle.Policy{LightMaxKg: 3500, LightRestricted: true},
	}
}

func testCluster() model.Cluster {
	return model.Cluster{ID: 1, TenantID: "t1", ShipmentDate: "2026-09-01", K: 3, Centroid: model.GeoPoint{Lat: -23.55, Lon: -46.63}, City: "sao paulo"}
}

func makeDeliveries(n int, weightEach float64) []model.Delivery {
	out := make([]model.Delivery, n)
	for i := range out {
		out[i] = model.Delivery{
			ID:           string(rune('a' + i)),
			TenantID:     "t1",
			ShipmentDate: "2026-09-01",
			Dest:         model.GeoPoint{Lat: -23.55, Lon: -46.63 + float64(i)*0.01},
			WeightKg:     weightEach,
			Volumes:      1,
		}
	}
	return out
}

func TestRouteEveryDeliveryExactlyOnce(t *testing.T) {
	deliveries := makeDeliveries(7, 30)
	out, err := testEngine().Route(context.Background(), testCluster(), deliveries, lastMileTariffs(), Params{AvgSpeedKmh: 30, LightDwellMin: 5, HeavyDwellMin: 10, MaxRouteMin: 100000})
	if err != nil { t.Fatalf("route: %v", err) }
	seen := map[string]int{}
	for _, r := range out.Routes {
		for _, id := range r.DeliveryIDs {
			seen[id]++
		}
	}
	for _, d := range deliveries {
		if seen[d.ID] != 1 { t.Fatalf("delivery %s appears %d times", d.ID, seen[d.ID]) }
	}
}

func TestRouteSplitsOnCapacity(t *testing.T) {
	// 5 x 400kg against a 1500kg table maximum forces at least two trips
	out, err := testEngine().Route(context.Background(), testCluster(), makeDeliveries(5, 400), lastMileTariffs(), Params{AvgSpeedKmh: 30, MaxRouteMin: 100000})
	if err != nil { t.Fatalf("route: %v", err) }
	if len(out.Routes) < 2 { t.Fatalf("capacity ignored: %d routes", len(out.Routes)) }
	for _, r := range out.Routes {
		if r.WeightKg > 1500 { t.Fatalf("route over capacity: %.0f", r.WeightKg) }
	}
}

func TestRouteSplitsOnDuration(t *testing.T) {
	out, err := testEngine().Route(context.Background(), testCluster(), makeDeliveries(6, 5), lastMileTariffs(), Params{AvgSpeedKmh: 30, LightDwellMin: 5, HeavyDwellMin: 20, PerVolumeUnloadMin: 2, MaxRouteMin: 70})
	if err != nil { t.Fatalf("route: %v", err) }
	if len(out.Routes) < 2 { t.Fatalf("duration cap ignored: %d routes", len(out.Routes)) }
}

func TestRouteDwellFollowsVehicleClass(t *testing.T) {
	p := Params{AvgSpeedKmh: 30, LightDwellMin: 5, HeavyDwellMin: 10, MaxRouteMin: 100000}
	// light load: dwell must use the light constant
	out, err := testEngine().Route(context.Background(), testCluster(), makeDeliveries(2, 10), lastMileTariffs(), p)
	if err != nil { t.Fatalf("route: %v", err) }
	if len(out.Routes) != 1 { t.Fatalf("got %d routes", len(out.Routes)) }
	r := out.Routes[0]
	if r.VehicleClass != "moto" { t.Fatalf("class: %s", r.VehicleClass) }
	wantDwell := float64(len(r.DeliveryIDs)) * p.LightDwellMin
	travel := r.DistanceKm / p.AvgSpeedKmh * 60
	if got := r.DurationMin - travel; math.Abs(got-wantDwell) > 1e-6 { t.Fatalf("dwell: got %.1f, want %.1f", got, wantDwell) }
}

func TestRouteEmptyCluster(t *testing.T) {
	out, err := testEngine().Route(context.Background(), testCluster(), nil, lastMileTariffs(), Params{})
	if err != nil { t.Fatalf("route: %v", err) }
	if len(out.Routes) != 0 { t.Fatal("expected no routes") }
}

func TestRouteNoTariffsFails(t *testing.T) {
	if _, err := testEngine().Route(context.Background(), testCluster(), makeDeliveries(1, 10), nil, Params{}); err == nil {
		t.Fatal("expected error without tariffs")
	}
}

func TestHorseshoeOrdering(t *testing.T) {
	seq := horseshoe(makeDeliveries(5, 10)) // ids a..e sorted by lon ascending
	got := ""
	for _, d := range seq {
		got += d.ID
	}
	// even positions outbound (a,c,e), odd positions reversed on the way back (d,b)
	if got != "acedb" { t.Fatalf("sequence: %s", got) }
}
