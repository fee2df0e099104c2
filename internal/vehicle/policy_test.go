package vehicle

import (
	"testing"

	"freightopt/internal/model"
)

func testTariffs() []model.VehicleTariff {
	return []model.VehicleTariff{
		{VehicleClass: "van", MinKg: 0, MaxKg: 1500, PerKmRate: 1.2},
		{VehicleClass: "vuc", MinKg: 1500, MaxKg: 3500, PerKmRate: 1.8},
		{VehicleClass: "truck", MinKg: 3500, MaxKg: 12000, PerKmRate: 2.9},
	}
}

func TestSelectByWeight(t *testing.T) {
	p := Policy{LightMaxKg: 3500, LightRestricted: true}
	got := p.Select(800, testTariffs(), false)
	if got.VehicleClass != "van" { t.Fatalf("got %s, want van", got.VehicleClass) }
	got = p.Select(2000, testTariffs(), false)
	if got.VehicleClass != "vuc" { t.Fatalf("got %s, want vuc", got.VehicleClass) }
	got = p.Select(9000, testTariffs(), false)
	if got.VehicleClass != "truck" { t.Fatalf("got %s, want truck", got.VehicleClass) }
}

func TestSelectMultiCityNeverLight(t *testing.T) {
	p := Policy{LightMaxKg: 3500, LightRestricted: true}
	for _, w := range []float64{100, 800, 2000, 3400} {
		got := p.Select(w, testTariffs(), true)
		if p.IsLight(got) { t.Fatalf("weight %.0f multi-city: got light class %s", w, got.VehicleClass) }
	}
}

func TestSelectOverCapacityDegrades(t *testing.T) {
	p := Policy{LightMaxKg: 3500}
	got := p.Select(20000, testTariffs(), false)
	if got.VehicleClass != "truck" { t.Fatalf("got %s, want largest class", got.VehicleClass) }
}

func TestSelectAllLightRestricted(t *testing.T) {
	p := Policy{LightMaxKg: 3500, LightRestricted: true}
	light := []model.VehicleTariff{
		{VehicleClass: "van", MinKg: 0, MaxKg: 1500, PerKmRate: 1.2},
		{VehicleClass: "vuc", MinKg: 1500, MaxKg: 3500, PerKmRate: 1.8},
	}
	got := p.Select(1000, light, true)
	if got.VehicleClass == "" { t.Fatal("expected a degraded class, got none") }
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	p := Policy{LightMaxKg: 3500, LightRestricted: true}
	// descending capacity, all light: the restricted fallback must not
	// reorder the caller's slice
	tariffs := []model.VehicleTariff{
		{VehicleClass: "vuc", MinKg: 1500, MaxKg: 3500, PerKmRate: 1.8},
		{VehicleClass: "van", MinKg: 0, MaxKg: 1500, PerKmRate: 1.2},
	}
	_ = p.Select(1000, tariffs, true)
	if tariffs[0].VehicleClass != "vuc" || tariffs[1].VehicleClass != "van" {
		t.Fatalf("input slice reordered: %+v", tariffs)
	}
}

func TestMaxCapacityKg(t *testing.T) {
	if got := MaxCapacityKg(testTariffs()); got != 12000 { t.Fatalf("got %.0f, want 12000", got) }
	if got := MaxCapacityKg(nil); got != 0 { t.Fatalf("got %.0f, want 0", got) }
}
