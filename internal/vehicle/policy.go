// Package vehicle assigns a vehicle class to a routed load under weight and
// municipality restrictions.
package vehicle

import (
	"sort"

	"freightopt/internal/model"
)

// Policy is a pure, total allocation function: it never errors, only degrades
// to the largest eligible class, because an unrouted shipment is worse than an
// over-provisioned vehicle.
type Policy struct {
	// LightMaxKg splits the tariff table: classes whose capacity ceiling is at
	// or below the threshold are "light", the rest "heavy".
	LightMaxKg float64
	// LightRestricted forbids light classes on routes spanning more than one
	// city.
	LightRestricted bool
}

// Select picks the first class (ascending capacity) whose [MinKg, MaxKg]
// interval contains totalWeight among the eligible classes, falling back to
// the largest eligible class when none matches.
func (p Policy) Select(totalWeight float64, tariffs []model.VehicleTariff, multiCity bool) model.VehicleTariff {
	if len(tariffs) == 0 {
		return model.VehicleTariff{}
	}
	eligible := make([]model.VehicleTariff, 0, len(tariffs))
	heavyOnly := p.LightRestricted && multiCity
	for _, t := range tariffs {
		if heavyOnly && p.IsLight(t) {
			continue
		}
		eligible = append(eligible, t)
	}
	if len(eligible) == 0 {
		// every class is light and the route is restricted; degrade to the
		// largest class available rather than leave the load unrouted
		eligible = append(eligible, tariffs...)
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].MaxKg < eligible[j].MaxKg })
	for _, t := range eligible {
		if totalWeight >= t.MinKg && totalWeight <= t.MaxKg {
			return t
		}
	}
	return eligible[len(eligible)-1]
}

// IsLight reports whether the class belongs to the light partition.
func (p Policy) IsLight(t model.VehicleTariff) bool {
	return t.MaxKg <= p.LightMaxKg
}

// MaxCapacityKg returns the largest capacity ceiling in the table; zero for an
// empty table.
func MaxCapacityKg(tariffs []model.VehicleTariff) float64 {
	max := 0.0
	for _, t := range tariffs {
		if t.MaxKg > max {
			max = t.MaxKg
		}
	}
	return max
}
