// Package costs folds routed sweep artifacts into the three cost components
// that drive optimum selection.
package costs

import "freightopt/internal/model"

// Tariffs is the validated pricing input for one aggregation.
type Tariffs struct {
	// Cluster handling: fixed daily cost below the minimum delivery count,
	// else per-delivery variable rate.
	ClusterMinDeliveries int
	ClusterFixedCost     float64
	ClusterVariableRate  float64

	Transfer []model.VehicleTariff
	LastMile []model.VehicleTariff
}

// Summary is one evaluated cost breakdown.
type Summary struct {
	ClusterCost  float64
	TransferCost float64
	LastMileCost float64
	TotalCost    float64
	// PctOfFreightValue is reporting-only; never part of optimum selection.
	PctOfFreightValue float64
}

// Aggregate computes the cost components. Transfer cost is charged once per
// route regardless of delivery count; last-mile routes are deduplicated by
// route id in case the source repeats a route row per delivery.
func Aggregate(clusters []model.Cluster, transfers []model.TransferRoute, lastmile []model.LastMileRoute, t Tariffs) Summary {
	s := Summary{}

	var freightValue float64
	for _, c := range clusters {
		freightValue += c.Value
		n := len(c.DeliveryIDs)
		if n == 0 {
			continue
		}
		if n < t.ClusterMinDeliveries {
			s.ClusterCost += t.ClusterFixedCost
		} else {
			s.ClusterCost += float64(n) * t.ClusterVariableRate
		}
	}

	transferRates := perKmRates(t.Transfer)
	for _, r := range transfers {
		s.TransferCost += r.DistanceKm * transferRates[r.VehicleClass]
	}

	lastMileRates := perKmRates(t.LastMile)
	perDelivery := perDeliveryRates(t.LastMile)
	seen := map[string]struct{}{}
	for _, r := range lastmile {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		s.LastMileCost += r.DistanceKm*lastMileRates[r.VehicleClass] + float64(len(r.DeliveryIDs))*perDelivery[r.VehicleClass]
	}

	s.TotalCost = s.ClusterCost + s.TransferCost + s.LastMileCost
	if freightValue > 0 {
		s.PctOfFreightValue = s.TotalCost / freightValue * 100
	}
	return s
}

func perKmRates(tariffs []model.VehicleTariff) map[string]float64 {
	out := make(map[string]float64, len(tariffs))
	for _, t := range tariffs {
		out[t.VehicleClass] = t.PerKmRate
	}
	return out
}

func perDeliveryRates(tariffs []model.VehicleTariff) map[string]float64 {
	out := make(map[string]float64, len(tariffs))
	for _, t := range tariffs {
		out[t.VehicleClass] = t.PerDeliveryRate
	}
	return out
}
