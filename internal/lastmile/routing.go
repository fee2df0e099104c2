// Package lastmile sequences deliveries inside one cluster into vehicle trips
// using a horseshoe sweep: stops sorted along the primary coordinate axis,
// one alternating subset visited outward and the complement on the way back.
// It approximates a short tour without solving a TSP.
package lastmile

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"freightopt/internal/model"
	"freightopt/internal/routing"
	"freightopt/internal/vehicle"
)

// Params is the time/capacity model for last-mile trips.
type Params struct {
	AvgSpeedKmh        float64
	LightDwellMin      float64 // per-stop dwell for light vehicle classes
	HeavyDwellMin      float64 // per-stop dwell for heavy vehicle classes
	PerVolumeUnloadMin float64
	MaxRouteMin        float64
}

// Engine builds last-mile routes for a cluster.
type Engine struct {
	Routes *routing.Resolver
	Policy vehicle.Policy
}

// Outcome carries the built routes plus degradation diagnostics.
type Outcome struct {
	Routes         []model.LastMileRoute
	UnresolvedLegs int
}

// Route sequences the cluster's deliveries and splits them into sub-routes at
// the capacity and duration caps. Each sub-route gets its vehicle class from
// the allocation policy (a cluster is single-city by construction, so the
// multi-city restriction never applies here).
func (e *Engine) Route(ctx context.Context, cl model.Cluster, deliveries []model.Delivery, tariffs []model.VehicleTariff, p Params) (Outcome, error) {
	if len(deliveries) == 0 {
		return Outcome{}, nil
	}
	if len(tariffs) == 0 {
		return Outcome{}, fmt.Errorf("lastmile: no vehicle tariffs for cluster %d", cl.ID)
	}
	if p.AvgSpeedKmh <= 0 {
		p.AvgSpeedKmh = 30
	}

	seq := horseshoe(deliveries)
	capKg := vehicle.MaxCapacityKg(tariffs)

	out := Outcome{}
	var open []model.Delivery
	var openKm float64
	prev := cl.Centroid

	closeRoute := func() {
		if len(open) == 0 {
			return
		}
		// close the loop back to the centroid
		back := e.Routes.Resolve(ctx, prev, cl.Centroid)
		if !back.Resolved {
			out.UnresolvedLegs++
		}
		out.Routes = append(out.Routes, e.buildRoute(cl, open, openKm+back.DistanceKm, tariffs, p))
		open = nil
		openKm = 0
		prev = cl.Centroid
	}

	for _, d := range seq {
		leg := e.Routes.Resolve(ctx, prev, d.Dest)
		if !leg.Resolved {
			out.UnresolvedLegs++
		}
		if len(open) > 0 && e.wouldExceed(open, openKm+leg.DistanceKm, d, capKg, p) {
			closeRoute()
			leg = e.Routes.Resolve(ctx, prev, d.Dest)
			if !leg.Resolved {
				out.UnresolvedLegs++
			}
		}
		open = append(open, d)
		openKm += leg.DistanceKm
		prev = d.Dest
	}
	closeRoute()
	return out, nil
}

// horseshoe orders stops by longitude, then interleaves: even positions on
// the outbound leg, odd positions reversed on the return leg.
func horseshoe(deliveries []model.Delivery) []model.Delivery {
	sorted := append([]model.Delivery(nil), deliveries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Dest.Lon != sorted[j].Dest.Lon {
			return sorted[i].Dest.Lon < sorted[j].Dest.Lon
		}
		return sorted[i].ID < sorted[j].ID
	})
	var outbound, back []model.Delivery
	for i, d := range sorted {
		if i%2 == 0 {
			outbound = append(outbound, d)
		} else {
			back = append(back, d)
		}
	}
	for i, j := 0, len(back)-1; i < j; i, j = i+1, j-1 {
		back[i], back[j] = back[j], back[i]
	}
	return append(outbound, back...)
}

func (e *Engine) wouldExceed(open []model.Delivery, km float64, next model.Delivery, capKg float64, p Params) bool {
	weight := next.WeightKg
	volumes := next.Volumes
	for _, d := range open {
		weight += d.WeightKg
		volumes += d.Volumes
	}
	if capKg > 0 && weight > capKg {
		return true
	}
	// conservative duration check with the heavy dwell constant
	dur := km/p.AvgSpeedKmh*60 + float64(len(open)+1)*p.HeavyDwellMin + float64(volumes)*p.PerVolumeUnloadMin
	return p.MaxRouteMin > 0 && dur > p.MaxRouteMin
}

func (e *Engine) buildRoute(cl model.Cluster, members []model.Delivery, km float64, tariffs []model.VehicleTariff, p Params) model.LastMileRoute {
	var weight float64
	var volumes int
	ids := make([]string, 0, len(members))
	for _, d := range members {
		weight += d.WeightKg
		volumes += d.Volumes
		ids = append(ids, d.ID)
	}
	class := e.Policy.Select(weight, tariffs, false)
	dwell := p.HeavyDwellMin
	if e.Policy.IsLight(class) {
		dwell = p.LightDwellMin
	}
	duration := km/p.AvgSpeedKmh*60 + float64(len(members))*dwell + float64(volumes)*p.PerVolumeUnloadMin
	return model.LastMileRoute{
		ID:           uuid.New().String(),
		TenantID:     cl.TenantID,
		ShipmentDate: cl.ShipmentDate,
		K:            cl.K,
		ClusterID:    cl.ID,
		VehicleClass: class.VehicleClass,
		DeliveryIDs:  ids,
		WeightKg:     weight,
		DistanceKm:   km,
		DurationMin:  duration,
	}
}
