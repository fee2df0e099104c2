// Package transfer packs geographic clusters into middle-mile routes bound by
// vehicle capacity and a round-trip time budget from the tenant's hub.
package transfer

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"freightopt/internal/model"
	"freightopt/internal/routing"
	"freightopt/internal/vehicle"
)

// Params caps one transfer route.
type Params struct {
	MaxWeightKg float64
	MaxRouteMin float64
}

// Engine groups clusters using the route cache for hub round-trip times and
// the allocation policy for the vehicle class of each closed route.
type Engine struct {
	Routes *routing.Resolver
	Policy vehicle.Policy
}

// Outcome is the grouping result plus degradation diagnostics.
type Outcome struct {
	Routes         []model.TransferRoute
	UnresolvedLegs int
}

// Group packs clusters into routes with a single-pass greedy heuristic: keep
// an open route and append the next cluster while both budgets hold, else
// close and start a new one. Clusters are visited in id-ascending order so the
// packing is deterministic for a given input set. Every input cluster lands in
// exactly one route; the pass never backtracks and does not minimize route
// count.
func (e *Engine) Group(ctx context.Context, clusters []model.Cluster, hub model.Hub, tariffs []model.VehicleTariff, p Params) (Outcome, error) {
	if len(clusters) == 0 {
		return Outcome{}, nil
	}
	if len(tariffs) == 0 {
		return Outcome{}, fmt.Errorf("transfer: no vehicle tariffs for tenant %s", hub.TenantID)
	}

	ordered := append([]model.Cluster(nil), clusters...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	out := Outcome{}
	var open []model.Cluster
	var openWeight, openMin, openKm float64

	flush := func() {
		if len(open) == 0 {
			return
		}
		out.Routes = append(out.Routes, e.closeRoute(open, tariffs, openWeight, openKm, openMin))
		open = nil
		openWeight, openMin, openKm = 0, 0, 0
	}

	for _, c := range ordered {
		leg := e.Routes.Resolve(ctx, hub.Location, c.Centroid)
		if !leg.Resolved {
			out.UnresolvedLegs++
		}
		tripMin := leg.DurationMin * 2
		tripKm := leg.DistanceKm * 2
		if len(open) > 0 && (openWeight+c.WeightKg > p.MaxWeightKg || openMin+tripMin > p.MaxRouteMin) {
			flush()
		}
		open = append(open, c)
		openWeight += c.WeightKg
		openMin += tripMin
		openKm += tripKm
	}
	flush()
	return out, nil
}

func (e *Engine) closeRoute(members []model.Cluster, tariffs []model.VehicleTariff, weight, km, min float64) model.TransferRoute {
	cities := map[string]struct{}{}
	ids := make([]int, 0, len(members))
	for _, c := range members {
		ids = append(ids, c.ID)
		if c.City != "" && c.City != "unknown" {
			cities[c.City] = struct{}{}
		}
	}
	multiCity := len(cities) > 1
	class := e.Policy.Select(weight, tariffs, multiCity)
	first := members[0]
	return model.TransferRoute{
		ID:           uuid.New().String(),
		TenantID:     first.TenantID,
		ShipmentDate: first.ShipmentDate,
		K:            first.K,
		VehicleClass: class.VehicleClass,
		ClusterIDs:   ids,
		WeightKg:     weight,
		DistanceKm:   km,
		DurationMin:  min,
		MultiCity:    multiCity,
	}
}
