// Package sweep drives the k-sweep: for each candidate cluster count it runs
// clustering, transfer grouping, last-mile routing and cost aggregation, then
// marks the cheapest evaluated k as the optimal point.
package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	"freightopt/internal/cluster"
	"freightopt/internal/config"
	"freightopt/internal/costs"
	"freightopt/internal/geo"
	"freightopt/internal/lastmile"
	"freightopt/internal/metrics"
	"freightopt/internal/model"
	"freightopt/internal/routing"
	"freightopt/internal/store"
	"freightopt/internal/transfer"
	"freightopt/internal/vehicle"
)

// hubRadiusKm is the co-location threshold under which a cluster centroid is
// treated as the hub itself and gets the sentinel id.
const hubRadiusKm = 0.5

// ProgressEvent reports sweep progress to an optional observer.
type ProgressEvent struct {
	TenantID     string `json:"tenantId"`
	ShipmentDate string `json:"shipmentDate"`
	K            int    `json:"k,omitempty"`
	Stage        string `json:"stage"` // started, k_done, k_skipped, k_failed, done, failed
	Err          string `json:"err,omitempty"`
}

// Controller orchestrates one sweep per Run call. A single sweep's
// k-iterations execute sequentially; concurrency happens across sweeps in the
// job workers.
type Controller struct {
	Store  store.Store
	Geo    *geo.Resolver
	Routes *routing.Resolver
	Cfg    config.Sweep

	// Progress, when set, receives stage events. Must not block.
	Progress func(ProgressEvent)
}

func New(st store.Store, g *geo.Resolver, r *routing.Resolver, cfg config.Sweep) *Controller {
	return &Controller{Store: st, Geo: g, Routes: r, Cfg: cfg}
}

// Run evaluates each k in the requested range and returns all result rows for
// the (tenant, date) with exactly one optimum marked. Existing rows are
// skipped unless Force; with Force the requested k rows are replaced
// atomically per k. If every k fails the sweep reports total failure and no
// optimum is marked.
func (c *Controller) Run(ctx context.Context, req model.SweepRequest) ([]model.SimulationResult, error) {
	if req.TenantID == "" || req.ShipmentDate == "" {
		return nil, fmt.Errorf("sweep: tenant and date required")
	}
	start := time.Now()
	c.notify(ProgressEvent{TenantID: req.TenantID, ShipmentDate: req.ShipmentDate, Stage: "started"})

	deliveries, err := c.Store.ListDeliveries(ctx, req.TenantID, req.ShipmentDate)
	if err != nil {
		return c.fail(req, err)
	}
	if len(deliveries) == 0 {
		return c.fail(req, fmt.Errorf("sweep: no deliveries for %s/%s", req.TenantID, req.ShipmentDate))
	}
	hub, err := c.Store.GetHub(ctx, req.TenantID)
	if err != nil {
		return c.fail(req, fmt.Errorf("sweep: hub for %s: %w", req.TenantID, err))
	}
	transferTariffs, err := c.Store.ListVehicleTariffs(ctx, req.TenantID, model.TariffTransfer)
	if err != nil {
		return c.fail(req, err)
	}
	lastMileTariffs, err := c.Store.ListVehicleTariffs(ctx, req.TenantID, model.TariffLastMile)
	if err != nil {
		return c.fail(req, err)
	}

	kMin, kMax := c.kRange(req, len(deliveries))
	if kMin > kMax {
		return c.fail(req, fmt.Errorf("sweep: empty k range [%d,%d]", kMin, kMax))
	}

	evaluated := 0
	failed := 0
	for k := kMin; k <= kMax; k++ {
		if !req.Force {
			exists, err := c.Store.HasSimulationResult(ctx, req.TenantID, req.ShipmentDate, k)
			if err != nil {
				return c.fail(req, err)
			}
			if exists {
				evaluated++
				c.notify(ProgressEvent{TenantID: req.TenantID, ShipmentDate: req.ShipmentDate, K: k, Stage: "k_skipped"})
				continue
			}
		} else {
			if err := c.Store.DeleteSweepIteration(ctx, req.TenantID, req.ShipmentDate, k); err != nil {
				return c.fail(req, err)
			}
		}
		if err := c.evaluateK(ctx, req, k, deliveries, hub, transferTariffs, lastMileTariffs); err != nil {
			failed++
			log.Printf("sweep %s/%s k=%d failed: %v", req.TenantID, req.ShipmentDate, k, err)
			c.notify(ProgressEvent{TenantID: req.TenantID, ShipmentDate: req.ShipmentDate, K: k, Stage: "k_failed", Err: err.Error()})
			continue
		}
		evaluated++
		c.notify(ProgressEvent{TenantID: req.TenantID, ShipmentDate: req.ShipmentDate, K: k, Stage: "k_done"})
	}

	results, err := c.Store.ListSimulationResults(ctx, req.TenantID, req.ShipmentDate)
	if err != nil {
		return c.fail(req, err)
	}
	if len(results) == 0 {
		metrics.Sweeps.WithLabelValues("failed").Inc()
		c.notify(ProgressEvent{TenantID: req.TenantID, ShipmentDate: req.ShipmentDate, Stage: "failed", Err: "all k failed"})
		return nil, fmt.Errorf("sweep: all k in [%d,%d] failed for %s/%s", kMin, kMax, req.TenantID, req.ShipmentDate)
	}

	// argmin over total cost; results are k-ascending so ties keep smallest k
	best := results[0]
	for _, r := range results[1:] {
		if r.TotalCost < best.TotalCost {
			best = r
		}
	}
	if err := c.Store.MarkOptimal(ctx, req.TenantID, req.ShipmentDate, best.K); err != nil {
		return c.fail(req, fmt.Errorf("sweep: mark optimal k=%d: %w", best.K, err))
	}

	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	metrics.Sweeps.WithLabelValues(outcome).Inc()
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	c.notify(ProgressEvent{TenantID: req.TenantID, ShipmentDate: req.ShipmentDate, K: best.K, Stage: "done"})
	log.Printf("sweep %s/%s done: evaluated=%d failed=%d optimal_k=%d", req.TenantID, req.ShipmentDate, evaluated, failed, best.K)

	return c.Store.ListSimulationResults(ctx, req.TenantID, req.ShipmentDate)
}

func (c *Controller) kRange(req model.SweepRequest, deliveryCount int) (int, int) {
	kMin := req.KMin
	if kMin < 2 {
		kMin = 2
	}
	kMax := req.KMax
	if kMax <= 0 {
		kMax = c.Cfg.KMax
	}
	if kMax <= 0 {
		kMax = 10
	}
	if kMax > deliveryCount {
		kMax = deliveryCount
	}
	return kMin, kMax
}

// evaluateK runs one full iteration: partition, resolve, group, route, cost,
// persist. Any error isolates to this k.
func (c *Controller) evaluateK(ctx context.Context, req model.SweepRequest, k int, deliveries []model.Delivery, hub model.Hub, transferTariffs, lastMileTariffs []model.VehicleTariff) error {
	points := make([]model.GeoPoint, len(deliveries))
	for i, d := range deliveries {
		points[i] = d.Dest
	}
	part, err := cluster.Partition(points, k)
	if err != nil {
		return err
	}

	clusters, members := c.buildClusters(req, k, deliveries, part, hub)
	c.resolveCities(ctx, clusters, hub, req.TenantID)
	if err := c.Store.SaveClusters(ctx, clusters); err != nil {
		return err
	}

	policy := vehicle.Policy{LightMaxKg: c.Cfg.LightMaxKg, LightRestricted: c.Cfg.LightRestricted}
	grouping := &transfer.Engine{Routes: c.Routes, Policy: policy}
	grouped, err := grouping.Group(ctx, clusters, hub, transferTariffs, transfer.Params{
		MaxWeightKg: c.Cfg.MaxTransferWeightKg,
		MaxRouteMin: c.Cfg.MaxTransferMin,
	})
	if err != nil {
		return err
	}
	if err := c.Store.SaveTransferRoutes(ctx, grouped.Routes); err != nil {
		return err
	}

	lm := &lastmile.Engine{Routes: c.Routes, Policy: policy}
	lmParams := lastmile.Params{
		AvgSpeedKmh:        c.Cfg.AvgSpeedKmh,
		LightDwellMin:      c.Cfg.LightDwellMin,
		HeavyDwellMin:      c.Cfg.HeavyDwellMin,
		PerVolumeUnloadMin: c.Cfg.PerVolumeUnloadMin,
		MaxRouteMin:        c.Cfg.MaxLastMileMin,
	}
	var lmRoutes []model.LastMileRoute
	unresolved := grouped.UnresolvedLegs
	for i, cl := range clusters {
		routed, err := lm.Route(ctx, cl, members[i], lastMileTariffs, lmParams)
		if err != nil {
			return err
		}
		lmRoutes = append(lmRoutes, routed.Routes...)
		unresolved += routed.UnresolvedLegs
	}
	if err := c.Store.SaveLastMileRoutes(ctx, lmRoutes); err != nil {
		return err
	}

	summary := costs.Aggregate(clusters, grouped.Routes, lmRoutes, costs.Tariffs{
		ClusterMinDeliveries: c.Cfg.ClusterMinDeliveries,
		ClusterFixedCost:     c.Cfg.ClusterFixedCost,
		ClusterVariableRate:  c.Cfg.ClusterVariableRate,
		Transfer:             transferTariffs,
		LastMile:             lastMileTariffs,
	})
	return c.Store.SaveSimulationResult(ctx, model.SimulationResult{
		TenantID:       req.TenantID,
		ShipmentDate:   req.ShipmentDate,
		K:              k,
		ClusterCost:    summary.ClusterCost,
		TransferCost:   summary.TransferCost,
		LastMileCost:   summary.LastMileCost,
		TotalCost:      summary.TotalCost,
		UnresolvedLegs: unresolved,
	})
}

// buildClusters aggregates deliveries per partition and returns clusters plus
// the parallel member slices. A cluster co-located with the hub is relabelled
// to the sentinel id and keeps the hub's coordinates.
func (c *Controller) buildClusters(req model.SweepRequest, k int, deliveries []model.Delivery, part cluster.Result, hub model.Hub) ([]model.Cluster, [][]model.Delivery) {
	n := len(part.Centroids)
	clusters := make([]model.Cluster, n)
	members := make([][]model.Delivery, n)
	// at most one sentinel; ids are unique within (tenant, date, k)
	sentinelTaken := false
	for i := range clusters {
		id := i + 1
		centroid := part.Centroids[i]
		if !sentinelTaken && routing.Haversine(centroid, hub.Location) <= hubRadiusKm {
			id = model.HubClusterID
			centroid = hub.Location
			sentinelTaken = true
		}
		clusters[i] = model.Cluster{
			ID:           id,
			TenantID:     req.TenantID,
			ShipmentDate: req.ShipmentDate,
			K:            k,
			Centroid:     centroid,
		}
	}
	for i, d := range deliveries {
		ci := part.Assign[i]
		clusters[ci].WeightKg += d.WeightKg
		clusters[ci].Volumes += d.Volumes
		clusters[ci].Value += d.FreightValue
		clusters[ci].DeliveryIDs = append(clusters[ci].DeliveryIDs, d.ID)
		members[ci] = append(members[ci], d)
	}
	return clusters, members
}

// resolveCities labels each cluster via the geo cache. The hub sentinel
// bypasses resolution; failed resolution degrades to "unknown" with the
// numeric centroid kept.
func (c *Controller) resolveCities(ctx context.Context, clusters []model.Cluster, hub model.Hub, tenantID string) {
	for i := range clusters {
		if clusters[i].ID == model.HubClusterID {
			clusters[i].City = hub.Name
			continue
		}
		if city, ok := c.Geo.ResolveCity(ctx, clusters[i].Centroid, tenantID); ok {
			clusters[i].City = city
		} else {
			clusters[i].City = "unknown"
		}
	}
}

func (c *Controller) fail(req model.SweepRequest, err error) ([]model.SimulationResult, error) {
	metrics.Sweeps.WithLabelValues("failed").Inc()
	c.notify(ProgressEvent{TenantID: req.TenantID, ShipmentDate: req.ShipmentDate, Stage: "failed", Err: err.Error()})
	return nil, err
}

func (c *Controller) notify(e ProgressEvent) {
	if c.Progress != nil {
		c.Progress(e)
	}
}
