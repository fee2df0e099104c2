package model

import "fmt"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HubClusterID is the sentinel id for the hub-centroid cluster. It keeps the
// hub's own coordinates and never goes through geo resolution.
const HubClusterID = 9999

// Delivery is one shipment record for a tenant/date. Owned by ingestion;
// read-only to the engine.
type Delivery struct {
	ID            string   `json:"id"`
	TenantID      string   `json:"tenantId"`
	ShipmentDate  string   `json:"shipmentDate"` // YYYY-MM-DD
	Address       string   `json:"address,omitempty"`
	Origin        GeoPoint `json:"origin"`
	Dest          GeoPoint `json:"dest"`
	WeightKg      float64  `json:"weightKg"`
	Volumes       int      `json:"volumes"`
	DeclaredValue float64  `json:"declaredValue,omitempty"`
	FreightValue  float64  `json:"freightValue,omitempty"`
	ClusterID     *int     `json:"clusterId,omitempty"` // nil until clustering runs
}

// Cluster is a geographic grouping of deliveries for one sweep iteration.
// Recreated on every iteration; never reused across k values.
type Cluster struct {
	ID           int      `json:"id"` // unique within (tenant, date, k)
	TenantID     string   `json:"tenantId"`
	ShipmentDate string   `json:"shipmentDate"`
	K            int      `json:"k"`
	Centroid     GeoPoint `json:"centroid"`
	City         string   `json:"city"` // "unknown" when resolution degraded
	WeightKg     float64  `json:"weightKg"`
	Volumes      int      `json:"volumes"`
	Value        float64  `json:"value"`
	DeliveryIDs  []string `json:"deliveryIds"`
}

// TransferRoute consolidates clusters into one middle-mile vehicle trip
// (hub -> clusters -> hub).
type TransferRoute struct {
	ID           string  `json:"id"`
	TenantID     string  `json:"tenantId"`
	ShipmentDate string  `json:"shipmentDate"`
	K            int     `json:"k"`
	VehicleClass string  `json:"vehicleClass"`
	ClusterIDs   []int   `json:"clusterIds"`
	WeightKg     float64 `json:"weightKg"`
	DistanceKm   float64 `json:"distanceKm"`
	DurationMin  float64 `json:"durationMin"`
	MultiCity    bool    `json:"multiCity"`
}

// LastMileRoute is one vehicle trip delivering inside a single cluster.
type LastMileRoute struct {
	ID           string   `json:"id"`
	TenantID     string   `json:"tenantId"`
	ShipmentDate string   `json:"shipmentDate"`
	K            int      `json:"k"`
	ClusterID    int      `json:"clusterId"`
	VehicleClass string   `json:"vehicleClass"`
	DeliveryIDs  []string `json:"deliveryIds"`
	WeightKg     float64  `json:"weightKg"`
	DistanceKm   float64  `json:"distanceKm"`
	DurationMin  float64  `json:"durationMin"`
}

// SimulationResult is one evaluated sweep point: the cost breakdown for a
// candidate k. At most one row per (tenant, date) carries IsOptimal.
type SimulationResult struct {
	TenantID       string  `json:"tenantId"`
	ShipmentDate   string  `json:"shipmentDate"`
	K              int     `json:"k"`
	ClusterCost    float64 `json:"clusterCost"`
	TransferCost   float64 `json:"transferCost"`
	LastMileCost   float64 `json:"lastMileCost"`
	TotalCost      float64 `json:"totalCost"`
	UnresolvedLegs int     `json:"unresolvedLegs,omitempty"`
	IsOptimal      bool    `json:"isOptimal"`
}

// SweepRequest is the unit of work accepted by the job queue.
type SweepRequest struct {
	TenantID     string `json:"tenantId"`
	ShipmentDate string `json:"shipmentDate"`
	KMin         int    `json:"kMin,omitempty"`
	KMax         int    `json:"kMax,omitempty"`
	Force        bool   `json:"force,omitempty"`
}

// Hub is the tenant's fixed origin for transfer routes.
type Hub struct {
	TenantID string   `json:"tenantId"`
	Name     string   `json:"name"`
	Location GeoPoint `json:"location"`
}

// Tariff contexts.
const (
	TariffTransfer = "transfer"
	TariffLastMile = "lastmile"
)

// VehicleTariff is a fixed vehicle-class record validated at load time.
type VehicleTariff struct {
	VehicleClass    string  `json:"vehicleClass"`
	MinKg           float64 `json:"minKg"`
	MaxKg           float64 `json:"maxKg"`
	PerKmRate       float64 `json:"perKmRate"`
	PerDeliveryRate float64 `json:"perDeliveryRate"`
}

// Validate rejects malformed tariff rows before they reach the policy.
func (t VehicleTariff) Validate() error {
	if t.VehicleClass == "" {
		return fmt.Errorf("tariff: empty vehicle class")
	}
	if t.MinKg < 0 || t.MaxKg <= 0 || t.MinKg >= t.MaxKg {
		return fmt.Errorf("tariff %s: invalid capacity interval [%g,%g]", t.VehicleClass, t.MinKg, t.MaxKg)
	}
	if t.PerKmRate < 0 || t.PerDeliveryRate < 0 {
		return fmt.Errorf("tariff %s: negative rate", t.VehicleClass)
	}
	return nil
}

// GeoCacheEntry is a persisted geocode result. Append-only; first writer wins.
type GeoCacheEntry struct {
	Address  string   `json:"address"` // normalized
	TenantID string   `json:"tenantId"`
	Point    GeoPoint `json:"point"`
	City     string   `json:"city,omitempty"`
	Provider string   `json:"provider"` // nominatim | google
}

// RouteCacheEntry is a persisted routing result for an (origin, dest) pair.
type RouteCacheEntry struct {
	Origin      GeoPoint   `json:"origin"`
	Dest        GeoPoint   `json:"dest"`
	DistanceKm  float64    `json:"distanceKm"`
	DurationMin float64    `json:"durationMin"`
	Path        []GeoPoint `json:"path,omitempty"`
	Provider    string     `json:"provider"` // osrm | google
}
