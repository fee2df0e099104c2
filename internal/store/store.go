package store

import (
	"context"
	"errors"

	"freightopt/internal/model"
)

// Store is the persistence interface used by the sweep engine. Deliveries,
// tariffs and hubs are written by external ingestion/administration; the
// engine only reads them. Everything else is engine-owned.
type Store interface {
	// External collaborator reads
	ListDeliveries(ctx context.Context, tenantID, date string) ([]model.Delivery, error)
	ListVehicleTariffs(ctx context.Context, tenantID, tariffCtx string) ([]model.VehicleTariff, error)
	GetHub(ctx context.Context, tenantID string) (model.Hub, error)

	// Sweep artifacts, keyed by (tenant, date, k)
	SaveClusters(ctx context.Context, clusters []model.Cluster) error
	SaveTransferRoutes(ctx context.Context, routes []model.TransferRoute) error
	SaveLastMileRoutes(ctx context.Context, routes []model.LastMileRoute) error

	// Simulation results
	HasSimulationResult(ctx context.Context, tenantID, date string, k int) (bool, error)
	SaveSimulationResult(ctx context.Context, res model.SimulationResult) error
	DeleteSweepIteration(ctx context.Context, tenantID, date string, k int) error
	ListSimulationResults(ctx context.Context, tenantID, date string) ([]model.SimulationResult, error)
	// MarkOptimal clears any previous optimum for (tenant, date) and sets k's
	// row, atomically with respect to concurrent readers.
	MarkOptimal(ctx context.Context, tenantID, date string, k int) error

	// Shared resolution caches; Put uses first-writer-wins semantics and never
	// errors on a key race.
	GetGeoCache(ctx context.Context, tenantID, address string) (model.GeoCacheEntry, error)
	PutGeoCache(ctx context.Context, e model.GeoCacheEntry) error
	GetRouteCache(ctx context.Context, origin, dest model.GeoPoint) (model.RouteCacheEntry, error)
	PutRouteCache(ctx context.Context, e model.RouteCacheEntry) error
}

var ErrNotFound = errors.New("not found")
