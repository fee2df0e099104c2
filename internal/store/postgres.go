package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"freightopt/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies every .sql file in dir in lexical order (dev helper).
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil { return err }
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") { names = append(names, e.Name()) }
	}
	sort.Strings(names)
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil { return err }
		if _, err := p.db.Exec(string(data)); err != nil { return fmt.Errorf("migrate %s: %w", n, err) }
	}
	return nil
}

func (p *Postgres) ListDeliveries(ctx context.Context, tenantID, date string) ([]model.Delivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, address, origin_lat, origin_lon, dest_lat, dest_lon, weight_kg, volumes, declared_value, freight_value, cluster_id
		FROM deliveries WHERE tenant_id=$1 AND shipment_date=$2 ORDER BY id`, tenantID, date)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []model.Delivery{}
	for rows.Next() {
		d := model.Delivery{TenantID: tenantID, ShipmentDate: date}
		var addr sql.NullString
		var cl sql.NullInt64
		if err := rows.Scan(&d.ID, &addr, &d.Origin.Lat, &d.Origin.Lon, &d.Dest.Lat, &d.Dest.Lon, &d.WeightKg, &d.Volumes, &d.DeclaredValue, &d.FreightValue, &cl); err != nil { return nil, err }
		d.Address = addr.String
		if cl.Valid { v := int(cl.Int64); d.ClusterID = &v }
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) ListVehicleTariffs(ctx context.Context, tenantID, tariffCtx string) ([]model.VehicleTariff, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT vehicle_class, min_kg, max_kg, per_km_rate, per_delivery_rate
		FROM vehicle_tariffs WHERE tenant_id=$1 AND context=$2 ORDER BY max_kg`, tenantID, tariffCtx)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []model.VehicleTariff{}
	for rows.Next() {
		var t model.VehicleTariff
		if err := rows.Scan(&t.VehicleClass, &t.MinKg, &t.MaxKg, &t.PerKmRate, &t.PerDeliveryRate); err != nil { return nil, err }
		if err := t.Validate(); err != nil { return nil, err }
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) GetHub(ctx context.Context, tenantID string) (model.Hub, error) {
	h := model.Hub{TenantID: tenantID}
	err := p.db.QueryRowContext(ctx, `SELECT name, lat, lon FROM hubs WHERE tenant_id=$1`, tenantID).Scan(&h.Name, &h.Location.Lat, &h.Location.Lon)
	if errors.Is(err, sql.ErrNoRows) { return h, ErrNotFound }
	return h, err
}

func (p *Postgres) SaveClusters(ctx context.Context, clusters []model.Cluster) error {
	if len(clusters) == 0 { return nil }
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil { return err }
	defer func() { _ = tx.Rollback() }()
	for _, c := range clusters {
		_, err := tx.ExecContext(ctx, `INSERT INTO clusters (tenant_id, shipment_date, k, id, centroid_lat, centroid_lon, city, weight_kg, volumes, value, delivery_ids)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			c.TenantID, c.ShipmentDate, c.K, c.ID, c.Centroid.Lat, c.Centroid.Lon, c.City, c.WeightKg, c.Volumes, c.Value, toJSON(c.DeliveryIDs))
		if err != nil { return err }
	}
	return tx.Commit()
}

func (p *Postgres) SaveTransferRoutes(ctx context.Context, routes []model.TransferRoute) error {
	if len(routes) == 0 { return nil }
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil { return err }
	defer func() { _ = tx.Rollback() }()
	for _, r := range routes {
		_, err := tx.ExecContext(ctx, `INSERT INTO transfer_routes (id, tenant_id, shipment_date, k, vehicle_class, cluster_ids, weight_kg, distance_km, duration_min, multi_city)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			r.ID, r.TenantID, r.ShipmentDate, r.K, r.VehicleClass, toJSON(r.ClusterIDs), r.WeightKg, r.DistanceKm, r.DurationMin, r.MultiCity)
		if err != nil { return err }
	}
	return tx.Commit()
}

func (p *Postgres) SaveLastMileRoutes(ctx context.Context, routes []model.LastMileRoute) error {
	if len(routes) == 0 { return nil }
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil { return err }
	defer func() { _ = tx.Rollback() }()
	for _, r := range routes {
		_, err := tx.ExecContext(ctx, `INSERT INTO lastmile_routes (id, tenant_id, shipment_date, k, cluster_id, vehicle_class, delivery_ids, weight_kg, distance_km, duration_min)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			r.ID, r.TenantID, r.ShipmentDate, r.K, r.ClusterID, r.VehicleClass, toJSON(r.DeliveryIDs), r.WeightKg, r.DistanceKm, r.DurationMin)
		if err != nil { return err }
	}
	return tx.Commit()
}

func (p *Postgres) HasSimulationResult(ctx context.Context, tenantID, date string, k int) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM simulation_results WHERE tenant_id=$1 AND shipment_date=$2 AND k=$3`, tenantID, date, k).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) { return false, nil }
	if err != nil { return false, err }
	return true, nil
}

func (p *Postgres) SaveSimulationResult(ctx context.Context, res model.SimulationResult) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO simulation_results (tenant_id, shipment_date, k, cluster_cost, transfer_cost, lastmile_cost, total_cost, unresolved_legs, is_optimal)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,false)
		ON CONFLICT (tenant_id, shipment_date, k) DO UPDATE SET
		  cluster_cost=$4, transfer_cost=$5, lastmile_cost=$6, total_cost=$7, unresolved_legs=$8, created_at=now()`,
		res.TenantID, res.ShipmentDate, res.K, res.ClusterCost, res.TransferCost, res.LastMileCost, res.TotalCost, res.UnresolvedLegs)
	return err
}

// DeleteSweepIteration removes all artifacts for one (tenant, date, k) in a
// single transaction so a forced re-run never observes a half-deleted state.
func (p *Postgres) DeleteSweepIteration(ctx context.Context, tenantID, date string, k int) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil { return err }
	defer func() { _ = tx.Rollback() }()
	for _, table := range []string{"lastmile_routes", "transfer_routes", "clusters", "simulation_results"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tenant_id=$1 AND shipment_date=$2 AND k=$3`, tenantID, date, k); err != nil { return err }
	}
	return tx.Commit()
}

func (p *Postgres) ListSimulationResults(ctx context.Context, tenantID, date string) ([]model.SimulationResult, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT k, cluster_cost, transfer_cost, lastmile_cost, total_cost, unresolved_legs, is_optimal
		FROM simulation_results WHERE tenant_id=$1 AND shipment_date=$2 ORDER BY k`, tenantID, date)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []model.SimulationResult{}
	for rows.Next() {
		r := model.SimulationResult{TenantID: tenantID, ShipmentDate: date}
		if err := rows.Scan(&r.K, &r.ClusterCost, &r.TransferCost, &r.LastMileCost, &r.TotalCost, &r.UnresolvedLegs, &r.IsOptimal); err != nil { return nil, err }
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkOptimal flips the optimum flag in one transaction: clear, then set.
// Concurrent readers of (tenant, date) never observe two optimal rows.
func (p *Postgres) MarkOptimal(ctx context.Context, tenantID, date string, k int) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil { return err }
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `UPDATE simulation_results SET is_optimal=false WHERE tenant_id=$1 AND shipment_date=$2 AND is_optimal`, tenantID, date); err != nil { return err }
	res, err := tx.ExecContext(ctx, `UPDATE simulation_results SET is_optimal=true WHERE tenant_id=$1 AND shipment_date=$2 AND k=$3`, tenantID, date, k)
	if err != nil { return err }
	if n, err := res.RowsAffected(); err == nil && n == 0 { return ErrNotFound }
	return tx.Commit()
}

func (p *Postgres) GetGeoCache(ctx context.Context, tenantID, address string) (model.GeoCacheEntry, error) {
	e := model.GeoCacheEntry{TenantID: tenantID, Address: address}
	var city sql.NullString
	err := p.db.QueryRowContext(ctx, `SELECT lat, lon, city, provider FROM geo_cache WHERE tenant_id=$1 AND address=$2`, tenantID, address).
		Scan(&e.Point.Lat, &e.Point.Lon, &city, &e.Provider)
	if errors.Is(err, sql.ErrNoRows) { return e, ErrNotFound }
	e.City = city.String
	return e, err
}

func (p *Postgres) PutGeoCache(ctx context.Context, e model.GeoCacheEntry) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO geo_cache (tenant_id, address, lat, lon, city, provider)
		VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (tenant_id, address) DO NOTHING`,
		e.TenantID, e.Address, e.Point.Lat, e.Point.Lon, nullIfEmpty(e.City), e.Provider)
	return err
}

func (p *Postgres) GetRouteCache(ctx context.Context, origin, dest model.GeoPoint) (model.RouteCacheEntry, error) {
	e := model.RouteCacheEntry{Origin: origin, Dest: dest}
	var path []byte
	err := p.db.QueryRowContext(ctx, `SELECT distance_km, duration_min, path, provider FROM route_cache WHERE origin_key=$1 AND dest_key=$2`,
		PointKey(origin), PointKey(dest)).Scan(&e.DistanceKm, &e.DurationMin, &path, &e.Provider)
	if errors.Is(err, sql.ErrNoRows) { return e, ErrNotFound }
	if err != nil { return e, err }
	if len(path) > 0 { _ = json.Unmarshal(path, &e.Path) }
	return e, nil
}

func (p *Postgres) PutRouteCache(ctx context.Context, e model.RouteCacheEntry) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO route_cache (origin_key, dest_key, origin_lat, origin_lon, dest_lat, dest_lon, distance_km, duration_min, path, provider)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) ON CONFLICT (origin_key, dest_key) DO NOTHING`,
		PointKey(e.Origin), PointKey(e.Dest), e.Origin.Lat, e.Origin.Lon, e.Dest.Lat, e.Dest.Lon, e.DistanceKm, e.DurationMin, toJSON(e.Path), e.Provider)
	return err
}

// PointKey renders a coordinate to a stable cache key. Five decimals keeps
// ~1m resolution, enough to dedupe repeated centroid lookups.
func PointKey(p model.GeoPoint) string {
	return fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lon)
}

func toJSON(v any) []byte {
	if v == nil { return nil }
	b, _ := json.Marshal(v)
	return b
}

func nullIfEmpty(s string) any {
	if s == "" { return nil }
	return s
}
