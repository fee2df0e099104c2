package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"freightopt/internal/metrics"
	"freightopt/internal/model"
)

// OSRM is the self-hosted routing engine tier: low latency, no external quota.
type OSRM struct {
	BaseURL string
	HTTP    *http.Client
}

func NewOSRM(baseURL string, timeout time.Duration) *OSRM {
	return &OSRM{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

func (o *OSRM) Name() string { return "osrm" }

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

func (o *OSRM) Route(ctx context.Context, origin, dest model.GeoPoint) (Leg, error) {
	start := time.Now()
	defer func() { metrics.ProviderLatency.WithLabelValues(o.Name()).Observe(time.Since(start).Seconds()) }()

	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		o.BaseURL, origin.Lon, origin.Lat, dest.Lon, dest.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Leg{}, err
	}
	resp, err := o.HTTP.Do(req)
	if err != nil {
		return Leg{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Leg{}, fmt.Errorf("osrm: status %d", resp.StatusCode)
	}
	var decoded osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Leg{}, fmt.Errorf("osrm: decode: %w", err)
	}
	if decoded.Code != "Ok" || len(decoded.Routes) == 0 {
		return Leg{}, fmt.Errorf("osrm: no route (code=%s)", decoded.Code)
	}
	rt := decoded.Routes[0]
	path := make([]model.GeoPoint, 0, len(rt.Geometry.Coordinates))
	for _, c := range rt.Geometry.Coordinates {
		if len(c) == 2 {
			path = append(path, model.GeoPoint{Lat: c[1], Lon: c[0]})
		}
	}
	return Leg{DistanceKm: rt.Distance / 1000, DurationMin: rt.Duration / 60, Path: path}, nil
}
