package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"freightopt/internal/metrics"
	"freightopt/internal/model"
)

// Nominatim is the free-form open geocoder tier.
type Nominatim struct {
	BaseURL string
	HTTP    *http.Client
}

func NewNominatim(baseURL string, timeout time.Duration) *Nominatim {
	return &Nominatim{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

func (n *Nominatim) Name() string { return "nominatim" }

type nominatimHit struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

func (h nominatimHit) city() string {
	if h.Address.City != "" {
		return h.Address.City
	}
	if h.Address.Town != "" {
		return h.Address.Town
	}
	return h.Address.Village
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (Result, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("addressdetails", "1")
	var hits []nominatimHit
	if err := n.get(ctx, n.BaseURL+"/search?"+q.Encode(), &hits); err != nil {
		return Result{}, err
	}
	if len(hits) == 0 {
		return Result{}, nil
	}
	lat, err1 := strconv.ParseFloat(hits[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(hits[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return Result{}, fmt.Errorf("nominatim: bad coordinates %q,%q", hits[0].Lat, hits[0].Lon)
	}
	return Result{Point: model.GeoPoint{Lat: lat, Lon: lon}, City: hits[0].city(), Found: true}, nil
}

func (n *Nominatim) ReverseCity(ctx context.Context, p model.GeoPoint) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', 6, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	var hit nominatimHit
	if err := n.get(ctx, n.BaseURL+"/reverse?"+q.Encode(), &hit); err != nil {
		return "", err
	}
	return hit.city(), nil
}

func (n *Nominatim) get(ctx context.Context, u string, out any) error {
	start := time.Now()
	defer func() { metrics.ProviderLatency.WithLabelValues(n.Name()).Observe(time.Since(start).Seconds()) }()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "freightopt/1.0")
	resp, err := n.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
