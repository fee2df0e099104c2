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

// Google is the paid, higher-reliability geocoder tier, restricted to the
// operating country.
type Google struct {
	BaseURL string
	Key     string
	Country string
	HTTP    *http.Client
}

func NewGoogle(baseURL, key, country string, timeout time.Duration) *Google {
	return &Google{BaseURL: baseURL, Key: key, Country: country, HTTP: &http.Client{Timeout: timeout}}
}

func (g *Google) Name() string { return "google" }

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

func (g *Google) Geocode(ctx context.Context, address string) (Result, error) {
	q := url.Values{}
	q.Set("address", address)
	if g.Country != "" {
		q.Set("components", "country:"+g.Country)
	}
	q.Set("key", g.Key)
	var decoded googleGeocodeResponse
	if err := g.get(ctx, g.BaseURL+"?"+q.Encode(), &decoded); err != nil {
		return Result{}, err
	}
	if decoded.Status != "OK" || len(decoded.Results) == 0 {
		return Result{}, nil
	}
	loc := decoded.Results[0].Geometry.Location
	return Result{
		Point: model.GeoPoint{Lat: loc.Lat, Lon: loc.Lng},
		City:  locality(decoded),
		Found: true,
	}, nil
}

func (g *Google) ReverseCity(ctx context.Context, p model.GeoPoint) (string, error) {
	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(p.Lat, 'f', 6, 64)+","+strconv.FormatFloat(p.Lon, 'f', 6, 64))
	q.Set("key", g.Key)
	var decoded googleGeocodeResponse
	if err := g.get(ctx, g.BaseURL+"?"+q.Encode(), &decoded); err != nil {
		return "", err
	}
	if decoded.Status != "OK" {
		return "", nil
	}
	return locality(decoded), nil
}

func locality(r googleGeocodeResponse) string {
	for _, res := range r.Results {
		for _, c := range res.AddressComponents {
			for _, t := range c.Types {
				if t == "locality" || t == "administrative_area_level_2" {
					return c.LongName
				}
			}
		}
	}
	return ""
}

func (g *Google) get(ctx context.Context, u string, out any) error {
	start := time.Now()
	defer func() { metrics.ProviderLatency.WithLabelValues(g.Name()).Observe(time.Since(start).Seconds()) }()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google geocode: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
