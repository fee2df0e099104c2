package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"freightopt/internal/model"
)

func TestNominatimGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" { t.Fatalf("path: %s", r.URL.Path) }
		if r.URL.Query().Get("q") != "rua x, 100" { t.Fatalf("q: %q", r.URL.Query().Get("q")) }
		if r.Header.Get("User-Agent") == "" { t.Fatal("missing User-Agent") }
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"-23.55","lon":"-46.63","address":{"city":"São Paulo"}}]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, 2*time.Second)
	res, err := n.Geocode(context.Background(), "rua x, 100")
	if err != nil { t.Fatalf("geocode: %v", err) }
	if !res.Found { t.Fatal("not found") }
	if res.Point.Lat != -23.55 || res.Point.Lon != -46.63 { t.Fatalf("point: %+v", res.Point) }
	if res.City != "São Paulo" { t.Fatalf("city: %q", res.City) }
}

func TestNominatimGeocodeNoHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	res, err := NewNominatim(srv.URL, time.Second).Geocode(context.Background(), "nowhere")
	if err != nil { t.Fatalf("geocode: %v", err) }
	if res.Found { t.Fatal("empty response reported as found") }
}

func TestNominatimReverseCityFallsBackToTown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" { t.Fatalf("path: %s", r.URL.Path) }
		_, _ = w.Write([]byte(`{"lat":"-22.7","lon":"-47.3","address":{"town":"Piracicaba"}}`))
	}))
	defer srv.Close()

	city, err := NewNominatim(srv.URL, time.Second).ReverseCity(context.Background(), model.GeoPoint{Lat: -22.7, Lon: -47.3})
	if err != nil { t.Fatalf("reverse: %v", err) }
	if city != "Piracicaba" { t.Fatalf("city: %q", city) }
}

func TestNominatimServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewNominatim(srv.URL, time.Second).Geocode(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 503")
	}
}
