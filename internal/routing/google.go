package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"freightopt/internal/metrics"
	"freightopt/internal/model"
)

// GoogleDirections is the quota-limited fallback tier. Every call waits on a
// shared token bucket; callers block rather than fail when over budget.
type GoogleDirections struct {
	BaseURL string
	Key     string
	HTTP    *http.Client
	limiter *rate.Limiter
}

// NewGoogleDirections builds the provider with an injected per-process token
// bucket (callsPerSec sustained, burst capacity burst).
func NewGoogleDirections(baseURL, key string, callsPerSec float64, burst int, timeout time.Duration) *GoogleDirections {
	if callsPerSec <= 0 {
		callsPerSec = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &GoogleDirections{
		BaseURL: baseURL,
		Key:     key,
		HTTP:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(callsPerSec), burst),
	}
}

func (g *GoogleDirections) Name() string { return "google_directions" }

type googleDirectionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"` // seconds
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

func (g *GoogleDirections) Route(ctx context.Context, origin, dest model.GeoPoint) (Leg, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Leg{}, err
	}
	start := time.Now()
	defer func() { metrics.ProviderLatency.WithLabelValues(g.Name()).Observe(time.Since(start).Seconds()) }()

	q := url.Values{}
	q.Set("origin", fmtPoint(origin))
	q.Set("destination", fmtPoint(dest))
	q.Set("key", g.Key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Leg{}, err
	}
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return Leg{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Leg{}, fmt.Errorf("google directions: status %d", resp.StatusCode)
	}
	var decoded googleDirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Leg{}, fmt.Errorf("google directions: decode: %w", err)
	}
	if decoded.Status != "OK" || len(decoded.Routes) == 0 || len(decoded.Routes[0].Legs) == 0 {
		return Leg{}, fmt.Errorf("google directions: no route (status=%s)", decoded.Status)
	}
	var distM, durS float64
	for _, l := range decoded.Routes[0].Legs {
		distM += l.Distance.Value
		durS += l.Duration.Value
	}
	return Leg{
		DistanceKm:  distM / 1000,
		DurationMin: durS / 60,
		Path:        []model.GeoPoint{origin, dest},
	}, nil
}

func fmtPoint(p model.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lon, 'f', 6, 64)
}
