package api

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"freightopt/internal/config"
	"freightopt/internal/geo"
	"freightopt/internal/jobs"
	"freightopt/internal/routing"
	"freightopt/internal/store"
	"freightopt/internal/sweep"
)

type Server struct {
	Store      store.Store
	Queue      jobs.Queue
	Broker     EventBroker
	Controller *sweep.Controller
	Cfg        config.Config
}

// NewServer wires store, queue, broker and the sweep controller from config.
// Without DATABASE_URL the in-memory store is used; without REDIS_URL the
// queue and broker stay in-process.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.MigrateDir("db/migrations"); err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var q jobs.Queue
	var broker EventBroker
	if cfg.RedisURL != "" {
		rq, err := jobs.NewRedisQueue(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		q = rq
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		broker = rb
	} else {
		q = jobs.NewMemoryQueue(0)
		broker = NewBroker()
	}

	timeout := time.Duration(cfg.Geo.TimeoutSec) * time.Second
	geoProviders := []geo.Provider{geo.NewNominatim(cfg.Geo.NominatimURL, timeout)}
	if cfg.Geo.GoogleKey != "" {
		geoProviders = append(geoProviders, geo.NewGoogle(cfg.Geo.GoogleURL, cfg.Geo.GoogleKey, cfg.Geo.Country, timeout))
	}
	routeTimeout := time.Duration(cfg.Routing.TimeoutSec) * time.Second
	routeProviders := []routing.Provider{routing.NewOSRM(cfg.Routing.OSRMURL, routeTimeout)}
	if cfg.Routing.GoogleKey != "" {
		routeProviders = append(routeProviders,
			routing.NewGoogleDirections(cfg.Routing.GoogleURL, cfg.Routing.GoogleKey, cfg.Routing.RatePerSec, cfg.Routing.RateBurst, routeTimeout))
	}

	ctrl := sweep.New(s,
		geo.NewResolver(s, geoProviders...),
		routing.NewResolver(s, cfg.Routing.AvgSpeedKmh, routeProviders...),
		cfg.Sweep)
	ctrl.Progress = func(evt sweep.ProgressEvent) {
		broker.Publish(EventKey(evt.TenantID, evt.ShipmentDate), evt)
	}

	return &Server{Store: s, Queue: q, Broker: broker, Controller: ctrl, Cfg: cfg}, nil
}

// NewSweepWorker creates the background pool that drains the sweep queue.
func (s *Server) NewSweepWorker() *jobs.Worker {
	return jobs.NewWorker(s.Queue, s.Controller, s.Cfg.Sweep.Workers)
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	// For now, get tenant from header; in production decode from JWT.
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}
