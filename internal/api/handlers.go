package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"freightopt/internal/buildinfo"
	"freightopt/internal/model"
)

type sweepRequestIn struct {
	ShipmentDate string `json:"shipmentDate"`
	KMin         int    `json:"kMin,omitempty"`
	KMax         int    `json:"kMax,omitempty"`
	Force        bool   `json:"force,omitempty"`
}

// SweepsHandler accepts a sweep request and enqueues it for the worker pool.
func (s *Server) SweepsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(405)
		return
	}
	ctx, tenant := s.withTenant(r)
	var in sweepRequestIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if in.ShipmentDate == "" {
		writeProblem(w, 400, "Validation failed", "shipmentDate required", r.URL.Path)
		return
	}
	if _, err := time.Parse("2006-01-02", in.ShipmentDate); err != nil {
		writeProblem(w, 400, "Validation failed", "shipmentDate must be YYYY-MM-DD", r.URL.Path)
		return
	}
	if in.KMin < 0 || in.KMax < 0 || (in.KMax > 0 && in.KMin > in.KMax) {
		writeProblem(w, 400, "Validation failed", "kMin must not exceed kMax", r.URL.Path)
		return
	}
	req := model.SweepRequest{
		TenantID:     tenant,
		ShipmentDate: in.ShipmentDate,
		KMin:         in.KMin,
		KMax:         in.KMax,
		Force:        in.Force,
	}
	if err := s.Queue.Enqueue(ctx, req); err != nil {
		writeProblem(w, 500, "Enqueue failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 202, map[string]any{
		"status":       "queued",
		"tenantId":     tenant,
		"shipmentDate": in.ShipmentDate,
	})
}

// SweepResultsHandler lists all simulation rows for a date, optimum flagged.
func (s *Server) SweepResultsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(405)
		return
	}
	ctx, tenant := s.withTenant(r)
	date := r.URL.Query().Get("date")
	if date == "" {
		writeProblem(w, 400, "Validation failed", "date required", r.URL.Path)
		return
	}
	results, err := s.Store.ListSimulationResults(ctx, tenant, date)
	if err != nil {
		writeProblem(w, 500, "List results failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]any{"results": results})
}

// SweepOptimalHandler returns the marked optimum row for a date.
func (s *Server) SweepOptimalHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(405)
		return
	}
	ctx, tenant := s.withTenant(r)
	date := r.URL.Query().Get("date")
	if date == "" {
		writeProblem(w, 400, "Validation failed", "date required", r.URL.Path)
		return
	}
	results, err := s.Store.ListSimulationResults(ctx, tenant, date)
	if err != nil {
		writeProblem(w, 500, "List results failed", err.Error(), r.URL.Path)
		return
	}
	for _, res := range results {
		if res.IsOptimal {
			writeJSON(w, 200, res)
			return
		}
	}
	writeProblem(w, 404, "Not Found", "no optimum marked for date", r.URL.Path)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Info()
	info["status"] = "ok"
	writeJSON(w, 200, info)
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
