// Package cluster partitions delivery points into k centroid-based groups.
// The algorithm is deterministic: farthest-first seeding from the first point
// followed by Lloyd reassignment over great-circle distance, so repeated runs
// over the same delivery list produce identical assignments.
package cluster

import (
	"fmt"

	"freightopt/internal/model"
	"freightopt/internal/routing"
)

const maxIterations = 25

// Result maps every input point to a cluster and carries the final centroids.
type Result struct {
	Centroids []model.GeoPoint
	Assign    []int // Assign[i] is the cluster index of points[i]
}

// Partition groups points into k clusters. k is clamped to len(points).
func Partition(points []model.GeoPoint, k int) (Result, error) {
	n := len(points)
	if n == 0 {
		return Result{}, fmt.Errorf("cluster: no points")
	}
	if k < 1 {
		return Result{}, fmt.Errorf("cluster: k=%d", k)
	}
	if k > n {
		k = n
	}

	centroids := seedFarthestFirst(points, k)
	assign := make([]int, n)
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := 0
			bestD := routing.Haversine(p, centroids[0])
			for c := 1; c < k; c++ {
				if d := routing.Haversine(p, centroids[c]); d < bestD {
					bestD = d
					best = c
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recenter(points, assign, centroids)
	}
	return Result{Centroids: centroids, Assign: assign}, nil
}

// seedFarthestFirst picks the first point, then repeatedly the point farthest
// from all chosen seeds.
func seedFarthestFirst(points []model.GeoPoint, k int) []model.GeoPoint {
	n := len(points)
	seeds := []int{0}
	for len(seeds) < k {
		maxd := -1.0
		maxi := -1
		for i := 0; i < n; i++ {
			mind := -1.0
			for _, s := range seeds {
				d := routing.Haversine(points[i], points[s])
				if mind < 0 || d < mind {
					mind = d
				}
			}
			if mind > maxd {
				maxd = mind
				maxi = i
			}
		}
		seeds = append(seeds, maxi)
	}
	out := make([]model.GeoPoint, k)
	for i, s := range seeds {
		out[i] = points[s]
	}
	return out
}

func recenter(points []model.GeoPoint, assign []int, centroids []model.GeoPoint) {
	k := len(centroids)
	sumLat := make([]float64, k)
	sumLon := make([]float64, k)
	count := make([]int, k)
	for i, p := range points {
		c := assign[i]
		sumLat[c] += p.Lat
		sumLon[c] += p.Lon
		count[c]++
	}
	for c := 0; c < k; c++ {
		if count[c] == 0 {
			continue // empty cluster keeps its seed centroid
		}
		centroids[c] = model.GeoPoint{Lat: sumLat[c] / float64(count[c]), Lon: sumLon[c] / float64(count[c])}
	}
}
