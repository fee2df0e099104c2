package cluster

import (
	"reflect"
	"testing"

	"freightopt/internal/model"
)

func twoTownPoints() []model.GeoPoint {
	// two tight groups ~100km apart
	var pts []model.GeoPoint
	for i := 0; i < 6; i++ {
		pts = append(pts, model.GeoPoint{Lat: -23.5 + float64(i)*0.01, Lon: -46.6})
	}
	for i := 0; i < 6; i++ {
		pts = append(pts, model.GeoPoint{Lat: -22.9 + float64(i)*0.01, Lon: -47.1})
	}
	return pts
}

func TestPartitionSeparatesGroups(t *testing.T) {
	res, err := Partition(twoTownPoints(), 2)
	if err != nil { t.Fatalf("partition: %v", err) }
	if len(res.Centroids) != 2 { t.Fatalf("got %d centroids", len(res.Centroids)) }
	first := res.Assign[0]
	for i := 1; i < 6; i++ {
		if res.Assign[i] != first { t.Fatalf("point %d split from its group", i) }
	}
	second := res.Assign[6]
	if second == first { t.Fatal("groups not separated") }
	for i := 7; i < 12; i++ {
		if res.Assign[i] != second { t.Fatalf("point %d split from its group", i) }
	}
}

func TestPartitionDeterministic(t *testing.T) {
	a, err := Partition(twoTownPoints(), 3)
	if err != nil { t.Fatalf("partition: %v", err) }
	b, err := Partition(twoTownPoints(), 3)
	if err != nil { t.Fatalf("partition: %v", err) }
	if !reflect.DeepEqual(a, b) { t.Fatal("same input produced different partitions") }
}

func TestPartitionClampsK(t *testing.T) {
	pts := twoTownPoints()[:3]
	res, err := Partition(pts, 10)
	if err != nil { t.Fatalf("partition: %v", err) }
	if len(res.Centroids) != 3 { t.Fatalf("k not clamped: %d centroids", len(res.Centroids)) }
}

func TestPartitionRejectsBadInput(t *testing.T) {
	if _, err := Partition(nil, 2); err == nil { t.Fatal("expected error for no points") }
	if _, err := Partition(twoTownPoints(), 0); err == nil { t.Fatal("expected error for k=0") }
}
