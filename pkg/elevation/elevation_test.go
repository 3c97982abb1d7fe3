package elevation

import (
	"context"
	"testing"

	"routecore/pkg/geo"
)

func TestNullProviderAlwaysFails(t *testing.T) {
	_, err := (NullProvider{}).Elevations(context.Background(), []geo.Coordinate{{Lat: 1, Lon: 1}})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func straightLinePath(n int) []geo.Coordinate {
	path := make([]geo.Coordinate, n)
	for i := range path {
		path[i] = geo.Coordinate{Lat: 0, Lon: float64(i) * 0.0001}
	}
	return path
}

func TestBuildProfileEmptyInput(t *testing.T) {
	p := BuildProfile(nil, nil)
	if len(p.Elevations) != 0 {
		t.Errorf("expected no elevations, got %v", p.Elevations)
	}
	if p.MinElev != nil || p.MaxElev != nil {
		t.Error("expected nil min/max for an empty profile")
	}
}

func TestBuildProfileSmoothsSpike(t *testing.T) {
	path := straightLinePath(4)
	raw := []float64{300, 305, 400, 307}
	p := BuildProfile(path, raw)
	if len(p.Elevations) != 4 {
		t.Fatalf("len(Elevations) = %d, want 4", len(p.Elevations))
	}
	if p.Elevations[2] >= 400 {
		t.Errorf("expected the spike at index 2 to be clamped below 400, got %f", p.Elevations[2])
	}
}

func TestBuildProfileComputesAscentDescent(t *testing.T) {
	path := straightLinePath(3)
	raw := []float64{100, 110, 90}
	p := BuildProfile(path, raw)
	if p.TotalAscent <= 0 {
		t.Errorf("expected positive ascent, got %f", p.TotalAscent)
	}
	if p.TotalDescent <= 0 {
		t.Errorf("expected positive descent, got %f", p.TotalDescent)
	}
}
