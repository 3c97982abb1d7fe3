package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		a, b             Coordinate
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name:             "Raffles Place to Changi Airport",
			a:                Coordinate{Lat: 1.2830, Lon: 103.8513},
			b:                Coordinate{Lat: 1.3644, Lon: 103.9915},
			wantMeters:       18_023,
			tolerancePercent: 1,
		},
		{
			name:             "Same point",
			a:                Coordinate{Lat: 1.3521, Lon: 103.8198},
			b:                Coordinate{Lat: 1.3521, Lon: 103.8198},
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name:             "London to Paris",
			a:                Coordinate{Lat: 51.5074, Lon: -0.1278},
			b:                Coordinate{Lat: 48.8566, Lon: 2.3522},
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
			reverse := Haversine(tt.b, tt.a)
			if reverse != got {
				t.Errorf("Haversine not symmetric: a->b=%f b->a=%f", got, reverse)
			}
		})
	}
}

func TestHaversineTriangleInequality(t *testing.T) {
	a := Coordinate{Lat: 1.30, Lon: 103.80}
	b := Coordinate{Lat: 1.35, Lon: 103.85}
	c := Coordinate{Lat: 1.40, Lon: 103.90}

	ac := Haversine(a, c)
	abbc := Haversine(a, b) + Haversine(b, c)
	if ac > abbc+1e-6 {
		t.Errorf("triangle inequality violated: ac=%f > ab+bc=%f", ac, abbc)
	}
}

func TestHaversineUpperBound(t *testing.T) {
	a := Coordinate{Lat: 0, Lon: 0}
	b := Coordinate{Lat: 0, Lon: 180}
	got := Haversine(a, b)
	maxDist := math.Pi * earthRadiusMeters
	if got > maxDist+1 {
		t.Errorf("Haversine exceeded pi*R: got %f, max %f", got, maxDist)
	}
}

func TestEquirectangularDist(t *testing.T) {
	a := Coordinate{Lat: 1.3521, Lon: 103.8198}
	b := Coordinate{Lat: 1.3600, Lon: 103.8300}

	h := Haversine(a, b)
	e := EquirectangularDist(a, b)

	diffPercent := math.Abs(h-e) / h * 100
	if diffPercent > 0.5 {
		t.Errorf("EquirectangularDist differs from Haversine by %.2f%% (haversine=%f, equirect=%f)", diffPercent, h, e)
	}
}

func TestPointToSegmentDist(t *testing.T) {
	tests := []struct {
		name       string
		p, a, b    Coordinate
		wantRatio  float64
		maxDistM   float64
	}{
		{
			name:      "Point at start of segment",
			p:         Coordinate{Lat: 1.3500, Lon: 103.8200},
			a:         Coordinate{Lat: 1.3500, Lon: 103.8200},
			b:         Coordinate{Lat: 1.3600, Lon: 103.8200},
			wantRatio: 0.0,
			maxDistM:  1,
		},
		{
			name:      "Point at end of segment",
			p:         Coordinate{Lat: 1.3600, Lon: 103.8200},
			a:         Coordinate{Lat: 1.3500, Lon: 103.8200},
			b:         Coordinate{Lat: 1.3600, Lon: 103.8200},
			wantRatio: 1.0,
			maxDistM:  1,
		},
		{
			name:      "Point at midpoint",
			p:         Coordinate{Lat: 1.3550, Lon: 103.8200},
			a:         Coordinate{Lat: 1.3500, Lon: 103.8200},
			b:         Coordinate{Lat: 1.3600, Lon: 103.8200},
			wantRatio: 0.5,
			maxDistM:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ratio := PointToSegmentDist(tt.p, tt.a, tt.b)
			if dist > tt.maxDistM {
				t.Errorf("dist = %f, want <= %f", dist, tt.maxDistM)
			}
			if math.Abs(ratio-tt.wantRatio) > 0.01 {
				t.Errorf("ratio = %f, want ~%f", ratio, tt.wantRatio)
			}
		})
	}
}

func TestDestinationPoint(t *testing.T) {
	start := Coordinate{Lat: 1.3521, Lon: 103.8198}
	dest := DestinationPoint(start, 10, 0) // due north, 10km
	if dest.Lat <= start.Lat {
		t.Errorf("heading north should increase latitude: start=%f dest=%f", start.Lat, dest.Lat)
	}
	gotKm := HaversineKm(start, dest)
	if math.Abs(gotKm-10) > 0.1 {
		t.Errorf("distance traveled = %fkm, want ~10km", gotKm)
	}
}

func TestDestinationPointLongitudeNormalization(t *testing.T) {
	start := Coordinate{Lat: 0, Lon: 179.9}
	dest := DestinationPoint(start, 50, math.Pi/2) // due east
	if dest.Lon < -180 || dest.Lon > 180 {
		t.Errorf("longitude not normalized: %f", dest.Lon)
	}
}

func TestBoundingBoxValidate(t *testing.T) {
	good := BoundingBox{MinLat: 0, MaxLat: 0.5, MinLon: 0, MaxLon: 0.5}
	if err := good.Validate(); err != nil {
		t.Errorf("expected valid box, got %v", err)
	}

	degenerate := BoundingBox{MinLat: 1, MaxLat: 1, MinLon: 0, MaxLon: 1}
	if err := degenerate.Validate(); err == nil {
		t.Error("expected error for degenerate box")
	}

	// ~222km x 222km box at the equator, well above the 10,000 km2 guard.
	tooLarge := BoundingBox{MinLat: 0, MaxLat: 2, MinLon: 0, MaxLon: 2}
	if err := tooLarge.Validate(); err == nil {
		t.Error("expected error for oversized box")
	}
}

func TestBoundingBoxCacheKeyStability(t *testing.T) {
	a := BoundingBox{MinLat: 45.9306, MaxLat: 45.9406, MinLon: 4.5779, MaxLon: 4.5879}
	b := BoundingBox{MinLat: 45.93061, MaxLat: 45.94061, MinLon: 4.57791, MaxLon: 4.58791}

	if a.CacheKey() != b.CacheKey() {
		t.Errorf("expected equal cache keys for near-identical boxes: %s vs %s", a.CacheKey(), b.CacheKey())
	}

	c := BoundingBox{MinLat: 10, MaxLat: 11, MinLon: 10, MaxLon: 11}
	if a.CacheKey() == c.CacheKey() {
		t.Error("expected distinct cache keys for distinct boxes")
	}
}

func TestFromRouteMargin(t *testing.T) {
	start := Coordinate{Lat: 1.30, Lon: 103.80}
	end := Coordinate{Lat: 1.35, Lon: 103.85}
	bbox := FromRoute(start, end, 5)

	if !bbox.Contains(start) || !bbox.Contains(end) {
		t.Error("bbox must contain both route endpoints")
	}
	if bbox.MinLat >= start.Lat || bbox.MaxLat <= end.Lat {
		t.Error("bbox must be padded beyond the route endpoints")
	}
}

func TestOverlappingTiles(t *testing.T) {
	bbox := BoundingBox{MinLat: 1.0, MaxLat: 1.2, MinLon: 103.0, MaxLon: 103.2}
	tiles := bbox.OverlappingTiles(20)
	if len(tiles) == 0 {
		t.Fatal("expected at least one overlapping tile")
	}
}
