package graph

import (
	"testing"

	"routecore/pkg/geo"
	"routecore/pkg/pbf"
	"routecore/pkg/routeerr"
)

func straightWayFixture() *pbf.FilteredData {
	// A single residential way with one intersection endpoint shared by a
	// second way, and one pass-through shape node that should collapse
	// into a waypoint rather than a graph node.
	return &pbf.FilteredData{
		Nodes: map[int64]pbf.NodeInfo{
			1: {Lat: 1.000, Lon: 103.000},
			2: {Lat: 1.0005, Lon: 103.0005}, // shape point, not an intersection
			3: {Lat: 1.001, Lon: 103.001},
			4: {Lat: 1.002, Lon: 103.002},
		},
		Ways: []pbf.WayInfo{
			{ID: 10, NodeIDs: []int64{1, 2, 3}, Tags: map[string]string{"highway": "residential"}},
			{ID: 11, NodeIDs: []int64{3, 4}, Tags: map[string]string{"highway": "residential"}},
		},
	}
}

func TestAssembleCollapsesShapePoints(t *testing.T) {
	gf, err := Assemble(straightWayFixture())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	// Node 2 is a shape point only: 3 graph nodes expected (1, 3, 4), not 4.
	if len(gf.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(gf.Nodes))
	}
	if len(gf.Edges) != 2 {
		t.Fatalf("len(Edges) = %d, want 2", len(gf.Edges))
	}

	var foundWaypointEdge bool
	for _, e := range gf.Edges {
		if len(e.Waypoints) == 1 {
			foundWaypointEdge = true
			wp := e.Waypoints[0]
			if wp.Lat != 1.0005 || wp.Lon != 103.0005 {
				t.Errorf("unexpected waypoint coordinate: %+v", wp)
			}
		}
	}
	if !foundWaypointEdge {
		t.Error("expected one edge carrying the collapsed shape point as a waypoint")
	}
}

func TestAssembleNodeIDsAreDenseAndOneBased(t *testing.T) {
	gf, err := Assemble(straightWayFixture())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if err := gf.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	for i, n := range gf.Nodes {
		if n.ID != uint64(i+1) {
			t.Errorf("node %d has id %d, want %d", i, n.ID, i+1)
		}
	}
}

func TestAssembleEdgeLengthMatchesPolylineSum(t *testing.T) {
	gf, err := Assemble(straightWayFixture())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	byNode := make(map[uint64]geo.Coordinate)
	for _, n := range gf.Nodes {
		byNode[n.ID] = n.Coordinate()
	}
	for _, e := range gf.Edges {
		full := append([]geo.Coordinate{byNode[e.From]}, e.Waypoints...)
		full = append(full, byNode[e.To])
		var want float64
		for i := 0; i+1 < len(full); i++ {
			want += geo.Haversine(full[i], full[i+1])
		}
		if diff := e.LengthM - want; diff > 1 || diff < -1 {
			t.Errorf("edge %d->%d LengthM = %f, want %f", e.From, e.To, e.LengthM, want)
		}
	}
}

func TestAssembleDiscardsInadmissibleHighway(t *testing.T) {
	data := &pbf.FilteredData{
		Nodes: map[int64]pbf.NodeInfo{1: {Lat: 1, Lon: 1}, 2: {Lat: 1.01, Lon: 1.01}},
		Ways: []pbf.WayInfo{
			{ID: 1, NodeIDs: []int64{1, 2}, Tags: map[string]string{"highway": "motorway"}},
		},
	}
	_, err := Assemble(data)
	if !routeerr.Is(err, routeerr.EmptyGraph) {
		t.Errorf("expected EmptyGraph for an all-inadmissible input, got %v", err)
	}
}

func TestInferSurfaceFromSurfaceTag(t *testing.T) {
	cases := map[string]SurfaceType{
		"gravel": Trail,
		"dirt":   Dirt,
		"asphalt": Paved,
	}
	for surface, want := range cases {
		got := inferSurface(map[string]string{"highway": "residential", "surface": surface})
		if got != want {
			t.Errorf("inferSurface(surface=%s) = %s, want %s", surface, got, want)
		}
	}
}

func TestInferSurfaceFromHighwayClass(t *testing.T) {
	cases := map[string]SurfaceType{
		"path":        Trail,
		"residential": Paved,
		"unclassified": Trail,
	}
	for highway, want := range cases {
		got := inferSurface(map[string]string{"highway": highway})
		if got != want {
			t.Errorf("inferSurface(highway=%s) = %s, want %s", highway, got, want)
		}
	}
}

func TestLargestComponentSize(t *testing.T) {
	gf := &GraphFile{
		Nodes: []NodeRecord{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		Edges: []EdgeRecord{{From: 1, To: 2}, {From: 3, To: 4}},
	}
	got := largestComponentSize(4, gf)
	if got != 2 {
		t.Errorf("largestComponentSize = %d, want 2", got)
	}
}
