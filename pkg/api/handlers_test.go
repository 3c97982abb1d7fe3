package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"routecore/pkg/cache"
	"routecore/pkg/elevation"
	"routecore/pkg/geo"
	gr "routecore/pkg/graph"
)

// squareGraph mirrors the routing package's test fixture: a 4-node square
// with two alternative paths between opposite corners.
func squareGraph() *gr.GraphFile {
	return &gr.GraphFile{
		Nodes: []gr.NodeRecord{
			{ID: 1, Lat: 1.000, Lon: 103.000},
			{ID: 2, Lat: 1.000, Lon: 103.010},
			{ID: 3, Lat: 1.010, Lon: 103.010},
			{ID: 4, Lat: 1.010, Lon: 103.000},
		},
		Edges: []gr.EdgeRecord{
			{From: 1, To: 2, Surface: gr.Paved, LengthM: 1112},
			{From: 2, To: 3, Surface: gr.Paved, LengthM: 1112},
			{From: 1, To: 4, Surface: gr.Dirt, LengthM: 1112},
			{From: 4, To: 3, Surface: gr.Dirt, LengthM: 1112},
		},
	}
}

func primedHandlers(t *testing.T) *Handlers {
	t.Helper()
	store, err := cache.NewStore(4, t.TempDir(), "", "")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	gf := squareGraph()
	start := geo.Coordinate{Lat: 1.000, Lon: 103.000}
	end := geo.Coordinate{Lat: 1.010, Lon: 103.010}
	bbox := geo.FromWaypoints([]geo.Coordinate{start, end}, routeMarginKm)
	store.Prime(bbox, gf)
	return NewHandlers(store, elevation.NullProvider{})
}

func TestHandleRouteSuccess(t *testing.T) {
	h := primedHandlers(t)

	body := `{"waypoints":[{"lat":1.000,"lon":103.000},{"lat":1.010,"lon":103.010}]}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	var resp RouteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DistanceKm <= 0 {
		t.Errorf("DistanceKm = %f, want > 0", resp.DistanceKm)
	}
	if len(resp.Path) < 3 {
		t.Errorf("Path length = %d, want >= 3", len(resp.Path))
	}
}

func TestHandleRouteInvalidJSON(t *testing.T) {
	h := primedHandlers(t)

	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteMissingContentType(t *testing.T) {
	h := primedHandlers(t)

	body := `{"waypoints":[{"lat":1.0,"lon":103.0},{"lat":1.01,"lon":103.01}]}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteOutOfBounds(t *testing.T) {
	h := primedHandlers(t)

	body := `{"waypoints":[{"lat":91.0,"lon":103.0},{"lat":1.01,"lon":103.01}]}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteSingleWaypointRejected(t *testing.T) {
	h := primedHandlers(t)

	body := `{"waypoints":[{"lat":1.0,"lon":103.0}]}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteNoRouteToIsolatedPoint(t *testing.T) {
	h := primedHandlers(t)

	body := `{"waypoints":[{"lat":1.000,"lon":103.000},{"lat":5.0,"lon":110.0}]}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 400 (bad bbox) or 404 (no route)", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	h := primedHandlers(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want 'ok'", resp.Status)
	}
}
