package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"routecore/pkg/cache"
	"routecore/pkg/elevation"
	"routecore/pkg/geo"
	loopgen "routecore/pkg/loop"
	"routecore/pkg/routeerr"
	"routecore/pkg/routing"
)

// routeMarginKm is the bbox padding applied around a route/waypoint
// request, per SPEC_FULL.md §6's "~5 km margin".
const routeMarginKm = 5.0

// Handlers holds the HTTP handlers and their core dependencies: the graph
// cache and the elevation oracle. A fresh routing.Engine is built per
// request from whatever GraphFile the cache resolves — engines are cheap
// relative to the PBF/assembly work the cache already absorbs.
type Handlers struct {
	store *cache.Store
	elev  elevation.Provider
}

// NewHandlers creates handlers with the given cache store and elevation
// provider.
func NewHandlers(store *cache.Store, elev elevation.Provider) *Handlers {
	return &Handlers{store: store, elev: elev}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if len(req.Waypoints) < 2 {
		writeError(w, http.StatusBadRequest, "at_least_two_waypoints_required")
		return
	}

	waypoints := make([]geo.Coordinate, len(req.Waypoints))
	for i, c := range req.Waypoints {
		if err := validateCoord(c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates")
			return
		}
		waypoints[i] = geo.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}

	bbox := geo.FromWaypoints(waypoints, routeMarginKm)
	if err := bbox.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_bounding_box")
		return
	}

	gf, err := h.store.Load(r.Context(), bbox)
	if err != nil {
		writeRouteErr(w, err)
		return
	}
	engine, err := routing.NewEngine(gf)
	if err != nil {
		writeRouteErr(w, err)
		return
	}

	result, err := engine.Route(r.Context(), routing.RouteRequest{
		Waypoints: waypoints,
		CloseLoop: req.CloseLoop,
		Weights:   weightsFrom(req.WPop, req.WPaved),
	})
	if err != nil {
		writeRouteErr(w, err)
		return
	}

	resp := RouteResponse{Path: toJSONCoords(result.Path), DistanceKm: result.DistanceKm}
	if raw, err := h.elev.Elevations(r.Context(), result.Path); err == nil {
		profile := elevation.BuildProfile(result.Path, raw)
		resp.ElevationProfile = toJSONProfile(profile)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleLoop handles POST /api/v1/loop.
func (h *Handlers) HandleLoop(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	var req LoopRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates")
		return
	}

	start := geo.Coordinate{Lat: req.Start.Lat, Lon: req.Start.Lon}
	radiusKm := req.TargetDistanceKm/1.5 + routeMarginKm
	bbox := geo.BBoxFromCenter(start, radiusKm)
	if err := bbox.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_bounding_box")
		return
	}

	gf, err := h.store.Load(r.Context(), bbox)
	if err != nil {
		writeRouteErr(w, err)
		return
	}
	engine, err := routing.NewEngine(gf)
	if err != nil {
		writeRouteErr(w, err)
		return
	}

	loopReq := loopgen.Request{
		Start:            start,
		TargetDistanceKm: req.TargetDistanceKm,
		Weights:          weightsFrom(req.WPop, req.WPaved),
		MaxTotalAscent:   req.MaxTotalAscent,
		MinTotalAscent:   req.MinTotalAscent,
	}
	if req.DistanceToleranceKm != nil {
		loopReq.DistanceToleranceKm = *req.DistanceToleranceKm
	} else {
		loopReq.DistanceToleranceKm = 1.5
	}
	if req.CandidateCount != nil {
		loopReq.CandidateCount = *req.CandidateCount
	} else {
		loopReq.CandidateCount = 6
	}

	result, err := loopgen.Generate(r.Context(), engine, h.elev, loopReq)
	if err != nil {
		writeRouteErr(w, err)
		return
	}

	resp := LoopResponse{
		TargetDistanceKm:    result.TargetDistanceKm,
		DistanceToleranceKm: result.DistanceToleranceKm,
	}
	for _, c := range result.Candidates {
		resp.Candidates = append(resp.Candidates, LoopCandidate{
			Polyline:         toJSONCoords(c.Polyline),
			DistanceKm:       c.DistanceKm,
			ElevationProfile: toJSONProfile(c.Elevation),
			DistanceErrorKm:  c.DistanceErrorKm,
			BearingDeg:       c.BearingDeg,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func weightsFrom(wPop, wPaved *float64) routing.Weights {
	w := routing.Weights{WPop: 1, WPaved: 1}
	if wPop != nil {
		w.WPop = *wPop
	}
	if wPaved != nil {
		w.WPaved = *wPaved
	}
	return w
}

func toJSONCoords(cs []geo.Coordinate) []Coord {
	out := make([]Coord, len(cs))
	for i, c := range cs {
		out[i] = Coord{Lat: c.Lat, Lon: c.Lon}
	}
	return out
}

func toJSONProfile(p elevation.Profile) *ElevationProfile {
	if len(p.Elevations) == 0 {
		return nil
	}
	return &ElevationProfile{
		Elevations:   p.Elevations,
		MinElevation: p.MinElev,
		MaxElevation: p.MaxElev,
		TotalAscent:  p.TotalAscent,
		TotalDescent: p.TotalDescent,
	}
}

func validateCoord(c Coord) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return errInvalidCoord
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return errInvalidCoord
	}
	return nil
}

var errInvalidCoord = routeerr.New(routeerr.BadBoundingBox, "coordinate out of range")

// writeRouteErr maps a routeerr.Error's Kind to an HTTP status per
// SPEC_FULL.md §7; anything else is a 500.
func writeRouteErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case routeerr.Is(err, routeerr.BadBoundingBox):
		status, code = http.StatusBadRequest, "bad_bounding_box"
	case routeerr.Is(err, routeerr.NoRoute):
		status, code = http.StatusNotFound, "no_route_found"
	case routeerr.Is(err, routeerr.NoLoopFound):
		status, code = http.StatusNotFound, "no_loop_found"
	case routeerr.Is(err, routeerr.InvalidTargetDistance):
		status, code = http.StatusBadRequest, "invalid_target_distance"
	case routeerr.Is(err, routeerr.EmptyGraph):
		status, code = http.StatusInternalServerError, "empty_graph"
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusServiceUnavailable, "request_timeout"
	}

	writeError(w, status, code)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, ErrorResponse{Error: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
