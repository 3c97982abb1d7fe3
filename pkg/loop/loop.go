// Package loop implements the loop generator (C7): concentric-ring
// candidate sampling around a start point, an outbound/return A* pair per
// candidate, and distance/ascent filtering — grounded on
// original_source/backend/src/loops.rs.
package loop

import (
	"context"
	"math"
	"sort"

	"routecore/pkg/elevation"
	"routecore/pkg/geo"
	"routecore/pkg/routeerr"
	"routecore/pkg/routing"
)

const (
	minTargetDistanceKm    = 2.0
	minDistanceToleranceKm = 0.5
	maxCandidates          = 12
)

var ringFactors = [3]float64{0.75, 1.0, 1.25}

// Request is the loop request shape consumed by Generate (§6).
type Request struct {
	Start              geo.Coordinate
	TargetDistanceKm   float64
	DistanceToleranceKm float64
	CandidateCount     int
	Weights            routing.Weights
	MaxTotalAscent     *float64
	MinTotalAscent     *float64
}

// Candidate is one accepted loop.
type Candidate struct {
	Polyline        []geo.Coordinate
	DistanceKm      float64
	Elevation       elevation.Profile
	DistanceErrorKm float64
	BearingDeg      float64
}

// Response is the loop response shape (§6).
type Response struct {
	TargetDistanceKm    float64
	DistanceToleranceKm float64
	Candidates          []Candidate
}

// Generate runs the ring-sampling search described in SPEC_FULL.md §4.7.
func Generate(ctx context.Context, eng *routing.Engine, elev elevation.Provider, req Request) (*Response, error) {
	if !(req.TargetDistanceKm > minTargetDistanceKm) || math.IsNaN(req.TargetDistanceKm) || math.IsInf(req.TargetDistanceKm, 0) {
		return nil, routeerr.New(routeerr.InvalidTargetDistance, "target distance must be greater than 2km")
	}

	tolerance := req.DistanceToleranceKm
	if tolerance < minDistanceToleranceKm {
		tolerance = minDistanceToleranceKm
	}
	if tolerance > req.TargetDistanceKm {
		tolerance = req.TargetDistanceKm
	}

	candidateGoal := req.CandidateCount
	if candidateGoal < 1 {
		candidateGoal = 1
	}
	if candidateGoal > maxCandidates {
		candidateGoal = maxCandidates
	}
	attemptsPerRing := candidateGoal
	if attemptsPerRing < 4 {
		attemptsPerRing = 4
	}
	halfDistance := req.TargetDistanceKm / 2.0
	if halfDistance < 0.5 {
		halfDistance = 0.5
	}

	startIdx, ok := eng.Snap(req.Start)
	if !ok {
		return nil, routeerr.New(routeerr.NoRoute, "start point could not be snapped to the graph")
	}

	var candidates []Candidate
	var elevErr error

ringLoop:
	for ringIdx, factor := range ringFactors {
		for step := 0; step < attemptsPerRing; step++ {
			if len(candidates) >= candidateGoal {
				break ringLoop
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			phaseOffset := float64(ringIdx) * 0.35
			bearing := 2.0*math.Pi*(float64(step)/float64(attemptsPerRing)) + phaseOffset
			waypoint := geo.DestinationPoint(req.Start, halfDistance*factor, bearing)

			polyline, distanceKm, ok := buildLoopPath(ctx, eng, startIdx, waypoint, req.Weights)
			if !ok {
				continue
			}
			if len(polyline) < 3 {
				continue
			}

			distanceError := math.Abs(distanceKm - req.TargetDistanceKm)
			if distanceError > tolerance {
				continue
			}

			raw, err := elev.Elevations(ctx, polyline)
			if err != nil {
				elevErr = err
				continue
			}
			profile := elevation.BuildProfile(polyline, raw)
			if req.MaxTotalAscent != nil && profile.TotalAscent > *req.MaxTotalAscent {
				continue
			}
			if req.MinTotalAscent != nil && profile.TotalAscent < *req.MinTotalAscent {
				continue
			}

			candidates = append(candidates, Candidate{
				Polyline:        polyline,
				DistanceKm:      distanceKm,
				Elevation:       profile,
				DistanceErrorKm: distanceError,
				BearingDeg:      geo.NormalizeBearingDeg(bearing * 180 / math.Pi),
			})
		}
	}

	if len(candidates) == 0 {
		if elevErr != nil {
			return nil, elevErr
		}
		return nil, routeerr.New(routeerr.NoLoopFound, "no loop could be generated with the provided constraints")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Elevation.TotalAscent != candidates[j].Elevation.TotalAscent {
			return candidates[i].Elevation.TotalAscent < candidates[j].Elevation.TotalAscent
		}
		return candidates[i].DistanceErrorKm < candidates[j].DistanceErrorKm
	})
	if len(candidates) > candidateGoal {
		candidates = candidates[:candidateGoal]
	}

	return &Response{
		TargetDistanceKm:    req.TargetDistanceKm,
		DistanceToleranceKm: tolerance,
		Candidates:          candidates,
	}, nil
}

// buildLoopPath runs the outbound leg, derives the excluded-edge set from
// it, then runs the return leg against that set, concatenating the two with
// the junction duplicate removed.
func buildLoopPath(ctx context.Context, eng *routing.Engine, startIdx int, waypoint geo.Coordinate, w routing.Weights) ([]geo.Coordinate, float64, bool) {
	waypointIdx, ok := eng.Snap(waypoint)
	if !ok {
		return nil, 0, false
	}

	outbound, ok := eng.FindPath(ctx, startIdx, waypointIdx, w)
	if !ok || len(outbound.Coords) == 0 {
		return nil, 0, false
	}

	excluded := excludedEdgesFromPath(eng, outbound.NodeSeq())

	inbound, ok := eng.FindPathExcluding(ctx, waypointIdx, startIdx, w, excluded)
	if !ok || len(inbound.Coords) == 0 {
		return nil, 0, false
	}

	polyline := append([]geo.Coordinate{}, outbound.Coords...)
	if len(inbound.Coords) > 0 {
		polyline = append(polyline, inbound.Coords[1:]...)
	}

	return polyline, outbound.DistanceKm + inbound.DistanceKm, true
}

func excludedEdgesFromPath(eng *routing.Engine, nodeSeq []int) map[routing.EdgeKey]bool {
	excluded := make(map[routing.EdgeKey]bool, len(nodeSeq))
	for i := 0; i+1 < len(nodeSeq); i++ {
		excluded[routing.EdgeKey{From: nodeSeq[i], To: nodeSeq[i+1]}] = true
	}
	return excluded
}
