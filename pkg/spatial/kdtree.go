// Package spatial implements the 2-D k-d tree spatial index (C5): a
// nearest-node query with a distance cutoff, built once per routing engine
// and read-only thereafter.
package spatial

import (
	"math"
	"sort"

	"routecore/pkg/geo"
)

// maxSnapDistKm is the cutoff beyond which Nearest reports no match.
const maxSnapDistKm = 20.0

// kmPerDegree approximates degree-space distance in kilometers, matching
// spec.md's 111 km/degree convention.
const kmPerDegree = 111.0

// Point is one indexed node: its coordinate and the caller's node index.
type Point struct {
	Coord geo.Coordinate
	Index int
}

type kdNode struct {
	p    Point
	l, r *kdNode
}

// KDTree indexes (lon, lat) points for nearest-neighbor and range queries.
type KDTree struct {
	root *kdNode
}

// Build constructs a KDTree over points, alternating the split axis between
// longitude and latitude as depth increases.
func Build(points []Point) *KDTree {
	cp := make([]Point, len(points))
	copy(cp, points)
	return &KDTree{root: build(cp, 0)}
}

func build(points []Point, depth int) *kdNode {
	if len(points) == 0 {
		return nil
	}
	axis := depth % 2
	sort.Slice(points, func(i, j int) bool {
		if axis == 0 {
			return points[i].Coord.Lon < points[j].Coord.Lon
		}
		return points[i].Coord.Lat < points[j].Coord.Lat
	})
	mid := len(points) / 2
	return &kdNode{
		p: points[mid],
		l: build(points[:mid], depth+1),
		r: build(points[mid+1:], depth+1),
	}
}

func axisValue(c geo.Coordinate, axis int) float64 {
	if axis == 0 {
		return c.Lon
	}
	return c.Lat
}

// squaredDegreeDist is the squared Euclidean distance in degree space —
// cheaper than haversine and fine for comparison/pruning purposes.
func squaredDegreeDist(a, b geo.Coordinate) float64 {
	dx := a.Lon - b.Lon
	dy := a.Lat - b.Lat
	return dx*dx + dy*dy
}

// Nearest returns the index of the closest point to target and true, or
// (0, false) if the nearest point exceeds the 20 km cutoff.
func (t *KDTree) Nearest(target geo.Coordinate) (int, bool) {
	if t.root == nil {
		return 0, false
	}
	best, bestSq := nearest(t.root, target, 0, nil, math.MaxFloat64)
	if best == nil {
		return 0, false
	}
	distKm := math.Sqrt(bestSq) * kmPerDegree
	if distKm > maxSnapDistKm {
		return 0, false
	}
	return best.p.Index, true
}

func nearest(n *kdNode, target geo.Coordinate, depth int, best *kdNode, bestSq float64) (*kdNode, float64) {
	if n == nil {
		return best, bestSq
	}
	axis := depth % 2

	dist := squaredDegreeDist(n.p.Coord, target)
	if dist < bestSq {
		bestSq = dist
		best = n
	}

	var next, other *kdNode
	if axisValue(target, axis) < axisValue(n.p.Coord, axis) {
		next, other = n.l, n.r
	} else {
		next, other = n.r, n.l
	}

	best, bestSq = nearest(next, target, depth+1, best, bestSq)

	if d := axisValue(n.p.Coord, axis) - axisValue(target, axis); d*d < bestSq {
		best, bestSq = nearest(other, target, depth+1, best, bestSq)
	}

	return best, bestSq
}

// RangeQuery returns the indices of every point within radiusKm of center.
func (t *KDTree) RangeQuery(center geo.Coordinate, radiusKm float64) []int {
	radiusDeg := radiusKm / kmPerDegree
	var out []int
	rangeQuery(t.root, center, radiusDeg, 0, &out)
	return out
}

func rangeQuery(n *kdNode, center geo.Coordinate, radiusDeg float64, depth int, out *[]int) {
	if n == nil {
		return
	}
	axis := depth % 2

	if squaredDegreeDist(n.p.Coord, center) <= radiusDeg*radiusDeg {
		*out = append(*out, n.p.Index)
	}

	cv := axisValue(center, axis)
	nv := axisValue(n.p.Coord, axis)
	if n.l != nil && cv-radiusDeg <= nv {
		rangeQuery(n.l, center, radiusDeg, depth+1, out)
	}
	if n.r != nil && cv+radiusDeg >= nv {
		rangeQuery(n.r, center, radiusDeg, depth+1, out)
	}
}
