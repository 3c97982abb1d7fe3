// Package geo provides the coordinate, distance, and bounding-box primitives
// shared by every other package in routecore.
package geo

import (
	"hash/fnv"
	"math"
	"strconv"
)

const earthRadiusKm = 6371.0
const earthRadiusMeters = earthRadiusKm * 1000.0

// kmPerDegreeLat is the standard approximation used throughout the pipeline
// for margin padding and snap-distance cutoffs.
const kmPerDegreeLat = 111.0

// Coordinate is a WGS84 decimal-degree point. Two coordinates compare equal
// only by exact bit pattern within the lifetime of a single request; no
// tolerance-based equality is implied.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Lerp linearly interpolates between a and b at parameter t ∈ [0,1].
func (a Coordinate) Lerp(b Coordinate, t float64) Coordinate {
	return Coordinate{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lon: a.Lon + t*(b.Lon-a.Lon),
	}
}

// Haversine returns the great-circle distance in meters between two points
// on a sphere of Earth radius.
func Haversine(a, b Coordinate) float64 {
	lat1r := a.Lat * math.Pi / 180
	lat2r := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))

	return earthRadiusMeters * c
}

// HaversineKm is Haversine expressed in kilometers, the unit the routing
// engine and loop generator work in.
func HaversineKm(a, b Coordinate) float64 {
	return Haversine(a, b) / 1000.0
}

// EquirectangularDist returns an approximate distance in meters, ~3x faster
// than Haversine; accurate to <0.1% at moderate latitudes. Use for candidate
// filtering and comparisons, not for final edge weights.
func EquirectangularDist(a, b Coordinate) float64 {
	x := (b.Lon - a.Lon) * math.Cos((a.Lat+b.Lat)/2*math.Pi/180) * math.Pi / 180
	y := (b.Lat - a.Lat) * math.Pi / 180
	return math.Sqrt(x*x+y*y) * earthRadiusMeters
}

// PointToSegmentDist computes the perpendicular distance from point P to
// segment AB and the projection ratio along AB (clamped to [0,1]).
func PointToSegmentDist(p, a, b Coordinate) (dist float64, ratio float64) {
	cosLat := math.Cos((a.Lat + b.Lat) / 2 * math.Pi / 180)

	ax, ay := a.Lon*cosLat, a.Lat
	bx, by := b.Lon*cosLat, b.Lat
	px, py := p.Lon*cosLat, p.Lat

	if a.Lat == b.Lat && a.Lon == b.Lon {
		return Haversine(p, a), 0
	}

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Haversine(p, a), 0
	}

	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := Coordinate{Lat: a.Lat + t*(b.Lat-a.Lat), Lon: a.Lon + t*(b.Lon-a.Lon)}
	return Haversine(p, closest), t
}

// DestinationPoint applies the standard spherical forward formula: the point
// reached from start after traveling distKm along bearingRad (radians,
// clockwise from north). Longitude is normalized to [-180, 180].
func DestinationPoint(start Coordinate, distKm float64, bearingRad float64) Coordinate {
	angular := distKm / earthRadiusKm
	lat1 := start.Lat * math.Pi / 180
	lon1 := start.Lon * math.Pi / 180

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) + math.Cos(lat1)*math.Sin(angular)*math.Cos(bearingRad))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Coordinate{
		Lat: lat2 * 180 / math.Pi,
		Lon: normalizeLongitude(lon2 * 180 / math.Pi),
	}
}

// NormalizeBearingDeg folds a bearing in degrees into [0, 360).
func NormalizeBearingDeg(deg float64) float64 {
	v := math.Mod(deg, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func normalizeLongitude(lon float64) float64 {
	for lon < -180 {
		lon += 360
	}
	for lon > 180 {
		lon -= 360
	}
	return lon
}

// maxBBoxAreaKm2 is the DoS guard on bounding-box area.
const maxBBoxAreaKm2 = 10_000.0

// BoundingBox is an axis-aligned lat/lon rectangle with min < max on both
// axes and area bounded for safety.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// ErrBadBoundingBox is returned by Validate when the box is degenerate or
// too large.
type ErrBadBoundingBox struct {
	Reason string
}

func (e *ErrBadBoundingBox) Error() string { return "bad bounding box: " + e.Reason }

// Validate rejects a box whose dimensions are non-positive or whose area
// exceeds the 10,000 km² guard. Exactly 10,000 km² is accepted.
func (b BoundingBox) Validate() error {
	if b.MaxLat <= b.MinLat || b.MaxLon <= b.MinLon {
		return &ErrBadBoundingBox{Reason: "non-positive dimension"}
	}
	if b.AreaKm2() > maxBBoxAreaKm2 {
		return &ErrBadBoundingBox{Reason: "area exceeds 10000 km2"}
	}
	return nil
}

// AreaKm2 approximates the box's area using the equirectangular projection
// at its center latitude.
func (b BoundingBox) AreaKm2() float64 {
	centerLat := (b.MinLat + b.MaxLat) / 2
	widthKm := (b.MaxLon - b.MinLon) * kmPerDegreeLat * math.Cos(centerLat*math.Pi/180)
	heightKm := (b.MaxLat - b.MinLat) * kmPerDegreeLat
	return math.Abs(widthKm * heightKm)
}

// Contains reports whether c lies within the box, bounds inclusive.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// FromRoute builds a bounding box around a start/end pair, padded by
// margin_km / 111 on latitude and margin_km / (111·cos(avg_lat)) on
// longitude, clamped to valid globe bounds.
func FromRoute(start, end Coordinate, marginKm float64) BoundingBox {
	minLat := math.Min(start.Lat, end.Lat)
	maxLat := math.Max(start.Lat, end.Lat)
	minLon := math.Min(start.Lon, end.Lon)
	maxLon := math.Max(start.Lon, end.Lon)
	return padAndClamp(minLat, maxLat, minLon, maxLon, marginKm)
}

// FromWaypoints mirrors FromRoute for a list of ≥2 points (multi-waypoint
// routing), enclosing every point before padding.
func FromWaypoints(points []Coordinate, marginKm float64) BoundingBox {
	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}
	return padAndClamp(minLat, maxLat, minLon, maxLon, marginKm)
}

// BBoxFromCenter mirrors FromRoute for loops: a square box of the given
// radius around a single center point.
func BBoxFromCenter(center Coordinate, radiusKm float64) BoundingBox {
	return padAndClamp(center.Lat, center.Lat, center.Lon, center.Lon, radiusKm)
}

func padAndClamp(minLat, maxLat, minLon, maxLon, marginKm float64) BoundingBox {
	latPad := marginKm / kmPerDegreeLat
	avgLat := (minLat + maxLat) / 2
	cosLat := math.Cos(avgLat * math.Pi / 180)
	if math.Abs(cosLat) < 1e-6 {
		cosLat = 1e-6
	}
	lonPad := marginKm / (kmPerDegreeLat * math.Abs(cosLat))

	return BoundingBox{
		MinLat: math.Max(minLat-latPad, -90),
		MaxLat: math.Min(maxLat+latPad, 90),
		MinLon: math.Max(minLon-lonPad, -180),
		MaxLon: math.Min(maxLon+lonPad, 180),
	}
}

// CacheKey returns a stable hex hash of the box's four bounds rounded to
// 3 decimal places (~100 m), so nearly-identical requests collide onto the
// same cache entry.
func (b BoundingBox) CacheKey() string {
	h := fnv.New64a()
	round := func(v float64) string { return strconv.FormatFloat(roundTo(v, 3), 'f', 3, 64) }
	_, _ = h.Write([]byte(round(b.MinLat)))
	_, _ = h.Write([]byte(round(b.MaxLat)))
	_, _ = h.Write([]byte(round(b.MinLon)))
	_, _ = h.Write([]byte(round(b.MaxLon)))
	return strconv.FormatUint(h.Sum64(), 16)
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// TileSizeKm is the side length of the pre-generated tile grid used by the
// tile cache tier (§4.4) and cmd/tilegen.
const TileSizeKm = 20.0

// TileID identifies a cell in the fixed-size tile grid used by the tile
// cache tier. The grid's horizontal step varies with tile-center latitude so
// that tiles stay roughly square on the ground.
type TileID struct {
	X int
	Y int
}

// tileGridOriginLat/Lon anchor the grid so that tile ids are stable across
// process restarts and deployments.
const tileGridOriginLat = -90.0
const tileGridOriginLon = -180.0

// TileForPoint returns the tile id covering a single point, for a grid of
// sizeKm per side. The longitude step is derived from the covering row's
// center latitude (not the point's own latitude) so that it agrees with
// TileBounds for every point inside the same tile.
func TileForPoint(c Coordinate, sizeKm float64) TileID {
	latStep := sizeKm / kmPerDegreeLat
	y := int(math.Floor((c.Lat - tileGridOriginLat) / latStep))

	lonStep := rowLonStep(y, latStep, sizeKm)
	x := int(math.Floor((c.Lon - tileGridOriginLon) / lonStep))

	return TileID{X: x, Y: y}
}

// rowLonStep returns the longitude grid step for tile row y, using that
// row's center latitude so every tile in the row shares one step.
func rowLonStep(y int, latStep, sizeKm float64) float64 {
	rowMinLat := tileGridOriginLat + float64(y)*latStep
	rowCenterLat := rowMinLat + latStep/2
	return sizeKm / (kmPerDegreeLat * math.Max(math.Cos(rowCenterLat*math.Pi/180), 1e-6))
}

// TileBounds returns the bounding box of a single tile cell, inverting
// TileForPoint's grid math so cmd/tilegen can assemble one tile at a time.
func TileBounds(id TileID, sizeKm float64) BoundingBox {
	latStep := sizeKm / kmPerDegreeLat
	minLat := tileGridOriginLat + float64(id.Y)*latStep
	maxLat := minLat + latStep

	lonStep := rowLonStep(id.Y, latStep, sizeKm)
	minLon := tileGridOriginLon + float64(id.X)*lonStep
	maxLon := minLon + lonStep

	return BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
}

// OverlappingTiles returns every tile id whose cell intersects the box,
// under a grid of sizeKm per side. Each tile row has its own longitude step
// (narrower toward the poles), so the X range is recomputed per row rather
// than interpolated between the box's min/max-lat corners.
func (b BoundingBox) OverlappingTiles(sizeKm float64) []TileID {
	latStep := sizeKm / kmPerDegreeLat
	minY := int(math.Floor((b.MinLat - tileGridOriginLat) / latStep))
	maxY := int(math.Floor((b.MaxLat - tileGridOriginLat) / latStep))

	var tiles []TileID
	for y := minY; y <= maxY; y++ {
		lonStep := rowLonStep(y, latStep, sizeKm)
		minX := int(math.Floor((b.MinLon - tileGridOriginLon) / lonStep))
		maxX := int(math.Floor((b.MaxLon - tileGridOriginLon) / lonStep))
		for x := minX; x <= maxX; x++ {
			tiles = append(tiles, TileID{X: x, Y: y})
		}
	}
	return tiles
}
