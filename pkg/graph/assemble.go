package graph

import (
	"sort"

	"routecore/pkg/geo"
	"routecore/pkg/pbf"
	"routecore/pkg/routeerr"
)

// admissibleHighways is the highway whitelist of SPEC_FULL.md §4.3 step 1.
var admissibleHighways = map[string]bool{
	"path":           true,
	"footway":        true,
	"living_street":  true,
	"secondary":      true,
	"tertiary":       true,
	"residential":    true,
	"track":          true,
	"service":        true,
	"unclassified":   true,
	"primary":        true,
}

var trailSurfaces = map[string]bool{
	"gravel":      true,
	"fine_gravel": true,
	"compacted":   true,
	"unpaved":     true,
}

var dirtSurfaces = map[string]bool{
	"dirt":  true,
	"earth": true,
	"ground": true,
	"grass": true,
}

var trailHighways = map[string]bool{
	"path":    true,
	"footway": true,
	"track":   true,
}

var pavedHighways = map[string]bool{
	"service":      true,
	"residential":  true,
	"primary":      true,
	"secondary":    true,
	"tertiary":     true,
}

// inferSurface implements SPEC_FULL.md §4.3 step 2.
func inferSurface(tags map[string]string) SurfaceType {
	if s, ok := tags["surface"]; ok && s != "" {
		switch {
		case trailSurfaces[s]:
			return Trail
		case dirtSurfaces[s]:
			return Dirt
		default:
			return Paved
		}
	}
	hw := tags["highway"]
	switch {
	case trailHighways[hw]:
		return Trail
	case pavedHighways[hw]:
		return Paved
	default:
		return Trail
	}
}

// Assemble turns a pbf.FilteredData into a GraphFile per SPEC_FULL.md §4.3:
// highway admission, surface inference, node reindexing, intersection
// detection, edge synthesis with waypoints, and mean population density.
func Assemble(data *pbf.FilteredData) (*GraphFile, error) {
	// Step 1: highway admission.
	admitted := make([]pbf.WayInfo, 0, len(data.Ways))
	for _, w := range data.Ways {
		if admissibleHighways[w.Tags["highway"]] {
			admitted = append(admitted, w)
		}
	}

	// Step 3: deterministic node reindexing over every osm id touched by an
	// admitted way and present in the filtered node set.
	touchedSet := make(map[int64]struct{})
	for _, w := range admitted {
		for _, id := range w.NodeIDs {
			if _, ok := data.Nodes[id]; ok {
				touchedSet[id] = struct{}{}
			}
		}
	}
	touched := make([]int64, 0, len(touchedSet))
	for id := range touchedSet {
		touched = append(touched, id)
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })

	osmToGraph := make(map[int64]uint64, len(touched))
	nodes := make([]NodeRecord, 0, len(touched))
	for i, id := range touched {
		info := data.Nodes[id]
		osmToGraph[id] = uint64(i + 1)
		nodes = append(nodes, NodeRecord{
			ID:        uint64(i + 1),
			Lat:       info.Lat,
			Lon:       info.Lon,
			Elevation: info.Elevation,
			// Population density is never populated from OSM; see
			// SPEC_FULL.md §9 open question — always left at zero.
			PopulationDensity: 0,
		})
	}

	if len(nodes) == 0 {
		return nil, routeerr.New(routeerr.EmptyGraph, "no nodes survived highway admission")
	}

	// Step 4: intersection detection — appears in >=2 admitted ways, or is
	// a way's first/last node.
	wayCount := make(map[int64]int)
	for _, w := range admitted {
		seen := make(map[int64]bool, len(w.NodeIDs))
		for _, id := range w.NodeIDs {
			if !seen[id] {
				wayCount[id]++
				seen[id] = true
			}
		}
	}
	isIntersection := make(map[int64]bool, len(touchedSet))
	for _, w := range admitted {
		if len(w.NodeIDs) == 0 {
			continue
		}
		isIntersection[w.NodeIDs[0]] = true
		isIntersection[w.NodeIDs[len(w.NodeIDs)-1]] = true
	}
	for id, count := range wayCount {
		if count >= 2 {
			isIntersection[id] = true
		}
	}

	// Only intersections stay graph nodes (re-densified in the same sorted
	// order); every other node of a way is carried as an edge waypoint.
	kept := nodes[:0]
	for i, id := range touched {
		if !isIntersection[id] {
			delete(osmToGraph, id)
			continue
		}
		n := nodes[i]
		n.ID = uint64(len(kept) + 1)
		osmToGraph[id] = n.ID
		kept = append(kept, n)
	}
	nodes = kept

	// Step 5: edge synthesis between consecutive intersections.
	var edges []EdgeRecord
	for _, w := range admitted {
		surface := inferSurface(w.Tags)
		var lastIdx = -1
		for i, id := range w.NodeIDs {
			if _, ok := osmToGraph[id]; !ok {
				continue
			}
			if !isIntersection[id] {
				continue
			}
			if lastIdx == -1 {
				lastIdx = i
				continue
			}

			fromID := w.NodeIDs[lastIdx]
			toID := w.NodeIDs[i]
			fromGraph, fromOK := osmToGraph[fromID]
			toGraph, toOK := osmToGraph[toID]
			if !fromOK || !toOK {
				lastIdx = i
				continue
			}

			waypoints := make([]geo.Coordinate, 0, i-lastIdx-1)
			prev := data.Nodes[fromID].Lat
			prevLon := data.Nodes[fromID].Lon
			lengthM := 0.0
			prevCoord := geo.Coordinate{Lat: prev, Lon: prevLon}
			for k := lastIdx + 1; k < i; k++ {
				mid := data.Nodes[w.NodeIDs[k]]
				midCoord := geo.Coordinate{Lat: mid.Lat, Lon: mid.Lon}
				lengthM += geo.Haversine(prevCoord, midCoord)
				waypoints = append(waypoints, midCoord)
				prevCoord = midCoord
			}
			toInfo := data.Nodes[toID]
			toCoord := geo.Coordinate{Lat: toInfo.Lat, Lon: toInfo.Lon}
			lengthM += geo.Haversine(prevCoord, toCoord)

			edges = append(edges, EdgeRecord{
				From:      fromGraph,
				To:        toGraph,
				Surface:   surface,
				LengthM:   lengthM,
				Waypoints: waypoints,
			})

			lastIdx = i
		}
	}

	gf := &GraphFile{Nodes: nodes, Edges: edges}

	// Step 7: connectivity diagnostic (expansion, not a hard filter).
	reportLargestComponent(gf)

	return gf, nil
}
