// Package pbf implements the two-pass OSM PBF filter (SPEC_FULL.md C2): a
// single forward read collects nodes inside the request bounding box and
// every way carrying a highway tag, then a second read (only if needed)
// fetches coordinates for nodes referenced by a kept way but outside the
// bbox, preserving connectivity across the boundary.
package pbf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"routecore/pkg/geo"
	"routecore/pkg/routeerr"
)

// WayInfo is a kept way: its ordered node references and raw tags, verbatim
// from the PBF — admission/surface inference happens downstream in the
// graph assembler (C3), not here.
type WayInfo struct {
	ID      int64
	NodeIDs []int64
	Tags    map[string]string
}

// NodeInfo is a node's coordinates and optional elevation tag.
type NodeInfo struct {
	Lat, Lon  float64
	Elevation *float64
}

// FilteredData is the output of Filter: a bbox-local node set plus every
// way that touches it, semantically equivalent to an unordered set per
// field.
type FilteredData struct {
	Nodes map[int64]NodeInfo
	Ways  []WayInfo
}

// Filter reads rs twice (it must support seeking back to the start) and
// returns the bbox-scoped node/way extraction of SPEC_FULL.md §4.2. It never
// fails on a dangling node reference; unresolved refs are simply absent from
// Nodes and get dropped by the graph assembler downstream.
func Filter(ctx context.Context, rs io.ReadSeeker, bbox geo.BoundingBox) (*FilteredData, error) {
	nodes := make(map[int64]NodeInfo)
	var ways []WayInfo
	referenced := make(map[int64]struct{})

	scanner := osmpbf.New(ctx, rs, runtime.GOMAXPROCS(0))
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			if bbox.Contains(geo.Coordinate{Lat: o.Lat, Lon: o.Lon}) {
				nodes[int64(o.ID)] = nodeInfoFrom(o.Lat, o.Lon, o.Tags)
			}
		case *osm.Way:
			tags := tagsToMap(o.Tags)
			if tags["highway"] == "" {
				continue
			}
			nodeIDs := make([]int64, len(o.Nodes))
			for i, wn := range o.Nodes {
				nodeIDs[i] = int64(wn.ID)
				referenced[int64(wn.ID)] = struct{}{}
			}
			ways = append(ways, WayInfo{ID: int64(o.ID), NodeIDs: nodeIDs, Tags: tags})
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, routeerr.Wrap(routeerr.PbfRead, "pbf pass 1", err)
	}
	scanner.Close()

	slog.Info("pbf pass 1 complete", "ways", len(ways), "nodes_in_bbox", len(nodes), "referenced", len(referenced))

	missing := make(map[int64]struct{})
	for id := range referenced {
		if _, ok := nodes[id]; !ok {
			missing[id] = struct{}{}
		}
	}

	if len(missing) > 0 {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, routeerr.Wrap(routeerr.IOFailure, "seek for pbf pass 2", err)
		}

		scanner = osmpbf.New(ctx, rs, runtime.GOMAXPROCS(0))
		scanner.SkipWays = true
		scanner.SkipRelations = true
		for scanner.Scan() {
			n, ok := scanner.Object().(*osm.Node)
			if !ok {
				continue
			}
			if _, want := missing[int64(n.ID)]; !want {
				continue
			}
			nodes[int64(n.ID)] = nodeInfoFrom(n.Lat, n.Lon, n.Tags)
			delete(missing, int64(n.ID))
		}
		if err := scanner.Err(); err != nil {
			scanner.Close()
			return nil, routeerr.Wrap(routeerr.PbfRead, "pbf pass 2", err)
		}
		scanner.Close()

		slog.Info("pbf pass 2 complete", "resolved", len(referenced)-len(missing), "still_missing", len(missing))
	}

	return &FilteredData{Nodes: nodes, Ways: ways}, nil
}

func nodeInfoFrom(lat, lon float64, tags osm.Tags) NodeInfo {
	info := NodeInfo{Lat: lat, Lon: lon}
	if ele := tags.Find("ele"); ele != "" {
		if v, ok := parseFloat(ele); ok {
			info.Elevation = &v
		}
	}
	return info
}

func tagsToMap(tags osm.Tags) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.Key] = t.Value
	}
	return m
}

func parseFloat(s string) (float64, bool) {
	var v float64
	_, err := fmt.Sscanf(s, "%g", &v)
	return v, err == nil
}
