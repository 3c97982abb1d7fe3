package graph

import (
	"fmt"
	"sort"

	"routecore/pkg/geo"
)

// FilterToBBox keeps only the nodes inside bbox and the edges whose both
// endpoints survive, then re-densifies ids — used by the tile cache tier
// (§4.4 tier 3) after a multi-tile union.
func FilterToBBox(gf *GraphFile, bbox geo.BoundingBox) *GraphFile {
	keep := make(map[uint64]bool, len(gf.Nodes))
	kept := make([]NodeRecord, 0, len(gf.Nodes))
	for _, n := range gf.Nodes {
		if bbox.Contains(n.Coordinate()) {
			keep[n.ID] = true
			kept = append(kept, n)
		}
	}
	keptEdges := make([]EdgeRecord, 0, len(gf.Edges))
	for _, e := range gf.Edges {
		if keep[e.From] && keep[e.To] {
			keptEdges = append(keptEdges, e)
		}
	}
	return reindex(kept, keptEdges)
}

// MergeTiles unions the node/edge collections of every tile file overlapping
// a request's bbox, eliminating duplicates. Each tile's NodeRecord.ID is
// dense only within that tile's own build, so identity across tiles is
// joined on rounded coordinate rather than raw id (§9 open question
// resolution: tile files are never assumed to share a global id space).
func MergeTiles(tiles []*GraphFile) *GraphFile {
	type coordKey string
	keyOf := func(n NodeRecord) coordKey {
		return coordKey(fmt.Sprintf("%.6f,%.6f", n.Lat, n.Lon))
	}

	mergedID := make(map[coordKey]uint64)
	var nodes []NodeRecord
	for _, t := range tiles {
		for _, n := range t.Nodes {
			k := keyOf(n)
			if _, ok := mergedID[k]; ok {
				continue
			}
			id := uint64(len(nodes) + 1)
			mergedID[k] = id
			n.ID = id
			nodes = append(nodes, n)
		}
	}

	type pair struct{ a, b uint64 }
	seen := make(map[pair]bool)
	var edges []EdgeRecord
	for _, t := range tiles {
		localToMerged := make(map[uint64]uint64, len(t.Nodes))
		for _, n := range t.Nodes {
			localToMerged[n.ID] = mergedID[keyOf(n)]
		}
		for _, e := range t.Edges {
			from, to := localToMerged[e.From], localToMerged[e.To]
			if from == 0 || to == 0 {
				continue
			}
			p := pair{from, to}
			if p.a > p.b {
				p.a, p.b = p.b, p.a
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			e.From, e.To = from, to
			edges = append(edges, e)
		}
	}

	return &GraphFile{Nodes: nodes, Edges: edges}
}

// reindex re-densifies a node/edge subset into a new 1-based id space,
// ordering by the original id for determinism.
func reindex(nodes []NodeRecord, edges []EdgeRecord) *GraphFile {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	oldToNew := make(map[uint64]uint64, len(nodes))
	newNodes := make([]NodeRecord, len(nodes))
	for i, n := range nodes {
		oldToNew[n.ID] = uint64(i + 1)
		n.ID = uint64(i + 1)
		newNodes[i] = n
	}

	newEdges := make([]EdgeRecord, 0, len(edges))
	for _, e := range edges {
		from, fromOK := oldToNew[e.From]
		to, toOK := oldToNew[e.To]
		if !fromOK || !toOK {
			continue
		}
		e.From, e.To = from, to
		newEdges = append(newEdges, e)
	}

	return &GraphFile{Nodes: newNodes, Edges: newEdges}
}
