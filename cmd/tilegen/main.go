// Command tilegen is the offline tile builder (C10): given a PBF extract
// and a bbox covering a target region, it partitions the region into the
// 20km tile grid of §3, runs the filter/assemble pipeline once per tile,
// and writes tile_<x>_<y>.json.zst files for the cache's tile tier (§4.4
// tier 3) — adapted from the teacher's cmd/preprocess staged-logging shape.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"routecore/pkg/geo"
	"routecore/pkg/graph"
	"routecore/pkg/pbf"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	outputDir := flag.String("output", "tiles", "Output directory for tile files")
	bboxFlag := flag.String("bbox", "", "Region to tile: minLat,minLon,maxLat,maxLon")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: tilegen --input <file.osm.pbf> [--output tiles] [--singapore | --kl | --bbox minLat,minLon,maxLat,maxLon]")
		os.Exit(1)
	}

	region, err := resolveRegion(*bboxFlag, *singapore, *kl)
	if err != nil {
		slog.Error("resolving region", "err", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		slog.Error("creating output directory", "err", err)
		os.Exit(1)
	}

	start := time.Now()
	tiles := region.OverlappingTiles(geo.TileSizeKm)
	slog.Info("tiling region", "tiles", len(tiles), "region", region)

	written, skipped := 0, 0
	for i, id := range tiles {
		tileBBox := geo.TileBounds(id, geo.TileSizeKm)
		if err := tileBBox.Validate(); err != nil {
			slog.Warn("skipping invalid tile bbox", "tile", id, "err", err)
			skipped++
			continue
		}

		gf, err := buildTile(*input, tileBBox)
		if err != nil {
			slog.Warn("skipping tile: no data", "tile", id, "err", err)
			skipped++
			continue
		}
		if len(gf.Edges) == 0 {
			slog.Debug("skipping tile with zero admitted edges", "tile", id)
			skipped++
			continue
		}

		path := filepath.Join(*outputDir, fmt.Sprintf("tile_%d_%d.json.zst", id.X, id.Y))
		if err := writeTile(path, gf); err != nil {
			slog.Error("writing tile", "tile", id, "err", err)
			os.Exit(1)
		}
		written++
		slog.Info("wrote tile", "index", fmt.Sprintf("%d/%d", i+1, len(tiles)), "tile", id, "nodes", len(gf.Nodes), "edges", len(gf.Edges))
	}

	slog.Info("done", "elapsed", time.Since(start).Round(time.Second), "written", written, "skipped", skipped)
}

func resolveRegion(bboxFlag string, singapore, kl bool) (geo.BoundingBox, error) {
	switch {
	case kl:
		return geo.BoundingBox{MinLat: 2.75, MaxLat: 3.5, MinLon: 101.2, MaxLon: 102.0}, nil
	case singapore:
		return geo.BoundingBox{MinLat: 1.15, MaxLat: 1.48, MinLon: 103.6, MaxLon: 104.1}, nil
	case bboxFlag != "":
		var minLat, minLon, maxLat, maxLon float64
		if _, err := fmt.Sscanf(bboxFlag, "%f,%f,%f,%f", &minLat, &minLon, &maxLat, &maxLon); err != nil {
			return geo.BoundingBox{}, fmt.Errorf("invalid bbox format (expected minLat,minLon,maxLat,maxLon): %w", err)
		}
		return geo.BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}, nil
	default:
		return geo.BoundingBox{}, fmt.Errorf("one of --bbox, --singapore, or --kl is required")
	}
}

func buildTile(pbfPath string, bbox geo.BoundingBox) (*graph.GraphFile, error) {
	f, err := os.Open(pbfPath)
	if err != nil {
		return nil, fmt.Errorf("opening pbf source: %w", err)
	}
	defer f.Close()

	filtered, err := pbf.Filter(context.Background(), f, bbox)
	if err != nil {
		return nil, err
	}
	return graph.Assemble(filtered)
}

func writeTile(path string, gf *graph.GraphFile) error {
	raw, err := json.Marshal(gf)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
