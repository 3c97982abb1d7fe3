// Package cache implements the three-tier graph cache (C4): a process LRU,
// an on-disk zstd-compressed tier, and an optional pre-generated tile set —
// grounded on the teacher's atomic tmp-then-rename write discipline and
// generalized from a binary node/edge blob to a GraphFile.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"routecore/pkg/geo"
	gr "routecore/pkg/graph"
	"routecore/pkg/pbf"
	"routecore/pkg/routeerr"
)

// Store is the process-wide graph cache. A single Store is shared by every
// request goroutine.
type Store struct {
	diskDir  string
	tilesDir string
	pbfPath  string

	mu  sync.RWMutex
	lru *lru.Cache[string, *gr.GraphFile]
}

// NewStore builds a Store with the given LRU capacity. diskDir is created
// lazily; tilesDir may be empty to disable tier 3.
func NewStore(capacity int, diskDir, tilesDir, pbfPath string) (*Store, error) {
	l, err := lru.New[string, *gr.GraphFile](capacity)
	if err != nil {
		return nil, fmt.Errorf("building LRU cache: %w", err)
	}
	return &Store{diskDir: diskDir, tilesDir: tilesDir, pbfPath: pbfPath, lru: l}, nil
}

// Prime inserts gf directly into the process LRU under bbox's cache key,
// bypassing the PBF/tile miss path — used to pre-warm frequently requested
// regions and by tests that need a deterministic graph without a PBF file.
func (s *Store) Prime(bbox geo.BoundingBox, gf *gr.GraphFile) {
	s.insert(bbox.CacheKey(), gf)
}

// Load resolves bbox to a GraphFile, checking the LRU, then disk, then the
// tile set, and finally assembling from the PBF source on a complete miss.
// The result of a miss is written back to disk and the LRU before return.
func (s *Store) Load(ctx context.Context, bbox geo.BoundingBox) (*gr.GraphFile, error) {
	key := bbox.CacheKey()

	if gf, ok := s.peek(key); ok {
		return gf, nil
	}

	if gf, ok := s.readDisk(key); ok {
		s.insert(key, gf)
		return gf, nil
	}

	if s.tilesDir != "" {
		if gf, ok := s.readTiles(bbox); ok {
			s.insert(key, gf)
			s.writeDisk(key, gf)
			return gf, nil
		}
	}

	gf, err := s.assemble(ctx, bbox)
	if err != nil {
		return nil, err
	}
	s.insert(key, gf)
	s.writeDisk(key, gf)
	return gf, nil
}

// peek reads the LRU under RLock without promoting the entry, so a storm of
// concurrent requests for the same key behaves like a single reader.
func (s *Store) peek(key string) (*gr.GraphFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Peek(key)
}

func (s *Store) insert(key string, gf *gr.GraphFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(key, gf)
}

func (s *Store) diskPath(key string) string {
	return filepath.Join(s.diskDir, fmt.Sprintf("partial_%s.json.zst", key))
}

func (s *Store) readDisk(key string) (*gr.GraphFile, bool) {
	path := s.diskPath(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	gf, err := decode(raw)
	if err != nil {
		slog.Warn("cache: discarding unreadable disk entry", "path", path, "err", err)
		return nil, false
	}
	return gf, true
}

// writeDisk is best-effort: a failure is logged but never fails the
// request (§4.4). The write is a full atomic tmp-then-rename, never an
// append, so a cancelled request leaves no partial file.
func (s *Store) writeDisk(key string, gf *gr.GraphFile) {
	if s.diskDir == "" {
		return
	}
	if err := os.MkdirAll(s.diskDir, 0o755); err != nil {
		slog.Warn("cache: creating disk cache dir", "err", err)
		return
	}

	encoded, err := encode(gf)
	if err != nil {
		slog.Warn("cache: encoding graph for disk cache", "err", err)
		return
	}

	path := s.diskPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		slog.Warn("cache: writing disk cache tmp file", "err", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		slog.Warn("cache: renaming disk cache tmp file", "err", err)
		_ = os.Remove(tmp)
	}
}

func (s *Store) readTiles(bbox geo.BoundingBox) (*gr.GraphFile, bool) {
	ids := bbox.OverlappingTiles(geo.TileSizeKm)
	tiles := make([]*gr.GraphFile, 0, len(ids))
	for _, id := range ids {
		path := filepath.Join(s.tilesDir, fmt.Sprintf("tile_%d_%d.json.zst", id.X, id.Y))
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("cache: missing tile, skipping", "path", path)
			continue
		}
		gf, err := decode(raw)
		if err != nil {
			slog.Warn("cache: unreadable tile, skipping", "path", path, "err", err)
			continue
		}
		tiles = append(tiles, gf)
	}
	if len(tiles) == 0 {
		return nil, false
	}
	merged := gr.FilterToBBox(gr.MergeTiles(tiles), bbox)
	if len(merged.Nodes) == 0 {
		return nil, false
	}
	return merged, true
}

// assemble runs the PBF filter and graph assembler on a complete cache miss.
func (s *Store) assemble(ctx context.Context, bbox geo.BoundingBox) (*gr.GraphFile, error) {
	f, err := os.Open(s.pbfPath)
	if err != nil {
		return nil, routeerr.Wrap(routeerr.IOFailure, "opening pbf source", err)
	}
	defer f.Close()

	filtered, err := pbf.Filter(ctx, f, bbox)
	if err != nil {
		return nil, err
	}
	return gr.Assemble(filtered)
}

func encode(gf *gr.GraphFile) ([]byte, error) {
	raw, err := json.Marshal(gf)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func decode(compressed []byte) (*gr.GraphFile, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, err
	}
	var gf gr.GraphFile
	if err := json.Unmarshal(raw, &gf); err != nil {
		return nil, err
	}
	return &gf, nil
}
