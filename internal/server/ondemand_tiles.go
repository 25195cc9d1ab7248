package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MeKo-Tech/noisefield/internal/pipeline"
	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/texture"
)

type OnDemandTilesConfig struct {
	Preset preset.Preset
	// TilesDir caches rendered tiles on disk. When empty, tiles are kept in a
	// bounded in-memory cache instead.
	TilesDir             string
	CacheEntries         int
	CacheControl         string
	BaseTileSize         int
	MaxConcurrentRenders int
	RenderTimeout        time.Duration
	DisableCache         bool
	Compression          string
	Layer                texture.Layer
	Ramp                 texture.Ramp
	Filters              texture.Filters
}

type OnDemandTiles struct {
	logger *slog.Logger
	sem    chan struct{}
	gens   sync.Map
	cache  *lru.Cache[string, []byte]
	cfg    OnDemandTilesConfig

	// locks serializes renders of the same tile. Entries live only while a
	// request holds or waits for them.
	locksMu sync.Mutex
	locks   map[string]*tileLock

	activeRenders  atomic.Int32
	totalRendered  atomic.Int64
	totalFailed    atomic.Int64
	cacheHits      atomic.Int64
	currentRenders sync.Map // tile key -> start time

	// Tiles waiting for the semaphore
	queuedRenders atomic.Int32
	queuedTiles   sync.Map // tile key -> queue time
}

// TileStatus represents the current status of the tile renderer.
type TileStatus struct {
	Preset string       `json:"preset"`
	Render RenderStatus `json:"render"`
	Cache  CacheStatus  `json:"cache"`
}

// RenderStatus contains current render operation status.
type RenderStatus struct {
	ActiveRenders int      `json:"active_renders"`
	TotalRendered int64    `json:"total_rendered"`
	TotalFailed   int64    `json:"total_failed"`
	CurrentTiles  []string `json:"current_tiles"`
	MaxConcurrent int      `json:"max_concurrent"`
	QueuedRenders int      `json:"queued_renders"`
	QueuedTiles   []string `json:"queued_tiles"`
}

// CacheStatus describes where rendered tiles are kept.
type CacheStatus struct {
	Disabled bool   `json:"disabled"`
	Dir      string `json:"dir,omitempty"`
	Entries  int    `json:"entries"`
	Capacity int    `json:"capacity"`
	Hits     int64  `json:"hits"`
}

func NewOnDemandTiles(cfg OnDemandTilesConfig, logger *slog.Logger) (*OnDemandTiles, error) {
	if err := cfg.Preset.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseTileSize <= 0 {
		cfg.BaseTileSize = 256
	}
	if cfg.MaxConcurrentRenders <= 0 {
		cfg.MaxConcurrentRenders = 1
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if cfg.CacheEntries <= 0 {
		cfg.CacheEntries = 512
	}
	if cfg.Layer == "" {
		cfg.Layer = texture.LayerColor
	}

	t := &OnDemandTiles{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentRenders),
		locks:  make(map[string]*tileLock),
	}
	if cfg.TilesDir == "" {
		cache, err := lru.New[string, []byte](cfg.CacheEntries)
		if err != nil {
			return nil, fmt.Errorf("failed to create tile cache: %w", err)
		}
		t.cache = cache
	}

	// Fail at startup instead of on the first request.
	if _, err := t.getGenerator(cfg.BaseTileSize); err != nil {
		return nil, err
	}
	return t, nil
}

// Status returns the current status of the tile renderer.
func (t *OnDemandTiles) Status() TileStatus {
	cache := CacheStatus{
		Disabled: t.cfg.DisableCache,
		Dir:      t.cfg.TilesDir,
		Hits:     t.cacheHits.Load(),
	}
	if t.cache != nil {
		cache.Entries = t.cache.Len()
		cache.Capacity = t.cfg.CacheEntries
	}

	return TileStatus{
		Preset: t.cfg.Preset.Name,
		Render: RenderStatus{
			ActiveRenders: int(t.activeRenders.Load()),
			TotalRendered: t.totalRendered.Load(),
			TotalFailed:   t.totalFailed.Load(),
			CurrentTiles:  syncMapKeys(&t.currentRenders),
			MaxConcurrent: t.cfg.MaxConcurrentRenders,
			QueuedRenders: int(t.queuedRenders.Load()),
			QueuedTiles:   syncMapKeys(&t.queuedTiles),
		},
		Cache: cache,
	}
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (t *OnDemandTiles) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(t.Status()); err != nil {
			t.log().Error("Failed to encode status", "error", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
		}
	})
}

// StatusStreamHandler pushes the status as Server-Sent Events until the
// client disconnects.
func (t *OnDemandTiles) StatusStreamHandler(interval time.Duration) http.Handler {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		t.sendStatusEvent(w, flusher)
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				t.sendStatusEvent(w, flusher)
			}
		}
	})
}

func (t *OnDemandTiles) sendStatusEvent(w http.ResponseWriter, flusher http.Flusher) {
	data, err := json.Marshal(t.Status())
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// PresetHandler returns the preset the tiles are rendered with.
func (t *OnDemandTiles) PresetHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(t.cfg.Preset); err != nil {
			t.log().Error("Failed to encode preset", "error", err)
		}
	})
}

func (t *OnDemandTiles) Handler() http.Handler {
	return http.HandlerFunc(t.serveTile)
}

func (t *OnDemandTiles) serveTile(w http.ResponseWriter, r *http.Request) {
	coords, suffix, ok := parseTilePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	key := coords.String() + suffix
	w.Header().Set("Cache-Control", t.cfg.CacheControl)

	if t.serveCached(w, r, key) {
		return
	}

	unlock := t.lockTile(key)
	defer unlock()

	// Another request may have rendered the tile while we waited.
	if t.serveCached(w, r, key) {
		return
	}

	t.queuedRenders.Add(1)
	t.queuedTiles.Store(key, time.Now())

	select {
	case t.sem <- struct{}{}:
		t.queuedRenders.Add(-1)
		t.queuedTiles.Delete(key)
		defer func() { <-t.sem }()
	case <-r.Context().Done():
		t.queuedRenders.Add(-1)
		t.queuedTiles.Delete(key)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.cfg.RenderTimeout)
	defer cancel()

	gen, err := t.getGenerator(tileSizeForSuffix(t.cfg.BaseTileSize, suffix))
	if err != nil {
		t.log().Error("Failed to init generator", "error", err)
		http.Error(w, "failed to init generator", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	t.activeRenders.Add(1)
	t.currentRenders.Store(key, start)

	data, err := gen.Render(ctx, coords)

	t.activeRenders.Add(-1)
	t.currentRenders.Delete(key)

	if err != nil {
		t.totalFailed.Add(1)
		t.log().Error("Failed to render tile", "coords", coords.String(), "suffix", suffix, "error", err)
		http.Error(w, fmt.Sprintf("failed to render tile %s", key), http.StatusInternalServerError)
		return
	}
	t.totalRendered.Add(1)
	t.log().Info("Tile rendered on-demand", "coords", coords.String(), "suffix", suffix, "ms", time.Since(start).Milliseconds())

	if !t.cfg.DisableCache {
		if err := t.store(key, data); err != nil {
			t.log().Warn("Failed to cache tile", "coords", key, "error", err)
		}
	}
	writePNG(w, data, t.log())
}

// serveCached writes the cached tile for key and reports whether it did.
func (t *OnDemandTiles) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	if t.cfg.DisableCache {
		return false
	}
	if t.cache != nil {
		data, ok := t.cache.Get(key)
		if !ok {
			return false
		}
		t.cacheHits.Add(1)
		writePNG(w, data, t.log())
		return true
	}

	fullPath := t.tilePath(key)
	if !fileExists(fullPath) {
		return false
	}
	t.cacheHits.Add(1)
	http.ServeFile(w, r, fullPath)
	return true
}

func (t *OnDemandTiles) store(key string, data []byte) error {
	if t.cache != nil {
		t.cache.Add(key, data)
		return nil
	}

	if err := os.MkdirAll(t.cfg.TilesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tiles dir: %w", err)
	}
	// Write then rename so concurrent readers never see a partial file.
	fullPath := t.tilePath(key)
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tile: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move tile into place: %w", err)
	}
	return nil
}

func (t *OnDemandTiles) tilePath(key string) string {
	return filepath.Join(t.cfg.TilesDir, key+".png")
}

func (t *OnDemandTiles) getGenerator(tileSize int) (*pipeline.Generator, error) {
	if v, ok := t.gens.Load(tileSize); ok {
		return v.(*pipeline.Generator), nil
	}

	g, err := pipeline.NewGenerator(t.cfg.Preset, "", nil, pipeline.Options{
		TileSize:    tileSize,
		Layer:       t.cfg.Layer,
		Ramp:        t.cfg.Ramp,
		Filters:     t.cfg.Filters,
		Compression: t.cfg.Compression,
	}, t.logger)
	if err != nil {
		return nil, err
	}

	actual, _ := t.gens.LoadOrStore(tileSize, g)
	return actual.(*pipeline.Generator), nil
}

type tileLock struct {
	mu   sync.Mutex
	refs int
}

// lockTile locks key and returns the matching unlock. The last unlock of a
// key drops its entry.
func (t *OnDemandTiles) lockTile(key string) func() {
	t.locksMu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &tileLock{}
		t.locks[key] = l
	}
	l.refs++
	t.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		t.locksMu.Lock()
		defer t.locksMu.Unlock()
		if l.refs--; l.refs == 0 {
			delete(t.locks, key)
		}
	}
}

func (t *OnDemandTiles) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

func writePNG(w http.ResponseWriter, data []byte, logger *slog.Logger) {
	w.Header().Set("Content-Type", "image/png")
	if _, err := bytes.NewReader(data).WriteTo(w); err != nil {
		logger.Error("Failed to write response", "error", err)
	}
}

func syncMapKeys(m *sync.Map) []string {
	keys := []string{}
	m.Range(func(key, _ any) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}
