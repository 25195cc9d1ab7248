package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/noisefield/internal/preset"
)

func testPreset(t *testing.T) preset.Preset {
	t.Helper()
	set, err := preset.Defaults()
	require.NoError(t, err)
	p, err := set.Get("terrain")
	require.NoError(t, err)
	return p
}

func newTestTiles(t *testing.T, cfg OnDemandTilesConfig) *OnDemandTiles {
	t.Helper()
	cfg.Preset = testPreset(t)
	if cfg.BaseTileSize == 0 {
		cfg.BaseTileSize = 16
	}
	od, err := NewOnDemandTiles(cfg, nil)
	require.NoError(t, err)
	return od
}

func getTile(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeSize(t *testing.T, body []byte) image.Rectangle {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	return img.Bounds()
}

func TestOnDemandTiles_RendersAndCaches(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{CacheControl: "max-age=60"})
	h := od.Handler()

	rec := getTile(t, h, "/tiles/z1_x0_y1.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "max-age=60", rec.Header().Get("Cache-Control"))
	assert.Equal(t, image.Rect(0, 0, 16, 16), decodeSize(t, rec.Body.Bytes()))
	first := rec.Body.Bytes()

	rec = getTile(t, h, "/tiles/z1_x0_y1.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, rec.Body.Bytes())

	status := od.Status()
	assert.Equal(t, "terrain", status.Preset)
	assert.Equal(t, int64(1), status.Render.TotalRendered)
	assert.Equal(t, int64(1), status.Cache.Hits)
	assert.Equal(t, 1, status.Cache.Entries)
	assert.Empty(t, status.Render.CurrentTiles)
	assert.Empty(t, status.Render.QueuedTiles)
}

func TestOnDemandTiles_HiDPI(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{})

	rec := getTile(t, od.Handler(), "/tiles/z2_x1_y3@2x.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image.Rect(0, 0, 32, 32), decodeSize(t, rec.Body.Bytes()))
}

func TestOnDemandTiles_NotFound(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{})
	h := od.Handler()

	for _, path := range []string{
		"/tiles/z1_x2_y0.png",
		"/tiles/z1_x0_y0.jpg",
		"/tiles/terrain.png",
	} {
		rec := getTile(t, h, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Zero(t, od.Status().Render.TotalRendered)
}

func TestOnDemandTiles_DiskCache(t *testing.T) {
	dir := t.TempDir()
	od := newTestTiles(t, OnDemandTilesConfig{TilesDir: dir})

	rec := getTile(t, od.Handler(), "/tiles/z0_x0_y0.png")
	require.Equal(t, http.StatusOK, rec.Code)

	cached, err := os.ReadFile(filepath.Join(dir, "z0_x0_y0.png"))
	require.NoError(t, err)
	assert.Equal(t, rec.Body.Bytes(), cached)

	rec = getTile(t, od.Handler(), "/tiles/z0_x0_y0.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cached, rec.Body.Bytes())
	assert.Equal(t, int64(1), od.Status().Render.TotalRendered)
}

func TestOnDemandTiles_DisableCache(t *testing.T) {
	dir := t.TempDir()
	od := newTestTiles(t, OnDemandTilesConfig{TilesDir: dir, DisableCache: true})

	for i := 0; i < 2; i++ {
		rec := getTile(t, od.Handler(), "/tiles/z0_x0_y0.png")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, int64(2), od.Status().Render.TotalRendered)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOnDemandTiles_InvalidConfig(t *testing.T) {
	_, err := NewOnDemandTiles(OnDemandTilesConfig{}, nil)
	assert.Error(t, err, "missing preset")

	_, err = NewOnDemandTiles(OnDemandTilesConfig{Preset: testPreset(t), Compression: "zstd"}, nil)
	assert.Error(t, err)
}

func TestOnDemandTiles_StatusHandler(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{MaxConcurrentRenders: 3})

	rec := getTile(t, od.StatusHandler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status TileStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 3, status.Render.MaxConcurrent)
	assert.Equal(t, 512, status.Cache.Capacity)
}

func TestOnDemandTiles_StatusStream(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{})

	// A cancelled request still receives the initial event.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/status/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	od.StatusStreamHandler(0).ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "data: "), body)

	var status TileStatus
	payload := strings.TrimSpace(strings.TrimPrefix(body, "data: "))
	require.NoError(t, json.Unmarshal([]byte(payload), &status))
	assert.Equal(t, "terrain", status.Preset)
}

func TestOnDemandTiles_PresetHandler(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{})

	rec := getTile(t, od.PresetHandler(), "/preset")
	require.Equal(t, http.StatusOK, rec.Code)

	var p preset.Preset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, testPreset(t), p)
}

func TestOnDemandTiles_MemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{CacheEntries: 2})
	h := od.Handler()

	for _, path := range []string{"/tiles/z0_x0_y0.png", "/tiles/z1_x0_y0.png", "/tiles/z0_x0_y0.png", "/tiles/z1_x1_y0.png"} {
		require.Equal(t, http.StatusOK, getTile(t, h, path).Code, path)
	}

	// z0 was read again before z1_x1_y0 arrived, so z1_x0_y0 was dropped.
	status := od.Status()
	assert.Equal(t, 2, status.Cache.Entries)
	assert.Equal(t, 2, status.Cache.Capacity)
	assert.Equal(t, int64(1), status.Cache.Hits)
	assert.True(t, od.cache.Contains("z0_x0_y0"))
	assert.False(t, od.cache.Contains("z1_x0_y0"))
	assert.True(t, od.cache.Contains("z1_x1_y0"))
}

func TestOnDemandTiles_RenderTimeout(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{BaseTileSize: 1024, RenderTimeout: time.Nanosecond, DisableCache: true})

	rec := getTile(t, od.Handler(), "/tiles/z0_x0_y0.png")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	status := od.Status()
	assert.Equal(t, int64(1), status.Render.TotalFailed)
	assert.Zero(t, status.Render.TotalRendered)
	assert.Zero(t, status.Render.ActiveRenders)
}

func TestOnDemandTiles_ReleasesTileLocks(t *testing.T) {
	od := newTestTiles(t, OnDemandTilesConfig{MaxConcurrentRenders: 2})
	h := od.Handler()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("/tiles/z2_x%d_y1.png", i%4)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}()
	}
	wg.Wait()

	// Each tile rendered once, every lock entry dropped afterwards.
	assert.Equal(t, int64(4), od.Status().Render.TotalRendered)
	od.locksMu.Lock()
	defer od.locksMu.Unlock()
	assert.Empty(t, od.locks)
}
