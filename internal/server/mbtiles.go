package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/noisefield/internal/mbtiles"
	"github.com/MeKo-Tech/noisefield/internal/preset"
)

// ErrNoPreset is returned when a tileset carries no usable noise preset.
var ErrNoPreset = errors.New("tileset has no noise preset")

// TilesetPreset decodes and validates the preset stored in tileset metadata.
func TilesetPreset(meta mbtiles.Metadata) (preset.Preset, error) {
	if meta.Noise == "" {
		return preset.Preset{}, ErrNoPreset
	}
	p := preset.Default()
	if err := meta.DecodeNoise(&p); err != nil {
		return preset.Preset{}, fmt.Errorf("%w: %v", ErrNoPreset, err)
	}
	if err := p.Validate(); err != nil {
		return preset.Preset{}, fmt.Errorf("%w: %v", ErrNoPreset, err)
	}
	return p, nil
}

// MBTilesHandler serves tiles from an MBTiles database. Tiles missing from
// the database can be rendered from the stored preset, see RenderMissing.
type MBTilesHandler struct {
	reader       *mbtiles.Reader
	logger       *slog.Logger
	cacheControl string
	preset       *preset.Preset
	fallback     *OnDemandTiles
}

// MBTilesConfig configures the MBTiles handler.
type MBTilesConfig struct {
	MBTilesPath  string
	CacheControl string
}

// NewMBTilesHandler creates a new MBTiles handler.
func NewMBTilesHandler(cfg MBTilesConfig, logger *slog.Logger) (*MBTilesHandler, error) {
	reader, err := mbtiles.OpenReader(cfg.MBTilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MBTiles: %w", err)
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}

	h := &MBTilesHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
	}

	meta, err := reader.Metadata()
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to read MBTiles metadata: %w", err)
	}
	if p, err := TilesetPreset(meta); err == nil {
		h.preset = &p
		h.log().Info("Tileset preset", "preset", p.Name, "kind", p.Kind.String())
	} else {
		h.log().Debug("Tileset has no usable preset", "path", cfg.MBTilesPath, "error", err)
	}
	return h, nil
}

// Preset returns the preset stored in the tileset, if any.
func (h *MBTilesHandler) Preset() (preset.Preset, bool) {
	if h.preset == nil {
		return preset.Preset{}, false
	}
	return *h.preset, true
}

// RenderMissing renders tiles absent from the database with the stored
// preset. cfg.Preset is replaced by the tileset's preset.
func (h *MBTilesHandler) RenderMissing(cfg OnDemandTilesConfig) (*OnDemandTiles, error) {
	p, ok := h.Preset()
	if !ok {
		return nil, ErrNoPreset
	}
	cfg.Preset = p
	od, err := NewOnDemandTiles(cfg, h.logger)
	if err != nil {
		return nil, err
	}
	h.fallback = od
	return od, nil
}

// Handler returns the tile handler.
func (h *MBTilesHandler) Handler() http.Handler {
	return http.HandlerFunc(h.serveTile)
}

// MetadataHandler returns the tileset metadata as JSON. The stored noise
// parameters are embedded as a raw JSON object.
func (h *MBTilesHandler) MetadataHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, err := h.reader.Metadata()
		if err != nil {
			h.log().Error("Failed to read metadata", "error", err)
			http.Error(w, "failed to read metadata", http.StatusInternalServerError)
			return
		}

		body := struct {
			mbtiles.Metadata
			Noise json.RawMessage `json:"noise,omitempty"`
		}{Metadata: meta}
		if meta.Noise != "" && json.Valid([]byte(meta.Noise)) {
			body.Noise = json.RawMessage(meta.Noise)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.log().Error("Failed to encode metadata", "error", err)
		}
	})
}

func (h *MBTilesHandler) serveTile(w http.ResponseWriter, r *http.Request) {
	// The @2x suffix is ignored for stored tiles; a tileset holds a single tile size.
	coords, _, ok := parseTilePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := h.reader.ReadTile(int(coords.Z), int(coords.X), int(coords.Y))
	if errors.Is(err, mbtiles.ErrTileNotFound) && h.fallback != nil {
		h.fallback.Handler().ServeHTTP(w, r)
		return
	}
	if errors.Is(err, mbtiles.ErrTileNotFound) {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log().Error("Failed to read tile", "coords", coords.String(), "error", err)
		http.Error(w, "failed to read tile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

// Close closes the MBTiles reader.
func (h *MBTilesHandler) Close() error {
	return h.reader.Close()
}

func (h *MBTilesHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
