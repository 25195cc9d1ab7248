// Package pipeline turns a preset into encoded tile images and stores them in
// a directory or a tile sink.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	"github.com/MeKo-Tech/noisefield/internal/field"
	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/texture"
	"github.com/MeKo-Tech/noisefield/internal/tile"
)

// Sink stores encoded tiles. mbtiles.Writer implements it.
type Sink interface {
	WriteTile(z, x, y int, data []byte) error
}

// Options controls tile rendering and encoding.
type Options struct {
	TileSize    int
	Layer       texture.Layer
	Ramp        texture.Ramp
	Filters     texture.Filters
	Compression string
}

// DefaultOptions returns 256px color tiles with default compression.
func DefaultOptions() Options {
	return Options{
		TileSize: 256,
		Layer:    texture.LayerColor,
	}
}

// Generator renders tiles of one preset.
type Generator struct {
	ev        *field.Evaluator
	sink      Sink
	logger    *slog.Logger
	preset    preset.Preset
	outputDir string
	opts      Options
}

// NewGenerator prepares a generator. Generate stores tiles in sink when it is
// non-nil and as PNG files in outputDir otherwise. A generator with neither
// can still Render.
func NewGenerator(p preset.Preset, outputDir string, sink Sink, opts Options, logger *slog.Logger) (*Generator, error) {
	if opts.TileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive")
	}
	if opts.Layer == "" {
		opts.Layer = texture.LayerColor
	}
	if _, err := texture.ParseLayer(string(opts.Layer)); err != nil {
		return nil, err
	}
	if _, err := texture.ParseCompression(opts.Compression); err != nil {
		return nil, err
	}

	ev, err := p.Evaluator()
	if err != nil {
		return nil, err
	}
	ev.WithLogger(logger)

	return &Generator{
		ev:        ev,
		sink:      sink,
		logger:    logger,
		preset:    p,
		outputDir: outputDir,
		opts:      opts,
	}, nil
}

// Preset returns the preset the generator renders.
func (g *Generator) Preset() preset.Preset {
	return g.preset
}

// Render produces the encoded PNG for one tile without storing it.
func (g *Generator) Render(ctx context.Context, coords tile.Coords) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !coords.Valid() {
		return nil, fmt.Errorf("invalid tile %s", coords)
	}

	maps, err := texture.RenderTile(ctx, g.ev, coords, texture.Options{
		Size:   g.opts.TileSize,
		Signed: g.preset.Kind.Signed(),
		Ramp:   g.opts.Ramp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render tile %s: %w", coords, err)
	}

	img := texture.PostProcess(maps.Image(g.opts.Layer), g.opts.Filters)
	data, err := texture.PNGBytes(img, g.opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tile %s: %w", coords, err)
	}
	return data, nil
}

// Generate renders one tile and stores it. It returns the file path, or the
// tile name when writing to a sink. Existing files are kept unless force is set.
func (g *Generator) Generate(ctx context.Context, coords tile.Coords, force bool) (string, error) {
	var finalPath string
	if g.sink == nil {
		if g.outputDir == "" {
			return "", fmt.Errorf("no output directory or sink configured")
		}
		finalPath = filepath.Join(g.outputDir, coords.Path("png"))
		if !force {
			if _, err := os.Stat(finalPath); err == nil {
				g.log().Info("Tile already exists; skipping", "coords", coords.String(), "path", finalPath)
				return finalPath, nil
			}
		}
		if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	g.log().Debug("Rendering tile", "coords", coords.String(), "preset", g.preset.Name, "layer", g.opts.Layer)
	data, err := g.Render(ctx, coords)
	if err != nil {
		return "", err
	}

	if g.sink != nil {
		if err := g.sink.WriteTile(int(coords.Z), int(coords.X), int(coords.Y), data); err != nil {
			return "", fmt.Errorf("failed to store tile %s: %w", coords, err)
		}
		return coords.String(), nil
	}

	g.log().Debug("Writing tile", "coords", coords.String(), "path", finalPath)
	if err := os.WriteFile(finalPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write tile file: %w", err)
	}
	return finalPath, nil
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
