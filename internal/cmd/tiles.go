package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noisefield/internal/mbtiles"
	"github.com/MeKo-Tech/noisefield/internal/pipeline"
	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/server"
	"github.com/MeKo-Tech/noisefield/internal/tile"
	"github.com/MeKo-Tech/noisefield/internal/worker"
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Generate a tile pyramid",
	Long: `Generate z/x/y tiles of a preset over the unit noise domain.

Zoom 0 is a single tile covering the whole domain; each zoom level splits every
tile into four. Tiles are written as z{z}_x{x}_y{y}.png files or into an MBTiles
database. With --root only the subtree below that tile is rendered, together
with its ancestors inside the zoom range.`,
	RunE: runTiles,
}

func init() {
	rootCmd.AddCommand(tilesCmd)

	tilesCmd.Flags().Int("zoom-min", 0, "Minimum zoom level")
	tilesCmd.Flags().Int("zoom-max", 2, "Maximum zoom level")
	tilesCmd.Flags().String("root", "z0_x0_y0", "Render only the subtree below this tile")
	tilesCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	tilesCmd.Flags().Bool("progress", true, "Show progress bar")
	tilesCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some tiles fail")
	tilesCmd.Flags().Bool("force", false, "Re-render tiles that already exist")
	tilesCmd.Flags().Int("tile-size", 256, "Tile size in pixels")
	tilesCmd.Flags().String("layer", "color", "Map to emit: height, normal or color")
	tilesCmd.Flags().String("format", "folder", "Output format: folder or mbtiles")
	tilesCmd.Flags().String("output-file", "", "Output file path for MBTiles format (e.g., noise.mbtiles)")
	addImageFlags(tilesCmd, "tiles")

	bindFlags(tilesCmd, []flagBinding{
		{"tiles.zoom_min", "zoom-min"},
		{"tiles.zoom_max", "zoom-max"},
		{"tiles.root", "root"},
		{"tiles.workers", "workers"},
		{"tiles.progress", "progress"},
		{"tiles.allow_failures", "allow-failures"},
		{"tiles.force", "force"},
		{"tiles.tile_size", "tile-size"},
		{"tiles.layer", "layer"},
		{"tiles.format", "format"},
		{"tiles.output_file", "output-file"},
	})
}

type tilesOptions struct {
	ZoomMin       int
	ZoomMax       int
	Root          string
	Workers       int
	Progress      bool
	AllowFailures bool
	Force         bool
	Format        string
	OutputDir     string
	OutputFile    string
	Image         pipeline.Options
}

func runTiles(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	p, err := resolvePreset()
	if err != nil {
		return err
	}
	img, err := imageOptions("tiles", viper.GetInt("tiles.tile_size"))
	if err != nil {
		return err
	}

	opts := tilesOptions{
		ZoomMin:       viper.GetInt("tiles.zoom_min"),
		ZoomMax:       viper.GetInt("tiles.zoom_max"),
		Root:          viper.GetString("tiles.root"),
		Workers:       viper.GetInt("tiles.workers"),
		Progress:      viper.GetBool("tiles.progress"),
		AllowFailures: viper.GetBool("tiles.allow_failures"),
		Force:         viper.GetBool("tiles.force"),
		Format:        viper.GetString("tiles.format"),
		OutputDir:     viper.GetString("output-dir"),
		OutputFile:    viper.GetString("tiles.output_file"),
		Image:         img,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return generateTiles(ctx, p, opts)
}

// generateTiles renders every tile in the zoom range with a worker pool and
// stores it in a folder or an MBTiles database.
func generateTiles(ctx context.Context, p preset.Preset, opts tilesOptions) error {
	if opts.Format != "folder" && opts.Format != "mbtiles" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'mbtiles'", opts.Format)
	}
	if opts.Format == "mbtiles" && opts.OutputFile == "" {
		return fmt.Errorf("--output-file is required when using --format=mbtiles")
	}
	if opts.ZoomMin < 0 || opts.ZoomMax < 0 {
		return fmt.Errorf("zoom levels must be non-negative")
	}
	if opts.ZoomMin > opts.ZoomMax {
		return fmt.Errorf("--zoom-min (%d) must be <= --zoom-max (%d)", opts.ZoomMin, opts.ZoomMax)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	root := tile.Coords{}
	if opts.Root != "" {
		var err error
		if root, err = tile.ParseCoords(opts.Root); err != nil {
			return fmt.Errorf("invalid --root: %w", err)
		}
	}
	levels, err := worker.Plan(root, uint32(opts.ZoomMin), uint32(opts.ZoomMax), opts.Force)
	if err != nil {
		return err
	}
	total := worker.Count(levels)

	if logger == nil {
		initLogging()
	}
	logger.Info("Starting tile generation",
		"preset", p.Name,
		"kind", p.Kind,
		"root", root.String(),
		"zoom_range", fmt.Sprintf("%d-%d", opts.ZoomMin, opts.ZoomMax),
		"tiles", total,
		"workers", opts.Workers,
		"format", opts.Format,
		"layer", opts.Image.Layer,
	)

	var writer *mbtiles.Writer
	var sink pipeline.Sink
	if opts.Format == "mbtiles" {
		metadata := mbtiles.Metadata{
			Name:        p.Name,
			Format:      "png",
			MinZoom:     opts.ZoomMin,
			MaxZoom:     opts.ZoomMax,
			Description: p.Description,
			Type:        "overlay",
			Version:     "1.0",
		}
		if err := metadata.SetNoise(p); err != nil {
			return err
		}
		if !opts.Force {
			if err := checkTilesetPreset(opts.OutputFile, p); err != nil {
				return err
			}
		}

		writer, err = mbtiles.New(opts.OutputFile, metadata)
		if err != nil {
			return fmt.Errorf("failed to create MBTiles writer: %w", err)
		}
		defer writer.Close()
		sink = writer
	}

	gen, err := pipeline.NewGenerator(p, opts.OutputDir, sink, opts.Image, logger)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	job := worker.Job{Preset: p.Name, Kind: p.Kind, Layer: opts.Image.Layer}
	progress := worker.NewProgress(job, total, opts.Progress)
	pool := worker.New(worker.Config{
		Workers:    opts.Workers,
		Job:        job,
		Generator:  gen,
		OnProgress: progress.Record,
	})

	results := pool.Run(ctx, levels)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Tile generation failed", "job", r.Job.String(), "coords", r.Task.Coords.String(), "error", r.Err)
		}
	}
	logger.Info(progress.Summary())

	if writer != nil {
		if err := writer.Close(); err != nil {
			return fmt.Errorf("failed to finalize MBTiles: %w", err)
		}
		logger.Info("MBTiles generation complete", "path", writer.Path(), "tiles", writer.Written())
	}

	if failedCount > 0 {
		if !opts.AllowFailures {
			return fmt.Errorf("%d of %d tiles failed to generate", failedCount, total)
		}
		logger.Warn("Some tiles failed to generate, but continuing due to --allow-failures flag", "failed_count", failedCount)
	}
	return nil
}

// checkTilesetPreset refuses to add tiles of p to an existing tileset that was
// rendered with a different preset.
func checkTilesetPreset(path string, p preset.Preset) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	r, err := mbtiles.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open existing tileset: %w", err)
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	stored, err := server.TilesetPreset(meta)
	if err != nil {
		logger.Warn("Adding to a tileset without a stored preset", "path", path, "error", err)
		return nil
	}
	if stored != p {
		return fmt.Errorf("%s holds tiles of preset %q (%s); use --force to replace it", path, stored.Name, stored.Kind)
	}
	return nil
}
