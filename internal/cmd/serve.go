package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve noise tiles over HTTP",
	Long: `Serve tiles at /tiles/z{z}_x{x}_y{y}.png (and @2x variants).

With --mbtiles tiles come from a pre-generated database; --render-missing
renders tiles absent from it with the preset stored in the tileset. Otherwise
tiles are rendered on demand from the selected preset and cached on disk
(--tiles-dir) or in memory.

POST /sample evaluates a JSON request against any preset: plain samples,
displaced plane or sphere vertices ("surface") or flow particles ("flow").`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("mbtiles", "", "Serve tiles from this MBTiles database instead of rendering")
	serveCmd.Flags().Bool("render-missing", false, "With --mbtiles, render tiles missing from the database using its stored preset")
	serveCmd.Flags().String("tiles-dir", "", "Cache rendered tiles in this directory (default: in memory)")
	serveCmd.Flags().Int("cache-entries", 512, "Tiles kept by the in-memory cache")
	serveCmd.Flags().String("demo-dir", "", "Directory with static demo files served at /demo/")

	serveCmd.Flags().Bool("disable-cache", false, "Always re-render tiles")
	serveCmd.Flags().Int("max-concurrent-renders", runtime.NumCPU(), "Max concurrent tile renders (default: number of CPUs)")
	serveCmd.Flags().Duration("render-timeout", 30*time.Second, "Timeout per tile render")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for served tiles")

	serveCmd.Flags().Int("tile-size", 256, "Base tile size in pixels (@2x requests render twice the size)")
	serveCmd.Flags().String("layer", "color", "Map to serve: height, normal or color")
	addImageFlags(serveCmd, "serve")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.mbtiles", "mbtiles")
	mustBind("serve.render_missing", "render-missing")
	mustBind("serve.tiles_dir", "tiles-dir")
	mustBind("serve.cache_entries", "cache-entries")
	mustBind("serve.demo_dir", "demo-dir")
	mustBind("serve.disable_cache", "disable-cache")
	mustBind("serve.max_concurrent_renders", "max-concurrent-renders")
	mustBind("serve.render_timeout", "render-timeout")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.tile_size", "tile-size")
	mustBind("serve.layer", "layer")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	routes, closeFn, err := serveRoutes()
	if err != nil {
		return err
	}
	defer closeFn()
	routes.DemoDir = viper.GetString("serve.demo_dir")

	presets, err := preset.Load(viper.GetString("presets_file"))
	if err != nil {
		return err
	}
	routes.Sample = server.NewSampleHandler(presets, logger)

	srv := &http.Server{Addr: addr, Handler: server.NewMux(routes), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Tile server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down tile server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// serveRoutes builds the handlers for either MBTiles or on-demand serving.
// The returned function releases resources held by the handlers.
func serveRoutes() (server.Routes, func(), error) {
	if path := viper.GetString("serve.mbtiles"); path != "" {
		return mbtilesRoutes(path)
	}

	p, err := resolvePreset()
	if err != nil {
		return server.Routes{}, nil, err
	}
	cfg, err := onDemandConfig()
	if err != nil {
		return server.Routes{}, nil, err
	}
	cfg.Preset = p

	od, err := server.NewOnDemandTiles(cfg, logger)
	if err != nil {
		return server.Routes{}, nil, err
	}

	logger.Info("Rendering tiles on demand",
		"preset", p.Name,
		"kind", p.Kind.String(),
		"tile_size", cfg.BaseTileSize,
		"layer", cfg.Layer,
		"tiles_dir", cfg.TilesDir,
	)
	return server.Routes{
		Tiles:        od.Handler(),
		Status:       od.StatusHandler(),
		StatusStream: od.StatusStreamHandler(0),
		Metadata:     od.PresetHandler(),
	}, func() {}, nil
}

func mbtilesRoutes(path string) (server.Routes, func(), error) {
	h, err := server.NewMBTilesHandler(server.MBTilesConfig{
		MBTilesPath:  path,
		CacheControl: viper.GetString("serve.cache_control"),
	}, logger)
	if err != nil {
		return server.Routes{}, nil, err
	}
	closeFn := func() {
		if err := h.Close(); err != nil {
			logger.Warn("Failed to close MBTiles", "error", err)
		}
	}
	routes := server.Routes{Tiles: h.Handler(), Metadata: h.MetadataHandler()}

	if viper.GetBool("serve.render_missing") {
		cfg, err := onDemandConfig()
		if err != nil {
			closeFn()
			return server.Routes{}, nil, err
		}
		od, err := h.RenderMissing(cfg)
		if err != nil {
			closeFn()
			return server.Routes{}, nil, fmt.Errorf("cannot render missing tiles of %s: %w", path, err)
		}
		routes.Status = od.StatusHandler()
		routes.StatusStream = od.StatusStreamHandler(0)
	}

	p, hasPreset := h.Preset()
	logger.Info("Serving MBTiles", "path", path, "preset", p.Name, "has_preset", hasPreset,
		"render_missing", routes.Status != nil)
	return routes, closeFn, nil
}

// onDemandConfig collects the rendering flags. The caller sets the preset.
func onDemandConfig() (server.OnDemandTilesConfig, error) {
	img, err := imageOptions("serve", viper.GetInt("serve.tile_size"))
	if err != nil {
		return server.OnDemandTilesConfig{}, err
	}
	return server.OnDemandTilesConfig{
		TilesDir:             viper.GetString("serve.tiles_dir"),
		CacheEntries:         viper.GetInt("serve.cache_entries"),
		CacheControl:         viper.GetString("serve.cache_control"),
		BaseTileSize:         img.TileSize,
		MaxConcurrentRenders: viper.GetInt("serve.max_concurrent_renders"),
		RenderTimeout:        viper.GetDuration("serve.render_timeout"),
		DisableCache:         viper.GetBool("serve.disable_cache"),
		Compression:          img.Compression,
		Layer:                img.Layer,
		Ramp:                 img.Ramp,
		Filters:              img.Filters,
	}, nil
}
