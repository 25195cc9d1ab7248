package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/texture"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render height, normal and color maps of a preset",
	Long: `Render the unit noise domain of a preset into PNG maps.

The height map is 16-bit grayscale, the normal map is a tangent-space normal
map computed from the analytic derivatives and the color map applies a color
ramp to the height.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().IntP("size", "s", 512, "Image size in pixels")
	renderCmd.Flags().StringSlice("layers", []string{"height", "normal", "color"}, "Maps to write")
	renderCmd.Flags().Int("thumbnail", 0, "Also write a thumbnail of the color map with this size (0 disables)")
	addImageFlags(renderCmd, "render")

	bindFlags(renderCmd, []flagBinding{
		{"render.size", "size"},
		{"render.layers", "layers"},
		{"render.thumbnail", "thumbnail"},
	})
}

type renderOptions struct {
	Size        int
	OutputDir   string
	Layers      []texture.Layer
	Ramp        texture.Ramp
	Filters     texture.Filters
	Thumbnail   int
	Compression string
}

func runRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	p, err := resolvePreset()
	if err != nil {
		return err
	}
	size := viper.GetInt("render.size")
	img, err := imageOptions("render", size)
	if err != nil {
		return err
	}

	var layers []texture.Layer
	for _, name := range viper.GetStringSlice("render.layers") {
		l, err := texture.ParseLayer(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		layers = append(layers, l)
	}

	opts := renderOptions{
		Size:        size,
		OutputDir:   viper.GetString("output-dir"),
		Layers:      layers,
		Ramp:        img.Ramp,
		Filters:     img.Filters,
		Thumbnail:   viper.GetInt("render.thumbnail"),
		Compression: img.Compression,
	}

	logger.Info("Starting render",
		"preset", p.Name,
		"kind", p.Kind.String(),
		"dimensions", p.Dimensions,
		"size", size,
		"output_dir", opts.OutputDir,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := renderMaps(ctx, p, opts)
	if err != nil {
		return err
	}
	for _, path := range paths {
		logger.Info("Image written", "path", path)
	}
	return nil
}

// renderMaps renders p over the unit domain and writes one PNG per layer plus
// the optional thumbnail. It returns the written paths.
func renderMaps(ctx context.Context, p preset.Preset, opts renderOptions) ([]string, error) {
	if len(opts.Layers) == 0 && opts.Thumbnail <= 0 {
		return nil, fmt.Errorf("nothing to render: no layers selected")
	}

	ev, err := p.Evaluator()
	if err != nil {
		return nil, err
	}
	ev.WithLogger(logger)

	maps, err := texture.Render(ctx, ev, texture.Options{
		Size:   opts.Size,
		Signed: p.Kind.Signed(),
		Ramp:   opts.Ramp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", p.Name, err)
	}

	var paths []string
	for _, l := range opts.Layers {
		img := texture.PostProcess(maps.Image(l), opts.Filters)
		path := filepath.Join(opts.OutputDir, string(l)+".png")
		if err := texture.WritePNG(path, img, opts.Compression); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if opts.Thumbnail > 0 {
		thumb, err := texture.Thumbnail(texture.PostProcess(maps.Color, opts.Filters), opts.Thumbnail)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(opts.OutputDir, "thumbnail.png")
		if err := texture.WritePNG(path, thumb, opts.Compression); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
