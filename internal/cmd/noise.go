package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noisefield/internal/noise"
	"github.com/MeKo-Tech/noisefield/internal/pipeline"
	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/texture"
)

// resolvePreset loads the selected preset and applies explicit overrides.
func resolvePreset() (preset.Preset, error) {
	set, err := preset.Load(viper.GetString("presets_file"))
	if err != nil {
		return preset.Preset{}, err
	}
	p, err := set.Get(viper.GetString("preset"))
	if err != nil {
		return preset.Preset{}, err
	}
	return applyOverrides(p, viper.GetViper())
}

// applyOverrides replaces preset fields whose noise.* key was set by a flag,
// the environment or the config file.
func applyOverrides(p preset.Preset, v *viper.Viper) (preset.Preset, error) {
	if v.IsSet("noise.kind") && v.GetString("noise.kind") != "" {
		kind, err := noise.ParseKind(v.GetString("noise.kind"))
		if err != nil {
			return preset.Preset{}, err
		}
		p.Kind = kind
	}
	if v.IsSet("noise.dimensions") {
		p.Dimensions = v.GetInt("noise.dimensions")
	}
	if v.IsSet("noise.tiling") {
		p.Tiling = v.GetBool("noise.tiling")
	}
	if v.IsSet("noise.seed") {
		p.Settings.Seed = v.GetInt32("noise.seed")
	}
	if v.IsSet("noise.frequency") {
		p.Settings.Frequency = v.GetInt32("noise.frequency")
	}
	if v.IsSet("noise.octaves") {
		p.Settings.Octaves = v.GetInt32("noise.octaves")
	}
	if v.IsSet("noise.lacunarity") {
		p.Settings.Lacunarity = v.GetInt32("noise.lacunarity")
	}
	if v.IsSet("noise.persistence") {
		p.Settings.Persistence = float32(v.GetFloat64("noise.persistence"))
	}
	if v.IsSet("noise.displacement") {
		p.Displacement = float32(v.GetFloat64("noise.displacement"))
	}

	if err := p.Validate(); err != nil {
		return preset.Preset{}, err
	}
	return p, nil
}

// addImageFlags registers the color and post-processing flags shared by the
// commands that produce PNGs, bound under section.
func addImageFlags(cmd *cobra.Command, section string) {
	cmd.Flags().String("ramp", "terrain", "Color ramp for the color map (gray, heat, terrain)")
	cmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	cmd.Flags().Float32("blur", 0, "Gaussian blur sigma in pixels")
	cmd.Flags().Float32("contrast", 0, "Contrast adjustment in percent (-100..100)")
	cmd.Flags().Float32("brightness", 0, "Brightness adjustment in percent (-100..100)")
	cmd.Flags().Float32("gamma", 0, "Gamma correction (1 is neutral, 0 disables)")

	bindFlags(cmd, []flagBinding{
		{section + ".ramp", "ramp"},
		{section + ".png_compression", "png-compression"},
		{section + ".blur", "blur"},
		{section + ".contrast", "contrast"},
		{section + ".brightness", "brightness"},
		{section + ".gamma", "gamma"},
	})
}

// imageOptions reads the flags registered by addImageFlags plus the
// section's layer key, which defaults to the color map.
func imageOptions(section string, tileSize int) (pipeline.Options, error) {
	layer := texture.LayerColor
	if name := viper.GetString(section + ".layer"); name != "" {
		parsed, err := texture.ParseLayer(name)
		if err != nil {
			return pipeline.Options{}, err
		}
		layer = parsed
	}
	ramp, err := texture.LookupRamp(viper.GetString(section + ".ramp"))
	if err != nil {
		return pipeline.Options{}, err
	}
	compression := viper.GetString(section + ".png_compression")
	if _, err := texture.ParseCompression(compression); err != nil {
		return pipeline.Options{}, err
	}
	if tileSize <= 0 {
		return pipeline.Options{}, fmt.Errorf("tile size must be positive, got %d", tileSize)
	}

	return pipeline.Options{
		TileSize:    tileSize,
		Layer:       layer,
		Ramp:        ramp,
		Compression: compression,
		Filters:     filtersFromConfig(section),
	}, nil
}

func filtersFromConfig(section string) texture.Filters {
	return texture.Filters{
		Blur:       float32(viper.GetFloat64(section + ".blur")),
		Contrast:   float32(viper.GetFloat64(section + ".contrast")),
		Brightness: float32(viper.GetFloat64(section + ".brightness")),
		Gamma:      float32(viper.GetFloat64(section + ".gamma")),
	}
}
