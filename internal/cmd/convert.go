package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noisefield/internal/mbtiles"
	"github.com/MeKo-Tech/noisefield/internal/tile"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert folder tiles to MBTiles format",
	Long:  `Convert a folder of z{z}_x{x}_y{y}.png tiles into an MBTiles database.`,
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("input-dir", "./out", "Input directory containing tiles")
	convertCmd.Flags().StringP("output", "o", "", "Output MBTiles file path (required)")
	convertCmd.Flags().String("name", "noisefield", "Tileset name")
	convertCmd.Flags().String("description", "Procedural noise tiles", "Tileset description")
	convertCmd.Flags().Bool("with-preset", false, "Store the selected preset as noise metadata")

	bindFlags(convertCmd, []flagBinding{
		{"convert.input_dir", "input-dir"},
		{"convert.output", "output"},
		{"convert.name", "name"},
		{"convert.description", "description"},
		{"convert.with_preset", "with-preset"},
	})
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputDir := viper.GetString("convert.input_dir")
	outputFile := viper.GetString("convert.output")

	if logger == nil {
		initLogging()
	}

	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}
	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s", inputDir)
	}

	metadata := mbtiles.Metadata{
		Name:        viper.GetString("convert.name"),
		Description: viper.GetString("convert.description"),
	}
	if viper.GetBool("convert.with_preset") {
		p, err := resolvePreset()
		if err != nil {
			return err
		}
		if err := metadata.SetNoise(p); err != nil {
			return err
		}
		if err := checkTilesetPreset(outputFile, p); err != nil {
			return err
		}
	}

	logger.Info("Converting folder tiles to MBTiles", "input_dir", inputDir, "output", outputFile)
	n, err := convertFolder(inputDir, outputFile, metadata)
	if err != nil {
		return err
	}
	logger.Info("Conversion complete", "output", outputFile, "tiles", n)
	return nil
}

// convertFolder copies every tile found in dir into a new MBTiles database.
// The zoom range in metadata is taken from the tiles found.
func convertFolder(dir, outputFile string, metadata mbtiles.Metadata) (int, error) {
	tiles, minZoom, maxZoom, err := scanTilesDirectory(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan tiles directory: %w", err)
	}
	if len(tiles) == 0 {
		return 0, fmt.Errorf("no tiles found in %s", dir)
	}

	metadata.Format = "png"
	metadata.MinZoom = minZoom
	metadata.MaxZoom = maxZoom
	if metadata.Type == "" {
		metadata.Type = "overlay"
	}
	if metadata.Version == "" {
		metadata.Version = "1.0"
	}

	writer, err := mbtiles.New(outputFile, metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to create MBTiles writer: %w", err)
	}
	defer writer.Close()

	for i, t := range tiles {
		pngData, err := os.ReadFile(t.path)
		if err != nil {
			return 0, fmt.Errorf("failed to read tile %s: %w", t.path, err)
		}
		if err := writer.WriteTile(int(t.coords.Z), int(t.coords.X), int(t.coords.Y), pngData); err != nil {
			return 0, fmt.Errorf("failed to write tile %s: %w", t.coords, err)
		}
		if logger != nil && (i+1)%100 == 0 {
			logger.Info("Progress", "converted", i+1, "total", len(tiles))
		}
	}

	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize MBTiles: %w", err)
	}
	return len(tiles), nil
}

type tileFile struct {
	coords tile.Coords
	path   string
}

// scanTilesDirectory finds z{z}_x{x}_y{y}.png files below dir. HiDPI (@2x)
// tiles and unrelated files are skipped.
func scanTilesDirectory(dir string) ([]tileFile, int, int, error) {
	var tiles []tileFile
	minZoom := tile.MaxZoom
	maxZoom := 0

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".png" {
			return nil
		}

		coords, err := tile.ParseCoords(strings.TrimSuffix(d.Name(), ".png"))
		if err != nil {
			return nil
		}
		tiles = append(tiles, tileFile{coords: coords, path: path})

		z := int(coords.Z)
		minZoom = min(minZoom, z)
		maxZoom = max(maxZoom, z)
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}

	if len(tiles) == 0 {
		minZoom, maxZoom = 0, 0
	}
	return tiles, minZoom, maxZoom, nil
}
