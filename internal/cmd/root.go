package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "noisefield",
	Short: "Procedural noise fields, textures and tiles",
	Long: `Noisefield evaluates gradient, simplex and cellular noise with analytic
derivatives.

It renders height, normal and color maps, generates tile pyramids as folders or
MBTiles, serves tiles over HTTP and samples the field into CSV.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.String("output-dir", "./out", "Output directory for rendered images and tiles")
	flags.Bool("verbose", false, "Enable verbose logging")

	flags.StringP("preset", "p", "terrain", "Noise preset name (see 'noisefield presets')")
	flags.String("presets", "", "YAML file with additional presets")
	flags.String("kind", "", "Override the preset's noise kind")
	flags.Int("dimensions", 3, "Override the preset's dimensions (1, 2 or 3)")
	flags.Bool("tiling", false, "Override the preset's tiling flag")
	flags.Int32("seed", 0, "Override the preset's seed")
	flags.Int32("frequency", 4, "Override the preset's base frequency")
	flags.Int32("octaves", 1, "Override the preset's octave count")
	flags.Int32("lacunarity", 2, "Override the preset's lacunarity")
	flags.Float32("persistence", 0.5, "Override the preset's persistence")
	flags.Float32("displacement", 1, "Override the preset's displacement scale")

	bindPersistentFlags(rootCmd, []flagBinding{
		{"output-dir", "output-dir"},
		{"verbose", "verbose"},
		{"preset", "preset"},
		{"presets_file", "presets"},
		{"noise.kind", "kind"},
		{"noise.dimensions", "dimensions"},
		{"noise.tiling", "tiling"},
		{"noise.seed", "seed"},
		{"noise.frequency", "frequency"},
		{"noise.octaves", "octaves"},
		{"noise.lacunarity", "lacunarity"},
		{"noise.persistence", "persistence"},
		{"noise.displacement", "displacement"},
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("NOISEFIELD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

type flagBinding struct {
	key  string
	flag string
}

func bindFlags(cmd *cobra.Command, bindings []flagBinding) {
	for _, bf := range bindings {
		if err := viper.BindPFlag(bf.key, cmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func bindPersistentFlags(cmd *cobra.Command, bindings []flagBinding) {
	for _, bf := range bindings {
		if err := viper.BindPFlag(bf.key, cmd.PersistentFlags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}
