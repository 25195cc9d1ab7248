package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noisefield/internal/noise"
	"github.com/MeKo-Tech/noisefield/internal/preset"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available noise presets",
	RunE:  runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)

	presetsCmd.Flags().Bool("kinds", false, "List noise kinds instead of presets")
	bindFlags(presetsCmd, []flagBinding{
		{"presets.kinds", "kinds"},
	})
}

func runPresets(cmd *cobra.Command, args []string) error {
	if viper.GetBool("presets.kinds") {
		return listKinds(cmd.OutOrStdout())
	}

	set, err := preset.Load(viper.GetString("presets_file"))
	if err != nil {
		return err
	}
	return listPresets(cmd.OutOrStdout(), set)
}

func listPresets(w io.Writer, set *preset.Set) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDIMS\tTILING\tOCTAVES\tDESCRIPTION")
	for _, p := range set.All() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%d\t%s\n",
			p.Name, p.Kind, p.Dimensions, p.Tiling, p.Settings.Octaves, p.Description)
	}
	return tw.Flush()
}

func listKinds(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tRANGE\tTILING")
	for _, k := range noise.Kinds() {
		valueRange := "[0, 1]"
		if k.Signed() {
			valueRange = "[-1, 1]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\n", k, valueRange, k.SupportsTiling())
	}
	return tw.Flush()
}
