package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noisefield/internal/field"
	"github.com/MeKo-Tech/noisefield/internal/preset"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Sample noise values and derivatives into CSV",
	Long: `Evaluate the preset at a set of points and write x, y, z, value, dx, dy, dz
as CSV.

Points lie on a line (--from, --to, --count), on a grid covering the XZ
square [-0.5, 0.5]² (--grid), spread over the unit sphere (--mode sphere
with --count) or come from the x, y, z columns of a CSV file (--input).

--surface plane|sphere displaces the points and writes positions, normals
and tangents instead. --flow writes particle velocities on the surface
(plane unless --surface sphere); --curl turns them along the contour lines.`,
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().String("mode", "line", "Point set: line, grid or sphere")
	sampleCmd.Flags().String("from", "0,0,0", "Line start as x,y,z")
	sampleCmd.Flags().String("to", "1,0,0", "Line end as x,y,z")
	sampleCmd.Flags().Int("count", 16, "Number of points on the line or sphere")
	sampleCmd.Flags().Int("grid", 8, "Grid resolution per axis")
	sampleCmd.Flags().String("input", "", "Read points from the x, y, z columns of this CSV file")
	sampleCmd.Flags().String("surface", "", "Displace points on a surface: plane or sphere")
	sampleCmd.Flags().Bool("flow", false, "Write flow velocities instead of samples")
	sampleCmd.Flags().Bool("curl", false, "With --flow, follow contour lines instead of the gradient")
	sampleCmd.Flags().StringP("output", "o", "", "Output CSV file (default: stdout)")

	bindFlags(sampleCmd, []flagBinding{
		{"sample.mode", "mode"},
		{"sample.from", "from"},
		{"sample.to", "to"},
		{"sample.count", "count"},
		{"sample.grid", "grid"},
		{"sample.input", "input"},
		{"sample.surface", "surface"},
		{"sample.flow", "flow"},
		{"sample.curl", "curl"},
		{"sample.output", "output"},
	})
}

type sampleOptions struct {
	Mode  string
	From  [3]float32
	To    [3]float32
	Count int
	Grid  int
	// Input replaces the generated points when set.
	Input io.Reader
	// Surface is empty for plain samples.
	Surface string
	Flow    bool
	Curl    bool
}

func runSample(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	p, err := resolvePreset()
	if err != nil {
		return err
	}
	from, err := parseVec3(viper.GetString("sample.from"))
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := parseVec3(viper.GetString("sample.to"))
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	opts := sampleOptions{
		Mode:  viper.GetString("sample.mode"),
		From:  from,
		To:    to,
		Count: viper.GetInt("sample.count"),
		Grid:  viper.GetInt("sample.grid"),

		Surface: viper.GetString("sample.surface"),
		Flow:    viper.GetBool("sample.flow"),
		Curl:    viper.GetBool("sample.curl"),
	}

	if path := viper.GetString("sample.input"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close() // nolint:errcheck
		opts.Input = f
	}

	var w io.Writer = cmd.OutOrStdout()
	if path := viper.GetString("sample.output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close() // nolint:errcheck
		w = f
	}

	n, err := writeSamples(w, p, opts)
	if err != nil {
		return err
	}
	logger.Debug("Samples written", "preset", p.Name, "points", n)
	return nil
}

// samplePoints returns the point set selected by opts.
func samplePoints(opts sampleOptions) ([][3]float32, error) {
	if opts.Input != nil {
		records, err := field.ReadCSV(opts.Input)
		if err != nil {
			return nil, err
		}
		return field.Points(records), nil
	}

	switch opts.Mode {
	case "line":
		if opts.Count <= 0 {
			return nil, fmt.Errorf("count must be positive, got %d", opts.Count)
		}
		return field.Line(opts.From, opts.To, opts.Count), nil
	case "grid":
		if opts.Grid <= 0 {
			return nil, fmt.Errorf("grid resolution must be positive, got %d", opts.Grid)
		}
		return field.Grid(opts.Grid), nil
	case "sphere":
		if opts.Count <= 0 {
			return nil, fmt.Errorf("count must be positive, got %d", opts.Count)
		}
		return field.SpherePoints(opts.Count), nil
	}
	return nil, fmt.Errorf("invalid mode %q: must be 'line', 'grid' or 'sphere'", opts.Mode)
}

// writeSamples evaluates p at the selected points and writes them as CSV:
// samples, displaced vertices or flow particles depending on opts. It
// returns the number of rows written.
func writeSamples(w io.Writer, p preset.Preset, opts sampleOptions) (int, error) {
	if opts.Curl && !opts.Flow {
		return 0, fmt.Errorf("--curl requires --flow")
	}
	surface := field.SurfacePlane
	if opts.Surface != "" {
		parsed, err := field.ParseSurface(opts.Surface)
		if err != nil {
			return 0, err
		}
		surface = parsed
	}

	points, err := samplePoints(opts)
	if err != nil {
		return 0, err
	}
	ev, err := p.Evaluator()
	if err != nil {
		return 0, err
	}
	ev.WithLogger(logger)

	switch {
	case opts.Flow:
		err = field.WriteCSV(w, field.FlowRecords(ev.Flow(points, surface, opts.Curl)))
	case opts.Surface != "":
		err = field.WriteCSV(w, field.VertexRecords(ev.Displace(surface, field.Vertices(points, surface))))
	default:
		err = field.WriteCSV(w, field.Records(points, ev.Samples(points)))
	}
	if err != nil {
		return 0, err
	}
	return len(points), nil
}

// parseVec3 parses "x,y,z" into a vector.
func parseVec3(s string) ([3]float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float32{}, fmt.Errorf("expected 3 comma-separated values, got %d", len(parts))
	}

	var v [3]float32
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return [3]float32{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		v[i] = float32(val)
	}
	return v, nil
}
