package texture

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// Stop is one color of a Ramp at position Pos in [0,1].
type Stop struct {
	Pos   float32
	Color color.NRGBA
}

// Ramp maps a normalised height to a color by interpolating between stops.
// Stops must be sorted by Pos.
type Ramp []Stop

var ramps = map[string]Ramp{
	"gray": {
		{0, color.NRGBA{R: 0, G: 0, B: 0, A: 255}},
		{1, color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
	},
	"terrain": {
		{0.00, color.NRGBA{R: 24, G: 56, B: 112, A: 255}},
		{0.40, color.NRGBA{R: 66, G: 128, B: 184, A: 255}},
		{0.48, color.NRGBA{R: 218, G: 204, B: 160, A: 255}},
		{0.55, color.NRGBA{R: 104, G: 156, B: 84, A: 255}},
		{0.75, color.NRGBA{R: 120, G: 104, B: 82, A: 255}},
		{0.90, color.NRGBA{R: 244, G: 240, B: 232, A: 255}},
		{1.00, color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
	},
	"heat": {
		{0.0, color.NRGBA{R: 0, G: 0, B: 0, A: 255}},
		{0.4, color.NRGBA{R: 190, G: 30, B: 20, A: 255}},
		{0.7, color.NRGBA{R: 250, G: 160, B: 20, A: 255}},
		{1.0, color.NRGBA{R: 255, G: 255, B: 220, A: 255}},
	},
}

// RampNames returns the names accepted by LookupRamp.
func RampNames() []string {
	names := make([]string, 0, len(ramps))
	for name := range ramps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupRamp returns a built-in ramp by name.
func LookupRamp(name string) (Ramp, error) {
	r, ok := ramps[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown color ramp %q (available: %s)", name, strings.Join(RampNames(), ", "))
	}
	return r, nil
}

// At returns the color at t, clamped to the first and last stop.
func (r Ramp) At(t float32) color.NRGBA {
	if len(r) == 0 {
		v := to8(t)
		return color.NRGBA{R: v, G: v, B: v, A: 255}
	}
	if t <= r[0].Pos {
		return r[0].Color
	}
	for i := 1; i < len(r); i++ {
		if t > r[i].Pos {
			continue
		}
		a, b := r[i-1], r[i]
		f := (t - a.Pos) / (b.Pos - a.Pos)
		return color.NRGBA{
			R: mix(a.Color.R, b.Color.R, f),
			G: mix(a.Color.G, b.Color.G, f),
			B: mix(a.Color.B, b.Color.B, f),
			A: mix(a.Color.A, b.Color.A, f),
		}
	}
	return r[len(r)-1].Color
}

func mix(a, b uint8, f float32) uint8 {
	return uint8(float32(a) + (float32(b)-float32(a))*f + 0.5)
}

func to8(t float32) uint8 {
	return uint8(clamp01(t)*255 + 0.5)
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
