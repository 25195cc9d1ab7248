// Package texture rasterises a noise field into height, normal and color
// images and handles PNG output.
package texture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/noisefield/internal/field"
	"github.com/MeKo-Tech/noisefield/internal/tile"
)

// ErrInvalidSize is returned when the requested image size is not positive.
var ErrInvalidSize = errors.New("size must be positive")

// Options controls how a field is rasterised.
type Options struct {
	// Size is the edge length of the square output in pixels.
	Size int
	// Bounds is the region of the XZ plane to cover, X along image columns
	// and Z along rows. The zero value covers the unit square.
	Bounds orb.Bound
	// Signed maps noise values from [-1,1] to [0,1] before encoding.
	Signed bool
	// Ramp colors the normalised height. Nil renders grayscale.
	Ramp Ramp
}

// Maps holds the rendered images.
type Maps struct {
	Height *image.Gray16
	Normal *image.NRGBA
	Color  *image.NRGBA
}

func (o Options) bounds() orb.Bound {
	if o.Bounds.IsZero() {
		return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	}
	return o.Bounds
}

// pixelRows returns one point per pixel for rows [y0, y1), row by row, at
// the pixel centers of b. Adjacent bounds therefore sample disjoint, evenly
// spaced grids.
func pixelRows(b orb.Bound, size, y0, y1 int) [][3]float32 {
	points := make([][3]float32, 0, (y1-y0)*size)
	w := (b.Max[0] - b.Min[0]) / float64(size)
	h := (b.Max[1] - b.Min[1]) / float64(size)
	for y := y0; y < y1; y++ {
		z := float32(b.Min[1] + (float64(y)+0.5)*h)
		for x := range size {
			points = append(points, [3]float32{float32(b.Min[0] + (float64(x)+0.5)*w), 0, z})
		}
	}
	return points
}

// rowBatch is the number of rows evaluated between context checks.
const rowBatch = 16

// Render samples ev over opts.Bounds and fills all three maps. Heights use the
// raw noise value; normals follow the displaced surface, so the evaluator's
// Displacement controls their steepness. Each pixel is evaluated once.
// Render stops with ctx.Err() once ctx is done.
func Render(ctx context.Context, ev *field.Evaluator, opts Options) (*Maps, error) {
	if opts.Size <= 0 {
		return nil, ErrInvalidSize
	}
	size := opts.Size
	bounds := opts.bounds()

	// Raw values with caller-space slopes; displacement is applied to the
	// slopes below.
	raw := *ev
	raw.Displacement = 1

	rect := image.Rect(0, 0, size, size)
	maps := &Maps{
		Height: image.NewGray16(rect),
		Normal: image.NewNRGBA(rect),
		Color:  image.NewNRGBA(rect),
	}

	for y0 := 0; y0 < size; y0 += rowBatch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y1 := min(y0+rowBatch, size)

		for i, s := range raw.Samples(pixelRows(bounds, size, y0, y1)) {
			x, y := i%size, y0+i/size
			h := s.Value
			if opts.Signed {
				h = (h + 1) * 0.5
			}
			h = clamp01(h)

			maps.Height.SetGray16(x, y, color.Gray16{Y: uint16(h*65535 + 0.5)})
			maps.Color.SetNRGBA(x, y, opts.Ramp.At(h))

			// Image rows grow along +Z, so green encodes -Z.
			n := field.PlaneNormal(s.Gradient[0]*ev.Displacement, s.Gradient[2]*ev.Displacement)
			maps.Normal.SetNRGBA(x, y, color.NRGBA{
				R: encodeUnit(n[0]),
				G: encodeUnit(-n[2]),
				B: encodeUnit(n[1]),
				A: 255,
			})
		}
	}

	return maps, nil
}

// RenderTile renders the part of the unit square covered by coords.
func RenderTile(ctx context.Context, ev *field.Evaluator, coords tile.Coords, opts Options) (*Maps, error) {
	opts.Bounds = coords.Bounds()
	return Render(ctx, ev, opts)
}

func encodeUnit(v float32) uint8 {
	return to8((v + 1) * 0.5)
}

// Layer names one of the rendered maps.
type Layer string

const (
	LayerHeight Layer = "height"
	LayerNormal Layer = "normal"
	LayerColor  Layer = "color"
)

// Layers returns every layer in output order.
func Layers() []Layer {
	return []Layer{LayerHeight, LayerNormal, LayerColor}
}

// ParseLayer accepts "height", "normal" or "color".
func ParseLayer(s string) (Layer, error) {
	for _, l := range Layers() {
		if string(l) == strings.ToLower(s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layer %q (expected height, normal or color)", s)
}

// Image returns the map for l, or nil for an unknown layer.
func (m *Maps) Image(l Layer) image.Image {
	switch l {
	case LayerHeight:
		return m.Height
	case LayerNormal:
		return m.Normal
	case LayerColor:
		return m.Color
	}
	return nil
}
