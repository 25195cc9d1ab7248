// Package field drives a noise function over arbitrary point sets: plain value
// grids, displaced plane and sphere surfaces, and flow velocities.
package field

import (
	"log/slog"

	"github.com/MeKo-Tech/noisefield/internal/lane"
	"github.com/MeKo-Tech/noisefield/internal/noise"
	"github.com/MeKo-Tech/noisefield/internal/space"
)

// Evaluator binds a resolved noise function to its settings and domain.
type Evaluator struct {
	Noise    noise.Func
	Settings noise.Settings
	Domain   space.TRS
	// Displacement scales the value and derivatives reported by Samples and
	// the surface helpers. Values ignores it.
	Displacement float32

	logger *slog.Logger
}

// New returns an evaluator with unit displacement.
func New(fn noise.Func, settings noise.Settings, domain space.TRS) *Evaluator {
	return &Evaluator{
		Noise:        fn,
		Settings:     settings,
		Domain:       domain,
		Displacement: 1,
	}
}

// WithLogger sets the logger used for debug output.
func (e *Evaluator) WithLogger(logger *slog.Logger) *Evaluator {
	e.logger = logger
	return e
}

func (e *Evaluator) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// Sample is one evaluated point: the displaced value and its gradient in
// caller space.
type Sample struct {
	Value    float32    `json:"value"`
	Gradient [3]float32 `json:"gradient"`
}

// forEachBatch evaluates points four at a time. A short tail batch is padded
// by repeating its last point; fn only sees the n real lanes.
func (e *Evaluator) forEachBatch(points [][3]float32, fn func(base, n int, s noise.Sample4)) {
	m := e.Domain.Matrix()
	for base := 0; base < len(points); base += lane.Width {
		n := min(lane.Width, len(points)-base)

		var p noise.Position4
		for i := range lane.Width {
			src := points[base+min(i, n-1)]
			p.X[i], p.Y[i], p.Z[i] = src[0], src[1], src[2]
		}
		fn(base, n, e.Noise(m.TransformPositions(p), e.Settings))
	}
}

// Values returns the raw noise value at every point.
func (e *Evaluator) Values(points [][3]float32) []float32 {
	out := make([]float32, len(points))
	e.forEachBatch(points, func(base, n int, s noise.Sample4) {
		copy(out[base:base+n], s.V[:n])
	})
	e.log().Debug("Evaluated noise values", "points", len(points))
	return out
}

// samples4 evaluates like Values but keeps derivatives, mapped into caller
// space and scaled by the displacement.
func (e *Evaluator) samples4(points [][3]float32, fn func(base, n int, s noise.Sample4)) {
	d := e.Domain.DerivativeMatrix()
	e.forEachBatch(points, func(base, n int, s noise.Sample4) {
		fn(base, n, d.TransformDerivatives(s.Scale(e.Displacement)))
	})
}

// Samples returns value and caller-space gradient at every point.
func (e *Evaluator) Samples(points [][3]float32) []Sample {
	out := make([]Sample, len(points))
	e.samples4(points, func(base, n int, s noise.Sample4) {
		for i := range n {
			out[base+i] = Sample{Value: s.V[i], Gradient: s.Derivatives(i)}
		}
	})
	return out
}
