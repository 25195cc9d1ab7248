package noise

import (
	"github.com/MeKo-Tech/noisefield/internal/hash"
	"github.com/MeKo-Tech/noisefield/internal/lane"
)

// VoronoiData tracks the nearest (A) and second nearest (B) distance samples
// seen while scanning neighbouring cells.
type VoronoiData struct {
	A, B Sample4
}

// Selector reduces finalized Voronoi data to a single sample.
type Selector interface {
	Evaluate(data VoronoiData) Sample4
}

// F1 selects the nearest distance.
type F1 struct{}

func (F1) Evaluate(data VoronoiData) Sample4 { return data.A }

// F2 selects the second nearest distance.
type F2 struct{}

func (F2) Evaluate(data VoronoiData) Sample4 { return data.B }

// F2MinusF1 is zero on cell borders and grows toward cell points.
type F2MinusF1 struct{}

func (F2MinusF1) Evaluate(data VoronoiData) Sample4 { return data.B.Sub(data.A) }

// Voronoi1D scans the cell containing each point and both neighbours, one
// jittered point per cell.
type Voronoi1D[L Lattice, D Distance, F Selector] struct{}

func (Voronoi1D[L, D, F]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var (
		l   L
		d   D
		sel F
	)
	x := l.Span(p.X, frequency)

	data := d.Initial()
	for u := int32(-1); u <= 1; u++ {
		c := h.Eat(l.ValidateSingleStep(x.P0.Offset(u), frequency))
		data = d.Update(data, d.Distance1D(c.FloatsA().Offset(float32(u)).Sub(x.G0)))
	}

	s := sel.Evaluate(d.Finalize1D(data))
	s.DX = s.DX.Scale(float32(frequency))
	return s
}

// Voronoi2D scans the 3×3 cells around each point on the XZ plane, two
// jittered points per cell taken from the four hash bytes.
type Voronoi2D[L Lattice, D Distance, F Selector] struct{}

func (Voronoi2D[L, D, F]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var (
		l   L
		d   D
		sel F
	)
	x := l.Span(p.X, frequency)
	z := l.Span(p.Z, frequency)

	data := d.Initial()
	for u := int32(-1); u <= 1; u++ {
		hx := h.Eat(l.ValidateSingleStep(x.P0.Offset(u), frequency))
		xOffset := lane.Splat(float32(u)).Sub(x.G0)

		for v := int32(-1); v <= 1; v++ {
			c := hx.Eat(l.ValidateSingleStep(z.P0.Offset(v), frequency))
			zOffset := lane.Splat(float32(v)).Sub(z.G0)

			data = d.Update(data, d.Distance2D(c.FloatsA().Add(xOffset), c.FloatsB().Add(zOffset)))
			data = d.Update(data, d.Distance2D(c.FloatsC().Add(xOffset), c.FloatsD().Add(zOffset)))
		}
	}

	s := sel.Evaluate(d.Finalize2D(data))
	s.DX = s.DX.Scale(float32(frequency))
	s.DZ = s.DZ.Scale(float32(frequency))
	return s
}

// Voronoi3D scans the 3×3×3 cells around each point, two jittered points per
// cell taken from disjoint 5-bit windows of the hash.
type Voronoi3D[L Lattice, D Distance, F Selector] struct{}

func (Voronoi3D[L, D, F]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var (
		l   L
		d   D
		sel F
	)
	x := l.Span(p.X, frequency)
	y := l.Span(p.Y, frequency)
	z := l.Span(p.Z, frequency)

	data := d.Initial()
	for u := int32(-1); u <= 1; u++ {
		hx := h.Eat(l.ValidateSingleStep(x.P0.Offset(u), frequency))
		xOffset := lane.Splat(float32(u)).Sub(x.G0)

		for v := int32(-1); v <= 1; v++ {
			hy := hx.Eat(l.ValidateSingleStep(y.P0.Offset(v), frequency))
			yOffset := lane.Splat(float32(v)).Sub(y.G0)

			for w := int32(-1); w <= 1; w++ {
				c := hy.Eat(l.ValidateSingleStep(z.P0.Offset(w), frequency))
				zOffset := lane.Splat(float32(w)).Sub(z.G0)

				data = d.Update(data, d.Distance3D(
					c.UnitFloats(5, 0).Add(xOffset),
					c.UnitFloats(5, 5).Add(yOffset),
					c.UnitFloats(5, 10).Add(zOffset)))

				data = d.Update(data, d.Distance3D(
					c.UnitFloats(5, 15).Add(xOffset),
					c.UnitFloats(5, 20).Add(yOffset),
					c.UnitFloats(5, 25).Add(zOffset)))
			}
		}
	}

	s := sel.Evaluate(d.Finalize3D(data))
	s.DX = s.DX.Scale(float32(frequency))
	s.DY = s.DY.Scale(float32(frequency))
	s.DZ = s.DZ.Scale(float32(frequency))
	return s
}
