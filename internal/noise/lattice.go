package noise

import (
	"github.com/MeKo-Tech/noisefield/internal/hash"
	"github.com/MeKo-Tech/noisefield/internal/lane"
)

// LatticeSpan4 describes, for one axis, the two lattice points enclosing each
// coordinate, the offsets from both and the quintic interpolation weight.
type LatticeSpan4 struct {
	P0, P1 lane.Int4
	G0, G1 lane.Float4
	T, DT  lane.Float4
}

// Lattice maps scaled coordinates onto lattice indices.
type Lattice interface {
	Span(coordinates lane.Float4, frequency int32) LatticeSpan4
	// ValidateSingleStep fixes up indices that were stepped by at most one cell.
	ValidateSingleStep(points lane.Int4, frequency int32) lane.Int4
}

// LatticeNormal is the unbounded lattice.
type LatticeNormal struct{}

func (LatticeNormal) Span(coordinates lane.Float4, frequency int32) LatticeSpan4 {
	var s LatticeSpan4
	f := float32(frequency)
	for i, c := range coordinates {
		c *= f
		p := lane.Floor(c)
		s.P0[i] = int32(p)
		s.P1[i] = s.P0[i] + 1
		s.G0[i] = c - p
		s.G1[i] = s.G0[i] - 1
		s.T[i], s.DT[i] = quintic(c - p)
	}
	return s
}

func (LatticeNormal) ValidateSingleStep(points lane.Int4, _ int32) lane.Int4 {
	return points
}

// LatticeTiling wraps indices modulo the frequency so the field repeats every
// unit of input coordinate.
type LatticeTiling struct{}

func (LatticeTiling) Span(coordinates lane.Float4, frequency int32) LatticeSpan4 {
	var s LatticeSpan4
	f := float32(frequency)
	for i, c := range coordinates {
		c *= f
		p := lane.Floor(c)
		s.G0[i] = c - p
		s.G1[i] = s.G0[i] - 1

		p0 := int32(p) - int32(p/f)*frequency
		if p0 < 0 {
			p0 += frequency
		}
		p1 := p0 + 1
		if p1 == frequency {
			p1 = 0
		}
		s.P0[i], s.P1[i] = p0, p1
		s.T[i], s.DT[i] = quintic(c - p)
	}
	return s
}

func (LatticeTiling) ValidateSingleStep(points lane.Int4, frequency int32) lane.Int4 {
	for i, p := range points {
		switch p {
		case -1:
			points[i] = frequency - 1
		case frequency:
			points[i] = 0
		}
	}
	return points
}

// quintic returns 6t⁵-15t⁴+10t³ and its derivative.
func quintic(t float32) (w, dw float32) {
	w = t * t * t * (t*(t*6-15) + 10)
	dw = t * t * (t*(t*30-60) + 30)
	return w, dw
}

// Lattice1D blends two gradient corners along X.
type Lattice1D[L Lattice, G Gradient] struct{}

func (Lattice1D[L, G]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var (
		l L
		g G
	)
	x := l.Span(p.X, frequency)

	a := g.Evaluate1D(h.Eat(x.P0), x.G0)
	b := g.Evaluate1D(h.Eat(x.P1), x.G1)

	f := float32(frequency)
	var s Sample4
	for i := range s.V {
		s.V[i] = lerp(a.V[i], b.V[i], x.T[i])
		s.DX[i] = f * (lerp(a.DX[i], b.DX[i], x.T[i]) + (b.V[i]-a.V[i])*x.DT[i])
	}
	return g.Combine(s)
}

// Lattice2D blends four gradient corners across the XZ plane.
type Lattice2D[L Lattice, G Gradient] struct{}

func (Lattice2D[L, G]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var (
		l L
		g G
	)
	x := l.Span(p.X, frequency)
	z := l.Span(p.Z, frequency)

	h0 := h.Eat(x.P0)
	h1 := h.Eat(x.P1)

	a := g.Evaluate2D(h0.Eat(z.P0), x.G0, z.G0)
	b := g.Evaluate2D(h0.Eat(z.P1), x.G0, z.G1)
	c := g.Evaluate2D(h1.Eat(z.P0), x.G1, z.G0)
	d := g.Evaluate2D(h1.Eat(z.P1), x.G1, z.G1)

	f := float32(frequency)
	var s Sample4
	for i := range s.V {
		xt, zt := x.T[i], z.T[i]
		ab := lerp(a.V[i], b.V[i], zt)
		cd := lerp(c.V[i], d.V[i], zt)

		s.V[i] = lerp(ab, cd, xt)
		s.DX[i] = f * (lerp(lerp(a.DX[i], b.DX[i], zt), lerp(c.DX[i], d.DX[i], zt), xt) + (cd-ab)*x.DT[i])
		s.DZ[i] = f * lerp(
			lerp(a.DZ[i], b.DZ[i], zt)+(b.V[i]-a.V[i])*z.DT[i],
			lerp(c.DZ[i], d.DZ[i], zt)+(d.V[i]-c.V[i])*z.DT[i],
			xt)
	}
	return g.Combine(s)
}

// Lattice3D blends eight gradient corners.
type Lattice3D[L Lattice, G Gradient] struct{}

func (Lattice3D[L, G]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var (
		l  L
		gr G
	)
	x := l.Span(p.X, frequency)
	y := l.Span(p.Y, frequency)
	z := l.Span(p.Z, frequency)

	h0 := h.Eat(x.P0)
	h1 := h.Eat(x.P1)
	h00 := h0.Eat(y.P0)
	h01 := h0.Eat(y.P1)
	h10 := h1.Eat(y.P0)
	h11 := h1.Eat(y.P1)

	a := gr.Evaluate3D(h00.Eat(z.P0), x.G0, y.G0, z.G0)
	b := gr.Evaluate3D(h00.Eat(z.P1), x.G0, y.G0, z.G1)
	c := gr.Evaluate3D(h01.Eat(z.P0), x.G0, y.G1, z.G0)
	d := gr.Evaluate3D(h01.Eat(z.P1), x.G0, y.G1, z.G1)
	e := gr.Evaluate3D(h10.Eat(z.P0), x.G1, y.G0, z.G0)
	f := gr.Evaluate3D(h10.Eat(z.P1), x.G1, y.G0, z.G1)
	g := gr.Evaluate3D(h11.Eat(z.P0), x.G1, y.G1, z.G0)
	k := gr.Evaluate3D(h11.Eat(z.P1), x.G1, y.G1, z.G1)

	freq := float32(frequency)
	var s Sample4
	for i := range s.V {
		xt, yt, zt := x.T[i], y.T[i], z.T[i]

		ab := lerp(a.V[i], b.V[i], zt)
		cd := lerp(c.V[i], d.V[i], zt)
		ef := lerp(e.V[i], f.V[i], zt)
		gk := lerp(g.V[i], k.V[i], zt)
		abcd := lerp(ab, cd, yt)
		efgk := lerp(ef, gk, yt)

		s.V[i] = lerp(abcd, efgk, xt)

		s.DX[i] = freq * (lerp(
			lerp(lerp(a.DX[i], b.DX[i], zt), lerp(c.DX[i], d.DX[i], zt), yt),
			lerp(lerp(e.DX[i], f.DX[i], zt), lerp(g.DX[i], k.DX[i], zt), yt),
			xt) + (efgk-abcd)*x.DT[i])

		s.DY[i] = freq * lerp(
			lerp(lerp(a.DY[i], b.DY[i], zt), lerp(c.DY[i], d.DY[i], zt), yt)+(cd-ab)*y.DT[i],
			lerp(lerp(e.DY[i], f.DY[i], zt), lerp(g.DY[i], k.DY[i], zt), yt)+(gk-ef)*y.DT[i],
			xt)

		s.DZ[i] = freq * lerp(
			lerp(
				lerp(a.DZ[i], b.DZ[i], zt)+(b.V[i]-a.V[i])*z.DT[i],
				lerp(c.DZ[i], d.DZ[i], zt)+(d.V[i]-c.V[i])*z.DT[i],
				yt),
			lerp(
				lerp(e.DZ[i], f.DZ[i], zt)+(f.V[i]-e.V[i])*z.DT[i],
				lerp(g.DZ[i], k.DZ[i], zt)+(k.V[i]-g.V[i])*z.DT[i],
				yt),
			xt)
	}
	return gr.Combine(s)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
