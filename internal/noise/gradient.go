package noise

import (
	"math"

	"github.com/MeKo-Tech/noisefield/internal/hash"
	"github.com/MeKo-Tech/noisefield/internal/lane"
)

// Gradient turns a corner hash and the offset from that corner into a sample.
// Combine runs once on the blended result of a whole noise evaluation.
type Gradient interface {
	Evaluate1D(h hash.Hash4, x lane.Float4) Sample4
	Evaluate2D(h hash.Hash4, x, z lane.Float4) Sample4
	Evaluate3D(h hash.Hash4, x, y, z lane.Float4) Sample4
	Combine(s Sample4) Sample4
}

// Peak normalisation factors. Perlin values were measured empirically,
// simplex values follow from the kernel maxima.
var (
	perlin2DScale  = float32(2 / 0.53528)
	perlin3DScale  = float32(1 / 0.56290)
	simplex1DScale = float32(32.0 / 27.0)
	simplex2DScale = float32(5.832 / math.Sqrt2)
	simplex3DScale = float32(1024 / (125 * math.Sqrt(3)))
)

// Value ignores the offset and returns a hashed constant in [-1, 1].
type Value struct{}

func (Value) Evaluate1D(h hash.Hash4, _ lane.Float4) Sample4 { return valueSample(h) }

func (Value) Evaluate2D(h hash.Hash4, _, _ lane.Float4) Sample4 { return valueSample(h) }

func (Value) Evaluate3D(h hash.Hash4, _, _, _ lane.Float4) Sample4 { return valueSample(h) }

func (Value) Combine(s Sample4) Sample4 { return s }

func valueSample(h hash.Hash4) Sample4 {
	return Constant(h.FloatsA().Scale(2).Offset(-1))
}

// Perlin dots a hashed gradient vector with the corner offset.
type Perlin struct{}

func (Perlin) Evaluate1D(h hash.Hash4, x lane.Float4) Sample4 { return line(h, x) }

func (Perlin) Evaluate2D(h hash.Hash4, x, z lane.Float4) Sample4 {
	return square(h, x, z).Scale(perlin2DScale)
}

func (Perlin) Evaluate3D(h hash.Hash4, x, y, z lane.Float4) Sample4 {
	return octahedron(h, x, y, z).Scale(perlin3DScale)
}

func (Perlin) Combine(s Sample4) Sample4 { return s }

// Simplex uses unit-length gradient vectors scaled for the simplex kernels.
type Simplex struct{}

func (Simplex) Evaluate1D(h hash.Hash4, x lane.Float4) Sample4 {
	return line(h, x).Scale(simplex1DScale)
}

func (Simplex) Evaluate2D(h hash.Hash4, x, z lane.Float4) Sample4 {
	return circle(h, x, z).Scale(simplex2DScale)
}

func (Simplex) Evaluate3D(h hash.Hash4, x, y, z lane.Float4) Sample4 {
	return sphere(h, x, y, z).Scale(simplex3DScale)
}

func (Simplex) Combine(s Sample4) Sample4 { return s }

// Turbulence folds the combined value with abs and flips the derivatives of
// the negative branch to match.
type Turbulence[G Gradient] struct{}

func (Turbulence[G]) Evaluate1D(h hash.Hash4, x lane.Float4) Sample4 {
	var g G
	return g.Evaluate1D(h, x)
}

func (Turbulence[G]) Evaluate2D(h hash.Hash4, x, z lane.Float4) Sample4 {
	var g G
	return g.Evaluate2D(h, x, z)
}

func (Turbulence[G]) Evaluate3D(h hash.Hash4, x, y, z lane.Float4) Sample4 {
	var g G
	return g.Evaluate3D(h, x, y, z)
}

func (Turbulence[G]) Combine(s Sample4) Sample4 {
	var g G
	s = g.Combine(s)
	for i := range s.V {
		sign := lane.Sign(s.V[i])
		s.DX[i] *= sign
		s.DY[i] *= sign
		s.DZ[i] *= sign
		s.V[i] = lane.Abs(s.V[i])
	}
	return s
}

// Smoothstep remaps the combined value of G with a cubic smoothstep.
type Smoothstep[G Gradient] struct{}

func (Smoothstep[G]) Evaluate1D(h hash.Hash4, x lane.Float4) Sample4 {
	var g G
	return g.Evaluate1D(h, x)
}

func (Smoothstep[G]) Evaluate2D(h hash.Hash4, x, z lane.Float4) Sample4 {
	var g G
	return g.Evaluate2D(h, x, z)
}

func (Smoothstep[G]) Evaluate3D(h hash.Hash4, x, y, z lane.Float4) Sample4 {
	var g G
	return g.Evaluate3D(h, x, y, z)
}

func (Smoothstep[G]) Combine(s Sample4) Sample4 {
	var g G
	return g.Combine(s).Smoothstep()
}

// line picks a slope of magnitude 1..2 whose sign comes from bit 8.
func line(h hash.Hash4, x lane.Float4) Sample4 {
	a := h.FloatsA()
	bits := h.Avalanche()

	var s Sample4
	for i := range x {
		l := 1 + a[i]
		if bits[i]&(1<<8) != 0 {
			l = -l
		}
		s.V[i] = l * x[i]
		s.DX[i] = l
	}
	return s
}

// squareVectors folds a random coordinate onto the outline of a diamond.
func squareVectors(h hash.Hash4) (gx, gz lane.Float4) {
	a := h.FloatsA()
	for i := range a {
		x := a[i]*2 - 1
		gz[i] = 0.5 - lane.Abs(x)
		gx[i] = x - lane.Floor(x+0.5)
	}
	return gx, gz
}

func square(h hash.Hash4, x, z lane.Float4) Sample4 {
	gx, gz := squareVectors(h)

	var s Sample4
	for i := range x {
		s.V[i] = gx[i]*x[i] + gz[i]*z[i]
		s.DX[i] = gx[i]
		s.DZ[i] = gz[i]
	}
	return s
}

func circle(h hash.Hash4, x, z lane.Float4) Sample4 {
	gx, gz := squareVectors(h)

	var s Sample4
	for i := range x {
		n := lane.Rsqrt(gx[i]*gx[i] + gz[i]*gz[i])
		s.V[i] = (gx[i]*x[i] + gz[i]*z[i]) * n
		s.DX[i] = gx[i] * n
		s.DZ[i] = gz[i] * n
	}
	return s
}

// octahedronVectors maps two random coordinates onto an octahedron surface.
func octahedronVectors(h hash.Hash4) (gx, gy, gz lane.Float4) {
	a := h.FloatsA()
	d := h.FloatsD()
	for i := range a {
		x := a[i]*2 - 1
		y := d[i]*2 - 1
		z := 1 - lane.Abs(x) - lane.Abs(y)

		offset := max(-z, 0)
		if x < 0 {
			x += offset
		} else {
			x -= offset
		}
		if y < 0 {
			y += offset
		} else {
			y -= offset
		}
		gx[i], gy[i], gz[i] = x, y, z
	}
	return gx, gy, gz
}

func octahedron(h hash.Hash4, x, y, z lane.Float4) Sample4 {
	gx, gy, gz := octahedronVectors(h)

	var s Sample4
	for i := range x {
		s.V[i] = gx[i]*x[i] + gy[i]*y[i] + gz[i]*z[i]
		s.DX[i] = gx[i]
		s.DY[i] = gy[i]
		s.DZ[i] = gz[i]
	}
	return s
}

// sphere is the octahedron gradient normalised to unit length.
func sphere(h hash.Hash4, x, y, z lane.Float4) Sample4 {
	gx, gy, gz := octahedronVectors(h)

	var s Sample4
	for i := range x {
		n := lane.Rsqrt(gx[i]*gx[i] + gy[i]*gy[i] + gz[i]*gz[i])
		s.V[i] = (gx[i]*x[i] + gy[i]*y[i] + gz[i]*z[i]) * n
		s.DX[i] = gx[i] * n
		s.DY[i] = gy[i] * n
		s.DZ[i] = gz[i] * n
	}
	return s
}
