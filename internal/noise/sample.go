// Package noise evaluates procedural noise for batches of four positions,
// returning the field value together with its analytic partial derivatives.
//
// Strategies are zero-sized types composed through generic parameters:
//
//	noise.Fractal[noise.Lattice3D[noise.LatticeNormal, noise.Turbulence[noise.Perlin]]](p, settings)
//
// Hosts that pick a strategy at run time resolve a Kind once into a Func and
// call it per batch.
package noise

import "github.com/MeKo-Tech/noisefield/internal/lane"

// Position4 holds four sample positions, one coordinate axis per field.
type Position4 struct {
	X, Y, Z lane.Float4
}

// Scale multiplies every coordinate by s.
func (p Position4) Scale(s float32) Position4 {
	return Position4{X: p.X.Scale(s), Y: p.Y.Scale(s), Z: p.Z.Scale(s)}
}

// Point returns the position stored in lane i.
func (p Position4) Point(i int) [3]float32 {
	return [3]float32{p.X[i], p.Y[i], p.Z[i]}
}

// Sample4 is a field value plus its partial derivatives for four points.
// Lattice and simplex 2D strategies sample the XZ plane and leave DY zero.
type Sample4 struct {
	V, DX, DY, DZ lane.Float4
}

// Constant returns a sample with value v and zero derivatives.
func Constant(v lane.Float4) Sample4 {
	return Sample4{V: v}
}

func (s Sample4) Add(o Sample4) Sample4 {
	return Sample4{
		V:  s.V.Add(o.V),
		DX: s.DX.Add(o.DX),
		DY: s.DY.Add(o.DY),
		DZ: s.DZ.Add(o.DZ),
	}
}

func (s Sample4) Sub(o Sample4) Sample4 {
	return Sample4{
		V:  s.V.Sub(o.V),
		DX: s.DX.Sub(o.DX),
		DY: s.DY.Sub(o.DY),
		DZ: s.DZ.Sub(o.DZ),
	}
}

// Mul scales value and derivatives by f per lane.
func (s Sample4) Mul(f lane.Float4) Sample4 {
	return Sample4{
		V:  s.V.Mul(f),
		DX: s.DX.Mul(f),
		DY: s.DY.Mul(f),
		DZ: s.DZ.Mul(f),
	}
}

// Scale multiplies value and derivatives by f.
func (s Sample4) Scale(f float32) Sample4 {
	return Sample4{
		V:  s.V.Scale(f),
		DX: s.DX.Scale(f),
		DY: s.DY.Scale(f),
		DZ: s.DZ.Scale(f),
	}
}

// Div divides value and derivatives by f per lane.
func (s Sample4) Div(f lane.Float4) Sample4 {
	return Sample4{
		V:  s.V.Div(f),
		DX: s.DX.Div(f),
		DY: s.DY.Div(f),
		DZ: s.DZ.Div(f),
	}
}

// Smoothstep remaps the value with 3v²-2v³ and applies the chain rule to the
// derivatives.
func (s Sample4) Smoothstep() Sample4 {
	for i := range s.V {
		v := s.V[i]
		d := 6 * v * (1 - v)
		s.DX[i] *= d
		s.DY[i] *= d
		s.DZ[i] *= d
		s.V[i] = v * v * (3 - 2*v)
	}
	return s
}

// Derivatives returns the gradient of lane i.
func (s Sample4) Derivatives(i int) [3]float32 {
	return [3]float32{s.DX[i], s.DY[i], s.DZ[i]}
}

// SelectSample picks t where m is set and f elsewhere, channel by channel.
func SelectSample(f, t Sample4, m lane.Bool4) Sample4 {
	return Sample4{
		V:  lane.Select(f.V, t.V, m),
		DX: lane.Select(f.DX, t.DX, m),
		DY: lane.Select(f.DY, t.DY, m),
		DZ: lane.Select(f.DZ, t.DZ, m),
	}
}
