package noise

import (
	"math"

	"github.com/MeKo-Tech/noisefield/internal/hash"
	"github.com/MeKo-Tech/noisefield/internal/lane"
)

// Coordinates are stretched before skewing so a unit of input spans roughly one
// lattice cell, matching the density of the lattice noise.
var (
	sqrt3         = float32(math.Sqrt(3))
	triangleScale = 1 / sqrt3
	skew2D        = (sqrt3 - 1) / 2
	unskew2D      = (3 - sqrt3) / 6
)

const (
	tetrahedronScale = 0.6
	skew3D           = 1.0 / 3.0
	unskew3D         = 1.0 / 6.0
)

// Simplex1D sums the falloff kernels of the two enclosing integer points.
type Simplex1D[G Gradient] struct{}

func (Simplex1D[G]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var g G
	f := float32(frequency)
	px := p.X.Scale(f)

	x0 := px.Floor().Int()
	x1 := x0.Offset(1)

	s := g.Combine(simplexKernel1D[G](h.Eat(x0), x0, px).Add(simplexKernel1D[G](h.Eat(x1), x1, px)))
	s.DX = s.DX.Scale(f)
	return s
}

func simplexKernel1D[G Gradient](h hash.Hash4, lx lane.Int4, px lane.Float4) Sample4 {
	var x lane.Float4
	for i := range x {
		x[i] = px[i] - float32(lx[i])
	}

	var gr G
	g := gr.Evaluate1D(h, x)

	var s Sample4
	for i := range x {
		f := 1 - x[i]*x[i]
		ff := f * f
		s.V[i] = f * g.V[i] * ff
		s.DX[i] = (f*g.DX[i] - 6*x[i]*g.V[i]) * ff
	}
	return s
}

// Simplex2D visits the three corners of the skewed triangle containing each
// point on the XZ plane.
type Simplex2D[G Gradient] struct{}

func (Simplex2D[G]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var g G
	scale := float32(frequency) * triangleScale
	p = p.Scale(scale)

	var sx, sz lane.Float4
	for i := range sx {
		skew := (p.X[i] + p.Z[i]) * skew2D
		sx[i] = p.X[i] + skew
		sz[i] = p.Z[i] + skew
	}

	x0 := sx.Floor().Int()
	x1 := x0.Offset(1)
	z0 := sz.Floor().Int()
	z1 := z0.Offset(1)

	// xGz marks lanes in the lower triangle, whose middle corner steps along X first.
	var xGz lane.Bool4
	for i := range xGz {
		xGz[i] = sx[i]-float32(x0[i]) > sz[i]-float32(z0[i])
	}

	xC := lane.SelectInt(x0, x1, xGz)
	zC := lane.SelectInt(z1, z0, xGz)

	h0 := h.Eat(x0)
	h1 := h.Eat(x1)
	hC := hash.Select(h0, h1, xGz)

	s := g.Combine(simplexKernel2D[G](h0.Eat(z0), x0, z0, p).
		Add(simplexKernel2D[G](h1.Eat(z1), x1, z1, p)).
		Add(simplexKernel2D[G](hC.Eat(zC), xC, zC, p)))

	s.DX = s.DX.Scale(scale)
	s.DZ = s.DZ.Scale(scale)
	return s
}

func simplexKernel2D[G Gradient](h hash.Hash4, lx, lz lane.Int4, p Position4) Sample4 {
	var x, z lane.Float4
	for i := range x {
		unskew := float32(lx[i]+lz[i]) * unskew2D
		x[i] = p.X[i] - float32(lx[i]) + unskew
		z[i] = p.Z[i] - float32(lz[i]) + unskew
	}

	var gr G
	g := gr.Evaluate2D(h, x, z)

	var s Sample4
	for i := range x {
		f := 0.5 - x[i]*x[i] - z[i]*z[i]
		if f < 0 {
			continue
		}
		ff8 := f * f * 8
		s.V[i] = f * g.V[i] * ff8
		s.DX[i] = (f*g.DX[i] - 6*x[i]*g.V[i]) * ff8
		s.DZ[i] = (f*g.DZ[i] - 6*z[i]*g.V[i]) * ff8
	}
	return s
}

// Simplex3D visits the four corners of the skewed tetrahedron containing each
// point.
type Simplex3D[G Gradient] struct{}

func (Simplex3D[G]) Noise4(p Position4, h hash.Hash4, frequency int32) Sample4 {
	var g G
	scale := float32(frequency) * tetrahedronScale
	p = p.Scale(scale)

	var sx, sy, sz lane.Float4
	for i := range sx {
		skew := (p.X[i] + p.Y[i] + p.Z[i]) * skew3D
		sx[i] = p.X[i] + skew
		sy[i] = p.Y[i] + skew
		sz[i] = p.Z[i] + skew
	}

	x0 := sx.Floor().Int()
	y0 := sy.Floor().Int()
	z0 := sz.Floor().Int()
	x1 := x0.Offset(1)
	y1 := y0.Offset(1)
	z1 := z0.Offset(1)

	var xGy, xGz, yGz lane.Bool4
	for i := range xGy {
		fx := sx[i] - float32(x0[i])
		fy := sy[i] - float32(y0[i])
		fz := sz[i] - float32(z0[i])
		xGy[i] = fx > fy
		xGz[i] = fx > fz
		yGz[i] = fy > fz
	}

	// Corner A takes one step along the largest offset, corner B two steps.
	xA := xGy.And(xGz)
	xB := xGy.Or(xGz.And(yGz))
	yA := xGy.Not().And(yGz)
	yB := xGy.Not().Or(xGz.And(yGz))
	zA := xGy.And(xGz.Not()).Or(xGy.Not().And(yGz.Not()))
	zB := xGz.And(yGz).Not()

	xCa := lane.SelectInt(x0, x1, xA)
	xCb := lane.SelectInt(x0, x1, xB)
	yCa := lane.SelectInt(y0, y1, yA)
	yCb := lane.SelectInt(y0, y1, yB)
	zCa := lane.SelectInt(z0, z1, zA)
	zCb := lane.SelectInt(z0, z1, zB)

	h0 := h.Eat(x0)
	h1 := h.Eat(x1)
	hA := hash.Select(h0, h1, xA)
	hB := hash.Select(h0, h1, xB)

	s := g.Combine(simplexKernel3D[G](h0.Eat(y0).Eat(z0), x0, y0, z0, p).
		Add(simplexKernel3D[G](h1.Eat(y1).Eat(z1), x1, y1, z1, p)).
		Add(simplexKernel3D[G](hA.Eat(yCa).Eat(zCa), xCa, yCa, zCa, p)).
		Add(simplexKernel3D[G](hB.Eat(yCb).Eat(zCb), xCb, yCb, zCb, p)))

	s.DX = s.DX.Scale(scale)
	s.DY = s.DY.Scale(scale)
	s.DZ = s.DZ.Scale(scale)
	return s
}

func simplexKernel3D[G Gradient](h hash.Hash4, lx, ly, lz lane.Int4, p Position4) Sample4 {
	var x, y, z lane.Float4
	for i := range x {
		unskew := float32(lx[i]+ly[i]+lz[i]) * unskew3D
		x[i] = p.X[i] - float32(lx[i]) + unskew
		y[i] = p.Y[i] - float32(ly[i]) + unskew
		z[i] = p.Z[i] - float32(lz[i]) + unskew
	}

	var gr G
	g := gr.Evaluate3D(h, x, y, z)

	var s Sample4
	for i := range x {
		f := 0.5 - x[i]*x[i] - y[i]*y[i] - z[i]*z[i]
		if f < 0 {
			continue
		}
		ff8 := f * f * 8
		s.V[i] = f * g.V[i] * ff8
		s.DX[i] = (f*g.DX[i] - 6*x[i]*g.V[i]) * ff8
		s.DY[i] = (f*g.DY[i] - 6*y[i]*g.V[i]) * ff8
		s.DZ[i] = (f*g.DZ[i] - 6*z[i]*g.V[i]) * ff8
	}
	return s
}
