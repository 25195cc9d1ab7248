// Package space maps caller coordinates into noise space and carries noise
// derivatives back out again.
package space

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/MeKo-Tech/noisefield/internal/noise"
)

// TRS is a translate-rotate-scale domain transform. Rotation is in degrees and
// applied around Z first, then X, then Y.
type TRS struct {
	Translation [3]float32 `yaml:"translation" json:"translation"`
	Rotation    [3]float32 `yaml:"rotation" json:"rotation"`
	Scale       [3]float32 `yaml:"scale" json:"scale"`
}

// Identity returns the transform that leaves positions untouched.
func Identity() TRS {
	return TRS{Scale: [3]float32{1, 1, 1}}
}

// Affine is a 3×4 row-major matrix: a linear part plus a translation column.
type Affine [3][4]float32

// Mat3 is a 3×3 row-major matrix.
type Mat3 [3][3]float32

// linear builds R·S in float64 where R = Ry·Rx·Rz.
func (t TRS) linear() *r3.Mat {
	rz := r3.NewRotation(radians(t.Rotation[2]), r3.Vec{Z: 1})
	rx := r3.NewRotation(radians(t.Rotation[0]), r3.Vec{X: 1})
	ry := r3.NewRotation(radians(t.Rotation[1]), r3.Vec{Y: 1})

	var yx, r r3.Mat
	yx.Mul(ry.Mat(), rx.Mat())
	r.Mul(&yx, rz.Mat())

	scale := r3.NewMat([]float64{
		float64(t.Scale[0]), 0, 0,
		0, float64(t.Scale[1]), 0,
		0, 0, float64(t.Scale[2]),
	})

	var m r3.Mat
	m.Mul(&r, scale)
	return &m
}

// Matrix returns the transform applied to positions.
func (t TRS) Matrix() Affine {
	l := t.linear()
	var a Affine
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[i][j] = float32(l.At(i, j))
		}
		a[i][3] = t.Translation[i]
	}
	return a
}

// DerivativeMatrix returns the transpose of the linear part, which maps a
// gradient taken in noise space to the gradient in caller space.
func (t TRS) DerivativeMatrix() Mat3 {
	l := t.linear()
	var m Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = float32(l.At(j, i))
		}
	}
	return m
}

// TransformPositions applies the affine transform to every lane.
func (a Affine) TransformPositions(p noise.Position4) noise.Position4 {
	var out noise.Position4
	for i := range p.X {
		x, y, z := p.X[i], p.Y[i], p.Z[i]
		out.X[i] = a[0][0]*x + a[0][1]*y + a[0][2]*z + a[0][3]
		out.Y[i] = a[1][0]*x + a[1][1]*y + a[1][2]*z + a[1][3]
		out.Z[i] = a[2][0]*x + a[2][1]*y + a[2][2]*z + a[2][3]
	}
	return out
}

// TransformDerivatives multiplies the derivative vector of every lane by m.
// The value channel is left unchanged.
func (m Mat3) TransformDerivatives(s noise.Sample4) noise.Sample4 {
	out := noise.Sample4{V: s.V}
	for i := range s.V {
		dx, dy, dz := s.DX[i], s.DY[i], s.DZ[i]
		out.DX[i] = m[0][0]*dx + m[0][1]*dy + m[0][2]*dz
		out.DY[i] = m[1][0]*dx + m[1][1]*dy + m[1][2]*dz
		out.DZ[i] = m[2][0]*dx + m[2][1]*dy + m[2][2]*dz
	}
	return out
}

func radians(deg float32) float64 {
	return float64(deg) * math.Pi / 180
}
