package space

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/noisefield/internal/lane"
	"github.com/MeKo-Tech/noisefield/internal/noise"
)

func samplePositions() noise.Position4 {
	return noise.Position4{
		X: lane.Float4{1, 0, 0, 0.5},
		Y: lane.Float4{0, 1, 0, -2},
		Z: lane.Float4{0, 0, 1, 3},
	}
}

func TestIdentityLeavesPositionsAndDerivatives(t *testing.T) {
	trs := Identity()
	p := samplePositions()

	assert.Equal(t, p, trs.Matrix().TransformPositions(p))

	s := noise.Sample4{
		V:  lane.Float4{1, 2, 3, 4},
		DX: lane.Float4{0.1, 0.2, 0.3, 0.4},
		DY: lane.Float4{-1, -2, -3, -4},
		DZ: lane.Float4{5, 6, 7, 8},
	}
	assert.Equal(t, s, trs.DerivativeMatrix().TransformDerivatives(s))
}

func TestRotationOrderIsZThenXThenY(t *testing.T) {
	tests := []struct {
		name     string
		rotation [3]float32
		in, want [3]float32
	}{
		{"z quarter turn", [3]float32{0, 0, 90}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{"x quarter turn", [3]float32{90, 0, 0}, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}},
		{"y quarter turn", [3]float32{0, 90, 0}, [3]float32{0, 0, 1}, [3]float32{1, 0, 0}},
		// Z first carries X onto Y, then X carries Y onto Z.
		{"z then x", [3]float32{90, 0, 90}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
		// Z carries Y onto -X, X leaves it, Y carries -X onto Z.
		{"z then y", [3]float32{0, 90, 90}, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := TRS{Rotation: tt.rotation, Scale: [3]float32{1, 1, 1}}.Matrix()
			var p noise.Position4
			p.X[0], p.Y[0], p.Z[0] = tt.in[0], tt.in[1], tt.in[2]

			got := m.TransformPositions(p).Point(0)
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-6, "component %d of %v", i, got)
			}
		})
	}
}

func TestMatrixAppliesScaleBeforeTranslation(t *testing.T) {
	trs := TRS{
		Translation: [3]float32{1, 2, 3},
		Scale:       [3]float32{2, 3, 4},
	}
	got := trs.Matrix().TransformPositions(samplePositions())

	assert.Equal(t, lane.Float4{3, 1, 1, 2}, got.X)
	assert.Equal(t, lane.Float4{2, 5, 2, -4}, got.Y)
	assert.Equal(t, lane.Float4{3, 3, 7, 15}, got.Z)
}

func TestDerivativeMatrixIsTransposeOfLinearPart(t *testing.T) {
	trs := TRS{
		Translation: [3]float32{4, -1, 0.5},
		Rotation:    [3]float32{30, -45, 60},
		Scale:       [3]float32{2, 0.5, 3},
	}
	a := trs.Matrix()
	d := trs.DerivativeMatrix()

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, a[j][i], d[i][j])
		}
	}
}

// A linear field n(q) = g·q evaluated at q = M·p has gradient Mᵀ·g in p.
func TestDerivativesFollowChainRule(t *testing.T) {
	trs := TRS{
		Translation: [3]float32{0.3, 0.1, -0.2},
		Rotation:    [3]float32{10, 20, 30},
		Scale:       [3]float32{1.5, 2, 0.75},
	}
	a := trs.Matrix()
	g := [3]float32{0.7, -1.2, 0.4}

	field := func(p [3]float32) float32 {
		var pos noise.Position4
		pos.X[0], pos.Y[0], pos.Z[0] = p[0], p[1], p[2]
		q := a.TransformPositions(pos).Point(0)
		return g[0]*q[0] + g[1]*q[1] + g[2]*q[2]
	}

	s := noise.Sample4{DX: lane.Splat(g[0]), DY: lane.Splat(g[1]), DZ: lane.Splat(g[2])}
	got := trs.DerivativeMatrix().TransformDerivatives(s).Derivatives(0)

	p := [3]float32{0.2, -0.4, 0.9}
	const eps = 1e-2
	for axis := 0; axis < 3; axis++ {
		up, down := p, p
		up[axis] += eps
		down[axis] -= eps
		want := (field(up) - field(down)) / (up[axis] - down[axis])
		assert.InDelta(t, want, got[axis], 1e-3, "axis %d", axis)
	}
}
