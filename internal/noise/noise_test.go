package noise

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/MeKo-Tech/noisefield/internal/hash"
	"github.com/MeKo-Tech/noisefield/internal/lane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// splat puts p into every lane.
func splat(p [3]float32) Position4 {
	return Position4{X: lane.Splat(p[0]), Y: lane.Splat(p[1]), Z: lane.Splat(p[2])}
}

func evalPoint(f Func, settings Settings, p [3]float32) (float32, [3]float32) {
	s := f(splat(p), settings)
	return s.V[0], s.Derivatives(0)
}

func randomPoint(rng *rand.Rand, extent float32) [3]float32 {
	return [3]float32{
		(rng.Float32()*2 - 1) * extent,
		(rng.Float32()*2 - 1) * extent,
		(rng.Float32()*2 - 1) * extent,
	}
}

// axes lists the coordinates each dimensionality reads; 2D works on XZ.
var axes = [3][]int{{0}, {0, 2}, {0, 1, 2}}

func TestValueLatticeConcreteScenario(t *testing.T) {
	settings := Settings{Seed: 0, Frequency: 1, Octaves: 1, Lacunarity: 2, Persistence: 0.5}

	c0 := hash.Seed(0).Eat(0).Bits(8, 0)
	c1 := hash.Seed(0).Eat(1).Bits(8, 0)
	require.Equal(t, uint32(131), c0)
	require.Equal(t, uint32(240), c1)

	a := float32(c0)*(1.0/255.0)*2 - 1
	b := float32(c1)*(1.0/255.0)*2 - 1
	tw, dt := quintic(0.5)
	assert.Equal(t, float32(0.5), tw)
	assert.Equal(t, float32(1.875), dt)

	got := Fractal[Lattice1D[LatticeNormal, Value]](splat([3]float32{0.5, 0, 0}), settings)
	for i := range lane.Width {
		assert.InDelta(t, a+(b-a)*tw, got.V[i], 1e-6)
		assert.InDelta(t, (b-a)*dt, got.DX[i], 1e-5)
		assert.Zero(t, got.DY[i])
		assert.Zero(t, got.DZ[i])
	}
}

func TestGradientNoiseVanishesAtLatticePoints(t *testing.T) {
	settings := Settings{Seed: 3, Frequency: 4, Octaves: 1, Lacunarity: 2, Persistence: 0.5}
	points := [][3]float32{{0, 0, 0}, {0.25, 0.5, 0.75}, {-0.5, 1.25, -0.25}, {2, -3, 1.5}}

	for dims := 1; dims <= 3; dims++ {
		f, err := Resolve(KindPerlin, dims, false)
		require.NoError(t, err)
		for _, p := range points {
			v, _ := evalPoint(f, settings, p)
			assert.Zero(t, v, "dims=%d p=%v", dims, p)
		}
	}
}

func TestLanesAreIndependent(t *testing.T) {
	settings := Settings{Seed: 11, Frequency: 3, Octaves: 3, Lacunarity: 2, Persistence: 0.6}
	rng := rand.New(rand.NewPCG(5, 6))

	for _, kind := range Kinds() {
		f, err := Resolve(kind, 3, false)
		require.NoError(t, err)

		var batch Position4
		points := make([][3]float32, lane.Width)
		for i := range points {
			points[i] = randomPoint(rng, 2)
			batch.X[i], batch.Y[i], batch.Z[i] = points[i][0], points[i][1], points[i][2]
		}
		got := f(batch, settings)

		for i, p := range points {
			v, d := evalPoint(f, settings, p)
			assert.Equal(t, v, got.V[i], "%s lane %d", kind, i)
			assert.Equal(t, d, got.Derivatives(i), "%s lane %d", kind, i)
		}
	}
}

func TestTilingIsPeriodic(t *testing.T) {
	settings := Settings{Seed: 9, Frequency: 3, Octaves: 2, Lacunarity: 2, Persistence: 0.5}
	rng := rand.New(rand.NewPCG(1, 1))

	for _, kind := range Kinds() {
		if !kind.SupportsTiling() {
			continue
		}
		for dims := 1; dims <= 3; dims++ {
			t.Run(fmt.Sprintf("%s/%dD", kind, dims), func(t *testing.T) {
				f, err := Resolve(kind, dims, true)
				require.NoError(t, err)

				for range 16 {
					p := randomPoint(rng, 1)
					v, d := evalPoint(f, settings, p)
					for _, axis := range axes[dims-1] {
						for _, shift := range []float32{1, -1, 2} {
							q := p
							q[axis] += shift
							w, e := evalPoint(f, settings, q)
							assert.InDelta(t, v, w, 2e-3, "p=%v axis=%d shift=%g", p, axis, shift)
							assert.InDelta(t, d[axis], e[axis], 5e-2+5e-2*math.Abs(float64(d[axis])))
						}
					}
				}
			})
		}
	}
}

func TestTilingMatchesNormalInsideFirstPeriod(t *testing.T) {
	settings := Settings{Seed: 2, Frequency: 5, Octaves: 1, Lacunarity: 2, Persistence: 0.5}
	rng := rand.New(rand.NewPCG(2, 2))

	for range 32 {
		p := [3]float32{rng.Float32() * 0.79, rng.Float32() * 0.79, rng.Float32() * 0.79}
		normal := Fractal[Lattice3D[LatticeNormal, Perlin]](splat(p), settings)
		tiled := Fractal[Lattice3D[LatticeTiling, Perlin]](splat(p), settings)
		assert.Equal(t, normal, tiled, "p=%v", p)
	}
}

func TestLatticeSpanTiling(t *testing.T) {
	var l LatticeTiling
	s := l.Span(lane.Float4{-0.1, 0.999, 1.5, -2.3}, 4)

	assert.Equal(t, lane.Int4{3, 3, 2, 2}, s.P0)
	assert.Equal(t, lane.Int4{0, 0, 3, 3}, s.P1)
	for i := range s.G0 {
		assert.InDelta(t, s.G0[i]-1, s.G1[i], 1e-6)
		assert.True(t, s.G0[i] >= 0 && s.G0[i] < 1)
	}

	assert.Equal(t, lane.Int4{3, 0, 0, 2}, l.ValidateSingleStep(lane.Int4{-1, 4, 0, 2}, 4))
	assert.Equal(t, lane.Int4{-1, 4, 0, 2}, LatticeNormal{}.ValidateSingleStep(lane.Int4{-1, 4, 0, 2}, 4))
}

func TestDerivativesMatchFiniteDifferences(t *testing.T) {
	settings := Settings{Seed: 7, Frequency: 2, Octaves: 2, Lacunarity: 2, Persistence: 0.5}
	const eps = 5e-4

	for _, kind := range Kinds() {
		for dims := 1; dims <= 3; dims++ {
			t.Run(fmt.Sprintf("%s/%dD", kind, dims), func(t *testing.T) {
				f, err := Resolve(kind, dims, false)
				require.NoError(t, err)

				rng := rand.New(rand.NewPCG(uint64(kind)+1, uint64(dims)))
				checked, total := 0, 0
				for range 40 {
					p := randomPoint(rng, 1.5)
					v, d := evalPoint(f, settings, p)

					for axis := range 3 {
						if !contains(axes[dims-1], axis) {
							assert.Zero(t, d[axis], "unused axis %d must have zero derivative", axis)
							continue
						}
						total++

						up, down := p, p
						up[axis] += eps
						down[axis] -= eps
						vUp, _ := evalPoint(f, settings, up)
						vDown, _ := evalPoint(f, settings, down)

						fwd := float64(vUp-v) / float64(up[axis]-p[axis])
						bwd := float64(v-vDown) / float64(p[axis]-down[axis])
						tol := 0.02 * (1 + math.Abs(float64(d[axis])))

						// Cellular fields crease along cell borders. One-sided
						// slopes that disagree mean a crease lies within the step.
						if kind.Voronoi() && math.Abs(fwd-bwd) > tol {
							continue
						}
						checked++
						assert.InDelta(t, (fwd+bwd)/2, d[axis], tol, "p=%v axis=%d", p, axis)
					}
				}
				if kind.Voronoi() {
					assert.GreaterOrEqual(t, checked, total*4/5, "too few smooth samples")
				} else {
					assert.Equal(t, total, checked)
				}
			})
		}
	}
}

func TestLatticeContinuity(t *testing.T) {
	kinds := []Kind{KindPerlinValue, KindPerlin, KindPerlinSmoothTurbulence}
	settings := Settings{Seed: 13, Frequency: 2, Octaves: 3, Lacunarity: 2, Persistence: 0.5}

	for _, kind := range kinds {
		for dims := 1; dims <= 3; dims++ {
			t.Run(fmt.Sprintf("%s/%dD", kind, dims), func(t *testing.T) {
				f, err := Resolve(kind, dims, false)
				require.NoError(t, err)

				rng := rand.New(rand.NewPCG(uint64(kind)+11, uint64(dims)))
				for _, axis := range axes[dims-1] {
					// Every octave's lattice has a point at k/2.
					for _, k := range []float32{-3, -1, 1, 2, 3} {
						p := randomPoint(rng, 1.5)
						p[axis] = k / float32(settings.Frequency)
						below := p
						below[axis] = math.Nextafter32(p[axis], 0)
						require.NotEqual(t, p[axis], below[axis])

						v, d := evalPoint(f, settings, p)
						vBelow, dBelow := evalPoint(f, settings, below)

						assert.InDelta(t, v, vBelow, 1e-5, "p=%v axis=%d", p, axis)
						for a := range 3 {
							assert.InDelta(t, d[a], dBelow[a], 1e-3*(1+math.Abs(float64(d[a]))),
								"p=%v axis=%d derivative %d", p, axis, a)
						}
					}
				}
			})
		}
	}
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func TestFractalStaysInSingleOctaveRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	for range 64 {
		settings := Settings{
			Seed:        rng.Int32(),
			Frequency:   1 + rng.Int32N(8),
			Octaves:     1 + rng.Int32N(5),
			Lacunarity:  1 + rng.Int32N(3),
			Persistence: 0.1 + 0.9*rng.Float32(),
		}
		require.NoError(t, settings.Validate())
		p := splat(randomPoint(rng, 4))

		value := Fractal[Lattice3D[LatticeNormal, Value]](p, settings)
		worley := Fractal[Voronoi3D[LatticeNormal, Worley, F1]](p, settings)
		for i := range lane.Width {
			assert.LessOrEqual(t, math.Abs(float64(value.V[i])), 1.0+1e-5, "%+v", settings)
			assert.GreaterOrEqual(t, worley.V[i], float32(0))
			assert.LessOrEqual(t, worley.V[i], float32(1)+1e-5)
		}
	}
}

func TestFractalSingleOctaveMatchesStrategy(t *testing.T) {
	settings := Settings{Seed: 21, Frequency: 6, Octaves: 1, Lacunarity: 2, Persistence: 0.5}
	p := splat([3]float32{0.3, -0.7, 1.1})

	want := Simplex3D[Simplex]{}.Noise4(p, hash.Seed4(lane.SplatInt(21)), 6)
	got := Fractal[Simplex3D[Simplex]](p, settings)
	assert.Equal(t, want, got)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"zero frequency", func(s *Settings) { s.Frequency = 0 }, true},
		{"zero octaves", func(s *Settings) { s.Octaves = 0 }, true},
		{"zero lacunarity", func(s *Settings) { s.Lacunarity = 0 }, true},
		{"lacunarity one", func(s *Settings) { s.Lacunarity = 1 }, false},
		{"zero persistence", func(s *Settings) { s.Persistence = 0 }, true},
		{"persistence one", func(s *Settings) { s.Persistence = 1 }, false},
		{"persistence above one", func(s *Settings) { s.Persistence = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSettings)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultSettings(t *testing.T) {
	assert.Equal(t, Settings{Seed: 0, Frequency: 4, Octaves: 1, Lacunarity: 2, Persistence: 0.5}, DefaultSettings())
}
