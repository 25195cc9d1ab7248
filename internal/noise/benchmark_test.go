package noise

import (
	"testing"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"github.com/MeKo-Tech/noisefield/internal/lane"
)

const benchSize = 256

// gridBatches lays a benchSize×benchSize grid over the unit square on the XZ
// plane, four points per batch.
func gridBatches() []Position4 {
	batches := make([]Position4, 0, benchSize*benchSize/lane.Width)
	var p Position4
	n := 0
	for y := 0; y < benchSize; y++ {
		for x := 0; x < benchSize; x++ {
			p.X[n] = float32(x) / benchSize
			p.Z[n] = float32(y) / benchSize
			n++
			if n == lane.Width {
				batches = append(batches, p)
				n = 0
			}
		}
	}
	return batches
}

func benchmarkKind(b *testing.B, kind Kind, dims int) {
	f, err := Resolve(kind, dims, false)
	if err != nil {
		b.Fatal(err)
	}
	settings := Settings{Seed: 42, Frequency: 8, Octaves: 3, Lacunarity: 2, Persistence: 0.5}
	batches := gridBatches()

	b.ResetTimer()
	b.ReportAllocs()

	var sink float32
	for i := 0; i < b.N; i++ {
		for _, p := range batches {
			sink += f(p, settings).V[0]
		}
	}
	_ = sink
}

func BenchmarkPerlin2D(b *testing.B)  { benchmarkKind(b, KindPerlin, 2) }
func BenchmarkPerlin3D(b *testing.B)  { benchmarkKind(b, KindPerlin, 3) }
func BenchmarkSimplex2D(b *testing.B) { benchmarkKind(b, KindSimplex, 2) }
func BenchmarkSimplex3D(b *testing.B) { benchmarkKind(b, KindSimplex, 3) }
func BenchmarkWorley2D(b *testing.B)  { benchmarkKind(b, KindVoronoiWorleyF1, 2) }
func BenchmarkWorley3D(b *testing.B)  { benchmarkKind(b, KindVoronoiWorleyF1, 3) }

func BenchmarkSmoothWorley3D(b *testing.B) {
	benchmarkKind(b, KindVoronoiSmoothWorleyF1, 3)
}

// BenchmarkReferencePerlin2D is the scalar float64 go-perlin package over the
// same grid and octave count, without derivatives, as a baseline.
func BenchmarkReferencePerlin2D(b *testing.B) {
	p := perlin.NewPerlin(2.0, 2.0, 3, 42)

	b.ResetTimer()
	b.ReportAllocs()

	var sink float64
	for i := 0; i < b.N; i++ {
		for y := 0; y < benchSize; y++ {
			for x := 0; x < benchSize; x++ {
				sink += p.Noise2D(float64(x)/benchSize*8, float64(y)/benchSize*8)
			}
		}
	}
	_ = sink
}

// BenchmarkReferenceOpenSimplex3D evaluates the scalar float32 OpenSimplex
// package at the same points, one octave per call.
func BenchmarkReferenceOpenSimplex3D(b *testing.B) {
	n := opensimplex.New32(42)
	octaves := []float32{8, 16, 32}

	b.ResetTimer()
	b.ReportAllocs()

	var sink float32
	for i := 0; i < b.N; i++ {
		for y := 0; y < benchSize; y++ {
			for x := 0; x < benchSize; x++ {
				amplitude := float32(1)
				for _, f := range octaves {
					sink += amplitude * n.Eval3(float32(x)/benchSize*f, 0, float32(y)/benchSize*f)
					amplitude *= 0.5
				}
			}
		}
	}
	_ = sink
}
