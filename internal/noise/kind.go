package noise

import (
	"errors"
	"fmt"
	"strings"
)

// Func evaluates one fully composed strategy through the fractal accumulator.
type Func func(p Position4, settings Settings) Sample4

// Kind names a noise family that hosts can pick at run time.
type Kind int

const (
	KindPerlin Kind = iota
	KindPerlinSmoothTurbulence
	KindPerlinValue
	KindSimplex
	KindSimplexSmoothTurbulence
	KindSimplexValue
	KindVoronoiWorleyF1
	KindVoronoiWorleyF2
	KindVoronoiWorleyF2MinusF1
	KindVoronoiSmoothWorleyF1
	KindVoronoiSmoothWorleyF2
	KindVoronoiChebyshevF1
	KindVoronoiChebyshevF2
	KindVoronoiChebyshevF2MinusF1

	kindCount
)

var (
	ErrUnknownKind       = errors.New("unknown noise kind")
	ErrBadDimensions     = errors.New("dimensions must be 1, 2 or 3")
	ErrTilingUnsupported = errors.New("tiling is not supported for this noise kind")
)

var kindNames = [kindCount]string{
	"perlin",
	"perlin-smooth-turbulence",
	"perlin-value",
	"simplex",
	"simplex-smooth-turbulence",
	"simplex-value",
	"voronoi-worley-f1",
	"voronoi-worley-f2",
	"voronoi-worley-f2-minus-f1",
	"voronoi-smooth-worley-f1",
	"voronoi-smooth-worley-f2",
	"voronoi-chebyshev-f1",
	"voronoi-chebyshev-f2",
	"voronoi-chebyshev-f2-minus-f1",
}

// Kinds returns every kind in table order.
func Kinds() []Kind {
	kinds := make([]Kind, kindCount)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts the kebab-case name of a kind, ignoring case and treating
// underscores and spaces as dashes.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("_", "-", " ", "-").Replace(name)
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || k >= kindCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Voronoi reports whether k is a cellular family.
func (k Kind) Voronoi() bool {
	return k >= KindVoronoiWorleyF1 && k < kindCount
}

// Signed reports whether values of k span [-1, 1] rather than [0, 1].
func (k Kind) Signed() bool {
	switch k {
	case KindPerlin, KindPerlinValue, KindSimplex, KindSimplexValue:
		return true
	}
	return false
}

// SupportsTiling reports whether k can run on the periodic lattice.
func (k Kind) SupportsTiling() bool {
	switch k {
	case KindSimplex, KindSimplexSmoothTurbulence, KindSimplexValue:
		return false
	}
	return k >= 0 && k < kindCount
}

// Resolve returns the evaluator for kind at the given dimensionality. The
// result is taken from a static table; resolving once and calling the Func per
// batch avoids any per-sample dispatch.
func Resolve(kind Kind, dimensions int, tiling bool) (Func, error) {
	if kind < 0 || kind >= kindCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if dimensions < 1 || dimensions > 3 {
		return nil, fmt.Errorf("%w: got %d", ErrBadDimensions, dimensions)
	}
	if tiling && !kind.SupportsTiling() {
		return nil, fmt.Errorf("%w: %s", ErrTilingUnsupported, kind)
	}

	t := 0
	if tiling {
		t = 1
	}
	return funcs[kind][dimensions-1][t], nil
}

// funcs is indexed by kind, dimensions-1 and tiling.
var funcs = [kindCount][3][2]Func{
	KindPerlin:                  latticeFuncs[Perlin](),
	KindPerlinSmoothTurbulence:  latticeFuncs[Smoothstep[Turbulence[Perlin]]](),
	KindPerlinValue:             latticeFuncs[Value](),
	KindSimplex:                 simplexFuncs[Simplex](),
	KindSimplexSmoothTurbulence: simplexFuncs[Smoothstep[Turbulence[Simplex]]](),
	KindSimplexValue:            simplexFuncs[Value](),

	KindVoronoiWorleyF1:        voronoiFuncs[Worley, Worley, F1](),
	KindVoronoiWorleyF2:        voronoiFuncs[Worley, Worley, F2](),
	KindVoronoiWorleyF2MinusF1: voronoiFuncs[Worley, Worley, F2MinusF1](),

	KindVoronoiSmoothWorleyF1: voronoiFuncs[SmoothWorley, SmoothWorley, F1](),
	KindVoronoiSmoothWorleyF2: voronoiFuncs[SmoothWorley, SmoothWorley, F2](),

	// Max-norm and Euclidean distance coincide on a line.
	KindVoronoiChebyshevF1:        voronoiFuncs[Worley, Chebyshev, F1](),
	KindVoronoiChebyshevF2:        voronoiFuncs[Worley, Chebyshev, F2](),
	KindVoronoiChebyshevF2MinusF1: voronoiFuncs[Worley, Chebyshev, F2MinusF1](),
}

func latticeFuncs[G Gradient]() [3][2]Func {
	return [3][2]Func{
		{Fractal[Lattice1D[LatticeNormal, G]], Fractal[Lattice1D[LatticeTiling, G]]},
		{Fractal[Lattice2D[LatticeNormal, G]], Fractal[Lattice2D[LatticeTiling, G]]},
		{Fractal[Lattice3D[LatticeNormal, G]], Fractal[Lattice3D[LatticeTiling, G]]},
	}
}

// simplexFuncs leaves the tiling column empty; Resolve rejects it first.
func simplexFuncs[G Gradient]() [3][2]Func {
	return [3][2]Func{
		{Fractal[Simplex1D[G]], nil},
		{Fractal[Simplex2D[G]], nil},
		{Fractal[Simplex3D[G]], nil},
	}
}

// voronoiFuncs uses D1 for the one-dimensional scan and D for the others.
func voronoiFuncs[D1, D Distance, F Selector]() [3][2]Func {
	return [3][2]Func{
		{Fractal[Voronoi1D[LatticeNormal, D1, F]], Fractal[Voronoi1D[LatticeTiling, D1, F]]},
		{Fractal[Voronoi2D[LatticeNormal, D, F]], Fractal[Voronoi2D[LatticeTiling, D, F]]},
		{Fractal[Voronoi3D[LatticeNormal, D, F]], Fractal[Voronoi3D[LatticeTiling, D, F]]},
	}
}
