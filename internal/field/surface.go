package field

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/noisefield/internal/lane"
	"github.com/MeKo-Tech/noisefield/internal/noise"
)

// Surface selects how noise displaces a point set.
type Surface int

const (
	// SurfacePlane displaces points on the XZ plane along Y.
	SurfacePlane Surface = iota
	// SurfaceSphere displaces points on the unit sphere radially.
	SurfaceSphere
)

func (s Surface) String() string {
	switch s {
	case SurfacePlane:
		return "plane"
	case SurfaceSphere:
		return "sphere"
	default:
		return fmt.Sprintf("Surface(%d)", int(s))
	}
}

// ParseSurface accepts "plane" or "sphere".
func ParseSurface(s string) (Surface, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plane":
		return SurfacePlane, nil
	case "sphere":
		return SurfaceSphere, nil
	}
	return 0, fmt.Errorf("unknown surface %q (expected plane or sphere)", s)
}

// Vertex is a surface point with its shading frame. A zero Tangent is left
// alone by Sphere.
type Vertex struct {
	Position [3]float32 `json:"position"`
	Normal   [3]float32 `json:"normal"`
	Tangent  [3]float32 `json:"tangent"`
}

// Vertices places points on the undisplaced surface. Plane vertices are
// projected onto the XZ plane, face up and point along X. Sphere vertices are
// normalized onto the unit sphere with a radial normal and an eastward
// tangent, which is zero at the poles.
func Vertices(points [][3]float32, surface Surface) []Vertex {
	out := make([]Vertex, len(points))
	for i, p := range points {
		if surface == SurfaceSphere {
			n := normalize(p)
			out[i] = Vertex{
				Position: n,
				Normal:   n,
				Tangent:  normalize(cross([3]float32{0, 1, 0}, n)),
			}
			continue
		}
		out[i] = Vertex{
			Position: [3]float32{p[0], 0, p[2]},
			Normal:   [3]float32{0, 1, 0},
			Tangent:  [3]float32{1, 0, 0},
		}
	}
	return out
}

// Displace dispatches to Plane or Sphere.
func (e *Evaluator) Displace(surface Surface, vertices []Vertex) []Vertex {
	if surface == SurfaceSphere {
		return e.Sphere(vertices)
	}
	return e.Plane(vertices)
}

// Plane sets each vertex height to the noise value and derives tangent and
// normal from the X and Z slopes.
func (e *Evaluator) Plane(vertices []Vertex) []Vertex {
	out := make([]Vertex, len(vertices))
	e.samples4(positions(vertices), func(base, n int, s noise.Sample4) {
		for i := range n {
			v := vertices[base+i]
			dx, dz := s.DX[i], s.DZ[i]

			v.Position[1] = s.V[i]

			t := lane.Rsqrt(dx*dx + 1)
			v.Tangent = [3]float32{t, dx * t, 0}

			v.Normal = PlaneNormal(dx, dz)

			out[base+i] = v
		}
	})
	return out
}

// PlaneNormal returns the unit normal of a height field with slopes dx and dz
// along X and Z.
func PlaneNormal(dx, dz float32) [3]float32 {
	nn := lane.Rsqrt(dx*dx + dz*dz + 1)
	return [3]float32{-dx * nn, nn, -dz * nn}
}

// Sphere pushes unit-sphere vertices out to radius 1+noise. The gradient is
// divided by the radius and projected onto the tangent plane to tilt the
// normal.
func (e *Evaluator) Sphere(vertices []Vertex) []Vertex {
	out := make([]Vertex, len(vertices))
	e.samples4(positions(vertices), func(base, n int, s noise.Sample4) {
		for i := range n {
			v := vertices[base+i]
			r := s.V[i] + 1
			d := [3]float32{s.DX[i] / r, s.DY[i] / r, s.DZ[i] / r}
			p := v.Position

			if v.Tangent != ([3]float32{}) {
				td := dot(v.Tangent, d)
				v.Tangent = normalize(add(v.Tangent, scale(p, td)))
			}

			pd := dot(p, d)
			v.Normal = normalize(add(sub(p, d), scale(p, pd)))
			v.Position = scale(p, r)

			out[base+i] = v
		}
	})
	return out
}

func positions(vertices []Vertex) [][3]float32 {
	points := make([][3]float32, len(vertices))
	for i, v := range vertices {
		points[i] = v.Position
	}
	return points
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func add(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func scale(a [3]float32, s float32) [3]float32 {
	return [3]float32{a[0] * s, a[1] * s, a[2] * s}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(a [3]float32) [3]float32 {
	l := dot(a, a)
	if l == 0 {
		return a
	}
	return scale(a, lane.Rsqrt(l))
}
