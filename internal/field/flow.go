package field

import "github.com/MeKo-Tech/noisefield/internal/noise"

// Particle is a point riding on a displaced surface together with the
// velocity the noise field assigns to it.
type Particle struct {
	Position [3]float32 `json:"position"`
	Velocity [3]float32 `json:"velocity"`
}

// Flow returns a velocity for every point. Gradient flow runs downhill along
// the surface; curl flow runs along the contour lines instead.
//
// Plane points are projected onto the XZ plane before sampling. Sphere points
// are normalized onto the unit sphere first.
func (e *Evaluator) Flow(points [][3]float32, surface Surface, curl bool) []Particle {
	projected := make([][3]float32, len(points))
	for i, p := range points {
		if surface == SurfaceSphere {
			projected[i] = normalize(p)
		} else {
			projected[i] = [3]float32{p[0], 0, p[2]}
		}
	}

	out := make([]Particle, len(points))
	e.samples4(projected, func(base, n int, s noise.Sample4) {
		for i := range n {
			p := projected[base+i]
			d := s.Derivatives(i)

			if surface != SurfaceSphere {
				var velocity [3]float32
				if curl {
					velocity = [3]float32{d[2], 0, -d[0]}
				} else {
					velocity = [3]float32{-d[0], 0, -d[2]}
				}
				out[base+i] = Particle{
					Position: [3]float32{p[0], s.V[i], p[2]},
					Velocity: velocity,
				}
				continue
			}

			r := s.V[i] + 1
			d = scale(d, 1/r)
			d = sub(d, scale(p, dot(p, d)))

			velocity := scale(d, -1)
			if curl {
				velocity = cross(p, d)
			}
			out[base+i] = Particle{
				Position: scale(p, r),
				Velocity: velocity,
			}
		}
	})
	return out
}
