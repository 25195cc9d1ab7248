package noise

import "github.com/MeKo-Tech/noisefield/internal/lane"

// Distance measures the offset from a sample position to a cell point and
// folds the result into the running nearest-two pair.
type Distance interface {
	Initial() VoronoiData
	Update(data VoronoiData, s Sample4) VoronoiData

	Distance1D(x lane.Float4) Sample4
	Distance2D(x, z lane.Float4) Sample4
	Distance3D(x, y, z lane.Float4) Sample4

	Finalize1D(data VoronoiData) VoronoiData
	Finalize2D(data VoronoiData) VoronoiData
	Finalize3D(data VoronoiData) VoronoiData
}

// Worley is Euclidean distance. 2D and 3D work on squared distances until
// Finalize, which takes the root and clamps to 1.
type Worley struct{}

func (Worley) Initial() VoronoiData {
	far := Constant(lane.Splat(2))
	return VoronoiData{A: far, B: far}
}

func (Worley) Update(data VoronoiData, s Sample4) VoronoiData {
	newMin := s.V.Less(data.A.V)
	data.B = SelectSample(SelectSample(data.B, s, s.V.Less(data.B.V)), data.A, newMin)
	data.A = SelectSample(data.A, s, newMin)
	return data
}

func (Worley) Distance1D(x lane.Float4) Sample4 {
	var s Sample4
	for i, v := range x {
		s.V[i] = lane.Abs(v)
		s.DX[i] = -lane.Sign(v)
	}
	return s
}

func (w Worley) Distance2D(x, z lane.Float4) Sample4 {
	return w.Distance3D(x, lane.Float4{}, z)
}

// Distance3D returns the squared distance; derivatives are left as the raw
// offset and fixed up by Finalize3D.
func (Worley) Distance3D(x, y, z lane.Float4) Sample4 {
	var s Sample4
	for i := range x {
		s.V[i] = x[i]*x[i] + y[i]*y[i] + z[i]*z[i]
	}
	s.DX, s.DY, s.DZ = x, y, z
	return s
}

func (Worley) Finalize1D(data VoronoiData) VoronoiData { return data }

func (w Worley) Finalize2D(data VoronoiData) VoronoiData { return w.Finalize3D(data) }

func (Worley) Finalize3D(data VoronoiData) VoronoiData {
	data.A = rootDistance(data.A)
	data.B = rootDistance(data.B)
	return data
}

// rootDistance turns a squared distance with raw offsets into a distance with
// its gradient. Lanes at or beyond one cell collapse to a flat 1.
func rootDistance(s Sample4) Sample4 {
	for i := range s.V {
		if s.V[i] >= 1 {
			s.V[i], s.DX[i], s.DY[i], s.DZ[i] = 1, 0, 0, 0
			continue
		}
		v := lane.Sqrt(s.V[i])
		s.V[i] = v
		s.DX[i] = -s.DX[i] / v
		s.DY[i] = -s.DY[i] / v
		s.DZ[i] = -s.DZ[i] / v
	}
	return s
}

const (
	// smoothLSE sharpens the log-sum-exp blend used for F1.
	smoothLSE = 10
	// smoothPoly is the width of the polynomial smooth minimum used for F2.
	smoothPoly = 0.25
)

// SmoothWorley replaces the hard minimum with smooth ones: a log-sum-exp
// accumulation for F1 and a polynomial smooth minimum for F2.
type SmoothWorley struct{}

func (SmoothWorley) Initial() VoronoiData {
	return VoronoiData{B: Constant(lane.Splat(2))}
}

func (SmoothWorley) Update(data VoronoiData, s Sample4) VoronoiData {
	b := data.B
	for i := range s.V {
		e := lane.Exp(-smoothLSE * s.V[i])
		data.A.V[i] += e
		data.A.DX[i] += e * s.DX[i]
		data.A.DY[i] += e * s.DY[i]
		data.A.DZ[i] += e * s.DZ[i]

		diff := b.V[i] - s.V[i]
		h := 1 - lane.Abs(diff)/smoothPoly

		// Derivative of the polynomial blend term, sign follows which side wins.
		hdx := b.DX[i] - s.DX[i]
		hdy := b.DY[i] - s.DY[i]
		hdz := b.DZ[i] - s.DZ[i]
		if diff >= 0 {
			hdx, hdy, hdz = -hdx, -hdy, -hdz
		}
		half := 0.5 * h
		hdx, hdy, hdz = hdx*half, hdy*half, hdz*half

		if s.V[i] < b.V[i] {
			data.B.V[i], data.B.DX[i], data.B.DY[i], data.B.DZ[i] = s.V[i], s.DX[i], s.DY[i], s.DZ[i]
		}
		if h > 0 {
			data.B.V[i] -= 0.25 * smoothPoly * h * h
			data.B.DX[i] -= hdx
			data.B.DY[i] -= hdy
			data.B.DZ[i] -= hdz
		}
	}
	return data
}

func (SmoothWorley) Distance1D(x lane.Float4) Sample4 {
	var w Worley
	return w.Distance1D(x)
}

func (sw SmoothWorley) Distance2D(x, z lane.Float4) Sample4 {
	return sw.Distance3D(x, lane.Float4{}, z)
}

// Distance3D is the true Euclidean distance: the smooth minimums need it
// before the scan ends.
func (SmoothWorley) Distance3D(x, y, z lane.Float4) Sample4 {
	var s Sample4
	for i := range x {
		v := lane.Sqrt(x[i]*x[i] + y[i]*y[i] + z[i]*z[i])
		s.V[i] = v
		s.DX[i] = x[i] / -v
		s.DY[i] = y[i] / -v
		s.DZ[i] = z[i] / -v
	}
	return s
}

func (SmoothWorley) Finalize1D(data VoronoiData) VoronoiData {
	data.A = resolveLSE(data.A)
	data.A = SelectSample(Sample4{}, data.A.Smoothstep(), positive(data.A.V))
	data.B = SelectSample(Sample4{}, data.B.Smoothstep(), positive(data.B.V))
	return data
}

func (sw SmoothWorley) Finalize2D(data VoronoiData) VoronoiData { return sw.Finalize3D(data) }

func (SmoothWorley) Finalize3D(data VoronoiData) VoronoiData {
	data.A = resolveLSE(data.A)
	data.A = SelectSample(Sample4{}, data.A.Smoothstep(), insideUnit(data.A.V))
	data.B = SelectSample(Sample4{}, data.B.Smoothstep(), insideUnit(data.B.V))
	return data
}

// resolveLSE converts the accumulated exponentials into the blended minimum.
func resolveLSE(s Sample4) Sample4 {
	for i := range s.V {
		s.DX[i] /= s.V[i]
		s.DY[i] /= s.V[i]
		s.DZ[i] /= s.V[i]
		s.V[i] = lane.Log(s.V[i]) / -smoothLSE
	}
	return s
}

func positive(v lane.Float4) lane.Bool4 {
	return lane.Float4{}.Less(v)
}

// insideUnit reports 0 < v < 1 per lane.
func insideUnit(v lane.Float4) lane.Bool4 {
	var m lane.Bool4
	for i := range v {
		m[i] = v[i] > 0 && v[i] < 1
	}
	return m
}

// Chebyshev measures the largest single-axis offset. Values are exact from
// the start so no finalize step is needed.
type Chebyshev struct{}

func (Chebyshev) Initial() VoronoiData {
	var w Worley
	return w.Initial()
}

func (Chebyshev) Update(data VoronoiData, s Sample4) VoronoiData {
	var w Worley
	return w.Update(data, s)
}

func (Chebyshev) Distance1D(x lane.Float4) Sample4 {
	var w Worley
	return w.Distance1D(x)
}

func (Chebyshev) Distance2D(x, z lane.Float4) Sample4 {
	var s Sample4
	for i := range x {
		ax, az := lane.Abs(x[i]), lane.Abs(z[i])
		if ax > az {
			s.V[i] = ax
			s.DX[i] = -lane.Sign(x[i])
		} else {
			s.V[i] = az
			s.DZ[i] = -lane.Sign(z[i])
		}
	}
	return s
}

func (Chebyshev) Distance3D(x, y, z lane.Float4) Sample4 {
	var s Sample4
	for i := range x {
		ax, ay, az := lane.Abs(x[i]), lane.Abs(y[i]), lane.Abs(z[i])
		switch {
		case ax > ay && ax > az:
			s.V[i] = ax
			s.DX[i] = -lane.Sign(x[i])
		case ay > az:
			s.V[i] = ay
			s.DY[i] = -lane.Sign(y[i])
		default:
			s.V[i] = az
			s.DZ[i] = -lane.Sign(z[i])
		}
	}
	return s
}

func (Chebyshev) Finalize1D(data VoronoiData) VoronoiData { return data }

func (Chebyshev) Finalize2D(data VoronoiData) VoronoiData { return data }

func (Chebyshev) Finalize3D(data VoronoiData) VoronoiData { return data }
