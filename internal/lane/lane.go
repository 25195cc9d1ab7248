// Package lane provides the 4-wide value types the noise core evaluates in lockstep.
//
// Every operation is lane-wise: lane i of the result depends only on lane i of the
// operands. Selections never branch across lanes.
package lane

import "math"

// Width is the number of lanes carried by every batched value.
const Width = 4

// Float4 holds one float32 per lane.
type Float4 [Width]float32

// Int4 holds one int32 per lane.
type Int4 [Width]int32

// Uint4 holds one uint32 per lane.
type Uint4 [Width]uint32

// Bool4 holds one mask bit per lane.
type Bool4 [Width]bool

// Splat returns v in every lane.
func Splat(v float32) Float4 {
	return Float4{v, v, v, v}
}

// SplatInt returns v in every lane.
func SplatInt(v int32) Int4 {
	return Int4{v, v, v, v}
}

func (a Float4) Add(b Float4) Float4 {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

func (a Float4) Sub(b Float4) Float4 {
	for i := range a {
		a[i] -= b[i]
	}
	return a
}

func (a Float4) Mul(b Float4) Float4 {
	for i := range a {
		a[i] *= b[i]
	}
	return a
}

func (a Float4) Div(b Float4) Float4 {
	for i := range a {
		a[i] /= b[i]
	}
	return a
}

// Scale multiplies every lane by s.
func (a Float4) Scale(s float32) Float4 {
	for i := range a {
		a[i] *= s
	}
	return a
}

// Offset adds s to every lane.
func (a Float4) Offset(s float32) Float4 {
	for i := range a {
		a[i] += s
	}
	return a
}

// Less reports a < b per lane.
func (a Float4) Less(b Float4) Bool4 {
	var m Bool4
	for i := range a {
		m[i] = a[i] < b[i]
	}
	return m
}

// Floor rounds every lane toward negative infinity.
func (a Float4) Floor() Float4 {
	for i := range a {
		a[i] = Floor(a[i])
	}
	return a
}

// Abs returns |a| per lane.
func (a Float4) Abs() Float4 {
	for i := range a {
		a[i] = float32(math.Abs(float64(a[i])))
	}
	return a
}

// Int truncates every lane toward zero.
func (a Float4) Int() Int4 {
	var r Int4
	for i := range a {
		r[i] = int32(a[i])
	}
	return r
}

// Float converts every lane to float32.
func (a Int4) Float() Float4 {
	var r Float4
	for i := range a {
		r[i] = float32(a[i])
	}
	return r
}

// Offset adds v to every lane with two's-complement wraparound.
func (a Int4) Offset(v int32) Int4 {
	for i := range a {
		a[i] += v
	}
	return a
}

func (a Bool4) And(b Bool4) Bool4 {
	for i := range a {
		a[i] = a[i] && b[i]
	}
	return a
}

func (a Bool4) Or(b Bool4) Bool4 {
	for i := range a {
		a[i] = a[i] || b[i]
	}
	return a
}

func (a Bool4) Not() Bool4 {
	for i := range a {
		a[i] = !a[i]
	}
	return a
}

// Select picks t where m is set and f elsewhere.
func Select(f, t Float4, m Bool4) Float4 {
	for i := range f {
		f[i] = pick(f[i], t[i], m[i])
	}
	return f
}

// SelectInt picks t where m is set and f elsewhere.
func SelectInt(f, t Int4, m Bool4) Int4 {
	for i := range f {
		f[i] = pick(f[i], t[i], m[i])
	}
	return f
}

// SelectUint picks t where m is set and f elsewhere.
func SelectUint(f, t Uint4, m Bool4) Uint4 {
	for i := range f {
		f[i] = pick(f[i], t[i], m[i])
	}
	return f
}

func pick[T any](f, t T, m bool) T {
	if m {
		return t
	}
	return f
}

// Floor is the float32 floor used by every lattice computation.
func Floor(x float32) float32 {
	return float32(math.Floor(float64(x)))
}

// Sqrt is a float32 square root.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// Rsqrt returns 1/sqrt(x).
func Rsqrt(x float32) float32 {
	return float32(1 / math.Sqrt(float64(x)))
}

// Abs is a float32 absolute value.
func Abs(x float32) float32 {
	return math.Float32frombits(math.Float32bits(x) &^ (1 << 31))
}

// Exp is a float32 natural exponential.
func Exp(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

// Log is a float32 natural logarithm.
func Log(x float32) float32 {
	return float32(math.Log(float64(x)))
}

// Sign returns -1 for negative x and 1 otherwise.
func Sign(x float32) float32 {
	if x < 0 {
		return -1
	}
	return 1
}
