package hash

import (
	"math/bits"

	"github.com/MeKo-Tech/noisefield/internal/lane"
)

// Hash4 runs four independent accumulators in lockstep.
type Hash4 lane.Uint4

// Seed4 starts one accumulator per lane.
func Seed4(seed lane.Int4) Hash4 {
	var h Hash4
	for i := range h {
		h[i] = uint32(seed[i]) + primeE
	}
	return h
}

// Broadcast copies a single-lane hash into every lane.
func Broadcast(h Hash) Hash4 {
	v := uint32(h)
	return Hash4{v, v, v, v}
}

// Eat derives the child hash for v in every lane.
func (h Hash4) Eat(v lane.Int4) Hash4 {
	for i := range h {
		h[i] = bits.RotateLeft32(h[i]+uint32(v[i])*primeC, 17) * primeD
	}
	return h
}

// Add offsets every accumulator by v. Used to decorrelate octaves.
func (h Hash4) Add(v int32) Hash4 {
	for i := range h {
		h[i] += uint32(v)
	}
	return h
}

// Select picks b where m is set and a elsewhere.
func Select(a, b Hash4, m lane.Bool4) Hash4 {
	return Hash4(lane.SelectUint(lane.Uint4(a), lane.Uint4(b), m))
}

// Avalanche mixes every accumulator into its output bits.
func (h Hash4) Avalanche() lane.Uint4 {
	var r lane.Uint4
	for i := range h {
		r[i] = avalanche(h[i])
	}
	return r
}

// Bits extracts count bits starting at shift from every lane.
func (h Hash4) Bits(count, shift uint) lane.Uint4 {
	r := h.Avalanche()
	m := mask(count)
	for i := range r {
		r[i] = (r[i] >> shift) & m
	}
	return r
}

// UnitFloats rescales Bits(count, shift) onto [0, 1].
func (h Hash4) UnitFloats(count, shift uint) lane.Float4 {
	return toUnit(h.Bits(count, shift), 1/float32(mask(count)))
}

// BytesA returns the lowest byte of the avalanche output.
func (h Hash4) BytesA() lane.Uint4 { return h.Bits(8, 0) }

// BytesB returns the second byte of the avalanche output.
func (h Hash4) BytesB() lane.Uint4 { return h.Bits(8, 8) }

// BytesC returns the third byte of the avalanche output.
func (h Hash4) BytesC() lane.Uint4 { return h.Bits(8, 16) }

// BytesD returns the highest byte of the avalanche output.
func (h Hash4) BytesD() lane.Uint4 { return h.Bits(8, 24) }

// FloatsA maps BytesA onto [0, 1].
func (h Hash4) FloatsA() lane.Float4 { return toUnit(h.BytesA(), 1.0/255.0) }

// FloatsB maps BytesB onto [0, 1].
func (h Hash4) FloatsB() lane.Float4 { return toUnit(h.BytesB(), 1.0/255.0) }

// FloatsC maps BytesC onto [0, 1].
func (h Hash4) FloatsC() lane.Float4 { return toUnit(h.BytesC(), 1.0/255.0) }

// FloatsD maps BytesD onto [0, 1].
func (h Hash4) FloatsD() lane.Float4 { return toUnit(h.BytesD(), 1.0/255.0) }

func toUnit(v lane.Uint4, scale float32) lane.Float4 {
	var r lane.Float4
	for i := range v {
		r[i] = float32(v[i]) * scale
	}
	return r
}
