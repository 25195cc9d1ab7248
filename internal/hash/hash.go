// Package hash implements the small xxHash-style accumulator that drives all
// pseudo-randomness in the noise core.
//
// A hash is seeded once and then fed integers ("eaten") to derive child hashes,
// typically one lattice coordinate per axis. The avalanche step mixes the
// accumulator into the final bits that strategies read. Arithmetic wraps on
// overflow; results are bit-identical on every platform.
package hash

import "math/bits"

const (
	primeB uint32 = 0b10000101111010111100101001110111
	primeC uint32 = 0b11000010101100101010111000111101
	primeD uint32 = 0b00100111110101001110101100101111
	primeE uint32 = 0b00010110010101100110011110110001
)

// Hash is a single-lane accumulator.
type Hash uint32

// Seed starts a new accumulator for the given seed.
func Seed(seed int32) Hash {
	return Hash(uint32(seed) + primeE)
}

// Eat derives the child hash for v.
func (h Hash) Eat(v int32) Hash {
	return Hash(bits.RotateLeft32(uint32(h)+uint32(v)*primeC, 17) * primeD)
}

// Avalanche mixes the accumulator into the output bits.
func (h Hash) Avalanche() uint32 {
	return avalanche(uint32(h))
}

// Bits extracts count bits starting at shift from the avalanche output.
func (h Hash) Bits(count, shift uint) uint32 {
	return (h.Avalanche() >> shift) & mask(count)
}

func avalanche(x uint32) uint32 {
	x ^= x >> 15
	x *= primeB
	x ^= x >> 13
	x *= primeC
	x ^= x >> 16
	return x
}

func mask(count uint) uint32 {
	return uint32(1)<<count - 1
}
