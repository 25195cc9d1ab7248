package hash

import (
	"testing"

	"github.com/MeKo-Tech/noisefield/internal/lane"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownValues(t *testing.T) {
	tests := []struct {
		name        string
		seed        int32
		path        []int32
		accumulator uint32
		avalanche   uint32
	}{
		{"seed only", 0, nil, 0x165667b1, 0x02cc5d05},
		{"eat zero", 0, []int32{0}, 0x64781794, 0x34560f83},
		{"eat one", 0, []int32{1}, 0xc512374e, 0x8287b9f0},
		{"eat negative", 0, []int32{-1}, 0x0210e309, 0xd4973b87},
		{"two steps", 42, []int32{3, -7}, 0x8a7bd3bd, 0x05b7c281},
		{"negative seed", -5, []int32{100}, 0x57b3b07c, 0x2b621245},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Seed(tt.seed)
			for _, v := range tt.path {
				h = h.Eat(v)
			}
			assert.Equal(t, tt.accumulator, uint32(h))
			assert.Equal(t, tt.avalanche, h.Avalanche())
		})
	}
}

func TestDeterminism(t *testing.T) {
	build := func() Hash {
		h := Seed(1337)
		for _, v := range []int32{4, -2, 99, 0, 1 << 30} {
			h = h.Eat(v)
		}
		return h
	}

	first := build()
	for i := 0; i < 10; i++ {
		again := build()
		require.Equal(t, first, again)
		require.Equal(t, first.Avalanche(), again.Avalanche())
	}
}

func TestBitExtraction(t *testing.T) {
	// seed 0, eat 0 avalanches to 0x34560f83
	h := Seed(0).Eat(0)

	assert.Equal(t, uint32(131), h.Bits(8, 0))
	assert.Equal(t, uint32(15), h.Bits(8, 8))
	assert.Equal(t, uint32(86), h.Bits(8, 16))
	assert.Equal(t, uint32(52), h.Bits(8, 24))
	assert.Equal(t, uint32(3), h.Bits(5, 0))
	assert.Equal(t, uint32(28), h.Bits(5, 5))

	h4 := Broadcast(h)
	assert.Equal(t, lane.Uint4{131, 131, 131, 131}, h4.BytesA())
	assert.Equal(t, lane.Uint4{15, 15, 15, 15}, h4.BytesB())
	assert.Equal(t, lane.Uint4{86, 86, 86, 86}, h4.BytesC())
	assert.Equal(t, lane.Uint4{52, 52, 52, 52}, h4.BytesD())
	assert.InDelta(t, 52.0/255.0, h4.FloatsD()[2], 1e-7)
	assert.InDelta(t, 3.0/31.0, h4.UnitFloats(5, 0)[1], 1e-7)
}

func TestUnitFloatsRange(t *testing.T) {
	h := Seed4(lane.Int4{7, -7, 0, 1 << 24})
	for i := int32(0); i < 500; i++ {
		c := h.Eat(lane.SplatInt(i))
		for _, count := range []uint{1, 5, 8, 12} {
			for _, f := range c.UnitFloats(count, 3) {
				require.GreaterOrEqual(t, f, float32(0))
				require.LessOrEqual(t, f, float32(1))
			}
		}
	}
}

func TestHash4MatchesScalar(t *testing.T) {
	seeds := lane.Int4{0, 42, -5, 1 << 20}
	values := lane.Int4{0, 3, 100, -9}

	h4 := Seed4(seeds).Eat(values).Eat(lane.Int4{1, -7, 2, 2})
	out := h4.Avalanche()

	for i := range seeds {
		h := Seed(seeds[i]).Eat(values[i]).Eat([]int32{1, -7, 2, 2}[i])
		assert.Equal(t, uint32(h), h4[i], "lane %d", i)
		assert.Equal(t, h.Avalanche(), out[i], "lane %d", i)
	}
}

func TestHash4AddAndSelect(t *testing.T) {
	base := Seed4(lane.SplatInt(0))
	shifted := base.Add(3)
	for i := range shifted {
		assert.Equal(t, base[i]+3, shifted[i])
	}

	a := Broadcast(Seed(1))
	b := Broadcast(Seed(2))
	s := Select(a, b, lane.Bool4{true, false, true, false})
	assert.Equal(t, b[0], s[0])
	assert.Equal(t, a[1], s[1])
	assert.Equal(t, b[2], s[2])
	assert.Equal(t, a[3], s[3])

	// Select must not alias its inputs.
	s[0] = 0
	assert.NotEqual(t, uint32(0), b[0])
}
