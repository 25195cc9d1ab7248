package noise

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/noisefield/internal/hash"
	"github.com/MeKo-Tech/noisefield/internal/lane"
)

// Noise is a single-octave strategy. Implementations are zero-sized and used
// only as type parameters.
type Noise interface {
	Noise4(p Position4, h hash.Hash4, frequency int32) Sample4
}

// Settings controls the fractal octave sum.
type Settings struct {
	Seed        int32   `yaml:"seed" json:"seed"`
	Frequency   int32   `yaml:"frequency" json:"frequency"`
	Octaves     int32   `yaml:"octaves" json:"octaves"`
	Lacunarity  int32   `yaml:"lacunarity" json:"lacunarity"`
	Persistence float32 `yaml:"persistence" json:"persistence"`
}

// DefaultSettings returns a single octave at frequency 4.
func DefaultSettings() Settings {
	return Settings{
		Seed:        0,
		Frequency:   4,
		Octaves:     1,
		Lacunarity:  2,
		Persistence: 0.5,
	}
}

// ErrInvalidSettings is wrapped by every Settings.Validate failure.
var ErrInvalidSettings = errors.New("invalid noise settings")

// Validate checks the ranges hosts are expected to enforce before evaluating.
func (s Settings) Validate() error {
	switch {
	case s.Frequency < 1:
		return fmt.Errorf("%w: frequency must be at least 1, got %d", ErrInvalidSettings, s.Frequency)
	case s.Octaves < 1:
		return fmt.Errorf("%w: octaves must be at least 1, got %d", ErrInvalidSettings, s.Octaves)
	case s.Lacunarity < 1:
		return fmt.Errorf("%w: lacunarity must be at least 1, got %d", ErrInvalidSettings, s.Lacunarity)
	case s.Persistence <= 0 || s.Persistence > 1:
		return fmt.Errorf("%w: persistence must be in (0, 1], got %g", ErrInvalidSettings, s.Persistence)
	}
	return nil
}

// Fractal sums settings.Octaves octaves of N and divides by the total
// amplitude, so the result stays within the range of a single octave.
// Octave o hashes with the seed offset by o.
func Fractal[N Noise](p Position4, settings Settings) Sample4 {
	var n N
	h := hash.Seed4(lane.SplatInt(settings.Seed))

	frequency := settings.Frequency
	amplitude := float32(1)
	var amplitudeSum float32
	var sum Sample4

	for o := int32(0); o < settings.Octaves; o++ {
		sum = sum.Add(n.Noise4(p, h.Add(o), frequency).Scale(amplitude))
		amplitudeSum += amplitude
		frequency *= settings.Lacunarity
		amplitude *= settings.Persistence
	}
	return sum.Div(lane.Splat(amplitudeSum))
}
