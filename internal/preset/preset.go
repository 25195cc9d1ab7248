// Package preset provides named noise configurations, loaded from an embedded
// YAML file and optionally extended by a user file.
package preset

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/noisefield/internal/field"
	"github.com/MeKo-Tech/noisefield/internal/noise"
	"github.com/MeKo-Tech/noisefield/internal/space"
)

//go:embed presets.yaml
var presetsYAML []byte

// ErrNotFound is returned by Set.Get for unknown names.
var ErrNotFound = errors.New("preset not found")

// Preset is a complete, named choice of noise family and parameters.
type Preset struct {
	Name         string         `yaml:"name" json:"name"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Kind         noise.Kind     `yaml:"kind" json:"kind"`
	Dimensions   int            `yaml:"dimensions" json:"dimensions"`
	Tiling       bool           `yaml:"tiling" json:"tiling"`
	Settings     noise.Settings `yaml:"settings" json:"settings"`
	Domain       space.TRS      `yaml:"domain" json:"domain"`
	Displacement float32        `yaml:"displacement" json:"displacement"`
}

// Default returns the values a preset starts from before its YAML is applied.
func Default() Preset {
	return Preset{
		Kind:         noise.KindPerlin,
		Dimensions:   3,
		Settings:     noise.DefaultSettings(),
		Domain:       space.Identity(),
		Displacement: 1,
	}
}

// UnmarshalYAML decodes on top of Default so partial entries stay usable.
func (p *Preset) UnmarshalYAML(value *yaml.Node) error {
	type plain Preset
	decoded := plain(Default())
	if err := value.Decode(&decoded); err != nil {
		return err
	}
	*p = Preset(decoded)
	return nil
}

// Validate checks that the preset resolves and its settings are in range.
func (p Preset) Validate() error {
	if p.Name == "" {
		return errors.New("preset name is required")
	}
	if err := p.Settings.Validate(); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	if _, err := noise.Resolve(p.Kind, p.Dimensions, p.Tiling); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return nil
}

// Resolve returns the noise function for the preset's kind, dimensions and
// tiling flag.
func (p Preset) Resolve() (noise.Func, error) {
	fn, err := noise.Resolve(p.Kind, p.Dimensions, p.Tiling)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preset %q: %w", p.Name, err)
	}
	return fn, nil
}

// Evaluator builds a field evaluator configured from the preset.
func (p Preset) Evaluator() (*field.Evaluator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	fn, err := p.Resolve()
	if err != nil {
		return nil, err
	}
	ev := field.New(fn, p.Settings, p.Domain)
	ev.Displacement = p.Displacement
	return ev, nil
}

// Set is an ordered collection of presets with lookup by name.
type Set struct {
	presets []Preset
	index   map[string]int
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Defaults parses the embedded presets.
func Defaults() (*Set, error) {
	s := &Set{index: make(map[string]int)}
	if err := s.merge(presetsYAML); err != nil {
		return nil, fmt.Errorf("parsing embedded presets: %w", err)
	}
	return s, nil
}

// Load returns the embedded presets extended by the file at path. Entries
// whose name matches a built-in preset replace it. An empty path loads only
// the built-ins.
func Load(path string) (*Set, error) {
	s, err := Defaults()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets file: %w", err)
	}
	if err := s.merge(data); err != nil {
		return nil, fmt.Errorf("parsing presets file %s: %w", path, err)
	}
	return s, nil
}

func (s *Set) merge(data []byte) error {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	for _, p := range f.Presets {
		if err := p.Validate(); err != nil {
			return err
		}
		if i, ok := s.index[p.Name]; ok {
			s.presets[i] = p
			continue
		}
		s.index[p.Name] = len(s.presets)
		s.presets = append(s.presets, p)
	}
	return nil
}

// Get returns the preset called name.
func (s *Set) Get(name string) (Preset, error) {
	i, ok := s.index[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.presets[i], nil
}

// All returns the presets in file order.
func (s *Set) All() []Preset {
	out := make([]Preset, len(s.presets))
	copy(out, s.presets)
	return out
}

// Names returns the preset names sorted alphabetically.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.presets))
	for _, p := range s.presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
