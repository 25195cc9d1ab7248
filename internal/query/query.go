// Package query evaluates JSON sample requests against the preset set. The
// WASM build and the HTTP /sample endpoint share it.
package query

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/noisefield/internal/field"
	"github.com/MeKo-Tech/noisefield/internal/noise"
	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/space"
)

// MaxPoints bounds the points accepted in one request.
const MaxPoints = 1 << 16

var (
	ErrTooManyPoints = errors.New("too many points")
	ErrCurlNeedsFlow = errors.New("curl requires flow")
)

// Request selects a noise configuration and the points to evaluate. Preset
// names a preset of the set; the optional fields override it.
//
// Surface ("plane" or "sphere") displaces the points instead of sampling
// them. Flow returns particle velocities on the surface, which defaults to
// the plane.
type Request struct {
	Preset       string          `json:"preset"`
	Kind         *noise.Kind     `json:"kind,omitempty"`
	Dimensions   int             `json:"dimensions,omitempty"`
	Tiling       *bool           `json:"tiling,omitempty"`
	Settings     *noise.Settings `json:"settings,omitempty"`
	Domain       *space.TRS      `json:"domain,omitempty"`
	Displacement *float32        `json:"displacement,omitempty"`
	Points       [][3]float32    `json:"points"`

	Surface string `json:"surface,omitempty"`
	Flow    bool   `json:"flow,omitempty"`
	Curl    bool   `json:"curl,omitempty"`
}

// Response holds exactly one of Samples, Vertices or Particles, or Error.
type Response struct {
	Preset    string           `json:"preset,omitempty"`
	Samples   []field.Sample   `json:"samples,omitempty"`
	Vertices  []field.Vertex   `json:"vertices,omitempty"`
	Particles []field.Particle `json:"particles,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Resolve returns the preset req selects with its overrides applied. Without
// a preset name it starts from preset.Default and is called "custom".
func (req Request) Resolve(set *preset.Set) (preset.Preset, error) {
	p := preset.Default()
	p.Name = "custom"
	if req.Preset != "" {
		var err error
		if p, err = set.Get(req.Preset); err != nil {
			return preset.Preset{}, err
		}
	}
	if req.Kind != nil {
		p.Kind = *req.Kind
	}
	if req.Dimensions != 0 {
		p.Dimensions = req.Dimensions
	}
	if req.Tiling != nil {
		p.Tiling = *req.Tiling
	}
	if req.Settings != nil {
		p.Settings = *req.Settings
	}
	if req.Domain != nil {
		p.Domain = *req.Domain
	}
	if req.Displacement != nil {
		p.Displacement = *req.Displacement
	}
	return p, nil
}

// Run evaluates req. Errors come from an unknown preset, an invalid
// override, an unknown surface or a request that is too large.
func Run(set *preset.Set, req Request) (Response, error) {
	if len(req.Points) > MaxPoints {
		return Response{}, fmt.Errorf("%w: %d (max %d)", ErrTooManyPoints, len(req.Points), MaxPoints)
	}
	if req.Curl && !req.Flow {
		return Response{}, ErrCurlNeedsFlow
	}

	p, err := req.Resolve(set)
	if err != nil {
		return Response{}, err
	}
	ev, err := p.Evaluator()
	if err != nil {
		return Response{}, err
	}

	resp := Response{Preset: p.Name}
	surface := field.SurfacePlane
	if req.Surface != "" {
		if surface, err = field.ParseSurface(req.Surface); err != nil {
			return Response{}, err
		}
	}

	switch {
	case req.Flow:
		resp.Particles = ev.Flow(req.Points, surface, req.Curl)
	case req.Surface != "":
		resp.Vertices = ev.Displace(surface, field.Vertices(req.Points, surface))
	default:
		resp.Samples = ev.Samples(req.Points)
	}
	return resp, nil
}
