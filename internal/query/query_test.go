package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/noisefield/internal/field"
	"github.com/MeKo-Tech/noisefield/internal/noise"
	"github.com/MeKo-Tech/noisefield/internal/preset"
)

func defaults(t *testing.T) *preset.Set {
	t.Helper()
	set, err := preset.Defaults()
	require.NoError(t, err)
	return set
}

var points = [][3]float32{{0.1, 0, 0.2}, {0.5, 0.3, -0.4}, {-0.7, 0.9, 0.05}, {1, 1, 1}, {0.25, -0.5, 0}}

func TestRunSamplesPreset(t *testing.T) {
	set := defaults(t)
	resp, err := Run(set, Request{Preset: "terrain", Points: points})
	require.NoError(t, err)

	p, err := set.Get("terrain")
	require.NoError(t, err)
	ev, err := p.Evaluator()
	require.NoError(t, err)

	assert.Equal(t, "terrain", resp.Preset)
	assert.Equal(t, ev.Samples(points), resp.Samples)
	assert.Empty(t, resp.Vertices)
	assert.Empty(t, resp.Particles)
}

func TestRunAppliesOverrides(t *testing.T) {
	kind := noise.KindSimplex
	settings := noise.Settings{Seed: 11, Frequency: 3, Octaves: 2, Lacunarity: 2, Persistence: 0.5}
	displacement := float32(0.5)

	req := Request{Kind: &kind, Dimensions: 2, Settings: &settings, Displacement: &displacement, Points: points}
	p, err := req.Resolve(defaults(t))
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name)
	assert.Equal(t, noise.KindSimplex, p.Kind)
	assert.Equal(t, 2, p.Dimensions)
	assert.Equal(t, settings, p.Settings)
	assert.Equal(t, float32(0.5), p.Displacement)

	resp, err := Run(defaults(t), req)
	require.NoError(t, err)
	assert.Len(t, resp.Samples, len(points))
}

func TestRunDisplacesSurface(t *testing.T) {
	set := defaults(t)
	for _, surface := range []field.Surface{field.SurfacePlane, field.SurfaceSphere} {
		t.Run(surface.String(), func(t *testing.T) {
			resp, err := Run(set, Request{Preset: "terrain", Points: points, Surface: surface.String()})
			require.NoError(t, err)
			require.Len(t, resp.Vertices, len(points))
			assert.Empty(t, resp.Samples)

			p, err := set.Get("terrain")
			require.NoError(t, err)
			ev, err := p.Evaluator()
			require.NoError(t, err)
			assert.Equal(t, ev.Displace(surface, field.Vertices(points, surface)), resp.Vertices)
		})
	}
}

func TestRunFlow(t *testing.T) {
	set := defaults(t)
	gradient, err := Run(set, Request{Preset: "terrain", Points: points, Flow: true})
	require.NoError(t, err)
	require.Len(t, gradient.Particles, len(points))

	curl, err := Run(set, Request{Preset: "terrain", Points: points, Flow: true, Curl: true})
	require.NoError(t, err)
	require.Len(t, curl.Particles, len(points))

	// On the plane curl flow is the gradient flow turned by a right angle.
	for i := range points {
		g, c := gradient.Particles[i].Velocity, curl.Particles[i].Velocity
		assert.InDelta(t, 0, g[0]*c[0]+g[1]*c[1]+g[2]*c[2], 1e-5)
		assert.Equal(t, float32(0), c[1])
	}

	sphere, err := Run(set, Request{Preset: "terrain", Points: points, Flow: true, Surface: "sphere"})
	require.NoError(t, err)
	assert.Len(t, sphere.Particles, len(points))
}

func TestRunErrors(t *testing.T) {
	set := defaults(t)
	bad := noise.Settings{Frequency: -1, Octaves: 1, Lacunarity: 2, Persistence: 0.5}

	tests := []struct {
		name string
		req  Request
		is   error
	}{
		{"unknown preset", Request{Preset: "lava", Points: points}, preset.ErrNotFound},
		{"unknown surface", Request{Points: points, Surface: "torus"}, nil},
		{"invalid settings", Request{Points: points, Settings: &bad}, nil},
		{"curl without flow", Request{Points: points, Curl: true}, ErrCurlNeedsFlow},
		{"too many points", Request{Points: make([][3]float32, MaxPoints+1)}, ErrTooManyPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(set, tt.req)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestRequestJSON(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{"preset":"terrain","kind":"simplex","surface":"sphere","points":[[1,0,0]]}`), &req)
	require.NoError(t, err)
	require.NotNil(t, req.Kind)
	assert.Equal(t, noise.KindSimplex, *req.Kind)
	assert.Equal(t, "sphere", req.Surface)

	resp, err := Run(defaults(t), req)
	require.NoError(t, err)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"vertices":[{"position":`)
	assert.NotContains(t, string(data), `"samples"`)
}
