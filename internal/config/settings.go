package config

import (
	"fmt"
	"math"

	"perlin-terrain/internal/noise"
)

// MapDimensions sizes the triangular mesh.
type MapDimensions struct {
	LengthInSections   int     `yaml:"length_in_sections"`
	HeightInSections   int     `yaml:"height_in_sections"`
	TriangleSideLength float64 `yaml:"triangle_side_length"`
}

// PerlinSettings controls one generation run.
type PerlinSettings struct {
	Seed               uint32  `yaml:"seed"`
	InitialAmplitude   float64 `yaml:"initial_amplitude"`
	InitialGranularity float64 `yaml:"initial_granularity"`
	Layers             int     `yaml:"layers"`
	GranularityRatio   float64 `yaml:"granularity_ratio"`
	AmplitudeRatio     float64 `yaml:"amplitude_ratio"`
	EmitReadableMap    bool    `yaml:"emit_readable_map"`
	Overscan           string  `yaml:"overscan,omitempty"` // "source" (default) or "strict"
}

// DefaultDimensions returns the viewer's startup map.
func DefaultDimensions() MapDimensions {
	return MapDimensions{
		LengthInSections:   128,
		HeightInSections:   128,
		TriangleSideLength: 32,
	}
}

// DefaultPerlinSettings returns the startup noise settings.
func DefaultPerlinSettings() PerlinSettings {
	return PerlinSettings{
		Seed:               1,
		InitialAmplitude:   512,
		InitialGranularity: 4,
		Layers:             6,
		GranularityRatio:   0.5,
		AmplitudeRatio:     0.5,
	}
}

// Grid returns the vertex grid for d.
func (d MapDimensions) Grid() (noise.VertexGrid, error) {
	return noise.NewVertexGrid(d.LengthInSections, d.HeightInSections, d.TriangleSideLength)
}

// LayerAmplitude returns InitialAmplitude * AmplitudeRatio^layer.
func (s PerlinSettings) LayerAmplitude(layer int) float64 {
	return s.InitialAmplitude * math.Pow(s.AmplitudeRatio, float64(layer))
}

// LayerGranularity returns InitialGranularity * GranularityRatio^layer.
func (s PerlinSettings) LayerGranularity(layer int) float64 {
	return s.InitialGranularity * math.Pow(s.GranularityRatio, float64(layer))
}

// OverscanPolicy parses the Overscan field.
func (s PerlinSettings) OverscanPolicy() (noise.OverscanPolicy, error) {
	return noise.ParseOverscanPolicy(s.Overscan)
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be positive, got %v", noise.ErrInvalidConfiguration, name, v)
	}
	return nil
}

// Validate checks the settings on their own and against dims: every layer must
// produce a lattice cell of at least one world unit.
func (s PerlinSettings) Validate(dims MapDimensions) error {
	if s.Layers < 1 {
		return fmt.Errorf("%w: layers must be at least 1, got %d", noise.ErrInvalidConfiguration, s.Layers)
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"initial_amplitude", s.InitialAmplitude},
		{"initial_granularity", s.InitialGranularity},
		{"granularity_ratio", s.GranularityRatio},
		{"amplitude_ratio", s.AmplitudeRatio},
	}
	for _, c := range checks {
		if err := positive(c.name, c.v); err != nil {
			return err
		}
	}
	if _, err := s.OverscanPolicy(); err != nil {
		return err
	}

	grid, err := dims.Grid()
	if err != nil {
		return err
	}
	for i := 0; i < s.Layers; i++ {
		if _, err := noise.CellSide(grid.Side, s.LayerGranularity(i)); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

func (s PerlinSettings) String() string {
	return fmt.Sprintf("seed=%d amp=%g gran=%g layers=%d granRatio=%g ampRatio=%g",
		s.Seed, s.InitialAmplitude, s.InitialGranularity, s.Layers, s.GranularityRatio, s.AmplitudeRatio)
}
