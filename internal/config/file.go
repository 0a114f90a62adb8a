package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"perlin-terrain/internal/noise"
)

// File is the on-disk settings document.
type File struct {
	Map     MapDimensions  `yaml:"map"`
	Perlin  PerlinSettings `yaml:"perlin"`
	Device  string         `yaml:"device"`  // "cpu", "gl" or "auto"
	Workers int            `yaml:"workers"` // cpu device only, 0 = GOMAXPROCS
}

// DefaultFile returns the document a missing config file stands for.
func DefaultFile() File {
	return File{
		Map:    DefaultDimensions(),
		Perlin: DefaultPerlinSettings(),
		Device: "cpu",
	}
}

// Settings returns the generation parameters of f.
func (f File) Settings() Settings {
	return Settings{Map: f.Map, Perlin: f.Perlin}
}

// Load reads and validates a settings file. Keys missing from the file keep their defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a settings document.
func Parse(data []byte) (*File, error) {
	cfg := DefaultFile()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills defaults and checks every section.
func (f *File) Validate() error {
	if f.Device == "" {
		f.Device = "cpu"
	}
	switch f.Device {
	case "cpu", "gl", "auto":
	default:
		return fmt.Errorf("%w: device must be cpu, gl or auto, got %q", noise.ErrInvalidConfiguration, f.Device)
	}
	if f.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative", noise.ErrInvalidConfiguration)
	}
	if _, err := f.Map.Grid(); err != nil {
		return fmt.Errorf("map: %w", err)
	}
	if err := f.Perlin.Validate(f.Map); err != nil {
		return fmt.Errorf("perlin: %w", err)
	}
	return nil
}

// Marshal encodes f as YAML.
func (f File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Merge copies values from fromFile into cfg for every field whose flag was not set
// explicitly on the command line. explicitFlags holds the names of the flags that were set.
func Merge(cfg *File, fromFile *File, explicitFlags map[string]bool) {
	if !explicitFlags["length"] {
		cfg.Map.LengthInSections = fromFile.Map.LengthInSections
	}
	if !explicitFlags["height"] {
		cfg.Map.HeightInSections = fromFile.Map.HeightInSections
	}
	if !explicitFlags["side"] {
		cfg.Map.TriangleSideLength = fromFile.Map.TriangleSideLength
	}
	if !explicitFlags["seed"] {
		cfg.Perlin.Seed = fromFile.Perlin.Seed
	}
	if !explicitFlags["amplitude"] {
		cfg.Perlin.InitialAmplitude = fromFile.Perlin.InitialAmplitude
	}
	if !explicitFlags["granularity"] {
		cfg.Perlin.InitialGranularity = fromFile.Perlin.InitialGranularity
	}
	if !explicitFlags["layers"] {
		cfg.Perlin.Layers = fromFile.Perlin.Layers
	}
	if !explicitFlags["granularity-ratio"] {
		cfg.Perlin.GranularityRatio = fromFile.Perlin.GranularityRatio
	}
	if !explicitFlags["amplitude-ratio"] {
		cfg.Perlin.AmplitudeRatio = fromFile.Perlin.AmplitudeRatio
	}
	if !explicitFlags["overscan"] {
		cfg.Perlin.Overscan = fromFile.Perlin.Overscan
	}
	if !explicitFlags["device"] {
		cfg.Device = fromFile.Device
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	cfg.Perlin.EmitReadableMap = cfg.Perlin.EmitReadableMap || fromFile.Perlin.EmitReadableMap
}
