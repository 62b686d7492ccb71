package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/vortex/engine/core"
)

// RenderConfig drives one full build+dispatch run. The defaults mirror the
// smallest supported configuration: an 800x600 RGBA32F target accumulated
// over 32 sample batches with a 21x21 instance grid.
type RenderConfig struct {
	Width         uint32 `toml:"width"`
	Height        uint32 `toml:"height"`
	SampleBatches uint32 `toml:"sample_batches"`

	// Scene is resolved against SearchPaths; exactly one shape is expected.
	Scene       string   `toml:"scene"`
	SearchPaths []string `toml:"search_paths"`
	// ShaderDir holds the precompiled SPIR-V binaries, relative to the
	// executable unless absolute.
	ShaderDir string `toml:"shader_dir"`
	Output    string `toml:"output"`

	// GridHalfExtent n produces a (2n+1)^2 instance grid centered on the
	// origin. PlacementSeed makes the per-instance jitter reproducible: two
	// runs with the same seed render bit-identical images.
	GridHalfExtent int32  `toml:"grid_half_extent"`
	PlacementSeed  uint64 `toml:"placement_seed"`

	Camera CameraConfig `toml:"camera"`
	Light  LightConfig  `toml:"light"`
}

type CameraConfig struct {
	Origin      [3]float32 `toml:"origin"`
	FovYDegrees float32    `toml:"fov_y_degrees"`
}

type LightConfig struct {
	Direction [3]float32 `toml:"direction"`
	Intensity float32    `toml:"intensity"`
}

func Default() *RenderConfig {
	return &RenderConfig{
		Width:          800,
		Height:         600,
		SampleBatches:  32,
		Scene:          "scenes/CornellBox-Original-Merged.obj",
		SearchPaths:    []string{"assets", "../assets"},
		ShaderDir:      "shaders",
		Output:         "out.hdr",
		GridHalfExtent: 10,
		PlacementSeed:  1,
		Camera: CameraConfig{
			Origin:      [3]float32{-0.001, 1.0, 6.0},
			FovYDegrees: 45.0,
		},
		Light: LightConfig{
			Direction: [3]float32{-0.5, -1.0, -0.3},
			Intensity: 1.0,
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error;
// the defaults describe a complete run.
func Load(path string) (*RenderConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("No config file at '%s', using defaults.", path)
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *RenderConfig) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("render extent must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.SampleBatches == 0 {
		return fmt.Errorf("at least one sample batch is required")
	}
	if c.Scene == "" {
		return fmt.Errorf("a scene file is required")
	}
	if c.GridHalfExtent < 0 {
		return fmt.Errorf("grid half extent cannot be negative, got %d", c.GridHalfExtent)
	}
	if c.Output == "" {
		return fmt.Errorf("an output file is required")
	}
	return nil
}

// InstanceCount returns the number of instances the placement grid produces.
func (c *RenderConfig) InstanceCount() uint32 {
	side := uint32(2*c.GridHalfExtent + 1)
	return side * side
}
