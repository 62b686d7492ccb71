package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default configuration invalid: %v", err)
	}
}

func TestInstanceCount(t *testing.T) {
	tests := []struct {
		halfExtent int32
		want       uint32
	}{
		{0, 1},
		{1, 9},
		{10, 441},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.GridHalfExtent = tt.halfExtent
		if got := cfg.InstanceCount(); got != tt.want {
			t.Errorf("InstanceCount(half extent %d) = %d, want %d", tt.halfExtent, got, tt.want)
		}
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RenderConfig)
	}{
		{"zero width", func(c *RenderConfig) { c.Width = 0 }},
		{"zero height", func(c *RenderConfig) { c.Height = 0 }},
		{"zero batches", func(c *RenderConfig) { c.SampleBatches = 0 }},
		{"no scene", func(c *RenderConfig) { c.Scene = "" }},
		{"negative grid", func(c *RenderConfig) { c.GridHalfExtent = -1 }},
		{"no output", func(c *RenderConfig) { c.Output = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Width != Default().Width || cfg.SampleBatches != Default().SampleBatches {
		t.Errorf("missing file did not fall back to defaults: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.toml")
	content := `
width = 320
height = 240
sample_batches = 4
scene = "scenes/box.obj"
output = "render.hdr"
grid_half_extent = 2
placement_seed = 99

[camera]
origin = [0.0, 1.0, 5.0]
fov_y_degrees = 60.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 240 {
		t.Errorf("extent = %dx%d, want 320x240", cfg.Width, cfg.Height)
	}
	if cfg.SampleBatches != 4 {
		t.Errorf("batches = %d, want 4", cfg.SampleBatches)
	}
	if cfg.PlacementSeed != 99 {
		t.Errorf("seed = %d, want 99", cfg.PlacementSeed)
	}
	if cfg.Camera.FovYDegrees != 60.0 {
		t.Errorf("fov = %f, want 60", cfg.Camera.FovYDegrees)
	}
	if cfg.InstanceCount() != 25 {
		t.Errorf("instance count = %d, want 25", cfg.InstanceCount())
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("width = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for zero width")
	}
}
