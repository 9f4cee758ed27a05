// Package config handles editor configuration loading and management.
package config

// Config holds all editor settings.
type Config struct {
	Manipulation ManipulationConfig `yaml:"manipulation"`
	Import       ImportConfig       `yaml:"import"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Camera       CameraConfig       `yaml:"camera"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ManipulationConfig holds per-tick transform editing rates.
type ManipulationConfig struct {
	RotationSpeed   float32 `yaml:"rotation_speed"`    // Degrees per pointer unit per second
	ScaleSpeed      float32 `yaml:"scale_speed"`       // Scale change per tick
	MoveSpeed       float32 `yaml:"move_speed"`        // World units per pointer unit per tick
	ScaleFloor      float32 `yaml:"scale_floor"`       // Floor on each scale magnitude; the sign is kept, so flipped axes clamp at -ScaleFloor
	LineAxisScaling bool    `yaml:"line_axis_scaling"` // Uniform scale on navigation points stretches X only
}

// ImportConfig holds model import settings.
type ImportConfig struct {
	// Correction is the corrective transform preset: none, default or webgl.
	Correction      string      `yaml:"correction"`
	Rotation        *[3]float32 `yaml:"rotation,omitempty"` // Euler degrees, overrides the preset rotation
	MirrorX         *bool       `yaml:"mirror_x,omitempty"` // Overrides the preset mirror
	DefaultMaterial string      `yaml:"default_material"`
}

// ArchiveConfig holds scene archive settings.
type ArchiveConfig struct {
	ScratchDir string `yaml:"scratch_dir"` // Parent of extraction directories (empty = OS temp)
}

// CameraConfig holds framing settings handed to the host camera.
type CameraConfig struct {
	FieldOfView float32 `yaml:"field_of_view"` // Degrees
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Manipulation: ManipulationConfig{
			RotationSpeed:   100,
			ScaleSpeed:      0.01,
			MoveSpeed:       0.1,
			ScaleFloor:      0.1,
			LineAxisScaling: false,
		},
		Import: ImportConfig{
			Correction:      "default",
			DefaultMaterial: "default",
		},
		Camera: CameraConfig{
			FieldOfView: 60,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
