// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// DRIVESIM_VEHICLE_SPEED or DRIVESIM_TRACK_DEFAULT.
const EnvPrefix = "DRIVESIM"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config contains configuration for a driving session
type Config struct {
	Vehicle VehicleConfig `json:"vehicle" yaml:"vehicle" mapstructure:"vehicle"`
	Camera  CameraConfig  `json:"camera" yaml:"camera" mapstructure:"camera"`
	Physics PhysicsConfig `json:"physics" yaml:"physics" mapstructure:"physics"`
	Track   TrackConfig   `json:"track" yaml:"track" mapstructure:"track"`
	Window  WindowConfig  `json:"window" yaml:"window" mapstructure:"window"`
}

// VehicleConfig contains the car body and handling parameters. Speed is
// applied as a raw force, so Mass defaults to 1 rather than a real car's
// kilogram figure; raise both together to keep the same handling.
type VehicleConfig struct {
	Mass           float64 `json:"mass" yaml:"mass" mapstructure:"mass"`
	Width          float64 `json:"width" yaml:"width" mapstructure:"width"`
	Height         float64 `json:"height" yaml:"height" mapstructure:"height"`
	Length         float64 `json:"length" yaml:"length" mapstructure:"length"`
	Friction       float64 `json:"friction" yaml:"friction" mapstructure:"friction"`
	Restitution    float64 `json:"restitution" yaml:"restitution" mapstructure:"restitution"`
	Speed          float64 `json:"speed" yaml:"speed" mapstructure:"speed"`
	ReverseRatio   float64 `json:"reverse_ratio" yaml:"reverse_ratio" mapstructure:"reverse_ratio"`
	TurnSpeed      float64 `json:"turn_speed" yaml:"turn_speed" mapstructure:"turn_speed"`
	DragFactor     float64 `json:"drag_factor" yaml:"drag_factor" mapstructure:"drag_factor"`
	AngularDamping float64 `json:"angular_damping" yaml:"angular_damping" mapstructure:"angular_damping"`
	SpawnHeight    float64 `json:"spawn_height" yaml:"spawn_height" mapstructure:"spawn_height"`
}

// CameraConfig contains the chase camera parameters
type CameraConfig struct {
	Distance   float64 `json:"distance" yaml:"distance" mapstructure:"distance"`
	Height     float64 `json:"height" yaml:"height" mapstructure:"height"`
	LookHeight float64 `json:"look_height" yaml:"look_height" mapstructure:"look_height"`
	Blend      float64 `json:"blend" yaml:"blend" mapstructure:"blend"`
}

// PhysicsConfig contains world and timestep configuration
type PhysicsConfig struct {
	Gravity            float64 `json:"gravity" yaml:"gravity" mapstructure:"gravity"`
	TimeStep           float64 `json:"time_step" yaml:"time_step" mapstructure:"time_step"`
	MaxFrameDelta      float64 `json:"max_frame_delta" yaml:"max_frame_delta" mapstructure:"max_frame_delta"`
	Iterations         int     `json:"iterations" yaml:"iterations" mapstructure:"iterations"`
	TerrainSize        float64 `json:"terrain_size" yaml:"terrain_size" mapstructure:"terrain_size"`
	TerrainFriction    float64 `json:"terrain_friction" yaml:"terrain_friction" mapstructure:"terrain_friction"`
	TerrainRestitution float64 `json:"terrain_restitution" yaml:"terrain_restitution" mapstructure:"terrain_restitution"`
}

// TrackConfig selects the initial circuit
type TrackConfig struct {
	Default string `json:"default" yaml:"default" mapstructure:"default"`
}

// WindowConfig contains settings for the windowed renderer
type WindowConfig struct {
	Title  string  `json:"title" yaml:"title" mapstructure:"title"`
	Width  int     `json:"width" yaml:"width" mapstructure:"width"`
	Height int     `json:"height" yaml:"height" mapstructure:"height"`
	Scale  float64 `json:"scale" yaml:"scale" mapstructure:"scale"`
}

// DefaultConfig returns the default driving configuration
func DefaultConfig() *Config {
	return &Config{
		Vehicle: VehicleConfig{
			Mass:           1,
			Width:          2,
			Height:         1,
			Length:         4,
			Friction:       0.3,
			Restitution:    0.1,
			Speed:          15,
			ReverseRatio:   0.7,
			TurnSpeed:      2,
			DragFactor:     0.95,
			AngularDamping: 0.9,
			SpawnHeight:    2,
		},
		Camera: CameraConfig{
			Distance:   10,
			Height:     5,
			LookHeight: 1,
			Blend:      0.1,
		},
		Physics: PhysicsConfig{
			Gravity:            -30,
			TimeStep:           1.0 / 60.0,
			MaxFrameDelta:      0.1,
			Iterations:         10,
			TerrainSize:        200,
			TerrainFriction:    0.8,
			TerrainRestitution: 0.1,
		},
		Track: TrackConfig{
			Default: "monaco",
		},
		Window: WindowConfig{
			Title:  "drivesim",
			Width:  1024,
			Height: 768,
			Scale:  8,
		},
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("vehicle.mass", cfg.Vehicle.Mass)
	v.SetDefault("vehicle.width", cfg.Vehicle.Width)
	v.SetDefault("vehicle.height", cfg.Vehicle.Height)
	v.SetDefault("vehicle.length", cfg.Vehicle.Length)
	v.SetDefault("vehicle.friction", cfg.Vehicle.Friction)
	v.SetDefault("vehicle.restitution", cfg.Vehicle.Restitution)
	v.SetDefault("vehicle.speed", cfg.Vehicle.Speed)
	v.SetDefault("vehicle.reverse_ratio", cfg.Vehicle.ReverseRatio)
	v.SetDefault("vehicle.turn_speed", cfg.Vehicle.TurnSpeed)
	v.SetDefault("vehicle.drag_factor", cfg.Vehicle.DragFactor)
	v.SetDefault("vehicle.angular_damping", cfg.Vehicle.AngularDamping)
	v.SetDefault("vehicle.spawn_height", cfg.Vehicle.SpawnHeight)

	v.SetDefault("camera.distance", cfg.Camera.Distance)
	v.SetDefault("camera.height", cfg.Camera.Height)
	v.SetDefault("camera.look_height", cfg.Camera.LookHeight)
	v.SetDefault("camera.blend", cfg.Camera.Blend)

	v.SetDefault("physics.gravity", cfg.Physics.Gravity)
	v.SetDefault("physics.time_step", cfg.Physics.TimeStep)
	v.SetDefault("physics.max_frame_delta", cfg.Physics.MaxFrameDelta)
	v.SetDefault("physics.iterations", cfg.Physics.Iterations)
	v.SetDefault("physics.terrain_size", cfg.Physics.TerrainSize)
	v.SetDefault("physics.terrain_friction", cfg.Physics.TerrainFriction)
	v.SetDefault("physics.terrain_restitution", cfg.Physics.TerrainRestitution)

	v.SetDefault("track.default", cfg.Track.Default)

	v.SetDefault("window.title", cfg.Window.Title)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)
	v.SetDefault("window.scale", cfg.Window.Scale)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads a configuration from a JSON or YAML file, chosen by
// extension, then applies DRIVESIM_* environment overrides. An empty path
// loads the defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves a configuration to path. Files ending in .yaml or .yml
// are written as YAML, anything else as JSON.
func SaveConfig(config *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first out-of-range setting, wrapped in
// ErrInvalidConfig.
func (c *Config) Validate() error {
	checks := []struct {
		ok   bool
		what string
	}{
		{positive(c.Vehicle.Mass), "vehicle.mass must be positive"},
		{positive(c.Vehicle.Width) && positive(c.Vehicle.Height) && positive(c.Vehicle.Length), "vehicle dimensions must be positive"},
		{nonNegative(c.Vehicle.Speed), "vehicle.speed must not be negative"},
		{nonNegative(c.Vehicle.ReverseRatio), "vehicle.reverse_ratio must not be negative"},
		{nonNegative(c.Vehicle.TurnSpeed), "vehicle.turn_speed must not be negative"},
		{unit(c.Vehicle.DragFactor), "vehicle.drag_factor must be within [0, 1]"},
		{unit(c.Vehicle.AngularDamping), "vehicle.angular_damping must be within [0, 1]"},
		{unit(c.Camera.Blend), "camera.blend must be within [0, 1]"},
		{finite(c.Camera.Distance) && finite(c.Camera.Height) && finite(c.Camera.LookHeight), "camera offsets must be finite"},
		{finite(c.Physics.Gravity), "physics.gravity must be finite"},
		{positive(c.Physics.TimeStep), "physics.time_step must be positive"},
		{c.Physics.MaxFrameDelta >= c.Physics.TimeStep, "physics.max_frame_delta must be at least physics.time_step"},
		{c.Physics.Iterations > 0, "physics.iterations must be positive"},
		{positive(c.Physics.TerrainSize), "physics.terrain_size must be positive"},
		{c.Window.Width > 0 && c.Window.Height > 0, "window size must be positive"},
		{positive(c.Window.Scale), "window.scale must be positive"},
	}

	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, check.what)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return finite(v) && v > 0
}

func nonNegative(v float64) bool {
	return finite(v) && v >= 0
}

func unit(v float64) bool {
	return finite(v) && v >= 0 && v <= 1
}
