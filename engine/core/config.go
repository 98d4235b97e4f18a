package core

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

// Config is the engine configuration, usually loaded from a TOML file.
// Fields marked live are re-applied by the engine when the file changes.
type Config struct {
	LogLevel  string          `toml:"log_level"`
	Device    DeviceConfig    `toml:"device"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Lighting  LightingConfig  `toml:"lighting"`
	Shadow    ShadowConfig    `toml:"shadow"`
	Occlusion OcclusionConfig `toml:"occlusion"`
	Picker    PickerConfig    `toml:"picker"`
	Debug     DebugConfig     `toml:"debug"`
}

type DeviceConfig struct {
	Backend         string `toml:"backend"`
	Width           uint32 `toml:"width"`
	Height          uint32 `toml:"height"`
	BackBufferCount uint32 `toml:"back_buffer_count"`
	// Simulated GPU time per submitted command list, headless backend only.
	LatencyMS uint32 `toml:"latency_ms"`
}

type PipelineConfig struct {
	// Number of frame slots in flight.
	RingDepth    uint32 `toml:"ring_depth"`
	MaxObjects   uint32 `toml:"max_objects"`
	MaxMaterials uint32 `toml:"max_materials"`
	MaxTextures  uint32 `toml:"max_textures"`
	// Fence waits longer than this are reported. The wait itself never times out.
	StallWarningMS uint32  `toml:"stall_warning_ms"`
	FieldOfView    float32 `toml:"fov_degrees"`
	NearZ          float32 `toml:"near_z"`
	FarZ           float32 `toml:"far_z"`
}

type LightingConfig struct {
	// live
	Ambient [4]float32 `toml:"ambient"`
	// live. Direction 0 is the shadow casting light.
	Directions [3][3]float32 `toml:"directions"`
	// live
	Strengths [3][3]float32 `toml:"strengths"`
}

type ShadowConfig struct {
	MapSize     uint32     `toml:"map_size"`
	SceneCenter [3]float32 `toml:"scene_center"`
	SceneRadius float32    `toml:"scene_radius"`
}

type OcclusionConfig struct {
	// live
	Radius float32 `toml:"radius"`
	// live
	FadeStart float32 `toml:"fade_start"`
	// live
	FadeEnd float32 `toml:"fade_end"`
	// live
	SurfaceEpsilon float32 `toml:"surface_epsilon"`
	BlurSigma      float32 `toml:"blur_sigma"`
	// live
	BlurCount uint32 `toml:"blur_count"`
}

type PickerConfig struct {
	// live. "last" keeps the last hit in iteration order, "nearest" the closest one.
	Mode        string  `toml:"mode"`
	MinDistance float32 `toml:"min_distance"`
}

type DebugConfig struct {
	// live
	DrawDebugLayer bool `toml:"draw_debug_layer"`
}

const (
	PickModeLast    = "last"
	PickModeNearest = "nearest"
)

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "debug",
		Device: DeviceConfig{
			Backend:         "headless",
			Width:           1280,
			Height:          720,
			BackBufferCount: 2,
			LatencyMS:       2,
		},
		Pipeline: PipelineConfig{
			RingDepth:      3,
			MaxObjects:     128,
			MaxMaterials:   16,
			MaxTextures:    32,
			StallWarningMS: 250,
			FieldOfView:    45,
			NearZ:          1,
			FarZ:           1000,
		},
		Lighting: LightingConfig{
			Ambient: [4]float32{0.4, 0.4, 0.6, 1.0},
			Directions: [3][3]float32{
				{0.57735, -0.57735, 0.57735},
				{-0.57735, -0.57735, 0.57735},
				{0.0, -0.707, -0.707},
			},
			Strengths: [3][3]float32{
				{0.9, 0.8, 0.7},
				{0.1, 0.1, 0.1},
				{0.0, 0.0, 0.0},
			},
		},
		Shadow: ShadowConfig{
			MapSize:     2048,
			SceneRadius: float32(math.Sqrt(37*37 + 37*37)),
		},
		Occlusion: OcclusionConfig{
			Radius:         0.5,
			FadeStart:      0.2,
			FadeEnd:        1.0,
			SurfaceEpsilon: 0.05,
			BlurSigma:      2.5,
			BlurCount:      3,
		},
		Picker: PickerConfig{
			Mode:        PickModeLast,
			MinDistance: 0.001,
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults, so a file only needs
// the keys it changes. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteConfig encodes cfg as TOML.
func WriteConfig(w io.Writer, cfg *Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(cfg)
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level %q", c.LogLevel)
	}
	if c.Device.Width == 0 || c.Device.Height == 0 {
		return invalid("device size must be > 0, got %dx%d", c.Device.Width, c.Device.Height)
	}
	if c.Device.BackBufferCount < 2 {
		return invalid("back_buffer_count must be >= 2")
	}
	if c.Pipeline.RingDepth < 1 {
		return invalid("ring_depth must be >= 1")
	}
	if c.Pipeline.MaxObjects == 0 || c.Pipeline.MaxMaterials == 0 || c.Pipeline.MaxTextures == 0 {
		return invalid("object, material and texture capacities must be > 0")
	}
	if c.Pipeline.NearZ <= 0 || c.Pipeline.FarZ <= c.Pipeline.NearZ {
		return invalid("near_z/far_z must satisfy 0 < near < far")
	}
	if c.Pipeline.FieldOfView <= 0 || c.Pipeline.FieldOfView >= 180 {
		return invalid("fov_degrees must be in (0, 180)")
	}
	if c.Shadow.MapSize == 0 || c.Shadow.SceneRadius <= 0 {
		return invalid("shadow map size and scene radius must be > 0")
	}
	if c.Occlusion.FadeEnd <= c.Occlusion.FadeStart {
		return invalid("occlusion fade_end must be greater than fade_start")
	}
	if c.Occlusion.BlurSigma <= 0 {
		return invalid("occlusion blur_sigma must be > 0")
	}
	switch c.Picker.Mode {
	case PickModeLast, PickModeNearest:
	default:
		return invalid("picker mode %q", c.Picker.Mode)
	}
	return nil
}

func (c *Config) StallWarning() time.Duration {
	return time.Duration(c.Pipeline.StallWarningMS) * time.Millisecond
}

func (c *Config) Latency() time.Duration {
	return time.Duration(c.Device.LatencyMS) * time.Millisecond
}
