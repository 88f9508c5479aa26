package gsplat

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid config")

// LoaderConfig holds the normalisation constants applied when splat files are parsed.
type LoaderConfig struct {
	// NormalizeExtent is the size of the largest bounding-box side after recentring.
	NormalizeExtent float32 `toml:"normalize_extent"`
	// ScaleMultiplier is applied to exp(scale) for PLY splats.
	ScaleMultiplier float32 `toml:"scale_multiplier"`
	OpacityBoost    float32 `toml:"opacity_boost"`
	// Splats at or below MinOpacity are dropped at load time.
	MinOpacity float32 `toml:"min_opacity"`
}

type Config struct {
	// TileSize is the edge of a square screen tile in pixels.
	TileSize int `toml:"tile_size"`
	// RotationThreshold: the sort re-runs once the cosine between the
	// current and cached forward axis drops below 1 - RotationThreshold.
	// A cosine of exactly 1 - RotationThreshold keeps the cached order.
	RotationThreshold float32      `toml:"rotation_threshold"`
	LogPrefix         string       `toml:"log_prefix"`
	Debug             bool         `toml:"debug"`
	Loader            LoaderConfig `toml:"loader"`
}

func DefaultConfig() Config {
	return Config{
		TileSize:          16,
		RotationThreshold: 0.15,
		LogPrefix:         "gsplat",
		Loader: LoaderConfig{
			NormalizeExtent: 10,
			ScaleMultiplier: 6,
			OpacityBoost:    1.2,
			MinOpacity:      0.001,
		},
	}
}

func (c Config) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("%w: tile_size must be positive, got %d", ErrInvalidConfig, c.TileSize)
	}
	if !(c.RotationThreshold > 0 && c.RotationThreshold < 2) {
		return fmt.Errorf("%w: rotation_threshold must be in (0, 2), got %g", ErrInvalidConfig, c.RotationThreshold)
	}
	if !(c.Loader.NormalizeExtent > 0) {
		return fmt.Errorf("%w: loader.normalize_extent must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a TOML file on top of DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
