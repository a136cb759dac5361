package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/robalobadob/rgb-alchemy/assets"
)

// Tuning controls the random puzzles handed out by /init.
type Tuning struct {
	Board          BoardTuning `yaml:"board"`
	Moves          MovesTuning `yaml:"moves"`
	MinTargetDelta float64     `yaml:"min_target_delta" validate:"gte=0,lt=1"`
}

// BoardTuning bounds the board dimensions (inclusive).
type BoardTuning struct {
	MinWidth  int `yaml:"min_width" validate:"min=1,max=64"`
	MaxWidth  int `yaml:"max_width" validate:"min=1,max=64,gtefield=MinWidth"`
	MinHeight int `yaml:"min_height" validate:"min=1,max=64"`
	MaxHeight int `yaml:"max_height" validate:"min=1,max=64,gtefield=MinHeight"`
}

// MovesTuning bounds the move budget (inclusive).
type MovesTuning struct {
	Min int `yaml:"min" validate:"min=1,max=1000"`
	Max int `yaml:"max" validate:"min=1,max=1000,gtefield=Min"`
}

var validate = validator.New()

// Validate checks ranges are sane.
func (t Tuning) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("config: invalid tuning: %w", err)
	}
	return nil
}

// DefaultTuning returns the hardcoded defaults, used if the embedded YAML is unreadable.
func DefaultTuning() Tuning {
	return Tuning{
		Board:          BoardTuning{MinWidth: 4, MaxWidth: 12, MinHeight: 4, MaxHeight: 10},
		Moves:          MovesTuning{Min: 8, Max: 16},
		MinTargetDelta: 0.15,
	}
}

// LoadTuning loads generator tuning.
// Search order: customPath -> ./configs/tuning.yaml -> embedded default.
func LoadTuning(customPath string) (Tuning, error) {
	var cfg Tuning

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: failed to parse %s: %w", customPath, err)
		}
		return cfg, cfg.Validate()
	}

	if data, err := os.ReadFile("configs/tuning.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err == nil {
			return cfg, cfg.Validate()
		}
	}

	data, err := assets.TuningYAML()
	if err != nil {
		return DefaultTuning(), nil
	}
	cfg = Tuning{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultTuning(), nil
	}
	return cfg, cfg.Validate()
}
