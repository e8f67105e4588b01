// Package config loads and validates the .surgeon.yaml configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/surgeon/internal/cost"
	"github.com/gnoswap-labs/surgeon/internal/verify"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = ".surgeon.yaml"

// Config is the on-disk configuration.
type Config struct {
	Name string `yaml:"name" validate:"required"`

	// Budget bounds the wall time of one request. Zero disables saturation.
	Budget        time.Duration `yaml:"budget" validate:"gte=0"`
	Candidates    int           `yaml:"candidates" validate:"gte=1,lte=64"`
	MaxIterations int           `yaml:"max_iterations" validate:"gte=1"`
	MaxNodes      int           `yaml:"max_nodes" validate:"gte=16"`

	Epsilon float64 `yaml:"epsilon" validate:"gte=0,lte=1"`
	Seed    uint64  `yaml:"seed"`
	Samples int     `yaml:"samples" validate:"gte=1"`
	Fuel    int     `yaml:"fuel" validate:"gte=1"`

	FilterPassRate  float64      `yaml:"filter_pass_rate" validate:"gt=0,lte=1"`
	DefaultListSize uint64       `yaml:"default_list_size" validate:"gte=1"`
	Weights         cost.Weights `yaml:"weights"`
	Effectful       []string     `yaml:"effectful,omitempty" validate:"dive,required"`

	RulesFile        string   `yaml:"rules_file,omitempty"`
	Cache            Cache    `yaml:"cache"`
	SelfPlay         SelfPlay `yaml:"self_play"`
	BatchConcurrency int      `yaml:"batch_concurrency" validate:"gte=1"`
}

// Cache configures the proof cache. An empty Dir without InMemory disables it.
type Cache struct {
	Dir      string        `yaml:"dir,omitempty"`
	InMemory bool          `yaml:"in_memory,omitempty"`
	MaxAge   time.Duration `yaml:"max_age,omitempty" validate:"gte=0"`
}

// Enabled reports whether a proof cache should be opened.
func (c Cache) Enabled() bool {
	return c.InMemory || c.Dir != ""
}

// SelfPlay configures repeated optimization.
type SelfPlay struct {
	Rounds    int     `yaml:"rounds" validate:"gte=1"`
	Threshold float64 `yaml:"threshold" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	costDefaults := cost.DefaultConfig()
	verifyDefaults := verify.DefaultConfig()
	return Config{
		Name:             "surgeon",
		Budget:           100 * time.Millisecond,
		Candidates:       3,
		MaxIterations:    1000,
		MaxNodes:         50_000,
		Epsilon:          0.1,
		Seed:             verifyDefaults.Seed,
		Samples:          verifyDefaults.Samples,
		Fuel:             verifyDefaults.Fuel,
		FilterPassRate:   costDefaults.FilterPassRate,
		DefaultListSize:  costDefaults.DefaultListSize,
		Weights:          costDefaults.Weights,
		SelfPlay:         SelfPlay{Rounds: 5, Threshold: 0.01},
		BatchConcurrency: 4,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid configuration: %s: failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads the file at path over the defaults. A missing file at the
// default path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a configuration from r over the defaults.
func Decode(r io.Reader) (Config, error) {
	config := Default()
	if err := yaml.NewDecoder(r).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Write stores config at path, creating or truncating the file.
func Write(path string, config Config) error {
	if path == "" {
		path = DefaultPath
	}
	if err := config.Validate(); err != nil {
		return err
	}

	d, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, d, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// CostConfig derives the cost model configuration.
func (c Config) CostConfig() cost.Config {
	return cost.Config{
		Weights:         c.Weights,
		FilterPassRate:  c.FilterPassRate,
		DefaultListSize: c.DefaultListSize,
		Effectful:       c.Effectful,
	}
}

// VerifyConfig derives the verifier configuration.
func (c Config) VerifyConfig() verify.Config {
	vc := verify.DefaultConfig()
	vc.Samples = c.Samples
	vc.Seed = c.Seed
	vc.Fuel = c.Fuel
	return vc
}
