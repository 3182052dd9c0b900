// Package config loads the seamkit command line settings from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	Resize struct {
		// Width and Height are the target dimensions. Zero keeps the source dimension.
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
		// GrowthLimit is the largest fraction of a source dimension which can be inserted.
		GrowthLimit float64 `yaml:"growthLimit"`
		// Scale downsizes the image proportionally before carving.
		Scale bool `yaml:"scale"`
	} `yaml:"resize"`

	Energy struct {
		// Mode is either "gradient" or "sobel".
		Mode           string `yaml:"mode"`
		SobelThreshold int    `yaml:"sobelThreshold"`
		BlurRadius     int    `yaml:"blurRadius"`
	} `yaml:"energy"`

	Masks struct {
		Protect string `yaml:"protect"`
		Remove  string `yaml:"remove"`
	} `yaml:"masks"`

	Face struct {
		Enabled    bool    `yaml:"enabled"`
		Classifier string  `yaml:"classifier"`
		Angle      float64 `yaml:"angle"`
		MinSize    int     `yaml:"minSize"`
	} `yaml:"face"`

	Output struct {
		// Format overrides the format derived from the destination file name.
		Format   string `yaml:"format"`
		Quality  int    `yaml:"quality"`
		Lossless bool   `yaml:"lossless"`
		Compress bool   `yaml:"compress"`
	} `yaml:"output"`

	Debug struct {
		Enabled   bool   `yaml:"enabled"`
		SeamColor string `yaml:"seamColor"`
	} `yaml:"debug"`

	Worker struct {
		// Concurrency limits the number of images carved at the same time.
		Concurrency int `yaml:"concurrency"`
	} `yaml:"worker"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Resize.GrowthLimit = 1.0

	cfg.Energy.Mode = "gradient"
	cfg.Energy.SobelThreshold = 10
	cfg.Energy.BlurRadius = 0

	cfg.Face.Angle = 0.0
	cfg.Face.MinSize = 100

	cfg.Output.Quality = 100

	cfg.Debug.SeamColor = "#ff0000"

	cfg.Worker.Concurrency = runtime.NumCPU()

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if configPath == "" {
		return cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks the values which cannot be fixed up silently.
func (c *Config) Validate() error {
	if c.Resize.Width < 0 || c.Resize.Height < 0 {
		return fmt.Errorf("negative target size %dx%d", c.Resize.Width, c.Resize.Height)
	}
	if c.Resize.GrowthLimit < 0 {
		return fmt.Errorf("negative growth limit %v", c.Resize.GrowthLimit)
	}
	switch c.Energy.Mode {
	case "", "gradient", "sobel":
	default:
		return fmt.Errorf("unknown energy mode %q", c.Energy.Mode)
	}
	if c.Energy.BlurRadius < 0 {
		return fmt.Errorf("negative blur radius %d", c.Energy.BlurRadius)
	}
	if c.Output.Quality < 0 || c.Output.Quality > 100 {
		return fmt.Errorf("output quality %d out of the [0, 100] range", c.Output.Quality)
	}
	if c.Face.Enabled && c.Face.Classifier == "" {
		return fmt.Errorf("face detection requires a cascade classifier")
	}
	return nil
}
