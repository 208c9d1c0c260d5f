// Package config holds the service configuration: directories, listen
// address, retry and transcode knobs. Values come from defaults, an optional
// YAML file, and flag/env overrides applied by cmd/hevcd.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultListenAddr     = ":8000"
	DefaultWorkDir        = "temp"
	DefaultOutputDir      = "downloads"
	DefaultCookiesFile    = "cookies.txt"
	DefaultFrontendOrigin = "*"
	DefaultMaxParallel    = 2
	DefaultMaxAttempts    = 3
	DefaultEncodeTimeout  = 30 * time.Minute
	DefaultRemuxTimeout   = 10 * time.Minute
)

// Limits
const (
	MinParallel = 1
	MaxParallel = 10
)

// Config is the full service configuration.
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	WorkDir        string        `yaml:"work_dir"`
	OutputDir      string        `yaml:"output_dir"`
	CookiesFile    string        `yaml:"cookies_file"`
	FrontendOrigin string        `yaml:"frontend_origin"`
	MaxParallel    int           `yaml:"max_parallel"`
	MaxAttempts    int           `yaml:"max_attempts"`
	EncodeTimeout  time.Duration `yaml:"encode_timeout"`
	RemuxTimeout   time.Duration `yaml:"remux_timeout"`
	Debug          bool          `yaml:"debug"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		ListenAddr:     DefaultListenAddr,
		WorkDir:        DefaultWorkDir,
		OutputDir:      DefaultOutputDir,
		CookiesFile:    DefaultCookiesFile,
		FrontendOrigin: DefaultFrontendOrigin,
		MaxParallel:    DefaultMaxParallel,
		MaxAttempts:    DefaultMaxAttempts,
		EncodeTimeout:  DefaultEncodeTimeout,
		RemuxTimeout:   DefaultRemuxTimeout,
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error, the defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate clamps and checks the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.WorkDir == "" || c.OutputDir == "" {
		return fmt.Errorf("working and output directories are required")
	}
	if c.WorkDir == c.OutputDir {
		return fmt.Errorf("working and output directories must differ")
	}
	if c.MaxParallel < MinParallel {
		c.MaxParallel = MinParallel
	}
	if c.MaxParallel > MaxParallel {
		c.MaxParallel = MaxParallel
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.EncodeTimeout <= 0 {
		c.EncodeTimeout = DefaultEncodeTimeout
	}
	if c.RemuxTimeout <= 0 {
		c.RemuxTimeout = DefaultRemuxTimeout
	}
	return nil
}
