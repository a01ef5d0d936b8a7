// Package config provides runtime configuration for hdrprobe.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Environment variables read by WithEnvConfig.
const (
	EnvFFmpeg   = "HDRPROBE_FFMPEG"
	EnvFFprobe  = "HDRPROBE_FFPROBE"
	EnvWorkers  = "HDRPROBE_WORKERS"
	EnvWidth    = "HDRPROBE_WIDTH"
	EnvHeight   = "HDRPROBE_HEIGHT"
	EnvLogLevel = "HDRPROBE_LOG_LEVEL"
)

// Config holds process-wide settings. Command-line flags override it.
type Config struct {
	// FFmpegPath and FFprobePath name the decoder executables.
	FFmpegPath  string
	FFprobePath string

	// Workers is the number of concurrent frame analysers.
	Workers int

	// Width and Height are the padded decode geometry.
	Width  int
	Height int

	// LogLevel overrides the level selected by --verbose/--quiet when set.
	LogLevel hclog.Level
}

// Default returns the built-in configuration: 4K frames, ffmpeg from PATH
// and one worker per CPU.
func Default() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Workers:     runtime.NumCPU(),
		Width:       3840,
		Height:      2160,
		LogLevel:    hclog.NoLevel,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return fmt.Errorf("decoder paths cannot be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame geometry must be positive, got %dx%d", c.Width, c.Height)
	}
	return nil
}

// Builder provides a fluent interface for constructing a Config.
type Builder struct {
	config Config
	useEnv bool
	getenv func(string) string
	errs   []string
}

// NewBuilder creates a builder starting from Default().
func NewBuilder() *Builder {
	return &Builder{config: Default(), getenv: os.Getenv}
}

// WithConfig replaces the base configuration.
func (b *Builder) WithConfig(config Config) *Builder {
	b.config = config
	return b
}

// WithEnvConfig overlays HDRPROBE_* environment variables.
func (b *Builder) WithEnvConfig() *Builder {
	b.useEnv = true
	return b
}

// WithLookupEnv replaces os.Getenv (useful for testing).
func (b *Builder) WithLookupEnv(getenv func(string) string) *Builder {
	b.getenv = getenv
	return b
}

// Build constructs the Config. A malformed environment value leaves its
// setting unchanged; the returned Config is always usable and the error
// lists every value that was skipped.
func (b *Builder) Build() (Config, error) {
	config := b.config
	b.errs = nil

	if b.useEnv {
		if v := b.getenv(EnvFFmpeg); v != "" {
			config.FFmpegPath = v
		}
		if v := b.getenv(EnvFFprobe); v != "" {
			config.FFprobePath = v
		}
		b.intEnv(EnvWorkers, &config.Workers)
		b.intEnv(EnvWidth, &config.Width)
		b.intEnv(EnvHeight, &config.Height)
		if v := b.getenv(EnvLogLevel); v != "" {
			if level := hclog.LevelFromString(v); level != hclog.NoLevel {
				config.LogLevel = level
			} else {
				b.errs = append(b.errs, fmt.Sprintf("%s: unknown level %q", EnvLogLevel, v))
			}
		}
	}

	if len(b.errs) > 0 {
		return config, fmt.Errorf("invalid environment configuration: %s", strings.Join(b.errs, "; "))
	}
	return config, nil
}

func (b *Builder) intEnv(name string, dst *int) {
	v := b.getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		b.errs = append(b.errs, fmt.Sprintf("%s: expected a positive integer, got %q", name, v))
		return
	}
	*dst = n
}
