// Package config reads gomarie settings from the environment. Command-line
// flags override whatever is loaded here.
package config

import (
	"runtime"

	"github.com/xyproto/env/v2"

	"gomarie/pkg/compiler"
)

const (
	DefaultMaxSteps      = 1_000_000
	DefaultStepsPerFrame = 200
	historyFile          = ".gomarie_history"
)

type Config struct {
	Strict        bool   // GOMARIE_STRICT
	Workers       int    // GOMARIE_WORKERS, 0 or 1 lowers sequentially
	Color         string // GOMARIE_COLOR: auto, always or never
	History       string // GOMARIE_HISTORY
	MaxSteps      uint64 // GOMARIE_MAX_STEPS
	StepsPerFrame int    // GOMARIE_STEPS_PER_FRAME
	Verbose       bool   // GOMARIE_VERBOSE
}

// Load reads the configuration from the environment, filling in defaults.
func Load() Config {
	c := Config{
		Strict:        env.Bool("GOMARIE_STRICT"),
		Workers:       env.Int("GOMARIE_WORKERS", runtime.GOMAXPROCS(0)),
		Color:         env.Str("GOMARIE_COLOR", "auto"),
		History:       env.Str("GOMARIE_HISTORY", env.ExpandUser("~/"+historyFile)),
		StepsPerFrame: env.Int("GOMARIE_STEPS_PER_FRAME", DefaultStepsPerFrame),
		Verbose:       env.Bool("GOMARIE_VERBOSE"),
	}

	c.MaxSteps = DefaultMaxSteps
	if n := env.Int("GOMARIE_MAX_STEPS", DefaultMaxSteps); n > 0 {
		c.MaxSteps = uint64(n)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.StepsPerFrame < 1 {
		c.StepsPerFrame = DefaultStepsPerFrame
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		c.Color = "auto"
	}
	return c
}

// CompileOptions maps the configuration onto compiler options.
func (c Config) CompileOptions() compiler.Options {
	return compiler.Options{
		StrictArity: c.Strict,
		Workers:     c.Workers,
	}
}
