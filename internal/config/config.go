// Package config holds the immutable run configuration. A Config is built
// once at startup from defaults, environment and flags (via viper), then
// shared read-only by every component; nothing mutates it afterwards.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Defaults tuned for the public VIES API: moderate parallelism, a rate
// comfortably under the service's cap, and a patient retry budget since
// the service regularly sheds load during business hours.
const (
	DefaultWorkers      = 10
	DefaultRateLimit    = 300 // requests per minute, 0 disables limiting
	DefaultTimeout      = 90 * time.Second
	DefaultMaxRetries   = 50
	DefaultInitialDelay = 200 * time.Millisecond
	DefaultMultiplier   = 1.5
	DefaultMaxDelay     = 30 * time.Second
	DefaultJitter       = 0.3
	DefaultLogFile      = "viesbatch.log"
)

// Config is the snapshot of everything the pipeline consumes.
type Config struct {
	InputFile  string
	OutputFile string
	LogFile    string

	Workers    int
	RateLimit  int
	Timeout    time.Duration
	MaxRetries int

	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration

	UseProxy bool
	Verbose  bool
	Quiet    bool
	DryRun   bool
}

// SetDefaults registers every key's default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("rate-limit", DefaultRateLimit)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("max-retries", DefaultMaxRetries)
	v.SetDefault("initial-delay", DefaultInitialDelay)
	v.SetDefault("backoff-multiplier", DefaultMultiplier)
	v.SetDefault("max-delay", DefaultMaxDelay)
	v.SetDefault("log", DefaultLogFile)
	v.SetDefault("no-proxy", false)
}

// Load reads the configuration out of a viper instance that already has
// defaults, environment and flags bound.
func Load(v *viper.Viper) Config {
	return Config{
		OutputFile:   v.GetString("output"),
		LogFile:      v.GetString("log"),
		Workers:      v.GetInt("workers"),
		RateLimit:    v.GetInt("rate-limit"),
		Timeout:      v.GetDuration("timeout"),
		MaxRetries:   v.GetInt("max-retries"),
		InitialDelay: v.GetDuration("initial-delay"),
		Multiplier:   v.GetFloat64("backoff-multiplier"),
		MaxDelay:     v.GetDuration("max-delay"),
		UseProxy:     !v.GetBool("no-proxy"),
		Verbose:      v.GetBool("verbose"),
		Quiet:        v.GetBool("quiet"),
		DryRun:       v.GetBool("dry-run"),
	}
}

// ResolvedOutput returns the output path, defaulting to "<input>.out".
func (c Config) ResolvedOutput() string {
	if c.OutputFile != "" {
		return c.OutputFile
	}
	return c.InputFile + ".out"
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.InputFile == "" {
		return errors.New("config: input file is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("config: rate limit must be >= 0, got %d", c.RateLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.InitialDelay <= 0 {
		return fmt.Errorf("config: initial delay must be positive, got %v", c.InitialDelay)
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("config: backoff multiplier must be >= 1, got %g", c.Multiplier)
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("config: max delay %v is below the initial delay %v", c.MaxDelay, c.InitialDelay)
	}
	return nil
}
