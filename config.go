package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeFirst  = "first"
	ModeAll    = "all"
	ModeSingle = "single"

	DefaultProxyFile = "proxies.csv"
)

// envKeys maps environment variables to option names, applied in this order.
var envKeys = []struct {
	key  string
	name string
}{
	{"PROXY_FILE", "file"},
	{"PROXY_URL", "url"},
	{"PROXY_ENDPOINT", "endpoint"},
	{"PROXY_TIMEOUT", "timeout"},
	{"PROXY_POLICY", "mode"},
}

// Config holds every knob of a run. An unset Timeout means the mode's
// default; a timeout set to zero is rejected by Validate.
type Config struct {
	ProxyFile    string
	ProxyListURL string
	Proxy        string
	Endpoint     string
	Timeout      time.Duration
	Mode         string
	HTTPOnly     bool
	OutputFile   string
	Verbosity    int

	timeoutSet bool
	modeSet    bool
}

func DefaultConfig() Config {
	return Config{
		ProxyFile: DefaultProxyFile,
		Endpoint:  DefaultEndpoint,
		Mode:      ModeFirst,
	}
}

// LoadConfig starts from the defaults and applies the environment. Variables
// from the given dotenv files are loaded first; missing files are ignored.
func LoadConfig(envFiles ...string) (Config, error) {
	cfg := DefaultConfig()

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	for _, env := range envKeys {
		value := getenv(env.key)
		if value == "" {
			continue
		}
		if err := c.Set(env.name, value); err != nil {
			return fmt.Errorf("%s: %w", env.key, err)
		}
	}
	return nil
}

// Set assigns one option by its long flag name.
func (c *Config) Set(name, value string) error {
	value = strings.TrimSpace(value)

	switch name {
	case "file":
		c.ProxyFile = value
	case "url":
		c.ProxyListURL = value
	case "proxy":
		c.Proxy = value
	case "endpoint":
		c.Endpoint = value
	case "output":
		c.OutputFile = value
	case "mode":
		c.Mode = strings.ToLower(value)
		c.modeSet = true
	case "timeout":
		timeout, err := parseTimeout(value)
		if err != nil {
			return err
		}
		c.Timeout = timeout
		c.timeoutSet = true
	case "verbose":
		level, err := strconv.Atoi(value)
		if err != nil || level < 0 || level > 4 {
			return fmt.Errorf("verbosity must be between 0 and 4, got %q", value)
		}
		c.Verbosity = level
	default:
		return fmt.Errorf("unknown option %q", name)
	}

	return nil
}

// parseTimeout accepts a duration ("2.5s", "500ms") or a plain number of seconds.
func parseTimeout(value string) (time.Duration, error) {
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}

	timeout, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", value)
	}
	return timeout, nil
}

// UseSingleForProxy switches to single mode when a proxy address was given
// and neither the environment nor a flag chose a mode.
func (c *Config) UseSingleForProxy() {
	if c.Proxy != "" && !c.modeSet {
		c.Mode = ModeSingle
	}
}

func (c Config) EffectiveTimeout() time.Duration {
	if c.timeoutSet || c.Timeout != 0 {
		return c.Timeout
	}
	if c.Mode == ModeSingle {
		return 10 * time.Second
	}
	return 3 * time.Second
}

func (c Config) Policy() Policy {
	if c.Mode == ModeAll {
		return PolicyExhaustive
	}
	return PolicyFirstSuccess
}

// Schemes lists the request schemes routed through the candidate. Single
// mode only maps http, like a one-off manual check.
func (c Config) Schemes() []string {
	if c.HTTPOnly || c.Mode == ModeSingle {
		return []string{"http"}
	}
	return []string{"http", "https"}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeFirst, ModeAll:
		if c.ProxyFile == "" && c.ProxyListURL == "" {
			return errors.New("no proxy source: set a file or a list URL")
		}
	case ModeSingle:
		if c.Proxy == "" {
			return errors.New("single mode needs a proxy address")
		}
	default:
		return fmt.Errorf("unknown mode %q (want %s, %s or %s)", c.Mode, ModeFirst, ModeAll, ModeSingle)
	}

	if c.EffectiveTimeout() <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	if _, err := parseEndpoint(c.Endpoint); err != nil {
		return err
	}

	if c.ProxyListURL != "" {
		if _, err := parseEndpoint(c.ProxyListURL); err != nil {
			return fmt.Errorf("proxy list: %w", err)
		}
	}

	return nil
}
