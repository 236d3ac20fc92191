// Package config loads pagewait settings from YAML.
//
// A configuration file looks like:
//
//	timeouts:
//	  tiny: 2        # seconds, for waits that may fail quietly
//	  full: 30       # seconds, for waits that must succeed
//	  interval: 100  # milliseconds between polls
//	browser:
//	  driver: cdp    # cdp or rod
//	  remote: ws://127.0.0.1:9222/devtools/browser/...
//	  headless: true
//	tree:
//	  kind: treeitem
//	  root: "#nav"
//
// Every key is optional; unknown keys are rejected.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pagewait/pagewait"
)

// Environment variables overriding the file.
const (
	EnvTinyTimeout = "PAGEWAIT_TINY_TIMEOUT"
	EnvFullTimeout = "PAGEWAIT_FULL_TIMEOUT"
	EnvRemoteURL   = "PAGEWAIT_REMOTE_URL"
)

// Config is the top-level configuration.
type Config struct {
	Timeouts Timeouts `yaml:"timeouts"`
	Browser  Browser  `yaml:"browser"`
	Tree     Tree     `yaml:"tree"`
}

// Timeouts holds the wait timeouts.
type Timeouts struct {
	Tiny     int `yaml:"tiny"`
	Full     int `yaml:"full"`
	Interval int `yaml:"interval"`
}

// Browser controls which browser the command line tool drives.
type Browser struct {
	Driver   string `yaml:"driver"`
	Remote   string `yaml:"remote"`
	Exec     string `yaml:"exec"`
	Headless bool   `yaml:"headless"`
}

// Tree locates the tree examined by the command line tool.
type Tree struct {
	Kind string `yaml:"kind"`
	Root string `yaml:"root"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Timeouts: Timeouts{
			Tiny:     int(pagewait.DefaultPolicy.Tiny / time.Second),
			Full:     int(pagewait.DefaultPolicy.Full / time.Second),
			Interval: int(pagewait.DefaultInterval / time.Millisecond),
		},
		Browser: Browser{
			Driver:   "cdp",
			Headless: true,
		},
		Tree: Tree{
			Kind: "treeitem",
		},
	}
}

// Load reads a configuration from r over the defaults, then applies the
// environment overrides and validates the result.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the configuration file at path. An empty path loads the
// defaults and the environment overrides.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load(strings.NewReader(""))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	cfg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	for _, v := range []struct {
		name string
		dst  *int
	}{
		{EnvTinyTimeout, &c.Timeouts.Tiny},
		{EnvFullTimeout, &c.Timeouts.Full},
	} {
		s := getenv(v.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("config: %s: %w", v.name, err)
		}
		*v.dst = n
	}
	if s := getenv(EnvRemoteURL); s != "" {
		c.Browser.Remote = s
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	t := c.Timeouts
	switch {
	case t.Tiny < 0:
		return fmt.Errorf("config: timeouts.tiny must not be negative, got %d", t.Tiny)
	case t.Full <= 0:
		return fmt.Errorf("config: timeouts.full must be positive, got %d", t.Full)
	case t.Tiny > t.Full:
		return fmt.Errorf("config: timeouts.tiny (%d) exceeds timeouts.full (%d)", t.Tiny, t.Full)
	case t.Interval <= 0:
		return fmt.Errorf("config: timeouts.interval must be positive, got %d", t.Interval)
	}
	switch c.Browser.Driver {
	case "cdp", "rod":
	default:
		return fmt.Errorf("config: browser.driver must be cdp or rod, got %q", c.Browser.Driver)
	}
	return nil
}

// Policy returns the timeout policy.
func (c *Config) Policy() pagewait.TimeoutPolicy {
	return pagewait.Seconds(c.Timeouts.Tiny, c.Timeouts.Full)
}

// Interval returns the delay between polls.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Timeouts.Interval) * time.Millisecond
}

// Options returns the Waiter options the configuration implies.
func (c *Config) Options() []pagewait.Option {
	return []pagewait.Option{
		pagewait.WithPolicy(c.Policy()),
		pagewait.WithInterval(c.Interval()),
	}
}
