// Package config loads the countdown configuration file. YAML and TOML are
// both accepted; the format is chosen by extension.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gadenbuie/countdown/internal/countdown"
)

const (
	appName        = "countdown"
	configFileName = "config.yaml"
)

// Config is the whole configuration file.
type Config struct {
	Timers []Timer `yaml:"timers" toml:"timers"`
	Policy Policy  `yaml:"policy" toml:"policy"`
	Sound  Sound   `yaml:"sound" toml:"sound"`
	Bridge Bridge  `yaml:"bridge" toml:"bridge"`
	Store  Store   `yaml:"store" toml:"store"`
}

// Timer declares one timer.
type Timer struct {
	ID          string `yaml:"id" toml:"id"`
	Name        string `yaml:"name" toml:"name"`
	Minutes     Int    `yaml:"minutes" toml:"minutes"`
	Seconds     Int    `yaml:"seconds" toml:"seconds"`
	WarnWhen    Int    `yaml:"warn_when" toml:"warn_when"`
	UpdateEvery Int    `yaml:"update_every" toml:"update_every"`
	BlinkColon  bool   `yaml:"blink_colon" toml:"blink_colon"`
	// PlaySound is false, true or a URL.
	PlaySound        any   `yaml:"play_sound" toml:"play_sound"`
	RoundBump        *bool `yaml:"round_bump" toml:"round_bump"`
	StartImmediately bool  `yaml:"start_immediately" toml:"start_immediately"`
}

// Policy selects rendering behavior shared by all timers.
type Policy struct {
	// Rounding is "ceil" or "round".
	Rounding string `yaml:"rounding" toml:"rounding"`
	// FinishEpsilon is a duration such as "250ms".
	FinishEpsilon string `yaml:"finish_epsilon" toml:"finish_epsilon"`
	// BlinkCutoff is "seconds" or "legacy-millis".
	BlinkCutoff string `yaml:"blink_cutoff" toml:"blink_cutoff"`
}

// Sound configures the finish sound.
type Sound struct {
	// Base is where the default asset lives.
	Base string `yaml:"base" toml:"base"`
	// Backend is "none", "bell", "command" or "speaker".
	Backend string   `yaml:"backend" toml:"backend"`
	Command []string `yaml:"command" toml:"command"`
	Bell    bool     `yaml:"bell" toml:"bell"`
}

// Bridge configures the host bridge server.
type Bridge struct {
	// Listen is the address to serve on; empty disables the bridge.
	Listen        string  `yaml:"listen" toml:"listen"`
	Network       string  `yaml:"network" toml:"network"`
	Encoding      string  `yaml:"encoding" toml:"encoding"`
	RetryInterval string  `yaml:"retry_interval" toml:"retry_interval"`
	MaxPending    int     `yaml:"max_pending" toml:"max_pending"`
	Rate          float64 `yaml:"rate" toml:"rate"`
	Burst         int     `yaml:"burst" toml:"burst"`
}

// Store configures the preset and event database.
type Store struct {
	Path string `yaml:"path" toml:"path"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Policy: Policy{
			Rounding:      countdown.RoundCeil.String(),
			FinishEpsilon: countdown.DefaultPolicy().FinishEpsilon.String(),
			BlinkCutoff:   countdown.BlinkCutoffSeconds.String(),
		},
		Sound: Sound{
			Backend: "bell",
		},
		Bridge: Bridge{
			Network:       "tcp",
			Encoding:      "json",
			RetryInterval: "100ms",
			MaxPending:    1024,
			Rate:          20,
			Burst:         40,
		},
	}
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("find config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Load reads path, falling back to defaults when it does not exist. Fields
// missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := Decode(cfg, path, data); err != nil {
		return Default(), err
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	cfg.assignIDs()
	return cfg, nil
}

// Decode parses data into cfg using the format implied by path.
func Decode(cfg *Config, path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse config toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config yaml: %w", err)
		}
	}
	return nil
}

// Validate checks timer limits, duplicate ids and the policy values.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, t := range c.Timers {
		if err := t.Countdown().Validate(); err != nil {
			return fmt.Errorf("timer %d (%s): %w", i, t.label(), err)
		}
		if t.ID == "" {
			continue
		}
		if seen[t.ID] {
			return fmt.Errorf("timer %d: %w: %q", i, countdown.ErrDuplicateTimer, t.ID)
		}
		seen[t.ID] = true
	}
	if _, err := c.Policy.Countdown(); err != nil {
		return err
	}
	if _, err := c.Bridge.Retry(); err != nil {
		return err
	}
	return nil
}

// assignIDs names id-less timers after their name, or their position when
// unnamed, so a reloaded file maps onto the same running engines.
func (c *Config) assignIDs() {
	taken := make(map[string]bool, len(c.Timers))
	for _, t := range c.Timers {
		taken[t.ID] = true
	}
	for i := range c.Timers {
		if c.Timers[i].ID != "" {
			continue
		}
		id := "timer_" + strconv.Itoa(i+1)
		if slug := slugify(c.Timers[i].Name); slug != "" {
			id = "timer_" + slug
		}
		if taken[id] {
			id += "_" + strconv.Itoa(i+1)
		}
		taken[id] = true
		c.Timers[i].ID = id
	}
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (t Timer) label() string {
	if t.Name != "" {
		return t.Name
	}
	if t.ID != "" {
		return t.ID
	}
	return "unnamed"
}

// Countdown converts the declaration into an engine Config. Zero or
// malformed warn_when disables the warning and update_every falls back to 1.
func (t Timer) Countdown() countdown.Config {
	cfg := countdown.NewConfig(int(t.Minutes), int(t.Seconds))
	if t.WarnWhen != 0 {
		cfg.WarnWhen = int(t.WarnWhen)
	}
	if t.UpdateEvery > 0 {
		cfg.UpdateEvery = int(t.UpdateEvery)
	}
	cfg.BlinkColon = t.BlinkColon
	cfg.PlaySound = countdown.SoundFromValue(t.PlaySound)
	if t.RoundBump != nil {
		cfg.RoundBump = *t.RoundBump
	}
	return cfg.Normalize()
}

// Countdown converts the policy section.
func (p Policy) Countdown() (countdown.Policy, error) {
	out := countdown.DefaultPolicy()

	switch strings.ToLower(p.Rounding) {
	case "", "ceil":
	case "round", "nearest":
		out.Rounding = countdown.RoundNearest
	default:
		return out, fmt.Errorf("policy: unknown rounding %q", p.Rounding)
	}

	if p.FinishEpsilon != "" {
		d, err := time.ParseDuration(p.FinishEpsilon)
		if err != nil || d <= 0 {
			return out, fmt.Errorf("policy: bad finish_epsilon %q", p.FinishEpsilon)
		}
		out.FinishEpsilon = d
	}

	switch strings.ToLower(p.BlinkCutoff) {
	case "", "seconds":
	case "legacy-millis", "legacy":
		out.BlinkCutoff = countdown.BlinkCutoffLegacyMillis
	default:
		return out, fmt.Errorf("policy: unknown blink_cutoff %q", p.BlinkCutoff)
	}
	return out, nil
}

// Retry parses the retry interval; empty means the bridge default.
func (b Bridge) Retry() (time.Duration, error) {
	if b.RetryInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(b.RetryInterval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("bridge: bad retry_interval %q", b.RetryInterval)
	}
	return d, nil
}

// Timer returns the declaration with the given id.
func (c *Config) Timer(id string) (Timer, bool) {
	for _, t := range c.Timers {
		if t.ID == id {
			return t, true
		}
	}
	return Timer{}, false
}
