package countdown

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultSoundFile is the asset played when PlaySound selects the default.
const DefaultSoundFile = "smb_stage_clear.mp3"

// DefaultSoundBase is used to resolve the default asset when no base
// location is configured.
const DefaultSoundBase = "libs/countdown"

// MaxMinutes bounds the configured duration; the display has two minute digits.
const MaxMinutes = 100

// ErrDurationTooLong is returned by Config.Validate.
var ErrDurationTooLong = errors.New("duration must be less than 100 minutes")

// SoundMode selects what happens when a run finishes.
type SoundMode uint8

const (
	SoundOff SoundMode = iota
	SoundDefault
	SoundURL
)

// Sound is the play-on-finish setting: off, the default asset, or a URL.
type Sound struct {
	Mode SoundMode
	URL  string
}

// SoundFromValue converts a loosely typed value (bool, number, string or
// nil) into a Sound. Strings follow the attribute rules of ParseAttrs.
func SoundFromValue(v any) Sound {
	switch val := v.(type) {
	case nil:
		return Sound{}
	case bool:
		if val {
			return Sound{Mode: SoundDefault}
		}
		return Sound{}
	case string:
		return SoundFromString(val)
	case int:
		return SoundFromValue(val != 0)
	case int64:
		return SoundFromValue(val != 0)
	case uint64:
		return SoundFromValue(val != 0)
	case float64:
		return SoundFromValue(val != 0)
	default:
		return Sound{}
	}
}

// SoundFromString parses a play-sound attribute.
func SoundFromString(s string) Sound {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "", "true", "1":
		return Sound{Mode: SoundDefault}
	case "false", "0", "null":
		return Sound{}
	}
	return Sound{Mode: SoundURL, URL: v}
}

// Enabled reports whether a sound should play.
func (s Sound) Enabled() bool {
	return s.Mode != SoundOff
}

// Resolve returns the URL to play, or "" when disabled. base is the
// location of the countdown assets; a trailing "/countdown.js" is stripped.
func (s Sound) Resolve(base string) string {
	switch s.Mode {
	case SoundURL:
		return s.URL
	case SoundDefault:
		base = strings.TrimSuffix(base, "/countdown.js")
		if base == "" {
			base = DefaultSoundBase
		}
		return strings.TrimSuffix(base, "/") + "/" + DefaultSoundFile
	}
	return ""
}

// Value returns the loose representation: false, true or the URL.
func (s Sound) Value() any {
	switch s.Mode {
	case SoundDefault:
		return true
	case SoundURL:
		return s.URL
	}
	return false
}

func (s Sound) String() string {
	return fmt.Sprint(s.Value())
}

// MarshalJSON encodes the sound as false, true or a URL string.
func (s Sound) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value())
}

// UnmarshalJSON accepts false, true, null or a string.
func (s *Sound) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = SoundFromValue(v)
	return nil
}

// Config holds the options of one timer.
type Config struct {
	// Duration is the nominal countdown length in seconds.
	Duration int
	// WarnWhen is the number of seconds before zero at which the warning
	// activates; -1 disables it.
	WarnWhen int
	// UpdateEvery is the coarse display refresh cadence in seconds outside
	// the warning window.
	UpdateEvery int
	BlinkColon  bool
	PlaySound   Sound
	// RoundBump snaps computed bump results above 10s to multiples of 5s.
	RoundBump bool
}

// DefaultConfig returns a zero-length timer with warnings disabled.
func DefaultConfig() Config {
	return Config{
		WarnWhen:    -1,
		UpdateEvery: 1,
		RoundBump:   true,
	}
}

// NewConfig returns DefaultConfig with the duration set from minutes and seconds.
func NewConfig(minutes, seconds int) Config {
	cfg := DefaultConfig()
	cfg.Duration = minutes*60 + seconds
	return cfg.Normalize()
}

// Validate checks the limits enforced when timers are declared.
func (c Config) Validate() error {
	if c.Duration/60 >= MaxMinutes {
		return fmt.Errorf("%w: got %d minutes", ErrDurationTooLong, c.Duration/60)
	}
	return nil
}

// Minutes and Seconds split the duration for display.
func (c Config) Minutes() int { return c.Duration / 60 }
func (c Config) Seconds() int { return c.Duration % 60 }

// Normalize clamps the fields to their valid ranges.
func (c Config) Normalize() Config {
	if c.Duration < 0 {
		c.Duration = 0
	}
	if c.UpdateEvery < 1 {
		c.UpdateEvery = 1
	}
	if c.WarnWhen < -1 {
		c.WarnWhen = -1
	}
	return c
}

// Patch is a partial Config used for live updates. Nil fields are left
// unchanged.
type Patch struct {
	Duration    *int   `json:"duration,omitempty"`
	WarnWhen    *int   `json:"warn_when,omitempty"`
	UpdateEvery *int   `json:"update_every,omitempty"`
	BlinkColon  *bool  `json:"blink_colon,omitempty"`
	PlaySound   *Sound `json:"play_sound,omitempty"`
	RoundBump   *bool  `json:"round_bump,omitempty"`
}

// PatchFrom builds a Patch that sets every field of cfg.
func PatchFrom(cfg Config) Patch {
	return Patch{
		Duration:    &cfg.Duration,
		WarnWhen:    &cfg.WarnWhen,
		UpdateEvery: &cfg.UpdateEvery,
		BlinkColon:  &cfg.BlinkColon,
		PlaySound:   &cfg.PlaySound,
		RoundBump:   &cfg.RoundBump,
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Duration == nil && p.WarnWhen == nil && p.UpdateEvery == nil &&
		p.BlinkColon == nil && p.PlaySound == nil && p.RoundBump == nil
}

// Apply returns cfg with the patch merged in.
func (p Patch) Apply(cfg Config) Config {
	if p.Duration != nil {
		cfg.Duration = *p.Duration
	}
	if p.WarnWhen != nil {
		cfg.WarnWhen = *p.WarnWhen
	}
	if p.UpdateEvery != nil {
		cfg.UpdateEvery = *p.UpdateEvery
	}
	if p.BlinkColon != nil {
		cfg.BlinkColon = *p.BlinkColon
	}
	if p.PlaySound != nil {
		cfg.PlaySound = *p.PlaySound
	}
	if p.RoundBump != nil {
		cfg.RoundBump = *p.RoundBump
	}
	return cfg.Normalize()
}

// ParseSeconds reads the leading integer of s the way HTML attributes are
// read: surrounding space is ignored and trailing garbage is dropped.
// Anything without a leading integer yields 0 and ok == false.
func ParseSeconds(s string) (n int, ok bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// AttrIsTrue reports whether a boolean attribute is set.
func AttrIsTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "", "1":
		return true
	}
	return false
}

// ParseAttrs builds a Config from attribute-style strings: "minutes",
// "seconds", "warn-when", "update-every", "blink-colon", "play-sound" and
// "round-bump". Malformed or absent numbers fall back to zero for the
// duration, -1 for warn-when and 1 for update-every.
func ParseAttrs(attrs map[string]string) Config {
	cfg := DefaultConfig()

	minutes, _ := ParseSeconds(attrs["minutes"])
	seconds, _ := ParseSeconds(attrs["seconds"])
	cfg.Duration = minutes*60 + seconds

	if v, ok := ParseSeconds(attrs["warn-when"]); ok && v != 0 {
		cfg.WarnWhen = v
	}
	if v, ok := ParseSeconds(attrs["update-every"]); ok && v != 0 {
		cfg.UpdateEvery = v
	}
	if v, ok := attrs["blink-colon"]; ok {
		cfg.BlinkColon = AttrIsTrue(v)
	}
	if v, ok := attrs["play-sound"]; ok {
		cfg.PlaySound = SoundFromString(v)
	}
	if v, ok := attrs["round-bump"]; ok {
		cfg.RoundBump = AttrIsTrue(v)
	}
	return cfg.Normalize()
}
