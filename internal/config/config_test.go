package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadenbuie/countdown/internal/clock"
	"github.com/gadenbuie/countdown/internal/countdown"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
timers:
  - id: talk
    name: Lightning talk
    minutes: 5
    warn_when: 60
    blink_colon: true
    play_sound: true
    start_immediately: true
  - id: break
    minutes: "2"
    seconds: 30
    update_every: 5
    play_sound: https://example.com/gong.mp3
    round_bump: false
policy:
  rounding: round
  finish_epsilon: 500ms
sound:
  backend: command
  command: [mpv, --no-video]
bridge:
  listen: 127.0.0.1:7878
  encoding: cbor
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Timers, 2)

	talk := cfg.Timers[0].Countdown()
	assert.Equal(t, 300, talk.Duration)
	assert.Equal(t, 60, talk.WarnWhen)
	assert.True(t, talk.BlinkColon)
	assert.Equal(t, countdown.SoundDefault, talk.PlaySound.Mode)
	assert.True(t, talk.RoundBump)
	assert.True(t, cfg.Timers[0].StartImmediately)

	brk := cfg.Timers[1].Countdown()
	assert.Equal(t, 150, brk.Duration)
	assert.Equal(t, -1, brk.WarnWhen)
	assert.Equal(t, 5, brk.UpdateEvery)
	assert.Equal(t, "https://example.com/gong.mp3", brk.PlaySound.URL)
	assert.False(t, brk.RoundBump)

	pol, err := cfg.Policy.Countdown()
	require.NoError(t, err)
	assert.Equal(t, countdown.RoundNearest, pol.Rounding)
	assert.Equal(t, 500*time.Millisecond, pol.FinishEpsilon)
	assert.Equal(t, countdown.BlinkCutoffSeconds, pol.BlinkCutoff)

	assert.Equal(t, []string{"mpv", "--no-video"}, cfg.Sound.Command)
	assert.Equal(t, "cbor", cfg.Bridge.Encoding)
	assert.Equal(t, "tcp", cfg.Bridge.Network)
	assert.Equal(t, 1024, cfg.Bridge.MaxPending)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[[timers]]
id = "standup"
minutes = 15
warn_when = "120"
play_sound = false

[policy]
blink_cutoff = "legacy-millis"

[bridge]
retry_interval = "250ms"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Timers, 1)

	got := cfg.Timers[0].Countdown()
	assert.Equal(t, 900, got.Duration)
	assert.Equal(t, 120, got.WarnWhen)
	assert.False(t, got.PlaySound.Enabled())

	pol, err := cfg.Policy.Countdown()
	require.NoError(t, err)
	assert.Equal(t, countdown.BlinkCutoffLegacyMillis, pol.BlinkCutoff)

	retry, err := cfg.Bridge.Retry()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, retry)
}

func TestMalformedNumbersFallBackToZero(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "c.yaml", `
timers:
  - id: a
    minutes: lots
    seconds: 12abc
    warn_when: [1, 2]
`)
	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	got := cfg.Timers[0].Countdown()
	assert.Equal(t, 12, got.Duration)
	assert.Equal(t, -1, got.WarnWhen)

	tomlPath := writeFile(t, dir, "c.toml", `
[[timers]]
id = "b"
minutes = "soon"
seconds = 4.9
warn_when = true
`)
	cfg, err = Load(tomlPath)
	require.NoError(t, err)
	got = cfg.Timers[0].Countdown()
	assert.Equal(t, 4, got.Duration)
	assert.Equal(t, -1, got.WarnWhen)
}

func TestLoadAssignsMissingIDs(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "timers:\n  - minutes: 1\n  - minutes: 2\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	for _, tm := range cfg.Timers {
		assert.True(t, strings.HasPrefix(tm.ID, "timer_"))
	}
	assert.NotEqual(t, cfg.Timers[0].ID, cfg.Timers[1].ID)
}

func TestLoadDerivesStableIDs(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
timers:
  - name: Lightning Talk!
    minutes: 5
  - minutes: 1
  - name: lightning talk
    minutes: 2
  - id: timer_2
    minutes: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	ids := make([]string, len(cfg.Timers))
	for i, tm := range cfg.Timers {
		ids[i] = tm.ID
	}
	assert.Equal(t, []string{"timer_lightning-talk", "timer_2_2", "timer_lightning-talk_3", "timer_2"}, ids)

	again, err := Load(path)
	require.NoError(t, err)
	for i := range again.Timers {
		assert.Equal(t, ids[i], again.Timers[i].ID)
	}
}

func TestReloadAppliesToTimerWithoutID(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "timers:\n  - name: talk\n    minutes: 5\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	reg := countdown.NewRegistry()
	defer reg.Close()
	decl := cfg.Timers[0]
	e := countdown.New(decl.ID, decl.Countdown(), countdown.WithClock(clock.NewFake(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))))
	require.NoError(t, reg.Add(e))

	require.NoError(t, os.WriteFile(path, []byte("timers:\n  - name: talk\n    minutes: 7\n"), 0o644))
	reloaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, decl.ID, reloaded.Timers[0].ID)
	assert.Equal(t, 1, Apply(reg, reloaded, nil))
	assert.Equal(t, 420, e.Config().Duration)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"too long":   "timers:\n  - id: a\n    minutes: 100\n",
		"duplicate":  "timers:\n  - id: a\n  - id: a\n",
		"rounding":   "policy:\n  rounding: sideways\n",
		"epsilon":    "policy:\n  finish_epsilon: soon\n",
		"cutoff":     "policy:\n  blink_cutoff: minutes\n",
		"retry":      "bridge:\n  retry_interval: -1s\n",
		"bad syntax": "timers: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(name, " ", "_")+".yaml", body)
			cfg, err := Load(path)
			assert.Error(t, err)
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Skip("no user config dir")
	}
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, "countdown", filepath.Base(filepath.Dir(path)))
}

func TestApply(t *testing.T) {
	fake := clock.NewFake(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	reg := countdown.NewRegistry()
	defer reg.Close()

	e := countdown.New("talk", countdown.NewConfig(2, 0), countdown.WithClock(fake))
	require.NoError(t, reg.Add(e))
	e.Start()
	fake.Advance(30 * time.Second)

	cfg := &Config{Timers: []Timer{
		{ID: "talk", Minutes: 5, WarnWhen: 30},
		{ID: "elsewhere", Minutes: 1},
	}}
	assert.Equal(t, 1, Apply(reg, cfg, nil))

	got := e.Config()
	assert.Equal(t, 300, got.Duration)
	assert.Equal(t, 30, got.WarnWhen)
	assert.True(t, e.IsRunning())
	assert.Equal(t, 300.0, e.Remaining().Remaining)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "timers:\n  - id: a\n    minutes: 1\n")

	var (
		mu   sync.Mutex
		seen []*Config
	)
	w := &Watcher{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		OnChange: func(c *Config) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, c)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("timers:\n  - id: a\n    minutes: 3\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1].Timers[0].Countdown().Duration == 180
	}, 2*time.Second, 10*time.Millisecond)
}
