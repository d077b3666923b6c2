package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// Face is the terminal renderer of one timer. The engine pushes digits and
// flags into it; the view reads them back on every frame.
type Face struct {
	mu      sync.Mutex
	minutes string
	seconds string
	flags   map[countdown.Flag]bool
}

// NewFace returns a face showing 00:00 with every flag off.
func NewFace() *Face {
	return &Face{
		minutes: "00",
		seconds: "00",
		flags:   make(map[countdown.Flag]bool),
	}
}

func (f *Face) RenderDigits(minutes, seconds string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minutes, f.seconds = minutes, seconds
}

func (f *Face) SetFlag(flag countdown.Flag, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[flag] = on
}

// Digits returns the last rendered minutes and seconds.
func (f *Face) Digits() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minutes, f.seconds
}

func (f *Face) Flag(flag countdown.Flag) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags[flag]
}

// Timer pairs an engine with the face it renders to.
type Timer struct {
	Name   string
	Engine *countdown.Engine
	Face   *Face
}

// eventBuffer is the subscription buffer per timer.
const eventBuffer = 32

// timerModel tracks one timer on screen.
type timerModel struct {
	name   string
	engine *countdown.Engine
	face   *Face
	events <-chan countdown.Event

	presetID   int64
	presetName string
}

func newTimerModel(t Timer) timerModel {
	name := t.Name
	if name == "" {
		name = t.Engine.ID()
	}
	return timerModel{
		name:   name,
		engine: t.Engine,
		face:   t.Face,
		events: t.Engine.Subscribe(eventBuffer),
	}
}

// waitForEvent blocks until the engine emits and hands the event to Update.
func waitForEvent(ch <-chan countdown.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return timerEventMsg{event: ev, ch: ch}
	}
}

func (t timerModel) id() string { return t.engine.ID() }

func (t timerModel) toggle() { t.engine.Toggle() }

func (t timerModel) reset() { t.engine.Reset() }

func (t timerModel) bumpUp() error { return t.engine.BumpUp() }

func (t timerModel) bumpDown() error { return t.engine.BumpDown() }

func (t timerModel) phase() countdown.Phase { return t.engine.Phase() }

func (t timerModel) clock() string {
	m, s := t.face.Digits()
	return m + ":" + s
}

// load applies a preset to the engine. A running timer restarts with the
// new duration.
func (t *timerModel) load(msg loadPresetMsg) {
	t.engine.SetValues(countdown.PatchFrom(msg.cfg))
	t.presetID = msg.id
	t.presetName = msg.name
}
