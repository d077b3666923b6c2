package tui

import (
	"fmt"
	"time"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimers viewState = iota
	viewPresets
	viewHistory
	viewSettings
)

var viewNames = []string{"Timers", "Presets", "History", "Settings"}

// --- Messages ---

// timerEventMsg carries an engine event into the update loop.
type timerEventMsg struct {
	event countdown.Event
	ch    <-chan countdown.Event
}

type loadPresetMsg struct {
	name string
	cfg  countdown.Config
	id   int64
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

// formatClock renders a duration in seconds as mm:ss.
func formatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
