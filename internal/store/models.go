package store

import (
	"time"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// Preset is a saved timer configuration.
type Preset struct {
	ID          int64
	Name        string
	Duration    int // seconds
	WarnWhen    int
	UpdateEvery int
	BlinkColon  bool
	PlaySound   countdown.Sound
	RoundBump   bool
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Config returns the engine configuration stored in the preset.
func (p Preset) Config() countdown.Config {
	return countdown.Config{
		Duration:    p.Duration,
		WarnWhen:    p.WarnWhen,
		UpdateEvery: p.UpdateEvery,
		BlinkColon:  p.BlinkColon,
		PlaySound:   p.PlaySound,
		RoundBump:   p.RoundBump,
	}.Normalize()
}

// EventRecord is one journaled timer event.
type EventRecord struct {
	ID        int64
	TimerID   string
	Action    countdown.Action
	At        time.Time
	Remaining float64
	IsRunning bool
	End       *time.Time
}

// Run spans one start of a timer until it finishes or is reset.
type Run struct {
	ID        int64
	TimerID   string
	PresetID  *int64
	Duration  int // seconds left when the run started
	Status    string // running, finished, reset
	StartedAt time.Time
	EndedAt   *time.Time
	Remaining float64
}

const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunReset    = "reset"
	// RunAbandoned marks a run the program exited in the middle of.
	RunAbandoned = "abandoned"
)

type Setting struct {
	Key   string
	Value string
}

// EventFilter is used to filter journaled events in queries.
type EventFilter struct {
	TimerID string
	Action  countdown.Action
	From    *time.Time
	To      *time.Time
	Limit   int
}

// DailyCount aggregates runs per timer per day.
type DailyCount struct {
	Date     string
	TimerID  string
	Started  int
	Finished int
	Seconds  int64 // planned seconds of finished runs
}
