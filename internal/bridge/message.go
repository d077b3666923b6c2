// Package bridge connects timers to an external host: inbound commands are
// dispatched onto a Registry by timer id and outbound events are queued
// until the host is ready to receive them.
package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/gadenbuie/countdown/internal/countdown"
)

var (
	// ErrMissingTarget is returned when a command names an unknown timer.
	ErrMissingTarget = errors.New("no timer with that id")
	// ErrUnknownCommand is returned for a command outside the Command set.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNotReady is returned by a Host that cannot take events yet.
	ErrNotReady = errors.New("host not ready")
)

// Command is an inbound host command.
type Command string

const (
	CommandStart    Command = "start"
	CommandStop     Command = "stop"
	CommandReset    Command = "reset"
	CommandBumpUp   Command = "bumpUp"
	CommandBumpDown Command = "bumpDown"
	CommandUpdate   Command = "update"
)

// Commands lists every recognized command.
var Commands = []Command{
	CommandStart, CommandStop, CommandReset,
	CommandBumpUp, CommandBumpDown, CommandUpdate,
}

// ParseCommand validates a command name.
func ParseCommand(s string) (Command, error) {
	for _, c := range Commands {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Patch is the wire form of a live configuration update. Fields left out
// (or null) are unchanged; PlaySound takes false, true or a URL.
type Patch struct {
	Duration    *int  `json:"duration,omitempty"`
	WarnWhen    *int  `json:"warn_when,omitempty"`
	UpdateEvery *int  `json:"update_every,omitempty"`
	BlinkColon  *bool `json:"blink_colon,omitempty"`
	PlaySound   any   `json:"play_sound,omitempty"`
	RoundBump   *bool `json:"round_bump,omitempty"`
}

// Config converts the wire patch into an engine patch.
func (p Patch) Config() countdown.Patch {
	out := countdown.Patch{
		Duration:    p.Duration,
		WarnWhen:    p.WarnWhen,
		UpdateEvery: p.UpdateEvery,
		BlinkColon:  p.BlinkColon,
		RoundBump:   p.RoundBump,
	}
	if p.PlaySound != nil {
		s := countdown.SoundFromValue(p.PlaySound)
		out.PlaySound = &s
	}
	return out
}

// Message is one inbound command. Update messages carry their patch
// fields next to the id, as hosts send them.
type Message struct {
	ID      string  `json:"id"`
	Command Command `json:"command"`
	Patch
}

// EventInfo is the action part of a HostEvent.
type EventInfo struct {
	Action countdown.Action `json:"action"`
	Time   time.Time        `json:"time"`
}

// HostEvent is the outbound payload for one timer event.
type HostEvent struct {
	ID    string               `json:"id"`
	Event EventInfo            `json:"event"`
	Timer countdown.TimerState `json:"timer"`
}

// NewHostEvent converts an engine event into its host payload.
func NewHostEvent(e countdown.Event) HostEvent {
	return HostEvent{
		ID:    e.TimerID,
		Event: EventInfo{Action: e.Action, Time: e.Time},
		Timer: e.Timer,
	}
}
