package countdown

import (
	"fmt"
	"time"
)

// Action names a lifecycle event.
type Action string

const (
	ActionStart    Action = "start"
	ActionStop     Action = "stop"
	ActionFinished Action = "finished"
	ActionReset    Action = "reset"
	ActionUpdate   Action = "update"
	ActionWarning  Action = "warning"
	ActionBumpUp   Action = "bumpUp"
	ActionBumpDown Action = "bumpDown"
)

// Actions lists every recognized action.
var Actions = []Action{
	ActionStart, ActionStop, ActionFinished, ActionReset,
	ActionUpdate, ActionWarning, ActionBumpUp, ActionBumpDown,
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// TimerState is the timer snapshot carried by an Event.
type TimerState struct {
	IsRunning bool       `json:"is_running"`
	End       *time.Time `json:"end"`
	Remaining TimeLeft   `json:"remaining"`
}

// Event is emitted for every state change of a timer.
type Event struct {
	TimerID string     `json:"-"`
	Action  Action     `json:"action"`
	Time    time.Time  `json:"time"`
	Timer   TimerState `json:"timer"`
}
