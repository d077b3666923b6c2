// Package countdown implements a single countdown timer engine.
//
// An Engine owns one timer: its configuration, its phase, and the one
// scheduled tick that keeps it moving. While running, the absolute end
// time is the only source of truth for the time left; every tick, query
// and emitted event derives remaining seconds and display digits from it.
//
// # Phases
//
//	Idle -> Running -> Paused | Finished
//	Paused -> Running
//	Finished -> Idle (Reset) or Running (Start)
//
// # Collaborators
//
// The engine pushes display digits and presentation flags to a Renderer,
// triggers a SoundTrigger when a run expires, and emits an Event for every
// state change to in-process listeners and an optional HostBridge. Time is
// read and scheduled through a clock.Clock so tests can run on a fake.
//
// # Diagnostics
//
// Operations that need a running timer (bumps, SetRemaining) return
// ErrInvalidOperation and log a warning instead of changing state.
package countdown
