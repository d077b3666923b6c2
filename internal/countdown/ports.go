package countdown

// Flag is a boolean presentation state pushed to a Renderer.
type Flag string

const (
	FlagRunning  Flag = "running"
	FlagFinished Flag = "finished"
	FlagWarning  Flag = "warning"
	FlagBlink    Flag = "blink"
)

// Renderer receives display updates. Calls are made while the engine is
// locked, so implementations must not call back into the engine.
type Renderer interface {
	RenderDigits(minutes, seconds string)
	SetFlag(flag Flag, on bool)
}

// SoundTrigger plays a resolved sound URL without blocking. Failures are
// the trigger's own business.
type SoundTrigger interface {
	Play(url string)
}

// HostBridge forwards events to an external host.
type HostBridge interface {
	Deliver(event Event)
}

type nopRenderer struct{}

func (nopRenderer) RenderDigits(string, string) {}
func (nopRenderer) SetFlag(Flag, bool)          {}

type nopSound struct{}

func (nopSound) Play(string) {}
