package bridge

import (
	"fmt"
	"log/slog"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// Dispatcher applies inbound commands to the timers of a Registry.
type Dispatcher struct {
	registry *countdown.Registry
	logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher over r. A nil logger uses slog.Default.
func NewDispatcher(r *countdown.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: r, logger: logger}
}

// Dispatch runs msg against its target timer. Unknown ids are reported as
// ErrMissingTarget and change nothing.
func (d *Dispatcher) Dispatch(msg Message) error {
	if _, err := ParseCommand(string(msg.Command)); err != nil {
		d.logger.Warn("rejected host command", slog.String("command", string(msg.Command)))
		return err
	}

	e, ok := d.registry.Get(msg.ID)
	if !ok {
		d.logger.Warn("no timer for host command",
			slog.String("timer_id", msg.ID),
			slog.String("command", string(msg.Command)),
		)
		return fmt.Errorf("%s %q: %w", msg.Command, msg.ID, ErrMissingTarget)
	}

	d.logger.Debug("host command",
		slog.String("timer_id", msg.ID),
		slog.String("command", string(msg.Command)),
	)

	switch msg.Command {
	case CommandStart:
		e.Start()
	case CommandStop:
		e.Stop(true)
	case CommandReset:
		e.Reset()
	case CommandBumpUp:
		return e.BumpUp()
	case CommandBumpDown:
		return e.BumpDown()
	case CommandUpdate:
		e.SetValues(msg.Patch.Config())
	}
	return nil
}
