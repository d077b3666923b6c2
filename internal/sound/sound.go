// Package sound plays the finish sound of a timer. Every trigger returns
// immediately; playback failures are logged and never reach the engine.
package sound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// Backend names a playback method.
type Backend string

const (
	BackendNone    Backend = "none"
	BackendBell    Backend = "bell"
	BackendCommand Backend = "command"
	BackendSpeaker Backend = "speaker"
)

// ErrSpeakerUnsupported is returned for the speaker backend in builds
// without cgo, where no audio device can be opened.
var ErrSpeakerUnsupported = errors.New("speaker backend needs a cgo build")

// URLPlaceholder in a command argument is replaced by the sound URL. When
// no argument contains it the URL is appended.
const URLPlaceholder = "{url}"

// playTimeout bounds a single external player run.
const playTimeout = 30 * time.Second

// Options selects and configures a trigger.
type Options struct {
	Backend Backend
	// Command is the external player and its arguments.
	Command []string
	// Bell also rings the terminal bell.
	Bell   bool
	Writer io.Writer
	Logger *slog.Logger
}

// New builds the trigger described by opts.
func New(opts Options) (countdown.SoundTrigger, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var triggers Multi
	switch opts.Backend {
	case "", BackendNone:
	case BackendBell:
		triggers = append(triggers, &Bell{W: w})
	case BackendCommand:
		if len(opts.Command) == 0 {
			return nil, fmt.Errorf("sound backend %q needs a command", opts.Backend)
		}
		triggers = append(triggers, NewCommand(opts.Command, logger))
	case BackendSpeaker:
		sp, err := newSpeaker(logger)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, sp)
	default:
		return nil, fmt.Errorf("unknown sound backend %q", opts.Backend)
	}
	if opts.Bell && opts.Backend != BackendBell {
		triggers = append(triggers, &Bell{W: w})
	}
	return triggers, nil
}

// Multi plays through every trigger in order.
type Multi []countdown.SoundTrigger

// Play implements countdown.SoundTrigger.
func (m Multi) Play(url string) {
	for _, t := range m {
		t.Play(url)
	}
}

// Bell rings the terminal bell.
type Bell struct {
	mu sync.Mutex
	W  io.Writer
}

// Play implements countdown.SoundTrigger.
func (b *Bell) Play(string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.W, "\a")
}

// Command plays sounds with an external program such as mpv or afplay.
type Command struct {
	name   string
	args   []string
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewCommand returns a Command running argv[0] with the remaining arguments.
func NewCommand(argv []string, logger *slog.Logger) *Command {
	if logger == nil {
		logger = slog.Default()
	}
	return &Command{name: argv[0], args: argv[1:], logger: logger}
}

// Args returns the arguments used for url.
func (c *Command) Args(url string) []string {
	args := make([]string, 0, len(c.args)+1)
	replaced := false
	for _, a := range c.args {
		if strings.Contains(a, URLPlaceholder) {
			a = strings.ReplaceAll(a, URLPlaceholder, url)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, url)
	}
	return args
}

// Play implements countdown.SoundTrigger.
func (c *Command) Play(url string) {
	args := c.Args(url)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
		defer cancel()

		out, err := exec.CommandContext(ctx, c.name, args...).CombinedOutput()
		if err != nil {
			c.logger.Warn("sound player failed",
				slog.String("player", c.name),
				slog.String("url", url),
				slog.String("output", strings.TrimSpace(string(out))),
				slog.Any("error", err),
			)
		}
	}()
}

// Wait blocks until every started player has exited.
func (c *Command) Wait() {
	c.wg.Wait()
}
