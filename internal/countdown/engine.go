package countdown

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gadenbuie/countdown/internal/clock"
)

// ErrInvalidOperation is returned when an operation needs a running timer.
var ErrInvalidOperation = errors.New("timer is not running")

// Phase is the lifecycle phase of a timer.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhasePaused
	PhaseFinished
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source and scheduler.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPolicy sets the rounding, finish epsilon and blink cutoff policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p.normalize() }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRenderer sets the display adapter.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.render = r }
}

// WithSound sets the sound trigger and the base location used to resolve
// the default asset.
func WithSound(s SoundTrigger, base string) Option {
	return func(e *Engine) {
		e.sound = s
		e.soundBase = base
	}
}

// WithHostBridge forwards every event to b.
func WithHostBridge(b HostBridge) Option {
	return func(e *Engine) { e.emitter.SetBridge(b) }
}

// Snapshot is a consistent view of a timer for queries.
type Snapshot struct {
	ID       string
	Phase    Phase
	Config   Config
	End      *time.Time
	TimeLeft TimeLeft
	Display  Display
	Warning  bool
	Blink    bool
}

// Engine is one countdown timer.
type Engine struct {
	id        string
	clock     clock.Clock
	policy    Policy
	logger    *slog.Logger
	render    Renderer
	sound     SoundTrigger
	soundBase string
	emitter   *Emitter

	// emitMu orders event delivery across operations; it is taken before
	// mu is released so listeners run unlocked but never out of order.
	emitMu sync.Mutex

	mu            sync.Mutex
	cfg           Config
	phase         Phase
	end           time.Time
	paused        float64
	display       Display
	warningActive bool
	blinkOn       bool
	timer         clock.Timer
	gen           uint64
	closed        bool
	pending       []Event
}

// New creates an idle timer.
func New(id string, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		id:      id,
		clock:   clock.Real(),
		policy:  DefaultPolicy(),
		logger:  slog.Default(),
		render:  nopRenderer{},
		sound:   nopSound{},
		emitter: NewEmitter(),
		cfg:     cfg.Normalize(),
		phase:   PhaseIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("timer_id", id))

	e.mu.Lock()
	e.refreshLocked(e.clock.Now(), true)
	e.mu.Unlock()
	return e
}

// ID returns the timer identifier.
func (e *Engine) ID() string { return e.id }

// OnEvent registers a synchronous event listener. Listeners may query the
// engine but must not call operations that change it.
func (e *Engine) OnEvent(fn func(Event)) (cancel func()) {
	return e.emitter.On(fn)
}

// Subscribe returns a buffered event channel closed by Close.
func (e *Engine) Subscribe(buffer int) <-chan Event {
	return e.emitter.Subscribe(buffer)
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// IsRunning reports whether the timer is counting down.
func (e *Engine) IsRunning() bool {
	return e.Phase() == PhaseRunning
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// End returns the end time while running.
func (e *Engine) End() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseRunning {
		return time.Time{}, false
	}
	return e.end, true
}

// Remaining derives the time left now.
func (e *Engine) Remaining() TimeLeft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeLeftLocked(e.clock.Now())
}

// Display returns the digits last pushed to the renderer.
func (e *Engine) Display() Display {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.display
}

// Snapshot returns the full state at once.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	s := Snapshot{
		ID:       e.id,
		Phase:    e.phase,
		Config:   e.cfg,
		TimeLeft: e.timeLeftLocked(now),
		Display:  e.display,
		Warning:  e.warningActive,
		Blink:    e.blinkOn,
	}
	if e.phase == PhaseRunning {
		end := e.end
		s.End = &end
	}
	return s
}

// Start runs the timer from its paused remainder or from the full duration.
// It does nothing while already running.
func (e *Engine) Start() {
	e.mu.Lock()
	e.startLocked(e.clock.Now())
	e.unlockAndFlush()
}

// Stop halts a running timer. With manual set the timer pauses (or
// finishes when a second or less is left) and emits "stop"; otherwise it
// emits "finished".
func (e *Engine) Stop(manual bool) {
	e.mu.Lock()
	e.stopLocked(e.clock.Now(), manual)
	e.unlockAndFlush()
}

// Toggle stops a running timer or starts any other.
func (e *Engine) Toggle() {
	e.mu.Lock()
	now := e.clock.Now()
	if e.phase == PhaseRunning {
		e.stopLocked(now, true)
	} else {
		e.startLocked(now)
	}
	e.unlockAndFlush()
}

// Reset stops the timer and discards any paused remainder so the next
// start runs the full duration.
func (e *Engine) Reset() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.resetLocked(e.clock.Now())
	e.unlockAndFlush()
}

// BumpUp adds the default step for the current remaining time.
func (e *Engine) BumpUp() error {
	return e.bump("bumpUp", 1, 0, false)
}

// BumpDown subtracts the default step for the current remaining time.
func (e *Engine) BumpDown() error {
	return e.bump("bumpDown", -1, 0, false)
}

// BumpBy adds delta seconds (negative to subtract). Explicit deltas are
// never rounded.
func (e *Engine) BumpBy(delta float64) error {
	return e.bump("bumpBy", 1, delta, true)
}

// SetRemaining moves the end time so that seconds remain.
func (e *Engine) SetRemaining(seconds float64) error {
	e.mu.Lock()
	if e.closed || e.phase != PhaseRunning {
		e.mu.Unlock()
		return e.invalid("setRemaining")
	}
	now := e.clock.Now()
	e.end = now.Add(secondsToDuration(seconds))
	e.refreshLocked(now, true)
	e.unlockAndFlush()
	return nil
}

// SetValues merges a configuration patch. A changed duration on a running
// timer resets and restarts it with the new duration.
func (e *Engine) SetValues(p Patch) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	durationChanged := p.Duration != nil && *p.Duration != e.cfg.Duration
	e.cfg = p.Apply(e.cfg)

	if !e.cfg.BlinkColon && e.blinkOn {
		e.blinkOn = false
		e.render.SetFlag(FlagBlink, false)
	}
	if durationChanged && e.phase == PhaseRunning {
		e.resetLocked(now)
		e.startLocked(now)
	}
	e.queueLocked(ActionUpdate, now)
	e.refreshLocked(now, true)
	e.unlockAndFlush()
}

// Close cancels the pending tick, discards the run state and closes event
// subscriptions. A closed timer is idle and rejects every operation.
func (e *Engine) Close() {
	e.mu.Lock()
	e.cancelLocked()
	e.closed = true
	e.phase = PhaseIdle
	e.end = time.Time{}
	e.paused = 0
	e.warningActive = false
	e.blinkOn = false
	e.pending = nil
	e.mu.Unlock()

	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.emitter.Close()
}

func (e *Engine) invalid(op string) error {
	e.logger.Warn("timer is not running", slog.String("operation", op))
	return fmt.Errorf("%s: %w", op, ErrInvalidOperation)
}

func (e *Engine) bump(op string, sign, delta float64, explicit bool) error {
	e.mu.Lock()
	if e.closed || e.phase != PhaseRunning {
		e.mu.Unlock()
		return e.invalid(op)
	}
	if explicit && delta == 0 {
		e.mu.Unlock()
		return nil
	}

	now := e.clock.Now()
	remaining := e.end.Sub(now).Seconds()
	round := false
	if !explicit {
		delta = sign * BumpStep(remaining)
		round = e.cfg.RoundBump
	}

	newRemaining := remaining + delta
	if newRemaining <= 0 {
		e.finishLocked(now, ActionFinished)
		e.unlockAndFlush()
		return nil
	}
	if round && newRemaining > 10 {
		newRemaining = math.Round(newRemaining/5) * 5
	}

	e.end = now.Add(secondsToDuration(newRemaining))
	e.refreshLocked(now, true)
	if delta > 0 {
		e.queueLocked(ActionBumpUp, now)
	} else {
		e.queueLocked(ActionBumpDown, now)
	}
	e.unlockAndFlush()
	return nil
}

func (e *Engine) startLocked(now time.Time) {
	if e.closed || e.phase == PhaseRunning {
		return
	}
	if e.phase == PhasePaused {
		e.end = now.Add(secondsToDuration(e.paused))
		e.paused = 0
	} else {
		e.end = now.Add(time.Duration(e.cfg.Duration) * time.Second)
	}
	e.phase = PhaseRunning
	e.queueLocked(ActionStart, now)

	e.render.SetFlag(FlagFinished, false)
	e.render.SetFlag(FlagRunning, true)
	e.refreshLocked(now, true)
	e.tickLocked(now)
}

func (e *Engine) stopLocked(now time.Time, manual bool) {
	if e.phase != PhaseRunning {
		return
	}
	action := ActionFinished
	if manual {
		action = ActionStop
	}

	remaining := e.end.Sub(now).Seconds()
	if remaining <= 1 {
		e.finishLocked(now, action)
		return
	}

	e.cancelLocked()
	e.phase = PhasePaused
	e.paused = remaining
	e.end = time.Time{}
	e.clearRunFlagsLocked()
	e.queueLocked(action, now)
}

func (e *Engine) finishLocked(now time.Time, action Action) {
	e.cancelLocked()
	e.phase = PhaseFinished
	e.end = time.Time{}
	e.paused = 0
	e.display = Display{}
	e.render.RenderDigits(e.display.Digits())
	e.clearRunFlagsLocked()
	e.queueLocked(action, now)
}

func (e *Engine) clearRunFlagsLocked() {
	e.warningActive = false
	e.blinkOn = false
	e.render.SetFlag(FlagRunning, false)
	e.render.SetFlag(FlagWarning, false)
	e.render.SetFlag(FlagBlink, false)
	e.render.SetFlag(FlagFinished, true)
}

func (e *Engine) resetLocked(now time.Time) {
	e.stopLocked(now, true)
	e.phase = PhaseIdle
	e.paused = 0
	e.end = time.Time{}
	e.warningActive = false
	e.blinkOn = false
	e.refreshLocked(now, true)
	e.render.SetFlag(FlagFinished, false)
	e.render.SetFlag(FlagWarning, false)
	e.render.SetFlag(FlagBlink, false)
	e.queueLocked(ActionReset, now)
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.phase != PhaseRunning {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.tickLocked(e.clock.Now())
	e.unlockAndFlush()
}

// tickLocked updates the display, finishing the run when it expired, and
// otherwise schedules its own successor.
func (e *Engine) tickLocked(now time.Time) {
	secondsWas := e.display.Seconds
	if e.timeLeftLocked(now).Remaining < e.policy.FinishEpsilon.Seconds() {
		e.finishLocked(now, ActionFinished)
		if url := e.cfg.PlaySound.Resolve(e.soundBase); url != "" {
			e.sound.Play(url)
		}
		return
	}
	e.refreshLocked(now, false)
	e.blinkLocked(now, secondsWas)
	e.scheduleLocked(now)
}

func (e *Engine) scheduleLocked(now time.Time) {
	e.cancelLocked()
	delay := slowTick
	if e.end.Sub(now) <= fastTickBelow {
		delay = fastTick
	}
	gen := e.gen
	e.timer = e.clock.AfterFunc(delay, func() { e.tick(gen) })
}

func (e *Engine) cancelLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

// refreshLocked pushes new digits when forced, inside the warning window,
// or on an UpdateEvery boundary, and fires the warning edge.
func (e *Engine) refreshLocked(now time.Time, force bool) {
	tl := e.timeLeftLocked(now)
	rounded := math.Round(tl.Remaining)
	if !force && rounded >= float64(e.cfg.WarnWhen) && int(rounded)%e.cfg.UpdateEvery != 0 {
		return
	}

	if e.phase == PhaseRunning {
		warning := e.cfg.WarnWhen > 0 && tl.Remaining <= float64(e.cfg.WarnWhen)
		if warning && !e.warningActive {
			e.queueLocked(ActionWarning, now)
		}
		if warning != e.warningActive {
			e.render.SetFlag(FlagWarning, warning)
		}
		e.warningActive = warning
	}

	e.display = tl.Display()
	e.render.RenderDigits(e.display.Digits())
}

// blinkLocked toggles the colon once per displayed second, or every tick
// while more than ten seconds show, and clears it inside the cutoff.
func (e *Engine) blinkLocked(now time.Time, secondsWas int) {
	if !e.cfg.BlinkColon {
		return
	}
	if e.policy.blinkSuppressed(e.end.Sub(now).Seconds(), e.cfg.WarnWhen) {
		if e.blinkOn {
			e.blinkOn = false
			e.render.SetFlag(FlagBlink, false)
		}
		return
	}
	if e.display.Seconds > 10 || secondsWas != e.display.Seconds {
		e.blinkOn = !e.blinkOn
		e.render.SetFlag(FlagBlink, e.blinkOn)
	}
}

func (e *Engine) remainingLocked(now time.Time) float64 {
	switch e.phase {
	case PhaseRunning:
		return e.end.Sub(now).Seconds()
	case PhasePaused:
		return e.paused
	case PhaseFinished:
		return 0
	default:
		return float64(e.cfg.Duration)
	}
}

func (e *Engine) timeLeftLocked(now time.Time) TimeLeft {
	return NewTimeLeft(e.remainingLocked(now), e.policy.Rounding)
}

func (e *Engine) queueLocked(action Action, now time.Time) {
	state := TimerState{
		IsRunning: e.phase == PhaseRunning,
		Remaining: e.timeLeftLocked(now),
	}
	if e.phase == PhaseRunning {
		end := e.end
		state.End = &end
	}
	e.pending = append(e.pending, Event{
		TimerID: e.id,
		Action:  action,
		Time:    now,
		Timer:   state,
	})
	e.logger.Debug("timer event",
		slog.String("action", string(action)),
		slog.Float64("remaining", state.Remaining.Remaining),
	)
}

// unlockAndFlush releases mu and delivers the events queued under it.
func (e *Engine) unlockAndFlush() {
	events := e.pending
	e.pending = nil
	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()

	for _, event := range events {
		e.emitter.Emit(event)
	}
}
