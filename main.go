package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/gadenbuie/countdown/internal/bridge"
	"github.com/gadenbuie/countdown/internal/clock"
	"github.com/gadenbuie/countdown/internal/config"
	"github.com/gadenbuie/countdown/internal/countdown"
	"github.com/gadenbuie/countdown/internal/sound"
	"github.com/gadenbuie/countdown/internal/store"
	"github.com/gadenbuie/countdown/internal/tui"
)

// journalBuffer is the event backlog per timer before the journal drops.
const journalBuffer = 256

type options struct {
	configPath string
	dbPath     string
	listen     string
	id         string
	minutes    int
	seconds    int
	warn       int
	headless   bool
	start      bool
	logLevel   string
	exportDir  string
	exportJSON bool

	// adhoc is set when -minutes or -seconds was given.
	adhoc bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("countdown", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "config file (yaml or toml)")
	fs.StringVar(&o.dbPath, "db", "", "preset and history database")
	fs.StringVar(&o.listen, "listen", "", "host bridge address, overrides the config")
	fs.StringVar(&o.id, "id", "", "id of the timer given by -minutes/-seconds")
	fs.IntVar(&o.minutes, "minutes", 0, "run a single timer of this many minutes")
	fs.IntVar(&o.seconds, "seconds", 0, "seconds added to -minutes")
	fs.IntVar(&o.warn, "warn", 0, "seconds left when the warning starts")
	fs.BoolVar(&o.headless, "headless", false, "no terminal UI; control through the bridge")
	fs.BoolVar(&o.start, "start", false, "start every timer immediately")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&o.exportDir, "export", "", "write the run history to this directory and exit")
	fs.BoolVar(&o.exportJSON, "json", false, "export as JSON instead of CSV")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "minutes" || f.Name == "seconds" {
			o.adhoc = true
		}
	})
	return o, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	if opts.configPath == "" {
		if opts.configPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		// Defaults are still usable.
		logger.Warn("config ignored", slog.String("path", opts.configPath), slog.Any("error", err))
	}
	applyFlags(cfg, opts)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.exportDir != "" {
		path, err := tui.ExportRuns(st, opts.exportDir, opts.exportJSON)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Println(path)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := cfg.Policy.Countdown()
	if err != nil {
		return err
	}
	trigger, err := sound.New(sound.Options{
		Backend: sound.Backend(cfg.Sound.Backend),
		Command: cfg.Sound.Command,
		Bell:    cfg.Sound.Bell,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	reg := countdown.NewRegistry()

	var (
		outbox *bridge.Outbox
		server *bridge.Server
	)
	if cfg.Bridge.Listen != "" {
		enc, err := bridge.ParseEncoding(cfg.Bridge.Encoding)
		if err != nil {
			return err
		}
		retry, err := cfg.Bridge.Retry()
		if err != nil {
			return err
		}
		server = bridge.NewServer(bridge.ServerConfig{
			Network:  cfg.Bridge.Network,
			Address:  cfg.Bridge.Listen,
			Encoding: enc,
			Rate:     rate.Limit(cfg.Bridge.Rate),
			Burst:    cfg.Bridge.Burst,
			Logger:   logger,
		}, bridge.NewDispatcher(reg, logger))
		outbox = bridge.NewOutbox(server,
			bridge.WithRetryInterval(retry),
			bridge.WithMaxPending(cfg.Bridge.MaxPending),
			bridge.WithOutboxLogger(logger),
		)
	}

	var (
		timers  []tui.Timer
		journal sync.WaitGroup
	)
	for _, t := range cfg.Timers {
		face := tui.NewFace()
		engineOpts := []countdown.Option{
			countdown.WithClock(clock.Real()),
			countdown.WithPolicy(policy),
			countdown.WithLogger(logger),
			countdown.WithRenderer(face),
			countdown.WithSound(trigger, cfg.Sound.Base),
		}
		if outbox != nil {
			engineOpts = append(engineOpts, countdown.WithHostBridge(outbox))
		}
		e := countdown.New(t.ID, t.Countdown(), engineOpts...)
		if err := reg.Add(e); err != nil {
			e.Close()
			return err
		}

		ch := e.Subscribe(journalBuffer)
		journal.Add(1)
		go func() {
			defer journal.Done()
			st.Follow(ctx, ch, logger)
		}()

		if opts.headless {
			e.OnEvent(func(ev countdown.Event) {
				logger.Info("timer event",
					slog.String("timer_id", ev.TimerID),
					slog.String("action", string(ev.Action)),
					slog.Float64("remaining", ev.Timer.Remaining.Remaining))
			})
		}
		timers = append(timers, tui.Timer{Name: t.Name, Engine: e, Face: face})
	}
	defer func() {
		if server != nil {
			server.Stop()
		}
		if outbox != nil {
			outbox.Close()
		}
		reg.Close()
		journal.Wait()
	}()

	if server != nil {
		if err := server.Start(ctx); err != nil {
			return err
		}
	}

	watcher := &config.Watcher{
		Path:   opts.configPath,
		Logger: logger,
		OnChange: func(c *config.Config) {
			n := config.Apply(reg, c, logger)
			logger.Info("config applied", slog.Int("timers", n))
		},
	}
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("config watch disabled", slog.Any("error", err))
		}
	}()

	for i, t := range cfg.Timers {
		if t.StartImmediately || opts.start {
			timers[i].Engine.Start()
		}
	}

	if opts.headless {
		logger.Info("running headless", slog.Int("timers", reg.Len()))
		<-ctx.Done()
		return nil
	}

	p := tea.NewProgram(tui.NewApp(st, timers), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// applyFlags folds the command line into cfg. An ad hoc timer replaces the
// configured timer with the same id, or is added.
func applyFlags(cfg *config.Config, o options) {
	if o.listen != "" {
		cfg.Bridge.Listen = o.listen
	}
	if o.dbPath != "" {
		cfg.Store.Path = o.dbPath
	}

	if o.adhoc {
		t := config.Timer{
			ID:       o.id,
			Minutes:  config.Int(o.minutes),
			Seconds:  config.Int(o.seconds),
			WarnWhen: config.Int(o.warn),
		}
		if t.ID == "" {
			t.ID = countdown.NewID()
		}
		replaced := false
		for i := range cfg.Timers {
			if cfg.Timers[i].ID == t.ID {
				cfg.Timers[i] = t
				replaced = true
			}
		}
		if !replaced {
			cfg.Timers = append(cfg.Timers, t)
		}
	}

	if len(cfg.Timers) == 0 {
		cfg.Timers = []config.Timer{{ID: countdown.NewID(), Name: "countdown", Minutes: 5}}
	}
}

func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		var err error
		if path, err = store.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	s, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return s, nil
}

// newLogger writes text to stderr in headless mode. With the terminal UI the
// screen is taken, so JSON goes to a file next to the config.
func newLogger(o options) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if o.headless || o.exportDir != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), func() {}, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return slog.New(slog.NewJSONHandler(io.Discard, handlerOpts)), func() {}, nil
	}
	path := filepath.Join(dir, "countdown", "countdown.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, handlerOpts)), func() { f.Close() }, nil
}
