package store

import (
	"context"
	"log/slog"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// Follow records every event read from ch until ch closes or ctx is done.
// On cancel the events already buffered are still recorded. Failures are
// logged and do not stop the loop.
func (s *Store) Follow(ctx context.Context, ch <-chan countdown.Event, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			s.drain(ch, logger)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.journal(ev, logger)
		}
	}
}

// drain records the events already buffered in ch without waiting for more.
func (s *Store) drain(ch <-chan countdown.Event, logger *slog.Logger) {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.journal(ev, logger)
		default:
			return
		}
	}
}

func (s *Store) journal(ev countdown.Event, logger *slog.Logger) {
	if _, err := s.RecordEvent(ev); err != nil {
		logger.Warn("journal write failed",
			slog.String("timer_id", ev.TimerID),
			slog.String("action", string(ev.Action)),
			slog.Any("error", err))
	}
}
