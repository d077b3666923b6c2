//go:build !cgo

package sound

import (
	"log/slog"

	"github.com/gadenbuie/countdown/internal/countdown"
)

func newSpeaker(*slog.Logger) (countdown.SoundTrigger, error) {
	return nil, ErrSpeakerUnsupported
}
