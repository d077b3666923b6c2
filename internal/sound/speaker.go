//go:build cgo

package sound

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"github.com/gadenbuie/countdown/internal/countdown"
)

const speakerRate = beep.SampleRate(44100)

// Speaker decodes mp3 or wav sounds and plays them on the default audio
// device. URLs may be local paths, file:// URLs or http(s) URLs.
type Speaker struct {
	logger *slog.Logger
	client *http.Client

	initOnce sync.Once
	initErr  error
}

func newSpeaker(logger *slog.Logger) (countdown.SoundTrigger, error) {
	return NewSpeaker(logger), nil
}

// NewSpeaker returns a Speaker. The audio device is opened on first use.
func NewSpeaker(logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{logger: logger, client: &http.Client{Timeout: 10 * time.Second}}
}

// Play implements countdown.SoundTrigger.
func (s *Speaker) Play(url string) {
	go func() {
		if err := s.play(url); err != nil {
			s.logger.Warn("sound playback failed", slog.String("url", url), slog.Any("error", err))
		}
	}()
}

func (s *Speaker) play(url string) error {
	s.initOnce.Do(func() {
		s.initErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if s.initErr != nil {
		return fmt.Errorf("open audio device: %w", s.initErr)
	}

	rc, err := s.open(url)
	if err != nil {
		return err
	}

	streamer, format, err := decode(url, rc)
	if err != nil {
		rc.Close()
		return err
	}

	done := make(chan struct{})
	resampled := beep.Resample(4, format.SampleRate, speakerRate, streamer)
	speaker.Play(beep.Seq(resampled, beep.Callback(func() { close(done) })))
	<-done
	return streamer.Close()
}

func (s *Speaker) open(url string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		resp, err := s.client.Get(url)
		if err != nil {
			return nil, fmt.Errorf("fetch sound: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch sound: %s", resp.Status)
		}
		return resp.Body, nil
	default:
		f, err := os.Open(strings.TrimPrefix(url, "file://"))
		if err != nil {
			return nil, fmt.Errorf("open sound: %w", err)
		}
		return f, nil
	}
}

func decode(url string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext := strings.ToLower(path.Ext(url)); ext {
	case ".wav":
		return wav.Decode(rc)
	case ".mp3", "":
		return mp3.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported sound format %q", ext)
	}
}
