package countdown

import (
	"fmt"
	"math"
	"time"
)

// TimeLeft is the derived remaining time of a timer.
type TimeLeft struct {
	Remaining float64 `json:"remaining"`
	Minutes   int     `json:"minutes"`
	Seconds   int     `json:"seconds"`
}

// Display is the pair of digits shown to the user.
type Display struct {
	Minutes int
	Seconds int
}

// NewTimeLeft splits remaining seconds into display digits. The seconds
// digit is rounded with r and carried into minutes at 60; negative values
// clamp to 00:00.
func NewTimeLeft(remaining float64, r Rounding) TimeLeft {
	minutes := math.Floor(remaining / 60)
	seconds := r.apply(remaining - minutes*60)
	if seconds > 59 {
		minutes++
		seconds -= 60
	}
	tl := TimeLeft{Remaining: remaining, Minutes: int(minutes), Seconds: int(seconds)}
	if tl.Minutes < 0 {
		tl.Minutes, tl.Seconds = 0, 0
	}
	if tl.Seconds < 0 {
		tl.Seconds = 0
	}
	return tl
}

// Display returns the digits of tl.
func (tl TimeLeft) Display() Display {
	return Display{Minutes: tl.Minutes, Seconds: tl.Seconds}
}

// Digits returns the zero-padded two-digit strings.
func (d Display) Digits() (string, string) {
	return pad(d.Minutes), pad(d.Seconds)
}

func (d Display) String() string {
	m, s := d.Digits()
	return m + ":" + s
}

func pad(n int) string {
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%02d", n)
}

// BumpStep returns the default bump size in seconds for the given remaining time.
func BumpStep(remaining float64) float64 {
	switch {
	case remaining <= 30:
		return 5
	case remaining <= 300:
		return 15
	case remaining <= 3000:
		return 30
	default:
		return 60
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
