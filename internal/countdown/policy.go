package countdown

import (
	"math"
	"time"
)

// Tick cadence: coarse while far from zero, tight near expiry.
const (
	slowTick      = time.Second
	fastTick      = 250 * time.Millisecond
	fastTickBelow = 10 * time.Second
)

// Rounding selects how the fractional seconds digit is rounded.
type Rounding uint8

const (
	// RoundCeil shows 00:01 until the last fraction of a second is gone.
	RoundCeil Rounding = iota
	// RoundNearest rounds half up, as older renderers did.
	RoundNearest
)

func (r Rounding) apply(x float64) float64 {
	if r == RoundNearest {
		return math.Floor(x + 0.5)
	}
	return math.Ceil(x)
}

func (r Rounding) String() string {
	if r == RoundNearest {
		return "round"
	}
	return "ceil"
}

// BlinkCutoff selects how the warning threshold suppresses colon blinking.
type BlinkCutoff uint8

const (
	// BlinkCutoffSeconds stops blinking once less than WarnWhen seconds remain.
	BlinkCutoffSeconds BlinkCutoff = iota
	// BlinkCutoffLegacyMillis treats WarnWhen as milliseconds, reproducing
	// renderers that added it directly to a millisecond epoch.
	BlinkCutoffLegacyMillis
)

func (b BlinkCutoff) String() string {
	if b == BlinkCutoffLegacyMillis {
		return "legacy-millis"
	}
	return "seconds"
}

// Policy collects the behavior that differed between renderer variants.
type Policy struct {
	Rounding      Rounding
	FinishEpsilon time.Duration
	BlinkCutoff   BlinkCutoff
}

// DefaultPolicy is ceil rounding, a 250ms finish epsilon and a cutoff in seconds.
func DefaultPolicy() Policy {
	return Policy{
		Rounding:      RoundCeil,
		FinishEpsilon: 250 * time.Millisecond,
		BlinkCutoff:   BlinkCutoffSeconds,
	}
}

// LegacyPolicy matches the oldest renderer: nearest rounding and a 500ms epsilon.
func LegacyPolicy() Policy {
	return Policy{
		Rounding:      RoundNearest,
		FinishEpsilon: 500 * time.Millisecond,
		BlinkCutoff:   BlinkCutoffLegacyMillis,
	}
}

func (p Policy) normalize() Policy {
	if p.FinishEpsilon <= 0 {
		p.FinishEpsilon = DefaultPolicy().FinishEpsilon
	}
	return p
}

// blinkSuppressed reports whether remaining seconds fall inside the cutoff.
func (p Policy) blinkSuppressed(remaining float64, warnWhen int) bool {
	if warnWhen <= 0 {
		return false
	}
	limit := float64(warnWhen)
	if p.BlinkCutoff == BlinkCutoffLegacyMillis {
		limit /= 1000
	}
	return remaining < limit
}
