package domain

import "time"

// TimePhase is the discrete countdown bucket used for urgency signaling.
// Derived per viewer from (end_time, now), never authoritative: a viewer
// reaching PhaseEnded locally proves nothing, only a rejected bid with
// ErrAuctionNotActive confirms bidding stopped server-side.
type TimePhase string

const (
	PhaseSafe     TimePhase = "safe"
	PhaseWarning  TimePhase = "warning"
	PhaseCritical TimePhase = "critical"
	PhaseFinal    TimePhase = "final"
	PhaseEnded    TimePhase = "ended"
)

// PhaseFor evaluates the phase in precedence order, first match wins.
func PhaseFor(endTime, now time.Time) TimePhase {
	remaining := endTime.Sub(now)
	switch {
	case remaining <= 0:
		return PhaseEnded
	case remaining < time.Minute:
		return PhaseFinal
	case remaining < 5*time.Minute:
		return PhaseCritical
	case remaining < 15*time.Minute:
		return PhaseWarning
	default:
		return PhaseSafe
	}
}

// CountdownTracker fires its callback only when the phase changes between
// ticks, repeated observations of the same phase cause no side effects.
type CountdownTracker struct {
	last     TimePhase
	onChange func(TimePhase)
}

// NewCountdownTracker creates a tracker, onChange may be nil.
func NewCountdownTracker(onChange func(TimePhase)) *CountdownTracker {
	return &CountdownTracker{onChange: onChange}
}

// Tick evaluates the phase for (endTime, now) and returns it, invoking the
// callback if it differs from the previous tick.
func (c *CountdownTracker) Tick(endTime, now time.Time) TimePhase {
	phase := PhaseFor(endTime, now)
	if phase != c.last {
		c.last = phase
		if c.onChange != nil {
			c.onChange(phase)
		}
	}
	return phase
}
