package domain

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestPhaseFor(t *testing.T) {
	end := time.Now()
	cases := []struct {
		remaining time.Duration
		want      TimePhase
	}{
		{-time.Second, PhaseEnded},
		{0, PhaseEnded},
		{time.Second, PhaseFinal},
		{time.Minute - time.Millisecond, PhaseFinal},
		{time.Minute, PhaseCritical},
		{5*time.Minute - time.Millisecond, PhaseCritical},
		{5 * time.Minute, PhaseWarning},
		{15*time.Minute - time.Millisecond, PhaseWarning},
		{15 * time.Minute, PhaseSafe},
		{time.Hour, PhaseSafe},
	}
	for _, tc := range cases {
		check.Equal(t, tc.want, PhaseFor(end, end.Add(-tc.remaining)))
	}
}

func TestCountdownTracker_FiresOnlyOnChange(t *testing.T) {
	var fired []TimePhase
	tracker := NewCountdownTracker(func(phase TimePhase) {
		fired = append(fired, phase)
	})

	end := time.Now().Add(20 * time.Minute)

	check.Equal(t, PhaseSafe, tracker.Tick(end, end.Add(-20*time.Minute)))
	check.Equal(t, PhaseSafe, tracker.Tick(end, end.Add(-19*time.Minute)))
	check.Equal(t, PhaseWarning, tracker.Tick(end, end.Add(-10*time.Minute)))
	check.Equal(t, PhaseWarning, tracker.Tick(end, end.Add(-9*time.Minute)))
	check.Equal(t, PhaseCritical, tracker.Tick(end, end.Add(-3*time.Minute)))
	check.Equal(t, PhaseFinal, tracker.Tick(end, end.Add(-30*time.Second)))
	check.Equal(t, PhaseEnded, tracker.Tick(end, end))
	check.Equal(t, PhaseEnded, tracker.Tick(end, end.Add(time.Minute)))

	check.Equal(t, []TimePhase{PhaseSafe, PhaseWarning, PhaseCritical, PhaseFinal, PhaseEnded}, fired)
}

func TestCountdownTracker_ExtensionMovesPhaseBack(t *testing.T) {
	// a deadline extension can move the phase away from final again, and that
	// transition fires too
	var fired []TimePhase
	tracker := NewCountdownTracker(func(phase TimePhase) {
		fired = append(fired, phase)
	})

	now := time.Now()
	end := now.Add(30 * time.Second)
	check.Equal(t, PhaseFinal, tracker.Tick(end, now))

	extended := now.Add(6 * time.Minute)
	check.Equal(t, PhaseWarning, tracker.Tick(extended, now))

	check.Equal(t, []TimePhase{PhaseFinal, PhaseWarning}, fired)
}

func TestCountdownTracker_NilCallback(t *testing.T) {
	tracker := NewCountdownTracker(nil)
	end := time.Now()
	check.Equal(t, PhaseEnded, tracker.Tick(end, end))
}
