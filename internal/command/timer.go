package command

import (
	"time"
)

// Timer is a deferred or recurring action.
//
// Exactly one of At (a fixed point) or Every (a recurrence) drives it.
// A fixed-point timer fires on every tick from At onwards until Count runs
// out. A recurring timer is due Every after its last firing, or Every after
// Start (the connection time when Start is zero) before it ever fired.
//
// Immediate makes the timer fire on the next tick regardless of schedule,
// once. Count is the number of fires left; zero means forever.
//
// The payload is either Handler, run with a match that has no line, or the
// literal Target/Message/Args/Kwargs, which needs a Target.
type Timer struct {
	At        time.Time
	Every     time.Duration
	Start     time.Time
	Immediate bool
	Count     int

	Target  string
	Message string
	Args    []any
	Kwargs  map[string]any
	Handler Handler

	last time.Time
}

func (*Timer) result() {}
func (*Timer) action() {}

func (t *Timer) validate() error {
	if t.At.IsZero() && t.Every <= 0 {
		return ErrTimerSchedule
	}
	if t.Handler == nil && t.Message == "" {
		return ErrTimerPayload
	}
	return nil
}

// Due reports whether the timer fires at now.
func (t *Timer) Due(now, connected time.Time) bool {
	if t.Immediate {
		return true
	}
	if !t.At.IsZero() {
		return !now.Before(t.At)
	}
	return !now.Before(t.Next(connected))
}

// Next is the time a recurring timer is due next, or At for a fixed one.
func (t *Timer) Next(connected time.Time) time.Time {
	if !t.At.IsZero() {
		return t.At
	}
	base := t.last
	if base.IsZero() {
		base = t.Start
	}
	if base.IsZero() {
		base = connected
	}
	return base.Add(t.Every)
}

// LastFired is the time of the last firing, zero if it never fired.
func (t *Timer) LastFired() time.Time {
	return t.last
}

// fired records a firing and reports whether the timer is spent.
func (t *Timer) fired(now time.Time) bool {
	t.Immediate = false
	t.last = now
	if t.Count > 0 {
		t.Count--
		return t.Count == 0
	}
	return false
}
