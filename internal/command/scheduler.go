package command

import (
	"errors"
	"fmt"
	"time"
)

// Scheduler holds pending timers. It is owned by the dispatch loop and is
// not safe for concurrent use.
type Scheduler struct {
	pending []*Timer
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add queues t. Timers added while Evaluate runs are first looked at on the
// following call.
func (s *Scheduler) Add(t *Timer) error {
	if err := t.validate(); err != nil {
		return err
	}
	s.pending = append(s.pending, t)
	return nil
}

// Len is the number of pending timers.
func (s *Scheduler) Len() int {
	return len(s.pending)
}

// Pending returns a copy of the pending timers in insertion order.
func (s *Scheduler) Pending() []*Timer {
	return append([]*Timer(nil), s.pending...)
}

// Evaluate fires every due timer once and retires the spent ones. It
// returns how many fired; errors from payloads are joined, and a failing
// timer still counts as fired.
func (s *Scheduler) Evaluate(ctx *Context, now, connected time.Time) (int, error) {
	n := len(s.pending)
	current := s.pending[:n:n]
	kept := make([]*Timer, 0, n)

	var (
		fired int
		errs  []error
	)
	for _, t := range current {
		if !t.Due(now, connected) {
			kept = append(kept, t)
			continue
		}

		fired++
		if err := s.fire(ctx, t); err != nil {
			errs = append(errs, err)
		}
		if !t.fired(now) {
			kept = append(kept, t)
		}
	}

	s.pending = append(kept, s.pending[n:]...)
	return fired, errors.Join(errs...)
}

func (s *Scheduler) fire(ctx *Context, t *Timer) (err error) {
	if t.Handler != nil {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("timer: handler panic: %v", r)
			}
		}()

		m := &Match{Context: ctx, Capture: &Capture{}, target: t.Target}
		err = ctx.forward(m, t.Handler(m), true)
		if err = errors.Join(m.Err(), err); err != nil {
			return fmt.Errorf("timer: %w", err)
		}
		return nil
	}

	o := Outbound{Target: t.Target, Message: t.Message, Args: t.Args, Kwargs: t.Kwargs}
	if err := ctx.send(nil, o); err != nil {
		return fmt.Errorf("timer: %w", err)
	}
	return nil
}
