package command

import (
	"errors"
	"fmt"

	"github.com/Gwildor/Pyromancer/internal/irc"
)

// Command binds a Spec to its handler under a dotted id such as
// "track.join".
type Command struct {
	ID      string
	Spec    *Spec
	Handler Handler
}

// Dispatch runs the handler when line matches and forwards what it returns.
// It reports whether the handler ran.
func (c Command) Dispatch(ctx *Context, line *irc.Line) (ran bool, err error) {
	capture := c.Spec.Match(line, ctx.Settings)
	if capture == nil {
		return false, nil
	}

	ran = true
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: handler panic: %v", c.ID, r)
		}
	}()

	m := &Match{Context: ctx, Capture: capture, Line: line}
	err = ctx.forward(m, c.Handler(m), false)
	if err = errors.Join(m.Err(), err); err != nil {
		return ran, fmt.Errorf("%s: %w", c.ID, err)
	}
	return ran, nil
}
