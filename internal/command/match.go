package command

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Gwildor/Pyromancer/internal/irc"
	"github.com/Gwildor/Pyromancer/internal/state"
)

// Conn is the outbound side of the connection.
type Conn interface {
	// Msg sends text to a channel or nick as PRIVMSG.
	Msg(target, text string) error
	// Write sends a raw protocol line.
	Write(line string) error
}

// Context is what every handler invocation can reach. It is owned by the
// dispatch loop and shared by all matches of a connection.
type Context struct {
	Conn     Conn
	Store    *state.Store
	Timers   *Scheduler
	Settings Settings
}

// Match is handed to a handler. Line is nil when a timer fired the handler.
type Match struct {
	*Context
	*Capture

	Line *irc.Line

	target string
	errs   []error
}

// Handler reacts to a match. It may return nil.
type Handler func(m *Match) Result

// Index exposes groups to templates, so "{m[1]}" and "{m[name]}" work.
func (m *Match) Index(key string) (any, bool) {
	if i, err := strconv.Atoi(key); err == nil {
		return m.Get(i), true
	}
	return m.Named(key), true
}

// Sender is the user behind the line, or nil for timer matches.
func (m *Match) Sender() *state.User {
	if m.Line == nil {
		return nil
	}
	return m.Line.Sender
}

// ReplyTarget is where replies go when no explicit target is given.
func (m *Match) ReplyTarget() string {
	if m.target != "" {
		return m.target
	}
	if m.Line != nil {
		return m.Line.ReplyTarget()
	}
	return ""
}

// Msg formats message with args and sends it back where the line came from.
// Errors are returned and also reported by the dispatcher.
func (m *Match) Msg(message string, args ...any) error {
	return m.record(m.send(m, Outbound{Message: message, Args: args}))
}

// MsgTo is Msg with an explicit target.
func (m *Match) MsgTo(target, message string, args ...any) error {
	return m.record(m.send(m, Outbound{Target: target, Message: message, Args: args}))
}

// Write sends a raw protocol line, formatted when args are given.
func (m *Match) Write(format string, args ...any) error {
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	return m.record(m.Conn.Write(format))
}

func (m *Match) record(err error) error {
	if err != nil {
		m.errs = append(m.errs, err)
	}
	return err
}

// Err joins the errors of the sends made through the match.
func (m *Match) Err() error {
	return errors.Join(m.errs...)
}

func (c *Context) send(m *Match, o Outbound) error {
	target := o.Target
	if t, ok := o.Kwargs["target"].(string); ok && target == "" {
		target = t
	}
	if target == "" && m != nil {
		target = m.ReplyTarget()
	}
	if target == "" {
		return fmt.Errorf("%w: %q", ErrNoTarget, o.Message)
	}

	text, err := Render(m, o)
	if err != nil {
		return err
	}
	return c.Conn.Msg(target, text)
}

// forward normalizes a handler result and hands every action to the
// connection or the scheduler. All items are tried; errors are joined.
func (c *Context) forward(m *Match, res Result, withTarget bool) error {
	var errs []error
	for action, err := range Normalize(res, withTarget) {
		if err != nil {
			errs = append(errs, err)
			continue
		}

		switch a := action.(type) {
		case Outbound:
			if err := c.send(m, a); err != nil {
				errs = append(errs, err)
			}
		case *Timer:
			if c.Timers == nil {
				errs = append(errs, ErrNoScheduler)
				continue
			}
			if err := c.Timers.Add(a); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
