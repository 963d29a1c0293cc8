package command

import (
	"fmt"
	"iter"
	"time"
)

// Result is what a handler returns. It is a closed set:
//
//	nil        nothing to send
//	Text       a single message template
//	Tuple      (message, args..., kwargsOrLastArg), optionally led by a
//	           time.Time/time.Duration (a timer) and/or a target
//	Seq        several results, in order
//	Stream     results produced lazily, drained in order at dispatch
//	*Timer     a scheduled action, passed through untouched
type Result interface {
	result()
}

type (
	Text   string
	Tuple  []any
	Seq    []Result
	Stream iter.Seq[Result]
)

func (Text) result() {}
func (Tuple) result() {}
func (Seq) result() {}
func (Stream) result() {}

// T builds a Tuple.
func T(items ...any) Tuple {
	return Tuple(items)
}

// Action is one normalized unit: an Outbound or a *Timer.
type Action interface {
	action()
}

// Outbound is a message ready to be formatted and sent. An empty Target
// means "reply to the originating line".
type Outbound struct {
	Target  string
	Message string
	Args    []any
	Kwargs  map[string]any
}

func (Outbound) action() {}

// Normalize flattens a handler result into actions. In withTarget mode the
// first element of every tuple is the target; the scheduler uses it since a
// timer has no line to reply to.
//
// The last element of a tuple is taken as the named arguments only when it
// is a map[string]any. Anything else, a plain string included, is appended
// to the positional arguments. Handlers rely on this, so keep it.
//
// The sequence is lazy and can be ranged over once.
func Normalize(res Result, withTarget bool) iter.Seq2[Action, error] {
	return func(yield func(Action, error) bool) {
		normalize(res, withTarget, yield)
	}
}

func normalize(res Result, withTarget bool, yield func(Action, error) bool) bool {
	switch r := res.(type) {
	case nil:
		return true
	case Seq:
		for _, item := range r {
			if !normalize(item, withTarget, yield) {
				return false
			}
		}
		return true
	case Stream:
		if r == nil {
			return true
		}
		more := true
		r(func(item Result) bool {
			more = normalize(item, withTarget, yield)
			return more
		})
		return more
	case *Timer:
		if r == nil {
			return true
		}
		return yield(r, nil)
	case Text:
		return yield(Outbound{Message: string(r)}, nil)
	case Tuple:
		return yield(normalizeTuple(r, withTarget))
	default:
		return yield(nil, fmt.Errorf("%w: %T", ErrResultShape, res))
	}
}

func normalizeTuple(t Tuple, withTarget bool) (Action, error) {
	items := []any(t)
	getTarget := withTarget

	var (
		at        time.Time
		every     time.Duration
		scheduled bool
	)
	if len(items) > 0 {
		switch v := items[0].(type) {
		case time.Time:
			at, scheduled = v, true
		case time.Duration:
			every, scheduled = v, true
		}
	}
	if scheduled {
		items = items[1:]
		getTarget = len(items) == 0 || !isHandler(items[0])
	}

	var target string
	if getTarget {
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: tuple without target", ErrResultShape)
		}
		switch v := items[0].(type) {
		case nil:
		case string:
			target = v
		case Text:
			target = string(v)
		default:
			return nil, fmt.Errorf("%w: target of type %T", ErrResultShape, items[0])
		}
		items = items[1:]
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: tuple without message", ErrResultShape)
	}

	head := items[0]
	last := len(items) - 1

	var args []any
	if last > 1 {
		args = append(args, items[1:last]...)
	}
	kwargs := map[string]any{}
	if last > 0 {
		if kw, ok := items[last].(map[string]any); ok {
			kwargs = kw
		} else {
			args = append(args, items[last])
		}
	}

	if scheduled {
		timer := &Timer{At: at, Every: every, Target: target, Args: args, Kwargs: kwargs}
		if !at.IsZero() {
			timer.Count = 1
		}
		switch h := head.(type) {
		case Handler:
			timer.Handler = h
		case func(*Match) Result:
			timer.Handler = h
		case string:
			timer.Message = h
		case Text:
			timer.Message = string(h)
		default:
			return nil, fmt.Errorf("%w: timer payload of type %T", ErrResultShape, head)
		}
		return timer, nil
	}

	var message string
	switch h := head.(type) {
	case string:
		message = h
	case Text:
		message = string(h)
	default:
		return nil, fmt.Errorf("%w: message of type %T", ErrResultShape, head)
	}

	return Outbound{Target: target, Message: message, Args: args, Kwargs: kwargs}, nil
}

func isHandler(v any) bool {
	switch v.(type) {
	case Handler, func(*Match) Result:
		return true
	}
	return false
}
