package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Gwildor/Pyromancer/internal/command"
	"github.com/Gwildor/Pyromancer/internal/config"
	"github.com/Gwildor/Pyromancer/internal/irc"
	"github.com/Gwildor/Pyromancer/internal/logger"
	"github.com/Gwildor/Pyromancer/internal/metrics"
	"github.com/Gwildor/Pyromancer/internal/state"
)

// Bot is the dispatch loop. It owns the store and the scheduler; both are
// only touched from the goroutine running Run (or calling Tick).
type Bot struct {
	cfg *config.Config
	log logger.Logger
	ctx *command.Context

	commands  []command.Command
	connected time.Time

	snapshot atomic.Pointer[state.Snapshot]
	now      func() time.Time
}

func New(cfg *config.Config, log logger.Logger, conn command.Conn) *Bot {
	b := &Bot{
		cfg: cfg,
		log: log,
		ctx: &command.Context{
			Conn:     conn,
			Store:    state.NewStore(),
			Timers:   command.NewScheduler(),
			Settings: cfg,
		},
		now: time.Now,
	}
	b.snapshot.Store(b.ctx.Store.Snapshot())
	return b
}

// Register appends commands in order. Commands switched off in the
// configuration are skipped.
func (b *Bot) Register(cmds ...command.Command) {
	for _, c := range cmds {
		if b.cfg.Disabled(c.ID) {
			b.log.Info("Command disabled", "command", c.ID)
			continue
		}
		b.commands = append(b.commands, c)
		b.log.Trace("Command registered", "command", c.ID)
	}
}

// Commands returns the registered commands in dispatch order.
func (b *Bot) Commands() []command.Command {
	return append([]command.Command(nil), b.commands...)
}

// Verbs lists the verb commands the registered handlers match on, for the
// transport to forward.
func (b *Bot) Verbs() []string {
	var verbs []string
	for _, c := range b.commands {
		if v := c.Spec.Verb(); v != "" && !slices.Contains(verbs, v) {
			verbs = append(verbs, v)
		}
	}
	return verbs
}

func (b *Bot) Context() *command.Context {
	return b.ctx
}

func (b *Bot) Store() *state.Store {
	return b.ctx.Store
}

func (b *Bot) Timers() *command.Scheduler {
	return b.ctx.Timers
}

// Connected is when the server welcomed us, zero before that.
func (b *Bot) Connected() time.Time {
	return b.connected
}

// Snapshot is the store as of the end of the last tick. Safe for any
// goroutine.
func (b *Bot) Snapshot() *state.Snapshot {
	return b.snapshot.Load()
}

// Schedule registers the timers of the configuration file. A fixed point
// without a count fires once.
func (b *Bot) Schedule(timers []config.Timer) error {
	var errs []error
	for i, t := range timers {
		timer := &command.Timer{
			At:        t.At,
			Every:     t.Every,
			Immediate: t.Immediate,
			Count:     t.Count,
			Target:    t.Target,
			Message:   t.Message,
		}
		if !t.At.IsZero() && t.Count == 0 {
			timer.Count = 1
		}
		if err := b.ctx.Timers.Add(timer); err != nil {
			errs = append(errs, fmt.Errorf("timers[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Process parses one raw line and runs it through every command in
// registration order. All matching commands run; their errors are joined.
func (b *Bot) Process(raw string, now time.Time) error {
	raw = strings.TrimRight(raw, "\r\n")
	if raw == "" {
		return nil
	}

	line := irc.Parse(raw, now, b.ctx.Store)
	metrics.LinesReceived.WithLabelValues(line.Kind.String()).Inc()
	b.log.Trace("Line received", "kind", line.Kind.String(), "line", raw)

	var errs []error
	if len(line.Tokens) > 1 && line.Tokens[0] == "PING" {
		if err := b.ctx.Conn.Write("PONG " + line.Tokens[1]); err != nil {
			errs = append(errs, fmt.Errorf("pong: %w", err))
		}
	}

	if line.Kind == irc.NumericReply && line.Code == 1 && len(line.Tokens) > 2 {
		b.welcome(line.Tokens[2], now)
	}

	for _, c := range b.commands {
		ran, err := c.Dispatch(b.ctx, line)
		if ran {
			metrics.HandlerRuns.WithLabelValues(c.ID).Inc()
		}
		if err != nil {
			metrics.DispatchErrors.WithLabelValues("handler").Inc()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) welcome(nick string, now time.Time) {
	b.connected = now
	b.ctx.Store.SetMe(state.NewUser(nick))
	metrics.Connected.Set(1)
	b.log.Info("Registered with server", "nick", nick)
}

// Tick drains every line available on lines, then evaluates the timers once
// and publishes a fresh snapshot. Timers wait until the server welcomed us.
func (b *Bot) Tick(lines <-chan string, now time.Time) error {
	start := time.Now()
	var errs []error

drain:
	for {
		select {
		case raw, ok := <-lines:
			if !ok {
				break drain
			}
			if err := b.Process(raw, b.now()); err != nil {
				errs = append(errs, err)
			}
		default:
			break drain
		}
	}

	if !b.connected.IsZero() {
		fired, err := b.ctx.Timers.Evaluate(b.ctx, now, b.connected)
		metrics.TimersFired.Add(float64(fired))
		if err != nil {
			metrics.DispatchErrors.WithLabelValues("timer").Inc()
			errs = append(errs, err)
		}
	}

	b.publish()
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	return errors.Join(errs...)
}

func (b *Bot) publish() {
	users, channels := b.ctx.Store.Len()
	metrics.TrackedUsers.Set(float64(users))
	metrics.TrackedChannels.Set(float64(channels))
	metrics.TimersPending.Set(float64(b.ctx.Timers.Len()))
	b.snapshot.Store(b.ctx.Store.Snapshot())
}

// Run ticks every 1/ticks of a second until ctx is cancelled. Errors are
// logged and the loop carries on.
func (b *Bot) Run(ctx context.Context, lines <-chan string) error {
	ticker := time.NewTicker(b.cfg.TickInterval())
	defer ticker.Stop()

	b.log.Info("Dispatch loop started", "commands", len(b.commands), "ticks", b.cfg.Ticks)

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Dispatch loop stopped")
			return nil
		case <-ticker.C:
			if err := b.Tick(lines, b.now()); err != nil {
				b.log.Error("Dispatch failed", err)
			}
		}
	}
}
