package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircfmt"
	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/time/rate"

	"github.com/Gwildor/Pyromancer/internal/config"
	"github.com/Gwildor/Pyromancer/internal/logger"
	"github.com/Gwildor/Pyromancer/internal/metrics"
)

const (
	inboundBuffer  = 1024
	outboundBuffer = 512
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrQueueFull = errors.New("outbound queue full")
)

// forwarded are the verbs every bot needs to see. Numerics 001-999 are
// always forwarded; Listen adds more verbs.
var forwarded = []string{
	"PRIVMSG", "NOTICE", "PING", "ERROR",
	"JOIN", "PART", "KICK", "QUIT", "NICK",
	"MODE", "TOPIC", "INVITE", "KILL",
}

// Client is the transport. ircevent owns the socket and registration; every
// line it reads is handed to the dispatch loop through Lines, and every line
// written goes through a rate limited queue.
type Client struct {
	conn    *ircevent.Connection
	log     logger.Logger
	limiter *rate.Limiter

	lines chan string
	out   chan string

	mu        sync.Mutex
	closed    bool
	done      chan struct{}
	listening map[string]bool
}

// NewClient creates a new IRC client
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	c := &Client{
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
		lines:   make(chan string, inboundBuffer),
		out:     make(chan string, outboundBuffer),
		done:    make(chan struct{}),

		listening: make(map[string]bool),
	}

	c.conn = &ircevent.Connection{
		Server:      fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		Nick:        cfg.Nick,
		User:        cfg.Username,
		RealName:    cfg.IRCName,
		Password:    cfg.ServerPass,
		QuitMessage: "Shutting down",
		UseTLS:      cfg.UseTLS,
		TLSConfig:   &tls.Config{ServerName: cfg.Server},
	}

	for code := 1; code <= 999; code++ {
		c.Listen(fmt.Sprintf("%03d", code))
	}
	c.Listen(forwarded...)

	return c
}

// Listen forwards lines with the given commands to Lines. ircevent only
// dispatches on exact command names, so every verb a handler matches on has
// to be listed here.
func (c *Client) Listen(commands ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, command := range commands {
		command = strings.ToUpper(command)
		if command == "" || c.listening[command] {
			continue
		}
		c.listening[command] = true
		c.conn.AddCallback(command, c.onLine)
	}
}

func (c *Client) onLine(e ircmsg.Message) {
	line, err := e.Line()
	if err != nil {
		c.log.Warn("Dropping unserializable line", "command", e.Command, "error", err)
		return
	}
	line = strings.TrimRight(line, "\r\n")

	select {
	case c.lines <- line:
	case <-c.done:
	}
}

// Lines yields raw inbound lines.
func (c *Client) Lines() <-chan string {
	return c.lines
}

// Done is closed once the client quit or the connection loop ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Msg sends text to target as PRIVMSG, one line per line of text.
func (c *Client) Msg(target, text string) error {
	for _, part := range strings.Split(text, "\n") {
		part = strings.TrimRight(part, "\r")
		if part == "" {
			continue
		}
		c.log.Debug("Sending message", "target", target, "text", ircfmt.Escape(part))
		if err := c.enqueue(fmt.Sprintf("PRIVMSG %s :%s", target, part)); err != nil {
			return err
		}
		metrics.MessagesSent.WithLabelValues("privmsg").Inc()
	}
	return nil
}

// Write sends a raw protocol line.
func (c *Client) Write(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil
	}
	c.log.Debug("Sending raw line", "line", ircfmt.Escape(line))
	if err := c.enqueue(line); err != nil {
		return err
	}
	metrics.MessagesSent.WithLabelValues("raw").Inc()
	return nil
}

func (c *Client) enqueue(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	select {
	case c.out <- line:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Client) writer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case line := <-c.out:
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			if err := c.conn.SendRaw(line); err != nil {
				c.log.Error("Failed to send line", err, "line", ircfmt.Escape(line))
			}
		}
	}
}

// Connect initiates the IRC connection
func (c *Client) Connect() error {
	return c.conn.Connect()
}

// Run starts the writer and runs the IRC event loop until the connection
// ends for good or ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	go c.writer(ctx)
	go func() {
		select {
		case <-ctx.Done():
			c.Quit("Shutting down")
		case <-c.done:
		}
	}()

	c.conn.Loop()
	c.close()
}

// CurrentNick is the nick the server knows us by.
func (c *Client) CurrentNick() string {
	return c.conn.CurrentNick()
}

// Quit disconnects from IRC
func (c *Client) Quit(message string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.conn.QuitMessage = message
	c.mu.Unlock()

	c.conn.Quit()
	c.close()
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
