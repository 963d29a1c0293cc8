package command

import (
	"time"

	"github.com/Gwildor/Pyromancer/internal/irc"
	"github.com/Gwildor/Pyromancer/internal/state"
)

type sent struct {
	target string
	text   string
}

type fakeConn struct {
	msgs []sent
	raw  []string
}

func (c *fakeConn) Msg(target, text string) error {
	c.msgs = append(c.msgs, sent{target: target, text: text})
	return nil
}

func (c *fakeConn) Write(line string) error {
	c.raw = append(c.raw, line)
	return nil
}

type prefix string

func (p prefix) CommandPrefix() string {
	return string(p)
}

func newContext(p string) (*Context, *fakeConn) {
	conn := &fakeConn{}
	return &Context{
		Conn:     conn,
		Store:    state.NewStore(),
		Timers:   NewScheduler(),
		Settings: prefix(p),
	}, conn
}

func parse(raw string) *irc.Line {
	return irc.Parse(raw, time.Now(), nil)
}
