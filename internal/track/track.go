// Package track keeps the store in step with the server: who is in which
// channel, under which nick, with which ident, host, real name and account.
package track

import (
	"strings"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/Gwildor/Pyromancer/internal/command"
	"github.com/Gwildor/Pyromancer/internal/state"
)

// namePrefixes are the status characters a 353 reply puts before nicks.
const namePrefixes = ":!~&@%+"

const whoisCacheSize = 4096

// Tracker holds the handlers' shared state: the nicks recently sent a
// WHOIS, so a netjoin does not flood the server with queries.
type Tracker struct {
	whois *otter.Cache[string, time.Time]
}

// New remembers WHOIS queries for ttl.
func New(ttl time.Duration) *Tracker {
	return &Tracker{
		whois: otter.Must(&otter.Options[string, time.Time]{
			MaximumSize:      whoisCacheSize,
			ExpiryCalculator: otter.ExpiryWriting[string, time.Time](ttl),
		}),
	}
}

// Commands returns the tracking handlers. They should be registered before
// anything that reads the store.
func (t *Tracker) Commands() []command.Command {
	return []command.Command{
		{ID: "track.join", Spec: command.MustNew(command.Verb("JOIN")), Handler: t.join},
		{ID: "track.part", Spec: command.MustNew(command.Verb("PART")), Handler: t.part},
		{ID: "track.kick", Spec: command.MustNew(command.Verb("KICK")), Handler: t.kick},
		{ID: "track.quit", Spec: command.MustNew(command.Verb("QUIT")), Handler: t.quit},
		{ID: "track.nick", Spec: command.MustNew(command.Verb("NICK")), Handler: t.nick},
		{ID: "track.names", Spec: command.MustNew(command.Code(353)), Handler: t.names},
		{ID: "track.who", Spec: command.MustNew(command.Code(352)), Handler: t.who},
		{ID: "track.whois", Spec: command.MustNew(command.Code(311)), Handler: t.whoisUser},
		{ID: "track.account", Spec: command.MustNew(command.Code(330)), Handler: t.account},
	}
}

func (t *Tracker) join(m *command.Match) command.Result {
	line := m.Line
	if line.Channel == nil || line.Sender.Nick == "" {
		return nil
	}

	if m.Store.IsMe(line.Sender) {
		_, c := m.Store.Join(line.Sender, line.Channel)
		_ = m.Write("WHO %s", c.Name)
		return nil
	}

	u, _ := m.Store.Join(line.Sender, line.Channel)
	u.Fill(state.ParseIdentity(line.Source))
	t.lookup(m, u)
	return nil
}

// lookup sends a WHOIS for users without a known account, at most once per
// nick while the cache remembers it.
func (t *Tracker) lookup(m *command.Match, u *state.User) {
	if u.Account != "" || u.Nick == "" || m.Store.IsMe(u) {
		return
	}
	if _, asked := t.whois.GetIfPresent(u.Nick); asked {
		return
	}
	t.whois.Set(u.Nick, m.Line.Time)
	_ = m.Write("WHOIS %s", u.Nick)
}

func (t *Tracker) part(m *command.Match) command.Result {
	line := m.Line
	if line.Channel == nil {
		return nil
	}
	if m.Store.IsMe(line.Sender) {
		m.Store.Forget(line.Channel)
		return nil
	}
	m.Store.Part(line.Sender, line.Channel)
	return nil
}

// :op!u@h KICK #chan victim :reason
func (t *Tracker) kick(m *command.Match) command.Result {
	line := m.Line
	victim := line.Word(3)
	if line.Channel == nil || victim == "" {
		return nil
	}

	u, ok := m.Store.User(victim)
	if !ok {
		return nil
	}
	if m.Store.IsMe(u) {
		m.Store.Forget(line.Channel)
		return nil
	}
	m.Store.Kick(line.Channel, u)
	return nil
}

func (t *Tracker) quit(m *command.Match) command.Result {
	t.whois.Invalidate(m.Line.Sender.Nick)
	m.Store.Quit(m.Line.Sender)
	return nil
}

// :old!u@h NICK :new
func (t *Tracker) nick(m *command.Match) command.Result {
	nick := strings.TrimPrefix(m.Line.Word(2), ":")
	if nick == "" {
		return nil
	}
	t.whois.Invalidate(m.Line.Sender.Nick)
	m.Store.Rename(m.Line.Sender, nick)
	return nil
}

// :srv 353 me = #chan :nick @op +voice
func (t *Tracker) names(m *command.Match) command.Result {
	line := m.Line
	if line.Len() < 6 {
		return nil
	}

	words := line.Words(5)
	nicks := make([]string, 0, len(words))
	for _, w := range words {
		nicks = append(nicks, strings.TrimLeft(w, namePrefixes))
	}
	m.Store.Names(line.Word(4), nicks)
	for _, nick := range nicks {
		if u, ok := m.Store.User(nick); ok {
			t.lookup(m, u)
		}
	}
	return nil
}

// :srv 352 me #chan ident host server nick flags :hops real name
func (t *Tracker) who(m *command.Match) command.Result {
	line := m.Line
	if line.Len() < 9 {
		return nil
	}

	u := m.Store.AddUser(m.Store.ResolveUser(line.Word(7)))
	u.Ident = line.Word(4)
	u.Host = line.Word(5)
	if words := line.Words(10); words != nil {
		u.RealName = strings.Join(words, " ")
	}

	if channel := line.Word(3); state.IsChannel(channel) {
		m.Store.Join(u, m.Store.ResolveChannel(channel))
	}
	return nil
}

// :srv 311 me nick ident host * :real name
func (t *Tracker) whoisUser(m *command.Match) command.Result {
	line := m.Line
	u, ok := m.Store.User(line.Word(3))
	if !ok || line.Len() < 6 {
		return nil
	}

	u.Ident = line.Word(4)
	u.Host = line.Word(5)
	if words := line.Words(7); words != nil {
		u.RealName = strings.TrimPrefix(strings.Join(words, " "), ":")
	}
	return nil
}

// :srv 330 me nick account :is logged in as
func (t *Tracker) account(m *command.Match) command.Result {
	u, ok := m.Store.User(m.Line.Word(3))
	if !ok {
		return nil
	}
	u.Account = m.Line.Word(4)
	return nil
}
