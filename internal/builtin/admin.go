package builtin

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/Gwildor/Pyromancer/internal/command"
	"github.com/Gwildor/Pyromancer/internal/state"
	"github.com/Gwildor/Pyromancer/internal/storage"
)

const statsShown = 10

func (b *Builtin) login(m *command.Match) command.Result {
	nick := nickOf(m)
	password := m.Get(1)

	switch {
	case !m.Line.Private:
		return tell(nick, "Please log in with a private message")
	case password == "":
		return tell(nick, fmt.Sprintf("Usage: %slogin <password>", b.cfg.CommandPrefix()))
	case b.cfg.AdminPass == "" ||
		subtle.ConstantTimeCompare([]byte(password), []byte(b.cfg.AdminPass)) != 1:
		b.audit(m, "INCORRECT LOGIN ATTEMPT")
		return tell(nick, "Password incorrect")
	}

	id := state.ParseIdentity(m.Line.Source)
	u := m.Store.AddUser(m.Sender())
	u.Ident, u.Host = id.Ident, id.Host
	b.admins[u] = true

	b.audit(m, "successful login")
	return tell(nick, fmt.Sprintf("Password accepted, you are now an admin. Type %shelp for a list of admin-only commands", b.cfg.CommandPrefix()))
}

func (b *Builtin) logout(m *command.Match) command.Result {
	nick := nickOf(m)
	if !b.isAdmin(m) {
		b.audit(m, "tried to log out, but wasn't logged in")
		return tell(nick, "You're not logged in!")
	}

	delete(b.admins, m.Sender())
	b.audit(m, "logged out")
	return tell(nick, "You have been logged out")
}

func (b *Builtin) setMotd(m *command.Match) command.Result {
	nick := nickOf(m)
	if !b.isAdmin(m) {
		b.audit(m, "tried to change MOTD but wasn't logged in")
		return tell(nick, "Sorry, only my admins can change the motd")
	}

	message := strings.TrimSpace(m.Get(1))
	if message == "" {
		return tell(nick, fmt.Sprintf("Usage: %sset motd <message>", b.cfg.CommandPrefix()))
	}

	motd := &storage.MOTD{
		Setter:  fmt.Sprintf("%s on %s", nick, m.Line.Time.UTC().Format(auditTime)),
		Message: message,
	}
	if err := b.files.SaveMOTD(motd); err != nil {
		b.log.Error("Error saving MOTD", err)
		return tell(nick, fmt.Sprintf("Error saving MOTD: %v", err))
	}
	b.motd = motd

	b.audit(m, fmt.Sprintf("changed MOTD to %q", message))
	return tell(nick, fmt.Sprintf("MOTD has been set to %q", message))
}

func (b *Builtin) showStats(m *command.Match) command.Result {
	nick := nickOf(m)
	if !b.isAdmin(m) {
		return tell(nick, "Sorry, only my admins can see the stats")
	}

	shown := b.stats[max(0, len(b.stats)-statsShown):]
	lines := append([]string{fmt.Sprintf("The last \x02%d\x02 commands:", len(shown))}, shown...)
	return tell(nick, lines...)
}

func (b *Builtin) reload(m *command.Match) command.Result {
	nick := nickOf(m)
	if !b.isAdmin(m) {
		b.audit(m, "tried to reload the server map, but wasn't logged in")
		return tell(nick, "Sorry, only my admins can issue that command")
	}

	b.reloadMap()
	b.audit(m, "reloaded server map")
	return tell(nick, fmt.Sprintf("Server map reloaded, %d servers", len(b.servers.ServerList)))
}

func (b *Builtin) changeNick(m *command.Match) command.Result {
	nick := nickOf(m)
	newNick := m.Get(1)

	if !b.isAdmin(m) {
		b.audit(m, fmt.Sprintf("nick change command to %s, not logged in", newNick))
		return tell(nick, "Sorry, only my admins can change my nick")
	}
	if newNick == "" {
		return tell(nick, fmt.Sprintf("Usage: %snick <newnick>", b.cfg.CommandPrefix()))
	}

	_ = m.Write("NICK %s", newNick)
	b.audit(m, fmt.Sprintf("nick change command to %s", newNick))
	return command.T(m.Line.Time.Add(exitDelay), nick, "Changed nick to {}", newNick)
}

func (b *Builtin) restart(m *command.Match) command.Result {
	return b.exit(m, "restart", "Restarting", b.OnRestart)
}

func (b *Builtin) shutdown(m *command.Match) command.Result {
	return b.exit(m, "shut down", "Shutting down", b.OnShutdown)
}

// exit replies, then runs fn from a timer so the reply is sent first.
func (b *Builtin) exit(m *command.Match, verb, reply string, fn func()) command.Result {
	nick := nickOf(m)
	if !b.isAdmin(m) {
		b.audit(m, fmt.Sprintf("issued the %s command but wasn't logged in", verb))
		return tell(nick, fmt.Sprintf("Sorry, only my admins can %s me", verb))
	}

	b.audit(m, verb+" command")
	return command.Seq{
		tell(nick, reply),
		&command.Timer{
			At:    m.Line.Time.Add(exitDelay),
			Count: 1,
			Handler: func(*command.Match) command.Result {
				if fn != nil {
					fn()
				}
				return nil
			},
		},
	}
}
