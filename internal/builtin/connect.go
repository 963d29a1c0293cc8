package builtin

import (
	"fmt"
	"strings"

	"github.com/Gwildor/Pyromancer/internal/command"
	"github.com/Gwildor/Pyromancer/internal/storage"
)

// connect runs once, at the end of the server MOTD (or its absence).
func (b *Builtin) connect(m *command.Match) command.Result {
	if b.ready {
		return nil
	}
	b.ready = true

	me := m.Line.Word(2)
	b.log.Info("Connected to IRC server", "nick", me)

	if b.cfg.NickPass != "" {
		_ = m.Write("PRIVMSG NickServ :IDENTIFY %s %s", b.cfg.Nick, b.cfg.NickPass)
	}
	if b.cfg.OperNick != "" && b.cfg.OperPass != "" {
		_ = m.Write("OPER %s %s", b.cfg.OperNick, b.cfg.OperPass)
	}
	for _, mode := range b.cfg.UserModes {
		_ = m.Write("MODE %s %s", me, mode)
	}
	for _, channel := range b.cfg.Channels {
		_ = m.Write("JOIN %s", channel)
	}

	b.log.Info("Bot initialization complete")
	return nil
}

// nickRefused switches to the alternate nick, then asks NickServ to free
// the configured one and takes it back.
//
//	:irc.example.net 433 * Pyro :Nickname is already in use
func (b *Builtin) nickRefused(service string) command.Handler {
	return func(m *command.Match) command.Result {
		refused := m.Line.Word(3)
		if b.cfg.Alternate == "" || refused == b.cfg.Alternate {
			b.log.Warn("Nick refused and no alternate left", "nick", refused)
			return nil
		}

		b.log.Info("Nick refused, switching to alternate", "nick", refused, "alternate", b.cfg.Alternate)
		_ = m.Write("NICK %s", b.cfg.Alternate)

		var out command.Seq
		if b.cfg.NickPass != "" {
			out = append(out, &command.Timer{
				At:    m.Line.Time.Add(nickRecoverWait),
				Count: 1,
				Handler: func(t *command.Match) command.Result {
					_ = t.Write("PRIVMSG NickServ :%s %s %s", service, b.cfg.Nick, b.cfg.NickPass)
					return nil
				},
			})
		}
		out = append(out, &command.Timer{
			At:    m.Line.Time.Add(nickReclaimWait),
			Count: 1,
			Handler: func(t *command.Match) command.Result {
				_ = t.Write("NICK %s", b.cfg.Nick)
				return nil
			},
		})
		return out
	}
}

func (b *Builtin) ctcpVersion(m *command.Match) command.Result {
	if m.Line.Notice {
		return nil
	}
	_ = m.Write("NOTICE %s :\x01VERSION %s\x01", nickOf(m), versionString())
	return nil
}

// serverNotice keeps "*** ..." notices sent by servers once we are
// registered, newest first.
func (b *Builtin) serverNotice(m *command.Match) command.Result {
	line := m.Line
	if !line.Notice || line.Sender.Nick != "" || m.Store.Me() == nil {
		return nil
	}

	server := line.Source
	if idx := strings.Index(server, "."); idx > 0 {
		server = server[:idx]
	}

	entry := fmt.Sprintf("[%s] [%s]: %s", line.Time.UTC().Format(logTime), server, m.Get(1))
	b.logs = storage.AddLog(b.logs, entry)

	if err := b.files.SaveLogs(b.logs); err != nil {
		b.log.Error("Error saving logs", err)
	}
	return nil
}

func (b *Builtin) quit(m *command.Match) command.Result {
	delete(b.admins, m.Sender())
	return nil
}
