package builtin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Gwildor/Pyromancer/internal/command"
	"github.com/Gwildor/Pyromancer/internal/routing"
	"github.com/Gwildor/Pyromancer/internal/storage"
)

var (
	regexChars  = regexp.MustCompile(`[+|*()[\]]`)
	serverChars = regexp.MustCompile(`[^\w-]`)
)

func (b *Builtin) help(m *command.Match) command.Result {
	b.audit(m, "help")
	p := b.cfg.CommandPrefix()

	lines := []string{
		"Available commands:",
		p + "summary - displays a summary of the linked servers",
		p + "links - shows all currently linked servers as a tree",
		p + "uplinks <server> - shows the hubs a server should link to",
		p + "logs - displays the last 10 server notices",
		p + "logs <number> - displays the last given number of notices",
		p + "logsearch <text> - searches the server notices",
		p + "motd - displays the message of the day",
		p + "version - displays bot version information",
	}
	if b.isAdmin(m) {
		lines = append(lines,
			" ",
			"Admin commands:",
			p+"set motd <message>",
			p+"stats - displays the last 10 commands issued",
			p+"reload - reloads the server map",
			p+"nick <newnick> - changes my nick",
			p+"restart",
			p+"shutdown",
			p+"logout",
		)
	}
	return tell(nickOf(m), lines...)
}

func (b *Builtin) version(m *command.Match) command.Result {
	b.audit(m, "version")
	return tell(nickOf(m),
		"pyromancer version "+Version,
		"Built: "+BuildDate,
		"Commit: "+GitCommit,
	)
}

func (b *Builtin) showMotd(m *command.Match) command.Result {
	b.audit(m, "motd")
	if b.motd.IsZero() {
		return tell(nickOf(m), "No MOTD has been set")
	}
	return tell(nickOf(m), b.motd.Message, "MOTD set by "+b.motd.Setter)
}

func (b *Builtin) showLogs(m *command.Match) command.Result {
	b.audit(m, strings.TrimSpace("logs "+m.Get(1)))

	count := defaultLogCount
	if n, err := strconv.Atoi(m.Get(1)); err == nil && n > 0 {
		count = n
	}
	count = min(count, len(b.logs))

	lines := []string{fmt.Sprintf("The last \x02%d\x02 server notices:", count)}
	lines = append(lines, b.logs[:count]...)
	return tell(nickOf(m), lines...)
}

func (b *Builtin) searchLogs(m *command.Match) command.Result {
	term := strings.TrimSpace(m.Get(1))
	b.audit(m, strings.TrimSpace("logsearch "+term))

	nick := nickOf(m)
	if term == "" {
		return tell(nick, "Please specify a string to search for")
	}
	if regexChars.MatchString(term) {
		return tell(nick, "Please try searching without regular expression characters - *+()|[]")
	}

	lines := []string{fmt.Sprintf("Displaying search results for %q:", term)}
	for _, entry := range storage.Search(b.logs, term) {
		lines = append(lines, "    "+entry)
	}
	lines = append(lines, "End of matches")
	return tell(nick, lines...)
}

// requestLinks asks the server for LINKS; 364 and 365 complete the request.
func (b *Builtin) requestLinks(m *command.Match) command.Result {
	b.audit(m, m.Get(1))
	b.reloadMap()

	b.links = &linksRequest{
		target:  nickOf(m),
		summary: m.Get(1) == "summary",
		tree:    routing.NewTree(),
	}
	_ = m.Write("LINKS")
	return nil
}

func (b *Builtin) collectLink(m *command.Match) command.Result {
	if b.links == nil {
		return nil
	}
	if l, ok := routing.ParseLink(m.Line.Tokens); ok {
		b.links.tree.Add(l)
	}
	return nil
}

func (b *Builtin) endLinks(m *command.Match) command.Result {
	req := b.links
	b.links = nil
	if req == nil || req.target == "" {
		return nil
	}

	var lines []string
	if !req.summary {
		lines = append(lines, req.tree.Build()...)
		lines = append(lines,
			"End of server list.",
			fmt.Sprintf("Note - the map displayed above is the network as viewed from my server, %s", m.Line.Source),
		)
	}
	lines = append(lines, req.tree.Summary().String())

	if len(b.servers.ServerList) > 0 {
		total, linked, missing := routing.Missing(req.tree, b.servers)
		lines = append(lines,
			fmt.Sprintf("Expected servers: %d", total),
			fmt.Sprintf("Linked servers: %d", linked),
		)
		if len(missing) > 0 {
			lines = append(lines, fmt.Sprintf("Missing servers: %s (%d)", strings.Join(missing, ", "), len(missing)))
		} else {
			lines = append(lines, "No servers are currently missing")
		}
	}

	if !b.motd.IsZero() {
		lines = append(lines, " ", "[MOTD] "+b.motd.Message, "MOTD set by "+b.motd.Setter)
	}
	return tell(req.target, lines...)
}

func (b *Builtin) uplinks(m *command.Match) command.Result {
	b.audit(m, strings.TrimSpace("uplinks "+m.Get(1)))
	nick := nickOf(m)

	server := m.Get(1)
	if server == "" {
		lines := make([]string, 0, len(b.servers.ServerList))
		for _, name := range b.servers.ServerList {
			lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(b.servers.Servers[name], " ")))
		}
		if len(lines) == 0 {
			return tell(nick, "No server map loaded")
		}
		return tell(nick, lines...)
	}

	if idx := strings.Index(server, "."); idx > 0 {
		server = server[:idx]
	}
	server = serverChars.ReplaceAllString(server, "")

	name, hubs, ok := b.servers.Uplinks(server)
	if !ok || server == "" {
		return tell(nick, "No such server found")
	}
	return tell(nick, fmt.Sprintf("%s: %s", name, strings.Join(hubs, " ")))
}
