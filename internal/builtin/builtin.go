// Package builtin holds the bot's own commands: connection setup, nick
// recovery, CTCP, the server notice log, admin sessions and the informational
// commands built on the data directory.
package builtin

import (
	"fmt"
	"time"

	"github.com/Gwildor/Pyromancer/internal/command"
	"github.com/Gwildor/Pyromancer/internal/config"
	"github.com/Gwildor/Pyromancer/internal/logger"
	"github.com/Gwildor/Pyromancer/internal/routing"
	"github.com/Gwildor/Pyromancer/internal/state"
	"github.com/Gwildor/Pyromancer/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	auditTime = "Mon Jan 02, 2006 at 15:04:05 GMT"
	logTime   = "Mon Jan 02, 2006 15:04:05 GMT"

	defaultLogCount = 10
	nickRecoverWait = 15 * time.Second
	nickReclaimWait = 17 * time.Second
	exitDelay       = time.Second
)

// Builtin is the state shared by the built-in commands. Like the store it
// is only used from the dispatch loop.
type Builtin struct {
	cfg   *config.Config
	log   logger.Logger
	files *storage.Files

	logs    []string
	stats   []string
	motd    *storage.MOTD
	servers *routing.Map

	// admin sessions, keyed by the tracked user record so they follow
	// nick changes
	admins map[*state.User]bool

	links *linksRequest
	ready bool

	OnShutdown func()
	OnRestart  func()
}

type linksRequest struct {
	target  string
	summary bool
	tree    *routing.Tree
}

// New loads the data directory. Unreadable files are logged and start
// empty.
func New(cfg *config.Config, log logger.Logger, files *storage.Files) *Builtin {
	b := &Builtin{
		cfg:    cfg,
		log:    log,
		files:  files,
		admins: make(map[*state.User]bool),
	}

	var err error
	if b.logs, err = files.LoadLogs(); err != nil {
		log.Warn("Could not load logs", "error", err)
	}
	if b.stats, err = files.LoadStats(); err != nil {
		log.Warn("Could not load stats", "error", err)
	}
	if b.motd, err = files.LoadMOTD(); err != nil {
		log.Warn("Could not load MOTD", "error", err)
		b.motd = &storage.MOTD{}
	}
	b.reloadMap()

	return b
}

// Commands returns the built-in commands in registration order.
func (b *Builtin) Commands() []command.Command {
	return []command.Command{
		{ID: "builtin.connect", Spec: command.MustNew(command.Code(376)), Handler: b.connect},
		{ID: "builtin.nomotd", Spec: command.MustNew(command.Code(422)), Handler: b.connect},
		{ID: "builtin.nickheld", Spec: command.MustNew(command.Code(432)), Handler: b.nickRefused("RELEASE")},
		{ID: "builtin.nickinuse", Spec: command.MustNew(command.Code(433)), Handler: b.nickRefused("GHOST")},
		{ID: "builtin.ctcp", Spec: command.MustNew(command.Pattern(`^\x01VERSION\x01?$`), command.NoPrefix()), Handler: b.ctcpVersion},
		{ID: "builtin.notice", Spec: command.MustNew(command.Pattern(`^\*\*\* (.+)`), command.NoPrefix()), Handler: b.serverNotice},
		{ID: "builtin.quit", Spec: command.MustNew(command.Verb("QUIT")), Handler: b.quit},

		{ID: "builtin.help", Spec: command.MustNew(command.Pattern(`^help$`)), Handler: b.help},
		{ID: "builtin.version", Spec: command.MustNew(command.Pattern(`^version$`)), Handler: b.version},
		{ID: "builtin.motd", Spec: command.MustNew(command.Pattern(`^motd$`)), Handler: b.showMotd},
		{ID: "builtin.logs", Spec: command.MustNew(command.Pattern(`^logs(?: (\d+))?$`)), Handler: b.showLogs},
		{ID: "builtin.logsearch", Spec: command.MustNew(command.Pattern(`^logsearch(?: (.*))?$`)), Handler: b.searchLogs},
		{ID: "builtin.links", Spec: command.MustNew(command.Pattern(`^(links|summary)$`)), Handler: b.requestLinks},
		{ID: "builtin.linkline", Spec: command.MustNew(command.Code(364)), Handler: b.collectLink},
		{ID: "builtin.linksend", Spec: command.MustNew(command.Code(365)), Handler: b.endLinks},
		{ID: "builtin.uplinks", Spec: command.MustNew(command.Pattern(`^uplinks(?: (\S+))?$`)), Handler: b.uplinks},

		{ID: "builtin.login", Spec: command.MustNew(command.Pattern(`^(?:login|su)(?: (\S+))?$`)), Handler: b.login},
		{ID: "builtin.logout", Spec: command.MustNew(command.Pattern(`^logout$`)), Handler: b.logout},
		{ID: "builtin.setmotd", Spec: command.MustNew(command.Pattern(`^set motd(?: (.*))?$`)), Handler: b.setMotd},
		{ID: "builtin.stats", Spec: command.MustNew(command.Pattern(`^stats$`)), Handler: b.showStats},
		{ID: "builtin.reload", Spec: command.MustNew(command.Pattern(`^reload$`)), Handler: b.reload},
		{ID: "builtin.nick", Spec: command.MustNew(command.Pattern(`^nick(?: (\S+))?$`)), Handler: b.changeNick},
		{ID: "builtin.restart", Spec: command.MustNew(command.Pattern(`^restart$`)), Handler: b.restart},
		{ID: "builtin.shutdown", Spec: command.MustNew(command.Pattern(`^shutdown$`)), Handler: b.shutdown},
	}
}

// tell sends every line privately to nick, verbatim.
func tell(nick string, lines ...string) command.Result {
	out := make(command.Seq, 0, len(lines))
	for _, line := range lines {
		out = append(out, command.T("{}", line, map[string]any{"target": nick}))
	}
	return out
}

func nickOf(m *command.Match) string {
	if u := m.Sender(); u != nil {
		return u.Nick
	}
	return ""
}

// audit appends to the command trail (stats.txt).
func (b *Builtin) audit(m *command.Match, what string) {
	entry := fmt.Sprintf("%s: %s -> %s", m.Line.Time.UTC().Format(auditTime), m.Line.Source, what)
	b.stats = storage.AddStat(b.stats, entry)

	if err := b.files.SaveStats(b.stats); err != nil {
		b.log.Error("Error saving stats", err)
	}
}

// isAdmin checks the session and that the line still comes from the host
// the session was opened from.
func (b *Builtin) isAdmin(m *command.Match) bool {
	u := m.Sender()
	if u == nil || !b.admins[u] {
		return false
	}
	return state.ParseIdentity(m.Line.Source).Host == u.Host
}

func (b *Builtin) reloadMap() {
	servers, err := routing.LoadMap(b.files.Dir())
	if err != nil {
		b.log.Warn("Could not load server map", "error", err)
		servers = &routing.Map{Servers: make(map[string][]string)}
	}
	b.servers = servers
}

func versionString() string {
	return fmt.Sprintf("pyromancer %s (built %s, commit %s)", Version, BuildDate, GitCommit)
}
