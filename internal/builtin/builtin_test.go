package builtin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gwildor/Pyromancer/internal/command"
	"github.com/Gwildor/Pyromancer/internal/config"
	"github.com/Gwildor/Pyromancer/internal/irc"
	"github.com/Gwildor/Pyromancer/internal/logger"
	"github.com/Gwildor/Pyromancer/internal/state"
	"github.com/Gwildor/Pyromancer/internal/storage"
)

var now = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

type fakeConn struct {
	msgs []string
	raw  []string
}

func (c *fakeConn) Msg(target, text string) error {
	c.msgs = append(c.msgs, target+" "+text)
	return nil
}

func (c *fakeConn) Write(line string) error {
	c.raw = append(c.raw, line)
	return nil
}

func (c *fakeConn) reset() {
	c.msgs, c.raw = nil, nil
}

type fixture struct {
	t    *testing.T
	b    *Builtin
	ctx  *command.Context
	conn *fakeConn
	cmds []command.Command
}

const testConfig = `
nick: Pyro
alternate: Pyro_
nick_pass: secret
server: irc.example.net
admin_pass: hunter2
oper_nick: pyro
oper_pass: operpass
channels: ["#Chan", "#Other"]
user_modes: ["+i"]
`

func setup(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)

	files, err := storage.Open(t.TempDir())
	require.NoError(t, err)

	b := New(cfg, logger.Discard(), files)
	conn := &fakeConn{}
	store := state.NewStore()
	store.SetMe(state.NewUser("Pyro"))

	return &fixture{
		t:    t,
		b:    b,
		conn: conn,
		cmds: append(b.Commands(), Examples()...),
		ctx: &command.Context{
			Conn:     conn,
			Store:    store,
			Timers:   command.NewScheduler(),
			Settings: cfg,
		},
	}
}

func (f *fixture) feed(raw string) {
	f.t.Helper()
	line := irc.Parse(raw, now, f.ctx.Store)
	for _, c := range f.cmds {
		_, err := c.Dispatch(f.ctx, line)
		require.NoError(f.t, err, c.ID)
	}
}

func (f *fixture) evaluate(at time.Time) {
	f.t.Helper()
	_, err := f.ctx.Timers.Evaluate(f.ctx, at, now)
	require.NoError(f.t, err)
}

func (f *fixture) login() {
	f.t.Helper()
	f.feed(":John!john@example.com PRIVMSG Pyro :!login hunter2")
	require.True(f.t, f.b.admins[f.mustUser("John")])
	f.conn.reset()
}

func (f *fixture) mustUser(nick string) *state.User {
	u, ok := f.ctx.Store.User(nick)
	require.True(f.t, ok, nick)
	return u
}

func TestConnectRunsOnce(t *testing.T) {
	f := setup(t)

	f.feed(":irc.example.net 376 Pyro :End of /MOTD command.")
	f.feed(":irc.example.net 422 Pyro :MOTD File is missing")

	assert.Equal(t, []string{
		"PRIVMSG NickServ :IDENTIFY Pyro secret",
		"OPER pyro operpass",
		"MODE Pyro +i",
		"JOIN #Chan",
		"JOIN #Other",
	}, f.conn.raw)
}

func TestNickInUseReclaims(t *testing.T) {
	f := setup(t)

	f.feed(":irc.example.net 433 * Pyro :Nickname is already in use")
	assert.Equal(t, []string{"NICK Pyro_"}, f.conn.raw)
	assert.Equal(t, 2, f.ctx.Timers.Len())

	f.conn.reset()
	f.evaluate(now.Add(10 * time.Second))
	assert.Empty(t, f.conn.raw)

	f.evaluate(now.Add(15 * time.Second))
	assert.Equal(t, []string{"PRIVMSG NickServ :GHOST Pyro secret"}, f.conn.raw)

	f.evaluate(now.Add(17 * time.Second))
	assert.Equal(t, []string{"PRIVMSG NickServ :GHOST Pyro secret", "NICK Pyro"}, f.conn.raw)
	assert.Zero(t, f.ctx.Timers.Len())
}

func TestNickHeldUsesRelease(t *testing.T) {
	f := setup(t)

	f.feed(":irc.example.net 432 * Pyro :Nickname is held")
	f.evaluate(now.Add(20 * time.Second))

	assert.Equal(t, []string{"NICK Pyro_", "PRIVMSG NickServ :RELEASE Pyro secret", "NICK Pyro"}, f.conn.raw)
}

func TestAlternateRefusedGivesUp(t *testing.T) {
	f := setup(t)

	f.feed(":irc.example.net 433 * Pyro_ :Nickname is already in use")

	assert.Empty(t, f.conn.raw)
	assert.Zero(t, f.ctx.Timers.Len())
}

func TestCTCPVersion(t *testing.T) {
	f := setup(t)

	f.feed(":John!john@example.com PRIVMSG Pyro :\x01VERSION\x01")

	require.Len(t, f.conn.raw, 1)
	assert.True(t, strings.HasPrefix(f.conn.raw[0], "NOTICE John :\x01VERSION pyromancer dev"))
	assert.True(t, strings.HasSuffix(f.conn.raw[0], "\x01"))
}

func TestServerNoticesAreLogged(t *testing.T) {
	f := setup(t)

	f.feed(":hub.example.net NOTICE Pyro :*** Notice -- leaf.example.net split")
	f.feed(":John!john@example.com NOTICE Pyro :*** not a server")

	require.Len(t, f.b.logs, 1)
	assert.Equal(t, "[Wed May 01, 2024 20:00:00 GMT] [hub]: Notice -- leaf.example.net split", f.b.logs[0])

	saved, err := f.b.files.LoadLogs()
	require.NoError(t, err)
	assert.Equal(t, f.b.logs, saved)
}

func TestLogin(t *testing.T) {
	f := setup(t)

	f.feed(":John!john@example.com PRIVMSG #Chan :!login hunter2")
	f.feed(":John!john@example.com PRIVMSG Pyro :!login wrong")
	f.feed(":John!john@example.com PRIVMSG Pyro :!su hunter2")

	assert.Equal(t, []string{
		"John Please log in with a private message",
		"John Password incorrect",
		"John Password accepted, you are now an admin. Type !help for a list of admin-only commands",
	}, f.conn.msgs)
	assert.True(t, f.b.admins[f.mustUser("John")])
	require.Len(t, f.b.stats, 2)
	assert.Contains(t, f.b.stats[0], "John!john@example.com -> INCORRECT LOGIN ATTEMPT")
}

func TestSessionFollowsIdentity(t *testing.T) {
	f := setup(t)
	f.login()

	// rename keeps the session
	john := f.mustUser("John")
	f.ctx.Store.Rename(john, "Johnny")
	f.feed(":Johnny!john@example.com PRIVMSG Pyro :!stats")
	require.NotEmpty(t, f.conn.msgs)
	assert.True(t, strings.HasPrefix(f.conn.msgs[0], "Johnny The last"))

	// same nick, other host
	f.conn.reset()
	f.feed(":Johnny!evil@elsewhere.net PRIVMSG Pyro :!stats")
	assert.Equal(t, []string{"Johnny Sorry, only my admins can see the stats"}, f.conn.msgs)

	// quit ends it
	f.feed(":Johnny!john@example.com QUIT :bye")
	assert.Empty(t, f.b.admins)
}

func TestLogout(t *testing.T) {
	f := setup(t)
	f.feed(":John!john@example.com PRIVMSG Pyro :!logout")
	f.login()
	f.feed(":John!john@example.com PRIVMSG Pyro :!logout")

	assert.Equal(t, []string{"John You have been logged out"}, f.conn.msgs)
	assert.Empty(t, f.b.admins)
}

func TestHelp(t *testing.T) {
	f := setup(t)

	f.feed(":John!john@example.com PRIVMSG #Chan :!help")
	plain := len(f.conn.msgs)
	assert.Equal(t, "John Available commands:", f.conn.msgs[0])

	f.login()
	f.feed(":John!john@example.com PRIVMSG Pyro :!help")
	assert.Greater(t, len(f.conn.msgs), plain)
	assert.Contains(t, f.conn.msgs, "John Admin commands:")
}

func TestMotd(t *testing.T) {
	f := setup(t)

	f.feed(":John!john@example.com PRIVMSG Pyro :!motd")
	f.feed(":John!john@example.com PRIVMSG Pyro :!set motd Be nice")
	assert.Equal(t, []string{"John No MOTD has been set", "John Sorry, only my admins can change the motd"}, f.conn.msgs)

	f.login()
	f.feed(":John!john@example.com PRIVMSG Pyro :!set motd Be {nice}")
	f.feed(":Mary!mary@example.com PRIVMSG #Chan :!motd")

	assert.Equal(t, []string{
		`John MOTD has been set to "Be {nice}"`,
		"Mary Be {nice}",
		"Mary MOTD set by John on Wed May 01, 2024 at 20:00:00 GMT",
	}, f.conn.msgs)

	loaded, err := f.b.files.LoadMOTD()
	require.NoError(t, err)
	assert.Equal(t, "Be {nice}", loaded.Message)
}

func TestLogs(t *testing.T) {
	f := setup(t)
	f.b.logs = []string{"three split", "two joined", "one Split"}

	f.feed(":John!john@example.com PRIVMSG Pyro :!logs 2")
	assert.Equal(t, []string{"John The last \x022\x02 server notices:", "John three split", "John two joined"}, f.conn.msgs)

	f.conn.reset()
	f.feed(":John!john@example.com PRIVMSG Pyro :!logsearch split")
	assert.Equal(t, []string{
		`John Displaying search results for "split":`,
		"John     three split",
		"John     one Split",
		"John End of matches",
	}, f.conn.msgs)

	f.conn.reset()
	f.feed(":John!john@example.com PRIVMSG Pyro :!logsearch sp(l)it")
	assert.Equal(t, []string{"John Please try searching without regular expression characters - *+()|[]"}, f.conn.msgs)
}

func TestLinks(t *testing.T) {
	f := setup(t)
	err := os.WriteFile(filepath.Join(f.b.files.Dir(), "servers.txt"), []byte("hub: \nleaf: hub\nother: hub\n"), 0644)
	require.NoError(t, err)

	f.feed(":John!john@example.com PRIVMSG #Chan :!links")
	assert.Equal(t, []string{"LINKS"}, f.conn.raw)

	f.feed(":hub.example.net 364 Pyro hub.example.net hub.example.net :0 The hub")
	f.feed(":hub.example.net 364 Pyro leaf.example.net hub.example.net :1 A leaf")
	f.feed(":hub.example.net 365 Pyro * :End of /LINKS list.")

	assert.Equal(t, []string{
		"John hub.example.net (0) The hub",
		"John |_ leaf.example.net (1) A leaf",
		"John End of server list.",
		"John Note - the map displayed above is the network as viewed from my server, hub.example.net",
		"John 2 servers (1 hubs, 1 leaves), 1 hops deep",
		"John Expected servers: 3",
		"John Linked servers: 2",
		"John Missing servers: other (1)",
	}, f.conn.msgs)

	// a stray end of list is ignored
	f.conn.reset()
	f.feed(":hub.example.net 365 Pyro * :End of /LINKS list.")
	assert.Empty(t, f.conn.msgs)
}

func TestUplinks(t *testing.T) {
	f := setup(t)
	err := os.WriteFile(filepath.Join(f.b.files.Dir(), "servers.txt"), []byte("leaf: hub1 hub2\n"), 0644)
	require.NoError(t, err)
	f.b.reloadMap()

	f.feed(":John!john@example.com PRIVMSG Pyro :!uplinks leaf.example.net")
	f.feed(":John!john@example.com PRIVMSG Pyro :!uplinks nope")

	assert.Equal(t, []string{"John leaf: hub1 hub2", "John No such server found"}, f.conn.msgs)
}

func TestNickChangeConfirmsLater(t *testing.T) {
	f := setup(t)
	f.login()

	f.feed(":John!john@example.com PRIVMSG Pyro :!nick Pyromancer")
	assert.Equal(t, []string{"NICK Pyromancer"}, f.conn.raw)
	assert.Empty(t, f.conn.msgs)

	f.evaluate(now.Add(time.Second))
	assert.Equal(t, []string{"John Changed nick to Pyromancer"}, f.conn.msgs)
}

func TestShutdownRunsAfterReply(t *testing.T) {
	f := setup(t)
	var stopped bool
	f.b.OnShutdown = func() { stopped = true }

	f.feed(":Mary!mary@example.com PRIVMSG Pyro :!shutdown")
	assert.Equal(t, []string{"Mary Sorry, only my admins can shut down me"}, f.conn.msgs)
	assert.Zero(t, f.ctx.Timers.Len())

	f.login()
	f.feed(":John!john@example.com PRIVMSG Pyro :!shutdown")
	assert.Equal(t, []string{"John Shutting down"}, f.conn.msgs)
	assert.False(t, stopped)

	f.evaluate(now.Add(time.Second))
	assert.True(t, stopped)
}

func TestExamples(t *testing.T) {
	f := setup(t)

	f.feed(":John!john@example.com PRIVMSG #Chan :oh hi")
	f.feed(":John!john@example.com PRIVMSG #Chan :!hi Mars")
	f.feed(":John!john@example.com PRIVMSG #Chan :!say a, b")
	f.feed(":John!john@example.com PRIVMSG Pyro :!colors")

	assert.Equal(t, []string{
		"#Chan Hello!",
		"#Chan Hello Mars!",
		"#Chan Saying a",
		"#Chan Saying b",
		"John \x1f\x0304C\x0305o\x0306l\x03o\x0307r\x0308\x0309s\x03!",
	}, f.conn.msgs)
}

func TestExamplesSearchAnywhere(t *testing.T) {
	f := setup(t)

	f.feed(":John!john@example.com PRIVMSG #Chan :!well hi Mars")
	f.feed(":John!john@example.com PRIVMSG #Chan :!please tell x")
	f.feed(":John!john@example.com PRIVMSG #Chan :hi Mars")

	assert.Equal(t, []string{"#Chan Hello Mars!", "#Chan Saying x"}, f.conn.msgs)
}
