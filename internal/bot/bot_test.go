package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gwildor/Pyromancer/internal/command"
	"github.com/Gwildor/Pyromancer/internal/config"
	"github.com/Gwildor/Pyromancer/internal/logger"
)

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

var start = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

func newBot(t *testing.T, extra string) (*Bot, *fakeConn) {
	t.Helper()
	cfg, err := config.Parse([]byte("nick: Pyro\nserver: irc.example.net\n" + extra))
	require.NoError(t, err)

	conn := &fakeConn{}
	b := New(cfg, logger.Discard(), conn)
	b.now = func() time.Time { return start }
	return b, conn
}

func reply(id, pattern, text string) command.Command {
	return command.Command{
		ID:      id,
		Spec:    command.MustNew(command.Pattern(pattern)),
		Handler: func(m *command.Match) command.Result { return command.Text(text) },
	}
}

func TestPingPong(t *testing.T) {
	b, conn := newBot(t, "")

	require.NoError(t, b.Process("PING :irc.example.net", start))
	assert.Equal(t, []string{"PONG :irc.example.net"}, conn.raw)
}

func TestAllMatchingCommandsRunInOrder(t *testing.T) {
	b, conn := newBot(t, "")
	b.Register(
		reply("a.first", `^hi`, "one"),
		reply("a.other", `^bye`, "never"),
		reply("b.second", `hi$`, "two"),
	)

	require.NoError(t, b.Process(":John!j@h PRIVMSG #Chan :!hi", start))
	assert.Equal(t, []string{"#Chan one", "#Chan two"}, conn.msgs)
}

func TestRegisterSkipsDisabled(t *testing.T) {
	b, conn := newBot(t, "disabled_commands: [a, b.second]\n")
	b.Register(
		reply("a.first", `^hi`, "one"),
		reply("b.second", `^hi`, "two"),
		reply("b.third", `^hi`, "three"),
	)

	require.Len(t, b.Commands(), 1)
	assert.Equal(t, "b.third", b.Commands()[0].ID)

	require.NoError(t, b.Process(":John!j@h PRIVMSG #Chan :!hi", start))
	assert.Equal(t, []string{"#Chan three"}, conn.msgs)
}

func TestErrorsDoNotStopOtherCommands(t *testing.T) {
	b, conn := newBot(t, "")
	b.Register(
		command.Command{
			ID:   "broken",
			Spec: command.MustNew(command.Pattern(`^hi`)),
			Handler: func(m *command.Match) command.Result {
				return command.T("{missing}")
			},
		},
		reply("fine", `^hi`, "ok"),
	)

	err := b.Process(":John!j@h PRIVMSG #Chan :!hi", start)
	assert.ErrorIs(t, err, command.ErrFormat)
	assert.ErrorContains(t, err, "broken")
	assert.Equal(t, []string{"#Chan ok"}, conn.msgs)
}

func TestWelcomeSetsMeAndConnected(t *testing.T) {
	b, _ := newBot(t, "")
	assert.True(t, b.Connected().IsZero())

	require.NoError(t, b.Process(":irc.example.net 001 Pyro :Welcome to the network", start))

	assert.Equal(t, start, b.Connected())
	require.NotNil(t, b.Store().Me())
	assert.Equal(t, "Pyro", b.Store().Me().Nick)
}

func TestTickDrainsLinesAndEvaluatesTimers(t *testing.T) {
	b, conn := newBot(t, "")
	require.NoError(t, b.Timers().Add(&command.Timer{Every: 3 * time.Second, Target: "User", Message: "Hello world"}))

	lines := make(chan string, 4)
	require.NoError(t, b.Tick(lines, start.Add(time.Hour)))
	assert.Empty(t, conn.msgs, "timers wait for the welcome")

	lines <- ":irc.example.net 001 Pyro :Welcome"
	lines <- "PING :x"
	require.NoError(t, b.Tick(lines, start.Add(2*time.Second)))
	assert.Empty(t, lines)
	assert.Equal(t, []string{"PONG :x"}, conn.raw)
	assert.Empty(t, conn.msgs)

	require.NoError(t, b.Tick(lines, start.Add(3*time.Second)))
	assert.Equal(t, []string{"User Hello world"}, conn.msgs)
}

func TestTickPublishesSnapshot(t *testing.T) {
	b, _ := newBot(t, "")
	assert.Empty(t, b.Snapshot().Channels)

	b.Store().Names("#Chan", []string{"John", "Mary"})
	require.NoError(t, b.Tick(nil, start))

	snap := b.Snapshot()
	c, ok := snap.Channel("#Chan")
	require.True(t, ok)
	assert.Equal(t, []string{"John", "Mary"}, c.Users)
}

func TestSchedule(t *testing.T) {
	b, _ := newBot(t, "")
	at := start.Add(time.Hour)

	err := b.Schedule([]config.Timer{
		{Every: time.Minute, Target: "#Chan", Message: "tick"},
		{At: at, Target: "#Chan", Message: "once"},
	})
	require.NoError(t, err)

	pending := b.Timers().Pending()
	require.Len(t, pending, 2)
	assert.Zero(t, pending[0].Count)
	assert.Equal(t, 1, pending[1].Count)

	assert.Error(t, b.Schedule([]config.Timer{{Target: "#Chan", Message: "never"}}))
}

func TestVerbs(t *testing.T) {
	b, _ := newBot(t, "")
	noop := func(*command.Match) command.Result { return nil }
	b.Register(
		command.Command{ID: "a", Spec: command.MustNew(command.Verb("JOIN")), Handler: noop},
		command.Command{ID: "b", Spec: command.MustNew(command.Verb("WALLOPS")), Handler: noop},
		command.Command{ID: "c", Spec: command.MustNew(command.Verb("JOIN")), Handler: noop},
		command.Command{ID: "d", Spec: command.MustNew(command.Code(353)), Handler: noop},
		reply("e", `^hi`, "x"),
	)

	assert.Equal(t, []string{"JOIN", "WALLOPS"}, b.Verbs())
}
