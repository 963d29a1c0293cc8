package builtin

import (
	"strings"

	"github.com/Gwildor/Pyromancer/internal/command"
)

// Examples are small commands showing the handler styles: replying through
// the match, returning a template, streaming several messages.
func Examples() []command.Command {
	return []command.Command{
		{ID: "examples.hi", Spec: command.MustNew(command.Pattern(`hi$`), command.NoPrefix()), Handler: hi},
		{ID: "examples.greeting", Spec: command.MustNew(command.Pattern(`hi (.*)`)), Handler: greeting},
		{ID: "examples.say", Spec: command.MustNew(command.Pattern(`say (.*)`, `tell (.*)`)), Handler: say},
		{ID: "examples.colors", Spec: command.MustNew(command.Pattern(`colors`)), Handler: colors},
	}
}

func hi(m *command.Match) command.Result {
	_ = m.Msg("Hello!")
	return nil
}

func greeting(m *command.Match) command.Result {
	return command.Text("Hello {m[1]}!")
}

// say sends one message per comma separated part.
func say(m *command.Match) command.Result {
	return command.Stream(func(yield func(command.Result) bool) {
		for _, part := range strings.Split(m.Get(1), ", ") {
			if !yield(command.T("Saying {}", part)) {
				return
			}
		}
	})
}

func colors(m *command.Match) command.Result {
	return command.Text("{u}{c}04C{c}05o{c}06l{c}o{c}07r{c}08{c}09s{c}!")
}
