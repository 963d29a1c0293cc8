package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "")

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.SetLogLevel("TRACE")
	l.Trace("line received", "kind", "usermsg")
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "kind=usermsg")

	buf.Reset()
	l.SetLogLevel("nonsense")
	l.Trace("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestErrorAndSource(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "")

	l.Error("send failed", errors.New("queue full"), "target", "#Chan")

	out := buf.String()
	assert.Contains(t, out, `error="queue full"`)
	assert.Contains(t, out, "target=#Chan")
	assert.Contains(t, out, "logger_test.go")
}
