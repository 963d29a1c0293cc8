// Package logger is the bot's structured logger: text on the console and,
// when a file is configured, JSON into a rotating log file.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	multi "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelTrace sits below debug and is used for per-line protocol chatter.
const LevelTrace = slog.Level(-8)

var levels = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
}

type SlogLogger struct {
	log   *slog.Logger
	level *slog.LevelVar
}

// New logs text to stdout and JSON to a rotating file. An empty file path
// disables the file sink.
func New(file string) *SlogLogger {
	return newLogger(os.Stdout, file)
}

// Discard returns a logger that drops everything.
func Discard() *SlogLogger {
	return newLogger(io.Discard, "")
}

func newLogger(console io.Writer, file string) *SlogLogger {
	l := &SlogLogger{level: &slog.LevelVar{}}
	opts := &slog.HandlerOptions{
		AddSource:   true,
		Level:       l.level,
		ReplaceAttr: renameTrace,
	}

	handlers := []slog.Handler{slog.NewTextHandler(console, opts)}
	if file != "" {
		handlers = append(handlers, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    64,
			MaxBackups: 32,
			MaxAge:     30,
			Compress:   true,
		}, opts))
	}

	l.log = slog.New(multi.Fanout(handlers...))
	return l
}

func renameTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// SetLogLevel switches the minimum level by name. Unknown names mean info.
func (l *SlogLogger) SetLogLevel(name string) {
	level, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		level = slog.LevelInfo
	}
	l.level.Set(level)
}

func (l *SlogLogger) Trace(msg string, args ...any) {
	l.emit(LevelTrace, msg, args)
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.emit(slog.LevelDebug, msg, args)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.emit(slog.LevelInfo, msg, args)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.emit(slog.LevelWarn, msg, args)
}

func (l *SlogLogger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{slog.String("error", err.Error())}, args...)
	}
	l.emit(slog.LevelError, msg, args)
}

// emit records the caller of the level method as the source.
func (l *SlogLogger) emit(level slog.Level, msg string, args []any) {
	ctx := context.Background()
	if !l.log.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.log.Handler().Handle(ctx, r)
}
