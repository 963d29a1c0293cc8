package command

import "errors"

var (
	ErrNoDiscriminator = errors.New("command: one of pattern, code or verb is required")
	ErrInvalidCode     = errors.New("command: code must be a three-digit numeric")
	ErrInvalidVerb     = errors.New("command: verb must be four or five upper-case letters")
	ErrInvalidPattern  = errors.New("command: invalid pattern")

	ErrResultShape = errors.New("command: unsupported result shape")
	ErrNoTarget    = errors.New("command: no target for outbound message")
	ErrFormat      = errors.New("command: format error")
	ErrNoScheduler = errors.New("command: no scheduler to hold timer")

	ErrTimerSchedule = errors.New("timer: one of At or Every is required")
	ErrTimerPayload  = errors.New("timer: one of Handler or Message is required")
)
