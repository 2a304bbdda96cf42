package stream

import "errors"

var (
	ErrNoResourceSource = errors.New("stream: no resource source registered")
	ErrNotStarted       = errors.New("stream: not started")
	ErrAlreadyStarted   = errors.New("stream: already started")
	ErrStopped          = errors.New("stream: stopped")
)
