package protocol

import "github.com/pkg/errors"

var (
	// ErrChannelTimeout is returned when nothing arrived on the channel for the
	// configured channel timeout. It ends the session.
	ErrChannelTimeout = errors.New("channel idle timeout")
	ErrClosed         = errors.New("connector closed")
	ErrInvalidConfig  = errors.New("invalid config")
)
