package protocol

import (
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	// WindowSize is the maximum number of unacknowledged segments in flight.
	WindowSize int
	// PacketSize is the number of payload bytes per segment.
	PacketSize int
	// RetransmitTimeout is the interval after which the sender goes back to
	// the oldest unacknowledged segment.
	RetransmitTimeout time.Duration
	// ChannelTimeout is the idle period after which the channel is considered
	// dead and the session is aborted.
	ChannelTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		WindowSize:        DefaultWindowSize,
		PacketSize:        DefaultPacketSize,
		RetransmitTimeout: DefaultRetransmitTimeout,
		ChannelTimeout:    DefaultChannelTimeout,
	}
}

func (config Config) Validate() error {
	switch {
	case config.WindowSize < 1 || config.WindowSize > MaxWindowSize:
		return errors.Wrapf(ErrInvalidConfig, "window size %d not in [1, %d]", config.WindowSize, MaxWindowSize)
	case config.PacketSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "packet size %d", config.PacketSize)
	case config.RetransmitTimeout <= 0:
		return errors.Wrapf(ErrInvalidConfig, "retransmit timeout %v", config.RetransmitTimeout)
	case config.ChannelTimeout <= 0:
		return errors.Wrapf(ErrInvalidConfig, "channel timeout %v", config.ChannelTimeout)
	case config.RetransmitTimeout >= config.ChannelTimeout:
		return errors.Wrapf(ErrInvalidConfig, "retransmit timeout %v must be shorter than channel timeout %v",
			config.RetransmitTimeout, config.ChannelTimeout)
	}
	return nil
}
