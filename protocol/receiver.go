package protocol

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// flusher is implemented by buffered sinks such as *bufio.Writer. Accepted
// data is flushed before it is acknowledged.
type flusher interface {
	Flush() error
}

type ReceiverStats struct {
	Accepted        int
	DuplicateAcks   int
	CorruptSegments int
	BytesDelivered  int
}

// Receiver accepts segments strictly in sequence and writes their data to
// output. Everything else is answered with a duplicate ack for the last
// accepted segment.
type Receiver struct {
	connector Connector
	config    Config
	output    io.Writer
	logger    zerolog.Logger
	now       func() time.Time

	expectedSequenceNumber int

	mutex sync.Mutex
	stats ReceiverStats
}

func NewReceiver(connector Connector, config Config, output io.Writer) (*Receiver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Receiver{
		connector: connector,
		config:    config,
		output:    output,
		logger:    componentLogger("receiver").With().Str("session", uuid.New().String()).Logger(),
		now:       time.Now,
	}, nil
}

// Receive runs until the channel stays idle for the channel timeout, in which
// case ErrChannelTimeout is returned, or until ctx is done.
func (receiver *Receiver) Receive(ctx context.Context) error {
	buffer := make([]byte, receiver.config.PacketSize+TrailerLength+1)
	lastActivity := receiver.now()
	receiver.logger.Info().Msg("receiving")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := lastActivity.Add(receiver.config.ChannelTimeout).Sub(receiver.now())
		if wait <= 0 {
			receiver.logger.Info().
				Int("accepted", receiver.expectedSequenceNumber).
				Msg("channel idle")
			return errors.Wrapf(ErrChannelTimeout, "nothing received for %v", receiver.config.ChannelTimeout)
		}
		if wait > receivePollInterval {
			wait = receivePollInterval
		}
		receiver.connector.SetReadTimeout(wait)
		status, n, err := receiver.connector.Read(buffer)
		if status == timeout {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "receive segment")
		}
		lastActivity = receiver.now()
		if err := receiver.handleSegment(buffer[:n]); err != nil {
			return err
		}
	}
}

func (receiver *Receiver) Stats() ReceiverStats {
	receiver.mutex.Lock()
	defer receiver.mutex.Unlock()
	return receiver.stats
}

func (receiver *Receiver) Close() error {
	return receiver.connector.Close()
}

func (receiver *Receiver) updateStats(update func(stats *ReceiverStats)) {
	receiver.mutex.Lock()
	defer receiver.mutex.Unlock()
	update(&receiver.stats)
}

func (receiver *Receiver) handleSegment(buffer []byte) error {
	data, sequenceNumber, valid := decodeSegment(buffer)
	if !valid {
		receiver.updateStats(func(stats *ReceiverStats) { stats.CorruptSegments++ })
		receiver.logger.Debug().Int("size", len(buffer)).Msg("discarded corrupt segment")
		return nil
	}

	if sequenceNumber != wrapSequenceNumber(receiver.expectedSequenceNumber) {
		receiver.updateStats(func(stats *ReceiverStats) { stats.DuplicateAcks++ })
		receiver.logger.Debug().
			Int("seq", sequenceNumber).
			Int("expected", wrapSequenceNumber(receiver.expectedSequenceNumber)).
			Msg("out of order segment")
		return receiver.writeAck(receiver.expectedSequenceNumber - 1)
	}

	if _, err := receiver.output.Write(data); err != nil {
		return errors.Wrap(err, "deliver data")
	}
	if sink, ok := receiver.output.(flusher); ok {
		if err := sink.Flush(); err != nil {
			return errors.Wrap(err, "flush data")
		}
	}
	if err := receiver.writeAck(sequenceNumber); err != nil {
		return err
	}
	receiver.expectedSequenceNumber++
	receiver.updateStats(func(stats *ReceiverStats) {
		stats.Accepted++
		stats.BytesDelivered += len(data)
	})
	receiver.logger.Debug().Int("seq", sequenceNumber).Int("size", len(data)).Msg("accepted segment")
	return nil
}

func (receiver *Receiver) writeAck(sequenceNumber int) error {
	if _, _, err := receiver.connector.Write(encodeAck(sequenceNumber)); err != nil {
		return errors.Wrapf(err, "send ack %d", wrapSequenceNumber(sequenceNumber))
	}
	return nil
}
