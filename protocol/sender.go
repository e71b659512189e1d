package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type SenderStats struct {
	PacketsSent     int
	Retransmissions int
	Timeouts        int
	AcksReceived    int
	CorruptAcks     int
	StaleAcks       int
	MaxInFlight     int
}

// Sender delivers payloads to a Receiver with go-back-N recovery. Each call
// to Send is one session; sequence numbers continue across sessions so a
// long-lived Receiver sees a single stream.
type Sender struct {
	connector Connector
	config    Config
	logger    zerolog.Logger
	now       func() time.Time

	sequenceOffset int
	err            error

	mutex sync.Mutex
	stats SenderStats
}

func NewSender(connector Connector, config Config) (*Sender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Sender{
		connector: connector,
		config:    config,
		logger:    componentLogger("sender"),
		now:       time.Now,
	}, nil
}

// Send blocks until every segment of data is acknowledged, the channel stays
// idle for the channel timeout, or ctx is done. Any error leaves the Sender
// unusable because the receiver's position in the stream is unknown.
func (sender *Sender) Send(ctx context.Context, data []byte) error {
	if sender.err != nil {
		return sender.err
	}
	session := sender.newSession(data)
	if err := session.run(ctx); err != nil {
		sender.err = err
		return err
	}
	sender.sequenceOffset += len(session.chunks)
	return nil
}

func (sender *Sender) Stats() SenderStats {
	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	return sender.stats
}

func (sender *Sender) Close() error {
	return sender.connector.Close()
}

func (sender *Sender) updateStats(update func(stats *SenderStats)) {
	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	update(&sender.stats)
}

type sendSession struct {
	sender       *Sender
	logger       zerolog.Logger
	chunks       [][]byte
	offset       int
	base         int
	nextSeq      int
	timer        retransmissionTimer
	lastActivity time.Time
}

func (sender *Sender) newSession(data []byte) *sendSession {
	return &sendSession{
		sender: sender,
		logger: sender.logger.With().Str("session", uuid.New().String()).Logger(),
		chunks: chunk(data, sender.config.PacketSize),
		offset: sender.sequenceOffset,
	}
}

func (session *sendSession) run(ctx context.Context) error {
	buffer := make([]byte, TrailerLength+1)
	session.lastActivity = session.sender.now()
	session.logger.Info().
		Int("segments", len(session.chunks)).
		Int("offset", session.offset).
		Msg("session started")

	for session.base < len(session.chunks) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := session.fillWindow(); err != nil {
			return err
		}

		now := session.sender.now()
		if session.timer.hasExpired(now) {
			if err := session.goBackN(now); err != nil {
				return err
			}
			continue
		}

		wait, err := session.waitDuration(now)
		if err != nil {
			session.logger.Error().Err(err).Int("base", session.base).Msg("channel idle")
			return err
		}
		session.sender.connector.SetReadTimeout(wait)
		status, n, err := session.sender.connector.Read(buffer)
		if status == timeout {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "receive ack")
		}
		session.lastActivity = session.sender.now()
		session.handleAck(buffer[:n])
	}

	session.timer.cancel()
	session.logger.Info().Int("segments", len(session.chunks)).Msg("session finished")
	return nil
}

// waitDuration bounds the next read by both the channel idle timeout and the
// armed retransmission timer.
func (session *sendSession) waitDuration(now time.Time) (time.Duration, error) {
	channelTimeout := session.sender.config.ChannelTimeout
	wait := session.lastActivity.Add(channelTimeout).Sub(now)
	if wait <= 0 {
		return 0, errors.Wrapf(ErrChannelTimeout, "no ack for %v", channelTimeout)
	}
	if session.timer.armed {
		if remaining := session.timer.remaining(now); remaining < wait {
			wait = remaining
		}
	}
	return wait, nil
}

func (session *sendSession) fillWindow() error {
	windowSize := session.sender.config.WindowSize
	for session.nextSeq < session.base+windowSize && session.nextSeq < len(session.chunks) {
		if err := session.write(session.nextSeq); err != nil {
			return err
		}
		if session.base == session.nextSeq {
			session.timer.arm(session.sender.now(), session.sender.config.RetransmitTimeout)
		}
		session.nextSeq++

		inFlight := session.nextSeq - session.base
		session.sender.updateStats(func(stats *SenderStats) {
			stats.PacketsSent++
			if inFlight > stats.MaxInFlight {
				stats.MaxInFlight = inFlight
			}
		})
	}
	return nil
}

func (session *sendSession) write(index int) error {
	sequenceNumber := session.offset + index
	_, _, err := session.sender.connector.Write(encodeSegment(session.chunks[index], sequenceNumber))
	if err != nil {
		return errors.Wrapf(err, "send segment %d", wrapSequenceNumber(sequenceNumber))
	}
	session.logger.Debug().
		Int("seq", wrapSequenceNumber(sequenceNumber)).
		Int("size", len(session.chunks[index])).
		Msg("sent segment")
	return nil
}

func (session *sendSession) handleAck(buffer []byte) {
	ackedSequenceNumber, valid := decodeAck(buffer)
	if !valid {
		session.sender.updateStats(func(stats *SenderStats) { stats.CorruptAcks++ })
		session.logger.Debug().Int("size", len(buffer)).Msg("discarded corrupt ack")
		return
	}

	lastAcked := session.offset + session.base - 1
	distance := sequenceDistance(lastAcked, ackedSequenceNumber)
	stale := distance > session.nextSeq-session.base
	if !stale {
		session.base += distance
	}
	session.sender.updateStats(func(stats *SenderStats) {
		stats.AcksReceived++
		if stale {
			stats.StaleAcks++
		}
	})
	session.logger.Debug().
		Int("ack", ackedSequenceNumber).
		Int("base", session.base).
		Int("nextSeq", session.nextSeq).
		Bool("stale", stale).
		Msg("received ack")

	if session.base == session.nextSeq {
		session.timer.cancel()
	} else {
		session.timer.arm(session.sender.now(), session.sender.config.RetransmitTimeout)
	}
}

// goBackN re-arms the timer and retransmits the whole outstanding window.
func (session *sendSession) goBackN(now time.Time) error {
	session.timer.arm(now, session.sender.config.RetransmitTimeout)
	session.logger.Debug().
		Int("base", session.base).
		Int("nextSeq", session.nextSeq).
		Msg("retransmission timeout")
	for index := session.base; index < session.nextSeq; index++ {
		if err := session.write(index); err != nil {
			return err
		}
	}
	outstanding := session.nextSeq - session.base
	session.sender.updateStats(func(stats *SenderStats) {
		stats.Timeouts++
		stats.Retransmissions += outstanding
	})
	return nil
}
