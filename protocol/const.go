package protocol

import "time"

const (
	SequenceNumberLength = 5
	ChecksumLength       = 10
	TrailerLength        = SequenceNumberLength + ChecksumLength

	// SequenceSpace is the number of distinct values the sequence field can carry.
	SequenceSpace = 100000
)

const (
	checksumBase    = 31
	checksumModulus = 10000000000
)

// MaxWindowSize keeps acks for the outstanding window distinguishable from
// stale acks in the wrapping sequence space.
const MaxWindowSize = SequenceSpace / 2

const (
	DefaultWindowSize        = 4
	DefaultPacketSize        = 10
	DefaultRetransmitTimeout = 100 * time.Millisecond
	DefaultChannelTimeout    = 10 * time.Second

	DefaultSenderInboundPort    = 50006
	DefaultSenderOutboundPort   = 50005
	DefaultReceiverInboundPort  = 50005
	DefaultReceiverOutboundPort = 50006
)

// receivePollInterval bounds a single receiver read so cancellation is noticed
// while the channel is idle.
const receivePollInterval = 50 * time.Millisecond

type statusCode int

const (
	success statusCode = iota
	fail
	timeout
)

func (code statusCode) String() string {
	switch code {
	case success:
		return "success"
	case fail:
		return "fail"
	case timeout:
		return "timeout"
	}
	return "unknown"
}

type Position struct {
	Start int
	End   int
}

// Positions inside the trailer that follows the payload.
var SequenceNumberPosition = Position{0, SequenceNumberLength}
var ChecksumPosition = Position{SequenceNumberLength, TrailerLength}
