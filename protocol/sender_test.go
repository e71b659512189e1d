package protocol

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SenderTestSuite struct {
	protocolTestSuite
	connector *recordingConnector
	sender    *Sender
	clock     time.Time
}

func (suite *SenderTestSuite) SetupTest() {
	suite.connector = &recordingConnector{}
	config := Config{
		WindowSize:        4,
		PacketSize:        10,
		RetransmitTimeout: 50 * time.Millisecond,
		ChannelTimeout:    300 * time.Millisecond,
	}
	sender, err := NewSender(suite.connector, config)
	suite.Require().NoError(err)
	suite.clock = time.Unix(0, 0)
	sender.now = func() time.Time { return suite.clock }
	suite.sender = sender
}

// openWindow returns a session over six segments with the first four sent.
func (suite *SenderTestSuite) openWindow() *sendSession {
	session := suite.sender.newSession(bytes.Repeat([]byte("x"), 60))
	suite.handleTestError(session.fillWindow())
	suite.connector.reset()
	return session
}

func (suite *SenderTestSuite) TestFillWindowStopsAtWindowSize() {
	session := suite.sender.newSession(bytes.Repeat([]byte("x"), 60))
	suite.handleTestError(session.fillWindow())
	suite.Equal([]int{0, 1, 2, 3}, suite.connector.writtenSequenceNumbers())
	suite.Equal(0, session.base)
	suite.Equal(4, session.nextSeq)
	suite.True(session.timer.armed)
	suite.Equal(4, suite.sender.Stats().MaxInFlight)
}

func (suite *SenderTestSuite) TestAckAdvancesWindow() {
	session := suite.openWindow()
	session.handleAck(encodeAck(1))
	suite.Equal(2, session.base)
	suite.True(session.timer.armed)

	suite.handleTestError(session.fillWindow())
	suite.Equal([]int{4, 5}, suite.connector.writtenSequenceNumbers())
	suite.Equal(6, session.nextSeq)
}

func (suite *SenderTestSuite) TestGoBackNRetransmitsOutstandingWindow() {
	session := suite.openWindow()
	session.handleAck(encodeAck(1))
	suite.handleTestError(session.fillWindow())
	suite.connector.reset()

	suite.clock = suite.clock.Add(time.Second)
	suite.True(session.timer.hasExpired(suite.clock))
	suite.handleTestError(session.goBackN(suite.clock))

	suite.Equal([]int{2, 3, 4, 5}, suite.connector.writtenSequenceNumbers())
	suite.False(session.timer.hasExpired(suite.clock))
	stats := suite.sender.Stats()
	suite.Equal(1, stats.Timeouts)
	suite.Equal(4, stats.Retransmissions)
}

func (suite *SenderTestSuite) TestFinalAckCancelsTimer() {
	session := suite.openWindow()
	session.handleAck(encodeAck(3))
	suite.Equal(4, session.base)
	suite.False(session.timer.armed)
}

func (suite *SenderTestSuite) TestDuplicateAckRearmsTimer() {
	session := suite.openWindow()
	session.handleAck(encodeAck(0))
	firstDeadline := session.timer.deadline

	suite.clock = suite.clock.Add(20 * time.Millisecond)
	session.handleAck(encodeAck(0))
	suite.Equal(1, session.base)
	suite.Equal(firstDeadline.Add(20*time.Millisecond), session.timer.deadline)
	suite.Equal(0, suite.sender.Stats().StaleAcks)
}

func (suite *SenderTestSuite) TestAckBeforeAnythingAcceptedKeepsBase() {
	session := suite.openWindow()
	session.handleAck(encodeAck(-1))
	suite.Equal(0, session.base)
	suite.True(session.timer.armed)
	suite.Equal(0, suite.sender.Stats().StaleAcks)
}

func (suite *SenderTestSuite) TestStaleAckDoesNotMoveBaseBackwards() {
	session := suite.openWindow()
	session.handleAck(encodeAck(2))
	session.handleAck(encodeAck(0))
	suite.Equal(3, session.base)
	suite.Equal(1, suite.sender.Stats().StaleAcks)
}

func (suite *SenderTestSuite) TestAckBeyondWindowIsIgnored() {
	session := suite.openWindow()
	session.handleAck(encodeAck(10))
	suite.Equal(0, session.base)
	suite.Equal(1, suite.sender.Stats().StaleAcks)
}

func (suite *SenderTestSuite) TestCorruptAckIsDiscarded() {
	session := suite.openWindow()
	deadline := session.timer.deadline
	suite.clock = suite.clock.Add(20 * time.Millisecond)

	corrupted := encodeAck(2)
	corrupted[0] = 'x'
	session.handleAck(corrupted)

	suite.Equal(0, session.base)
	suite.Equal(deadline, session.timer.deadline)
	stats := suite.sender.Stats()
	suite.Equal(1, stats.CorruptAcks)
	suite.Equal(0, stats.AcksReceived)
}

func (suite *SenderTestSuite) TestAckResolvesAcrossWraparound() {
	suite.sender.sequenceOffset = SequenceSpace - 2
	session := suite.openWindow()
	session.handleAck(encodeAck(0))
	suite.Equal(3, session.base)
}

func (suite *SenderTestSuite) TestSendEmptyPayload() {
	suite.sender.now = time.Now
	suite.handleTestError(suite.sender.Send(context.Background(), nil))
	suite.Empty(suite.connector.writtenSequenceNumbers())
}

func (suite *SenderTestSuite) TestSendFailsOnChannelTimeout() {
	suite.sender.now = time.Now
	err := suite.sender.Send(context.Background(), []byte("abcdefghijklmnopqrstuvwxyz"))
	suite.ErrorIs(err, ErrChannelTimeout)
	suite.GreaterOrEqual(suite.sender.Stats().Timeouts, 1)

	suite.ErrorIs(suite.sender.Send(context.Background(), []byte("more")), ErrChannelTimeout)
}

func (suite *SenderTestSuite) TestSendHonoursContext() {
	suite.sender.now = time.Now
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	suite.ErrorIs(suite.sender.Send(ctx, []byte("abc")), context.Canceled)
}

func TestSender(t *testing.T) {
	suite.Run(t, new(SenderTestSuite))
}
