package protocol

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SegmentTestSuite struct {
	protocolTestSuite
}

func (suite *SegmentTestSuite) TestCreateDataSegment() {
	seg := createDataSegment(7, []byte("TEST"))
	suite.Equal("TEST", seg.getDataAsString())
	suite.Equal([]byte("00007"), seg.sequenceNumber)
	suite.Equal(7, seg.getSequenceNumber())
	suite.Equal([]byte(checksum([]byte("TEST00007"))), seg.checksum)
	suite.Len(seg.buffer, 4+TrailerLength)
	suite.True(seg.isValid())
}

func (suite *SegmentTestSuite) TestCreateAckSegment() {
	seg := createAckSegment(42)
	suite.Empty(seg.data)
	suite.Equal("00042"+checksum([]byte("00042")), string(seg.buffer))
}

func (suite *SegmentTestSuite) TestRoundTrip() {
	chunks := [][]byte{{}, []byte("a"), []byte("abcdefghij"), {0x00, 0xff, '9', '-'}}
	for _, sequenceNumber := range []int{0, 1, 12345, SequenceSpace - 1} {
		for _, data := range chunks {
			decoded, decodedSequenceNumber, valid := decodeSegment(encodeSegment(data, sequenceNumber))
			suite.True(valid)
			suite.Equal(sequenceNumber, decodedSequenceNumber)
			suite.Equal(string(data), string(decoded))
		}
	}
}

func (suite *SegmentTestSuite) TestSequenceNumberWraps() {
	_, sequenceNumber, valid := decodeSegment(encodeSegment([]byte("x"), SequenceSpace+1))
	suite.True(valid)
	suite.Equal(1, sequenceNumber)

	sequenceNumber, valid = decodeAck(encodeAck(-1))
	suite.True(valid)
	suite.Equal(SequenceSpace-1, sequenceNumber)
}

func (suite *SegmentTestSuite) TestDecodeRejectsShortBuffer() {
	_, _, valid := decodeSegment([]byte("0000112345"))
	suite.False(valid)
	_, _, valid = decodeSegment(nil)
	suite.False(valid)
}

func (suite *SegmentTestSuite) TestDecodeRejectsCorruption() {
	buffer := encodeSegment([]byte("abcdefghij"), 3)
	for i := range buffer {
		corrupted := append([]byte(nil), buffer...)
		corrupted[i] ^= 0x01
		_, _, valid := decodeSegment(corrupted)
		suite.False(valid, "index %d", i)
	}
}

func (suite *SegmentTestSuite) TestDecodeRejectsNonDigitSequenceNumber() {
	field := []byte("-0001")
	buffer := append([]byte("data"), field...)
	buffer = append(buffer, checksum([]byte("data"), field)...)
	_, _, valid := decodeSegment(buffer)
	suite.False(valid)
}

func (suite *SegmentTestSuite) TestDecodeAckRejectsDataSegment() {
	_, valid := decodeAck(encodeSegment([]byte("a"), 1))
	suite.False(valid)

	sequenceNumber, valid := decodeAck(encodeAck(99))
	suite.True(valid)
	suite.Equal(99, sequenceNumber)
}

func (suite *SegmentTestSuite) TestChunk() {
	chunks := chunk([]byte("abcdefghijklmnopqrstuvwxyz"), 10)
	suite.Len(chunks, 3)
	suite.Equal("abcdefghij", string(chunks[0]))
	suite.Equal("klmnopqrst", string(chunks[1]))
	suite.Equal("uvwxyz", string(chunks[2]))
	suite.Empty(chunk(nil, 10))
}

func (suite *SegmentTestSuite) TestSequenceDistance() {
	suite.Equal(0, sequenceDistance(5, 5))
	suite.Equal(3, sequenceDistance(5, 8))
	suite.Equal(1, sequenceDistance(-1, 0))
	suite.Equal(2, sequenceDistance(SequenceSpace-1, 1))
	suite.Equal(SequenceSpace-1, sequenceDistance(1, 0))
}

func TestSegment(t *testing.T) {
	suite.Run(t, new(SegmentTestSuite))
}
