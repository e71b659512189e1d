package protocol

import (
	"fmt"
)

// segment is a datagram on the wire: <data><sequence number><checksum>.
// An acknowledgment is a segment without data.
type segment struct {
	buffer         []byte
	data           []byte
	sequenceNumber []byte
	checksum       []byte
}

func (seg *segment) getSequenceNumber() int {
	sequenceNumber, _ := parseSequenceNumber(seg.sequenceNumber)
	return sequenceNumber
}

func (seg *segment) getDataAsString() string {
	return string(seg.data)
}

func (seg *segment) isValid() bool {
	if _, ok := parseSequenceNumber(seg.sequenceNumber); !ok {
		return false
	}
	return string(seg.checksum) == checksum(seg.data, seg.sequenceNumber)
}

func formatSequenceNumber(sequenceNumber int) []byte {
	return []byte(fmt.Sprintf("%0*d", SequenceNumberLength, wrapSequenceNumber(sequenceNumber)))
}

func parseSequenceNumber(field []byte) (int, bool) {
	if len(field) != SequenceNumberLength {
		return 0, false
	}
	result := 0
	for _, digit := range field {
		if digit < '0' || digit > '9' {
			return 0, false
		}
		result = result*10 + int(digit-'0')
	}
	return result, true
}

// createSegment slices buffer into its fields without validating them.
func createSegment(buffer []byte) (*segment, bool) {
	if len(buffer) < TrailerLength {
		return nil, false
	}
	trailer := buffer[len(buffer)-TrailerLength:]
	return &segment{
		buffer:         buffer,
		data:           buffer[:len(buffer)-TrailerLength],
		sequenceNumber: trailer[SequenceNumberPosition.Start:SequenceNumberPosition.End],
		checksum:       trailer[ChecksumPosition.Start:ChecksumPosition.End],
	}, true
}

func createDataSegment(sequenceNumber int, data []byte) *segment {
	buffer := make([]byte, len(data)+TrailerLength)
	copy(buffer, data)
	trailer := buffer[len(data):]
	field := formatSequenceNumber(sequenceNumber)
	copy(trailer[SequenceNumberPosition.Start:SequenceNumberPosition.End], field)
	copy(trailer[ChecksumPosition.Start:ChecksumPosition.End], checksum(data, field))
	seg, _ := createSegment(buffer)
	return seg
}

func createAckSegment(sequenceNumber int) *segment {
	return createDataSegment(sequenceNumber, nil)
}

func encodeSegment(data []byte, sequenceNumber int) []byte {
	return createDataSegment(sequenceNumber, data).buffer
}

// decodeSegment returns the data and sequence number carried by buffer. A
// segment that fails validation is reported with valid == false and must be
// treated as lost.
func decodeSegment(buffer []byte) (data []byte, sequenceNumber int, valid bool) {
	seg, ok := createSegment(buffer)
	if !ok || !seg.isValid() {
		return nil, 0, false
	}
	return seg.data, seg.getSequenceNumber(), true
}

func encodeAck(sequenceNumber int) []byte {
	return createAckSegment(sequenceNumber).buffer
}

func decodeAck(buffer []byte) (int, bool) {
	if len(buffer) != TrailerLength {
		return 0, false
	}
	_, sequenceNumber, valid := decodeSegment(buffer)
	return sequenceNumber, valid
}
