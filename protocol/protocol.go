package protocol

import (
	"time"
)

// Connector is the unreliable datagram channel both state machines run on.
// Read reports status timeout once the duration passed to SetReadTimeout
// elapsed without a datagram.
type Connector interface {
	Open() error
	Close() error
	Read([]byte) (statusCode, int, error)
	Write([]byte) (statusCode, int, error)
	SetReadTimeout(time.Duration)
}

func wrapSequenceNumber(sequenceNumber int) int {
	return ((sequenceNumber % SequenceSpace) + SequenceSpace) % SequenceSpace
}

// sequenceDistance returns how far to lies ahead of from in the circular
// sequence space.
func sequenceDistance(from, to int) int {
	return wrapSequenceNumber(to - from)
}

func chunk(data []byte, size int) [][]byte {
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}
