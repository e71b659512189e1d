package protocol

import "fmt"

// checksum folds every byte of parts into a rolling base-31 hash reduced
// modulo 10^10 and renders it as a zero padded decimal string of
// ChecksumLength digits. It detects accidental corruption only.
func checksum(parts ...[]byte) string {
	var hash uint64
	for _, part := range parts {
		for _, b := range part {
			hash = (hash*checksumBase + uint64(b)) % checksumModulus
		}
	}
	return fmt.Sprintf("%0*d", ChecksumLength, hash)
}
