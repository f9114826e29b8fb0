package utils

import "crypto/rand"

// ReferenceLength is the length of an application reference number.
const ReferenceLength = 10

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReferenceNumber returns ReferenceLength characters drawn uniformly from
// A-Z0-9 using crypto/rand. Bytes >= 252 are redrawn so every character is
// equally likely.
func NewReferenceNumber() (string, error) {
	const limit = 256 - 256%len(referenceAlphabet)
	out := make([]byte, 0, ReferenceLength)
	buf := make([]byte, ReferenceLength*2)
	for len(out) < ReferenceLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, referenceAlphabet[int(b)%len(referenceAlphabet)])
			if len(out) == ReferenceLength {
				break
			}
		}
	}
	return string(out), nil
}
