package uniuri

import (
	"crypto/rand"
)

const (
	// StdLen gives ~95 bits of entropy with StdChars.
	StdLen = 16
	// SessionLen gives ~256 bits of entropy with StdChars.
	SessionLen = 43

	byteRange = 256
)

// StdChars is the default alphabet.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// New returns a random string of StdLen standard characters.
func New() string {
	return NewLenChars(StdLen, StdChars)
}

// NewLen returns a random string of the given length made of standard characters.
func NewLen(length int) string {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of the given length made of chars (2 to 256 of them).
// Bytes that would bias the modulo are rejected and redrawn.
func NewLenChars(length int, chars []byte) string {
	if length <= 0 {
		return ""
	}

	clen := len(chars)
	if clen < 2 || clen > byteRange {
		panic("uniuri: wrong charset length for NewLenChars")
	}

	limit := byteRange - (byteRange % clen)
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: error reading random bytes: " + err.Error())
		}

		for _, rb := range buf {
			if int(rb) >= limit {
				continue
			}

			out = append(out, chars[int(rb)%clen])
			if len(out) == length {
				break
			}
		}
	}

	return string(out)
}
