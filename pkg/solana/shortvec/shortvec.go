// Package shortvec implements the compact-u16 length prefix used in Solana
// transactions: 7 bits per byte, least significant group first, with the high
// bit marking continuation.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// maxEncodedLen is the size of math.MaxUint16 once encoded.
const maxEncodedLen = 3

// EncodeLen writes length to w, returning the number of bytes written.
// Lengths outside [0, math.MaxUint16] are rejected.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Errorf("len must be in [0, %d]", math.MaxUint16)
	}

	var buf [maxEncodedLen]byte
	n := 0
	for rem := uint(length); ; n++ {
		buf[n] = byte(rem & 0x7f)
		rem >>= 7
		if rem == 0 {
			n++
			break
		}
		buf[n] |= 0x80
	}

	return w.Write(buf[:n])
}

// DecodeLen reads a length written by EncodeLen.
func DecodeLen(r io.Reader) (int, error) {
	var length int
	var b [1]byte

	for i := 0; ; i++ {
		if i == maxEncodedLen {
			return 0, errors.Errorf("invalid size: more than %d bytes", maxEncodedLen)
		}
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		length |= int(b[0]&0x7f) << (7 * i)
		if b[0]&0x80 == 0 {
			break
		}
	}

	if length > math.MaxUint16 {
		return 0, errors.Errorf("decoded len %d exceeds %d", length, math.MaxUint16)
	}
	return length, nil
}
