// Package encoder converts a 2-5 byte DCC payload into the bit-packed
// serial form a slot carries: a 0 start bit before every payload byte, a
// trailing 1 stop bit, and an XOR checksum appended as the final payload
// byte. Preamble bits are supplied by the waveform engine, not here.
package encoder

import (
	"fmt"

	"github.com/mattharris/dcc-core/internal/slotgeom"
)

// Encode packs b[0:nBytes] plus a trailing XOR checksum into buf, MSB-first,
// with a 0 start bit ahead of every byte and a 1 stop bit after the last.
// buf must be at least slotgeom.BufferSize bytes; its invalid flag
// (slotgeom.InvalidByte / InvalidMask) is cleared as the last act, making
// the slot eligible for transmission. Returns the frame's bit length.
//
// b must have room for the checksum byte at b[nBytes]; callers pass
// oversized buffers for exactly this reason.
func Encode(buf []byte, b []byte, nBytes int) (int, error) {
	if nBytes < slotgeom.MinPayloadBytes || nBytes > slotgeom.MaxPayloadBytes {
		return 0, fmt.Errorf("encoder: nBytes %d out of range [%d,%d]", nBytes, slotgeom.MinPayloadBytes, slotgeom.MaxPayloadBytes)
	}
	if len(buf) < slotgeom.BufferSize {
		return 0, fmt.Errorf("encoder: buf too small: %d < %d", len(buf), slotgeom.BufferSize)
	}
	if len(b) < nBytes+1 {
		return 0, fmt.Errorf("encoder: payload buffer too small for checksum byte")
	}

	// Checksum = XOR of all payload bytes, appended as the final byte.
	b[nBytes] = b[0]
	for i := 1; i < nBytes; i++ {
		b[nBytes] ^= b[i]
	}
	nBytes++ // now includes the checksum byte

	for i := range buf {
		buf[i] = 0
	}

	buf[0] = b[0] >> 1
	buf[1] = b[0] << 7
	buf[1] += b[1] >> 2
	buf[2] = b[1] << 6
	buf[2] += b[2] >> 3
	buf[3] = b[2] << 5

	var nBits int
	switch nBytes {
	case 3:
		buf[3] |= 1 << 4
		nBits = slotgeom.Bits3Byte
	case 4:
		buf[3] += b[3] >> 4
		buf[4] = b[3] << 4
		buf[4] |= 1 << 3
		nBits = slotgeom.Bits4Byte
	case 5:
		buf[3] += b[3] >> 4
		buf[4] = b[3] << 4
		buf[4] += b[4] >> 5
		buf[5] = b[4] << 3
		buf[5] |= 1 << 2
		nBits = slotgeom.Bits5Byte
	case 6:
		buf[3] += b[3] >> 4
		buf[4] = b[3] << 4
		buf[4] += b[4] >> 5
		buf[5] = b[4] << 3
		buf[5] += b[5] >> 6
		buf[6] = b[5] << 2
		buf[6] |= 1 << 1
		nBits = slotgeom.Bits6Byte
	default:
		return 0, fmt.Errorf("encoder: unreachable nBytes %d", nBytes)
	}

	buf[slotgeom.InvalidByte] &^= slotgeom.InvalidMask // clear invalid flag: eligible for transmission
	return nBits, nil
}
