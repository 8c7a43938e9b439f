// Package slotgeom holds fixed slot-buffer geometry constants.
// These values define the DCC wire protocol and MUST NOT be configurable.
package slotgeom

// BufferSize is the fixed byte buffer every slot carries. 9 bytes holds
// up to 55 bits of encoded DCC bitstream (8 data + 1 separator per byte,
// for up to 6 payload+checksum bytes, plus the trailing stop bit).
const BufferSize = 9

// InvalidByte is the buffer index whose LSB is the invalid flag.
const InvalidByte = 6

// InvalidMask is the bit within InvalidByte that marks a slot as not
// eligible for transmission (1 = do not transmit).
const InvalidMask = 0x01

// OneShotSlot is the user-facing slot number reserved for packets that do
// not need indefinite refresh (functions, accessories, main-track CV
// writes).
const OneShotSlot = 0

// Frame bit counts for payload lengths 2..5 bytes (checksum included),
// i.e. nBytes+1 in {3,4,5,6} maps to bit count 9*(nBytes+1)+1.
const (
	Bits3Byte = 28
	Bits4Byte = 37
	Bits5Byte = 46
	Bits6Byte = 55
)

// MinPayloadBytes and MaxPayloadBytes bound the caller-supplied payload
// (before the checksum byte is appended).
const (
	MinPayloadBytes = 2
	MaxPayloadBytes = 5
)
