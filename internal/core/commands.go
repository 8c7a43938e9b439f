package core

import (
	"fmt"

	"github.com/mattharris/dcc-core/internal/cvcode"
)

// BuildThrottle encodes a 128-step speed-and-direction packet.
func BuildThrottle(cab, speed, dir int) []byte {
	b := encodeCab(nil, cab)
	return append(b, 0x3F, speedByte(speed, dir))
}

// speedByte maps a user-facing speed (-1 for e-stop, 0 for stop, 1..126
// for motion, capped at 126) and direction into the 128-step speed-dir
// byte: code 0 for stop, 1 for e-stop, 2..127 for motion, direction in
// bit 7.
func speedByte(speed, dir int) byte {
	var code int
	switch {
	case speed < 0:
		code = 1
	case speed == 0:
		code = 0
	default:
		if speed > 126 {
			speed = 126
		}
		code = speed + 1
	}
	b := byte(code)
	if dir != 0 {
		b |= 0x80
	}
	return b
}

// BuildFunctionShort encodes FL/F1-F12 (group FL and F1-F8, combined
// form with fByte carrying F1-F12 per NMRA instruction group 1 usage).
func BuildFunctionShort(cab int, fByte byte) []byte {
	b := encodeCab(nil, cab)
	instr := (fByte | 0x80) & 0xBF
	return append(b, instr)
}

// BuildFunctionLong encodes F13-F28, a two-byte function group.
func BuildFunctionLong(cab int, fByte, eByte byte) []byte {
	b := encodeCab(nil, cab)
	instr := (fByte | 0xDE) & 0xDF
	return append(b, instr, eByte)
}

// BuildAccessory encodes a basic accessory decoder packet. reversed
// inverts activate before encoding, for layouts wired with inverted
// polarity.
func BuildAccessory(addr, port, activate int, reversed bool) ([2]byte, error) {
	if addr < 0 || addr > 511 {
		return [2]byte{}, fmt.Errorf("core: accessory address %d out of range 0..511", addr)
	}
	if port < 0 || port > 3 {
		return [2]byte{}, fmt.Errorf("core: accessory port %d out of range 0..3", port)
	}
	if activate < 0 || activate > 1 {
		return [2]byte{}, fmt.Errorf("core: accessory activate %d out of range 0..1", activate)
	}
	if reversed {
		activate = 1 - activate
	}

	b0 := byte(addr&0x3F) | 0x80
	b1 := byte((addr>>6)&0x07)<<4 | byte(port<<1) | byte(activate)
	b1 ^= 0xF8
	return [2]byte{b0, b1}, nil
}

// BuildWriteMainCVByte encodes a programming-on-main CV byte write.
func BuildWriteMainCVByte(cab, cv, value int) []byte {
	b := encodeCab(nil, cab)
	instr, lo := cvcode.Split(cvcode.OpMainWriteByte, cv)
	return append(b, instr, lo, byte(value))
}

// BuildWriteMainCVBit encodes a programming-on-main CV bit write.
func BuildWriteMainCVBit(cab, cv, bit, value int) []byte {
	b := encodeCab(nil, cab)
	instr, lo := cvcode.Split(cvcode.OpMainWriteBit, cv)
	pattern := cvcode.BitPattern(cvcode.WriteBitPattern, value, bit)
	return append(b, instr, lo, pattern)
}
