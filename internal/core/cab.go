package core

// encodeCab appends the NMRA multi-function address field for cab to dst:
// a single byte for cab <= 127, or a two-byte extended address otherwise.
func encodeCab(dst []byte, cab int) []byte {
	if cab <= 127 {
		return append(dst, byte(cab))
	}
	hi := byte(cab>>8) | 0xC0
	lo := byte(cab)
	return append(dst, hi, lo)
}

// decodeCab is the inverse of encodeCab: given a buffer starting at a
// cab-address field, it returns the address and the number of bytes
// consumed.
func decodeCab(b []byte) (cab, consumed int) {
	if b[0]&0xC0 == 0xC0 {
		return (int(b[0]&0x3F) << 8) | int(b[1]), 2
	}
	return int(b[0]), 1
}
