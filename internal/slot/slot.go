// Package slot implements the DCC packet-register table: the fixed-capacity
// slot array, the user-slot-number address map, and the hand-off cell
// through which the foreground command plane publishes freshly encoded
// slots to the interrupt-driven waveform engine.
package slot

import (
	"sync/atomic"

	"github.com/mattharris/dcc-core/internal/slotgeom"
)

// Slot is the unit of packetised refresh: a fixed 9-byte bit-packed DCC
// frame plus the bit count marking its end-of-frame position. Slots are
// allocated once and reused in place.
type Slot struct {
	Buf   [slotgeom.BufferSize]byte
	NBits int
}

// Invalid reports whether the slot's invalid flag (the LSB of buffer byte
// slotgeom.InvalidByte, just past the longest frame) is set. An invalid slot must never be read by the waveform
// engine.
func (s *Slot) Invalid() bool {
	return s.Buf[slotgeom.InvalidByte]&slotgeom.InvalidMask != 0
}

// SetInvalid sets or clears the slot's invalid flag.
func (s *Slot) SetInvalid(v bool) {
	if v {
		s.Buf[slotgeom.InvalidByte] |= slotgeom.InvalidMask
	} else {
		s.Buf[slotgeom.InvalidByte] &^= slotgeom.InvalidMask
	}
}

// handoff is the lock-free single-producer/single-consumer cell through
// which a freshly loaded slot crosses from the foreground command plane
// to the waveform engine: the command plane is the sole producer, the
// waveform engine the sole consumer, and atomic.Pointer gives the
// memory-ordering fence that crossing needs on any platform with
// out-of-order stores.
type handoff struct {
	next atomic.Pointer[Slot]
}

func (h *handoff) load() *Slot { return h.next.Load() }

func (h *handoff) store(s *Slot) { h.next.Store(s) }

// clear is called by the waveform engine exactly once per hand-off, after
// it has copied whatever per-slot state it needs.
func (h *handoff) clear() { h.next.Store(nil) }
