// Package waveform defines the contract between a slot.Table and whatever
// consumes it at the physical layer, plus an in-process software reference
// implementation.
//
// The real pin-toggling timer interrupt is explicitly out of scope: no
// software running on a general-purpose OS scheduler can hold the
// ~58/100ยตs per-bit timing DCC requires under load. Engine exists so this
// repo is runnable and testable end to end without that hardware -- either
// via Simulator (a best-effort software approximation) or via serialhw,
// which delegates the actual timing to an attached companion board.
package waveform

import (
	"context"

	"github.com/mattharris/dcc-core/internal/slot"
)

// Engine repeatedly consumes a slot.Table: increment PacketsTransmitted
// once per fully-transmitted frame, adopt Next() when set, otherwise
// rotate across persistent slots (skipping invalid ones) with an idle
// packet fallback. Run blocks until ctx is done or an unrecoverable
// transport error occurs.
type Engine interface {
	Run(ctx context.Context) error
}

func bitAt(buf []byte, i int) int {
	byteIdx := i / 8
	bitIdx := 7 - (i % 8)
	return int((buf[byteIdx] >> uint(bitIdx)) & 1)
}

// Rotor holds the current-slot selection state shared by every Engine
// implementation: which slot is currently playing, whether it is the
// one-shot slot, and where a persistent-slot rotation left off.
type Rotor struct {
	Current     *slot.Slot
	IsOneShot   bool
	rotationIdx int
}

// NewRotor starts a Rotor at the idle packet, as the waveform engine does
// before anything has ever been loaded.
func NewRotor(table *slot.Table) *Rotor {
	return &Rotor{Current: table.IdlePacket, rotationIdx: 1}
}

// Advance applies the completion contract once the Rotor's Current slot
// has been fully transmitted: repeat a one-shot slot while NRepeat
// remains, else adopt Next() if set, else rotate to the next eligible
// persistent slot, falling back to the idle packet.
func (r *Rotor) Advance(table *slot.Table) {
	switch {
	case r.IsOneShot && table.NRepeat() > 0:
		table.DecrementNRepeat()
		// Current unchanged: re-emit the same one-shot slot.

	case table.Next() != nil:
		r.Current = table.Next()
		table.AdoptNext()
		r.IsOneShot = r.Current == table.PersistentSlot(0)

	default:
		r.rotate(table)
	}
}

func (r *Rotor) rotate(table *slot.Table) {
	maxLoaded := table.MaxLoaded()
	if maxLoaded < 1 {
		r.Current, r.IsOneShot = table.IdlePacket, false
		return
	}

	idx := r.rotationIdx
	for n := 0; n < maxLoaded; n++ {
		cand := table.PersistentSlot(idx)

		idx++
		if idx > maxLoaded {
			idx = 1
		}

		if !cand.Invalid() {
			r.Current, r.IsOneShot, r.rotationIdx = cand, false, idx
			return
		}
	}
	r.Current, r.IsOneShot, r.rotationIdx = table.IdlePacket, false, idx
}
