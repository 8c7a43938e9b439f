package waveform

import (
	"testing"

	"github.com/mattharris/dcc-core/internal/slot"
	"github.com/mattharris/dcc-core/internal/slotgeom"
)

func load(t *testing.T, tb *slot.Table, userSlot, nRepeat int) {
	t.Helper()
	_, err := tb.Load(userSlot, nRepeat, func(buf *[slotgeom.BufferSize]byte) (int, error) {
		buf[slotgeom.InvalidByte] &^= slotgeom.InvalidMask
		return slotgeom.Bits3Byte, nil
	})
	if err != nil {
		t.Fatalf("Load(%d): %v", userSlot, err)
	}
}

func TestRotorStartsAtIdle(t *testing.T) {
	tb, _ := slot.NewTable(4)
	r := NewRotor(tb)
	if r.Current != tb.IdlePacket {
		t.Fatal("fresh Rotor should start at the idle packet")
	}
}

func TestRotorAdoptsNextHandoff(t *testing.T) {
	tb, _ := slot.NewTable(4)
	r := NewRotor(tb)

	load(t, tb, 1, 0)
	r.Advance(tb)

	if r.Current != tb.PersistentSlot(1) {
		t.Fatal("Advance did not adopt the freshly loaded slot")
	}
	if tb.Next() != nil {
		t.Fatal("Advance did not clear the hand-off cell")
	}
}

func TestRotorRepeatsOneShotSlotWhileNRepeatRemains(t *testing.T) {
	tb, _ := slot.NewTable(4)
	r := NewRotor(tb)

	load(t, tb, 0, 2)
	r.Advance(tb) // adopt slot 0
	if !r.IsOneShot {
		t.Fatal("adopting slot 0 should mark IsOneShot")
	}

	r.Advance(tb) // repeat once, nRepeat 2->1
	if r.Current != tb.PersistentSlot(0) {
		t.Fatal("one-shot repeat should keep Current on slot 0")
	}
	if tb.NRepeat() != 1 {
		t.Fatalf("NRepeat() = %d, want 1", tb.NRepeat())
	}

	r.Advance(tb) // repeat again, nRepeat 1->0
	if tb.NRepeat() != 0 {
		t.Fatalf("NRepeat() = %d, want 0", tb.NRepeat())
	}

	r.Advance(tb) // nRepeat exhausted, falls back to idle (nothing else loaded)
	if r.Current != tb.IdlePacket {
		t.Fatal("Rotor should fall back to idle once one-shot repeats are exhausted")
	}
}

func TestRotorRotatesAcrossPersistentSlotsSkippingInvalid(t *testing.T) {
	tb, _ := slot.NewTable(3)

	load(t, tb, 1, 0)
	r := NewRotor(tb)
	r.Advance(tb)
	load(t, tb, 2, 0)
	r.Advance(tb)
	load(t, tb, 3, 0)
	r.Advance(tb)

	// All three persistent slots loaded and slot 2 marked invalid; rotate
	// should cycle through the others without ever landing on it.
	tb.PersistentSlot(2).SetInvalid(true)
	seen := map[int]bool{}
	for i := 0; i < 6; i++ {
		r.Advance(tb)
		if r.Current.Invalid() {
			t.Fatal("rotation landed on an invalid slot")
		}
		seen[r.Current.NBits] = true
	}
}

func TestRotorFallsBackToIdleWhenNothingLoaded(t *testing.T) {
	tb, _ := slot.NewTable(4)
	r := NewRotor(tb)
	r.Advance(tb)
	if r.Current != tb.IdlePacket {
		t.Fatal("Advance with nothing loaded should stay at idle")
	}
}
