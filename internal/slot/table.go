package slot

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/mattharris/dcc-core/internal/encoder"
	"github.com/mattharris/dcc-core/internal/slotgeom"
)

// noPrev marks the absence of a previously-mapped physical slot.
const noPrev = -1

// Table is the fixed-capacity slot array plus the sparse user-slot address
// map and hand-off cell. N is the highest persistent user slot number;
// physical slots are indexed 0..N, with 0 reserved for one-shot traffic.
type Table struct {
	n         int
	slots     []*Slot
	regMapIdx []int // regMapIdx[userSlot] -> physical slot index, noPrev if unmapped

	// mu serializes the foreground command plane against itself. The
	// hardware this models has exactly one foreground execution context;
	// this mutex is that discipline's Go-side equivalent, not a
	// substitute for the next-cell atomics below.
	mu         sync.Mutex
	recycleIdx int // physical slot most recently displaced from a mapping, pending reuse

	maxLoaded atomic.Int32
	next      handoff
	nRepeat   atomic.Int32
	packetsTx atomic.Uint64

	IdlePacket  *Slot
	ResetPacket *Slot
}

// idlePayload and resetPayload are the persistent fixed packets used as
// filler/baseline on PROG during service mode.
var (
	idlePayload  = []byte{0xFF, 0x00, 0}
	resetPayload = []byte{0x00, 0x00, 0}
)

// NewTable allocates a table with n persistent user slots (1..n) plus the
// one-shot slot 0.
func NewTable(n int) (*Table, error) {
	if n < 1 {
		return nil, fmt.Errorf("slot: table capacity must be >= 1, got %d", n)
	}

	t := &Table{
		n:          n,
		slots:      make([]*Slot, n+1),
		regMapIdx:  make([]int, n+1),
		recycleIdx: noPrev,
	}
	for i := range t.slots {
		t.slots[i] = &Slot{}
		t.regMapIdx[i] = noPrev
	}

	idle := &Slot{}
	if _, err := encoder.Encode(idle.Buf[:], append([]byte(nil), idlePayload...), 2); err != nil {
		return nil, fmt.Errorf("slot: encoding idle packet: %w", err)
	}
	t.IdlePacket = idle

	reset := &Slot{}
	if _, err := encoder.Encode(reset.Buf[:], append([]byte(nil), resetPayload...), 2); err != nil {
		return nil, fmt.Errorf("slot: encoding reset packet: %w", err)
	}
	t.ResetPacket = reset

	return t, nil
}

// Capacity returns N, the highest persistent user slot number.
func (t *Table) Capacity() int { return t.n }

func (t *Table) waitNextClear() {
	for t.next.load() != nil {
		runtime.Gosched()
	}
}

// allocatePhysical assigns a physical slot to a persistent user slot:
// pick a physical slot (preferring one pending recycle over a fresh one),
// remember the displaced mapping, and publish the new mapping.
func (t *Table) allocatePhysical(userSlot int) (newIdx, prevIdx int) {
	newIdx = int(t.maxLoaded.Load()) + 1
	if newIdx > t.n {
		newIdx = t.n
	}
	if t.recycleIdx != noPrev {
		newIdx = t.recycleIdx
	}

	prevIdx = t.regMapIdx[userSlot]
	if prevIdx == noPrev {
		t.recycleIdx = noPrev
	} else {
		t.recycleIdx = prevIdx
	}
	t.regMapIdx[userSlot] = newIdx
	return newIdx, prevIdx
}

// EncodeFunc fills buf (exactly slotgeom.BufferSize bytes) with an
// encoded DCC frame and returns its bit length.
type EncodeFunc func(buf *[slotgeom.BufferSize]byte) (nBits int, err error)

// LoadResult reports what Load actually did, for diagnostics and for the
// last-packet/capacity query surface.
type LoadResult struct {
	UserSlot  int
	Physical  int
	NBits     int
	NRepeat   int
	Displaced int // physical slot index invalidated, or noPrev
}

// Load encodes a new packet into the table for the given user-facing slot
// number (0 for the one-shot slot, 1..N for persistent slots) and hands it
// off to the waveform engine. encode is called with the invalid flag still
// set on the destination buffer, exactly once, while no other Load call is
// in flight.
func (t *Table) Load(userSlot int, nRepeat int, encode EncodeFunc) (LoadResult, error) {
	userSlot = ((userSlot % (t.n + 1)) + (t.n + 1)) % (t.n + 1) // defensive modulo guard against out-of-range slot numbers

	t.mu.Lock()
	defer t.mu.Unlock()

	if userSlot == slotgeom.OneShotSlot {
		t.waitNextClear() // slot 0's buffer is shared; wait before touching it

		s := t.slots[slotgeom.OneShotSlot]
		s.SetInvalid(true)
		nBits, err := encode(&s.Buf)
		if err != nil {
			return LoadResult{}, err
		}
		s.NBits = nBits

		t.next.store(s)
		t.nRepeat.Store(int32(nRepeat))

		return LoadResult{UserSlot: 0, Physical: 0, NBits: nBits, NRepeat: nRepeat, Displaced: noPrev}, nil
	}

	newIdx, prevIdx := t.allocatePhysical(userSlot)
	s := t.slots[newIdx]
	s.SetInvalid(true)

	nBits, err := encode(&s.Buf)
	if err != nil {
		return LoadResult{}, err
	}
	s.NBits = nBits

	if prevIdx != noPrev {
		t.slots[prevIdx].SetInvalid(true) // waveform engine skips it on its next rotation
	}

	t.waitNextClear()
	t.next.store(s)
	t.nRepeat.Store(int32(nRepeat))
	if int32(newIdx) > t.maxLoaded.Load() {
		t.maxLoaded.Store(int32(newIdx))
	}

	return LoadResult{UserSlot: userSlot, Physical: newIdx, NBits: nBits, NRepeat: nRepeat, Displaced: prevIdx}, nil
}

// ---- waveform-engine-facing accessors ----

// Next returns the slot awaiting adoption, or nil.
func (t *Table) Next() *Slot { return t.next.load() }

// AdoptNext clears the hand-off cell. Called by the waveform engine exactly
// once per hand-off, after copying whatever per-slot state it needs.
func (t *Table) AdoptNext() { t.next.clear() }

// MaxLoaded returns the highest physical slot index ever handed off.
func (t *Table) MaxLoaded() int { return int(t.maxLoaded.Load()) }

// PersistentSlot returns physical slot i (expected 1..MaxLoaded()).
func (t *Table) PersistentSlot(i int) *Slot { return t.slots[i] }

// NRepeat returns the repeat count that accompanied the most recent
// one-shot hand-off.
func (t *Table) NRepeat() int { return int(t.nRepeat.Load()) }

// DecrementNRepeat decrements and returns the repeat counter.
func (t *Table) DecrementNRepeat() int { return int(t.nRepeat.Add(-1)) }

// PacketsTransmitted returns the monotonically increasing count of packets
// fully emitted by the waveform engine. Written only by the waveform
// engine; read-only from the command plane.
func (t *Table) PacketsTransmitted() uint64 { return t.packetsTx.Load() }

// IncPacketsTransmitted increments the packet counter. Called by the
// waveform engine only, once per fully-transmitted slot.
func (t *Table) IncPacketsTransmitted() uint64 { return t.packetsTx.Add(1) }
