// Package core wires a slot table to the high-level command surface: it
// builds DCC packets from user-facing commands and loads them, and keeps
// the small amount of derived state (last packet, last throttle speed
// per slot) the command surface queries back out.
package core

import (
	"fmt"
	"sync"

	"github.com/mattharris/dcc-core/internal/encoder"
	"github.com/mattharris/dcc-core/internal/slot"
	"github.com/mattharris/dcc-core/internal/slotgeom"
)

// SpeedDir is the last commanded speed and direction for a throttle
// slot.
type SpeedDir struct {
	Speed int
	Dir   int
}

// Core owns a slot table for one output (MAIN or PROG) and the runtime
// configuration that affects how commands are encoded onto it.
type Core struct {
	Table *slot.Table

	// AccessoriesReversed inverts accessory activate polarity; promoted
	// from a build-time flag to a per-Core runtime setting.
	AccessoriesReversed bool

	mu          sync.Mutex
	lastResult  slot.LoadResult
	lastPayload []byte
	throttles   map[int]SpeedDir
}

// New builds a Core over an already-constructed slot table.
func New(table *slot.Table) *Core {
	return &Core{Table: table, throttles: make(map[int]SpeedDir)}
}

func (c *Core) load(userSlot, repeat int, payload []byte) (slot.LoadResult, error) {
	res, err := c.Table.Load(userSlot, repeat, func(buf *[slotgeom.BufferSize]byte) (int, error) {
		return encoder.Encode(buf[:], append(append([]byte(nil), payload...), 0), len(payload))
	})
	if err != nil {
		return slot.LoadResult{}, err
	}

	c.mu.Lock()
	c.lastResult = res
	c.lastPayload = append([]byte(nil), payload...)
	c.mu.Unlock()

	return res, nil
}

// Throttle loads a speed-and-direction packet into the given persistent
// slot and records it for LastThrottle.
func (c *Core) Throttle(userSlot, cab, speed, dir int) (slot.LoadResult, error) {
	if userSlot < 1 || userSlot > c.Table.Capacity() {
		return slot.LoadResult{}, fmt.Errorf("core: throttle slot %d out of range 1..%d", userSlot, c.Table.Capacity())
	}
	payload := BuildThrottle(cab, speed, dir)
	res, err := c.load(userSlot, 0, payload)
	if err != nil {
		return slot.LoadResult{}, err
	}

	c.mu.Lock()
	c.throttles[userSlot] = SpeedDir{Speed: speed, Dir: dir}
	c.mu.Unlock()

	return res, nil
}

// FunctionShort loads an FL/F1-F12 group packet into the one-shot slot.
func (c *Core) FunctionShort(cab int, fByte byte) (slot.LoadResult, error) {
	return c.load(slotgeom.OneShotSlot, 4, BuildFunctionShort(cab, fByte))
}

// FunctionLong loads an F13-F28 group packet into the one-shot slot.
func (c *Core) FunctionLong(cab int, fByte, eByte byte) (slot.LoadResult, error) {
	return c.load(slotgeom.OneShotSlot, 4, BuildFunctionLong(cab, fByte, eByte))
}

// Accessory loads a basic accessory decoder packet into the one-shot
// slot, honoring AccessoriesReversed.
func (c *Core) Accessory(addr, port, activate int) (slot.LoadResult, error) {
	pkt, err := BuildAccessory(addr, port, activate, c.AccessoriesReversed)
	if err != nil {
		return slot.LoadResult{}, err
	}
	return c.load(slotgeom.OneShotSlot, 4, pkt[:])
}

// WriteMainCVByte loads a programming-on-main CV byte write into the
// one-shot slot.
func (c *Core) WriteMainCVByte(cab, cv, value int) (slot.LoadResult, error) {
	return c.load(slotgeom.OneShotSlot, 4, BuildWriteMainCVByte(cab, cv, value))
}

// WriteMainCVBit loads a programming-on-main CV bit write into the
// one-shot slot.
func (c *Core) WriteMainCVBit(cab, cv, bit, value int) (slot.LoadResult, error) {
	return c.load(slotgeom.OneShotSlot, 4, BuildWriteMainCVBit(cab, cv, bit, value))
}

// RawPacket loads caller-supplied payload bytes (2..5) into the chosen
// user slot verbatim.
func (c *Core) RawPacket(userSlot int, payload []byte) (slot.LoadResult, error) {
	if len(payload) < slotgeom.MinPayloadBytes || len(payload) > slotgeom.MaxPayloadBytes {
		return slot.LoadResult{}, fmt.Errorf("core: raw packet length %d out of range %d..%d", len(payload), slotgeom.MinPayloadBytes, slotgeom.MaxPayloadBytes)
	}
	return c.load(userSlot, 0, payload)
}

// LastPacket reports the most recently loaded packet's payload and where
// it landed, for diagnostic query commands.
func (c *Core) LastPacket() (slot.LoadResult, []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult, append([]byte(nil), c.lastPayload...)
}

// Capacity returns the table's persistent slot count, N.
func (c *Core) Capacity() int { return c.Table.Capacity() }

// LastThrottle returns the most recently commanded speed and direction
// for a throttle slot, and whether one has ever been set.
func (c *Core) LastThrottle(userSlot int) (SpeedDir, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sd, ok := c.throttles[userSlot]
	return sd, ok
}
