package dispatch

import (
	"testing"

	"github.com/mattharris/dcc-core/internal/core"
	"github.com/mattharris/dcc-core/internal/slot"
)

type scriptedProgrammer struct {
	readResult      int
	writeByteResult int
	writeBitResult  int
}

func (p *scriptedProgrammer) ReadCVByte(cv int) int           { return p.readResult }
func (p *scriptedProgrammer) WriteCVByte(cv, value int) int   { return p.writeByteResult }
func (p *scriptedProgrammer) WriteCVBit(cv, bit, value int) int { return p.writeBitResult }

func newTestDispatcher(t *testing.T) (*Dispatcher, *scriptedProgrammer) {
	t.Helper()
	tb, err := slot.NewTable(4)
	if err != nil {
		t.Fatalf("slot.NewTable: %v", err)
	}
	prog := &scriptedProgrammer{readResult: -1}
	return New(core.New(tb), prog), prog
}

func TestDispatchSetThrottle(t *testing.T) {
	d, _ := newTestDispatcher(t)
	reply, ok := d.Dispatch("set throttle 1 42 64 1")
	if !ok {
		t.Fatal("expected a reply")
	}
	if want := "<T1 64 1>"; reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestDispatchSetThrottleOutOfRangeSlotIsInvalid(t *testing.T) {
	d, _ := newTestDispatcher(t)
	reply, ok := d.Dispatch("set throttle 99 42 64 1")
	if !ok || reply != "<mInvalid Packet>" {
		t.Fatalf("reply = %q, ok = %v, want invalid-packet reply", reply, ok)
	}
}

func TestDispatchSetFunctionShortHasNoReply(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, ok := d.Dispatch("set function 3 0x82")
	if ok {
		t.Fatal("set function should produce no textual reply")
	}
}

func TestDispatchSetAccessoryHasNoReply(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, ok := d.Dispatch("set accessory 24 1 1")
	if ok {
		t.Fatal("set accessory should produce no textual reply")
	}
}

func TestDispatchSetAccessoryRejectsOutOfRange(t *testing.T) {
	d, _ := newTestDispatcher(t)
	reply, ok := d.Dispatch("set accessory 999 1 1")
	if !ok || reply != "<mInvalid Packet>" {
		t.Fatalf("reply = %q, ok = %v, want invalid-packet reply", reply, ok)
	}
}

func TestDispatchRawPacketRejectsBadLength(t *testing.T) {
	d, _ := newTestDispatcher(t)
	reply, ok := d.Dispatch("raw 1 0xFF")
	if !ok || reply != "<mInvalid Packet>" {
		t.Fatalf("reply = %q, ok = %v, want invalid-packet reply", reply, ok)
	}
}

func TestDispatchRawPacketAcceptsValidLength(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, ok := d.Dispatch("raw 1 0xFF 0x00")
	if ok {
		t.Fatal("a valid raw packet command should produce no textual reply")
	}
}

func TestDispatchReadCV(t *testing.T) {
	d, prog := newTestDispatcher(t)
	prog.readResult = 0x55
	reply, ok := d.Dispatch("read 29 0 0")
	if !ok {
		t.Fatal("expected a reply")
	}
	if want := "<r 0|0|29 85>"; reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestDispatchWriteCVByte(t *testing.T) {
	d, prog := newTestDispatcher(t)
	prog.writeByteResult = 85
	reply, ok := d.Dispatch("write cv byte 29 85 0 0")
	if !ok {
		t.Fatal("expected a reply")
	}
	if want := "<r 0|0|29 85>"; reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestDispatchWriteCVBit(t *testing.T) {
	d, prog := newTestDispatcher(t)
	prog.writeBitResult = 1
	reply, ok := d.Dispatch("write cv bit 29 3 1 0 0")
	if !ok {
		t.Fatal("expected a reply")
	}
	if want := "<r 0|0|29 3 1>"; reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestDispatchWriteMainCVByteHasNoReply(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, ok := d.Dispatch("write main byte 3 29 85")
	if ok {
		t.Fatal("write main CV byte should produce no textual reply")
	}
}

func TestDispatchPrintCapacity(t *testing.T) {
	d, _ := newTestDispatcher(t)
	reply, ok := d.Dispatch("print capacity")
	if !ok || reply != "<# 4>" {
		t.Fatalf("reply = %q, ok = %v, want <# 4>", reply, ok)
	}
}

func TestDispatchPrintLastPacketAfterThrottle(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Dispatch("set throttle 1 42 64 1")
	reply, ok := d.Dispatch("print last packet")
	if !ok {
		t.Fatal("expected a reply")
	}
	if want := "<* 1: 2A 3F C1 / 0>"; reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestDispatchUnknownCommandIsInvalid(t *testing.T) {
	d, _ := newTestDispatcher(t)
	reply, ok := d.Dispatch("frobnicate")
	if !ok || reply != "<mInvalid Packet>" {
		t.Fatalf("reply = %q, ok = %v, want invalid-packet reply", reply, ok)
	}
}

func TestDispatchEmptyLineProducesNoReply(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, ok := d.Dispatch("")
	if ok {
		t.Fatal("an empty line should produce no reply")
	}
}
