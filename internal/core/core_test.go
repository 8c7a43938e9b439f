package core

import (
	"testing"

	"github.com/mattharris/dcc-core/internal/slot"
)

func newTestCore(t *testing.T, n int) *Core {
	t.Helper()
	tb, err := slot.NewTable(n)
	if err != nil {
		t.Fatalf("slot.NewTable: %v", err)
	}
	return New(tb)
}

func TestThrottleRejectsOutOfRangeSlot(t *testing.T) {
	c := newTestCore(t, 4)
	if _, err := c.Throttle(5, 3, 64, 1); err == nil {
		t.Fatal("expected error for slot beyond capacity")
	}
	if _, err := c.Throttle(0, 3, 64, 1); err == nil {
		t.Fatal("expected error for slot 0 (reserved for one-shot commands)")
	}
}

func TestThrottleRecordsLastThrottle(t *testing.T) {
	c := newTestCore(t, 12)
	if _, err := c.Throttle(3, 42, 64, 1); err != nil {
		t.Fatalf("Throttle: %v", err)
	}
	c.Table.AdoptNext()

	sd, ok := c.LastThrottle(3)
	if !ok {
		t.Fatal("LastThrottle reports no throttle set after a successful Throttle call")
	}
	if sd.Speed != 64 || sd.Dir != 1 {
		t.Fatalf("LastThrottle = %+v, want Speed=64 Dir=1", sd)
	}
}

func TestLastPacketReflectsMostRecentLoad(t *testing.T) {
	c := newTestCore(t, 12)
	if _, err := c.Throttle(3, 42, 64, 1); err != nil {
		t.Fatalf("Throttle: %v", err)
	}
	c.Table.AdoptNext()

	res, payload := c.LastPacket()
	if res.UserSlot != 3 {
		t.Fatalf("LastPacket UserSlot = %d, want 3", res.UserSlot)
	}
	want := []byte{0x2A, 0x3F, 0xC1}
	if len(payload) != len(want) {
		t.Fatalf("LastPacket payload = % X, want % X", payload, want)
	}
}

func TestCapacityMatchesTable(t *testing.T) {
	c := newTestCore(t, 7)
	if c.Capacity() != 7 {
		t.Fatalf("Capacity() = %d, want 7", c.Capacity())
	}
}

func TestAccessoryHonorsReversedFlag(t *testing.T) {
	c := newTestCore(t, 4)
	c.AccessoriesReversed = true
	res, err := c.Accessory(24, 1, 1)
	if err != nil {
		t.Fatalf("Accessory: %v", err)
	}
	if res.NRepeat != 4 {
		t.Fatalf("NRepeat = %d, want 4", res.NRepeat)
	}
	c.Table.AdoptNext()

	_, payload := c.LastPacket()
	if payload[1] == 0xFB { // the non-reversed vector's b1
		t.Fatal("reversed flag had no effect on encoded byte")
	}
}
