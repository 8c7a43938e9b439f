package core

import (
	"bytes"
	"testing"
)

func TestBuildThrottleForwardVector(t *testing.T) {
	got := BuildThrottle(42, 64, 1)
	want := []byte{0x2A, 0x3F, 0xC1}
	if !bytes.Equal(got, want) {
		t.Fatalf("BuildThrottle(42,64,1) = % X, want % X", got, want)
	}
}

func TestBuildThrottleLongAddressEstop(t *testing.T) {
	got := BuildThrottle(3000, -1, 0)
	want := []byte{0xCB, 0xB8, 0x3F, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("BuildThrottle(3000,-1,0) = % X, want % X", got, want)
	}
}

func TestBuildThrottleCapsSpeedAt126(t *testing.T) {
	got := BuildThrottle(3, 200, 1)
	if got[len(got)-1] != (126+1)|0x80 {
		t.Fatalf("speed byte = %#x, want capped-speed byte %#x", got[len(got)-1], (126+1)|0x80)
	}
}

func TestBuildFunctionShortVector(t *testing.T) {
	got := BuildFunctionShort(3, 144) // FL on
	want := []byte{0x03, (144 | 0x80) & 0xBF}
	if !bytes.Equal(got, want) {
		t.Fatalf("BuildFunctionShort(3,144) = % X, want % X", got, want)
	}
}

func TestBuildFunctionLongForcesInstructionNibble(t *testing.T) {
	got := BuildFunctionLong(3, 0x00, 0x01)
	if got[1] != 0xDE && got[1] != 0xDF {
		t.Fatalf("long-form instruction byte = %#x, want 0xDE or 0xDF", got[1])
	}
}

func TestBuildAccessoryActivateVector(t *testing.T) {
	pkt, err := BuildAccessory(24, 1, 1, false)
	if err != nil {
		t.Fatalf("BuildAccessory: %v", err)
	}
	if pkt[0] != 0x98 {
		t.Fatalf("b0 = %#x, want 0x98", pkt[0])
	}
	if pkt[1] != 0xFB {
		t.Fatalf("b1 = %#x, want 0xFB", pkt[1])
	}
}

func TestBuildAccessoryReversedInvertsActivate(t *testing.T) {
	normal, _ := BuildAccessory(24, 1, 1, false)
	reversed, _ := BuildAccessory(24, 1, 1, true)
	if normal[1] == reversed[1] {
		t.Fatal("reversed accessory produced the same byte as normal")
	}
}

func TestBuildAccessoryRejectsOutOfRangeAddress(t *testing.T) {
	if _, err := BuildAccessory(512, 0, 1, false); err == nil {
		t.Fatal("expected error for address > 511")
	}
	if _, err := BuildAccessory(-1, 0, 1, false); err == nil {
		t.Fatal("expected error for negative address")
	}
}

func TestBuildAccessoryRejectsOutOfRangePort(t *testing.T) {
	if _, err := BuildAccessory(24, 4, 1, false); err == nil {
		t.Fatal("expected error for port > 3")
	}
}

func TestCabAddressRoundTrip(t *testing.T) {
	for _, c := range []int{1, 42, 127, 128, 3000, 10239} {
		enc := encodeCab(nil, c)
		got, consumed := decodeCab(enc)
		if got != c {
			t.Fatalf("cab %d round-tripped to %d", c, got)
		}
		if consumed != len(enc) {
			t.Fatalf("cab %d: consumed %d bytes, encoded %d", c, consumed, len(enc))
		}
	}
}
