// Package service implements the service-mode (programming track)
// configuration-variable sequences: read-byte, write-byte and write-bit,
// each built from repeated slot loads paired with the acknowledgement
// detector.
package service

import (
	"runtime"

	"github.com/mattharris/dcc-core/internal/ack"
	"github.com/mattharris/dcc-core/internal/cvcode"
	"github.com/mattharris/dcc-core/internal/encoder"
	"github.com/mattharris/dcc-core/internal/slot"
	"github.com/mattharris/dcc-core/internal/slotgeom"
)

// DefaultBaseSamples is ACK_BASE_COUNT: the number of current samples
// averaged to establish the ack-detection baseline before a probe.
const DefaultBaseSamples = 10

const (
	progSlot     = 1 // the persistent slot probes are loaded into
	resetRepeats = 3
)

// Detector is the ack-detection surface a Sequencer needs; *ack.Detector
// satisfies it.
type Detector interface {
	Detect(cur ack.CurrentReader, packets ack.PacketCounter, base int, reload func()) bool
}

// Sequencer drives CV programming over a slot.Table, using a Detector
// and a current reader wired to the programming output.
type Sequencer struct {
	table       *slot.Table
	currentMon  ack.CurrentReader
	detector    Detector
	baseSamples int

	// Enable/Disable toggle the PROG output; withPower wraps a
	// conversation in the power-on preamble described for service mode.
	Enable  func()
	Disable func()
	enabled bool
}

// New builds a Sequencer. enable/disable may be nil if the output is
// always energized.
func New(table *slot.Table, currentMon ack.CurrentReader, detector Detector, enable, disable func()) *Sequencer {
	return &Sequencer{
		table:       table,
		currentMon:  currentMon,
		detector:    detector,
		baseSamples: DefaultBaseSamples,
		Enable:      enable,
		Disable:     disable,
	}
}

// SetBaseSamples overrides ACK_BASE_COUNT for baseline current averaging.
func (s *Sequencer) SetBaseSamples(n int) {
	if n > 0 {
		s.baseSamples = n
	}
}

// withPower ensures the PROG output is enabled for the duration of fn,
// observing the power-on preamble: if the output was off, turn it on and
// wait 20 packet transmissions before proceeding; if already on, wait 3.
func (s *Sequencer) withPower(fn func()) {
	if !s.enabled {
		if s.Enable != nil {
			s.Enable()
		}
		s.enabled = true
		s.waitPackets(20)
		defer func() {
			if s.Disable != nil {
				s.Disable()
			}
			s.enabled = false
		}()
	} else {
		s.waitPackets(3)
	}
	fn()
}

func (s *Sequencer) waitPackets(n uint64) {
	start := s.table.PacketsTransmitted()
	for s.table.PacketsTransmitted()-start < n {
		runtime.Gosched()
	}
}

// baseCurrent samples the current monitor baseSamples times and returns
// the arithmetic mean as the ack-detection baseline.
func (s *Sequencer) baseCurrent() int {
	sum := 0
	for i := 0; i < s.baseSamples; i++ {
		sum += s.currentMon.Read()
	}
	return sum / s.baseSamples
}

func (s *Sequencer) loadReset(targetSlot, repeats int) {
	s.table.Load(targetSlot, repeats, func(buf *[slotgeom.BufferSize]byte) (int, error) {
		payload := []byte{0x00, 0x00, 0}
		return encoder.Encode(buf[:], payload, 2)
	})
}

func (s *Sequencer) loadProbe(payload []byte) {
	s.table.Load(progSlot, 0, func(buf *[slotgeom.BufferSize]byte) (int, error) {
		return encoder.Encode(buf[:], append(append([]byte(nil), payload...), 0), len(payload))
	})
}

func (s *Sequencer) probe(payload []byte) bool {
	base := s.baseCurrent()
	s.loadProbe(payload)
	// On confirm or timeout, go back to transmitting reset packets in
	// the persistent probe slot, not the one-shot slot -- the probe
	// packet just loaded there must not keep repeating into the next
	// probe.
	return s.detector.Detect(s.currentMon, s.table, base, func() { s.loadReset(progSlot, 1) })
}

// ReadCVByte reads CV cv (1..1024) bit by bit via repeated verify-bit
// probes, then confirms the reconstructed value with a verify-byte
// probe. Returns -1 if the final verification fails.
func (s *Sequencer) ReadCVByte(cv int) int {
	value := -1
	s.withPower(func() {
		var v int
		for i := 0; i < 8; i++ {
			s.loadReset(slotgeom.OneShotSlot, resetRepeats)

			instr, lo := cvcode.Split(cvcode.OpVerifyBit, cv)
			pattern := cvcode.BitPattern(cvcode.VerifyBitPattern, 1, i)
			ok := s.probe([]byte{instr, lo, pattern})
			if ok {
				v |= 1 << uint(i)
			}
		}

		instr, lo := cvcode.Split(cvcode.OpVerifyByte, cv)
		if s.probe([]byte{instr, lo, byte(v)}) {
			value = v
		}
	})
	return value
}

// WriteCVByte writes value to CV cv, confirming with a verify-byte probe
// if the write itself draws no ack. Returns -1 if neither succeeds.
func (s *Sequencer) WriteCVByte(cv, value int) int {
	result := -1
	s.withPower(func() {
		instr, lo := cvcode.Split(cvcode.OpWriteByte, cv)
		if s.probe([]byte{instr, lo, byte(value)}) {
			result = value
			return
		}

		vinstr, vlo := cvcode.Split(cvcode.OpVerifyByte, cv)
		if s.probe([]byte{vinstr, vlo, byte(value)}) {
			result = value
		}
	})
	return result
}

// WriteCVBit writes a single bit of CV cv, falling back to a verify
// probe of the same bit if the write draws no ack. Returns -1 if neither
// succeeds.
func (s *Sequencer) WriteCVBit(cv, bit, value int) int {
	bit &= 0x07
	value &= 0x01
	result := -1
	s.withPower(func() {
		instr, lo := cvcode.Split(cvcode.OpWriteBit, cv)
		pattern := cvcode.BitPattern(cvcode.WriteBitPattern, value, bit)
		if s.probe([]byte{instr, lo, pattern}) {
			result = value
			return
		}

		// Derive the verify pattern from the already-built write pattern
		// rather than re-deriving it from VerifyBitPattern: that base
		// constant bakes in a value bit of its own, so ORing it with
		// value again can never express value=0.
		verifyPattern := pattern &^ cvcode.WriteFlag
		if s.probe([]byte{instr, lo, verifyPattern}) {
			result = value
		}
	})
	return result
}
