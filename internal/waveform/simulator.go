package waveform

import (
	"context"
	"time"

	"github.com/mattharris/dcc-core/internal/slot"
)

// Default per-bit dwell times: roughly 58ยตs for a logical 1, 100ยตs for a
// logical 0.
const (
	DefaultOneBit  = 58 * time.Microsecond
	DefaultZeroBit = 100 * time.Microsecond

	// DefaultPreambleBits is the run of logical 1s the waveform engine
	// prepends to every frame. 16 comfortably exceeds the NMRA minimum of
	// 10 (14 for service mode).
	DefaultPreambleBits = 16
)

// Simulator is a software reference Engine: it performs the rotation and
// adoption decisions of Rotor, sleeping per bit at configurable dwell
// times. Tests shrink the dwell times to run fast; production use should
// prefer serialhw, which defers actual timing to attached hardware.
type Simulator struct {
	table *slot.Table

	OneBit       time.Duration
	ZeroBit      time.Duration
	PreambleBits int
}

// NewSimulator builds a Simulator with the default DCC bit timing.
func NewSimulator(table *slot.Table) *Simulator {
	return &Simulator{
		table:        table,
		OneBit:       DefaultOneBit,
		ZeroBit:      DefaultZeroBit,
		PreambleBits: DefaultPreambleBits,
	}
}

// Run implements Engine.
func (s *Simulator) Run(ctx context.Context) error {
	rotor := NewRotor(s.table)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.transmit(ctx, rotor.Current); err != nil {
			return err
		}
		s.table.IncPacketsTransmitted()

		rotor.Advance(s.table)
	}
}

func (s *Simulator) transmit(ctx context.Context, sl *slot.Slot) error {
	for i := 0; i < s.PreambleBits; i++ {
		if err := s.waitBit(ctx, 1); err != nil {
			return err
		}
	}
	for i := 0; i < sl.NBits; i++ {
		if err := s.waitBit(ctx, bitAt(sl.Buf[:], i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) waitBit(ctx context.Context, bit int) error {
	d := s.ZeroBit
	if bit == 1 {
		d = s.OneBit
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
