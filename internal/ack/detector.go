// Package ack implements the service-mode acknowledgement detector: a
// decoder signals acceptance of a programming command by drawing a brief
// current pulse on the programming track, and this package turns a
// stream of current samples and a packet-transmission count into a
// confirmed/timed-out verdict.
package ack

import "time"

// State names a position in the acknowledgement state machine.
type State int

const (
	SeekRise State = iota
	SeekFall
	Confirmed
	Done
)

func (s State) String() string {
	switch s {
	case SeekRise:
		return "SeekRise"
	case SeekFall:
		return "SeekFall"
	case Confirmed:
		return "Confirmed"
	case Done:
		return "Done"
	default:
		return "unknown"
	}
}

// Result is what Step returns once the detector reaches a terminal
// verdict; Pending means keep sampling.
type Result int

const (
	Pending Result = iota
	Acked
	TimedOut
)

const (
	// DefaultThreshold is the default current-above-baseline trip point,
	// in milliamps, that marks the rising and falling edge of an ack
	// pulse.
	DefaultThreshold = 60

	// An ack pulse must dwell above threshold for between ackDwellMin and
	// ackDwellMax to count as a real acknowledgement rather than noise.
	ackDwellMin = 1125 * tickDuration
	ackDwellMax = 2125 * tickDuration
	tickDuration = 4 * time.Microsecond

	armedTimeoutPackets  = 9
	confirmLingerPackets = 3
)

// Detector runs the SeekRise -> SeekFall -> Confirmed -> Done state
// machine described above. It is driven one current sample at a time by
// Step; it keeps no reference to a current.Monitor or slot.Table itself
// so its transitions can be exercised directly in tests.
type Detector struct {
	threshold int

	state    State
	upTick   time.Time
	armedAt  uint64
	ackFound bool
}

// New builds a Detector armed with the given above-baseline threshold, in
// milliamps.
func New(threshold int) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold, state: SeekRise}
}

// State reports the detector's current position in the state machine.
func (d *Detector) State() State { return d.state }

// Arm resets the detector for a fresh probe, recording the current packet
// counter as the timeout reference point.
func (d *Detector) Arm(packetsTransmitted uint64) {
	d.state = SeekRise
	d.ackFound = false
	d.armedAt = packetsTransmitted
}

// Step processes one current sample. reload is invoked to re-install the
// baseline packet into the programming slot, both on confirmation and on
// timeout -- restoring a known track state regardless of outcome.
func (d *Detector) Step(raw, base int, packetsTransmitted uint64, reload func()) Result {
	c := raw - base
	if c < 0 {
		c = 0
	}

	switch d.state {
	case SeekRise:
		if c > d.threshold {
			d.upTick = time.Now()
			d.state = SeekFall
		}
	case SeekFall:
		if c < d.threshold {
			downTick := time.Now()
			dwell := downTick.Sub(d.upTick)
			if dwell >= ackDwellMin && dwell <= ackDwellMax {
				d.state = Confirmed
			} else {
				d.state = SeekRise
			}
		}
	}

	if d.state == Confirmed {
		reload()
		d.armedAt = packetsTransmitted
		d.ackFound = true
		d.state = Done
	}

	if d.ackFound && packetsTransmitted-d.armedAt >= confirmLingerPackets {
		return Acked
	}
	if packetsTransmitted-d.armedAt >= armedTimeoutPackets {
		reload()
		if d.ackFound {
			return Acked
		}
		return TimedOut
	}
	return Pending
}

// CurrentReader is the minimal current.Monitor surface Detect needs.
type CurrentReader interface {
	Read() int
}

// PacketCounter is the minimal slot.Table surface Detect needs.
type PacketCounter interface {
	PacketsTransmitted() uint64
}

// Detect runs Step in a tight sampling loop to completion: it blocks
// until the detector confirms an acknowledgement or times out.
func (d *Detector) Detect(cur CurrentReader, packets PacketCounter, base int, reload func()) bool {
	d.Arm(packets.PacketsTransmitted())
	for {
		raw := cur.Read()
		switch d.Step(raw, base, packets.PacketsTransmitted(), reload) {
		case Acked:
			return true
		case TimedOut:
			return false
		}
	}
}
