// Package serialhw implements waveform.Engine by delegating the actual
// microsecond-resolution pin toggling to a companion board attached over a
// serial link, instead of approximating it in-process the way
// waveform.Simulator does.
//
// The wire framing is a fixed magic/version/opcode/length-prefixed header
// ahead of the payload, with a single status byte in reply.
package serialhw

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/serial"
	"golang.org/x/sys/unix"

	"github.com/mattharris/dcc-core/internal/slot"
	"github.com/mattharris/dcc-core/internal/waveform"
)

const (
	magicHi   byte = 0x44 // 'D'
	magicLo   byte = 0x43 // 'C'
	versionV1 byte = 0x01

	opFrame byte = 0x01 // transmit one encoded slot buffer
	opIdle  byte = 0x02 // transmit the idle packet

	respDone byte = 0x00
	respErr  byte = 0x01
)

// headerSize is magic(2) + version(1) + opcode(1) + nBits(2) + length(2).
const headerSize = 8

// Config describes the serial link to the companion board.
type Config struct {
	Device   string
	BaudRate int
	Timeout  time.Duration
}

// Engine forwards slot hand-offs to the companion board and blocks for its
// per-frame completion acknowledgement before advancing, so
// PacketsTransmitted reflects real transmission rather than a guess.
type Engine struct {
	table *slot.Table
	port  serial.Port
	cfg   Config
}

// fder is satisfied by *os.File and by most serial.Port implementations on
// unix; termios tuning is skipped if a Port doesn't expose a descriptor.
type fder interface{ Fd() uintptr }

// Open dials the companion board and tunes the link for raw binary framing.
func Open(table *slot.Table, cfg Config) (*Engine, error) {
	if cfg.Device == "" {
		return nil, errors.New("serialhw: device required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serialhw: open %s: %w", cfg.Device, err)
	}

	if f, ok := port.(fder); ok {
		if err := tuneRaw(f); err != nil {
			port.Close()
			return nil, fmt.Errorf("serialhw: tune termios: %w", err)
		}
	}

	return &Engine{table: table, port: port, cfg: cfg}, nil
}

// Close releases the serial link.
func (e *Engine) Close() error { return e.port.Close() }

// Run implements waveform.Engine.
func (e *Engine) Run(ctx context.Context) error {
	rotor := waveform.NewRotor(e.table)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.sendFrame(rotor.Current); err != nil {
			return fmt.Errorf("serialhw: frame send failed: %w", err)
		}
		e.table.IncPacketsTransmitted()

		rotor.Advance(e.table)
	}
}

func (e *Engine) sendFrame(sl *slot.Slot) error {
	op := opFrame
	if sl == e.table.IdlePacket {
		op = opIdle
	}

	hdr := make([]byte, headerSize)
	hdr[0], hdr[1] = magicHi, magicLo
	hdr[2] = versionV1
	hdr[3] = op
	binary.BigEndian.PutUint16(hdr[4:6], uint16(sl.NBits))
	binary.BigEndian.PutUint16(hdr[6:8], uint16(len(sl.Buf)))

	pkt := append(hdr, sl.Buf[:]...)
	if err := writeAll(e.port, pkt); err != nil {
		return err
	}

	var resp [1]byte
	if _, err := io.ReadFull(e.port, resp[:]); err != nil {
		return fmt.Errorf("ack read: %w", err)
	}
	if resp[0] != respDone {
		return fmt.Errorf("companion board reported status 0x%02x", resp[0])
	}
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// tuneRaw puts the link into raw mode with blocking single-byte reads: no
// canonical line discipline, no echo, 8N1 -- the framing above is binary
// and must not be mangled by a terminal driver expecting line-oriented
// text.
func tuneRaw(f fder) error {
	fd := int(f.Fd())

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	raw := *t
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8

	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, unix.TCSETS, &raw)
}
