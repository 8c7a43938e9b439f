// Package dispatch parses the text command surface and routes each
// command to the right output's core (and, for CV commands, its
// service-mode sequencer), formatting replies with package response.
package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattharris/dcc-core/internal/core"
	"github.com/mattharris/dcc-core/internal/response"
	"github.com/mattharris/dcc-core/internal/service"
)

// Programmer is the subset of *service.Sequencer a Dispatcher drives.
type Programmer interface {
	ReadCVByte(cv int) int
	WriteCVByte(cv, value int) int
	WriteCVBit(cv, bit, value int) int
}

var _ Programmer = (*service.Sequencer)(nil)

// Dispatcher routes parsed commands to a main-track core and a
// programming-track sequencer.
type Dispatcher struct {
	Main *core.Core
	Prog Programmer
}

// New builds a Dispatcher over the given outputs.
func New(main *core.Core, prog Programmer) *Dispatcher {
	return &Dispatcher{Main: main, Prog: prog}
}

// Dispatch parses a single command line and returns its reply, if any.
// ok is false when line produced no textual reply (set function, set
// accessory, write main CV byte/bit all reply with nothing, per the
// command surface).
func (d *Dispatcher) Dispatch(line string) (reply string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	switch fields[0] {
	case "set":
		return d.dispatchSet(fields[1:])
	case "raw":
		return d.dispatchRaw(fields[1:])
	case "read":
		return d.dispatchRead(fields[1:])
	case "write":
		return d.dispatchWrite(fields[1:])
	case "print":
		return d.dispatchPrint(fields[1:])
	default:
		return response.InvalidPacket, true
	}
}

func (d *Dispatcher) dispatchSet(args []string) (string, bool) {
	if len(args) == 0 {
		return response.InvalidPacket, true
	}
	switch args[0] {
	case "throttle":
		return d.setThrottle(args[1:])
	case "function":
		return d.setFunction(args[1:])
	case "accessory":
		return d.setAccessory(args[1:])
	default:
		return response.InvalidPacket, true
	}
}

func (d *Dispatcher) setThrottle(args []string) (string, bool) {
	slot, cab, speed, dir, err := parse4(args)
	if err != nil {
		return response.InvalidPacket, true
	}
	if _, err := d.Main.Throttle(slot, cab, speed, dir); err != nil {
		return response.InvalidPacket, true
	}
	return response.Throttle(slot, speed, dir), true
}

func (d *Dispatcher) setFunction(args []string) (string, bool) {
	if len(args) != 2 && len(args) != 3 {
		return response.InvalidPacket, true
	}
	cab, err := strconv.Atoi(args[0])
	if err != nil {
		return response.InvalidPacket, true
	}
	fByte, err := parseByte(args[1])
	if err != nil {
		return response.InvalidPacket, true
	}

	if len(args) == 2 {
		if _, err := d.Main.FunctionShort(cab, fByte); err != nil {
			return response.InvalidPacket, true
		}
		return "", false
	}

	eByte, err := parseByte(args[2])
	if err != nil {
		return response.InvalidPacket, true
	}
	if _, err := d.Main.FunctionLong(cab, fByte, eByte); err != nil {
		return response.InvalidPacket, true
	}
	return "", false
}

func (d *Dispatcher) setAccessory(args []string) (string, bool) {
	addr, port, activate, err := parse3(args)
	if err != nil {
		return response.InvalidPacket, true
	}
	if _, err := d.Main.Accessory(addr, port, activate); err != nil {
		return response.InvalidPacket, true
	}
	return "", false
}

func (d *Dispatcher) dispatchRaw(args []string) (string, bool) {
	if len(args) < 3 || len(args) > 6 {
		return response.InvalidPacket, true
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return response.InvalidPacket, true
	}
	payload := make([]byte, 0, len(args)-1)
	for _, a := range args[1:] {
		b, err := parseByte(a)
		if err != nil {
			return response.InvalidPacket, true
		}
		payload = append(payload, b)
	}
	if _, err := d.Main.RawPacket(slot, payload); err != nil {
		return response.InvalidPacket, true
	}
	return "", false
}

func (d *Dispatcher) dispatchRead(args []string) (string, bool) {
	cv, cb, cbSub, err := parse3(args)
	if err != nil {
		return response.InvalidPacket, true
	}
	value := d.Prog.ReadCVByte(cv)
	return response.ReadCV(cb, cbSub, cv, value), true
}

func (d *Dispatcher) dispatchWrite(args []string) (string, bool) {
	if len(args) == 0 {
		return response.InvalidPacket, true
	}
	switch args[0] {
	case "cv":
		return d.dispatchWriteCV(args[1:])
	case "main":
		return d.dispatchWriteMain(args[1:])
	default:
		return response.InvalidPacket, true
	}
}

func (d *Dispatcher) dispatchWriteCV(args []string) (string, bool) {
	if len(args) == 0 {
		return response.InvalidPacket, true
	}
	switch args[0] {
	case "byte":
		return d.writeCVByte(args[1:])
	case "bit":
		return d.writeCVBit(args[1:])
	default:
		return response.InvalidPacket, true
	}
}

func (d *Dispatcher) writeCVByte(args []string) (string, bool) {
	if len(args) != 4 {
		return response.InvalidPacket, true
	}
	cv, err1 := strconv.Atoi(args[0])
	value, err2 := strconv.Atoi(args[1])
	cb, err3 := strconv.Atoi(args[2])
	cbSub, err4 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return response.InvalidPacket, true
	}
	got := d.Prog.WriteCVByte(cv, value)
	return response.WriteCVByte(cb, cbSub, cv, got), true
}

func (d *Dispatcher) writeCVBit(args []string) (string, bool) {
	if len(args) != 5 {
		return response.InvalidPacket, true
	}
	cv, err1 := strconv.Atoi(args[0])
	bit, err2 := strconv.Atoi(args[1])
	value, err3 := strconv.Atoi(args[2])
	cb, err4 := strconv.Atoi(args[3])
	cbSub, err5 := strconv.Atoi(args[4])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return response.InvalidPacket, true
	}
	got := d.Prog.WriteCVBit(cv, bit, value)
	return response.WriteCVBit(cb, cbSub, cv, bit, got), true
}

func (d *Dispatcher) dispatchWriteMain(args []string) (string, bool) {
	if len(args) == 0 {
		return response.InvalidPacket, true
	}
	switch args[0] {
	case "byte":
		return d.writeMainCVByte(args[1:])
	case "bit":
		return d.writeMainCVBit(args[1:])
	default:
		return response.InvalidPacket, true
	}
}

func (d *Dispatcher) writeMainCVByte(args []string) (string, bool) {
	cab, cv, value, err := parse3(args)
	if err != nil {
		return response.InvalidPacket, true
	}
	if _, err := d.Main.WriteMainCVByte(cab, cv, value); err != nil {
		return response.InvalidPacket, true
	}
	return "", false
}

func (d *Dispatcher) writeMainCVBit(args []string) (string, bool) {
	cab, cv, bit, value, err := parse4(args)
	if err != nil {
		return response.InvalidPacket, true
	}
	if _, err := d.Main.WriteMainCVBit(cab, cv, bit, value); err != nil {
		return response.InvalidPacket, true
	}
	return "", false
}

func (d *Dispatcher) dispatchPrint(args []string) (string, bool) {
	if len(args) == 0 {
		return response.InvalidPacket, true
	}
	switch strings.Join(args, " ") {
	case "last packet":
		res, payload := d.Main.LastPacket()
		return response.LastPacket(res.UserSlot, payload, res.NRepeat), true
	case "capacity":
		return response.Capacity(d.Main.Capacity()), true
	default:
		return response.InvalidPacket, true
	}
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseInt(s, 0, 16)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func parse3(args []string) (a, b, c int, err error) {
	if len(args) != 3 {
		return 0, 0, 0, fmt.Errorf("dispatch: want 3 fields, got %d", len(args))
	}
	if a, err = strconv.Atoi(args[0]); err != nil {
		return
	}
	if b, err = strconv.Atoi(args[1]); err != nil {
		return
	}
	c, err = strconv.Atoi(args[2])
	return
}

func parse4(args []string) (a, b, c, e int, err error) {
	if len(args) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("dispatch: want 4 fields, got %d", len(args))
	}
	if a, err = strconv.Atoi(args[0]); err != nil {
		return
	}
	if b, err = strconv.Atoi(args[1]); err != nil {
		return
	}
	if c, err = strconv.Atoi(args[2]); err != nil {
		return
	}
	e, err = strconv.Atoi(args[3])
	return
}
