/*
 * periph - Tape CCW engine / device wrapper
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package tape

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	D "github.com/rcornwell/periph/emu/device"
	ev "github.com/rcornwell/periph/emu/event"
	"github.com/rcornwell/periph/util/hex"
	utape "github.com/rcornwell/periph/util/tape"
	"github.com/rcornwell/periph/util/xlat"
)

const eventDelay = 10 // cycles, matching the surrounding device line's completion latency

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

// Device implements D.Device for one emulated tape drive: the validity
// matrix, sense builder and display engine are pure functions, wired
// together here against a live MediaHandler and a channel.System.
type Device struct {
	sys    Channel
	addr   uint16
	family Family

	media    MediaHandler
	filename string

	display    Display
	autoloader *Autoloader

	senseBytes [24]byte
	senseLen   int
	unitCheck  bool

	count int // bytes expected for the CCW currently in progress
	halt  bool
	busy  bool

	deviceID []byte
	debugMsk int
}

// Channel is the subset of *channel.System the tape device needs. Kept as
// an interface so package tests can supply a lighter stand-in.
type Channel interface {
	SetBuffer(devNum uint16, buf []byte)
	Buffer(devNum uint16) []byte
	ChanEnd(devNum uint16, status uint8)
	SetDevAttn(devNum uint16, status uint8)
}

// NewDevice constructs a tape device of family fam, attached to sys at
// addr, with no volume mounted.
func NewDevice(sys Channel, addr uint16, fam Family) *Device {
	d := &Device{sys: sys, addr: addr, family: fam}
	d.deviceID = defaultSenseID(fam)
	return d
}

func defaultSenseID(fam Family) []byte {
	desc, ok := families[fam]
	if !ok {
		return []byte{0xff}
	}
	if desc.legacySenseID {
		return []byte{0xff, 0x0c, 0x00}
	}
	return []byte{0xff, 0x0c, 0x00, 0x00, 0x00, 0x00, 0x00}
}

// Mount attaches filename to the device through handler, replacing any
// currently mounted volume.
func (d *Device) Mount(handler MediaHandler, filename string) error {
	if d.media != nil {
		_ = d.media.Close()
	}
	if err := handler.Open(filename, handler.ReadOnly()); err != nil {
		return err
	}
	d.media = handler
	d.filename = filename
	return nil
}

// Unmount closes the current volume, notifying the display engine so a
// pending UMOUNTMOUNT advances to its mount half.
func (d *Device) Unmount() error {
	if d.media == nil {
		return nil
	}
	err := d.media.Close()
	d.media = nil
	d.filename = ""
	d.display.Unmounted()
	if d.display.ReqAutoMount {
		NotifyOperator(d.name(), &d.display)
	}
	return err
}

func (d *Device) name() string {
	desc, ok := families[d.family]
	if !ok {
		return "TAPE"
	}
	return desc.name
}

// StartIO begins a new CCW chain.
func (d *Device) StartIO() uint8 {
	if d.busy {
		return D.CStatusBusy
	}
	return 0
}

// SetCount records how many bytes the current CCW's data phase will
// transfer, mirroring the channel-supplied CCW count.
func (d *Device) SetCount(n int) { d.count = n }

// StartCmd begins executing cmd, returning immediate status for
// invalid/no-op CCWs or 0 while the command runs asynchronously to
// completion via the event scheduler.
func (d *Device) StartCmd(cmd uint8) uint8 {
	if d.busy {
		return D.CStatusBusy
	}

	if d.debugMsk&debugCmd != 0 {
		slog.Debug("tape cmd", "addr", d.addr, "opcode", cmd)
	}

	rc := Validate(d.family, cmd)
	if rc == cmdInvalid {
		d.postSense(ErrBadCommand, cmd)
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	}

	if rc == cmdNoOp || rc == cmdNoOpVirtual {
		return D.CStatusChnEnd | D.CStatusDevEnd
	}

	d.halt = false
	d.busy = true

	if IsImmediate(d.family, cmd) {
		d.execute(cmd)
		return D.CStatusChnEnd
	}

	ev.AddEvent(d, d.callback, eventDelay, int(cmd))
	return 0
}

func (d *Device) callback(cmd int) {
	d.execute(uint8(cmd))
}

// execute runs the 5-step Tape CCW Engine dispatch for opcode.
func (d *Device) execute(opcode uint8) {
	d.busy = false

	if d.halt {
		d.halt = false
		d.sys.ChanEnd(d.addr, D.CStatusChnEnd|D.CStatusDevEnd)
		return
	}

	switch opcode {
	case opSense:
		d.sys.SetBuffer(d.addr, d.senseBytes[:d.senseLen])
		d.sys.ChanEnd(d.addr, D.CStatusChnEnd|D.CStatusDevEnd)
		d.senseLen = 0
		return
	case opSenseID:
		d.sys.SetBuffer(d.addr, d.deviceID)
		d.sys.ChanEnd(d.addr, D.CStatusChnEnd|D.CStatusDevEnd)
		return
	case opLoadDisp:
		d.sys.ChanEnd(d.addr, D.CStatusChnEnd|D.CStatusDevEnd)
		return
	}

	if d.media == nil || !d.media.IsLoaded() {
		d.postSense(ErrTapeUnloaded, opcode)
		d.sys.ChanEnd(d.addr, D.CStatusChnEnd|D.CStatusDevEnd|D.CStatusCheck)
		return
	}

	var status uint8
	var kind ErrorKind = ErrStatusOnly

	switch opcode {
	case opWriteFwd:
		buf := d.sys.Buffer(d.addr)
		if len(buf) > d.count && d.count > 0 {
			buf = buf[:d.count]
		}
		d.traceData("write", buf)
		if err := d.media.WriteBlock(buf); err != nil {
			kind = classifyWriteErr(err)
		}
	case opReadFwd, opReadBack:
		buf := make([]byte, d.count)
		n, mark, err := d.media.ReadBlock(buf)
		if err != nil {
			kind = classifyReadErr(err)
		} else if mark {
			kind = ErrReadTM
			status |= D.CStatusExpt
		} else {
			d.sys.SetBuffer(d.addr, buf[:n])
			d.traceData("read", buf[:n])
		}
	case opWriteTM:
		if err := d.media.WriteMark(); err != nil {
			kind = classifyWriteErr(err)
		}
	case opRewind, opRewindUnl:
		if err := d.media.Rewind(); err != nil {
			kind = ErrRewindFailed
		}
		if opcode == opRewindUnl {
			_ = d.Unmount()
		}
	case opFSB:
		if err := d.media.FSB(); err != nil {
			kind = classifyReadErr(err)
		}
	case opBSB:
		if err := d.media.BSB(); err != nil {
			kind = classifyReadErr(err)
		}
	case opFSF:
		if err := d.media.FSF(); err != nil {
			kind = classifyReadErr(err)
		}
	case opBSF:
		if err := d.media.BSF(); err != nil {
			kind = classifyReadErr(err)
		}
	case opDSE:
		if err := d.media.DSE(); err != nil {
			kind = classifyWriteErr(err)
		}
	case opErase:
		if err := d.media.ERG(); err != nil {
			kind = classifyWriteErr(err)
		}
	case opSync:
		if err := d.media.Sync(); err != nil {
			kind = classifyWriteErr(err)
		}
	default:
		kind = ErrBadCommand
	}

	sense := BuildSense(d.family, kind, d.media != nil && d.media.IsLoaded(),
		d.media != nil && d.media.AtLoadPoint(), d.media != nil && d.media.PassedEOT(), opcode)
	d.senseBytes = sense.Bytes
	d.senseLen = 8
	if sense.UnitStatus&D.CStatusCheck != 0 {
		d.unitCheck = true
	}

	d.sys.ChanEnd(d.addr, status|sense.UnitStatus)
}

func classifyWriteErr(err error) ErrorKind {
	if err == ErrWriteProtect {
		return ErrWriteProtect
	}
	return ErrWriteFail
}

func classifyReadErr(err error) ErrorKind {
	switch {
	case errors.Is(err, utape.TapeEOT):
		return ErrEndOfTape
	case errors.Is(err, utape.TapeBOT):
		return ErrLoadPtErr
	case errors.Is(err, utape.TapeMARK):
		return ErrReadTM
	default:
		return ErrReadFail
	}
}

func (d *Device) postSense(kind ErrorKind, opcode uint8) {
	sense := BuildSense(d.family, kind, d.media != nil && d.media.IsLoaded(), false, false, opcode)
	d.senseBytes = sense.Bytes
	d.senseLen = 8
}

// HaltIO requests the in-progress CCW stop at its next opportunity.
func (d *Device) HaltIO() uint8 {
	if !d.busy {
		return 1
	}
	d.halt = true
	return 2
}

// InitDev resets the device to its power-on state.
func (d *Device) InitDev() uint8 {
	d.busy = false
	d.halt = false
	d.senseLen = 0
	d.unitCheck = false
	return 0
}

// Shutdown releases the mounted volume and stops any autoloader waiter.
func (d *Device) Shutdown() {
	if d.autoloader != nil {
		d.autoloader.StopWaiter()
	}
	if d.media != nil {
		_ = d.media.Close()
	}
}

// traceData logs a hex dump of a block transfer when the DATA option is
// enabled.
func (d *Device) traceData(dir string, buf []byte) {
	if d.debugMsk&debugData == 0 {
		return
	}
	var b strings.Builder
	hex.FormatBytes(&b, true, buf)
	slog.Debug("tape data", "addr", d.addr, "dir", dir, "bytes", b.String())
}

// Debug enables a tracing option; "CMD" logs every opcode dispatched, "DATA"
// hex-dumps each block read or written.
func (d *Device) Debug(opt string) error {
	flag, ok := debugOption[strings.ToUpper(opt)]
	if !ok {
		return errors.New("tape: invalid debug option: " + opt)
	}
	d.debugMsk |= flag
	return nil
}

// AttachAutoloader wires a, starting its first mount and a background
// waiter that retries advancing on load failure.
func (d *Device) AttachAutoloader(a *Autoloader) {
	d.autoloader = a
	if err := a.MountFirst(); err != nil {
		a.StartWaiter(5*time.Second, func() {
			d.sys.SetDevAttn(d.addr, D.CStatusDevEnd)
		})
	}
}

// renderEBCDICMessage decodes the 8-byte EBCDIC message field a
// Load-Display CCW carries.
func renderEBCDICMessage(b []byte) string {
	return xlat.FromEBCDIC(b)
}
