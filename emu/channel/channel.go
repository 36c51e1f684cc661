/*
 * periph - Channel subchannel harness
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

// Package channel provides the subchannel-addressable surface that tape and
// HIM devices attach to. Unlike the full CPU channel subsystem, it carries no
// main-storage or CAW coupling: each subchannel owns an explicit byte buffer
// supplied by the caller, and every operation is a method on a System value
// rather than a package-level global, so multiple independent systems can
// exist side by side in tests.
package channel

import (
	"errors"
	"sync"

	D "github.com/rcornwell/periph/emu/device"
)

const (
	CStatusAttn   uint8 = 0x80 // Unit attention
	CStatusSMS    uint8 = 0x40 // Status modifier
	CStatusCtlEnd uint8 = 0x20 // Control unit end
	CStatusBusy   uint8 = 0x10 // Unit Busy
	CStatusChnEnd uint8 = 0x08 // Channel end
	CStatusDevEnd uint8 = 0x04 // Device end
	CStatusCheck  uint8 = 0x02 // Unit check
	CStatusExpt   uint8 = 0x01 // Unit exception
)

// subChannel holds the per-device byte-serial transfer state used by
// ChanReadByte/ChanWriteByte. Devices fill in buf before issuing an
// event that eventually calls back into the channel to move bytes.
type subChannel struct {
	dev    D.Device
	buf    []byte // data buffer for the current CCW
	pos    int    // next byte offset
	status uint8  // last posted status
	attn   bool   // SetDevAttn raised since last read
}

// System is an explicit collection of subchannels. Production wiring and
// package tests each construct their own System instead of relying on
// package-level state.
type System struct {
	mu   sync.Mutex
	subs map[uint16]*subChannel
}

// NewSystem returns an empty channel system.
func NewSystem() *System {
	return &System{subs: make(map[uint16]*subChannel)}
}

// AddDevice attaches dev at devNum. Returns an error if the address is
// already in use.
func (s *System) AddDevice(devNum uint16, dev D.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[devNum]; ok {
		return errors.New("device already attached at that address")
	}
	s.subs[devNum] = &subChannel{dev: dev}
	return nil
}

// RemoveDevice detaches whatever device is at devNum, if any.
func (s *System) RemoveDevice(devNum uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, devNum)
}

// GetDevice returns the device attached at devNum, or nil.
func (s *System) GetDevice(devNum uint16) D.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subs[devNum]
	if !ok {
		return nil
	}
	return sc.dev
}

// SetBuffer installs the buffer a subsequent ChanReadByte/ChanWriteByte
// sequence for devNum will transfer into or out of, and resets the
// transfer position. Devices call this at the start of a CCW's data phase.
func (s *System) SetBuffer(devNum uint16, buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subs[devNum]
	if !ok {
		return
	}
	sc.buf = buf
	sc.pos = 0
}

// Buffer returns the buffer most recently installed for devNum via
// SetBuffer, letting a device pull the bytes a guest WRITE staged there
// without walking them one at a time through ChanReadByte.
func (s *System) Buffer(devNum uint16) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subs[devNum]
	if !ok {
		return nil
	}
	return sc.buf
}

// ChanReadByte returns the next byte the guest wrote for devNum. The bool
// return is true when the buffer is exhausted (channel end should follow).
func (s *System) ChanReadByte(devNum uint16) (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subs[devNum]
	if !ok || sc.pos >= len(sc.buf) {
		return 0, true
	}
	b := sc.buf[sc.pos]
	sc.pos++
	return b, sc.pos >= len(sc.buf)
}

// ChanWriteByte stores b for the guest to read back for devNum. The bool
// return is true when the buffer is full (channel end should follow).
func (s *System) ChanWriteByte(devNum uint16, b uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subs[devNum]
	if !ok || sc.pos >= len(sc.buf) {
		return true
	}
	sc.buf[sc.pos] = b
	sc.pos++
	return sc.pos >= len(sc.buf)
}

// ChanEnd posts the terminal unit status for the CCW running on devNum.
func (s *System) ChanEnd(devNum uint16, status uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subs[devNum]
	if !ok {
		return
	}
	sc.status = status
}

// SetDevAttn raises unsolicited device attention for devNum (used by
// autoloader completion and HIM poller attention).
func (s *System) SetDevAttn(devNum uint16, status uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subs[devNum]
	if !ok {
		return
	}
	sc.status = status
	sc.attn = true
}

// LastStatus returns the most recently posted status for devNum, and
// whether it was an unsolicited attention.
func (s *System) LastStatus(devNum uint16) (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subs[devNum]
	if !ok {
		return 0, false
	}
	attn := sc.attn
	sc.attn = false
	return sc.status, attn
}

// Debug forwards a debug option string to the device attached at devNum.
func (s *System) Debug(devNum uint16, opt string) error {
	dev := s.GetDevice(devNum)
	if dev == nil {
		return errors.New("no device at that address")
	}
	return dev.Debug(opt)
}

// Shutdown tears down every attached device.
func (s *System) Shutdown() {
	s.mu.Lock()
	subs := make([]D.Device, 0, len(s.subs))
	for _, sc := range s.subs {
		subs = append(subs, sc.dev)
	}
	s.mu.Unlock()
	for _, dev := range subs {
		dev.Shutdown()
	}
}
