/*
 * periph - Host Interface Machine device
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

package him

import (
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	D "github.com/rcornwell/periph/emu/device"
	"go.uber.org/zap"
)

func sleepMillis(n int) { time.Sleep(time.Duration(n) * time.Millisecond) }

const (
	readWindow    = 24 * 1024 // 24 KiB template window
	mssValue      = 1460
	lowWaterSlack = 4096
)

// Channel is the subset of *channel.System the HIM device needs.
type Channel interface {
	SetBuffer(devNum uint16, buf []byte)
	Buffer(devNum uint16) []byte
	ChanEnd(devNum uint16, status uint8)
	SetDevAttn(devNum uint16, status uint8)
}

// Device implements D.Device for one HIM subchannel: one io_cb worth of
// connection state, guarded by mu because a poller goroutine reads a few
// of these fields concurrently with the CCW thread mutating them.
type Device struct {
	sys  Channel
	addr uint16
	log  *zap.Logger

	mu            sync.Mutex
	state         State
	cfg           Config
	conn          net.Conn
	listener      net.Listener
	rnr           bool
	watchSock     bool
	haltRequested bool
	pollerRunning bool

	queue EventQueue

	seq, id uint32
	ack     uint32
	localIP [4]byte

	configReply []byte

	senseByte uint8

	busy bool
}

// NewDevice constructs a HIM device attached to sys at addr.
func NewDevice(sys Channel, addr uint16, log *zap.Logger) *Device {
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{sys: sys, addr: addr, log: log.With(zap.Uint16("subchannel", addr))}
}

// StartIO begins a new CCW chain.
func (d *Device) StartIO() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return D.CStatusBusy
	}
	return 0
}

// HIM CCW opcodes.
const (
	opWrite      = 0x01
	opRead       = 0x02
	opNop        = 0x03
	opSense      = 0x04
	opWait       = 0x2b
	opNop2       = 0x4b
	opSenseID    = 0xe4
)

// StartCmd dispatches one CCW synchronously: HIM CCWs never need the
// event scheduler because every blocking call here is a real network
// syscall the caller thread can simply wait on. Every path posts its
// final status through sys.ChanEnd and returns 0, matching the
// scheduled-completion convention the rest of the device line uses.
func (d *Device) StartCmd(cmd uint8) uint8 {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return D.CStatusBusy
	}
	d.busy = true
	d.mu.Unlock()

	var status uint8
	switch cmd {
	case opNop, opNop2:
		status = D.CStatusChnEnd | D.CStatusDevEnd
	case opWait:
		d.controlWait()
		status = D.CStatusChnEnd | D.CStatusDevEnd
	case opSense:
		d.sys.SetBuffer(d.addr, []byte{d.senseByte})
		status = D.CStatusChnEnd | D.CStatusDevEnd
	case opSenseID:
		d.sys.SetBuffer(d.addr, []byte{0xff, 0x01, 0x00})
		status = D.CStatusChnEnd | D.CStatusDevEnd
	case opWrite:
		status = d.write(d.sys.Buffer(d.addr))
	case opRead:
		status = d.read()
	default:
		d.mu.Lock()
		d.senseByte = D.SenseCMDREJ
		d.mu.Unlock()
		status = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	}

	d.mu.Lock()
	d.busy = false
	d.mu.Unlock()
	d.sys.ChanEnd(d.addr, status)
	return 0
}

// controlWait is the diagnostic CONTROL-WAIT CCW: sleeps in short
// increments, polling haltRequested, up to a bound, to exercise HIO.
func (d *Device) controlWait() {
	const slice = 10 // milliseconds per poll, kept short for tests
	const maxSlices = 120000 / slice
	for i := 0; i < maxSlices; i++ {
		d.mu.Lock()
		halt := d.haltRequested
		d.mu.Unlock()
		if halt {
			return
		}
		sleepMillis(slice)
	}
}

func (d *Device) write(buf []byte) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(buf) < 4 {
		d.senseByte = D.SenseCMDREJ
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	}
	hdr := UnmarshalHeader(buf[:4])
	payload := buf[4:]

	if hdr.Flags&FlagRNR != 0 {
		d.rnr = true
		d.watchSock = false
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusExpt
	}
	if d.rnr {
		d.rnr = false
	}

	switch d.state {
	case StateShutdown:
		if hdr.Flags&FlagInit == 0 {
			d.senseByte = D.SenseCMDREJ
			return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		}
		return d.handleInit(payload)
	case StateInitialized:
		return d.handleConnect(payload)
	case StateConnected:
		return d.handleDataWrite(payload)
	default:
		d.senseByte = D.SenseCMDREJ
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	}
}

func (d *Device) handleInit(payload []byte) uint8 {
	cfg, err := ParseConfig(payload)
	if err != nil {
		d.log.Warn("him config parse failed", zap.Error(err))
		body := ConfigReply{OK: false}.Marshal(okEBCDIC, failEBCDIC)
		d.configReply = append(Header{Length: uint16(len(body))}.Marshal(), body...)
		d.queue.Push(EventConfig)
		return D.CStatusChnEnd | D.CStatusDevEnd
	}

	d.cfg = cfg
	d.seq, d.id, d.ack = 1, 1, 0
	copy(d.localIP[:], net.IPv4(127, 0, 0, 1).To4())

	var reply ConfigReply
	if cfg.Passive {
		ln, lerr := net.Listen("tcp", ":0")
		if lerr != nil {
			d.log.Error("him listen failed", zap.Error(lerr))
			reply = ConfigReply{OK: false}
		} else {
			d.listener = ln
			reply = ConfigReply{OK: true, Protocol: protoNum(cfg.Protocol), LocalPort: cfg.Local.Port}
		}
	} else {
		reply = ConfigReply{OK: true, Protocol: protoNum(cfg.Protocol), LocalPort: cfg.Local.Port}
	}

	body := reply.Marshal(okEBCDIC, failEBCDIC)
	d.configReply = append(Header{Length: uint16(len(body))}.Marshal(), body...)
	if !d.queue.Push(EventConfig) {
		d.log.Warn("him event queue full on config")
	}
	if reply.OK {
		d.state = StateInitialized
	}
	return D.CStatusChnEnd | D.CStatusDevEnd
}

func protoNum(proto string) uint8 {
	if proto == "udp" {
		return 17
	}
	return 6
}

func (d *Device) handleConnect(payload []byte) uint8 {
	if len(payload) < ipHeaderLen+4 {
		d.senseByte = D.SenseCMDREJ
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	}
	dst := payload[16:20]
	var port uint16
	if len(payload) >= ipHeaderLen+4 {
		// TCP header bytes 2:4 carry the destination port.
		port = uint16(payload[ipHeaderLen+2])<<8 | uint16(payload[ipHeaderLen+3])
	}
	addr := net.JoinHostPort(net.IP(dst).String(), strconv.Itoa(int(port)))

	network := "tcp"
	if d.cfg.Protocol == "udp" {
		network = "udp"
	}
	conn, err := net.Dial(network, addr)
	if err != nil {
		d.log.Error("him connect failed", zap.String("addr", addr), zap.Error(err))
		d.senseByte = D.SenseDATCHK
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	}
	d.conn = conn
	if !d.queue.Push(EventMSS) {
		d.log.Warn("him event queue full on connect")
	}
	d.state = StateConnected
	return D.CStatusChnEnd | D.CStatusDevEnd
}

func (d *Device) handleDataWrite(payload []byte) uint8 {
	if len(payload) < ipHeaderLen+tcpHeaderLen && d.cfg.Protocol == "tcp" {
		d.senseByte = D.SenseCMDREJ
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	}

	var flags uint8
	var body []byte
	if d.cfg.Protocol == "tcp" {
		flags = payload[ipHeaderLen+13]
		body = payload[ipHeaderLen+tcpHeaderLen:]
	} else {
		body = payload[ipHeaderLen+udpHeaderLen:]
	}

	if flags&TCPFin != 0 {
		d.queue.Push(EventFIN)
		d.queue.Push(EventFinished)
		d.state = StateClosing
		return D.CStatusChnEnd | D.CStatusDevEnd
	}

	if len(body) > 0 && d.conn != nil {
		if _, err := d.conn.Write(body); err != nil {
			d.log.Error("him write failed", zap.Error(err))
			d.senseByte = D.SenseDATCHK
			return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		}
		d.ack += uint32(len(body))
		if readWindow-int(d.ack%readWindow) < len(body)+lowWaterSlack {
			d.queue.Push(EventACK)
		}
	}
	return D.CStatusChnEnd | D.CStatusDevEnd
}

func (d *Device) read() uint8 {
	d.mu.Lock()
	kind, has := d.queue.Peek()
	if has {
		d.queue.Shift()
	}
	d.mu.Unlock()

	if has {
		return d.readQueued(kind)
	}

	if d.state != StateConnected || d.conn == nil {
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusExpt
	}

	buf := make([]byte, mssValue)
	n, err := d.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.mu.Lock()
			d.state = StateClosing
			d.mu.Unlock()
			d.sys.SetBuffer(d.addr, d.buildDataFrame(buf[:0], TCPFin|TCPAck))
			return D.CStatusChnEnd | D.CStatusDevEnd
		}
		d.log.Error("him read failed", zap.Error(err))
		d.mu.Lock()
		d.senseByte = D.SenseDATCHK
		d.mu.Unlock()
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	}

	d.mu.Lock()
	d.seq++
	d.id++
	d.mu.Unlock()

	d.ensurePoller()
	d.sys.SetBuffer(d.addr, d.buildDataFrame(buf[:n], TCPPsh|TCPAck))
	return D.CStatusChnEnd | D.CStatusDevEnd
}

func (d *Device) readQueued(kind EventKind) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch kind {
	case EventConfig:
		d.sys.SetBuffer(d.addr, d.configReply)
		return D.CStatusChnEnd | D.CStatusDevEnd
	case EventMSS:
		hdr := Header{}
		ip := IPHeader{TTL: 255, ID: d.id}
		tcp := TCPHeader{Seq: d.seq, Ack: d.ack, Flags: TCPSyn | TCPAck, Window: readWindow, MSS: mssValue}
		d.sys.SetBuffer(d.addr, BuildTCPFrame(hdr, ip, tcp))
		return D.CStatusChnEnd | D.CStatusDevEnd
	case EventACK:
		hdr := Header{}
		ip := IPHeader{TTL: 58, ID: d.id}
		tcp := TCPHeader{Seq: d.seq, Ack: d.ack, Flags: TCPAck, Window: readWindow}
		d.sys.SetBuffer(d.addr, BuildTCPFrame(hdr, ip, tcp))
		return D.CStatusChnEnd | D.CStatusDevEnd
	case EventFIN:
		d.state = StateClosing
		hdr := Header{}
		ip := IPHeader{TTL: 58, ID: d.id}
		tcp := TCPHeader{Seq: d.seq, Ack: d.ack, Flags: TCPFin | TCPAck, Window: readWindow}
		d.sys.SetBuffer(d.addr, BuildTCPFrame(hdr, ip, tcp))
		return D.CStatusChnEnd | D.CStatusDevEnd
	case EventFinished:
		d.closeLocked()
		hdr := Header{Flags: FlagFinished}
		d.sys.SetBuffer(d.addr, hdr.Marshal())
		return D.CStatusChnEnd | D.CStatusDevEnd
	default:
		return D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusExpt
	}
}

func (d *Device) buildDataFrame(payload []byte, flags uint8) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	hdr := Header{}
	ip := IPHeader{TTL: 58, ID: d.id}
	tcp := TCPHeader{Seq: d.seq, Ack: d.ack, Flags: flags, Window: readWindow}
	tcpBytes := tcp.Marshal()
	hdr.Length = uint16(len(tcpBytes) + len(payload))
	out := hdr.Marshal()
	out = append(out, ip.Marshal()...)
	out = append(out, tcpBytes...)
	out = append(out, payload...)
	return out
}

// ensurePoller starts the background socket poller if one is not already
// running for this subchannel.
func (d *Device) ensurePoller() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pollerRunning || d.state != StateConnected || d.rnr {
		return
	}
	d.watchSock = true
	d.pollerRunning = true
	go d.poll()
}

func (d *Device) closeLocked() {
	if d.conn != nil {
		_ = d.conn.Close()
		d.conn = nil
	}
	if d.listener != nil {
		_ = d.listener.Close()
		d.listener = nil
	}
	d.state = StateShutdown
	d.rnr = false
	d.watchSock = false
	d.queue = EventQueue{}
}

// HaltIO requests the in-progress CCW (CONTROL-WAIT) stop early.
func (d *Device) HaltIO() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.busy {
		return 1
	}
	d.haltRequested = true
	return 2
}

// InitDev resets the subchannel to its power-on state.
func (d *Device) InitDev() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	d.haltRequested = false
	d.busy = false
	d.senseByte = 0
	return 0
}

// Shutdown tears down any live socket, causing a running poller to exit
// at its next iteration.
func (d *Device) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

// Debug enables a tracing option.
func (d *Device) Debug(opt string) error {
	d.log.Debug("him debug option", zap.String("option", opt))
	return Debug(opt)
}
