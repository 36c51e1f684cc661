package him

import (
	"bufio"
	"net"
	"testing"
	"time"

	D "github.com/rcornwell/periph/emu/device"
	"github.com/rcornwell/periph/util/xlat"
)

type fakeChannel struct {
	staged []byte
	status uint8
	ended  bool
	attn   uint8
	attnCh chan struct{}
}

func (f *fakeChannel) SetBuffer(_ uint16, buf []byte) { f.staged = buf }
func (f *fakeChannel) Buffer(_ uint16) []byte         { return f.staged }
func (f *fakeChannel) ChanEnd(_ uint16, status uint8) { f.status = status; f.ended = true }
func (f *fakeChannel) SetDevAttn(_ uint16, status uint8) {
	f.attn = status
	if f.attnCh != nil {
		close(f.attnCh)
		f.attnCh = nil
	}
}

func withHeader(flags uint8, payload []byte) []byte {
	hdr := Header{Flags: flags}
	return append(hdr.Marshal(), payload...)
}

func TestHIMHappyPathTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, aerr := ln.Accept()
		if aerr == nil {
			accepted <- c
		}
	}()

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())

	ch := &fakeChannel{}
	d := NewDevice(ch, 0x200, nil)

	cfgStr := "type=internet protocol=tcp active local_socket=(0,0.0.0.0) foreign_socket=(" + portStr + ",127.0.0.1)"
	ch.staged = withHeader(FlagInit, xlat.ToEBCDIC(cfgStr))
	rc := d.StartCmd(opWrite)
	if rc != 0 {
		t.Fatalf("StartCmd(init write) = %#x, want 0", rc)
	}
	if ch.status != D.CStatusChnEnd|D.CStatusDevEnd {
		t.Fatalf("init status = %#x", ch.status)
	}

	ch.ended = false
	d.StartCmd(opRead)
	if len(ch.staged) < 6 {
		t.Fatalf("config reply too short: %v", ch.staged)
	}
	if ch.staged[4] != okEBCDIC[0] || ch.staged[5] != okEBCDIC[1] {
		t.Fatalf("config reply = %v, want EBCDIC Ok", ch.staged)
	}

	d.mu.Lock()
	state := d.state
	d.mu.Unlock()
	if state != StateInitialized {
		t.Fatalf("state after config = %v, want INITIALIZED", state)
	}

	ip := IPHeader{Dst: [4]byte{127, 0, 0, 1}}.Marshal()
	tcp := TCPHeader{DstPort: mustPort(portStr)}.Marshal()
	ch.staged = withHeader(0, append(ip, tcp...))
	ch.ended = false
	d.StartCmd(opWrite)
	if ch.status != D.CStatusChnEnd|D.CStatusDevEnd {
		t.Fatalf("connect status = %#x", ch.status)
	}

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("remote side never accepted the connection")
	}

	d.mu.Lock()
	state = d.state
	d.mu.Unlock()
	if state != StateConnected {
		t.Fatalf("state after connect = %v, want CONNECTED", state)
	}

	ch.ended = false
	d.StartCmd(opRead)
	if len(ch.staged) != FrameLenTCPMSS {
		t.Fatalf("MSS frame length = %d, want %d", len(ch.staged), FrameLenTCPMSS)
	}
	tcpOut := ch.staged[4+ipHeaderLen:]
	if tcpOut[13]&(TCPSyn|TCPAck) != (TCPSyn | TCPAck) {
		t.Fatalf("MSS frame flags = %#x, want SYN|ACK", tcpOut[13])
	}
}

func mustPort(s string) uint16 {
	var p uint16
	for _, c := range s {
		p = p*10 + uint16(c-'0')
	}
	return p
}

func TestHIMFINHandling(t *testing.T) {
	srvConn, cliConn := net.Pipe()
	defer srvConn.Close()
	go func() {
		r := bufio.NewReader(srvConn)
		r.ReadByte()
	}()

	ch := &fakeChannel{}
	d := NewDevice(ch, 0x201, nil)
	d.state = StateConnected
	d.conn = cliConn
	d.cfg.Protocol = "tcp"

	finTCP := TCPHeader{Flags: TCPFin}.Marshal()
	ip := IPHeader{}.Marshal()
	ch.staged = withHeader(0, append(ip, finTCP...))
	d.StartCmd(opWrite)

	d.mu.Lock()
	state := d.state
	qlen := d.queue.Len()
	d.mu.Unlock()
	if state != StateClosing {
		t.Fatalf("state after FIN write = %v, want CLOSING", state)
	}
	if qlen != 2 {
		t.Fatalf("queue length after FIN = %d, want 2 [FIN, FINISHED]", qlen)
	}

	d.StartCmd(opRead)
	if len(ch.staged) != FrameLenTCP {
		t.Fatalf("FIN frame length = %d, want %d", len(ch.staged), FrameLenTCP)
	}
	tcpOut := ch.staged[4+ipHeaderLen:]
	if tcpOut[13]&TCPFin == 0 {
		t.Fatalf("expected FIN flag set in reply, got %#x", tcpOut[13])
	}

	d.mu.Lock()
	qlen = d.queue.Len()
	d.mu.Unlock()
	if qlen != 1 {
		t.Fatalf("queue length after FIN read = %d, want 1 [FINISHED]", qlen)
	}

	d.StartCmd(opRead)
	if len(ch.staged) != 4 {
		t.Fatalf("finished frame length = %d, want 4", len(ch.staged))
	}
	if ch.staged[0]&FlagFinished == 0 {
		t.Fatal("expected finished flag in final header")
	}

	d.mu.Lock()
	state = d.state
	d.mu.Unlock()
	if state != StateShutdown {
		t.Fatalf("state after FINISHED = %v, want SHUTDOWN", state)
	}
}
