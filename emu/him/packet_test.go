package him

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Flags: FlagInit | FlagTN3270, BufNum: 3, Length: 0x1234}
	got := UnmarshalHeader(h.Marshal())
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestTCPHeaderMSSOption(t *testing.T) {
	h := TCPHeader{Seq: 1, Ack: 2, Flags: TCPSyn | TCPAck, Window: 24 * 1024, MSS: 1460}
	b := h.Marshal()
	if len(b) != tcpHeaderLenMSS {
		t.Fatalf("len = %d, want %d", len(b), tcpHeaderLenMSS)
	}
	if b[12]>>4 != 6 {
		t.Fatalf("data offset = %d, want 6", b[12]>>4)
	}
	if b[20] != 0x02 || b[21] != 0x04 {
		t.Fatalf("MSS option header = %v", b[20:22])
	}
	if got := uint16(b[22])<<8 | uint16(b[23]); got != 1460 {
		t.Fatalf("MSS value = %d, want 1460", got)
	}
}

func TestTCPHeaderNoOption(t *testing.T) {
	h := TCPHeader{Flags: TCPAck}
	b := h.Marshal()
	if len(b) != tcpHeaderLen {
		t.Fatalf("len = %d, want %d", len(b), tcpHeaderLen)
	}
	if b[12]>>4 != 5 {
		t.Fatalf("data offset = %d, want 5", b[12]>>4)
	}
}

func TestBuildUDPFrameLength(t *testing.T) {
	frame := BuildUDPFrame(Header{}, IPHeader{}, UDPHeader{SrcPort: 7, DstPort: 8}, nil)
	if len(frame) != FrameLenUDP {
		t.Fatalf("len = %d, want %d", len(frame), FrameLenUDP)
	}
}

func TestConfigReplyMarshalStatus(t *testing.T) {
	ok := ConfigReply{OK: true}.Marshal(okEBCDIC, failEBCDIC)
	if ok[0] != okEBCDIC[0] || ok[1] != okEBCDIC[1] {
		t.Fatalf("ok reply status = %v", ok[:2])
	}
	fail := ConfigReply{OK: false}.Marshal(okEBCDIC, failEBCDIC)
	if fail[0] != failEBCDIC[0] || fail[1] != failEBCDIC[1] {
		t.Fatalf("fail reply status = %v", fail[:2])
	}
}
