/*
 * periph - Host Interface Machine packet wire format
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

// Package him implements the Host Interface Machine: a subchannel-addressable
// device that tunnels TCP/UDP endpoints between the guest and the outside
// network. Unlike the tape side, every structure here crosses the wire in
// network byte order, so header layout is expressed with explicit
// encoding/binary calls rather than struct aliasing.
package him

import "encoding/binary"

// Header flag-byte bits (byte 0 of the 4-byte HIM header).
const (
	FlagTN3270   uint8 = 0x80
	FlagInit     uint8 = 0x40
	FlagFinished uint8 = 0x20
	FlagRNR      uint8 = 0x10
	FlagUrgent   uint8 = 0x08
)

// Header is the 4-byte on-the-wire HIM header prefixing every frame.
type Header struct {
	Flags  uint8
	BufNum uint8
	Length uint16
}

func (h Header) Marshal() []byte {
	b := make([]byte, 4)
	b[0] = h.Flags
	b[1] = h.BufNum
	binary.BigEndian.PutUint16(b[2:], h.Length)
	return b
}

func UnmarshalHeader(b []byte) Header {
	return Header{
		Flags:  b[0],
		BufNum: b[1],
		Length: binary.BigEndian.Uint16(b[2:4]),
	}
}

// IPHeader is the minimal IPv4 header the template carries: version 4,
// IHL 5, a nominal TTL of 58, and a monotonically increasing id.
type IPHeader struct {
	TTL   uint8
	ID    uint16
	Proto uint8
	Src   [4]byte
	Dst   [4]byte
}

const ipHeaderLen = 20

func (h IPHeader) Marshal() []byte {
	b := make([]byte, ipHeaderLen)
	b[0] = 0x45 // version 4, IHL 5
	b[1] = 0
	binary.BigEndian.PutUint16(b[2:], ipHeaderLen) // total length patched by caller if payload present
	binary.BigEndian.PutUint16(b[4:], h.ID)
	b[8] = h.TTL
	b[9] = h.Proto
	copy(b[12:16], h.Src[:])
	copy(b[16:20], h.Dst[:])
	return b
}

// TCP flag bits.
const (
	TCPFin uint8 = 0x01
	TCPSyn uint8 = 0x02
	TCPRst uint8 = 0x04
	TCPPsh uint8 = 0x08
	TCPAck uint8 = 0x10
)

// TCPHeader is the template TCP header mirrored for the guest side. Offset
// is 5 (20 bytes) for ordinary frames, 6 (24 bytes) when the MSS option is
// carried on the SYN frame.
type TCPHeader struct {
	SrcPort uint16
	DstPort uint16
	Seq     uint32
	Ack     uint32
	Flags   uint8
	Window  uint16
	MSS     uint16 // non-zero => emit the MSS option, data offset 6
}

const tcpHeaderLen = 20
const tcpHeaderLenMSS = 24

func (h TCPHeader) Marshal() []byte {
	withMSS := h.MSS != 0
	length := tcpHeaderLen
	if withMSS {
		length = tcpHeaderLenMSS
	}
	b := make([]byte, length)
	binary.BigEndian.PutUint16(b[0:], h.SrcPort)
	binary.BigEndian.PutUint16(b[2:], h.DstPort)
	binary.BigEndian.PutUint32(b[4:], h.Seq)
	binary.BigEndian.PutUint32(b[8:], h.Ack)
	if withMSS {
		b[12] = 6 << 4
	} else {
		b[12] = 5 << 4
	}
	b[13] = h.Flags
	binary.BigEndian.PutUint16(b[14:], h.Window)
	if withMSS {
		b[20] = 0x02 // MSS option kind
		b[21] = 0x04 // option length
		binary.BigEndian.PutUint16(b[22:], h.MSS)
	}
	return b
}

// UDPHeader is the template UDP header mirrored for the guest side.
type UDPHeader struct {
	SrcPort uint16
	DstPort uint16
	Length  uint16
}

const udpHeaderLen = 8

func (h UDPHeader) Marshal() []byte {
	b := make([]byte, udpHeaderLen)
	binary.BigEndian.PutUint16(b[0:], h.SrcPort)
	binary.BigEndian.PutUint16(b[2:], h.DstPort)
	binary.BigEndian.PutUint16(b[4:], h.Length)
	return b
}

// Frame total sizes, per the wire-format contract: 44 bytes for TCP
// non-option traffic, 32 bytes for UDP, 48 with the MSS option present.
const (
	FrameLenTCP    = 4 + ipHeaderLen + tcpHeaderLen
	FrameLenTCPMSS = 4 + ipHeaderLen + tcpHeaderLenMSS
	FrameLenUDP    = 4 + ipHeaderLen + udpHeaderLen
)

// BuildTCPFrame assembles a full guest-bound frame: HIM header + IP header
// + TCP header, with no payload.
func BuildTCPFrame(hdr Header, ip IPHeader, tcp TCPHeader) []byte {
	tcpBytes := tcp.Marshal()
	hdr.Length = uint16(len(tcpBytes))
	out := hdr.Marshal()
	out = append(out, ip.Marshal()...)
	out = append(out, tcpBytes...)
	return out
}

// BuildUDPFrame assembles a full guest-bound frame: HIM header + IP header
// + UDP header, optionally followed by payload.
func BuildUDPFrame(hdr Header, ip IPHeader, udp UDPHeader, payload []byte) []byte {
	udp.Length = uint16(udpHeaderLen + len(payload))
	hdr.Length = udp.Length
	out := hdr.Marshal()
	out = append(out, ip.Marshal()...)
	out = append(out, udp.Marshal()...)
	out = append(out, payload...)
	return out
}

// ConfigReply is the HIM header followed by a 2-byte EBCDIC status code,
// family/protocol bytes, local and remote port/IP fields.
type ConfigReply struct {
	OK         bool
	Protocol   uint8
	LocalPort  uint16
	LocalIP    [4]byte
	RemotePort uint16
	RemoteIP   [4]byte
}

const configReplyBodyLen = 2 + 1 + 1 + 2 + 4 + 2 + 2 + 4

// Marshal renders the reply body (after the 4-byte HIM header, which the
// caller prepends via Header.Marshal).
func (c ConfigReply) Marshal(okBytes, failBytes [2]byte) []byte {
	b := make([]byte, configReplyBodyLen)
	status := failBytes
	if c.OK {
		status = okBytes
	}
	b[0], b[1] = status[0], status[1]
	b[2] = 0 // family: AF_INET
	b[3] = c.Protocol
	binary.BigEndian.PutUint16(b[4:], c.LocalPort)
	copy(b[6:10], c.LocalIP[:])
	// bytes [10:12] unused
	binary.BigEndian.PutUint16(b[12:], c.RemotePort)
	copy(b[14:18], c.RemoteIP[:])
	return b
}
