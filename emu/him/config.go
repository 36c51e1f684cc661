/*
 * periph - HIM EBCDIC configuration string parser
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
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rcornwell/periph/util/xlat"
)

// Socket is a (port, address) pair as the guest's configuration string
// spells it: "(port,a.b.c.d)".
type Socket struct {
	Port uint16
	IP   net.IP
}

// Config is the parsed form of a guest-supplied init configuration string.
type Config struct {
	Type     string
	Protocol string // "tcp" or "udp"
	Active   bool
	Passive  bool
	Server   bool
	Local    Socket
	Foreign  Socket
}

// ParseConfig decodes the EBCDIC configuration string a guest sends on its
// first init WRITE: tokens separated by spaces, LHS=RHS pairs or bare
// keywords, case-insensitive once translated to ASCII.
func ParseConfig(raw []byte) (Config, error) {
	text := xlat.FromEBCDIC(raw)
	var cfg Config

	for _, tok := range strings.Fields(text) {
		key, val, hasVal := strings.Cut(tok, "=")
		key = strings.ToLower(key)
		switch key {
		case "type":
			if hasVal {
				cfg.Type = strings.ToLower(val)
			}
		case "protocol":
			if hasVal {
				cfg.Protocol = strings.ToLower(val)
			}
		case "active":
			cfg.Active = true
		case "passive":
			cfg.Passive = true
		case "server":
			cfg.Server = true
		case "local_socket":
			sock, err := parseSocket(val)
			if err != nil {
				return cfg, fmt.Errorf("local_socket: %w", err)
			}
			cfg.Local = sock
		case "foreign_socket":
			sock, err := parseSocket(val)
			if err != nil {
				return cfg, fmt.Errorf("foreign_socket: %w", err)
			}
			cfg.Foreign = sock
		}
	}

	if cfg.Protocol != "tcp" && cfg.Protocol != "udp" {
		return cfg, fmt.Errorf("him config: unsupported protocol %q", cfg.Protocol)
	}
	return cfg, nil
}

// parseSocket parses "(port,a.b.c.d)".
func parseSocket(s string) (Socket, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return Socket{}, fmt.Errorf("malformed socket %q", s)
	}
	port, err := strconv.Atoi(parts[0])
	if err != nil {
		return Socket{}, fmt.Errorf("malformed port in %q: %w", s, err)
	}
	ip := net.ParseIP(parts[1])
	if ip == nil {
		return Socket{}, fmt.Errorf("malformed address in %q", s)
	}
	return Socket{Port: uint16(port), IP: ip}, nil
}

// okEBCDIC/failEBCDIC are the 2-byte EBCDIC spellings of "Ok"/"Failed" used
// in a config reply; only the first two characters are carried by the
// 2-byte status field.
var (
	okEBCDIC   = [2]byte{xlatByte('O'), xlatByte('k')}
	failEBCDIC = [2]byte{xlatByte('F'), xlatByte('a')}
)

func xlatByte(r byte) byte {
	b := xlat.ToEBCDIC(string(r))
	return b[0]
}
