/*
 * periph - EBCDIC and BCD translation tables
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

// Package xlat holds the codepage conversions shared by the tape and HIM
// device models: EBCDIC <-> ASCII for Load-Display messages and HIM
// configuration strings.
package xlat

import (
	"golang.org/x/text/encoding/charmap"
)

// codepage is IBM code page 037, the same EBCDIC variant the original
// program's translate tables implement.
var codepage = charmap.CodePage037

// ToEBCDIC converts an ASCII/UTF-8-range byte string to EBCDIC, one byte at
// a time, used to encode Load-Display messages and HIM config replies.
func ToEBCDIC(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b, ok := codepage.EncodeRune(rune(s[i]))
		if !ok {
			b = 0x3f // EBCDIC substitute character
		}
		out[i] = b
	}
	return out
}

// FromEBCDIC converts an EBCDIC byte string back to ASCII, used to parse
// the guest's HIM configuration string and to render Load-Display messages
// for operator-facing log lines.
func FromEBCDIC(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = byte(codepage.DecodeByte(c))
	}
	return string(out)
}
