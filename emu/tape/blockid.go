/*
 * periph - Tape blockid translator
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

// 3480/3490 block-ids occupy a 32-bit word laid out as wrap(1 bit) +
// segment#(7 bits) + format mode(2 bits) + logical block number(22 bits).
// 3590 block-ids are a flat 32-bit linear number. Converting between the
// two is a bit-splitting operation: the high 8 bits of the 3480/3490 word
// (wrap+segment#) become the high 8 bits of a 30-bit low-order field in
// the 3590 form, and the 22-bit logical block number becomes the low 22
// bits of that same field. The 2-bit format mode does not survive the
// conversion to 32-bit form; it is zero-filled on the way back.
const (
	blockIDBlockMask  uint32 = 0x3fffff // low 22 bits: logical block number
	blockIDBlockShift        = 22
)

// EncodeTo32 converts a 22-bit (3480/3490-style) block-id word to the
// 32-bit (3590-style) linear form.
func EncodeTo32(id22 uint32) uint32 {
	high := id22 >> 24 // wrap + segment#, 8 bits
	block := id22 & blockIDBlockMask
	return (high << blockIDBlockShift) | block
}

// DecodeFrom32 converts a 32-bit (3590-style) linear block-id back to the
// 22-bit (3480/3490-style) word form. The format-mode bits are zero-filled;
// every other field round-trips exactly through EncodeTo32/DecodeFrom32.
func DecodeFrom32(id32 uint32) uint32 {
	high := (id32 >> blockIDBlockShift) & 0xff
	block := id32 & blockIDBlockMask
	return (high << 24) | block
}

// blockIDBytes renders a block-id as the 4 big-endian bytes the Read
// Block ID / Locate CCWs exchange with the guest.
func blockIDBytes(id uint32) [4]byte {
	return [4]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
}

func blockIDFromBytes(b []byte) uint32 {
	var id uint32
	for _, c := range b {
		id = (id << 8) | uint32(c)
	}
	return id
}

// blockIDFormat identifies which block-id width a device family uses on
// the guest-visible side.
type blockIDFormat int

const (
	blockID22 blockIDFormat = iota
	blockID32
)

// ToActual converts a guest-visible (emulated) block-id to the format the
// physical/backing media handler expects.
func ToActual(guestFmt, actualFmt blockIDFormat, id uint32) uint32 {
	if guestFmt == actualFmt {
		return id
	}
	if guestFmt == blockID22 {
		return EncodeTo32(id)
	}
	return DecodeFrom32(id)
}

// ToEmulated converts a block-id read back from the backing media handler
// into the format the guest expects to see.
func ToEmulated(guestFmt, actualFmt blockIDFormat, id uint32) uint32 {
	if guestFmt == actualFmt {
		return id
	}
	if actualFmt == blockID22 {
		return EncodeTo32(id)
	}
	return DecodeFrom32(id)
}
