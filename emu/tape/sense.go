/*
 * periph - Tape sense builder
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

import D "github.com/rcornwell/periph/emu/device"

// ErrorKind is the internal, device-family-independent classification of
// what went wrong (or didn't) completing a tape CCW. The sense builder
// translates one of these, plus the device family, into guest-visible
// sense bytes and unit status.
type ErrorKind int

const (
	ErrTapeUnloaded ErrorKind = iota
	ErrRunSuccess
	ErrTapeLoadFail
	ErrReadFail
	ErrWriteFail
	ErrBadCommand
	ErrIncompat
	ErrWriteProtect
	ErrEmptyTape
	ErrEndOfTape
	ErrLoadPtErr
	ErrFenced
	ErrBadAlgorithm
	ErrLocateErr
	ErrBlockShort
	ErrITFError
	ErrRewindFailed
	ErrReadTM
	ErrUnsolicited
	ErrStatusOnly
)

// Sense is the guest-visible outcome of a completed CCW: unit status plus
// up to 24 sense bytes (the tape device reports the first 8 on SENSE).
type Sense struct {
	UnitStatus uint8
	Bytes      [24]byte
}

// BuildSense translates (family, error kind) into unit status and sense
// bytes for the CCW currently completing. loaded/atLoadPoint/passedEOT
// describe the tape's live state; opcode is the CCW opcode completing.
func BuildSense(fam Family, kind ErrorKind, loaded, atLoadPoint, passedEOT bool, opcode uint8) Sense {
	var s Sense

	// Step 1: unit status bits keyed by error kind.
	switch kind {
	case ErrRunSuccess, ErrStatusOnly:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd
	case ErrTapeUnloaded:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseINTVENT
	case ErrReadTM:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusExpt
	case ErrBadCommand:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseCMDREJ
	case ErrIncompat:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseCMDREJ
		s.Bytes[3] = 0x33 // ERA: command incompatible with media
	case ErrWriteProtect:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseCMDREJ
		s.Bytes[1] |= senseFileProtect
	case ErrEndOfTape:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusExpt
	case ErrEmptyTape, ErrLoadPtErr:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseEQUCHK
	case ErrFenced:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseEQUCHK
		s.Bytes[3] = 0x23 // ERA: drive fenced
	case ErrReadFail, ErrBlockShort:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseDATCHK
		s.Bytes[3] = 0x23
	case ErrWriteFail, ErrBadAlgorithm:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseDATCHK
		s.Bytes[3] = 0x25
	case ErrLocateErr:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseEQUCHK
		s.Bytes[3] = 0x2c
	case ErrITFError:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseEQUCHK
	case ErrRewindFailed:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseEQUCHK
	case ErrTapeLoadFail:
		s.UnitStatus = D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
		s.Bytes[0] = D.SenseINTVENT
	case ErrUnsolicited:
		s.UnitStatus = D.CStatusDevEnd | D.CStatusAttn
	}

	// Rewind-unload completion is family-specific: the two flags are
	// independent, not a choice between them. 3420 sets both unit-check and
	// control-unit-end on the same CCW; 3480 and later set neither.
	if desc, ok := families[fam]; ok && opcode == opRewindUnl {
		if desc.rewindUnloadsUC {
			s.UnitStatus |= D.CStatusCheck
		}
		if desc.rewindUnloadCUE {
			s.UnitStatus |= D.CStatusCtlEnd
		}
	}

	// Step 2: sense-format byte and per-unit flags.
	if len(s.Bytes) > 7 {
		s.Bytes[7] = senseFormatValid
	}

	// Step 3: post-fixup based on live tape state.
	if !loaded {
		s.Bytes[0] |= D.SenseINTVENT
		s.Bytes[1] |= senseFileProtect
	} else {
		if atLoadPoint {
			s.Bytes[1] |= senseLoadPoint
		}
		s.Bytes[1] &^= senseFileProtect
	}
	s.Bytes[1] |= senseTapeUnitAvail

	// Step 4: passed-EOT escalation for data-bearing writes that otherwise
	// completed cleanly.
	if passedEOT && kind == ErrStatusOnly && isDataWrite(opcode) {
		s.UnitStatus |= D.CStatusExpt
	}

	return s
}

const (
	senseFileProtect   uint8 = 0x40 // sense byte 1: file protected (no ring)
	senseLoadPoint     uint8 = 0x20 // sense byte 1: at load point
	senseTapeUnitAvail uint8 = 0x01 // sense byte 1: tape unit available
	senseFormatValid   uint8 = 0x80 // sense byte 7: format-valid flag
)

func isDataWrite(opcode uint8) bool {
	switch opcode {
	case opWriteFwd, opErase, opWriteTM:
		return true
	}
	return false
}
