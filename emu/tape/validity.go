/*
 * periph - Tape command validity matrix
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

// Validity codes returned by the command validity matrix.
const (
	cmdInvalid      = 0 // reject with command-reject sense
	cmdValidLoaded  = 1 // valid, requires loaded tape
	cmdValidAny     = 2 // valid, no tape required
	cmdNoOp         = 3 // valid but a no-op
	cmdNoOpVirtual  = 4 // valid no-op, virtual backings only
	cmdValidLoadDE  = 5 // valid, loaded tape, add device-end
	cmdValidSenseOK = 6 // valid, loaded tape attempted (SENSE path)
)

// Family identifies a device-family command table.
type Family int

const (
	Family3410 Family = iota
	Family3420
	Family3422
	Family3430
	Family3480
	Family3490
	Family3590
	Family9347
)

// familyDescriptor carries the per-family knobs the validity matrix and
// sense builder both consult.
type familyDescriptor struct {
	name            string
	table           *[256]uint8
	immediate       *[256]bool
	rewindUnloadsUC bool // rewind-unload sets unit-check (older drives)
	rewindUnloadCUE bool // rewind-unload sets control-unit-end
	legacySenseID   bool // short Sense ID block (3420/8809/3410/3411)
	blockIDFormat   blockIDFormat
}

// Per-family rewind-unload and Sense ID shape below is transcribed from
// TapeDevtypeList in original_source/tapedev.c: columns C (UC on
// rewind-unload) and D (CUE on rewind-unload) are independent flags, not a
// one-of-two choice — 3420 is the only family with both set.
var families = map[Family]*familyDescriptor{
	Family3410: {
		name: "3410", table: &table3410, immediate: &immediate3410,
		rewindUnloadsUC: true, legacySenseID: true, blockIDFormat: blockID22,
	},
	Family3420: {
		name: "3420", table: &table3420, immediate: &immediate3420,
		rewindUnloadsUC: true, rewindUnloadCUE: true, legacySenseID: true, blockIDFormat: blockID22,
	},
	Family3422: {
		name: "3422", table: &table3422, immediate: &immediate3422,
		blockIDFormat: blockID22,
	},
	Family3430: {
		name: "3430", table: &table3430, immediate: &immediate3430,
		blockIDFormat: blockID22,
	},
	Family3480: {
		name: "3480", table: &table348x, immediate: &immediate348x,
		blockIDFormat: blockID22,
	},
	Family3490: {
		name: "3490", table: &table348x, immediate: &immediate348x,
		blockIDFormat: blockID22,
	},
	Family3590: {
		name: "3590", table: &table3590, immediate: &immediate3590,
		blockIDFormat: blockID32,
	},
	Family9347: {
		name: "9347", table: &table9347, immediate: &immediate9347,
		blockIDFormat: blockID22,
	},
}

// Common opcodes shared by every family's table below.
const (
	opTestIO    = 0x00
	opWriteFwd  = 0x01
	opReadFwd   = 0x02
	opNop       = 0x03
	opSense     = 0x04
	opReadBack  = 0x0c
	opRewind    = 0x07
	opRewindUnl = 0x0f
	opErase     = 0x17
	opWriteTM   = 0x1f
	opFSB       = 0x37
	opBSB       = 0x27
	opFSF       = 0x3f
	opBSF       = 0x2f
	opDSE       = 0x97
	opLoadDisp  = 0x9f
	opSenseID   = 0xe4
	opModeSet   = 0xeb
	opSync      = 0x5b
)

func buildTable(entries map[uint8]uint8) [256]uint8 {
	var t [256]uint8
	for op, v := range entries {
		t[op] = v
	}
	return t
}

func buildImmediate(ops ...uint8) [256]bool {
	var t [256]bool
	for _, op := range ops {
		t[op] = true
	}
	return t
}

// table3410/table3420 are classic byte-serial drives: rewind/rewind-unload
// always reach device-end.
var table3410 = buildTable(map[uint8]uint8{
	opNop: cmdNoOp, opSense: cmdValidSenseOK,
	opWriteFwd: cmdValidLoaded, opReadFwd: cmdValidLoaded, opReadBack: cmdValidLoaded,
	opRewind: cmdValidLoadDE, opRewindUnl: cmdValidLoadDE,
	opErase: cmdValidLoaded, opWriteTM: cmdValidLoaded,
	opFSB: cmdValidLoaded, opBSB: cmdValidLoaded, opFSF: cmdValidLoaded, opBSF: cmdValidLoaded,
	opSenseID: cmdValidAny,
})

var immediate3410 = buildImmediate(opNop, opSenseID)

// table3420 shares table3410's classification on every opcode this package
// currently names; TapeCommands3410/3420 in the originating C source diverge
// only at unnamed opcodes (0x0b, 0x8b, 0xd3, 0xd4, 0xf3, 0xf4, 0xfd) this
// engine doesn't model yet. Built independently, not aliased, so the two
// families stay free to diverge here later without disturbing each other.
var table3420 = buildTable(map[uint8]uint8{
	opNop: cmdNoOp, opSense: cmdValidSenseOK,
	opWriteFwd: cmdValidLoaded, opReadFwd: cmdValidLoaded, opReadBack: cmdValidLoaded,
	opRewind: cmdValidLoadDE, opRewindUnl: cmdValidLoadDE,
	opErase: cmdValidLoaded, opWriteTM: cmdValidLoaded,
	opFSB: cmdValidLoaded, opBSB: cmdValidLoaded, opFSF: cmdValidLoaded, opBSF: cmdValidLoaded,
	opSenseID: cmdValidAny,
})

var immediate3420 = buildImmediate(opNop, opSenseID)

// table3422/table3430 share TapeDevtypeList's table-index grouping with
// 3410/3420 on every opcode this package names (real divergence from 3410 is
// again confined to opcodes outside this vocabulary).
var table3422 = table3410
var immediate3422 = immediate3410

var table3430 = table3410
var immediate3430 = immediate3410

// table348x covers 3480/3490: adds Load-Display, DSE, Sync and Mode Set.
// Mode Set is a no-op CCW (CE+DE, no
// data), not cmdValidAny — TapeCommands3480/3490 both classify 0xeb that way.
var table348x = buildTable(map[uint8]uint8{
	opNop: cmdNoOp, opSense: cmdValidSenseOK,
	opWriteFwd: cmdValidLoaded, opReadFwd: cmdValidLoaded, opReadBack: cmdValidLoaded,
	opRewind: cmdValidLoadDE, opRewindUnl: cmdValidLoadDE,
	opErase: cmdValidLoaded, opWriteTM: cmdValidLoaded,
	opFSB: cmdValidLoaded, opBSB: cmdValidLoaded, opFSF: cmdValidLoaded, opBSF: cmdValidLoaded,
	opDSE: cmdValidLoaded, opSync: cmdNoOp,
	opLoadDisp: cmdValidAny, opSenseID: cmdValidAny, opModeSet: cmdNoOp,
})

var immediate348x = buildImmediate(opNop, opSenseID, opLoadDisp, opModeSet, opSync)

// table3590 diverges from table348x at Read Backward: TapeCommands3590
// marks 0x0c invalid where 3480/3490 accept it, matching the family's
// forward-only high-density recording path.
var table3590 = buildTable(map[uint8]uint8{
	opNop: cmdNoOp, opSense: cmdValidSenseOK,
	opWriteFwd: cmdValidLoaded, opReadFwd: cmdValidLoaded,
	opRewind: cmdValidLoadDE, opRewindUnl: cmdValidLoadDE,
	opErase: cmdValidLoaded, opWriteTM: cmdValidLoaded,
	opFSB: cmdValidLoaded, opBSB: cmdValidLoaded, opFSF: cmdValidLoaded, opBSF: cmdValidLoaded,
	opDSE: cmdValidLoaded, opSync: cmdNoOp,
	opLoadDisp: cmdValidAny, opSenseID: cmdValidAny, opModeSet: cmdNoOp,
})

var immediate3590 = buildImmediate(opNop, opSenseID, opLoadDisp, opModeSet, opSync)

// table9347 (shared with 8809/9348) diverges from table348x at Load-Display
// and Sync: TapeCommands9347 marks both invalid, matching the 9347's lack of
// an operator-message window and its simpler synchronous-only I/O path.
var table9347 = buildTable(map[uint8]uint8{
	opNop: cmdNoOp, opSense: cmdValidSenseOK,
	opWriteFwd: cmdValidLoaded, opReadFwd: cmdValidLoaded, opReadBack: cmdValidLoaded,
	opRewind: cmdValidLoadDE, opRewindUnl: cmdValidLoadDE,
	opErase: cmdValidLoaded, opWriteTM: cmdValidLoaded,
	opFSB: cmdValidLoaded, opBSB: cmdValidLoaded, opFSF: cmdValidLoaded, opBSF: cmdValidLoaded,
	opDSE: cmdValidLoaded,
	opSenseID: cmdValidAny, opModeSet: cmdNoOp,
})

var immediate9347 = buildImmediate(opNop, opSenseID, opModeSet)

// Validate looks up the validity code for opcode under family, returning
// cmdInvalid (0) for any opcode the table doesn't name.
func Validate(fam Family, opcode uint8) uint8 {
	desc, ok := families[fam]
	if !ok {
		return cmdInvalid
	}
	return desc.table[opcode]
}

// IsImmediate reports whether opcode completes with channel-end before any
// data transfer under family.
func IsImmediate(fam Family, opcode uint8) bool {
	desc, ok := families[fam]
	if !ok {
		return false
	}
	return desc.immediate[opcode]
}
