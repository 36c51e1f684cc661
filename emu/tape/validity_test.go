package tape

import "testing"

func TestValidity3420Rewind(t *testing.T) {
	if got := Validate(Family3420, opRewind); got != cmdValidLoadDE {
		t.Fatalf("rewind validity = %d, want %d", got, cmdValidLoadDE)
	}
}

func TestValidity3420InvalidOpcode(t *testing.T) {
	if got := Validate(Family3420, 0x00); got != cmdInvalid {
		t.Fatalf("opcode 0x00 validity = %d, want %d", got, cmdInvalid)
	}
}

func TestValidity3420NoOpIsImmediate(t *testing.T) {
	if got := Validate(Family3420, opNop); got != cmdNoOp {
		t.Fatalf("nop validity = %d, want %d", got, cmdNoOp)
	}
	if !IsImmediate(Family3420, opNop) {
		t.Fatal("nop should be an immediate CCW")
	}
}

func TestValidateUnknownFamily(t *testing.T) {
	if got := Validate(Family(99), opRewind); got != cmdInvalid {
		t.Fatalf("unknown family validity = %d, want %d", got, cmdInvalid)
	}
}

// TestValidityFamiliesDiverge proves the per-family tables are genuinely
// distinct, not two tables wearing eight names: 3590 drops Read Backward
// where 3480 accepts it, and 9347 drops Load Display/Sync where 3480 accepts
// both.
func TestValidityFamiliesDiverge(t *testing.T) {
	if got := Validate(Family3480, opReadBack); got != cmdValidLoaded {
		t.Fatalf("3480 read-backward validity = %d, want %d", got, cmdValidLoaded)
	}
	if got := Validate(Family3590, opReadBack); got != cmdInvalid {
		t.Fatalf("3590 read-backward validity = %d, want %d", got, cmdInvalid)
	}

	if got := Validate(Family3480, opLoadDisp); got != cmdValidAny {
		t.Fatalf("3480 load-display validity = %d, want %d", got, cmdValidAny)
	}
	if got := Validate(Family9347, opLoadDisp); got != cmdInvalid {
		t.Fatalf("9347 load-display validity = %d, want %d", got, cmdInvalid)
	}
	if got := Validate(Family9347, opSync); got != cmdInvalid {
		t.Fatalf("9347 sync validity = %d, want %d", got, cmdInvalid)
	}
}

// TestRewindUnloadFlagsAreIndependent proves 3420 sets both unit-check and
// control-unit-end on rewind-unload, while 3480 sets neither.
func TestRewindUnloadFlagsAreIndependent(t *testing.T) {
	s := BuildSense(Family3420, ErrStatusOnly, true, false, false, opRewindUnl)
	if s.UnitStatus&0x02 == 0 { // D.CStatusCheck
		t.Fatalf("3420 rewind-unload status = %#x, want unit-check set", s.UnitStatus)
	}
	if s.UnitStatus&0x20 == 0 { // D.CStatusCtlEnd
		t.Fatalf("3420 rewind-unload status = %#x, want control-unit-end set", s.UnitStatus)
	}

	s480 := BuildSense(Family3480, ErrStatusOnly, true, false, false, opRewindUnl)
	if s480.UnitStatus&0x02 != 0 {
		t.Fatalf("3480 rewind-unload status = %#x, want unit-check clear", s480.UnitStatus)
	}
	if s480.UnitStatus&0x20 != 0 {
		t.Fatalf("3480 rewind-unload status = %#x, want control-unit-end clear", s480.UnitStatus)
	}
}
