package tape

import (
	"path/filepath"
	"testing"

	D "github.com/rcornwell/periph/emu/device"
)

// fakeChannel is a minimal stand-in for *channel.System, recording the
// last status/buffer/attention a Device posted.
type fakeChannel struct {
	lastStatus uint8
	lastBuf    []byte
	staged     []byte
	attn       uint8
	attnSeen   bool
	ended      bool
}

func (f *fakeChannel) SetBuffer(_ uint16, buf []byte)    { f.lastBuf = buf; f.staged = buf }
func (f *fakeChannel) Buffer(_ uint16) []byte            { return f.staged }
func (f *fakeChannel) ChanEnd(_ uint16, status uint8)    { f.lastStatus = status; f.ended = true }
func (f *fakeChannel) SetDevAttn(_ uint16, status uint8) { f.attn = status; f.attnSeen = true }

func TestStartCmdNoOpOnUnloadedDrive(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDevice(ch, 0x180, Family3420)

	rc := d.StartCmd(opNop)
	if rc != D.CStatusChnEnd|D.CStatusDevEnd {
		t.Fatalf("StartCmd(no-op) = %#x, want CE|DE", rc)
	}
	if ch.ended {
		t.Fatal("no-op must complete synchronously, not via ChanEnd")
	}
	if d.count != 0 {
		t.Fatalf("no-op must not consume any residual count, got %d", d.count)
	}
}

func TestStartCmdInvalidOpcodeIsRejected(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDevice(ch, 0x180, Family3420)

	rc := d.StartCmd(0x00) // opTestIO: must be invalid per the 3420 table
	want := D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	if rc != want {
		t.Fatalf("StartCmd(0x00) = %#x, want %#x", rc, want)
	}
	// No tape is loaded, so intervention-required accompanies the reject.
	if d.senseBytes[0] != D.SenseCMDREJ|D.SenseINTVENT {
		t.Fatalf("sense byte 0 = %#x, want SenseCMDREJ|SenseINTVENT", d.senseBytes[0])
	}
}

func TestStartCmdReadOnUnloadedDriveReportsIntervention(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDevice(ch, 0x180, Family3420)
	d.SetCount(80)

	rc := d.StartCmd(opReadFwd)
	if rc != 0 {
		t.Fatalf("StartCmd(read) = %#x, want 0 (scheduled)", rc)
	}
	d.callback(int(opReadFwd))

	if !ch.ended {
		t.Fatal("expected ChanEnd to have been called")
	}
	want := D.CStatusChnEnd | D.CStatusDevEnd | D.CStatusCheck
	if ch.lastStatus != want {
		t.Fatalf("status = %#x, want %#x", ch.lastStatus, want)
	}
	if d.senseBytes[0] != D.SenseINTVENT {
		t.Fatalf("sense byte 0 = %#x, want SenseINTVENT", d.senseBytes[0])
	}
}

func TestMountWriteReadThroughDevice(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDevice(ch, 0x180, Family3480)

	path := filepath.Join(t.TempDir(), "dev.aws")
	if err := d.Mount(NewAWSHandler(), path); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	ch.staged = []byte("DATA")
	d.SetCount(4)
	rc := d.StartCmd(opWriteFwd)
	if rc != 0 {
		t.Fatalf("StartCmd(write) = %#x, want 0", rc)
	}
	d.callback(int(opWriteFwd))
	if !ch.ended {
		t.Fatal("write never completed")
	}
	if ch.lastStatus&D.CStatusCheck != 0 {
		t.Fatalf("unexpected unit check on write: %#x", ch.lastStatus)
	}

	if err := d.media.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}

	ch.ended = false
	d.SetCount(4)
	rc = d.StartCmd(opReadFwd)
	if rc != 0 {
		t.Fatalf("StartCmd(read) = %#x, want 0", rc)
	}
	d.callback(int(opReadFwd))
	if !ch.ended {
		t.Fatal("read never completed")
	}
	if ch.lastStatus&D.CStatusCheck != 0 {
		t.Fatalf("unexpected unit check on read: %#x", ch.lastStatus)
	}
}

func TestHaltIOStopsBusyDevice(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDevice(ch, 0x180, Family3420)

	rc := d.HaltIO()
	if rc != 1 {
		t.Fatalf("HaltIO on idle device = %d, want 1", rc)
	}

	d.SetCount(4)
	d.StartCmd(opReadFwd)
	rc = d.HaltIO()
	if rc != 2 {
		t.Fatalf("HaltIO on busy device = %d, want 2", rc)
	}

	d.callback(int(opReadFwd))
	if ch.lastStatus != D.CStatusChnEnd|D.CStatusDevEnd {
		t.Fatalf("halted completion status = %#x, want CE|DE only", ch.lastStatus)
	}
}

func TestSenseAndSenseIDImmediateCCWs(t *testing.T) {
	ch := &fakeChannel{}
	d := NewDevice(ch, 0x180, Family3480)
	d.postSense(ErrWriteProtect, opWriteFwd)

	rc := d.StartCmd(opSense)
	if rc != D.CStatusChnEnd {
		t.Fatalf("StartCmd(sense) = %#x, want CE only (immediate)", rc)
	}
	if len(ch.lastBuf) == 0 || ch.lastBuf[0] != D.SenseCMDREJ|D.SenseINTVENT {
		t.Fatalf("sense buffer = %v, want leading SenseCMDREJ|SenseINTVENT", ch.lastBuf)
	}

	rc = d.StartCmd(opSenseID)
	if rc != D.CStatusChnEnd {
		t.Fatalf("StartCmd(sense id) = %#x, want CE only (immediate)", rc)
	}
	if len(ch.lastBuf) == 0 || ch.lastBuf[0] != 0xff {
		t.Fatalf("sense id buffer = %v, want leading 0xff", ch.lastBuf)
	}
}
