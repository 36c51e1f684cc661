package tape

import (
	"path/filepath"
	"testing"
)

func TestAWSHandlerWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.aws")

	h := NewAWSHandler()
	if err := h.Open(path, false); err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := []byte("HELLO WORLD")
	if err := h.WriteBlock(want); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := h.WriteMark(); err != nil {
		t.Fatalf("WriteMark: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h2 := NewAWSHandler()
	if err := h2.Open(path, true); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	buf := make([]byte, len(want))
	n, mark, err := h2.ReadBlock(buf)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if mark {
		t.Fatal("expected data record, not tapemark")
	}
	if n != len(want) || string(buf[:n]) != string(want) {
		t.Fatalf("read back %q, want %q", buf[:n], want)
	}

	_, mark, err = h2.ReadBlock(buf)
	if err != nil {
		t.Fatalf("second ReadBlock: %v", err)
	}
	if !mark {
		t.Fatal("expected tapemark after data record")
	}
}

func TestOMAHandlerIsReadOnly(t *testing.T) {
	h := NewOMAHandler()
	if !h.ReadOnly() {
		t.Fatal("OMA handler must always be read-only")
	}
	if err := h.WriteBlock([]byte("x")); err != ErrWriteProtect {
		t.Fatalf("WriteBlock = %v, want ErrWriteProtect", err)
	}
	if err := h.WriteMark(); err != ErrWriteProtect {
		t.Fatalf("WriteMark = %v, want ErrWriteProtect", err)
	}
}
