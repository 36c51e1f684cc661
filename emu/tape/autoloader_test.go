package tape

import (
	"errors"
	"os"
	"testing"
)

func TestAutoloaderAdvance(t *testing.T) {
	var mounted []struct {
		name string
		args []string
	}
	slots := []Slot{{Filename: "A"}, {Filename: "B"}, {Filename: "C"}}
	a := NewAutoloader(slots, []string{"rw"}, func(name string, args []string) error {
		mounted = append(mounted, struct {
			name string
			args []string
		}{name, append([]string{}, args...)})
		return nil
	})

	if err := a.MountFirst(); err != nil {
		t.Fatalf("MountFirst: %v", err)
	}
	if err := a.MountNext(); err != nil {
		t.Fatalf("MountNext (B): %v", err)
	}
	if err := a.MountNext(); err != nil {
		t.Fatalf("MountNext (C): %v", err)
	}
	if err := a.MountNext(); !errors.Is(err, ErrLoaderClosed) {
		t.Fatalf("MountNext past end: %v, want ErrLoaderClosed", err)
	}
	if !a.Closed() {
		t.Fatal("loader should report closed")
	}

	want := []string{"A", "B", "C"}
	if len(mounted) != 3 {
		t.Fatalf("mounted %d slots, want 3", len(mounted))
	}
	for i, m := range mounted {
		if m.name != want[i] {
			t.Fatalf("slot %d filename = %s, want %s", i, m.name, want[i])
		}
		if len(m.args) != 1 || m.args[0] != "rw" {
			t.Fatalf("slot %d args = %v, want [rw]", i, m.args)
		}
	}
}

func TestAutoloaderDescriptionFileParsing(t *testing.T) {
	path := t.TempDir() + "/loader.tdf"
	content := "# comment\n\n*rw\nA.aws idrc\nB.aws\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	slots, global, err := ParseDescriptionFile(path)
	if err != nil {
		t.Fatalf("ParseDescriptionFile: %v", err)
	}
	if len(global) != 1 || global[0] != "rw" {
		t.Fatalf("global args = %v, want [rw]", global)
	}
	if len(slots) != 2 || slots[0].Filename != "A.aws" || slots[1].Filename != "B.aws" {
		t.Fatalf("slots = %+v", slots)
	}
	if len(slots[0].Args) != 1 || slots[0].Args[0] != "idrc" {
		t.Fatalf("slot 0 args = %v, want [idrc]", slots[0].Args)
	}
}
