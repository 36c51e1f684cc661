package tape

import (
	"strings"
	"testing"
)

func TestLoadDisplayUmountMount(t *testing.T) {
	d := &Display{}
	// msg2 follows the 'M'/'R'/'K' prefix, 'S'/'A'/other suffix convention
	// ClassifyMessage parses: 'M' mount, 'S' scratch.
	changed := d.LoadDisplay(0xe0, "KEEP001", "M00001S ")
	if !changed {
		t.Fatal("expected display change on first LoadDisplay")
	}
	if d.State != DisplayUmountMount {
		t.Fatalf("state = %v, want DisplayUmountMount", d.State)
	}
	if !d.ReqAutoMount {
		t.Fatal("expected ReqAutoMount set")
	}

	banner := MountRequestBanner("TAP0", d)
	if !strings.Contains(banner, "Unmount and keep of UL tape volume 'EEP001'") {
		t.Fatalf("unexpected unmount banner: %s", banner)
	}

	d.Unmounted()
	if d.State != DisplayMount {
		t.Fatalf("state after unmount = %v, want DisplayMount", d.State)
	}
	if d.Msg1 != d.umountPending {
		t.Fatalf("Msg1 after unmount = %q, want promoted pending msg %q", d.Msg1, d.umountPending)
	}

	banner = MountRequestBanner("TAP0", d)
	if !strings.Contains(banner, "scratch tape volume") {
		t.Fatalf("expected scratch mount banner, got: %s", banner)
	}
}

func TestLoadDisplayAlternateSuppressesBlinkAndMessage2(t *testing.T) {
	d := &Display{}
	d.LoadDisplay(fcbAlternate, "ABC", "XYZ")
	if d.Blinking || d.UseMessage2 {
		t.Fatal("AM should suppress BM and M2")
	}
}

func TestLoadDisplayAutoloaderSuppressesExtras(t *testing.T) {
	d := &Display{}
	d.LoadDisplay(fcbAutoload|fcbAlternate|fcbBlinking, "ABC", "XYZ")
	if d.Alternate || d.Blinking || d.UseMessage2 {
		t.Fatal("AL should suppress AM/BM/M2")
	}
	if !d.Autoloader {
		t.Fatal("expected Autoloader set")
	}
}

func TestLoadDisplayDedupUnchanged(t *testing.T) {
	d := &Display{}
	d.LoadDisplay(fcbMount, "SAME", "SAME")
	changed := d.LoadDisplay(fcbMount, "SAME", "SAME")
	if changed {
		t.Fatal("identical re-render should report no change")
	}
}
