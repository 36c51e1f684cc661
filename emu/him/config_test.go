package him

import (
	"testing"

	"github.com/rcornwell/periph/util/xlat"
)

func TestParseConfigTCPActive(t *testing.T) {
	raw := xlat.ToEBCDIC("type=internet protocol=tcp active local_socket=(0,0.0.0.0) foreign_socket=(23,10.0.0.1)")
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Protocol != "tcp" || !cfg.Active {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Foreign.Port != 23 || cfg.Foreign.IP.String() != "10.0.0.1" {
		t.Fatalf("foreign socket = %+v", cfg.Foreign)
	}
}

func TestParseConfigRejectsUnknownProtocol(t *testing.T) {
	raw := xlat.ToEBCDIC("type=internet protocol=sctp active")
	if _, err := ParseConfig(raw); err == nil {
		t.Fatal("expected error for unsupported protocol")
	}
}

func TestParseConfigPassiveServer(t *testing.T) {
	raw := xlat.ToEBCDIC("protocol=udp passive server local_socket=(161,0.0.0.0)")
	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if !cfg.Passive || !cfg.Server || cfg.Protocol != "udp" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
