package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	b := &Bootstrap{
		PartnerID:   42,
		AESKeyHex:   "00112233445566778899aabbccddeeff",
		DeviceID:    "device-001",
		SKU:         "acme-sku",
		CountryCode: 1,
		ServerAddr:  "wss://example.test/v1",
		LogLevel:    "debug",
		LogPath:     "/var/log/skyloc.log",
		StatePath:   "/var/lib/skyloc/state.bin",
	}

	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	if err := Save(path, b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *b {
		t.Errorf("round-tripped bootstrap = %+v, want %+v", got, b)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("partner_id: [this is not a scalar"), 0o600); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error parsing malformed YAML")
	}
}
