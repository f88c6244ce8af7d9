package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bootstrap is the host-side static configuration for the sample client:
// partner credentials, server endpoint, and the initial dynamic-config
// seed before the server pushes its own overrides.
type Bootstrap struct {
	PartnerID   uint32 `yaml:"partner_id"`
	AESKeyHex   string `yaml:"aes_key_hex"`
	DeviceID    string `yaml:"device_id"`
	SKU         string `yaml:"sku"`
	CountryCode uint16 `yaml:"country_code"`
	ServerAddr  string `yaml:"server_addr"`
	LogLevel    string `yaml:"log_level"`
	LogPath     string `yaml:"log_path"`
	StatePath   string `yaml:"state_path"`
}

// Load reads and parses a Bootstrap document from path.
func Load(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap config: %w", err)
	}
	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bootstrap config: %w", err)
	}
	return &b, nil
}

// Save writes b back to path as YAML.
func Save(path string, b *Bootstrap) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bootstrap config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write bootstrap config: %w", err)
	}
	return nil
}
