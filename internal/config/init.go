package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WriteDefault writes a starter stockroom.yaml with default values to the
// given path. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	cfg := Config{
		Server: ServerConfig{
			BaseURL: "https://api.stockroom.example",
		},
	}
	cfg.SetDefaults()

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	header := []byte("# Stockroom CLI configuration.\n# Every key can also be set via STOCKROOM_* environment variables,\n# e.g. STOCKROOM_SERVER_BASE_URL.\n")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
