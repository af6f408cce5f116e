package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the daemon settings.
type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	// Backend selects the storage implementation: "memory", "leveldb" or
	// "bolt".
	Backend string `toml:"Backend"`
	// EpochSeconds is the length of one epoch; daily caps and staleness
	// windows are counted in these units.
	EpochSeconds uint64 `toml:"EpochSeconds"`
	// DailyWalletCap is the per-address mint ceiling per epoch. Zero
	// disables the cap.
	DailyWalletCap uint64 `toml:"DailyWalletCap"`
	Environment    string `toml:"Environment"`
}

func defaultConfig() *Config {
	return &Config{
		RPCAddress:     "127.0.0.1:8645",
		MetricsAddress: "127.0.0.1:9464",
		DataDir:        "./data",
		Backend:        "leveldb",
		EpochSeconds:   24 * 60 * 60,
		DailyWalletCap: 10_000,
		Environment:    "dev",
	}
}

// Load reads the configuration from the given path, creating a default file
// on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is self-consistent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "memory", "leveldb", "bolt":
	default:
		return fmt.Errorf("unknown Backend %q", c.Backend)
	}
	if c.EpochSeconds == 0 {
		return fmt.Errorf("EpochSeconds must be greater than zero")
	}
	if strings.TrimSpace(c.DataDir) == "" && strings.ToLower(strings.TrimSpace(c.Backend)) != "memory" {
		return fmt.Errorf("DataDir must be set for persistent backends")
	}
	return nil
}
