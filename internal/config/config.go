// Package config defines the daemon configuration tree loaded from TOML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/gemctl/internal/transport"
)

// DaemonConfig is the full gemctl configuration.
type DaemonConfig struct {
	PublicRoot    string           `toml:"public_root"`
	RetrievalAddr string           `toml:"retrieval_addr"`
	TransferAddr  string           `toml:"transfer_addr"`
	AdminAddr     string           `toml:"admin_addr"`
	CORSOrigins   []string         `toml:"cors_origins"`
	Cache         CacheConfig      `toml:"cache"`
	Retrieval     RetrievalConfig  `toml:"retrieval"`
	Transfer      TransferConfig   `toml:"transfer"`
	Transport     transport.Config `toml:"transport"`
}

type CacheConfig struct {
	Capacity int `toml:"capacity"`
}

type RetrievalConfig struct {
	DefaultDocument string `toml:"default_document"`
	DirListing      bool   `toml:"dir_listing"`
	MaxRequestLen   int    `toml:"max_request_len"`
	ReadTimeoutSec  int    `toml:"read_timeout_sec"`
	WriteTimeoutSec int    `toml:"write_timeout_sec"`
}

type TransferConfig struct {
	AuthToken       string `toml:"auth_token"`
	AuthTokenHashed bool   `toml:"auth_token_hashed"`
	MaxLineLen      int    `toml:"max_line_len"`
	ReadTimeoutSec  int    `toml:"read_timeout_sec"`
	WriteTimeoutSec int    `toml:"write_timeout_sec"`
}

func Default() DaemonConfig {
	return DaemonConfig{
		PublicRoot:    "./public",
		RetrievalAddr: ":1965",
		TransferAddr:  ":1966",
		AdminAddr:     "",
		Cache:         CacheConfig{Capacity: 50},
		Retrieval: RetrievalConfig{
			DefaultDocument: "index.gmi",
			DirListing:      true,
			MaxRequestLen:   1024,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
		},
		Transfer: TransferConfig{
			MaxLineLen:      1 << 20,
			ReadTimeoutSec:  30,
			WriteTimeoutSec: 15,
		},
		Transport: transport.DefaultConfig(),
	}
}

// Load reads path and overlays it on the defaults.
func Load(path string) (DaemonConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return DaemonConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DaemonConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

func Validate(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.PublicRoot) == "" {
		return fmt.Errorf("daemon config missing public_root")
	}
	if strings.TrimSpace(cfg.RetrievalAddr) == "" {
		return fmt.Errorf("daemon config missing retrieval_addr")
	}
	if strings.TrimSpace(cfg.TransferAddr) == "" {
		return fmt.Errorf("daemon config missing transfer_addr")
	}
	if cfg.Cache.Capacity < 0 {
		return fmt.Errorf("daemon config cache capacity must be >= 0")
	}
	if err := cfg.Transport.Validate(); err != nil {
		return fmt.Errorf("daemon config transport invalid: %w", err)
	}
	return nil
}

func (c RetrievalConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

func (c RetrievalConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

func (c TransferConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

func (c TransferConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}
