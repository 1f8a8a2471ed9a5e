package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/gemctl/internal/protocol/transfer"
	"github.com/danmuck/gemctl/internal/transport"
)

// clientConfig is the resolved sendctl configuration.
type clientConfig struct {
	Addr       string
	Token      string
	ChunkSize  int
	TLS        transport.TLSConfig
	ServerName string
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		Addr:      "127.0.0.1:1966",
		ChunkSize: transfer.DefaultClientConfig().ChunkSize,
	}
}

// fileConfig is the flat on-disk shape; only keys present in the file
// override the defaults.
type fileConfig struct {
	Addr          string `toml:"addr"`
	Token         string `toml:"token"`
	ChunkSize     int    `toml:"chunk_size"`
	TLSEnabled    bool   `toml:"tls_enabled"`
	TLSCAFile     string `toml:"tls_ca_file"`
	TLSCertFile   string `toml:"tls_cert_file"`
	TLSKeyFile    string `toml:"tls_key_file"`
	TLSServerName string `toml:"tls_server_name"`
}

func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load sendctl config: %w", err)
	}

	if meta.IsDefined("addr") {
		if v := strings.TrimSpace(raw.Addr); v != "" {
			cfg.Addr = v
		}
	}
	if meta.IsDefined("token") {
		cfg.Token = raw.Token
	}
	if meta.IsDefined("chunk_size") && raw.ChunkSize > 0 {
		cfg.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("tls_enabled") {
		cfg.TLS.Enabled = raw.TLSEnabled
	}
	if meta.IsDefined("tls_ca_file") {
		cfg.TLS.CAFile = strings.TrimSpace(raw.TLSCAFile)
	}
	if meta.IsDefined("tls_cert_file") {
		cfg.TLS.CertFile = strings.TrimSpace(raw.TLSCertFile)
	}
	if meta.IsDefined("tls_key_file") {
		cfg.TLS.KeyFile = strings.TrimSpace(raw.TLSKeyFile)
	}
	if meta.IsDefined("tls_server_name") {
		cfg.ServerName = strings.TrimSpace(raw.TLSServerName)
	}

	return cfg, nil
}
