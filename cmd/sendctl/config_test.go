package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/gemctl/internal/testutil/testlog"
)

func TestLoadClientConfigOverlay(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "sendctl.toml")
	body := `
addr = "gem.example.org:1966"
token = "s3cret"
tls_enabled = true
tls_ca_file = "/etc/gemctl/ca.pem"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := loadClientConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "gem.example.org:1966" || cfg.Token != "s3cret" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if !cfg.TLS.Enabled || cfg.TLS.CAFile != "/etc/gemctl/ca.pem" {
		t.Fatalf("tls=%+v", cfg.TLS)
	}
	// chunk_size not present in the file keeps its default.
	if cfg.ChunkSize != defaultClientConfig().ChunkSize {
		t.Fatalf("chunk_size=%d", cfg.ChunkSize)
	}
}

func TestLoadClientConfigMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := loadClientConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error")
	}
}
