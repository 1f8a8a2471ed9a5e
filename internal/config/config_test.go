package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/gemctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gemctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
public_root = "/srv/gem"
retrieval_addr = ":2965"

[cache]
capacity = 8

[transfer]
auth_token = "s3cret"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PublicRoot != "/srv/gem" || cfg.RetrievalAddr != ":2965" {
		t.Fatalf("cfg=%+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.TransferAddr != ":1966" {
		t.Fatalf("transfer_addr=%q", cfg.TransferAddr)
	}
	if cfg.Cache.Capacity != 8 {
		t.Fatalf("capacity=%d", cfg.Cache.Capacity)
	}
	if cfg.Transfer.AuthToken != "s3cret" {
		t.Fatalf("auth_token=%q", cfg.Transfer.AuthToken)
	}
	if cfg.Retrieval.DefaultDocument != "index.gmi" {
		t.Fatalf("default_document=%q", cfg.Retrieval.DefaultDocument)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for absent file")
	}
}

func TestValidate(t *testing.T) {
	testlog.Start(t)
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := Default()
	bad.PublicRoot = "  "
	if err := Validate(bad); err == nil || !strings.Contains(err.Error(), "public_root") {
		t.Fatalf("err=%v", err)
	}

	bad = Default()
	bad.Cache.Capacity = -1
	if err := Validate(bad); err == nil {
		t.Fatal("expected capacity error")
	}

	bad = Default()
	bad.Transport.SecurityMode = "production"
	if err := Validate(bad); err == nil {
		t.Fatal("expected transport error for production without tls")
	}
}
