package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/txn2/mcp-prospect-research/pkg/platform"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "c.yaml", "--transport", "http", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.configPath != "c.yaml" || opts.transport != "http" || opts.logLevel != "debug" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if !opts.set["transport"] || opts.set["address"] {
		t.Errorf("set flags = %v, want only config, transport and log-level", opts.set)
	}
	if opts.address != ":8080" {
		t.Errorf("address = %q, want default :8080", opts.address)
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	if _, err := parseFlags([]string{"--nope"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &platform.Config{Server: platform.ServerConfig{Transport: platform.TransportStdio, Address: ":9000"}}

	applyFlagOverrides(cfg, serverOptions{transport: "http", address: ":1", set: map[string]bool{"transport": true}})

	if cfg.Server.Transport != platform.TransportHTTP {
		t.Errorf("transport = %q, want http", cfg.Server.Transport)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("address = %q, want config value kept", cfg.Server.Address)
	}
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	if err := setupLogging(&buf, "warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := setupLogging(&buf, "loud"); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	if err := loadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TEST_DOTENV_PROSPECT=from-file\n"), 0o600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Setenv("TEST_DOTENV_PROSPECT", "")
	if err := os.Unsetenv("TEST_DOTENV_PROSPECT"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("TEST_DOTENV_PROSPECT"); got != "from-file" {
		t.Errorf("env = %q, want from-file", got)
	}
}

func TestStartServer_UnknownTransport(t *testing.T) {
	err := startServer(context.Background(), nil, platform.ServerConfig{Transport: "websocket"})
	if err == nil {
		t.Fatal("expected error for unknown transport")
	}
	if !strings.Contains(err.Error(), "unknown transport") {
		t.Errorf("error = %q, want 'unknown transport'", err.Error())
	}
}

func TestServeHTTP_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, srv) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveHTTP did not return after cancel")
	}
}

func TestServeHTTP_ListenError(t *testing.T) {
	srv := &http.Server{Addr: "not-an-address", ReadHeaderTimeout: time.Second}

	err := serveHTTP(context.Background(), srv)
	if err == nil {
		t.Fatal("expected listen error")
	}
}

func TestCreateServer_Defaults(t *testing.T) {
	t.Setenv(platform.APIKeyEnv, "test-key")
	t.Chdir(t.TempDir())

	p, err := createServer(serverOptions{transport: "http", set: map[string]bool{"transport": true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = p.Close() }()

	if p.Config().Server.Transport != platform.TransportHTTP {
		t.Errorf("transport = %q, want http", p.Config().Server.Transport)
	}
}
