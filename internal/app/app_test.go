package app

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/commercegate/admin-security/internal/config"
)

func TestNewAssignsDependencies(t *testing.T) {
	cfg := &config.Config{HTTPAddr: ":8080"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{Addr: ":8080", ReadHeaderTimeout: time.Second}

	a := New(cfg, logger, server, nil)
	if a.Config != cfg || a.Logger != logger || a.Server != server {
		t.Fatal("expected app dependencies to be assigned")
	}
}

func TestProvideServerTimeouts(t *testing.T) {
	cfg := &config.Config{HTTPAddr: ":9090"}
	srv := provideServer(cfg, http.NewServeMux())
	if srv.Addr != ":9090" {
		t.Fatalf("Addr=%q", srv.Addr)
	}
	if srv.ReadHeaderTimeout <= 0 || srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 || srv.IdleTimeout <= 0 {
		t.Fatal("server timeouts must all be set")
	}
}
