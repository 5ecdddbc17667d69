package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/commercegate/admin-security/internal/app"
	"github.com/commercegate/admin-security/internal/config"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/tools/common"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := common.LoadEnvFile(".env"); err != nil {
		return err
	}

	// An incomplete configuration refuses to start the process. Running
	// without a session pepper or CSRF secret is not a degraded mode.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, loggerProvider, err := observability.InitLogging(ctx, cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a, cleanup, err := app.Initialize(ctx, cfg, logger, loggerProvider)
	if err != nil {
		return err
	}
	defer cleanup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
		return a.Observability.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
