package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/gemctl/internal/admin"
	"github.com/danmuck/gemctl/internal/auth"
	"github.com/danmuck/gemctl/internal/cache"
	"github.com/danmuck/gemctl/internal/logging"
	"github.com/danmuck/gemctl/internal/protocol/gemini"
	"github.com/danmuck/gemctl/internal/protocol/transfer"
	"github.com/danmuck/gemctl/internal/sandbox"
	"github.com/danmuck/gemctl/internal/scheduler"
	"github.com/danmuck/gemctl/internal/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gemctl: %v\n", err)
		os.Exit(1)
	}
}

func transportMode(v string) transport.SecurityMode {
	return transport.NormalizeSecurityMode(transport.SecurityMode(v))
}

func run(args []string) error {
	logging.ConfigureRuntime()

	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	resolver, err := sandbox.NewResolver(cfg.PublicRoot)
	if err != nil {
		return fmt.Errorf("public root: %w", err)
	}
	store := cache.New(cfg.Cache.Capacity)

	retrieval := gemini.NewHandler(gemini.Config{
		DefaultDocument: cfg.Retrieval.DefaultDocument,
		DirListing:      cfg.Retrieval.DirListing,
		MaxRequestLen:   cfg.Retrieval.MaxRequestLen,
		ReadTimeout:     cfg.Retrieval.ReadTimeout(),
		WriteTimeout:    cfg.Retrieval.WriteTimeout(),
	}, resolver, store)

	validator := auth.FromConfig(cfg.Transfer.AuthToken, cfg.Transfer.AuthTokenHashed)
	xfer := transfer.NewHandler(transfer.Config{
		ReadTimeout:  cfg.Transfer.ReadTimeout(),
		WriteTimeout: cfg.Transfer.WriteTimeout(),
		MaxLineLen:   cfg.Transfer.MaxLineLen,
	}, resolver, validator)

	sched := scheduler.New(scheduler.Config{
		RetrievalAddr: cfg.RetrievalAddr,
		TransferAddr:  cfg.TransferAddr,
		Transport:     cfg.Transport,
	}, retrieval, xfer)
	if err := sched.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminSrv := admin.NewServer(admin.Config{
		ListenAddr:  cfg.AdminAddr,
		CORSOrigins: cfg.CORSOrigins,
	}, sched, store)

	errc := make(chan error, 2)
	go func() {
		errc <- sched.Serve(ctx)
	}()
	if cfg.AdminAddr != "" {
		go func() {
			errc <- adminSrv.Serve()
		}()
	}

	log.Info().
		Str("public_root", resolver.Root()).
		Str("retrieval_addr", sched.RetrievalAddr()).
		Str("transfer_addr", sched.TransferAddr()).
		Str("admin_addr", cfg.AdminAddr).
		Bool("auth_enabled", validator != nil).
		Msg("gemctl_started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal")
	case err := <-errc:
		if err != nil {
			stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("admin_shutdown_failed")
	}
	// Scheduler unwinds on ctx cancellation.
	<-errc
	return nil
}
