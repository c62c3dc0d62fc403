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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pavelanni/proctor/internal/clock"
	"github.com/pavelanni/proctor/internal/directory"
	"github.com/pavelanni/proctor/internal/handler"
	"github.com/pavelanni/proctor/internal/i18n"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the exam session over an HTTP JSON API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.AddFlagSet(storeFlags())
	f.AddFlagSet(bankFlags())
	f.AddFlagSet(examFlags())
	f.AddFlagSet(logFlags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	closeLog, err := setupLogging(v, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.Default()

	b, err := openBackend(v)
	if err != nil {
		return err
	}
	defer b.Close()

	mgr, err := newManager(v, b, logger, nil)
	if err != nil {
		return err
	}
	defer mgr.Close()

	health := directory.NewHealthFeed(clock.Real(), mgr.Directory().Services(), nil)
	health.Start()
	defer health.Stop()

	lang := v.GetString("lang")
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(i18n.Middleware(lang))
	handler.New(mgr, health, logger).Routes(r)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	// Closing the channel ends open notification streams so Shutdown can
	// finish.
	srv.RegisterOnShutdown(mgr.Notifications().Close)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	slog.Info("starting server",
		"addr", addr,
		"store", v.GetString("store"),
		"judge", v.GetString("judge"),
		"lang", lang,
		"time_limit", v.GetDuration("time-limit"),
	)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
