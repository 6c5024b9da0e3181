// Package main boots the Toko Sayur POS HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/toko-sayur-pos/internal/config"
	httpapi "github.com/fairyhunter13/toko-sayur-pos/internal/http"
	"github.com/fairyhunter13/toko-sayur-pos/internal/obs"
	"github.com/fairyhunter13/toko-sayur-pos/internal/store"
)

func main() {
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.Info("service_starting", "addr", cfg.HTTPAddr, "max_sessions", cfg.MaxSessions)

	st := store.New(store.Options{
		MaxSessions: cfg.MaxSessions,
		MailboxSize: cfg.MailboxSize,
	})
	app := httpapi.NewApp(cfg, st)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return st.RunSweeper(gctx, cfg.SessionSweepInterval, cfg.SessionIdleTTL)
	})
	g.Go(func() error {
		<-gctx.Done()
		obs.Logger.Info("shutdown_begin", "sessions_active", st.Len())
		app.StartShutdown()

		ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelDrain()
		if drained := st.Drain(ctxDrain); !drained {
			obs.Logger.Warn("shutdown_drain_timeout")
		} else {
			obs.Logger.Info("shutdown_drain_complete")
		}

		ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelSrv()
		err := srv.Shutdown(ctxSrv)
		st.Close()
		if !app.WaitStreams(ctxSrv) {
			obs.Logger.Warn("shutdown_streams_timeout")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		obs.Logger.Error("service_error", "error", err.Error())
		os.Exit(1)
	}
	obs.Logger.Info("service_stopped")
}
