package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rsibot/internal/dashboard"
)

func serveCmd(logLevel *string) *cobra.Command {
	var (
		addr    string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *logLevel, offline)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			a.health.Check(ctx)
			a.health.StartLivenessChecker(ctx, 15*time.Second)

			srv := dashboard.NewServer(a.newRunner(), a.metrics, a.health)
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("[rsibot] dashboard listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				slog.Info("[rsibot] shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $RSIBOT_LISTEN_ADDR or :8080)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Serve bars only from the local archive")
	return cmd
}
