package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ai_dungeon_master/handlers"
	"ai_dungeon_master/session"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr      string
		staticDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the adventure over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Addr = addr
			}
			return a.serve(cmd.Context(), staticDir)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	cmd.Flags().StringVar(&staticDir, "static", "./static", "directory served under /static/")
	return cmd
}

func (a *app) serve(ctx context.Context, staticDir string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, closeGen, err := a.newGenerator(ctx)
	if err != nil {
		return err
	}
	defer closeGen()

	ctrl := session.NewController(a.catalog, gen, a.store, session.Config{
		Generation: a.generationOptions(),
		Timeout:    a.cfg.AITimeout,
	}, a.log)
	manager := session.NewManager(ctrl, a.catalog, a.log)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           newMux(manager, a.log, staticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Listening", zap.String("addr", "http://"+a.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMux(manager *session.Manager, log *zap.Logger, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static/", fs))
	mux.Handle("GET /metrics", promhttp.Handler())

	h := &handlers.Handler{Manager: manager, Log: log}
	h.Register(mux)
	return mux
}
