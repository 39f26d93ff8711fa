package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/locate918/eventengine/internal/config"
	"github.com/locate918/eventengine/internal/logger"
	"github.com/locate918/eventengine/internal/server"
	"github.com/locate918/eventengine/internal/venue"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve extraction over HTTP",
		Long: `Run the HTTP API used by the admin tooling. When started with --config,
the file is watched and the extraction stack is rebuilt on every valid
change; robots.txt and venue caches survive the rebuild.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func backendFor(a *app) server.Backend {
	return server.Backend{
		Extractor:  a.runner,
		Robots:     a.gate,
		Store:      a.store,
		FutureOnly: a.cfg.Extraction.FutureOnly,
		SaveHTML:   a.cfg.Extraction.SaveHTML,
	}
}

func runServe(ctx context.Context, addr string) error {
	sh := newShared()
	a, err := newApp(rootConfig, sh)
	if err != nil {
		return err
	}
	srv := server.New(backendFor(a))

	if flagConfig != "" {
		loader, err := config.NewLoader(flagConfig)
		if err != nil {
			return err
		}
		loader.OnChange(func(cfg *config.Config) {
			applyFlags(cfg)
			next, err := newApp(cfg, sh)
			if err != nil {
				logger.Error("Hot reload skipped", nil, err)
				return
			}
			srv.Swap(backendFor(next))
			logger.Info("Configuration reloaded", logger.Fields{"path": flagConfig})
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			logger.Warn("Config watcher unavailable, hot reload disabled", logger.Fields{"error": err.Error()})
		} else {
			defer stopWatch()
		}
	}

	if addr == "" {
		addr = rootConfig.Serve.Addr
	}
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sh.venueCache.Sweep(ctx, venue.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.Fields{"addr": addr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", nil)
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}
