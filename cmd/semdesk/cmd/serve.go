package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	chiTransport "github.com/kailas-cloud/semdesk/internal/transport/chi"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var watchFolder string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search, answers and indexing over HTTP",
		Long: `Start the HTTP API.

Endpoints: GET /search, GET /tags, POST /ask, POST /index, GET /health and
GET /metrics. With --watch the given folder is indexed on startup and kept
up to date as files change.

Examples:
  semdesk serve
  semdesk serve --env prod
  semdesk serve --watch ~/Documents`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g, g.env)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServe(cmd.Context(), a, watchFolder)
		},
	}

	cmd.Flags().StringVarP(&watchFolder, "watch", "w", "", "Folder to index and watch while serving")
	return cmd
}

func runServe(ctx context.Context, a *app, watchFolder string) error {
	engine, err := a.engine()
	if err != nil {
		return err
	}

	cfg := a.cfg
	health := a.health()
	handler := chiTransport.NewServer(engine, a, health, a.log).
		WithAllowedRoots(cfg.Indexing.AllowedRoots...).
		Handler(cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("Starting HTTP server",
			zap.String("addr", addr),
			zap.Strings("components", health.Components()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if watchFolder != "" {
		g.Go(func() error {
			return watchLoop(gctx, a, watchFolder)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		a.log.Info("Server stopped gracefully")
		return nil
	})

	return g.Wait()
}
