package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/hierarchy-engine/api"
	"github.com/warp/hierarchy-engine/store/sqlite"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var scenario string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := sqlite.New(a.cfg.DB)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if scenario != "" {
				if err := api.LoadScenarioData(ctx, store, scenario, a.logger); err != nil {
					return fmt.Errorf("load scenario: %w", err)
				}
				a.logger.Info("scenario loaded", zap.String("scenario", scenario))
			}

			return serve(ctx, a, store)
		},
	}
	cmd.Flags().Int("port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&scenario, "scenario", "", "Demo scenario to load on start")
	return cmd
}

// serve runs until ctx is cancelled, then drains active requests.
func serve(ctx context.Context, a *app, store *sqlite.Store) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Port),
		Handler:      api.NewRouter(api.NewHandler(store, a.logger)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			zap.Int("port", a.cfg.Port),
			zap.String("db", a.cfg.DB))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
