package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"groqkit/internal/app"
	"groqkit/internal/version"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(e *env) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				e.cfg.Server.Port = port
			}

			e.logger.Info("starting groqkit",
				"version", version.Version,
				"commit", version.Commit,
				"build_date", version.Date,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, e.cfg, os.Stderr)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- application.Start(":" + e.cfg.Server.Port)
			}()

			select {
			case err := <-errCh:
				shutdownErr := application.Shutdown(context.Background())
				if err != nil {
					return err
				}
				return shutdownErr
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := application.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides PORT)")
	return cmd
}
