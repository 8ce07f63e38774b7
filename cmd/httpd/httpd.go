// Package httpd implements the httpd command: an HTTP API over the
// article store and the crawl pipeline.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newswire/newswire/cmd/common"
)

const (
	defaultAddress  = ":8080"
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Command returns the httpd command.
func Command() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "httpd",
		Short: "Serve the news API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			router := newRouter(deps)

			srv := &http.Server{
				Addr:         address,
				Handler:      router,
				ReadTimeout:  readTimeout,
				WriteTimeout: writeTimeout,
				IdleTimeout:  idleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				deps.Logger.Info("http server listening", "address", address)
				if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
					errCh <- serveErr
				}
			}()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case s := <-sig:
				deps.Logger.Info("shutting down", "signal", s.String())
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutting down http server: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", defaultAddress, "listen address")

	return cmd
}
