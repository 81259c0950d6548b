// Package serve runs the HTTP API.
package serve

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fjacquet/fiscal-organizer/cmd/root"
	"fjacquet/fiscal-organizer/internal/httpapi"
	"fjacquet/fiscal-organizer/internal/logging"

	"github.com/spf13/cobra"
)

// Address overrides server.address from the configuration.
var Address string

const shutdownTimeout = 10 * time.Second

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the organizer over HTTP",
	Long: `Serve exposes POST /v1/organize (multipart fields company, cnpj and files),
GET /v1/runs, GET /v1/runs/{id}, /metrics and /healthz.`,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVarP(&Address, "addr", "a", "", "Listen address (default from server.address)")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Container()
	if err != nil {
		return err
	}

	addr := Address
	if addr == "" {
		addr = c.GetConfig().Server.Address
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(c).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		root.Log.Info("HTTP server listening", logging.F("addr", addr))
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

	root.Log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
