package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/raywall/terraform-provider-lambdaproxy/function/hello"
	"github.com/raywall/terraform-provider-lambdaproxy/internal/emulator"
)

const shutdownTimeout = 5 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the greeting function behind a local emulated stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stage := a.v.GetString("stage")
			handler := emulator.New(hello.New(a.logger).Handle, emulator.Options{
				Stage:     stage,
				ProxyRoot: a.v.GetBool("proxy-root"),
				Logger:    a.logger,
			})

			ln, err := net.Listen("tcp", a.v.GetString("addr"))
			if err != nil {
				return err
			}
			a.logger.Info("serving emulated stage", "url", "http://"+ln.Addr().String()+"/"+stage)
			return serve(cmd.Context(), &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}, ln)
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().String("stage", "dev", "Stage name used as the path prefix")
	cmd.Flags().Bool("proxy-root", true, "Route the stage root as well as /{proxy+}")
	return cmd
}

// serve blocks until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
