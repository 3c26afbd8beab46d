package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/ai-shell/internal/bridge"
	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/history"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/server"
)

// NewServeCmd creates the serve command
func NewServeCmd(app *App) *cobra.Command {
	var addr string
	var noCORS bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the shell over HTTP and WebSocket",
		Long: `Serve one shell session to web clients.

Commands are accepted as JSON on POST /execute and on the /ws WebSocket,
and answered with {"success", "output", "command"}. GET /status reports the
session's working directory and prompt.

Examples:
  ai-shell serve
  ai-shell serve --addr 0.0.0.0:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.prepare(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			l, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			fmt.Printf("ai-shell serving on http://%s\n", l.Addr())
			return app.serve(ctx, l, &server.Config{
				Addr:        addr,
				EnableCORS:  !noCORS,
				ReadTimeout: server.DefaultConfig().ReadTimeout,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", constants.DefaultServeAddr, "Address to listen on")
	cmd.Flags().BoolVar(&noCORS, "no-cors", false, "Disable permissive CORS headers")
	return cmd
}

// serve runs a session behind the bridge and HTTP server on l until ctx is
// done, then shuts both down.
func (app *App) serve(ctx context.Context, l net.Listener, cfg *server.Config) error {
	// Web sessions keep their own history; the terminal history file is left alone
	sess, err := app.newSession(sessionOptions{history: history.New(constants.HistoryCapacity)})
	if err != nil {
		return err
	}

	b := bridge.New(sess, constants.BridgeQueueCapacity, bridge.WithLogger(logging.DefaultLogger))
	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	srv := server.New(cfg, b, sess, logging.DefaultLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down server", logging.Fields{"addr": l.Addr().String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}
