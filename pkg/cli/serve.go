package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/conceptstudio/pkg/server"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	var (
		cfg            config
		addr           string
		requestTimeout time.Duration
		corsOrigins    []string
	)

	flags := allFlags(&cfg,
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("CONCEPTSTUDIO_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "request-timeout",
			Usage:       "Upper bound of one generation or refinement. 0 means no limit",
			Sources:     cli.EnvVars("CONCEPTSTUDIO_REQUEST_TIMEOUT"),
			Destination: &requestTimeout,
		},
		&cli.StringSliceFlag{
			Name:        "cors-origin",
			Usage:       "Origin allowed to call the API from another site (repeatable)",
			Sources:     cli.EnvVars("CONCEPTSTUDIO_CORS_ORIGINS"),
			Destination: &corsOrigins,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the browser studio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, logger, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			uc, closeStudio, err := cfg.newStudio(ctx)
			if err != nil {
				return err
			}
			defer closeStudio()

			pref, closePref, err := cfg.newPreference(ctx)
			if err != nil {
				return err
			}
			defer closePref()

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(uc, pref,
				server.WithCORSOrigins(corsOrigins...),
				server.WithRequestTimeout(requestTimeout),
			)

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("studio started", "addr", addr, "export", uc.ExportEnabled())
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to serve", goerr.V("addr", addr))
				}
				return nil

			case <-sigCtx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server")
				}
				return nil
			}
		},
	}
}
