package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"sohio.net/flake/internal/broadcast"
	"sohio.net/flake/internal/config"
	"sohio.net/flake/internal/httpapi"
	"sohio.net/flake/internal/ledger"
	"sohio.net/flake/internal/snowflake"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ID API over HTTP/1.1 and h2c",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a.cfg, a.logger)
		},
	}
	cmd.Flags().String("addr", config.Default().Addr, "listen address (env FLAKE_ADDR)")
	cmd.Flags().String("database-url", "", "PostgreSQL URL for the issued-ID ledger (env FLAKE_DATABASE_URL)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen, err := snowflake.NewGenerator(cfg.WorkerID, cfg.DatacenterID)
	if err != nil {
		return err
	}

	var feed broadcast.Set[snowflake.ID]
	var rec httpapi.Recorder

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("pool init: %w", err)
		}
		defer pool.Close()

		l, err := ledger.New(ctx, pool)
		if err != nil {
			return err
		}
		if err := l.CheckClock(ctx, cfg.WorkerID, cfg.DatacenterID, time.Now()); err != nil {
			return fmt.Errorf("ledger clock check: %w", err)
		}
		rec = l

		// Every process recording to this database feeds our watchers.
		go func() {
			// Without the listener the watch feed goes silent; stop serving.
			defer cancel()

			err := l.Listen(ctx, func(id snowflake.ID) { feed.Send(id) })
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification listener", "err", err)
			}
		}()
	}

	srv := http.Server{
		BaseContext: func(net.Listener) context.Context { return ctx },
		Handler:     h2c.NewHandler(httpapi.NewHandler(gen, &feed, rec, logger.With("component", "httpapi")), &http2.Server{}),
		ErrorLog:    slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	logger.Info("serving",
		"addr", ln.Addr().String(),
		"worker_id", cfg.WorkerID,
		"datacenter_id", cfg.DatacenterID,
		"ledger", rec != nil,
	)

	shutdownFinished := make(chan struct{})
	context.AfterFunc(ctx, func() {
		feed.CloseAll()
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("server shutdown", "err", err)
		}
		close(shutdownFinished)
	})

	if err := srv.Serve(ln); err != http.ErrServerClosed {
		cancel()
		<-shutdownFinished
		return fmt.Errorf("server: %w", err)
	}

	<-shutdownFinished
	logger.Info("stopped")
	return nil
}
