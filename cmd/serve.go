package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pable/rinkstats/internal/api"
	"github.com/pable/rinkstats/internal/notify"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve statistics over HTTP",
	Long: `Start the HTTP API, the cache janitor and, when RINKSTATS_REDIS_URL is set,
the invalidation subscriber that applies notices published by ingest and by
other servers.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides RINKSTATS_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	addr := a.cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := api.Options{
		CORSOrigins: a.cfg.CORSOrigins,
		Players:     a.db,
		Logger:      a.log,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.cache.Janitor(gctx, a.cfg.JanitorEvery)
		return nil
	})

	if a.cfg.RedisURL != "" {
		client, err := notify.NewClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		opts.Publisher = notify.NewPublisher(client)
		sub := notify.NewSubscriber(client, a.engine, a.log)
		g.Go(func() error { return sub.Run(gctx) })
	} else {
		a.log.Info("RINKSTATS_REDIS_URL not set, invalidations stay local")
	}

	srv := api.NewServer(a.engine, opts)
	g.Go(func() error {
		err := srv.ListenAndServe(gctx, addr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	a.log.Info("shutdown complete", zap.String("addr", addr))
	return nil
}
