package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"newsboard/internal/cmd/flags"
	"newsboard/internal/config"
	"newsboard/internal/db"
	"newsboard/internal/realtime"
	"newsboard/internal/router"
	"newsboard/internal/services"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Run the HTTP server",
	Flags: []cli.Flag{
		flags.DatabaseURL,
		flags.Storage,
		flags.ChangeFeed,
		flags.NATSURL,
		flags.Port,
		flags.SessionSecret,
		flags.PageSize,
		flags.MaxSessions,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, slog.Default())
	},
}

// openDatabase wires the storage backend and the change feed.
func openDatabase(cfg *config.Config, logger *slog.Logger) (*realtime.Database, error) {
	opts := []realtime.Option{realtime.WithLogger(logger)}

	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on exit")
		return realtime.New(realtime.NewMemoryStorage(), opts...), nil
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		return nil, err
	}

	switch cfg.ChangeFeed {
	case config.FeedPostgres:
		opts = append(opts, realtime.WithFeed(realtime.NewPostgresFeed(conn, cfg.DatabaseURL, logger)))
	case config.FeedNATS:
		feed, err := realtime.NewNATSFeed(cfg.NATSURL, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, realtime.WithFeed(feed))
	}
	return realtime.New(realtime.NewPostgresStorage(conn), opts...), nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	database, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	reg, err := services.NewRegistry(database, cfg.PageSize, cfg.MaxSessions, logger)
	if err != nil {
		return err
	}
	defer reg.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(reg, cfg.SessionSecret, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return database.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("Newsboard server starting", "port", cfg.Port, "storage", cfg.Storage, "feed", cfg.ChangeFeed)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
