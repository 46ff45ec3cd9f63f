package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"newsboard/internal/cmd/flags"
	"newsboard/internal/config"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

const VERSION = "0.1.0"

var cmd = &cli.Command{
	Name:    "newsboard",
	Usage:   "A real-time discussion board",
	Version: VERSION,
	Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
		if err := initLogger(c.String("log-level")); err != nil {
			return ctx, err
		}
		return ctx, nil
	},
	Flags: []cli.Flag{
		flags.LogLevel,
	},
	Commands: []*cli.Command{
		serveCmd,
		migrateCmd,
	},
}

func Run() {
	// .env 不存在时使用系统环境变量
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system env vars")
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg := &config.Config{
		DatabaseURL:   c.String(flags.DatabaseURL.Name),
		Storage:       c.String(flags.Storage.Name),
		ChangeFeed:    c.String(flags.ChangeFeed.Name),
		NATSURL:       c.String(flags.NATSURL.Name),
		Port:          c.String(flags.Port.Name),
		SessionSecret: c.String(flags.SessionSecret.Name),
		PageSize:      int(c.Int(flags.PageSize.Name)),
		MaxSessions:   int(c.Int(flags.MaxSessions.Name)),
		LogLevel:      c.String(flags.LogLevel.Name),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
