package cmd

import (
	"context"
	"log/slog"

	"newsboard/internal/cmd/flags"
	"newsboard/internal/db"

	"github.com/urfave/cli/v3"
)

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Create or update the Postgres tables and indexes",
	Flags: []cli.Flag{
		flags.DatabaseURL,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		conn, err := db.Open(c.String(flags.DatabaseURL.Name))
		if err != nil {
			return err
		}
		if err := db.Migrate(conn.WithContext(ctx)); err != nil {
			return err
		}
		slog.Info("Migration complete")
		return nil
	},
}
