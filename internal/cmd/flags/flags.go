package flags

import (
	"fmt"
	"slices"

	"newsboard/internal/db"

	libnats "github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validStorages  = []string{"postgres", "memory"}
	validFeeds     = []string{"none", "postgres", "nats"}
)

func oneOf(name string, allowed []string) func(string) error {
	return func(value string) error {
		if !slices.Contains(allowed, value) {
			return fmt.Errorf("invalid %s: %s, allowed values are: %s", name, value, allowed)
		}
		return nil
	}
}

var LogLevel = &cli.StringFlag{
	Name:      "log-level",
	Aliases:   []string{"l"},
	Usage:     "The level of the logs",
	Value:     "info",
	Validator: oneOf("log level", validLogLevels),
	Sources:   cli.EnvVars("LOG_LEVEL"),
}

var DatabaseURL = &cli.StringFlag{
	Name:    "database-url",
	Usage:   "Postgres DSN",
	Value:   db.DefaultDSN,
	Sources: cli.EnvVars("DATABASE_URL"),
}

var Storage = &cli.StringFlag{
	Name:      "storage",
	Usage:     "Where documents live: postgres or memory",
	Value:     "postgres",
	Validator: oneOf("storage", validStorages),
	Sources:   cli.EnvVars("STORAGE"),
}

var ChangeFeed = &cli.StringFlag{
	Name:      "change-feed",
	Usage:     "How instances share writes: none, postgres or nats",
	Value:     "none",
	Validator: oneOf("change feed", validFeeds),
	Sources:   cli.EnvVars("CHANGE_FEED"),
}

var NATSURL = &cli.StringFlag{
	Name:    "nats-url",
	Aliases: []string{"n"},
	Usage:   "The URL of the NATS server",
	Value:   libnats.DefaultURL,
	Sources: cli.EnvVars("NATS_URL"),
}

var Port = &cli.StringFlag{
	Name:    "port",
	Aliases: []string{"p"},
	Usage:   "HTTP listen port",
	Value:   "8080",
	Sources: cli.EnvVars("PORT"),
}

var SessionSecret = &cli.StringFlag{
	Name:    "session-secret",
	Usage:   "Key signing the session cookie",
	Value:   "secret_key_change_me",
	Sources: cli.EnvVars("SESSION_SECRET"),
}

var PageSize = &cli.IntFlag{
	Name:    "page-size",
	Usage:   "Posts per page",
	Value:   10,
	Sources: cli.EnvVars("PAGE_SIZE"),
}

var MaxSessions = &cli.IntFlag{
	Name:    "max-sessions",
	Usage:   "Browser sessions kept in memory before the oldest is closed",
	Value:   1000,
	Sources: cli.EnvVars("MAX_SESSIONS"),
}
