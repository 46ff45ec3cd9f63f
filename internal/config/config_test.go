package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func valid() Config {
	return Config{
		Storage:     StoragePostgres,
		ChangeFeed:  FeedNone,
		PageSize:    10,
		MaxSessions: 1000,
	}
}

func TestValidate(t *testing.T) {
	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg.ChangeFeed = FeedNATS
	require.NoError(t, cfg.Validate())

	for name, mutate := range map[string]func(*Config){
		"zero page size":   func(c *Config) { c.PageSize = 0 },
		"zero sessions":    func(c *Config) { c.MaxSessions = 0 },
		"memory with feed": func(c *Config) { c.Storage = StorageMemory; c.ChangeFeed = FeedNATS },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
