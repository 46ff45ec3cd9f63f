package config

import (
	"errors"
	"fmt"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	FeedNone     = "none"
	FeedPostgres = "postgres"
	FeedNATS     = "nats"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	DatabaseURL   string
	Storage       string
	ChangeFeed    string
	NATSURL       string
	Port          string
	SessionSecret string
	PageSize      int
	MaxSessions   int
	LogLevel      string
}

// Validate checks combinations the flags cannot check one by one.
func (c *Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidConfig, c.PageSize)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("%w: max sessions must be positive, got %d", ErrInvalidConfig, c.MaxSessions)
	}
	if c.Storage == StorageMemory && c.ChangeFeed != FeedNone {
		return fmt.Errorf("%w: memory storage cannot share changes over %s", ErrInvalidConfig, c.ChangeFeed)
	}
	return nil
}
