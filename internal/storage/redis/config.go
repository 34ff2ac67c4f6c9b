package redis

import (
	"errors"
	"time"
)

// Config holds Redis connection settings
type Config struct {
	URL string

	// KeyPrefix namespaces both keys so several hosts can share one Redis
	KeyPrefix string

	PoolSize     int
	MinIdleConns int

	// DialTimeout bounds the startup ping
	DialTimeout time.Duration
}

// DefaultConfig returns defaults sized for a single host process
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		KeyPrefix:    "hostguard",
		PoolSize:     4,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
	}
}

func (c Config) validate() error {
	if c.URL == "" {
		return errors.New("redis url must not be empty")
	}
	if c.DialTimeout <= 0 {
		return errors.New("redis dial timeout must be positive")
	}
	return nil
}

// keyspace holds the two keys a host owns
type keyspace struct {
	banList  string
	settings string
}

func newKeyspace(prefix string) keyspace {
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return keyspace{
		banList:  prefix + ":banlist",
		settings: prefix + ":settings",
	}
}
