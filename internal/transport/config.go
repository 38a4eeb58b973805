package transport

import "time"

const (
	defaultDialTimeout = 3 * time.Second
	defaultIOTimeout   = 10 * time.Second
)

type Config struct {
	// DialTimeout bounds connection establishment to a neighbor.
	DialTimeout time.Duration
	// IOTimeout bounds each read or write on an established connection.
	IOTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DialTimeout: defaultDialTimeout,
		IOTimeout:   defaultIOTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.IOTimeout <= 0 {
		c.IOTimeout = defaultIOTimeout
	}
	return c
}
