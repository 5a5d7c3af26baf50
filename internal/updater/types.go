package updater

import "time"

type Config struct {
	// Interval between poll ticks.
	Interval time.Duration
	// FetchTimeout bounds one feed fetch including body read.
	FetchTimeout time.Duration
	// Concurrency caps how many sources run their pipeline at once.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}
