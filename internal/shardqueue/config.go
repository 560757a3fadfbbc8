package shardqueue

import "time"

// Config tunes the executor. Zero values are replaced with the defaults
// documented on each field.
type Config struct {
	// Shards is the number of worker goroutines/queues (default 4). Keys
	// hash to a shard; sync cycles keyed by record type therefore serialize
	// per type while distinct types run in parallel.
	Shards int

	// QueueSize caps each shard's buffered channel (default 128).
	QueueSize int

	// EnqueueTimeout bounds how long Submit blocks on a full shard before
	// returning a QueueFullError (default 100ms).
	EnqueueTimeout time.Duration

	// MaxAttempts caps retries for recoverable job errors (default 8).
	MaxAttempts int

	// BaseBackoff is the initial retry interval (default 100ms); the interval
	// doubles up to MaxInterval (default 20s).
	BaseBackoff time.Duration
	MaxInterval time.Duration

	// ErrorHandler, when set, receives errors from jobs that exhausted their
	// retries or failed irrecoverably. Must not panic; panics are contained.
	ErrorHandler func(error)
}

func (c Config) withDefaults() Config {
	if c.Shards <= 0 {
		c.Shards = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = 100 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 20 * time.Second
	}
	return c
}
