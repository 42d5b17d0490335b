package dedup

import (
	"time"

	"go.uber.org/zap"
)

const (
	defaultTTL       = 10 * time.Second
	defaultTimeout   = 500 * time.Millisecond
	defaultKeyPrefix = "dedup:"
)

type config struct {
	ttl       time.Duration
	timeout   time.Duration
	keyPrefix string
	log       *zap.Logger
}

// Option configures a Guard.
type Option func(*config)

// WithTTL sets how long an admitted fingerprint blocks duplicates.
//
// Default: 10 seconds
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithTimeout bounds every store call. A call that runs out of time is
// reported as STORE_UNREACHABLE, never as admitted or duplicate.
//
// Default: 500 milliseconds
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithKeyPrefix namespaces markers in a shared store.
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		c.keyPrefix = prefix
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}
