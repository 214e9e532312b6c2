package api

import (
	"runtime"

	"github.com/suffix-labs/validkeys/pkg/sigcache"
)

// config holds the settings applied by Options.
type config struct {
	sigCache    *sigcache.SigCache
	concurrency int
}

// Option configures a verification call.
type Option func(*config)

// WithSigCache makes verification consult and fill cache. A cache may be
// shared between calls and goroutines.
func WithSigCache(cache *sigcache.SigCache) Option {
	return func(c *config) {
		c.sigCache = cache
	}
}

// WithConcurrency bounds the number of inputs VerifyTransaction verifies at
// once. Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{concurrency: runtime.NumCPU()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
