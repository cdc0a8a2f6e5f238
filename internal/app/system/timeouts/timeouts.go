// Package timeouts holds the deadlines handlers put on their I/O.
//
// Tiers:
//   - Ping: health checks
//   - Short: single-document reads
//   - Medium: lists and single-collection writes
//   - Long: calendar transitions touching several collections
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config is a set of tier values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Defaults are used until Configure is called.
var Defaults = Config{
	Ping:   2 * time.Second,
	Short:  5 * time.Second,
	Medium: 10 * time.Second,
	Long:   30 * time.Second,
}

var current atomic.Pointer[Config]

func init() {
	Reset()
}

func load() Config { return *current.Load() }

func Ping() time.Duration   { return load().Ping }
func Short() time.Duration  { return load().Short }
func Medium() time.Duration { return load().Medium }
func Long() time.Duration   { return load().Long }

// Configure overrides the non-zero tiers of cfg. Call it at startup.
func Configure(cfg Config) {
	next := load()
	if cfg.Ping > 0 {
		next.Ping = cfg.Ping
	}
	if cfg.Short > 0 {
		next.Short = cfg.Short
	}
	if cfg.Medium > 0 {
		next.Medium = cfg.Medium
	}
	if cfg.Long > 0 {
		next.Long = cfg.Long
	}
	current.Store(&next)
}

// Reset restores Defaults.
func Reset() {
	d := Defaults
	current.Store(&d)
}

// Current returns the tiers in effect.
func Current() Config { return load() }

// WithTimeout is context.WithTimeout whose cancel logs a warning when the
// deadline was what ended the operation.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
