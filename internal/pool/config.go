package pool

import (
	"fmt"
	"time"
)

// Default pool settings.
const (
	DefaultMaxOpen         = 10
	DefaultCheckoutTimeout = 10 * time.Second
	DefaultPingTimeout     = 2 * time.Second
)

// Config sizes and times a Pool.
type Config struct {
	// MaxOpen bounds live connections, including ones being dialed.
	MaxOpen int

	// CheckoutTimeout bounds how long Get waits for a connection.
	CheckoutTimeout time.Duration

	// PingTimeout bounds the liveness check run when a connection is returned.
	PingTimeout time.Duration

	// IdleTimeout closes connections idle for longer. Zero keeps them forever.
	IdleTimeout time.Duration
}

// DefaultConfig returns the default pool settings.
func DefaultConfig() Config {
	return Config{
		MaxOpen:         DefaultMaxOpen,
		CheckoutTimeout: DefaultCheckoutTimeout,
		PingTimeout:     DefaultPingTimeout,
	}
}

// Validate reports settings a pool cannot run with.
func (c Config) Validate() error {
	if c.MaxOpen < 1 {
		return fmt.Errorf("pool: max_open must be at least 1, got %d", c.MaxOpen)
	}
	if c.CheckoutTimeout <= 0 {
		return fmt.Errorf("pool: checkout_timeout must be positive, got %s", c.CheckoutTimeout)
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("pool: ping_timeout must be positive, got %s", c.PingTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("pool: idle_timeout must not be negative, got %s", c.IdleTimeout)
	}
	return nil
}
