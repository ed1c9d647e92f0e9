package nxt

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-nxt/logger"
)

// Default protocol parameters.
const (
	// DefaultExchangeTimeout is the per-call deadline applied to transport
	// reads and writes during an exchange.
	DefaultExchangeTimeout = 5 * time.Second

	// MaxTelegramSize is the largest telegram either side may send over the
	// Bluetooth link, excluding the 2-byte length prefix.
	MaxTelegramSize = 64
)

// ConnConfig holds all configuration for a Conn.
type ConnConfig struct {
	// exchangeTimeout bounds each transport read/write call.
	exchangeTimeout time.Duration

	// replyRequired, when true, requests a reply for commands that carry no
	// return data, so device-side failures surface immediately at the cost
	// of one round trip per command.
	replyRequired bool

	logger logger.Logger
}

// NewConnConfig creates a connection configuration with defaults applied,
// then applies opts in order.
func NewConnConfig(opts ...ConnOption) (*ConnConfig, error) {
	cfg := &ConnConfig{
		exchangeTimeout: DefaultExchangeTimeout,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ExchangeTimeout returns the per-call transport deadline.
func (cfg *ConnConfig) ExchangeTimeout() time.Duration { return cfg.exchangeTimeout }

// ReplyRequired returns whether fire-and-forget commands request a reply.
func (cfg *ConnConfig) ReplyRequired() bool { return cfg.replyRequired }

// GetLogger returns the configured logger.
func (cfg *ConnConfig) GetLogger() logger.Logger { return cfg.logger }

// ConnOption is a functional option for configuring a ConnConfig.
type ConnOption interface {
	apply(*ConnConfig) error
}

type connOptFunc func(*ConnConfig) error

func (f connOptFunc) apply(cfg *ConnConfig) error { return f(cfg) }

// WithExchangeTimeout sets the per-call transport deadline.
func WithExchangeTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnConfig) error {
		if d <= 0 {
			return fmt.Errorf("nxt: exchange timeout %v must be positive", d)
		}
		cfg.exchangeTimeout = d

		return nil
	})
}

// WithReplyRequired makes commands that carry no return data request a reply
// anyway, so device-side errors surface on every command. Disabled by
// default.
func WithReplyRequired(enabled bool) ConnOption {
	return connOptFunc(func(cfg *ConnConfig) error {
		cfg.replyRequired = enabled

		return nil
	})
}

// WithLogger sets the logger for the connection.
func WithLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *ConnConfig) error {
		if l == nil {
			return errors.New("nxt: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
