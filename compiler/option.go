package compiler

import (
	"log/slog"

	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/internal/errs"
)

// Option configures a compilation.
type Option func(*config) error

type config struct {
	minify  bool
	dialect string
	logger  *slog.Logger
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	// Oracle caps identifiers at 30 bytes, verbose aliases overflow it.
	if cfg.dialect == dialect.Oracle {
		cfg.minify = true
	}
	return cfg, nil
}

// WithMinify generates short base-N aliases instead of names derived from
// fields and tables.
func WithMinify(minify bool) Option {
	return func(c *config) error {
		c.minify = minify
		return nil
	}
}

// WithDialect names the dialect the tree is compiled for. The oracle dialect
// forces minified aliases.
func WithDialect(name string) Option {
	return func(c *config) error {
		c.dialect = name
		return nil
	}
}

// WithLogger sets the logger used for deprecation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return errs.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
