package nestql

import (
	"log/slog"

	"github.com/syssam/nestql/batch"
	"github.com/syssam/nestql/compiler"
	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/hydrate"
	"github.com/syssam/nestql/internal/errs"
)

// UnmatchedPolicy decides what happens to a parent whose required to-one
// batch relation has no matching row.
type UnmatchedPolicy = batch.UnmatchedPolicy

const (
	// UnmatchedNull attaches null. It is the default.
	UnmatchedNull = batch.UnmatchedNull
	// UnmatchedDropRoot removes the root object owning the parent from the
	// result.
	UnmatchedDropRoot = batch.UnmatchedDropRoot
)

// Option configures Execute and FetchNode.
type Option func(*config) error

type config struct {
	dialect     dialect.Dialect
	minify      bool
	hydrator    Hydrator
	logger      *slog.Logger
	concurrency int
	unmatched   UnmatchedPolicy
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		hydrator: hydrate.Nest,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.dialect == nil {
		d, err := dialect.Lookup("")
		if err != nil {
			return nil, err
		}
		cfg.dialect = d
	}
	return cfg, nil
}

func (c *config) compilerOptions() []compiler.Option {
	return []compiler.Option{
		compiler.WithDialect(c.dialect.Name()),
		compiler.WithMinify(c.minify),
		compiler.WithLogger(c.logger),
	}
}

func (c *config) planner(fetch FetchFunc) *batch.Planner {
	return &batch.Planner{
		Dialect:     c.dialect,
		Fetch:       batch.FetchFunc(fetch),
		Hydrate:     batch.Hydrator(c.hydrator),
		Concurrency: c.concurrency,
		Unmatched:   c.unmatched,
		Logger:      c.logger,
	}
}

// WithDialect selects a registered dialect by name: "pg", "oracle",
// "mariadb", "mysql8", "mysql" or "sqlite3". The default is "sqlite3".
func WithDialect(name string) Option {
	return func(c *config) error {
		d, err := dialect.Lookup(name)
		if err != nil {
			return errs.NewConfigError("Dialect", name, err.Error())
		}
		c.dialect = d
		return nil
	}
}

// WithDialectImpl sets a dialect that is not registered.
func WithDialectImpl(d dialect.Dialect) Option {
	return func(c *config) error {
		if d == nil {
			return errs.NewConfigError("Dialect", nil, "dialect cannot be nil")
		}
		c.dialect = d
		return nil
	}
}

// WithMinify generates short base-N aliases instead of names derived from
// fields and tables. The oracle dialect always minifies.
func WithMinify(minify bool) Option {
	return func(c *config) error {
		c.minify = minify
		return nil
	}
}

// WithHydrator replaces hydrate.Nest.
func WithHydrator(h Hydrator) Option {
	return func(c *config) error {
		if h == nil {
			return errs.NewConfigError("Hydrator", nil, "hydrator cannot be nil")
		}
		c.hydrator = h
		return nil
	}
}

// WithLogger sets the logger receiving generated queries at debug level and
// deprecation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return errs.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithConcurrency bounds the batch queries in flight at one tree level.
// Zero means unbounded.
func WithConcurrency(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errs.NewConfigError("Concurrency", n, "concurrency cannot be negative")
		}
		c.concurrency = n
		return nil
	}
}

// WithUnmatched sets the policy for required to-one batch relations without
// a matching row.
func WithUnmatched(p UnmatchedPolicy) Option {
	return func(c *config) error {
		switch p {
		case UnmatchedNull, UnmatchedDropRoot:
			c.unmatched = p
			return nil
		default:
			return errs.NewConfigError("Unmatched", p, "unknown policy")
		}
	}
}
