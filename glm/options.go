package glm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/svystat/internal/options"
)

const (
	// DefaultTol is the convergence tolerance on the maximum absolute
	// coefficient change between iterations.
	DefaultTol = 1e-8

	// DefaultMaxIterations caps the reweighted least squares loop.
	DefaultMaxIterations = 25
)

// Config collects the fitting parameters. The zero value is not usable;
// construct through Fit's options.
type Config struct {
	Tol     float64
	MaxIter int
	Logger  *zap.Logger
}

// FitOption is a functional option for Fit.
type FitOption = options.Option[*Config]

// WithTol sets the convergence tolerance on the maximum absolute
// coefficient change. Default is DefaultTol.
func WithTol(tol float64) FitOption {
	return options.New(func(c *Config) error {
		if tol <= 0 {
			return fmt.Errorf("glm: tolerance must be positive, got %g", tol)
		}
		c.Tol = tol

		return nil
	})
}

// WithMaxIterations sets the iteration cap. Default is DefaultMaxIterations.
func WithMaxIterations(n int) FitOption {
	return options.New(func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("glm: iteration cap must be at least 1, got %d", n)
		}
		c.MaxIter = n

		return nil
	})
}

// WithLogger sets the logger for per-iteration diagnostics. Defaults to a
// no-op logger.
func WithLogger(logger *zap.Logger) FitOption {
	return options.NoError(func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	})
}

func newConfig(opts ...FitOption) (*Config, error) {
	cfg := &Config{
		Tol:     DefaultTol,
		MaxIter: DefaultMaxIterations,
		Logger:  zap.NewNop(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}
