package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/fairchess/internal/obslog"
	"go.uber.org/zap"
)

// Chain tries backends in order and returns the first success. Backend
// failures are never fatal to the caller unless every strategy fails.
type Chain struct {
	backends []Backend
}

func NewChain(backends ...Backend) *Chain {
	kept := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			kept = append(kept, b)
		}
	}
	return &Chain{backends: kept}
}

func (c *Chain) Analyze(ctx context.Context, req Request) (Result, error) {
	if len(c.backends) == 0 {
		return Result{}, fmt.Errorf("%w: no backends configured", ErrUnavailable)
	}

	var errs []error
	for _, b := range c.backends {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		res, err := b.Analyze(ctx, req)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		obslog.L().Warn("backend_failed",
			zap.String("backend", b.Name()),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func (c *Chain) Close() error {
	var errs []error
	for _, b := range c.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
