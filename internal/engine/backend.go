// Package engine provides position evaluation through an ordered chain of
// backends: a remote analysis service, a locally spawned UCI process, and a
// static material estimate as the degraded last resort.
package engine

import (
	"context"
	"errors"
)

// Request asks for one evaluation of a position.
type Request struct {
	FEN     string
	Depth   int
	MultiPV int
}

// Result is one backend's answer. MateIn, when present, supersedes ScoreCP.
// Scores are white-positive centipawns.
type Result struct {
	ScoreCP  *int
	MateIn   *int
	BestMove string
	Lines    [][]string
	Depth    int

	// Backend names the strategy that produced the result.
	Backend string
	// Degraded marks an estimate produced without any real search.
	Degraded bool
}

// Backend is one evaluation strategy. Analyze must be safe for sequential
// reuse; concurrency is the caller's concern because the underlying
// protocols carry no request correlation.
type Backend interface {
	Name() string
	Analyze(ctx context.Context, req Request) (Result, error)
	Close() error
}

var (
	// ErrUnavailable signals that a backend cannot serve evaluations right
	// now; the caller should fall through to the next backend.
	ErrUnavailable = errors.New("engine: backend unavailable")
)
