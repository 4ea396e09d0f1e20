package engine

import (
	"context"
	"fmt"
	"strings"
)

// Piece values in centipawns for the static estimate.
var materialValues = map[rune]int{
	'p': 100,
	'n': 300,
	'b': 300,
	'r': 500,
	'q': 900,
}

// MaterialBackend is the last-resort estimator: a bare material count with
// no positional knowledge. It always succeeds and flags its result degraded.
type MaterialBackend struct{}

func NewMaterialBackend() *MaterialBackend { return &MaterialBackend{} }

func (m *MaterialBackend) Name() string { return "material" }

func (m *MaterialBackend) Analyze(_ context.Context, req Request) (Result, error) {
	placement, _, ok := strings.Cut(strings.TrimSpace(req.FEN), " ")
	if !ok || placement == "" {
		return Result{}, fmt.Errorf("malformed fen: %q", req.FEN)
	}

	score := 0
	for _, r := range placement {
		if r == '/' || (r >= '1' && r <= '8') {
			continue
		}
		lower := r | 0x20
		v, valued := materialValues[lower]
		if !valued {
			continue
		}
		if r == lower {
			score -= v
		} else {
			score += v
		}
	}

	return Result{
		ScoreCP:  &score,
		Backend:  m.Name(),
		Degraded: true,
	}, nil
}

func (m *MaterialBackend) Close() error { return nil }
