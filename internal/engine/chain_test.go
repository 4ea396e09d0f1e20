package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubBackend struct {
	name  string
	res   Result
	err   error
	calls int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Analyze(_ context.Context, _ Request) (Result, error) {
	s.calls++
	if s.err != nil {
		return Result{}, s.err
	}
	return s.res, nil
}

func (s *stubBackend) Close() error { return nil }

func TestChainFallsThrough(t *testing.T) {
	score := 42
	first := &stubBackend{name: "first", err: fmt.Errorf("%w: connection refused", ErrUnavailable)}
	second := &stubBackend{name: "second", res: Result{ScoreCP: &score, Backend: "second"}}
	third := &stubBackend{name: "third", res: Result{ScoreCP: &score, Backend: "third"}}

	chain := NewChain(first, second, third)
	res, err := chain.Analyze(context.Background(), Request{FEN: "8/8/8/8/8/8/8/K6k w - - 0 1", Depth: 8})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Backend != "second" {
		t.Fatalf("served by %q, want second", res.Backend)
	}
	if third.calls != 0 {
		t.Fatalf("third backend should not have been consulted")
	}
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(
		&stubBackend{name: "a", err: fmt.Errorf("%w: down", ErrUnavailable)},
		&stubBackend{name: "b", err: fmt.Errorf("%w: also down", ErrUnavailable)},
	)
	_, err := chain.Analyze(context.Background(), Request{FEN: "x", Depth: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestChainEmpty(t *testing.T) {
	chain := NewChain(nil)
	if _, err := chain.Analyze(context.Background(), Request{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fallback := &stubBackend{name: "fallback"}
	chain := NewChain(&stubBackend{name: "a", err: context.Canceled}, fallback)
	_, err := chain.Analyze(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback consulted after cancellation")
	}
}

func TestMaterialBackendBalanced(t *testing.T) {
	m := NewMaterialBackend()
	res, err := m.Analyze(context.Background(), Request{FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreCP == nil || *res.ScoreCP != 0 {
		t.Fatalf("balanced material: %v", res.ScoreCP)
	}
	if !res.Degraded {
		t.Fatalf("material estimate must be flagged degraded")
	}
}

func TestMaterialBackendImbalance(t *testing.T) {
	m := NewMaterialBackend()
	// Black is missing the queen.
	res, err := m.Analyze(context.Background(), Request{FEN: "rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScoreCP == nil || *res.ScoreCP != 900 {
		t.Fatalf("score = %v, want +900", res.ScoreCP)
	}
}

func TestMaterialBackendBadFEN(t *testing.T) {
	m := NewMaterialBackend()
	if _, err := m.Analyze(context.Background(), Request{FEN: ""}); err == nil {
		t.Fatalf("empty fen should error")
	}
}

func TestTierProfile(t *testing.T) {
	p, err := TierProfile("easy", 2, 64, 1, nil)
	if err != nil {
		t.Fatalf("TierProfile: %v", err)
	}
	if !p.LimitStrength || p.TargetElo != 800 || p.SkillLevel != 3 {
		t.Fatalf("easy tier = %+v", p)
	}

	p, err = TierProfile("MAX", 2, 64, 1, nil)
	if err != nil {
		t.Fatalf("TierProfile max: %v", err)
	}
	if p.LimitStrength || p.SkillLevel != 20 {
		t.Fatalf("max tier = %+v", p)
	}

	elo := 1234
	p, err = TierProfile("medium", 2, 64, 1, &TierOverride{TargetElo: &elo})
	if err != nil {
		t.Fatalf("TierProfile override: %v", err)
	}
	if p.TargetElo != 1234 {
		t.Fatalf("override ignored: %+v", p)
	}

	if _, err := TierProfile("impossible", 2, 64, 1, nil); err == nil {
		t.Fatalf("unknown tier should error")
	}
}
