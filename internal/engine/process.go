package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/park285/fairchess/internal/engine/uci"
	"github.com/park285/fairchess/internal/obslog"
	"go.uber.org/zap"
)

// ProcessBackend evaluates positions with a locally spawned UCI engine. It
// owns at most one session, rebuilds it after a hard failure, and retries a
// timed-out evaluation once on a fresh process before reporting the backend
// unavailable.
type ProcessBackend struct {
	binaryPath string
	profile    uci.Profile
	timeout    time.Duration

	mu      sync.Mutex
	session *uci.Session
}

func NewProcessBackend(binaryPath string, profile uci.Profile, timeout time.Duration) (*ProcessBackend, error) {
	if binaryPath == "" {
		return nil, fmt.Errorf("engine binary path required")
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}
	return &ProcessBackend{
		binaryPath: binaryPath,
		profile:    profile,
		timeout:    timeout,
	}, nil
}

func (p *ProcessBackend) Name() string { return "process" }

func (p *ProcessBackend) Analyze(ctx context.Context, req Request) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	analysis, err := p.analyzeOnce(ctx, req)
	if errors.Is(err, uci.ErrAnalyzeTimeout) {
		obslog.L().Warn("process_backend_retry_after_timeout", zap.String("fen", req.FEN))
		analysis, err = p.analyzeOnce(ctx, req)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return Result{
		ScoreCP:  analysis.ScoreCP,
		MateIn:   analysis.MateIn,
		BestMove: analysis.BestMove,
		Lines:    analysis.Lines,
		Depth:    analysis.Depth,
		Backend:  p.Name(),
	}, nil
}

func (p *ProcessBackend) analyzeOnce(ctx context.Context, req Request) (uci.Analysis, error) {
	session, err := p.acquire(ctx)
	if err != nil {
		return uci.Analysis{}, err
	}

	analysis, err := session.Analyze(ctx, req.FEN, req.Depth, req.MultiPV)
	if err != nil {
		// A cancelled search can leave the session usable; anything else
		// has already torn the process down.
		if session.State() != uci.StateReady {
			p.session = nil
		}
		return uci.Analysis{}, err
	}
	return analysis, nil
}

func (p *ProcessBackend) acquire(ctx context.Context) (*uci.Session, error) {
	if p.session != nil && p.session.State() == uci.StateReady {
		if err := p.session.EnsureReady(ctx); err == nil {
			return p.session, nil
		}
		_ = p.session.Close()
		p.session = nil
	}

	session, err := uci.NewSession(ctx, p.binaryPath, p.profile)
	if err != nil {
		return nil, err
	}
	session.SetAnalyzeTimeout(p.timeout)
	p.session = session
	return session, nil
}

func (p *ProcessBackend) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}
