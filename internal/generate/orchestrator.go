package generate

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/fairchess/internal/engine"
	"github.com/park285/fairchess/internal/eval"
	"github.com/park285/fairchess/internal/obslog"
	"github.com/park285/fairchess/internal/rules"
)

// Evaluator is the evaluation surface the orchestrator depends on,
// satisfied by *engine.Chain.
type Evaluator interface {
	Analyze(ctx context.Context, req engine.Request) (engine.Result, error)
}

// Archive optionally records accepted positions and suppresses recent
// duplicates. A nil archive disables both.
type Archive interface {
	SeenRecently(ctx context.Context, placement string) (bool, error)
	Record(ctx context.Context, rec AcceptedRecord) error
}

// AcceptedRecord is what the archive stores per accepted position.
type AcceptedRecord struct {
	FEN        string
	Evaluation int
	Attempts   int
	Backend    string
}

// Options configures one generation request. The pipeline only reads it.
type Options struct {
	MaxEvaluationCP int
	EngineDepth     int
	MultiPV         int
	Checks          Checks

	// MaxAttempts is a diagnostic ceiling; zero leaves the loop unbounded.
	MaxAttempts int

	// Progress, when set, is invoked with the attempt count at the start of
	// every attempt. It must not block.
	Progress func(attempt int)
}

// Result is an accepted position with its fairness verdict.
type Result struct {
	FEN      string
	Verdict  eval.Verdict
	Attempts int
	Backend  string
}

// ErrAttemptsExhausted reports that the diagnostic attempt ceiling was hit
// before any candidate was accepted.
var ErrAttemptsExhausted = errors.New("generate: attempt ceiling reached without an accepted position")

// Orchestrator drives the generate → filter → evaluate → accept loop.
// Attempts are strictly sequential: one evaluator call in flight at most.
type Orchestrator struct {
	evaluator Evaluator
	archive   Archive

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewOrchestrator(evaluator Evaluator) *Orchestrator {
	return &Orchestrator{
		evaluator: evaluator,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AttachArchive wires an optional accepted-position archive.
func (o *Orchestrator) AttachArchive(a Archive) {
	o.archive = a
}

// SetRandomSeed makes construction deterministic. Intended for tests.
func (o *Orchestrator) SetRandomSeed(seed int64) {
	o.randMu.Lock()
	o.rand = rand.New(rand.NewSource(seed))
	o.randMu.Unlock()
}

func (o *Orchestrator) random() *rand.Rand {
	o.randMu.Lock()
	seed := o.rand.Int63()
	o.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// Generate loops until a candidate passes every enabled predicate and the
// evaluation bound. It returns early only on context cancellation, on the
// optional attempt ceiling, or when every evaluation backend fails.
func (o *Orchestrator) Generate(ctx context.Context, opts Options) (*Result, error) {
	if opts.EngineDepth <= 0 {
		opts.EngineDepth = 12
	}
	r := o.random()

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts++
		if opts.MaxAttempts > 0 && attempts > opts.MaxAttempts {
			return nil, ErrAttemptsExhausted
		}
		if opts.Progress != nil {
			opts.Progress(attempts)
		}

		result, reason, err := o.attempt(ctx, r, opts, attempts)
		if err != nil {
			return nil, err
		}
		if result != nil {
			obslog.L().Info("position_accepted",
				zap.String("fen", result.FEN),
				zap.Int("evaluation", result.Verdict.Evaluation),
				zap.Int("attempts", attempts),
				zap.String("backend", result.Backend))
			return result, nil
		}

		obslog.L().Debug("candidate_rejected",
			zap.String("reason", string(reason)),
			zap.Int("attempt", attempts))
	}
}

// attempt runs one pass of the loop. A nil result with a reason means
// "retry"; a non-nil error aborts the whole generation.
func (o *Orchestrator) attempt(ctx context.Context, r *rand.Rand, opts Options, attempts int) (*Result, RejectReason, error) {
	cand, err := construct(r, opts.Checks)
	if err != nil {
		switch {
		case errors.Is(err, ErrPlacementFailure):
			return nil, RejectPlacement, nil
		case errors.Is(err, errBishopsSameColor):
			return nil, RejectBishopsSameColor, nil
		default:
			return nil, "", err
		}
	}

	if o.archive != nil {
		seen, err := o.archive.SeenRecently(ctx, cand.placement())
		if err != nil {
			obslog.L().Warn("archive_lookup_failed", zap.Error(err))
		} else if seen {
			return nil, RejectDuplicate, nil
		}
	}

	// Side to move is a white placeholder until fairness decides it; the
	// round trip through the rules engine catches encoding edge cases.
	snap, err := rules.Load(cand.fen(nchess.White))
	if err != nil {
		return nil, RejectInvalidFEN, nil
	}

	if reason, err := checkLocalPredicates(snap, opts.Checks); err != nil {
		return nil, reason, nil
	} else if reason != "" {
		return nil, reason, nil
	}

	normalized := snap.FEN()
	res, err := o.evaluator.Analyze(ctx, engine.Request{
		FEN:     normalized,
		Depth:   opts.EngineDepth,
		MultiPV: opts.MultiPV,
	})
	if err != nil {
		return nil, "", err
	}

	// A forced mate is never fair, regardless of toggles.
	if res.MateIn != nil {
		return nil, RejectForcedMate, nil
	}

	cp := 0
	if res.ScoreCP != nil {
		cp = *res.ScoreCP
	}
	if opts.Checks.EvaluationWithinRange {
		abs := cp
		if abs < 0 {
			abs = -abs
		}
		if abs > opts.MaxEvaluationCP {
			return nil, RejectEvalOutOfRange, nil
		}
	}

	// Fairness compensation, not chess law: the disadvantaged side moves
	// first. With a white-positive score, any positive evaluation hands
	// black the move; otherwise white keeps it.
	turn := nchess.White
	if cp > 0 {
		turn = nchess.Black
	}
	finalFEN := rules.WithSideToMove(normalized, turn)

	result := &Result{
		FEN:      finalFEN,
		Verdict:  eval.NewVerdict(cp, nil, opts.MaxEvaluationCP, res.Degraded),
		Attempts: attempts,
		Backend:  res.Backend,
	}

	if o.archive != nil {
		rec := AcceptedRecord{FEN: finalFEN, Evaluation: cp, Attempts: attempts, Backend: res.Backend}
		if err := o.archive.Record(ctx, rec); err != nil {
			obslog.L().Warn("archive_record_failed", zap.Error(err))
		}
	}
	return result, "", nil
}
