package generate

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/fairchess/internal/engine"
	"github.com/park285/fairchess/internal/rules"
)

func TestConstructInvariants(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		r := rand.New(rand.NewSource(seed))
		c, err := construct(r, AllChecks())
		if err != nil {
			// Placement failure and same-color bishops are legitimate
			// candidate-level rejections, not test failures.
			if errors.Is(err, ErrPlacementFailure) || errors.Is(err, errBishopsSameColor) {
				continue
			}
			t.Fatalf("seed %d: construct: %v", seed, err)
		}

		var white, black, whiteKings, blackKings int
		var kingSquares [2]int
		for sq, p := range c.squares {
			if p == 0 {
				continue
			}
			isWhite := p >= 'A' && p <= 'Z'
			if isWhite {
				white++
			} else {
				black++
			}
			rank := sq / 8
			switch p {
			case 'K':
				whiteKings++
				kingSquares[0] = sq
			case 'k':
				blackKings++
				kingSquares[1] = sq
			case 'P':
				if rank < 1 || rank > 3 {
					t.Fatalf("seed %d: white pawn on rank %d", seed, rank+1)
				}
			case 'p':
				if rank < 4 || rank > 6 {
					t.Fatalf("seed %d: black pawn on rank %d", seed, rank+1)
				}
			}
			if isWhite && rank > 3 {
				t.Fatalf("seed %d: white piece %c outside own half (rank %d)", seed, p, rank+1)
			}
			if !isWhite && rank < 4 {
				t.Fatalf("seed %d: black piece %c outside own half (rank %d)", seed, p, rank+1)
			}
		}

		if white != 16 || black != 16 {
			t.Fatalf("seed %d: piece counts white=%d black=%d", seed, white, black)
		}
		if whiteKings != 1 || blackKings != 1 {
			t.Fatalf("seed %d: king counts %d/%d", seed, whiteKings, blackKings)
		}
		if chebyshev(kingSquares[0], kingSquares[1]) <= 1 {
			t.Fatalf("seed %d: kings adjacent", seed)
		}
		if !bishopsOnDifferentColors(c, true) || !bishopsOnDifferentColors(c, false) {
			t.Fatalf("seed %d: bishop shade predicate violated after construction", seed)
		}

		if _, err := rules.Load(c.fen(nchess.White)); err != nil {
			t.Fatalf("seed %d: emitted FEN does not load: %v", seed, err)
		}
	}
}

func TestPlacementRendering(t *testing.T) {
	c := &candidate{}
	c.put('K', 4)     // e1
	c.put('k', 60)    // e8
	c.put('P', 8+3)   // d2
	if got := c.fen(nchess.Black); got != "4k3/8/8/8/8/8/3P4/4K3 b - - 0 1" {
		t.Fatalf("fen = %q", got)
	}
}

func TestBishopShadePredicate(t *testing.T) {
	c := &candidate{}
	c.put('B', 0) // a1 dark
	c.put('B', 2) // c1 dark
	if bishopsOnDifferentColors(c, true) {
		t.Fatalf("two dark-squared bishops accepted")
	}
	c2 := &candidate{}
	c2.put('B', 0) // a1 dark
	c2.put('B', 1) // b1 light
	if !bishopsOnDifferentColors(c2, true) {
		t.Fatalf("opposite shades rejected")
	}
}

// scriptedEvaluator plays back a fixed sequence of evaluations and repeats
// the final one forever.
type scriptedEvaluator struct {
	results []engine.Result
	calls   int
}

func (s *scriptedEvaluator) Analyze(_ context.Context, _ engine.Request) (engine.Result, error) {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx], nil
}

func cpResult(cp int) engine.Result {
	v := cp
	return engine.Result{ScoreCP: &v, Backend: "scripted"}
}

func mateResult(n int) engine.Result {
	v := n
	return engine.Result{MateIn: &v, Backend: "scripted"}
}

func defaultOptions() Options {
	return Options{
		MaxEvaluationCP: 50,
		EngineDepth:     8,
		Checks:          AllChecks(),
	}
}

func sideToMove(t *testing.T, fen string) string {
	t.Helper()
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		t.Fatalf("malformed fen %q", fen)
	}
	return fields[1]
}

func TestGenerateAcceptsFairPosition(t *testing.T) {
	ev := &scriptedEvaluator{results: []engine.Result{cpResult(30)}}
	orch := NewOrchestrator(ev)
	orch.SetRandomSeed(7)

	result, err := orch.Generate(context.Background(), defaultOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !result.Verdict.IsFair || result.Verdict.ForcedMate != nil {
		t.Fatalf("verdict = %+v", result.Verdict)
	}
	if result.Verdict.Evaluation != 30 {
		t.Fatalf("evaluation = %d", result.Verdict.Evaluation)
	}
	// White is ahead, so the disadvantaged side (black) moves first.
	if got := sideToMove(t, result.FEN); got != "b" {
		t.Fatalf("side to move = %q, want b", got)
	}
	if result.Attempts < 1 {
		t.Fatalf("attempts = %d", result.Attempts)
	}

	snap, err := rules.Load(result.FEN)
	if err != nil {
		t.Fatalf("accepted FEN does not load: %v", err)
	}
	for _, color := range []nchess.Color{nchess.White, nchess.Black} {
		attacked, err := snap.KingAttacked(color)
		if err != nil {
			t.Fatalf("KingAttacked: %v", err)
		}
		if attacked {
			t.Fatalf("accepted position leaves %v king attacked", color)
		}
	}
}

func TestGenerateRejectsForcedMate(t *testing.T) {
	ev := &scriptedEvaluator{results: []engine.Result{mateResult(2), cpResult(-10)}}
	orch := NewOrchestrator(ev)
	orch.SetRandomSeed(11)

	result, err := orch.Generate(context.Background(), defaultOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ev.calls < 2 {
		t.Fatalf("evaluator calls = %d, want the mate candidate rejected", ev.calls)
	}
	if result.Verdict.ForcedMate != nil {
		t.Fatalf("accepted a forced mate")
	}
	if result.Verdict.Evaluation != -10 {
		t.Fatalf("evaluation = %d", result.Verdict.Evaluation)
	}
	// Equal-or-behind white keeps the move.
	if got := sideToMove(t, result.FEN); got != "w" {
		t.Fatalf("side to move = %q, want w", got)
	}
}

func TestGenerateRejectsOutOfRange(t *testing.T) {
	ev := &scriptedEvaluator{results: []engine.Result{cpResult(800), cpResult(800), cpResult(-45)}}
	orch := NewOrchestrator(ev)
	orch.SetRandomSeed(3)

	result, err := orch.Generate(context.Background(), defaultOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Verdict.Evaluation != -45 {
		t.Fatalf("evaluation = %d, want the in-range one", result.Verdict.Evaluation)
	}
}

func TestGenerateAttemptCeiling(t *testing.T) {
	ev := &scriptedEvaluator{results: []engine.Result{cpResult(5000)}}
	orch := NewOrchestrator(ev)
	orch.SetRandomSeed(5)

	opts := defaultOptions()
	opts.MaxAttempts = 5
	var lastAttempt int
	opts.Progress = func(attempt int) { lastAttempt = attempt }

	_, err := orch.Generate(context.Background(), opts)
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want ErrAttemptsExhausted", err)
	}
	if lastAttempt != 5 {
		t.Fatalf("last reported attempt = %d, want 5", lastAttempt)
	}
}

func TestGenerateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := NewOrchestrator(&scriptedEvaluator{results: []engine.Result{cpResult(0)}})
	if _, err := orch.Generate(ctx, defaultOptions()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

func TestGenerateDegradedEstimate(t *testing.T) {
	// Only the material estimator is available: generation still succeeds,
	// flagged degraded, and a full 32-piece board counts as dead equal.
	orch := NewOrchestrator(engine.NewChain(engine.NewMaterialBackend()))
	orch.SetRandomSeed(13)

	result, err := orch.Generate(context.Background(), defaultOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !result.Verdict.Degraded {
		t.Fatalf("material-backed verdict must be degraded")
	}
	if result.Verdict.Evaluation != 0 {
		t.Fatalf("evaluation = %d, want 0", result.Verdict.Evaluation)
	}
	if result.Backend != "material" {
		t.Fatalf("backend = %q", result.Backend)
	}
}

// fakeArchive records calls; never reports duplicates.
type fakeArchive struct {
	seen     map[string]bool
	recorded []AcceptedRecord
}

func (f *fakeArchive) SeenRecently(_ context.Context, placement string) (bool, error) {
	return f.seen[placement], nil
}

func (f *fakeArchive) Record(_ context.Context, rec AcceptedRecord) error {
	f.recorded = append(f.recorded, rec)
	return nil
}

func TestGenerateRecordsAccepted(t *testing.T) {
	ev := &scriptedEvaluator{results: []engine.Result{cpResult(20)}}
	orch := NewOrchestrator(ev)
	orch.SetRandomSeed(17)

	archive := &fakeArchive{seen: map[string]bool{}}
	orch.AttachArchive(archive)

	result, err := orch.Generate(context.Background(), defaultOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(archive.recorded) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(archive.recorded))
	}
	if archive.recorded[0].FEN != result.FEN {
		t.Fatalf("recorded FEN %q != result %q", archive.recorded[0].FEN, result.FEN)
	}
}
