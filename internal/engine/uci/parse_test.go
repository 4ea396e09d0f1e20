package uci

import "testing"

func TestAccumulatorScoreAndBestmove(t *testing.T) {
	acc := newAccumulator()

	if done := acc.consume("info depth 12 seldepth 18 multipv 1 score cp 34 nodes 90210 pv e2e4 e7e5 g1f3"); done {
		t.Fatalf("info line must not terminate the search")
	}
	if done := acc.consume("bestmove e2e4 ponder e7e5"); !done {
		t.Fatalf("bestmove line should terminate the search")
	}

	res := acc.result()
	if res.ScoreCP == nil || *res.ScoreCP != 34 {
		t.Fatalf("score = %v, want 34", res.ScoreCP)
	}
	if res.MateIn != nil {
		t.Fatalf("unexpected mate: %v", *res.MateIn)
	}
	if res.BestMove != "e2e4" {
		t.Fatalf("bestmove = %q", res.BestMove)
	}
	if res.Depth != 12 {
		t.Fatalf("depth = %d, want 12", res.Depth)
	}
	if len(res.Lines) != 1 || len(res.Lines[0]) != 3 || res.Lines[0][0] != "e2e4" {
		t.Fatalf("lines = %v", res.Lines)
	}
}

func TestAccumulatorIgnoresGarbage(t *testing.T) {
	acc := newAccumulator()

	garbage := []string{
		"",
		"   ",
		"Stockfish 16 by the Stockfish developers",
		"info string NNUE evaluation using nn.nnue",
		"info depth notanumber score cp xyz",
		"bestmove",
		"bestmove (none)",
		"bestmove zz99aa",
		"totally unrelated line",
	}
	for _, line := range garbage {
		if done := acc.consume(line); done {
			t.Fatalf("line %q must not resolve the search", line)
		}
	}

	res := acc.result()
	if res.ScoreCP != nil || res.MateIn != nil || res.BestMove != "" {
		t.Fatalf("garbage should accumulate nothing: %+v", res)
	}
}

func TestAccumulatorMateSupersedesScore(t *testing.T) {
	acc := newAccumulator()
	acc.consume("info depth 6 score cp 250 pv d2d4")
	acc.consume("info depth 9 score mate -3 pv h7h8q")
	acc.consume("bestmove h7h8q")

	res := acc.result()
	if res.MateIn == nil || *res.MateIn != -3 {
		t.Fatalf("mate = %v, want -3", res.MateIn)
	}
	// The stale cp score stays recorded; downstream logic prefers mate.
	if res.ScoreCP == nil || *res.ScoreCP != 250 {
		t.Fatalf("score = %v, want 250 retained", res.ScoreCP)
	}
}

func TestAccumulatorMultiPVOrdering(t *testing.T) {
	acc := newAccumulator()
	acc.consume("info depth 10 multipv 2 score cp -12 pv d2d4 d7d5")
	acc.consume("info depth 10 multipv 1 score cp 20 pv e2e4 c7c5")
	acc.consume("info depth 10 multipv 3 score cp -40 pv g1f3")
	acc.consume("bestmove e2e4")

	res := acc.result()
	if len(res.Lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(res.Lines))
	}
	if res.Lines[0][0] != "e2e4" || res.Lines[1][0] != "d2d4" || res.Lines[2][0] != "g1f3" {
		t.Fatalf("lines out of multipv order: %v", res.Lines)
	}
}

func TestAccumulatorPromotionBestmove(t *testing.T) {
	acc := newAccumulator()
	if done := acc.consume("bestmove a7a8q"); !done {
		t.Fatalf("promotion bestmove should resolve")
	}
	if acc.result().BestMove != "a7a8q" {
		t.Fatalf("bestmove = %q", acc.result().BestMove)
	}
}

func TestProfileValidation(t *testing.T) {
	good := Profile{HashMB: 64, MultiPV: 1, SkillLevel: 20}
	if err := good.validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}

	bad := []Profile{
		{HashMB: 64, MultiPV: 1, SkillLevel: 21},
		{HashMB: 64, MultiPV: 1, SkillLevel: -1},
		{HashMB: 0, MultiPV: 1},
		{HashMB: 64, MultiPV: 0},
		{HashMB: 64, MultiPV: 1, LimitStrength: true},
	}
	for i, p := range bad {
		if err := p.validate(); err == nil {
			t.Fatalf("case %d: invalid profile accepted: %+v", i, p)
		}
	}
}
