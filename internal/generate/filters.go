package generate

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/fairchess/internal/rules"
)

// Checks toggles the fairness predicates individually. A failing predicate
// always means "reject the candidate and build a new one", never repair.
type Checks struct {
	KingsNotInCheck          bool
	BishopsOnDifferentColors bool
	NoStalemate              bool
	EvaluationWithinRange    bool
}

// AllChecks enables every predicate.
func AllChecks() Checks {
	return Checks{
		KingsNotInCheck:          true,
		BishopsOnDifferentColors: true,
		NoStalemate:              true,
		EvaluationWithinRange:    true,
	}
}

// RejectReason tags why a candidate was thrown away.
type RejectReason string

const (
	RejectPlacement        RejectReason = "placement-failure"
	RejectBishopsSameColor RejectReason = "bishops-same-color"
	RejectKingInCheck      RejectReason = "king-in-check"
	RejectStalemate        RejectReason = "stalemate"
	RejectInvalidFEN       RejectReason = "invalid-fen"
	RejectForcedMate       RejectReason = "forced-mate"
	RejectEvalOutOfRange   RejectReason = "eval-out-of-range"
	RejectDuplicate        RejectReason = "recent-duplicate"
)

// bishopsOnDifferentColors verifies that a side keeping both bishops has
// them on opposite square shades.
func bishopsOnDifferentColors(c *candidate, white bool) bool {
	bishop := byte('B')
	if !white {
		bishop = 'b'
	}
	shades := make([]int, 0, 2)
	for sq, p := range c.squares {
		if p == bishop {
			shades = append(shades, squareShade(sq))
		}
	}
	if len(shades) != 2 {
		return true
	}
	return shades[0] != shades[1]
}

// checkLocalPredicates runs the rules-engine-backed predicates on a loaded
// candidate: neither king attackable with the opponent to move, and a legal
// move available to both colors.
func checkLocalPredicates(snap *rules.Snapshot, checks Checks) (RejectReason, error) {
	if checks.KingsNotInCheck {
		for _, color := range []nchess.Color{nchess.White, nchess.Black} {
			attacked, err := snap.KingAttacked(color)
			if err != nil {
				return RejectInvalidFEN, err
			}
			if attacked {
				return RejectKingInCheck, nil
			}
		}
	}

	if checks.NoStalemate {
		for _, color := range []nchess.Color{nchess.White, nchess.Black} {
			sideToMove, err := rules.Load(rules.WithSideToMove(snap.FEN(), color))
			if err != nil {
				return RejectInvalidFEN, err
			}
			if sideToMove.LegalMoveCount() == 0 {
				return RejectStalemate, nil
			}
		}
	}

	return "", nil
}
