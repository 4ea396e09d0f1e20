package generate

import (
	"errors"
	"math/rand"
)

// placementDrawBound caps random draws per piece before the whole candidate
// is abandoned.
const placementDrawBound = 100

var (
	// ErrPlacementFailure aborts the current candidate; the orchestrator
	// retries with a fresh one.
	ErrPlacementFailure = errors.New("generate: no empty square within draw bound")

	errBishopsSameColor = errors.New("generate: bishops share a square color")
)

// Placement zones, in square indexes (rank*8+file, rank 0 = rank 1).
// Kings and pieces stay in their own half; pawns keep off the back ranks so
// every pawn has moves and no pawn sits on a promotion square.
const (
	whiteHalfLo, whiteHalfSpan = 0, 32
	blackHalfLo, blackHalfSpan = 32, 32
	whitePawnLo, whitePawnSpan = 8, 24  // ranks 2-4
	blackPawnLo, blackPawnSpan = 32, 24 // ranks 5-7
)

// One side's non-king material: standard 8 pawns plus queen, rooks,
// bishops, knights.
var sidePieces = []byte{'P', 'P', 'P', 'P', 'P', 'P', 'P', 'P', 'Q', 'R', 'R', 'B', 'B', 'N', 'N'}

// construct assembles one full 32-piece candidate. Kings are placed first
// and redrawn while Chebyshev-adjacent; every other piece is placed by
// bounded first-fit random draws. Per-side local checks run as soon as a
// side is complete so a doomed candidate fails before the opponent is even
// built.
func construct(r *rand.Rand, checks Checks) (*candidate, error) {
	c := &candidate{}

	for {
		whiteKing := whiteHalfLo + r.Intn(whiteHalfSpan)
		blackKing := blackHalfLo + r.Intn(blackHalfSpan)
		if chebyshev(whiteKing, blackKing) > 1 {
			c.put('K', whiteKing)
			c.put('k', blackKing)
			break
		}
	}

	if err := placeSide(r, c, true, checks); err != nil {
		return nil, err
	}
	if err := placeSide(r, c, false, checks); err != nil {
		return nil, err
	}
	return c, nil
}

func placeSide(r *rand.Rand, c *candidate, white bool, checks Checks) error {
	pawnLo, pawnSpan := whitePawnLo, whitePawnSpan
	halfLo, halfSpan := whiteHalfLo, whiteHalfSpan
	if !white {
		pawnLo, pawnSpan = blackPawnLo, blackPawnSpan
		halfLo, halfSpan = blackHalfLo, blackHalfSpan
	}

	for _, piece := range sidePieces {
		lo, span := halfLo, halfSpan
		if piece == 'P' {
			lo, span = pawnLo, pawnSpan
		}
		if !white {
			piece |= 0x20
		}
		sq, ok := drawEmpty(r, c, lo, span)
		if !ok {
			return ErrPlacementFailure
		}
		c.put(piece, sq)
	}

	if checks.BishopsOnDifferentColors && !bishopsOnDifferentColors(c, white) {
		return errBishopsSameColor
	}
	return nil
}
