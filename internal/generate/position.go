// Package generate builds legal, materially balanced random starting
// positions: a zoned randomized constructor, a chain of cheap fairness
// filters, and an orchestrator that confirms candidates against an engine
// evaluation before accepting them.
package generate

import (
	"math/rand"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// candidate is a board under construction. Squares are indexed rank*8+file
// with rank 0 = rank 1; bytes hold FEN piece letters, 0 means empty.
type candidate struct {
	squares [64]byte
}

func (c *candidate) put(piece byte, sq int) {
	c.squares[sq] = piece
}

func (c *candidate) empty(sq int) bool {
	return c.squares[sq] == 0
}

// placement renders the piece-placement field of a FEN record.
func (c *candidate) placement() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		gap := 0
		for file := 0; file < 8; file++ {
			p := c.squares[rank*8+file]
			if p == 0 {
				gap++
				continue
			}
			if gap > 0 {
				sb.WriteString(strconv.Itoa(gap))
				gap = 0
			}
			sb.WriteByte(p)
		}
		if gap > 0 {
			sb.WriteString(strconv.Itoa(gap))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// fen emits the full record with castling and en passant cleared, which is
// always the case for generated positions.
func (c *candidate) fen(turn nchess.Color) string {
	side := "w"
	if turn == nchess.Black {
		side = "b"
	}
	return c.placement() + " " + side + " - - 0 1"
}

// drawEmpty picks a random empty square in [lo, lo+span) with a bounded
// number of draws. ok is false when the bound is exhausted.
func drawEmpty(r *rand.Rand, c *candidate, lo, span int) (int, bool) {
	for i := 0; i < placementDrawBound; i++ {
		sq := lo + r.Intn(span)
		if c.empty(sq) {
			return sq, true
		}
	}
	return 0, false
}

func chebyshev(a, b int) int {
	df := a%8 - b%8
	if df < 0 {
		df = -df
	}
	dr := a/8 - b/8
	if dr < 0 {
		dr = -dr
	}
	if df > dr {
		return df
	}
	return dr
}

// squareShade is 0 for dark squares and 1 for light ones, from the
// (file + rank) parity.
func squareShade(sq int) int {
	return (sq%8 + sq/8) % 2
}
