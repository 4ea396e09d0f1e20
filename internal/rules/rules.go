// Package rules adapts the chess rules library to the narrow surface the
// generation pipeline consumes: FEN load/emit, legal-move counting, and
// check/stalemate detection. Move legality always comes from the library;
// only the attack scan backing KingAttacked lives here, because the library
// keeps its own check state unexported.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Snapshot is an immutable view of one board state. Every query works on the
// loaded position; nothing here mutates shared state across calls.
type Snapshot struct {
	game *nchess.Game
}

func Load(fen string) (*Snapshot, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("load fen: %w", err)
	}
	return &Snapshot{game: nchess.NewGame(opt)}, nil
}

func (s *Snapshot) FEN() string {
	return s.game.FEN()
}

func (s *Snapshot) Turn() nchess.Color {
	return s.game.Position().Turn()
}

// LegalMoveCount returns the number of legal moves for the side to move.
func (s *Snapshot) LegalMoveCount() int {
	return len(s.game.ValidMoves())
}

func (s *Snapshot) IsStalemate() bool {
	return s.game.Position().Status() == nchess.Stalemate
}

func (s *Snapshot) IsCheckmate() bool {
	return s.game.Position().Status() == nchess.Checkmate
}

// KingAttacked reports whether color's king is under attack by any opposing
// piece. The library keeps its check state unexported, so the adapter scans
// attack patterns against the king's square directly; this stays exact even
// for broken both-kings-attacked candidates the generator must reject.
func (s *Snapshot) KingAttacked(color nchess.Color) (bool, error) {
	kingSq, ok := s.kingSquare(color)
	if !ok {
		return false, fmt.Errorf("no %v king on board", color)
	}
	return squareAttacked(s.game.Position().Board(), kingSq, Opponent(color)), nil
}

var (
	knightDeltas = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	diagDeltas   = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	orthoDeltas  = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

func squareAttacked(board *nchess.Board, target nchess.Square, by nchess.Color) bool {
	tf, tr := int(target.File()), int(target.Rank())

	at := func(f, r int) nchess.Piece {
		if f < 0 || f > 7 || r < 0 || r > 7 {
			return nchess.NoPiece
		}
		return board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
	}
	attacker := func(p nchess.Piece, types ...nchess.PieceType) bool {
		if p == nchess.NoPiece || p.Color() != by {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}

	// Pawns capture toward the enemy side.
	pawnRank := tr + 1
	if by == nchess.White {
		pawnRank = tr - 1
	}
	if attacker(at(tf-1, pawnRank), nchess.Pawn) || attacker(at(tf+1, pawnRank), nchess.Pawn) {
		return true
	}

	for _, d := range knightDeltas {
		if attacker(at(tf+d[0], tr+d[1]), nchess.Knight) {
			return true
		}
	}

	for df := -1; df <= 1; df++ {
		for dr := -1; dr <= 1; dr++ {
			if df == 0 && dr == 0 {
				continue
			}
			if attacker(at(tf+df, tr+dr), nchess.King) {
				return true
			}
		}
	}

	for _, d := range diagDeltas {
		for f, r := tf+d[0], tr+d[1]; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+d[0], r+d[1] {
			p := at(f, r)
			if p == nchess.NoPiece {
				continue
			}
			if attacker(p, nchess.Bishop, nchess.Queen) {
				return true
			}
			break
		}
	}
	for _, d := range orthoDeltas {
		for f, r := tf+d[0], tr+d[1]; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+d[0], r+d[1] {
			p := at(f, r)
			if p == nchess.NoPiece {
				continue
			}
			if attacker(p, nchess.Rook, nchess.Queen) {
				return true
			}
			break
		}
	}
	return false
}

func (s *Snapshot) kingSquare(color nchess.Color) (nchess.Square, bool) {
	board := s.game.Position().Board()
	for r := nchess.Rank1; r <= nchess.Rank8; r++ {
		for f := nchess.FileA; f <= nchess.FileH; f++ {
			sq := nchess.NewSquare(f, r)
			piece := board.Piece(sq)
			if piece == nchess.NoPiece {
				continue
			}
			if piece.Type() == nchess.King && piece.Color() == color {
				return sq, true
			}
		}
	}
	return 0, false
}

func Opponent(c nchess.Color) nchess.Color {
	if c == nchess.White {
		return nchess.Black
	}
	return nchess.White
}

// WithSideToMove rewrites the active-color field of a FEN record. The move
// counters and castling/en-passant fields are left untouched.
func WithSideToMove(fen string, turn nchess.Color) string {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return fen
	}
	if turn == nchess.White {
		fields[1] = "w"
	} else {
		fields[1] = "b"
	}
	return strings.Join(fields, " ")
}
