// Package rules implements piece movement legality and check detection.
// Moves that leave the mover's own king attacked are not rejected here;
// that is punished after the fact through an illegal-move claim.
package rules

import (
	"github.com/vladiouz/on-chain-chess/internal/apperr"
	"github.com/vladiouz/on-chain-chess/internal/board"
)

// Illegal-move reasons.
const (
	ReasonOffBoard              = "off_board"
	ReasonNoMovement            = "no_movement"
	ReasonEmptySource           = "empty_source"
	ReasonNotYourPiece          = "not_your_piece"
	ReasonOwnPieceAtDestination = "own_piece_at_destination"
	ReasonKingStep              = "king_step"
	ReasonQueenGeometry         = "queen_geometry"
	ReasonRookGeometry          = "rook_geometry"
	ReasonBishopGeometry        = "bishop_geometry"
	ReasonKnightGeometry        = "knight_geometry"
	ReasonPawnMove              = "pawn_move"
	ReasonPathBlocked           = "path_blocked"
)

// Reasons lists every reason Validate can report.
func Reasons() []string {
	return []string{
		ReasonOffBoard, ReasonNoMovement, ReasonEmptySource, ReasonNotYourPiece,
		ReasonOwnPieceAtDestination, ReasonKingStep, ReasonQueenGeometry,
		ReasonRookGeometry, ReasonBishopGeometry, ReasonKnightGeometry,
		ReasonPawnMove, ReasonPathBlocked,
	}
}

// Validate checks that side may move the piece on from to to.
func Validate(b board.Board, side board.Color, from, to board.Square) error {
	if !from.OnBoard() || !to.OnBoard() {
		return apperr.IllegalMove(ReasonOffBoard)
	}
	if from == to {
		return apperr.IllegalMove(ReasonNoMovement)
	}
	mover := b.At(from)
	if mover.IsEmpty() {
		return apperr.IllegalMove(ReasonEmptySource)
	}
	if mover.Color != side {
		return apperr.IllegalMove(ReasonNotYourPiece)
	}
	if dst := b.At(to); !dst.IsEmpty() && dst.Color == side {
		return apperr.IllegalMove(ReasonOwnPieceAtDestination)
	}

	df, dr := to.File-from.File, to.Rank-from.Rank
	switch mover.Type {
	case board.King:
		if abs(df) > 1 || abs(dr) > 1 {
			return apperr.IllegalMove(ReasonKingStep)
		}
		return nil
	case board.Queen:
		if df == 0 || dr == 0 || abs(df) == abs(dr) {
			return clearPath(b, from, to)
		}
		return apperr.IllegalMove(ReasonQueenGeometry)
	case board.Rook:
		if df != 0 && dr != 0 {
			return apperr.IllegalMove(ReasonRookGeometry)
		}
		return clearPath(b, from, to)
	case board.Bishop:
		if abs(df) != abs(dr) {
			return apperr.IllegalMove(ReasonBishopGeometry)
		}
		return clearPath(b, from, to)
	case board.Knight:
		if df == 0 || dr == 0 || abs(df)+abs(dr) != 3 {
			return apperr.IllegalMove(ReasonKnightGeometry)
		}
		return nil
	case board.Pawn:
		return validatePawn(b, side, from, to, df, dr)
	}
	return apperr.IllegalMove(ReasonEmptySource)
}

func validatePawn(b board.Board, side board.Color, from, to board.Square, df, dr int) error {
	fwd := board.Forward(side)
	dst := b.At(to)
	switch {
	case df == 0 && dr == fwd && dst.IsEmpty():
		return nil
	case abs(df) == 1 && dr == fwd && !dst.IsEmpty():
		// own pieces were rejected above, so this is a capture
		return nil
	case df == 0 && dr == 2*fwd && from.Rank == board.HomeRank(side) && dst.IsEmpty():
		mid, _ := from.Offset(0, fwd)
		if b.At(mid).IsEmpty() {
			return nil
		}
		return apperr.IllegalMove(ReasonPathBlocked)
	}
	return apperr.IllegalMove(ReasonPawnMove)
}

// clearPath requires every square strictly between from and to to be empty.
// from and to share a file, a rank or a diagonal.
func clearPath(b board.Board, from, to board.Square) error {
	sf, sr := sign(to.File-from.File), sign(to.Rank-from.Rank)
	cur, ok := from.Offset(sf, sr)
	for ok && cur != to {
		if !b.At(cur).IsEmpty() {
			return apperr.IllegalMove(ReasonPathBlocked)
		}
		cur, ok = cur.Offset(sf, sr)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
