// Package rules is the boundary to the chess rules engine. Match sessions
// only ever hold a Position handle and pass it back in.
package rules

import "github.com/tecu23/match-server/internal/color"

// Promotion is the piece a pawn becomes when it reaches the last rank
type Promotion string

// Promotion pieces in UCI notation
const (
	Queen  Promotion = "q"
	Rook   Promotion = "r"
	Bishop Promotion = "b"
	Knight Promotion = "n"
)

// Position is an opaque board position owned by the engine
type Position interface {
	FEN() string
}

// MoveResult is what the engine reports for a proposed move
type MoveResult struct {
	Legal     bool
	Position  Position
	Checkmate bool
	Stalemate bool
	Draw      bool
}

// Terminal reports whether the resulting position ends the game
func (r MoveResult) Terminal() bool {
	return r.Checkmate || r.Stalemate || r.Draw
}

// Engine knows chess legality and terminal conditions
type Engine interface {
	NewPosition() Position
	LegalMove(pos Position, from, to string, promotion Promotion) MoveResult
	PieceColorAt(pos Position, square string) (color.Color, bool)
}
