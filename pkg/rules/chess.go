package rules

import (
	"fmt"

	"github.com/corentings/chess/v2"

	"github.com/tecu23/match-server/internal/color"
)

// Chess implements Engine on top of github.com/corentings/chess
type Chess struct{}

// NewChess returns the standard chess rules engine
func NewChess() *Chess {
	return &Chess{}
}

type gamePosition struct {
	game *chess.Game
}

func (p *gamePosition) FEN() string {
	return p.game.FEN()
}

// NewPosition returns the standard starting position
func (c *Chess) NewPosition() Position {
	return &gamePosition{game: chess.NewGame()}
}

// PositionFromFEN returns the position described by fen
func (c *Chess) PositionFromFEN(fen string) (Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}

	return &gamePosition{game: chess.NewGame(opt)}, nil
}

// LegalMove validates from->to against pos. The given position is left
// untouched; a legal move yields a fresh position.
func (c *Chess) LegalMove(pos Position, from, to string, promotion Promotion) MoveResult {
	current, ok := pos.(*gamePosition)
	if !ok {
		return MoveResult{}
	}

	fromSq, ok := parseSquare(from)
	if !ok {
		return MoveResult{}
	}
	if _, ok := parseSquare(to); !ok {
		return MoveResult{}
	}

	next := current.game.Clone()
	board := next.Position().Board()

	notation := from + to
	piece := board.Piece(fromSq)
	if piece.Type() == chess.Pawn && (to[1] == '1' || to[1] == '8') {
		if promotion == "" {
			promotion = Queen
		}
		notation += string(promotion)
	}

	move, err := chess.UCINotation{}.Decode(next.Position(), notation)
	if err != nil {
		return MoveResult{}
	}
	if err := next.PushMove(chess.AlgebraicNotation{}.Encode(next.Position(), move), nil); err != nil {
		return MoveResult{}
	}

	method := next.Method()
	return MoveResult{
		Legal:     true,
		Position:  &gamePosition{game: next},
		Checkmate: method == chess.Checkmate,
		Stalemate: method == chess.Stalemate,
		Draw: next.Outcome() == chess.Draw &&
			method != chess.Stalemate,
	}
}

// PieceColorAt returns the color of the piece standing on square
func (c *Chess) PieceColorAt(pos Position, square string) (color.Color, bool) {
	current, ok := pos.(*gamePosition)
	if !ok {
		return "", false
	}

	sq, ok := parseSquare(square)
	if !ok {
		return "", false
	}

	switch current.game.Position().Board().Piece(sq).Color() {
	case chess.White:
		return color.White, true
	case chess.Black:
		return color.Black, true
	default:
		return "", false
	}
}

// parseSquare reads a square in algebraic form such as "e4"
func parseSquare(s string) (chess.Square, bool) {
	if len(s) != 2 {
		return chess.NoSquare, false
	}

	file, rank := s[0], s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return chess.NoSquare, false
	}

	return chess.NewSquare(chess.File(file-'a'), chess.Rank(rank-'1')), true
}
