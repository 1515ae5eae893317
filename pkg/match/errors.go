package match

import "errors"

// Reasons an action is ignored. None of these reach the client; they exist
// so callers can log and tests can tell the cases apart.
var (
	ErrEmptyPlayer    = errors.New("player id is empty")
	ErrMatchFull      = errors.New("match already has two players")
	ErrNotParticipant = errors.New("player is not part of this match")
	ErrNotPaired      = errors.New("match is waiting for an opponent")
	ErrNotActive      = errors.New("match is not active")
	ErrNotFinished    = errors.New("match is not finished")
	ErrNotYourTurn    = errors.New("not the player's turn")
	ErrNotYourPiece   = errors.New("no piece of the player's color on the source square")
	ErrIllegalMove    = errors.New("illegal move")
	ErrOfferPending   = errors.New("an offer of this kind is already pending")
	ErrNoOffer        = errors.New("no pending offer of this kind")
	ErrOwnOffer       = errors.New("player cannot answer their own offer")
	ErrRematchClosed  = errors.New("rematch window has closed")
	ErrStaleExpiry    = errors.New("offer already resolved")
)
