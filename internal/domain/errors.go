package domain

import "errors"

var (
	ErrNotYourTurn            = errors.New("not your turn")
	ErrGameNotActive          = errors.New("game is not active")
	ErrInsufficientPlayers    = errors.New("not enough players to start")
	ErrEmptySelection         = errors.New("no cards selected")
	ErrCardNotOwned           = errors.New("card not owned by player")
	ErrNothingToChallenge     = errors.New("no play to challenge")
	ErrCannotChallengeOwnPlay = errors.New("cannot challenge your own play")
	ErrChallengeNotAllowed    = errors.New("seat may not challenge this play")
	ErrRoomFull               = errors.New("room is full")
	ErrAlreadyInRoom          = errors.New("already in room")
	ErrNotInLobby             = errors.New("room is not in lobby")
	ErrNotHost                = errors.New("only the host can do that")
	ErrSeatNotFound           = errors.New("seat not found")
	ErrInvalidRank            = errors.New("invalid rank")
	ErrUnknownMoveKind        = errors.New("unsupported move kind")
	ErrDuplicateMove          = errors.New("move already applied")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotYourTurn, "not_your_turn"},
	{ErrGameNotActive, "game_not_active"},
	{ErrInsufficientPlayers, "insufficient_players"},
	{ErrEmptySelection, "empty_selection"},
	{ErrCardNotOwned, "card_not_owned"},
	{ErrNothingToChallenge, "nothing_to_challenge"},
	{ErrCannotChallengeOwnPlay, "cannot_challenge_own_play"},
	{ErrChallengeNotAllowed, "challenge_not_allowed"},
	{ErrRoomFull, "room_full"},
	{ErrAlreadyInRoom, "already_in_room"},
	{ErrNotInLobby, "not_in_lobby"},
	{ErrNotHost, "not_host"},
	{ErrSeatNotFound, "seat_not_found"},
	{ErrInvalidRank, "invalid_rank"},
	{ErrUnknownMoveKind, "unknown_move_kind"},
	{ErrDuplicateMove, "duplicate_move"},
}

// ErrorCode returns the stable wire code for a domain error, or "internal"
// for anything else.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

// IsRuleViolation reports whether err is one of the domain sentinels, i.e. a
// rejected request rather than a failure.
func IsRuleViolation(err error) bool {
	return ErrorCode(err) != "internal"
}
