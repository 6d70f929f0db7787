package domain

import "time"

// MoveKind identifies an entry of the move log.
type MoveKind string

const (
	MovePlay      MoveKind = "play"
	MoveChallenge MoveKind = "challenge"
	MovePass      MoveKind = "pass"
	MoveGameStart MoveKind = "game_start"
	MoveGameEnd   MoveKind = "game_end"
	MoveForfeit   MoveKind = "forfeit"
)

// MoveResult is the outcome recorded on challenge and game end entries.
type MoveResult string

const (
	// ResultPass marks a challenged claim that was true.
	ResultPass MoveResult = "pass"
	// ResultFail marks a challenged claim that was a bluff.
	ResultFail MoveResult = "fail"
	// ResultWin marks the winner's game end entry.
	ResultWin MoveResult = "win"
)

// RevealedCard is a disputed card as shown when a challenge resolved.
type RevealedCard struct {
	ID   string `json:"id"`
	Rank Rank   `json:"rank"`
	Suit Suit   `json:"suit"`
}

// Move is one append-only entry of a room's log. Seq is unique and
// increasing, so it orders the log the same way (Timestamp, ID) does.
type Move struct {
	ID           string         `json:"id"`
	RoomID       string         `json:"room_id"`
	Seq          int64          `json:"seq"`
	Kind         MoveKind       `json:"kind"`
	ActorSeatID  string         `json:"actor_seat_id,omitempty"`
	CardIDs      []string       `json:"card_ids,omitempty"`
	ClaimedRank  Rank           `json:"claimed_rank,omitempty"`
	Result       MoveResult     `json:"result,omitempty"`
	TargetMoveID string         `json:"target_move_id,omitempty"`
	Revealed     []RevealedCard `json:"revealed,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// MoveRequest is a seat's request to act. ID is optional; a client that
// supplies one gets idempotent retries.
type MoveRequest struct {
	ID          string
	Kind        MoveKind
	SeatID      string
	CardIDs     []string
	ClaimedRank Rank
}

// Outcome describes what an accepted request changed.
type Outcome struct {
	// Move is the log entry appended for the request, if any.
	Move *Move
	// Seat is the seat that acted or left.
	Seat *Seat
	// Loser absorbed the disputed cards of a challenge.
	Loser *Seat
	// NextSeat holds the turn afterwards; nil once the game is over.
	NextSeat *Seat
	// Winner and End are set when the request ended the game.
	Winner *Seat
	End    *Move
	// Removed is set when a lobby seat was dropped.
	Removed       bool
	NewHostUserID string
}
