package app

import "bluff/internal/domain"

// EventKind identifies emitted events for transport dispatch.
type EventKind string

const (
	EventSeatJoined        EventKind = "seat_joined"
	EventSeatLeft          EventKind = "seat_left"
	EventGameStarted       EventKind = "game_started"
	EventHandDealt         EventKind = "hand_dealt"
	EventCardsPlayed       EventKind = "cards_played"
	EventChallengeResolved EventKind = "challenge_resolved"
	EventGameEnded         EventKind = "game_ended"
	EventStateSync         EventKind = "state_sync"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type SeatJoinedPayload struct {
	Seat domain.SeatView `json:"seat"`
}

type SeatLeftPayload struct {
	UserID        string `json:"user_id"`
	SeatID        string `json:"seat_id"`
	Forfeit       bool   `json:"forfeit"`
	NewHostUserID string `json:"new_host_user_id,omitempty"`
	NextSeatID    string `json:"next_seat_id,omitempty"`
}

type GameStartedPayload struct {
	FirstSeatID string            `json:"first_seat_id"`
	Seats       []domain.SeatView `json:"seats"`
}

type HandDealtPayload struct {
	SeatID string            `json:"seat_id"`
	Hand   []domain.CardView `json:"hand"`
}

type CardsPlayedPayload struct {
	MoveID      string      `json:"move_id"`
	SeatID      string      `json:"seat_id"`
	CardIDs     []string    `json:"card_ids"`
	ClaimedRank domain.Rank `json:"claimed_rank"`
	NextSeatID  string      `json:"next_seat_id,omitempty"`
}

type ChallengeResolvedPayload struct {
	MoveID           string                `json:"move_id"`
	ChallengerSeatID string                `json:"challenger_seat_id"`
	AuthorSeatID     string                `json:"author_seat_id"`
	ClaimedRank      domain.Rank           `json:"claimed_rank"`
	Truthful         bool                  `json:"truthful"`
	Revealed         []domain.RevealedCard `json:"revealed"`
	LoserSeatID      string                `json:"loser_seat_id"`
	NextSeatID       string                `json:"next_seat_id,omitempty"`
}

type GameEndedPayload struct {
	WinnerSeatID string `json:"winner_seat_id"`
	WinnerUserID string `json:"winner_user_id"`
}

// StateSyncPayload carries a recipient's own redacted view.
type StateSyncPayload struct {
	View domain.GameView `json:"view"`
}
