package domain

import "strings"

// Rank is the face value printed on a card and named in a claim.
type Rank string

const (
	RankAce   Rank = "A"
	Rank2     Rank = "2"
	Rank3     Rank = "3"
	Rank4     Rank = "4"
	Rank5     Rank = "5"
	Rank6     Rank = "6"
	Rank7     Rank = "7"
	Rank8     Rank = "8"
	Rank9     Rank = "9"
	Rank10    Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Ranks lists every rank in deck order.
var Ranks = []Rank{
	RankAce, Rank2, Rank3, Rank4, Rank5, Rank6, Rank7,
	Rank8, Rank9, Rank10, RankJack, RankQueen, RankKing,
}

// Suit is one of the four French suits.
type Suit string

const (
	SuitSpades   Suit = "S"
	SuitHearts   Suit = "H"
	SuitDiamonds Suit = "D"
	SuitClubs    Suit = "C"
)

// Suits lists every suit in deck order.
var Suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// ParseRank normalizes a client supplied rank ("a", " 10", "q").
func ParseRank(s string) (Rank, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, r := range Ranks {
		if string(r) == s {
			return r, nil
		}
	}
	return "", ErrInvalidRank
}

// Valid reports whether r is one of the thirteen ranks.
func (r Rank) Valid() bool {
	for _, known := range Ranks {
		if r == known {
			return true
		}
	}
	return false
}

// Card is a single physical card of a room. A card is owned by exactly one
// seat or lies in the play zone, never both. Its id changes whenever its
// holder takes cards back from a challenge.
type Card struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	OwnerSeatID string `json:"owner_seat_id,omitempty"`
	Rank        Rank   `json:"rank"`
	Suit        Suit   `json:"suit"`
	FaceUp      bool   `json:"face_up"`
	InPlayZone  bool   `json:"in_play_zone"`
}
