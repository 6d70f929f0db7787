package brain

import (
	"bluff/internal/domain"
)

// CardStatus represents what the bot knows about where a specific card is.
type CardStatus int

const (
	StatusUnknown  CardStatus = iota // We don't know who has it
	StatusMine                       // In the bot's hand
	StatusTable                      // Face-down in the play zone
	StatusOpponent                   // Seen in a reveal and absorbed by an opponent
)

// CardFact is what the bot remembers about one card id. Rank and Suit are
// empty until the bot has seen the face.
type CardFact struct {
	Status CardStatus
	Rank   domain.Rank
	Suit   domain.Suit
	Holder string
}

// GameMemory stores the bot's private "view" of the game, rebuilt
// incrementally from the move log it is shown.
type GameMemory struct {
	// SeatID is the seat the memory belongs to.
	SeatID string
	// Cards maps card ids to what is known about them.
	Cards map[string]CardFact
	// Opponents tracks behavioral profiles by seat id.
	Opponents map[string]*OpponentProfile

	authors map[string]string
	lastSeq int64
	gameID  string
}

// NewMemory initializes a fresh memory state.
func NewMemory() *GameMemory {
	m := &GameMemory{}
	m.Reset()
	return m
}

// Reset clears the memory for a new game.
func (m *GameMemory) Reset() {
	m.Cards = make(map[string]CardFact)
	m.Opponents = make(map[string]*OpponentProfile)
	m.authors = make(map[string]string)
	m.lastSeq = 0
	m.gameID = ""
}

// Observe folds a fresh view into memory: new log entries first, then the
// bot's own hand.
func (m *GameMemory) Observe(view domain.GameView) {
	if view.ViewerSeatID == "" {
		return
	}
	for _, mv := range view.Moves {
		if mv.Kind == domain.MoveGameStart && mv.ID != m.gameID {
			m.Reset()
			m.gameID = mv.ID
		}
	}
	m.SeatID = view.ViewerSeatID

	for _, mv := range view.Moves {
		if mv.Seq <= m.lastSeq {
			continue
		}
		switch mv.Kind {
		case domain.MovePlay:
			m.recordPlay(mv)
		case domain.MoveChallenge:
			m.recordChallenge(mv)
		}
		m.lastSeq = mv.Seq
	}
	m.UpdateHand(view.Hand)
}

// UpdateHand marks the current hand as Mine. Cards that were Mine and left
// the hand are on the table.
func (m *GameMemory) UpdateHand(hand []domain.CardView) {
	held := make(map[string]bool, len(hand))
	for _, c := range hand {
		held[c.ID] = true
		m.forget(c.Rank, c.Suit, c.ID)
		m.Cards[c.ID] = CardFact{Status: StatusMine, Rank: c.Rank, Suit: c.Suit, Holder: m.SeatID}
	}
	for id, fact := range m.Cards {
		if fact.Status == StatusMine && !held[id] {
			fact.Status = StatusTable
			fact.Holder = ""
			m.Cards[id] = fact
		}
	}
}

func (m *GameMemory) recordPlay(mv *domain.Move) {
	m.authors[mv.ID] = mv.ActorSeatID
	for _, id := range mv.CardIDs {
		fact := m.Cards[id]
		fact.Status = StatusTable
		fact.Holder = ""
		m.Cards[id] = fact
	}
	if mv.ActorSeatID != m.SeatID {
		m.Profile(mv.ActorSeatID).Plays++
	}
}

func (m *GameMemory) recordChallenge(mv *domain.Move) {
	author := m.authors[mv.TargetMoveID]
	loser := mv.ActorSeatID
	if mv.Result == domain.ResultFail {
		loser = author
	}

	status := StatusOpponent
	if loser == m.SeatID {
		status = StatusMine
	}
	for _, c := range mv.Revealed {
		m.forget(c.Rank, c.Suit, c.ID)
		m.Cards[c.ID] = CardFact{Status: status, Rank: c.Rank, Suit: c.Suit, Holder: loser}
	}

	if author != "" && author != m.SeatID {
		if mv.Result == domain.ResultFail {
			m.Profile(author).CaughtBluffing++
		} else {
			m.Profile(author).ProvenHonest++
		}
	}
	if mv.ActorSeatID != m.SeatID {
		if mv.Result == domain.ResultPass {
			m.Profile(mv.ActorSeatID).FailedChallenges++
		} else {
			m.Profile(mv.ActorSeatID).SuccessfulChallenges++
		}
	}
}

// forget drops facts about a face recorded under any id but keep. Cards taken
// back after a challenge get new ids, so one card can be seen under several.
func (m *GameMemory) forget(rank domain.Rank, suit domain.Suit, keep string) {
	if rank == "" || suit == "" {
		return
	}
	for id, fact := range m.Cards {
		if id != keep && fact.Rank == rank && fact.Suit == suit {
			delete(m.Cards, id)
		}
	}
}

// Profile returns the profile for seatID, creating it on first use.
func (m *GameMemory) Profile(seatID string) *OpponentProfile {
	p, ok := m.Opponents[seatID]
	if !ok {
		p = NewOpponentProfile(seatID)
		m.Opponents[seatID] = p
	}
	return p
}

// Author returns the seat that made the play with the given move id.
func (m *GameMemory) Author(moveID string) string {
	return m.authors[moveID]
}

// Accounted counts cards of rank whose whereabouts rule them out of a play by
// author: ours, known to be on the table, or known in another seat's hand.
// Cards listed in skip are not counted.
func (m *GameMemory) Accounted(rank domain.Rank, author string, skip []string) int {
	skipped := make(map[string]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}
	n := 0
	for id, fact := range m.Cards {
		if fact.Rank != rank || skipped[id] {
			continue
		}
		switch fact.Status {
		case StatusMine, StatusTable:
			n++
		case StatusOpponent:
			if fact.Holder != author {
				n++
			}
		}
	}
	return n
}

// KnownRank returns the rank of a card the bot has seen.
func (m *GameMemory) KnownRank(cardID string) (domain.Rank, bool) {
	fact, ok := m.Cards[cardID]
	if !ok || fact.Rank == "" {
		return "", false
	}
	return fact.Rank, true
}
