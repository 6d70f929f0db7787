package domain

import "sort"

// Phase is the resolver state of an active room.
type Phase string

const (
	PhaseAwaitingPlay      Phase = "awaiting_play"
	PhaseAwaitingChallenge Phase = "awaiting_challenge"
)

// Phase derives the resolver state from the pending play marker.
func (r *Room) Phase() Phase {
	if r.PendingPlayID != "" {
		return PhaseAwaitingChallenge
	}
	return PhaseAwaitingPlay
}

// MoveResolver validates and applies plays and challenges on an active room.
// Every check runs before the first write.
type MoveResolver struct {
	room  *Room
	turns *TurnScheduler
}

// NewMoveResolver binds a resolver to room.
func NewMoveResolver(room *Room) *MoveResolver {
	return &MoveResolver{room: room, turns: NewTurnScheduler(room.Seats)}
}

// SubmitPlay moves cardIDs from the actor's hand into the play zone face-down
// under claim. The claim is not checked; that is what challenges are for.
// A play supersedes, and so settles, any play still pending.
func (m *MoveResolver) SubmitPlay(moveID, seatID string, cardIDs []string, claim Rank) (*Outcome, error) {
	r := m.room
	seat, ok := r.SeatByID(seatID)
	if !ok {
		return nil, ErrSeatNotFound
	}
	if cur := m.turns.Current(); cur == nil || cur.ID != seatID {
		return nil, ErrNotYourTurn
	}
	if len(cardIDs) == 0 {
		return nil, ErrEmptySelection
	}
	if !claim.Valid() {
		return nil, ErrInvalidRank
	}
	cards := make([]*Card, 0, len(cardIDs))
	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		c := r.card(id)
		if c == nil || seen[id] || c.InPlayZone || c.OwnerSeatID != seatID {
			return nil, ErrCardNotOwned
		}
		seen[id] = true
		cards = append(cards, c)
	}

	for _, c := range cards {
		c.InPlayZone = true
		c.FaceUp = false
		c.OwnerSeatID = ""
	}
	play := r.appendMove(&Move{
		ID:          moveID,
		Kind:        MovePlay,
		ActorSeatID: seatID,
		CardIDs:     append([]string(nil), cardIDs...),
		ClaimedRank: claim,
	})
	r.PendingPlayID = play.ID

	out := &Outcome{Move: play, Seat: seat, NextSeat: m.turns.Advance()}
	if w := r.checkWinner(); w != nil {
		r.finish(m.turns, w, out)
	}
	return out, nil
}

// SubmitChallenge disputes the pending play. The disputed cards are revealed;
// if every one matches the claim the challenger absorbs them, otherwise the
// author does. Absorbed cards go back face-down. The turn is not touched.
func (m *MoveResolver) SubmitChallenge(moveID, seatID string) (*Outcome, error) {
	r := m.room
	seat, ok := r.SeatByID(seatID)
	if !ok {
		return nil, ErrSeatNotFound
	}
	pending := r.pendingPlay()
	if pending == nil {
		return nil, ErrNothingToChallenge
	}
	if err := r.mayChallenge(seat, pending); err != nil {
		return nil, err
	}
	author, ok := r.SeatByID(pending.ActorSeatID)
	if !ok {
		return nil, ErrSeatNotFound
	}

	truthful := true
	revealed := make([]RevealedCard, 0, len(pending.CardIDs))
	disputed := make([]*Card, 0, len(pending.CardIDs))
	for _, id := range pending.CardIDs {
		c := r.card(id)
		if c == nil {
			continue
		}
		c.FaceUp = true
		revealed = append(revealed, RevealedCard{ID: c.ID, Rank: c.Rank, Suit: c.Suit})
		if c.Rank != pending.ClaimedRank {
			truthful = false
		}
		disputed = append(disputed, c)
	}

	loser, result := author, ResultFail
	if truthful {
		loser, result = seat, ResultPass
	}
	for _, c := range disputed {
		c.OwnerSeatID = loser.ID
		c.InPlayZone = false
		c.FaceUp = false
	}
	r.PendingPlayID = ""

	out := &Outcome{Seat: seat, Loser: loser, NextSeat: m.turns.Current()}
	out.Move = r.appendMove(&Move{
		ID:           moveID,
		Kind:         MoveChallenge,
		ActorSeatID:  seatID,
		CardIDs:      append([]string(nil), pending.CardIDs...),
		ClaimedRank:  pending.ClaimedRank,
		Result:       result,
		TargetMoveID: pending.ID,
		Revealed:     revealed,
	})
	r.reissueHand(loser.ID)
	if w := r.checkWinner(); w != nil {
		r.finish(m.turns, w, out)
	}
	return out, nil
}

// mayChallenge reports why seat may not dispute pending, or nil.
func (r *Room) mayChallenge(seat *Seat, pending *Move) error {
	if pending.ActorSeatID == seat.ID {
		return ErrCannotChallengeOwnPlay
	}
	if seat.Eliminated {
		return ErrChallengeNotAllowed
	}
	if r.Rules.Normalize().Challenge == ChallengeNextActor && !seat.HasTurn {
		return ErrChallengeNotAllowed
	}
	return nil
}

// reissueHand gives every card held by seatID a fresh id and keeps Cards in
// id order. Ids shown in a reveal are retired, so a card taken back cannot be
// picked out when it is played face-down again.
func (r *Room) reissueHand(seatID string) {
	for _, c := range r.Cards {
		if !c.InPlayZone && c.OwnerSeatID == seatID {
			c.ID = r.newID()
		}
	}
	sort.Slice(r.Cards, func(i, j int) bool { return r.Cards[i].ID < r.Cards[j].ID })
}
