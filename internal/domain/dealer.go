package domain

import "fmt"

// Deal distributes a shuffled deck across seats in seat order. Every seat
// receives floor(len(deck)/n) consecutive cards; the remainder follows policy.
// Ids are assigned from deal position so they say nothing about the card.
// Seats are expected in index order. Undealt cards are not returned.
func Deal(deck []Card, seats []*Seat, policy RemainderPolicy) ([]Card, error) {
	n := len(seats)
	if n < 2 {
		return nil, ErrInsufficientPlayers
	}
	per := len(deck) / n
	extra := 0
	if policy == RemainderDealExtra {
		extra = len(deck) % n
	}

	dealt := make([]Card, 0, per*n+extra)
	give := func(pos int, seat *Seat) {
		c := deck[pos]
		c.ID = cardID(pos)
		c.OwnerSeatID = seat.ID
		c.FaceUp = false
		c.InPlayZone = false
		dealt = append(dealt, c)
	}

	for i, seat := range seats {
		for k := 0; k < per; k++ {
			give(i*per+k, seat)
		}
	}
	for k := 0; k < extra; k++ {
		give(per*n+k, seats[k])
	}
	return dealt, nil
}

func cardID(pos int) string {
	return fmt.Sprintf("c%02d", pos)
}
