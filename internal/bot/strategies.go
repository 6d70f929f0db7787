package bot

import (
	"sort"

	"bluff/internal/domain"
)

// rankGroup is the part of a hand sharing one rank.
type rankGroup struct {
	Rank domain.Rank
	IDs  []string
}

// groupHand splits a hand by rank, largest group first and deck order
// breaking ties.
func groupHand(hand []domain.CardView) []rankGroup {
	byRank := make(map[domain.Rank][]string)
	for _, c := range hand {
		byRank[c.Rank] = append(byRank[c.Rank], c.ID)
	}
	order := make(map[domain.Rank]int, len(domain.Ranks))
	for i, r := range domain.Ranks {
		order[r] = i
	}

	groups := make([]rankGroup, 0, len(byRank))
	for rank, ids := range byRank {
		groups = append(groups, rankGroup{Rank: rank, IDs: ids})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].IDs) != len(groups[j].IDs) {
			return len(groups[i].IDs) > len(groups[j].IDs)
		}
		return order[groups[i].Rank] < order[groups[j].Rank]
	})
	return groups
}

func heldOfRank(hand []domain.CardView, rank domain.Rank) int {
	n := 0
	for _, c := range hand {
		if c.Rank == rank {
			n++
		}
	}
	return n
}

func myTurn(view domain.GameView) bool {
	return view.ViewerSeatID != "" && view.CurrentSeatID == view.ViewerSeatID
}

// impossibleClaim reports whether our own hand already disproves the
// pending play.
func impossibleClaim(view domain.GameView) bool {
	p := view.PendingPlay
	if p == nil {
		return false
	}
	return heldOfRank(view.Hand, p.ClaimedRank)+len(p.CardIDs) > len(domain.Suits)
}

func seatCardCount(view domain.GameView, seatID string) int {
	for _, s := range view.Seats {
		if s.ID == seatID {
			return s.CardCount
		}
	}
	return 0
}

func truthfulPlay(hand []domain.CardView) Move {
	groups := groupHand(hand)
	if len(groups) == 0 {
		return Move{Pass: true}
	}
	return Move{CardIDs: groups[0].IDs, Claim: groups[0].Rank}
}

// HonestBot never lies. It plays its largest rank group and only challenges
// claims its own hand disproves.
type HonestBot struct{}

func (b *HonestBot) CalculateMove(view domain.GameView) (Move, error) {
	if view.CanChallenge && impossibleClaim(view) {
		return Move{Challenge: true}, nil
	}
	if !myTurn(view) {
		return Move{Pass: true}, nil
	}
	return truthfulPlay(view.Hand), nil
}

func (b *HonestBot) OnEvent(domain.GameView) {}
