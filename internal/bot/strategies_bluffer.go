package bot

import (
	"math/rand"

	"bluff/internal/domain"
)

// BlufferBot pads plays with off-rank cards and challenges on a whim.
type BlufferBot struct {
	rng             *rand.Rand
	BluffChance     float64
	ChallengeChance float64
}

// NewBlufferBot returns a bluffer with default odds.
func NewBlufferBot(rng *rand.Rand) *BlufferBot {
	return &BlufferBot{rng: rng, BluffChance: 0.4, ChallengeChance: 0.2}
}

func (b *BlufferBot) CalculateMove(view domain.GameView) (Move, error) {
	if view.CanChallenge {
		if impossibleClaim(view) || b.rng.Float64() < b.ChallengeChance {
			return Move{Challenge: true}, nil
		}
	}
	if !myTurn(view) {
		return Move{Pass: true}, nil
	}

	groups := groupHand(view.Hand)
	if len(groups) < 2 || b.rng.Float64() >= b.BluffChance {
		return truthfulPlay(view.Hand), nil
	}

	// Slip the odd card of the smallest group in with the largest one.
	lead, odd := groups[0], groups[len(groups)-1]
	ids := append([]string(nil), lead.IDs...)
	if len(ids) >= len(domain.Suits) {
		ids = ids[:len(domain.Suits)-1]
	}
	ids = append(ids, odd.IDs[0])
	return Move{CardIDs: ids, Claim: lead.Rank}, nil
}

func (b *BlufferBot) OnEvent(domain.GameView) {}
