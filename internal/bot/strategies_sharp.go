package bot

import (
	"bluff/internal/bot/brain"
	"bluff/internal/domain"
)

// SharpBot remembers every reveal and judges claims by what is left unseen
// and by each author's record.
type SharpBot struct {
	Memory             *brain.GameMemory
	Estimator          *brain.Estimator
	ChallengeThreshold float64
	RiskTolerance      float64
}

// NewSharpBot returns a sharp bot with a fresh memory.
func NewSharpBot() *SharpBot {
	m := brain.NewMemory()
	return &SharpBot{
		Memory:             m,
		Estimator:          brain.NewEstimator(m),
		ChallengeThreshold: 0.6,
		RiskTolerance:      0.35,
	}
}

func (b *SharpBot) CalculateMove(view domain.GameView) (Move, error) {
	b.Memory.Observe(view)

	if view.CanChallenge && view.PendingPlay != nil {
		pending := view.PendingPlay
		// An author with no cards left wins once the play stands.
		if seatCardCount(view, pending.ActorSeatID) == 0 && b.Estimator.BluffProbability(pending) > 0 {
			return Move{Challenge: true}, nil
		}
		if b.Estimator.BluffProbability(pending) >= b.ChallengeThreshold {
			return Move{Challenge: true}, nil
		}
	}
	if !myTurn(view) {
		return Move{Pass: true}, nil
	}

	groups := groupHand(view.Hand)
	if len(groups) == 0 {
		return Move{Pass: true}, nil
	}
	// Try to go out in one play when the odds allow it.
	if n := len(view.Hand); len(groups) > 1 && n <= len(domain.Suits) {
		if b.Estimator.ClaimRisk(groups[0].Rank, n) < b.RiskTolerance {
			ids := make([]string, 0, n)
			for _, c := range view.Hand {
				ids = append(ids, c.ID)
			}
			return Move{CardIDs: ids, Claim: groups[0].Rank}, nil
		}
	}
	return Move{CardIDs: groups[0].IDs, Claim: groups[0].Rank}, nil
}

func (b *SharpBot) OnEvent(view domain.GameView) {
	b.Memory.Observe(view)
}
