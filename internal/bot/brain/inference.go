package brain

import (
	"bluff/internal/domain"
)

// copiesPerRank is how many cards of each rank a deck holds.
var copiesPerRank = len(domain.Suits)

// Estimator provides probabilistic insights based on memory.
type Estimator struct {
	Memory *GameMemory
}

// NewEstimator creates a new reasoning engine.
func NewEstimator(m *GameMemory) *Estimator {
	return &Estimator{Memory: m}
}

// KnownBluff reports whether memory proves the play false: a card in it was
// seen with another rank, or too many cards of the claimed rank are
// accounted for elsewhere.
func (e *Estimator) KnownBluff(play *domain.Move) bool {
	if play == nil {
		return false
	}
	for _, id := range play.CardIDs {
		if rank, ok := e.Memory.KnownRank(id); ok && rank != play.ClaimedRank {
			return true
		}
	}
	return e.Memory.Accounted(play.ClaimedRank, play.ActorSeatID, play.CardIDs)+len(play.CardIDs) > copiesPerRank
}

// BluffProbability returns a 0.0 to 1.0 estimate that the play is a lie.
func (e *Estimator) BluffProbability(play *domain.Move) float64 {
	if play == nil {
		return 0
	}
	if e.KnownBluff(play) {
		return 1
	}

	unknown := 0
	for _, id := range play.CardIDs {
		if _, ok := e.Memory.KnownRank(id); !ok {
			unknown++
		}
	}
	if unknown == 0 {
		return 0
	}
	known := len(play.CardIDs) - unknown
	remaining := copiesPerRank - e.Memory.Accounted(play.ClaimedRank, play.ActorSeatID, play.CardIDs) - known
	if remaining <= 0 {
		return 1
	}

	// Half from how much of the remaining rank the claim needs, half from
	// the author's record.
	scarcity := float64(unknown) / float64(remaining)
	prior := e.Memory.Profile(play.ActorSeatID).BluffRate()
	return 0.5*scarcity + 0.5*prior
}

// ClaimRisk estimates the chance an opponent challenges a play of n cards
// claiming rank, from the bot's own point of view.
func (e *Estimator) ClaimRisk(rank domain.Rank, n int) float64 {
	held := 0
	for _, fact := range e.Memory.Cards {
		if fact.Rank == rank && fact.Status == StatusOpponent {
			held++
		}
	}
	if held+n > copiesPerRank {
		return 1
	}
	aggression := 0.0
	for _, p := range e.Memory.Opponents {
		if a := p.Aggression(); a > aggression {
			aggression = a
		}
	}
	return aggression * float64(n) / float64(copiesPerRank)
}
