package bot

import (
	"bluff/internal/domain"
)

// Move represents the decision made by the AI. Pass means the bot does
// nothing for now.
type Move struct {
	Pass      bool
	Challenge bool
	CardIDs   []string
	Claim     domain.Rank
}

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	CalculateMove(view domain.GameView) (Move, error)
	OnEvent(view domain.GameView)
}
