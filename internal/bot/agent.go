package bot

import (
	"bluff/internal/domain"
)

// Agent represents an autonomous bot player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// Play asks the agent to calculate its move from its own view of the room.
func (a *Agent) Play(view domain.GameView) (Move, error) {
	if view.Status != domain.StatusActive || view.ViewerSeatID == "" {
		// Agent is not part of a running game
		return Move{Pass: true}, nil
	}

	move, err := a.Strategy.CalculateMove(view)
	if err != nil {
		return Move{Pass: true}, err
	}
	return move, nil
}

// OnGameEvent lets the agent update whatever it remembers about the game.
func (a *Agent) OnGameEvent(view domain.GameView) {
	a.Strategy.OnEvent(view)
}
