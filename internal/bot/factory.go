package bot

import (
	"fmt"
	"math/rand"
	"time"
)

// Strategy names accepted by NewBrain.
const (
	StrategyHonest  = "honest"
	StrategyBluffer = "bluffer"
	StrategySharp   = "sharp"
)

// NewBrain creates a new AI brain for the named strategy.
func NewBrain(strategy string, rng *rand.Rand) (Brain, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	switch strategy {
	case StrategyHonest:
		return &HonestBot{}, nil
	case StrategyBluffer:
		return NewBlufferBot(rng), nil
	case StrategySharp:
		return NewSharpBot(), nil
	default:
		return nil, fmt.Errorf("unknown bot strategy: %q", strategy)
	}
}

// NewAgent builds an agent for a bot identity, falling back to the honest
// strategy when the identity names none.
func NewAgent(identity BotIdentity, rng *rand.Rand) (*Agent, error) {
	strategy := identity.Strategy
	if strategy == "" {
		strategy = StrategyHonest
	}
	b, err := NewBrain(strategy, rng)
	if err != nil {
		return nil, err
	}
	return &Agent{ID: identity.UserID, Name: identity.DisplayName, Strategy: b}, nil
}
