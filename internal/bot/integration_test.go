package bot

import (
	"fmt"
	"math/rand"
	"testing"

	"bluff/internal/app"
	"bluff/internal/domain"
)

// playOut lets one agent per seat play a room to the end and returns the
// number of accepted actions.
func playOut(t *testing.T, svc *app.Service, room *domain.Room, agents map[string]*Agent) int {
	t.Helper()
	const maxActions = 5000
	for actions := 0; actions < maxActions; actions++ {
		if room.Status == domain.StatusComplete {
			return actions
		}
		acted := false
		for _, seat := range room.Seats {
			agent := agents[seat.UserID]
			view := svc.View(room, seat.UserID)
			agent.OnGameEvent(view)
			move, err := agent.Play(view)
			if err != nil {
				t.Fatalf("agent %s: %v", agent.ID, err)
			}
			if move.Pass {
				continue
			}
			if move.Challenge {
				_, err = svc.Challenge(room, seat.UserID, "")
			} else {
				_, err = svc.PlayCards(room, seat.UserID, "", move.CardIDs, string(move.Claim))
			}
			if err != nil {
				t.Fatalf("agent %s move %+v rejected: %v", agent.ID, move, err)
			}
			acted = true
			break
		}
		if !acted {
			t.Fatalf("no agent acted with the turn on %s", room.CurrentSeat().ID)
		}
	}
	t.Fatalf("game did not finish within %d actions", maxActions)
	return 0
}

func TestBotsPlayFullGames(t *testing.T) {
	mixes := [][]string{
		{StrategyHonest, StrategyHonest},
		{StrategyHonest, StrategyBluffer, StrategySharp},
		{StrategySharp, StrategySharp, StrategyBluffer, StrategyHonest},
		{StrategyBluffer, StrategyBluffer, StrategyBluffer, StrategyBluffer, StrategyBluffer},
	}

	for i, mix := range mixes {
		mix := mix
		seed := int64(100 + i)
		t.Run(fmt.Sprintf("%d_players", len(mix)), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			svc := app.NewService(rand.New(rand.NewSource(seed)))
			agents := make(map[string]*Agent, len(mix))

			var room *domain.Room
			for j, strategy := range mix {
				identity := GetBotIdentity(j)
				identity.Strategy = strategy
				agent, err := NewAgent(identity, rng)
				if err != nil {
					t.Fatalf("NewAgent error: %v", err)
				}
				agents[identity.UserID] = agent
				if j == 0 {
					room, _, err = svc.CreateRoom("", "", identity.UserID, identity.DisplayName)
				} else {
					_, err = svc.Join(room, identity.UserID, identity.DisplayName)
				}
				if err != nil {
					t.Fatalf("seat %d: %v", j, err)
				}
			}
			if _, err := svc.StartGame(room, room.HostUserID, &seed); err != nil {
				t.Fatalf("start: %v", err)
			}

			playOut(t, svc, room, agents)

			if room.WinnerSeatID == "" {
				t.Fatal("completed room has no winner")
			}
			if n := room.CardCount(room.WinnerSeatID); n != 0 {
				t.Fatalf("winner holds %d cards", n)
			}
			last := room.Moves[len(room.Moves)-1]
			if last.Kind != domain.MoveGameEnd || last.ActorSeatID != room.WinnerSeatID {
				t.Fatalf("last move = %+v", last)
			}
		})
	}
}
