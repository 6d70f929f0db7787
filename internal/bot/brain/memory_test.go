package brain

import (
	"testing"

	"bluff/internal/domain"
)

func testView(seatID string, hand []domain.CardView, moves ...*domain.Move) domain.GameView {
	for i, mv := range moves {
		mv.Seq = int64(i + 1)
	}
	return domain.GameView{ViewerSeatID: seatID, Hand: hand, Moves: moves}
}

func TestGameMemory(t *testing.T) {
	m := NewMemory()
	start := &domain.Move{ID: "start", Kind: domain.MoveGameStart}
	hand := []domain.CardView{{ID: "c01", Rank: domain.Rank5, Suit: domain.SuitSpades}, {ID: "c02", Rank: domain.Rank5, Suit: domain.SuitHearts}}

	m.Observe(testView("me", hand, start))
	if got := m.Cards["c01"]; got.Status != StatusMine || got.Rank != domain.Rank5 {
		t.Fatalf("c01 = %+v, want mine 5", got)
	}

	// We play c01, then the next seat plays unknown c10 and gets caught.
	play := &domain.Move{ID: "p1", Kind: domain.MovePlay, ActorSeatID: "me", CardIDs: []string{"c01"}, ClaimedRank: domain.Rank5}
	bluff := &domain.Move{ID: "p2", Kind: domain.MovePlay, ActorSeatID: "s2", CardIDs: []string{"c10"}, ClaimedRank: domain.Rank5}
	caught := &domain.Move{
		ID: "ch1", Kind: domain.MoveChallenge, ActorSeatID: "s3", TargetMoveID: "p2", Result: domain.ResultFail,
		Revealed: []domain.RevealedCard{{ID: "c10", Rank: domain.Rank9, Suit: domain.SuitClubs}},
	}
	m.Observe(testView("me", hand[1:], start, play, bluff, caught))

	if got := m.Cards["c01"]; got.Status != StatusTable || got.Rank != domain.Rank5 {
		t.Fatalf("c01 = %+v, want on table", got)
	}
	if got := m.Cards["c10"]; got.Status != StatusOpponent || got.Holder != "s2" || got.Rank != domain.Rank9 {
		t.Fatalf("c10 = %+v, want held by s2", got)
	}
	if p := m.Profile("s2"); p.CaughtBluffing != 1 || p.Plays != 1 {
		t.Fatalf("s2 profile = %+v", p)
	}
	if p := m.Profile("s3"); p.SuccessfulChallenges != 1 {
		t.Fatalf("s3 profile = %+v", p)
	}
	if got := m.Accounted(domain.Rank5, "s2", nil); got != 2 {
		t.Fatalf("Accounted(5) = %d, want 2", got)
	}
	if got := m.Accounted(domain.Rank9, "s2", nil); got != 0 {
		t.Fatalf("Accounted(9) excluding holder = %d, want 0", got)
	}

	// Replaying the same log changes nothing.
	m.Observe(testView("me", hand[1:], start, play, bluff, caught))
	if p := m.Profile("s2"); p.Plays != 1 {
		t.Fatalf("replay counted twice: %+v", p)
	}

	// A new game start resets.
	m.Observe(testView("me", nil, &domain.Move{ID: "start-2", Kind: domain.MoveGameStart}))
	if len(m.Opponents) != 0 || len(m.Cards) != 0 {
		t.Fatalf("memory not reset: %+v", m)
	}
}

func TestGameMemoryFollowsReissuedIDs(t *testing.T) {
	m := NewMemory()
	start := &domain.Move{ID: "start", Kind: domain.MoveGameStart}
	m.Observe(testView("me", []domain.CardView{{ID: "c01", Rank: domain.Rank5, Suit: domain.SuitSpades}}, start))

	// We bluff with c01, get caught and hold the five again under a new id.
	play := &domain.Move{ID: "p1", Kind: domain.MovePlay, ActorSeatID: "me", CardIDs: []string{"c01"}, ClaimedRank: domain.RankKing}
	caught := &domain.Move{
		ID: "ch1", Kind: domain.MoveChallenge, ActorSeatID: "s2", TargetMoveID: "p1", Result: domain.ResultFail,
		Revealed: []domain.RevealedCard{{ID: "c01", Rank: domain.Rank5, Suit: domain.SuitSpades}},
	}
	m.Observe(testView("me", []domain.CardView{{ID: "n1", Rank: domain.Rank5, Suit: domain.SuitSpades}}, start, play, caught))

	if _, ok := m.Cards["c01"]; ok {
		t.Fatalf("retired id c01 still remembered: %+v", m.Cards)
	}
	if got := m.Cards["n1"]; got.Status != StatusMine || got.Rank != domain.Rank5 {
		t.Fatalf("n1 = %+v, want mine 5", got)
	}
	if got := m.Accounted(domain.Rank5, "s2", nil); got != 1 {
		t.Fatalf("Accounted(5) = %d, want 1", got)
	}
}

func TestEstimatorKnownBluff(t *testing.T) {
	m := NewMemory()
	hand := []domain.CardView{
		{ID: "a", Rank: domain.RankKing, Suit: domain.SuitSpades},
		{ID: "b", Rank: domain.RankKing, Suit: domain.SuitHearts},
		{ID: "c", Rank: domain.RankKing, Suit: domain.SuitClubs},
	}
	m.Observe(testView("me", hand, &domain.Move{ID: "start", Kind: domain.MoveGameStart}))
	e := NewEstimator(m)

	tests := []struct {
		name string
		play *domain.Move
		want bool
	}{
		{name: "OneKingPossible", play: &domain.Move{ActorSeatID: "s2", CardIDs: []string{"x"}, ClaimedRank: domain.RankKing}, want: false},
		{name: "TwoKingsImpossible", play: &domain.Move{ActorSeatID: "s2", CardIDs: []string{"x", "y"}, ClaimedRank: domain.RankKing}, want: true},
		{name: "OtherRank", play: &domain.Move{ActorSeatID: "s2", CardIDs: []string{"x", "y"}, ClaimedRank: domain.Rank2}, want: false},
		{name: "Nil", play: nil, want: false},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := e.KnownBluff(test.play); got != test.want {
				t.Fatalf("KnownBluff() = %v, want %v", got, test.want)
			}
		})
	}

	if got := e.BluffProbability(&domain.Move{ActorSeatID: "s2", CardIDs: []string{"x", "y"}, ClaimedRank: domain.RankKing}); got != 1 {
		t.Fatalf("BluffProbability() = %v, want 1", got)
	}
	low := e.BluffProbability(&domain.Move{ActorSeatID: "s2", CardIDs: []string{"x"}, ClaimedRank: domain.Rank2})
	if low <= 0 || low >= 1 {
		t.Fatalf("BluffProbability() = %v, want in (0, 1)", low)
	}
}

func TestOpponentProfileRates(t *testing.T) {
	p := NewOpponentProfile("s1")
	if got := p.BluffRate(); got != 0.5 {
		t.Fatalf("BluffRate() = %v, want 0.5", got)
	}
	p.CaughtBluffing = 3
	p.ProvenHonest = 1
	if got := p.BluffRate(); got <= 0.5 {
		t.Fatalf("BluffRate() = %v, want above 0.5", got)
	}
}
