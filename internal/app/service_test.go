package app

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"bluff/internal/domain"
)

func newTestService(seed int64) *Service {
	n := 0
	return NewService(rand.New(rand.NewSource(seed)), WithRoomIDs(func() string {
		n++
		return fmt.Sprintf("room-%d", n)
	}))
}

func startedRoom(t *testing.T, svc *Service, players int) *domain.Room {
	t.Helper()
	room, _, err := svc.CreateRoom("", "", "u0", "Host")
	if err != nil {
		t.Fatalf("create room error: %v", err)
	}
	for i := 1; i < players; i++ {
		if _, err := svc.Join(room, fmt.Sprintf("u%d", i), ""); err != nil {
			t.Fatalf("join error: %v", err)
		}
	}
	seed := int64(42)
	if _, err := svc.StartGame(room, "u0", &seed); err != nil {
		t.Fatalf("start game error: %v", err)
	}
	return room
}

func countKind(evs []Event, kind EventKind) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestCreateRoomSeatsHost(t *testing.T) {
	svc := newTestService(1)
	room, evs, err := svc.CreateRoom("", "abc123 ", "host", "  Hosty  ")
	if err != nil {
		t.Fatalf("create room error: %v", err)
	}
	if room.ID != "room-1" || room.Code != "ABC123" {
		t.Fatalf("room = %s/%s, want room-1/ABC123", room.ID, room.Code)
	}
	if room.HostUserID != "host" || len(room.Seats) != 1 || room.Seats[0].DisplayName != "Hosty" {
		t.Fatalf("host seat not created: %+v", room.Seats)
	}
	if countKind(evs, EventSeatJoined) != 1 || countKind(evs, EventStateSync) != 1 {
		t.Fatalf("unexpected events: %+v", evs)
	}
}

func TestRoomOptionsApplyToNewAndBoundRooms(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	svc := NewService(rand.New(rand.NewSource(1)), WithRoomOptions(
		domain.WithClock(func() time.Time { return clock }),
		domain.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	))

	room, _, err := svc.CreateRoom("r1", "", "host", "")
	if err != nil {
		t.Fatalf("create room error: %v", err)
	}
	if !room.CreatedAt.Equal(clock) || room.Seats[0].ID != "id-1" {
		t.Fatalf("new room = %v/%s, want %v/id-1", room.CreatedAt, room.Seats[0].ID, clock)
	}

	loaded := svc.Bind(&domain.Room{ID: "r2", Status: domain.StatusLobby, Rules: domain.DefaultRules()})
	if _, err := svc.Join(loaded, "guest", ""); err != nil {
		t.Fatalf("join error: %v", err)
	}
	if got := loaded.Seats[0]; got.ID != "id-2" || !got.JoinedAt.Equal(clock) {
		t.Fatalf("bound seat = %s/%v, want id-2/%v", got.ID, got.JoinedAt, clock)
	}
}

func TestStartGameDealsHands(t *testing.T) {
	svc := newTestService(42)
	room, _, err := svc.CreateRoom("", "", "u1", "")
	if err != nil {
		t.Fatalf("create room error: %v", err)
	}
	if _, err := svc.Join(room, "u2", "Guest"); err != nil {
		t.Fatalf("join error: %v", err)
	}

	evs, err := svc.StartGame(room, "u1", nil)
	if err != nil {
		t.Fatalf("start game error: %v", err)
	}
	if room.Status != domain.StatusActive {
		t.Fatalf("status = %s, want active", room.Status)
	}

	handEvents := 0
	for _, ev := range evs {
		if ev.Kind != EventHandDealt {
			continue
		}
		handEvents++
		payload := ev.Payload.(HandDealtPayload)
		if len(payload.Hand) != 26 {
			t.Fatalf("hand size = %d, want 26", len(payload.Hand))
		}
		if len(ev.Recipients) != 1 {
			t.Fatalf("hand event recipients = %v, want one", ev.Recipients)
		}
		seat, _ := room.SeatByUser(ev.Recipients[0])
		if seat.ID != payload.SeatID {
			t.Fatalf("hand for %s sent to %s", payload.SeatID, ev.Recipients[0])
		}
	}
	if handEvents != 2 {
		t.Fatalf("hand events = %d, want 2", handEvents)
	}
}

func TestStartGameRejected(t *testing.T) {
	svc := newTestService(3)
	room, _, _ := svc.CreateRoom("", "", "u1", "")
	if _, err := svc.StartGame(room, "u1", nil); !errors.Is(err, domain.ErrInsufficientPlayers) {
		t.Fatalf("start err = %v, want %v", err, domain.ErrInsufficientPlayers)
	}
	svc.Join(room, "u2", "")
	if _, err := svc.StartGame(room, "u2", nil); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("start err = %v, want %v", err, domain.ErrNotHost)
	}
}

func TestPlayAndChallengeEvents(t *testing.T) {
	svc := newTestService(9)
	room := startedRoom(t, svc, 2)
	s0, _ := room.SeatByUser("u0")
	card := room.Hand(s0.ID)[0]

	evs, err := svc.PlayCards(room, "u0", "m1", []string{card.ID}, strings.ToLower(string(card.Rank)))
	if err != nil {
		t.Fatalf("play error: %v", err)
	}
	if countKind(evs, EventCardsPlayed) != 1 || countKind(evs, EventStateSync) != 2 {
		t.Fatalf("unexpected play events: %+v", evs)
	}
	played := evs[0].Payload.(CardsPlayedPayload)
	if played.MoveID != "m1" || played.ClaimedRank != card.Rank {
		t.Fatalf("played payload = %+v", played)
	}

	evs, err = svc.Challenge(room, "u1", "m2")
	if err != nil {
		t.Fatalf("challenge error: %v", err)
	}
	resolved := evs[0].Payload.(ChallengeResolvedPayload)
	if !resolved.Truthful || resolved.AuthorSeatID != s0.ID || len(resolved.Revealed) != 1 {
		t.Fatalf("resolved payload = %+v", resolved)
	}
	s1, _ := room.SeatByUser("u1")
	if resolved.LoserSeatID != s1.ID {
		t.Fatalf("loser = %s, want challenger %s", resolved.LoserSeatID, s1.ID)
	}

	if _, err := svc.Challenge(room, "u1", "m2"); !errors.Is(err, domain.ErrDuplicateMove) {
		t.Fatalf("replayed challenge err = %v, want %v", err, domain.ErrDuplicateMove)
	}
	if _, err := svc.Challenge(room, "stranger", ""); !errors.Is(err, ErrNotSeated) {
		t.Fatalf("stranger challenge err = %v, want %v", err, ErrNotSeated)
	}
	if _, err := svc.PlayCards(room, "u1", "", []string{card.ID}, "Z"); !errors.Is(err, domain.ErrInvalidRank) {
		t.Fatalf("bad claim err = %v, want %v", err, domain.ErrInvalidRank)
	}
}

func TestStateSyncIsPrivate(t *testing.T) {
	svc := newTestService(5)
	room := startedRoom(t, svc, 3)
	evs, err := svc.Leave(room, "u2")
	if err != nil {
		t.Fatalf("leave error: %v", err)
	}
	for _, ev := range evs {
		if ev.Kind != EventStateSync {
			continue
		}
		view := ev.Payload.(StateSyncPayload).View
		seat, _ := room.SeatByUser(ev.Recipients[0])
		if view.ViewerSeatID != seat.ID {
			t.Fatalf("view for %s sent to %s", view.ViewerSeatID, ev.Recipients[0])
		}
	}
	left := evs[0].Payload.(SeatLeftPayload)
	if !left.Forfeit || left.UserID != "u2" {
		t.Fatalf("leave payload = %+v", left)
	}
}

func TestLeaveEndsGame(t *testing.T) {
	svc := newTestService(5)
	room := startedRoom(t, svc, 2)
	evs, err := svc.Leave(room, "u0")
	if err != nil {
		t.Fatalf("leave error: %v", err)
	}
	if countKind(evs, EventGameEnded) != 1 {
		t.Fatalf("expected game ended event, got %+v", evs)
	}
	ended := evs[1].Payload.(GameEndedPayload)
	if ended.WinnerUserID != "u1" {
		t.Fatalf("winner = %s, want u1", ended.WinnerUserID)
	}
}

func TestGenerateJoinCode(t *testing.T) {
	svc := newTestService(11)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := svc.GenerateJoinCode()
		if len(code) != JoinCodeLength {
			t.Fatalf("code %q length = %d, want %d", code, len(code), JoinCodeLength)
		}
		if strings.Trim(code, joinCodeAlphabet) != "" {
			t.Fatalf("code %q has characters outside base-36", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("generated only %d distinct codes out of 50", len(seen))
	}
}

func TestDisplayName(t *testing.T) {
	svc := newTestService(2)
	tests := []struct {
		in   string
		want string
	}{
		{in: "  Alice ", want: "Alice"},
		{in: "abcdefghijklmnopqrstuvwxyz", want: "abcdefghijklmnopqrst"},
		{in: "ééééééééééééééééééééééé", want: strings.Repeat("é", 20)},
	}
	for _, tt := range tests {
		if got := svc.DisplayName(tt.in); got != tt.want {
			t.Fatalf("DisplayName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	generated := svc.DisplayName("   ")
	if generated == "" || utf8.RuneCountInString(generated) > MaxDisplayNameLength {
		t.Fatalf("generated name %q out of bounds", generated)
	}
}
