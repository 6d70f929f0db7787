package app

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"bluff/internal/domain"
)

const (
	// JoinCodeLength is the length of generated room codes.
	JoinCodeLength = 6
	// MaxDisplayNameLength caps display names, in runes.
	MaxDisplayNameLength = 20

	joinCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var ErrNotSeated = errors.New("user has no seat in this room")

// Service contains bluff use-cases operating on domain rooms. It owns the
// randomness (seeds, join codes, fallback names) so that the domain stays
// deterministic. Safe for concurrent use; rooms themselves are not.
type Service struct {
	mu       sync.Mutex
	rng      *rand.Rand
	rules    domain.Rules
	roomOpts []domain.Option
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithRules sets the rules new rooms are created with.
func WithRules(rules domain.Rules) Option {
	return func(s *Service) { s.rules = rules.Normalize() }
}

// WithRoomOptions passes clock and id overrides to every room the service
// creates or binds.
func WithRoomOptions(opts ...domain.Option) Option {
	return func(s *Service) { s.roomOpts = append(s.roomOpts, opts...) }
}

// WithRoomIDs overrides how room ids are generated.
func WithRoomIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(rng *rand.Rand, opts ...Option) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{rng: rng, rules: domain.DefaultRules(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the rules applied to new rooms.
func (s *Service) Rules() domain.Rules {
	return s.rules
}

// Bind attaches the service's clock and id options to a room loaded from
// storage.
func (s *Service) Bind(room *domain.Room) *domain.Room {
	room.Use(s.roomOpts...)
	return room
}

// NewRoom builds an empty lobby. A blank roomID or code is generated.
func (s *Service) NewRoom(roomID, code, creatorUserID string) *domain.Room {
	if roomID == "" {
		roomID = s.newID()
	}
	if code == "" {
		code = s.GenerateJoinCode()
	}
	return domain.NewRoom(roomID, NormalizeJoinCode(code), creatorUserID, s.rules, s.roomOpts...)
}

// CreateRoom builds a lobby and seats its creator as host. When seating
// fails no room is returned and the caller must discard anything it already
// stored for roomID.
func (s *Service) CreateRoom(roomID, code, creatorUserID, displayName string) (*domain.Room, []Event, error) {
	room := s.NewRoom(roomID, code, creatorUserID)
	events, err := s.Join(room, creatorUserID, displayName)
	if err != nil {
		return nil, nil, fmt.Errorf("seat creator: %w", err)
	}
	return room, events, nil
}

// Join seats userID in a lobby.
func (s *Service) Join(room *domain.Room, userID, displayName string) ([]Event, error) {
	seat, err := room.Join(userID, s.DisplayName(displayName))
	if err != nil {
		return nil, err
	}
	view := room.View(seat.ID)
	var sv domain.SeatView
	for _, candidate := range view.Seats {
		if candidate.ID == seat.ID {
			sv = candidate
		}
	}
	events := []Event{{Kind: EventSeatJoined, Payload: SeatJoinedPayload{Seat: sv}}}
	return append(events, syncEvents(room)...), nil
}

// Leave removes userID from a lobby or a finished game, or forfeits its seat
// in a running game.
func (s *Service) Leave(room *domain.Room, userID string) ([]Event, error) {
	out, err := room.Leave(userID)
	if err != nil {
		return nil, err
	}
	payload := SeatLeftPayload{
		UserID:        userID,
		SeatID:        out.Seat.ID,
		Forfeit:       !out.Removed,
		NewHostUserID: out.NewHostUserID,
	}
	if out.NextSeat != nil {
		payload.NextSeatID = out.NextSeat.ID
	}
	events := []Event{{Kind: EventSeatLeft, Payload: payload}}
	events = append(events, endEvents(out)...)
	return append(events, syncEvents(room)...), nil
}

// StartGame deals a new game. A nil seed draws one from the service rng; the
// seed is recorded on the room so a deal can be replayed.
func (s *Service) StartGame(room *domain.Room, actorUserID string, seed *int64) ([]Event, error) {
	var sd int64
	if seed != nil {
		sd = *seed
	} else {
		s.mu.Lock()
		sd = s.rng.Int63()
		s.mu.Unlock()
	}
	out, err := room.StartGame(actorUserID, sd)
	if err != nil {
		return nil, err
	}

	view := room.View("")
	events := make([]Event, 0, 2*len(room.Seats)+1)
	events = append(events, Event{
		Kind:    EventGameStarted,
		Payload: GameStartedPayload{FirstSeatID: out.NextSeat.ID, Seats: view.Seats},
	})
	for _, seat := range room.Seats {
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{SeatID: seat.ID, Hand: room.View(seat.ID).Hand},
			Recipients: []string{seat.UserID},
		})
	}
	return append(events, syncEvents(room)...), nil
}

// SubmitMove applies a seat's move and reports what changed.
func (s *Service) SubmitMove(room *domain.Room, req domain.MoveRequest) ([]Event, error) {
	out, err := room.ApplyMove(req)
	if err != nil {
		return nil, err
	}

	var events []Event
	switch out.Move.Kind {
	case domain.MovePlay:
		p := CardsPlayedPayload{
			MoveID:      out.Move.ID,
			SeatID:      out.Move.ActorSeatID,
			CardIDs:     out.Move.CardIDs,
			ClaimedRank: out.Move.ClaimedRank,
		}
		if out.NextSeat != nil {
			p.NextSeatID = out.NextSeat.ID
		}
		events = append(events, Event{Kind: EventCardsPlayed, Payload: p})
	case domain.MoveChallenge:
		p := ChallengeResolvedPayload{
			MoveID:           out.Move.ID,
			ChallengerSeatID: out.Move.ActorSeatID,
			ClaimedRank:      out.Move.ClaimedRank,
			Truthful:         out.Move.Result == domain.ResultPass,
			Revealed:         out.Move.Revealed,
			LoserSeatID:      out.Loser.ID,
		}
		if target := room.MoveByID(out.Move.TargetMoveID); target != nil {
			p.AuthorSeatID = target.ActorSeatID
		}
		if out.NextSeat != nil {
			p.NextSeatID = out.NextSeat.ID
		}
		events = append(events, Event{Kind: EventChallengeResolved, Payload: p})
	}
	events = append(events, endEvents(out)...)
	return append(events, syncEvents(room)...), nil
}

// PlayCards is SubmitMove for a play made by userID.
func (s *Service) PlayCards(room *domain.Room, userID, moveID string, cardIDs []string, claim string) ([]Event, error) {
	seat, ok := room.SeatByUser(userID)
	if !ok {
		return nil, ErrNotSeated
	}
	rank, err := domain.ParseRank(claim)
	if err != nil {
		return nil, err
	}
	return s.SubmitMove(room, domain.MoveRequest{
		ID:          moveID,
		Kind:        domain.MovePlay,
		SeatID:      seat.ID,
		CardIDs:     cardIDs,
		ClaimedRank: rank,
	})
}

// Challenge is SubmitMove for a challenge made by userID.
func (s *Service) Challenge(room *domain.Room, userID, moveID string) ([]Event, error) {
	seat, ok := room.SeatByUser(userID)
	if !ok {
		return nil, ErrNotSeated
	}
	return s.SubmitMove(room, domain.MoveRequest{ID: moveID, Kind: domain.MoveChallenge, SeatID: seat.ID})
}

// View returns the room as userID may see it. Users without a seat get the
// spectator projection.
func (s *Service) View(room *domain.Room, userID string) domain.GameView {
	seatID := ""
	if seat, ok := room.SeatByUser(userID); ok {
		seatID = seat.ID
	}
	return room.View(seatID)
}

// GenerateJoinCode returns a random upper-case base-36 room code.
func (s *Service) GenerateJoinCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := make([]byte, JoinCodeLength)
	for i := range b {
		b[i] = joinCodeAlphabet[s.rng.Intn(len(joinCodeAlphabet))]
	}
	return string(b)
}

// NormalizeJoinCode canonicalizes a user typed code.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DisplayName trims name and caps its length. An empty name is replaced with
// a generated friendly one.
func (s *Service) DisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.friendlyName()
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxDisplayNameLength]))
	}
	return name
}

func (s *Service) friendlyName() string {
	adjectives := []string{"Happy", "Shiny", "Brave", "Clever", "Swift", "Calm", "Mighty", "Witty", "Sly", "Wild"}
	nouns := []string{"Panda", "Tiger", "Eagle", "Dolphin", "Wolf", "Otter", "Falcon", "Bear", "Fox", "Lion"}

	s.mu.Lock()
	defer s.mu.Unlock()
	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(900) + 100

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}

func endEvents(out *domain.Outcome) []Event {
	if out.Winner == nil {
		return nil
	}
	return []Event{{
		Kind:    EventGameEnded,
		Payload: GameEndedPayload{WinnerSeatID: out.Winner.ID, WinnerUserID: out.Winner.UserID},
	}}
}

// syncEvents sends every seated user its own view.
func syncEvents(room *domain.Room) []Event {
	events := make([]Event, 0, len(room.Seats))
	for _, seat := range room.Seats {
		events = append(events, Event{
			Kind:       EventStateSync,
			Payload:    StateSyncPayload{View: room.View(seat.ID)},
			Recipients: []string{seat.UserID},
		})
	}
	return events
}
