package domain

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle stage of a room.
type Status string

const (
	// StatusLobby is the pre-game state where seats can join and leave.
	StatusLobby Status = "lobby"
	// StatusActive is the running game.
	StatusActive Status = "active"
	// StatusComplete is the finished game. A complete room never changes again.
	StatusComplete Status = "complete"
)

// Seat is one participant of a room.
type Seat struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RoomID      string    `json:"room_id"`
	DisplayName string    `json:"display_name"`
	Index       int       `json:"index"`
	HasTurn     bool      `json:"has_turn"`
	Eliminated  bool      `json:"eliminated"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Room is the authoritative state of one game session: roster, cards, turn
// and move log. Callers must serialize access; a Room has no locking.
type Room struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Status        Status    `json:"status"`
	CreatedBy     string    `json:"created_by"`
	HostUserID    string    `json:"host_user_id"`
	Rules         Rules     `json:"rules"`
	Seed          int64     `json:"seed"`
	Version       int64     `json:"version"`
	PendingPlayID string    `json:"pending_play_id,omitempty"`
	WinnerSeatID  string    `json:"winner_seat_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Seats []*Seat `json:"seats"`
	Cards []*Card `json:"cards"`
	Moves []*Move `json:"moves"`

	now   func() time.Time
	newID func() string
}

// Option configures the collaborators a Room uses to stamp new records.
type Option func(*Room)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Room) { r.now = now }
}

// WithIDGenerator overrides how seat and move ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(r *Room) { r.newID = newID }
}

// NewRoom creates an empty lobby.
func NewRoom(id, code, creatorUserID string, rules Rules, opts ...Option) *Room {
	r := &Room{
		ID:         id,
		Code:       code,
		Status:     StatusLobby,
		CreatedBy:  creatorUserID,
		HostUserID: creatorUserID,
		Rules:      rules.Normalize(),
	}
	r.Use(opts...)
	r.CreatedAt = r.stamp()
	r.UpdatedAt = r.CreatedAt
	return r
}

// Use applies options to a room, typically one just loaded from storage.
func (r *Room) Use(opts ...Option) {
	for _, opt := range opts {
		opt(r)
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
}

func (r *Room) stamp() time.Time {
	if r.now == nil || r.newID == nil {
		r.Use()
	}
	return r.now().UTC()
}

// touch records an accepted mutation.
func (r *Room) touch() {
	r.Version++
	r.UpdatedAt = r.stamp()
}

// Empty reports whether no seats remain.
func (r *Room) Empty() bool {
	return len(r.Seats) == 0
}

// SeatByID returns the seat with the given id.
func (r *Room) SeatByID(seatID string) (*Seat, bool) {
	for _, s := range r.Seats {
		if s.ID == seatID {
			return s, true
		}
	}
	return nil, false
}

// SeatByUser returns the seat occupied by userID.
func (r *Room) SeatByUser(userID string) (*Seat, bool) {
	for _, s := range r.Seats {
		if s.UserID == userID {
			return s, true
		}
	}
	return nil, false
}

// CurrentSeat returns the seat holding the turn, or nil.
func (r *Room) CurrentSeat() *Seat {
	return NewTurnScheduler(r.Seats).Current()
}

// Hand returns the cards owned by seatID in id order.
func (r *Room) Hand(seatID string) []*Card {
	var hand []*Card
	for _, c := range r.Cards {
		if !c.InPlayZone && c.OwnerSeatID == seatID {
			hand = append(hand, c)
		}
	}
	return hand
}

// CardCount is len(Hand(seatID)) without allocating.
func (r *Room) CardCount(seatID string) int {
	n := 0
	for _, c := range r.Cards {
		if !c.InPlayZone && c.OwnerSeatID == seatID {
			n++
		}
	}
	return n
}

// PlayZone returns the cards currently in the play zone.
func (r *Room) PlayZone() []*Card {
	var zone []*Card
	for _, c := range r.Cards {
		if c.InPlayZone {
			zone = append(zone, c)
		}
	}
	return zone
}

func (r *Room) card(id string) *Card {
	for _, c := range r.Cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// HasMove reports whether a move with this id is already in the log.
func (r *Room) HasMove(moveID string) bool {
	if moveID == "" {
		return false
	}
	for _, m := range r.Moves {
		if m.ID == moveID {
			return true
		}
	}
	return false
}

// MoveByID looks up a logged move.
func (r *Room) MoveByID(moveID string) *Move {
	for _, m := range r.Moves {
		if m.ID == moveID {
			return m
		}
	}
	return nil
}

// Join seats userID at the next index. The first seat of a hostless room
// becomes host.
func (r *Room) Join(userID, displayName string) (*Seat, error) {
	if r.Status != StatusLobby {
		return nil, ErrNotInLobby
	}
	if _, ok := r.SeatByUser(userID); ok {
		return nil, ErrAlreadyInRoom
	}
	if len(r.Seats) >= r.Rules.Normalize().MaxSeats {
		return nil, ErrRoomFull
	}
	at := r.stamp()
	seat := &Seat{
		ID:          r.newID(),
		UserID:      userID,
		RoomID:      r.ID,
		DisplayName: displayName,
		Index:       len(r.Seats),
		JoinedAt:    at,
	}
	r.Seats = append(r.Seats, seat)
	if r.HostUserID == "" {
		r.HostUserID = userID
	}
	r.touch()
	return seat, nil
}

// Leave removes userID from the room. In the lobby the seat is dropped and the
// remaining seats are renumbered in join order; hosting passes to the lowest
// seat. During a game the seat forfeits instead, keeping its cards. Once the
// game is over the seat is dropped and the game record left as it was.
func (r *Room) Leave(userID string) (*Outcome, error) {
	seat, ok := r.SeatByUser(userID)
	if !ok {
		return nil, ErrSeatNotFound
	}
	switch r.Status {
	case StatusLobby:
		return r.removeSeat(seat, true), nil
	case StatusActive:
		if seat.Eliminated {
			return nil, ErrSeatNotFound
		}
		return r.forfeit(seat), nil
	default:
		return r.removeSeat(seat, false), nil
	}
}

func (r *Room) removeSeat(seat *Seat, renumber bool) *Outcome {
	kept := r.Seats[:0]
	for _, s := range r.Seats {
		if s != seat {
			kept = append(kept, s)
		}
	}
	r.Seats = kept
	if renumber {
		sort.SliceStable(r.Seats, func(i, j int) bool { return r.Seats[i].Index < r.Seats[j].Index })
		for i, s := range r.Seats {
			s.Index = i
		}
	}

	out := &Outcome{Seat: seat, Removed: true}
	if r.HostUserID == seat.UserID {
		r.HostUserID = ""
		if len(r.Seats) > 0 {
			r.HostUserID = r.Seats[0].UserID
			out.NewHostUserID = r.HostUserID
		}
	}
	r.touch()
	return out
}

func (r *Room) forfeit(seat *Seat) *Outcome {
	turns := NewTurnScheduler(r.Seats)
	seat.Eliminated = true
	out := &Outcome{Seat: seat}
	out.Move = r.appendMove(&Move{Kind: MoveForfeit, ActorSeatID: seat.ID})

	if pending := r.pendingPlay(); pending != nil && pending.ActorSeatID == seat.ID {
		r.PendingPlayID = ""
	}
	if seat.HasTurn {
		turns.Advance()
	}
	out.NextSeat = turns.Current()

	if turns.Remaining() == 1 {
		r.finish(turns, turns.First(), out)
	} else if w := r.checkWinner(); w != nil {
		r.finish(turns, w, out)
	}
	r.touch()
	return out
}

// StartGame shuffles with seed, deals every seat a hand and gives the turn to
// seat 0. Only the host may start.
func (r *Room) StartGame(actorUserID string, seed int64) (*Outcome, error) {
	if r.Status != StatusLobby {
		return nil, ErrNotInLobby
	}
	if actorUserID != r.HostUserID {
		return nil, ErrNotHost
	}
	rules := r.Rules.Normalize()
	if len(r.Seats) < rules.MinSeats {
		return nil, ErrInsufficientPlayers
	}

	turns := NewTurnScheduler(r.Seats)
	ordered := append([]*Seat(nil), turns.order...)
	deck := ShuffleDeck(NewDeck(), rand.New(rand.NewSource(seed)))
	dealt, err := Deal(deck, ordered, rules.Remainder)
	if err != nil {
		return nil, err
	}

	r.Cards = make([]*Card, 0, len(dealt))
	for i := range dealt {
		c := dealt[i]
		c.RoomID = r.ID
		r.Cards = append(r.Cards, &c)
	}
	sort.SliceStable(r.Cards, func(i, j int) bool { return r.Cards[i].ID < r.Cards[j].ID })
	for _, s := range r.Seats {
		s.Eliminated = false
	}

	first := turns.Begin()
	r.Seed = seed
	r.Status = StatusActive
	r.PendingPlayID = ""
	r.WinnerSeatID = ""
	out := &Outcome{NextSeat: first}
	out.Move = r.appendMove(&Move{Kind: MoveGameStart})
	r.touch()
	return out, nil
}

// SubmitMove applies a move and returns the actor's view of the result.
func (r *Room) SubmitMove(req MoveRequest) (GameView, error) {
	if _, err := r.ApplyMove(req); err != nil {
		return GameView{}, err
	}
	return r.View(req.SeatID), nil
}

// ApplyMove validates req against the current state and, only if it is
// legal, applies it. A rejected move leaves the room untouched.
func (r *Room) ApplyMove(req MoveRequest) (*Outcome, error) {
	if r.HasMove(req.ID) {
		return nil, ErrDuplicateMove
	}
	if r.Status != StatusActive {
		return nil, ErrGameNotActive
	}
	if _, ok := r.SeatByID(req.SeatID); !ok {
		return nil, ErrSeatNotFound
	}

	res := NewMoveResolver(r)
	var (
		out *Outcome
		err error
	)
	switch req.Kind {
	case MovePlay:
		out, err = res.SubmitPlay(req.ID, req.SeatID, req.CardIDs, req.ClaimedRank)
	case MoveChallenge:
		out, err = res.SubmitChallenge(req.ID, req.SeatID)
	default:
		return nil, ErrUnknownMoveKind
	}
	if err != nil {
		return nil, err
	}
	r.touch()
	return out, nil
}

func (r *Room) pendingPlay() *Move {
	if r.PendingPlayID == "" {
		return nil
	}
	return r.MoveByID(r.PendingPlayID)
}

// checkWinner returns the first seat in play with an empty hand whose cards
// are not still riding on an unresolved play.
func (r *Room) checkWinner() *Seat {
	pendingAuthor := ""
	if p := r.pendingPlay(); p != nil {
		pendingAuthor = p.ActorSeatID
	}
	seats := append([]*Seat(nil), r.Seats...)
	sort.SliceStable(seats, func(i, j int) bool { return seats[i].Index < seats[j].Index })
	for _, s := range seats {
		if s.Eliminated || s.ID == pendingAuthor {
			continue
		}
		if r.CardCount(s.ID) == 0 {
			return s
		}
	}
	return nil
}

func (r *Room) finish(turns *TurnScheduler, winner *Seat, out *Outcome) {
	turns.Clear()
	r.Status = StatusComplete
	r.PendingPlayID = ""
	r.WinnerSeatID = winner.ID
	out.Winner = winner
	out.NextSeat = nil
	out.End = r.appendMove(&Move{Kind: MoveGameEnd, ActorSeatID: winner.ID, Result: ResultWin})
}

func (r *Room) appendMove(m *Move) *Move {
	at := r.stamp()
	var seq int64 = 1
	if n := len(r.Moves); n > 0 {
		last := r.Moves[n-1]
		seq = last.Seq + 1
		if at.Before(last.Timestamp) {
			at = last.Timestamp
		}
	}
	if m.ID == "" {
		m.ID = r.newID()
	}
	m.RoomID = r.ID
	m.Seq = seq
	m.Timestamp = at
	r.Moves = append(r.Moves, m)
	return m
}
