package domain

// CardView is a card as a particular viewer may see it. Rank and Suit are
// empty unless the viewer is entitled to the face.
type CardView struct {
	ID   string `json:"id"`
	Rank Rank   `json:"rank,omitempty"`
	Suit Suit   `json:"suit,omitempty"`
}

// SeatView is the public part of a seat.
type SeatView struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Index       int    `json:"index"`
	CardCount   int    `json:"card_count"`
	HasTurn     bool   `json:"has_turn"`
	Eliminated  bool   `json:"eliminated"`
	IsHost      bool   `json:"is_host"`
}

// GameView is the redacted projection of a room for one viewer. It is the
// only shape of room state that leaves the server.
type GameView struct {
	RoomID        string     `json:"room_id"`
	Code          string     `json:"code"`
	Status        Status     `json:"status"`
	Phase         Phase      `json:"phase,omitempty"`
	Version       int64      `json:"version"`
	HostUserID    string     `json:"host_user_id"`
	ViewerSeatID  string     `json:"viewer_seat_id,omitempty"`
	CurrentSeatID string     `json:"current_seat_id,omitempty"`
	WinnerSeatID  string     `json:"winner_seat_id,omitempty"`
	Seats         []SeatView `json:"seats"`
	Hand          []CardView `json:"hand,omitempty"`
	PlayZone      []CardView `json:"play_zone"`
	PendingPlay   *Move      `json:"pending_play,omitempty"`
	CanChallenge  bool       `json:"can_challenge"`
	Moves         []*Move    `json:"moves"`
	TotalMoves    int        `json:"total_moves"`
}

// View projects the room for viewerSeatID. Face-down cards show only their
// id; the viewer's own hand is the only hand included. An empty or unknown
// viewer gets the spectator projection.
func (r *Room) View(viewerSeatID string) GameView {
	v := GameView{
		RoomID:       r.ID,
		Code:         r.Code,
		Status:       r.Status,
		Version:      r.Version,
		HostUserID:   r.HostUserID,
		WinnerSeatID: r.WinnerSeatID,
		Seats:        make([]SeatView, 0, len(r.Seats)),
		PlayZone:     []CardView{},
		TotalMoves:   len(r.Moves),
	}
	if r.Status == StatusActive {
		v.Phase = r.Phase()
	}
	if _, ok := r.SeatByID(viewerSeatID); ok {
		v.ViewerSeatID = viewerSeatID
	}

	for _, s := range r.Seats {
		v.Seats = append(v.Seats, SeatView{
			ID:          s.ID,
			UserID:      s.UserID,
			DisplayName: s.DisplayName,
			Index:       s.Index,
			CardCount:   r.CardCount(s.ID),
			HasTurn:     s.HasTurn,
			Eliminated:  s.Eliminated,
			IsHost:      s.UserID == r.HostUserID,
		})
		if s.HasTurn {
			v.CurrentSeatID = s.ID
		}
	}

	for _, c := range r.Cards {
		switch {
		case c.InPlayZone:
			v.PlayZone = append(v.PlayZone, cardView(c, c.FaceUp))
		case v.ViewerSeatID != "" && c.OwnerSeatID == v.ViewerSeatID:
			v.Hand = append(v.Hand, cardView(c, true))
		}
	}

	if p := r.pendingPlay(); p != nil {
		v.PendingPlay = copyMove(p)
		if seat, ok := r.SeatByID(v.ViewerSeatID); ok && r.Status == StatusActive {
			v.CanChallenge = r.mayChallenge(seat, p) == nil
		}
	}

	moves := r.Moves
	if limit := r.Rules.Normalize().LogViewLimit; limit > 0 && len(moves) > limit {
		moves = moves[len(moves)-limit:]
	}
	v.Moves = make([]*Move, 0, len(moves))
	for _, m := range moves {
		v.Moves = append(v.Moves, copyMove(m))
	}
	return v
}

func cardView(c *Card, showFace bool) CardView {
	if !showFace {
		return CardView{ID: c.ID}
	}
	return CardView{ID: c.ID, Rank: c.Rank, Suit: c.Suit}
}

func copyMove(m *Move) *Move {
	cp := *m
	cp.CardIDs = append([]string(nil), m.CardIDs...)
	cp.Revealed = append([]RevealedCard(nil), m.Revealed...)
	return &cp
}
