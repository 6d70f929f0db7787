package domain

// RemainderPolicy decides what happens to the 52 mod n cards left after an
// even deal.
type RemainderPolicy string

const (
	// RemainderDiscard leaves the remainder out of the game.
	RemainderDiscard RemainderPolicy = "discard"
	// RemainderDealExtra hands the remainder out one card each to the lowest seats.
	RemainderDealExtra RemainderPolicy = "deal_extra"
)

// ChallengePolicy decides which seats may challenge a pending play.
type ChallengePolicy string

const (
	// ChallengeAnyOpponent lets every non-eliminated seat except the author challenge.
	ChallengeAnyOpponent ChallengePolicy = "any_opponent"
	// ChallengeNextActor restricts challenges to the seat that now holds the turn.
	ChallengeNextActor ChallengePolicy = "next_actor"
)

const (
	DefaultMinSeats     = 2
	DefaultMaxSeats     = 8
	DefaultLogViewLimit = 50
)

// Rules are the per-room house rules fixed at room creation.
type Rules struct {
	MinSeats     int             `json:"min_seats"`
	MaxSeats     int             `json:"max_seats"`
	Remainder    RemainderPolicy `json:"remainder"`
	Challenge    ChallengePolicy `json:"challenge"`
	LogViewLimit int             `json:"log_view_limit"`
}

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		MinSeats:     DefaultMinSeats,
		MaxSeats:     DefaultMaxSeats,
		Remainder:    RemainderDiscard,
		Challenge:    ChallengeAnyOpponent,
		LogViewLimit: DefaultLogViewLimit,
	}
}

// Normalize fills zero or out of range fields with defaults.
func (r Rules) Normalize() Rules {
	def := DefaultRules()
	if r.MinSeats < 2 {
		r.MinSeats = def.MinSeats
	}
	if r.MaxSeats < r.MinSeats || r.MaxSeats > DeckSize {
		r.MaxSeats = def.MaxSeats
		if r.MaxSeats < r.MinSeats {
			r.MaxSeats = r.MinSeats
		}
	}
	switch r.Remainder {
	case RemainderDiscard, RemainderDealExtra:
	default:
		r.Remainder = def.Remainder
	}
	switch r.Challenge {
	case ChallengeAnyOpponent, ChallengeNextActor:
	default:
		r.Challenge = def.Challenge
	}
	// Negative keeps the whole log in views.
	if r.LogViewLimit == 0 {
		r.LogViewLimit = def.LogViewLimit
	}
	return r
}
