package brain

// OpponentProfile tracks the behavioral history of a specific player.
type OpponentProfile struct {
	SeatID string
	Plays  int
	// CaughtBluffing and ProvenHonest count challenged plays by outcome.
	CaughtBluffing int
	ProvenHonest   int
	// FailedChallenges and SuccessfulChallenges count this seat's own challenges.
	FailedChallenges     int
	SuccessfulChallenges int
}

// NewOpponentProfile initializes a profile for a specific seat.
func NewOpponentProfile(seatID string) *OpponentProfile {
	return &OpponentProfile{SeatID: seatID}
}

// BluffRate estimates how often this player lies when challenged. With no
// evidence it is one half.
func (p *OpponentProfile) BluffRate() float64 {
	return float64(p.CaughtBluffing+1) / float64(p.CaughtBluffing+p.ProvenHonest+2)
}

// Aggression estimates how readily this player challenges.
func (p *OpponentProfile) Aggression() float64 {
	challenges := p.FailedChallenges + p.SuccessfulChallenges
	return float64(challenges+1) / float64(challenges+p.Plays+2)
}
