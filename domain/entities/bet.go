package entities

import "time"

// BetStatus is the settlement state of a bet.
type BetStatus string

const (
	BetPending BetStatus = "PENDING"
	BetWon     BetStatus = "WON"
	BetLost    BetStatus = "LOST"
	BetPush    BetStatus = "PUSH"
)

// Bet is one user's side of a matched pair of opposing bids. The two sides
// of a match share MatchID. Bets are created only by the lifecycle
// orchestrator at lock time and are immutable afterwards except for Status.
type Bet struct {
	ID         string
	UserID     string
	EventID    string
	MatchID    string
	OpponentID string
	Side       Side
	Amount     int64
	Status     BetStatus
	EventDate  string // yyyy-mm-dd bucket of the event start
	Season     string
	CreatedAt  time.Time
}
