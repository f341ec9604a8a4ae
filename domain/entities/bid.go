package entities

import "time"

// Bid is an open offer to stake Amount on one side of an event. Bids are
// mutable by their owner until the event locks; at lock time they either
// convert into bets or expire via TTL.
type Bid struct {
	ID        string
	UserID    string
	EventID   string
	Side      Side
	Amount    int64
	CreatedAt time.Time
}
