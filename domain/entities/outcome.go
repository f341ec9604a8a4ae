package entities

import "time"

// Outcome is the immutable, derived result of one resolved bet. Its ID is
// the bet ID, which makes the resolution job's create-if-absent write
// naturally idempotent.
type Outcome struct {
	ID        string // equals BetID
	UserID    string
	EventID   string
	BetID     string
	Season    string
	Score     int64 // signed stake delta: +amount, -amount, or 0 on a push
	CreatedAt time.Time
}

// RankingEntry is one row of a season leaderboard, aggregated from the rank
// index scan.
type RankingEntry struct {
	UserID string
	Score  int64
}
