package entities

import "time"

// League groups users who bet against each other.
type League struct {
	ID          string
	Name        string
	AdminUserID string
	CreatedAt   time.Time
}

// Membership is the many-to-many relation between users and leagues,
// materialized as its own row so both directions stay a single query.
type Membership struct {
	UserID      string
	LeagueID    string
	DisplayName string
	JoinedAt    time.Time
}
