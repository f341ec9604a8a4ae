package entities

import "time"

// User is a registered bettor. A profile row is created lazily on the first
// authenticated request and is only ever mutated by its owner.
type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
