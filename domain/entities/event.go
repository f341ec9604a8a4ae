package entities

import (
	"fmt"
	"time"
)

// EventStatus is the lifecycle state of a marketplace event.
type EventStatus string

const (
	// EventOpen means the event is accepting bids.
	EventOpen EventStatus = "OPEN"
	// EventLocked means the start time has passed and bids are frozen.
	EventLocked EventStatus = "LOCKED"
	// EventResolved means the result is known and outcomes were written.
	EventResolved EventStatus = "RESOLVED"
)

// Side identifies which competitor a bid or bet backs.
type Side string

const (
	SideHome Side = "HOME"
	SideAway Side = "AWAY"
)

// Opposite returns the other side of the matchup.
func (s Side) Opposite() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

// EventResult is the final score attached by the resolution job.
type EventResult struct {
	HomeScore  float64
	AwayScore  float64
	RecordedAt time.Time
}

// MarketplaceEvent is one biddable matchup, populated from the provider feed
// or created manually. Status transitions are OPEN -> LOCKED -> RESOLVED and
// are guarded by conditional writes.
type MarketplaceEvent struct {
	ID         string
	ExternalID string
	Kind       string // provider league, e.g. NFL or CFB
	HomeTeam   string
	AwayTeam   string
	HomeAbbrev string
	AwayAbbrev string
	Spread     string // provider line, e.g. "KC -3.5"
	StartTime  time.Time
	Status     EventStatus
	HomeAmount int64 // matched stake per side, written when the market locks
	AwayAmount int64
	Result     *EventResult
	Version    int
	CreatedAt  time.Time
}

// Season returns the ranking season an event belongs to.
func (e *MarketplaceEvent) Season() string {
	return fmt.Sprintf("%d", e.StartTime.Year())
}

// Date returns the calendar-day bucket used by the date indexes.
func (e *MarketplaceEvent) Date() string {
	return e.StartTime.UTC().Format("2006-01-02")
}
