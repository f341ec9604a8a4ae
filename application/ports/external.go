package ports

import (
	"context"
	"errors"
	"time"
)

// ErrResultPending reports that the upstream feed has no final score for an
// event yet. Callers defer the event to the next resolution run.
var ErrResultPending = errors.New("result not yet final")

// FeedEvent is an upcoming game as reported by the score feed.
type FeedEvent struct {
	ExternalID string
	Kind       string
	HomeTeam   string
	AwayTeam   string
	HomeAbbrev string
	AwayAbbrev string
	Spread     string
	StartTime  time.Time
}

// FeedResult is a final score as reported by the score feed.
type FeedResult struct {
	HomeScore float64
	AwayScore float64
}

// Feed fetches schedules and final scores from the upstream provider.
type Feed interface {
	// FetchUpcomingEvents lists the provider's upcoming games of one kind.
	FetchUpcomingEvents(ctx context.Context, kind string) ([]FeedEvent, error)
	// FetchResult fetches the final score of one game, returning
	// ErrResultPending while the game is still in progress.
	FetchResult(ctx context.Context, kind, externalID string) (FeedResult, error)
}

// LockScheduler arranges a one-shot trigger that fires when an event starts,
// so the marketplace locks on time without a tight polling loop.
type LockScheduler interface {
	// ScheduleLock registers a trigger at the given time and returns the
	// rule name for later cleanup.
	ScheduleLock(ctx context.Context, eventID string, at time.Time) (string, error)
	// RemoveRule tears down a fired trigger.
	RemoveRule(ctx context.Context, ruleName string) error
}
