// Package ports declares the interfaces the application layer depends on:
// repositories over the single table and clients for external systems.
package ports

import (
	"context"
	"time"

	"sidebet-backend/domain/entities"
	"sidebet-backend/pkg/auth"
)

// Mutations on user-owned entities take the verified caller identity and
// pass it through the authorization gate before any Store access, failing
// Forbidden when the caller does not own the target.

// UserRepository persists user profiles.
type UserRepository interface {
	// Create writes the caller's profile, failing Conflict if the id exists.
	Create(ctx context.Context, requester auth.Identity, user *entities.User) error
	// GetByID fetches one profile.
	GetByID(ctx context.Context, userID string) (*entities.User, error)
	// UpdateDisplayName replaces the profile display name.
	UpdateDisplayName(ctx context.Context, requester auth.Identity, userID, displayName string) (*entities.User, error)
}

// LeagueRepository persists leagues and memberships.
type LeagueRepository interface {
	// Create writes the league and the admin's founding membership.
	Create(ctx context.Context, requester auth.Identity, league *entities.League, admin *entities.Membership) error
	// GetByID fetches league metadata.
	GetByID(ctx context.Context, leagueID string) (*entities.League, error)
	// Join adds a membership, failing Conflict if already a member.
	Join(ctx context.Context, requester auth.Identity, membership *entities.Membership) error
	// ListMembers returns every membership of a league.
	ListMembers(ctx context.Context, leagueID string) ([]*entities.Membership, error)
	// ListForUser returns the leagues a user belongs to.
	ListForUser(ctx context.Context, userID string) ([]*entities.Membership, error)
}

// EventPage is one page of marketplace events.
type EventPage struct {
	Events    []*entities.MarketplaceEvent
	NextToken string
}

// EventRepository persists marketplace events.
type EventRepository interface {
	// Create writes a new event, failing Conflict if the id exists.
	Create(ctx context.Context, event *entities.MarketplaceEvent) error
	// GetByID fetches one event.
	GetByID(ctx context.Context, eventID string) (*entities.MarketplaceEvent, error)
	// Update replaces an event guarded by its version, failing Conflict on a
	// stale version. The stored version advances by one.
	Update(ctx context.Context, event *entities.MarketplaceEvent) error
	// ListByDate pages the events of one calendar date.
	ListByDate(ctx context.Context, date string, limit int, startToken string) (EventPage, error)
	// AcquireLock writes the one-shot lock marker for an event, failing
	// Conflict if another invocation holds it.
	AcquireLock(ctx context.Context, eventID, ruleName, owner string, now, expiresAt time.Time) error
}

// BidPage is one page of bids.
type BidPage struct {
	Bids      []*entities.Bid
	NextToken string
}

// BidRepository persists open bids.
type BidRepository interface {
	// Create writes a new bid while asserting the target event is still
	// open, failing Conflict if it is not.
	Create(ctx context.Context, requester auth.Identity, bid *entities.Bid, expiresAt time.Time) error
	// Update replaces a bid's side and amount under the same open-event
	// assertion.
	Update(ctx context.Context, requester auth.Identity, bid *entities.Bid, expiresAt time.Time) error
	// GetByID fetches one bid owned by a user.
	GetByID(ctx context.Context, userID, bidID string) (*entities.Bid, error)
	// ListByUser pages a user's open bids.
	ListByUser(ctx context.Context, userID string, limit int, startToken string) (BidPage, error)
	// ListByEvent returns every open bid on an event.
	ListByEvent(ctx context.Context, eventID string) ([]*entities.Bid, error)
	// Delete removes one bid.
	Delete(ctx context.Context, requester auth.Identity, userID, bidID string) error
}

// BetPage is one page of bets.
type BetPage struct {
	Bets      []*entities.Bet
	NextToken string
}

// BetRepository persists matched bets.
type BetRepository interface {
	// CreateAll writes the matched bets, skipping any that already exist.
	CreateAll(ctx context.Context, bets []*entities.Bet) error
	// GetByID fetches one bet owned by a user.
	GetByID(ctx context.Context, userID, betID string) (*entities.Bet, error)
	// Update replaces a bet, typically to settle its status.
	Update(ctx context.Context, bet *entities.Bet) error
	// ListByUser pages a user's bets.
	ListByUser(ctx context.Context, userID string, limit int, startToken string) (BetPage, error)
	// ListByEvent returns every bet on an event.
	ListByEvent(ctx context.Context, eventID string) ([]*entities.Bet, error)
	// ListByDate pages the bets whose event falls on one calendar date.
	ListByDate(ctx context.Context, date string, limit int, startToken string) (BetPage, error)
}

// OutcomePage is one page of outcomes.
type OutcomePage struct {
	Outcomes  []*entities.Outcome
	NextToken string
}

// OutcomeRepository persists settled outcomes and season rankings.
type OutcomeRepository interface {
	// Create writes an outcome keyed by its bet, failing Conflict if that
	// bet was already settled.
	Create(ctx context.Context, outcome *entities.Outcome) error
	// ListByUser pages a user's outcomes.
	ListByUser(ctx context.Context, userID string, limit int, startToken string) (OutcomePage, error)
	// GetRankings aggregates per-user season totals, best first.
	GetRankings(ctx context.Context, season string, limit int) ([]entities.RankingEntry, error)
}
