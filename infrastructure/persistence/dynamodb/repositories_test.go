package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidebet-backend/domain/entities"
	"sidebet-backend/infrastructure/persistence/memory"
	"sidebet-backend/pkg/auth"
	apperrors "sidebet-backend/pkg/errors"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func asUser(userID string) auth.Identity {
	return auth.Identity{Subject: userID, Scopes: []string{auth.ScopeOpenID}}
}

func openEvent(id string, start time.Time) *entities.MarketplaceEvent {
	return &entities.MarketplaceEvent{
		ID:         id,
		ExternalID: "ext-" + id,
		Kind:       "nfl",
		HomeTeam:   "Kansas City Chiefs",
		AwayTeam:   "Buffalo Bills",
		HomeAbbrev: "KC",
		AwayAbbrev: "BUF",
		Spread:     "KC -3.5",
		StartTime:  start,
		Status:     entities.EventOpen,
		CreatedAt:  start.Add(-48 * time.Hour),
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(memory.NewStore(), testLogger())

	user := &entities.User{
		ID:          "u-1",
		DisplayName: "alice",
		Email:       "alice@example.com",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, asUser("u-1"), user))

	t.Run("duplicate create conflicts", func(t *testing.T) {
		err := repo.Create(ctx, asUser("u-1"), user)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("creating another user's profile is forbidden", func(t *testing.T) {
		err := repo.Create(ctx, asUser("u-2"), user)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	})

	t.Run("get returns the profile", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.DisplayName)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "u-none")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("update display name", func(t *testing.T) {
		updated, err := repo.UpdateDisplayName(ctx, asUser("u-1"), "u-1", "alice2")
		require.NoError(t, err)
		assert.Equal(t, "alice2", updated.DisplayName)

		got, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "alice2", got.DisplayName)
	})

	t.Run("renaming another user is forbidden", func(t *testing.T) {
		_, err := repo.UpdateDisplayName(ctx, asUser("u-2"), "u-1", "mallory")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

		got, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "alice2", got.DisplayName)
	})

	t.Run("missing openid scope is forbidden", func(t *testing.T) {
		requester := auth.Identity{Subject: "u-1", Scopes: []string{"email"}}
		_, err := repo.UpdateDisplayName(ctx, requester, "u-1", "alice3")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	})
}

func TestUserRepositoryDisplayNamePropagation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := NewUserRepository(store, testLogger())
	leagues := NewLeagueRepository(store, testLogger())

	now := time.Now().UTC()
	user := &entities.User{ID: "u-1", DisplayName: "alice", Email: "alice@example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, users.Create(ctx, asUser("u-1"), user))

	league := &entities.League{ID: "lg-1", Name: "Sunday Degens", AdminUserID: "u-1", CreatedAt: now}
	admin := &entities.Membership{UserID: "u-1", LeagueID: "lg-1", DisplayName: "alice", JoinedAt: now}
	require.NoError(t, leagues.Create(ctx, asUser("u-1"), league, admin))

	_, err := users.UpdateDisplayName(ctx, asUser("u-1"), "u-1", "alice2")
	require.NoError(t, err)

	members, err := leagues.ListMembers(ctx, "lg-1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "alice2", members[0].DisplayName, "membership rows must carry the new name")
}

func TestEventRepositoryVersioning(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(memory.NewStore(), testLogger())

	event := openEvent("evt-1", time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, event))
	assert.Equal(t, 1, event.Version)

	loaded, err := repo.GetByID(ctx, "evt-1")
	require.NoError(t, err)

	stale, err := repo.GetByID(ctx, "evt-1")
	require.NoError(t, err)

	loaded.Status = entities.EventLocked
	require.NoError(t, repo.Update(ctx, loaded))
	assert.Equal(t, 2, loaded.Version)

	stale.Status = entities.EventResolved
	err = repo.Update(ctx, stale)
	assert.True(t, apperrors.IsConflict(err), "stale version must conflict")
	assert.Equal(t, 1, stale.Version, "failed update must not advance the version")

	current, err := repo.GetByID(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, entities.EventLocked, current.Status)
}

func TestEventRepositoryListByDate(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(memory.NewStore(), testLogger())

	day := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, openEvent("evt-a", day)))
	require.NoError(t, repo.Create(ctx, openEvent("evt-b", day.Add(3*time.Hour))))
	require.NoError(t, repo.Create(ctx, openEvent("evt-other", day.Add(24*time.Hour))))

	page, err := repo.ListByDate(ctx, "2025-11-09", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.Empty(t, page.NextToken)

	t.Run("pagination", func(t *testing.T) {
		first, err := repo.ListByDate(ctx, "2025-11-09", 1, "")
		require.NoError(t, err)
		require.Len(t, first.Events, 1)
		require.NotEmpty(t, first.NextToken)

		second, err := repo.ListByDate(ctx, "2025-11-09", 1, first.NextToken)
		require.NoError(t, err)
		require.Len(t, second.Events, 1)
		assert.NotEqual(t, first.Events[0].ID, second.Events[0].ID)
	})
}

func TestEventRepositoryAcquireLock(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(memory.NewStore(), testLogger())

	now := time.Now().UTC()
	require.NoError(t, repo.AcquireLock(ctx, "evt-1", "lock-evt-1", "worker-a", now, now.Add(time.Hour)))

	err := repo.AcquireLock(ctx, "evt-1", "lock-evt-1", "worker-b", now, now.Add(time.Hour))
	assert.True(t, apperrors.IsConflict(err), "second acquirer must lose")
}

func TestBidRepositoryOpenEventGuard(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	events := NewEventRepository(store, testLogger())
	bids := NewBidRepository(store, testLogger())

	start := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	event := openEvent("evt-1", start)
	require.NoError(t, events.Create(ctx, event))

	bid := &entities.Bid{
		ID:        "bid-1",
		UserID:    "u-1",
		EventID:   "evt-1",
		Side:      entities.SideHome,
		Amount:    100,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, bids.Create(ctx, asUser("u-1"), bid, start.Add(24*time.Hour)))

	t.Run("duplicate bid conflicts", func(t *testing.T) {
		err := bids.Create(ctx, asUser("u-1"), bid, start.Add(24*time.Hour))
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("bidding as another user is forbidden", func(t *testing.T) {
		err := bids.Create(ctx, asUser("u-2"), bid, start.Add(24*time.Hour))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	})

	t.Run("update while open succeeds", func(t *testing.T) {
		bid.Amount = 175
		require.NoError(t, bids.Update(ctx, asUser("u-1"), bid, start.Add(24*time.Hour)))
		got, err := bids.GetByID(ctx, "u-1", "bid-1")
		require.NoError(t, err)
		assert.Equal(t, int64(175), got.Amount)
	})

	t.Run("locked event rejects new bids", func(t *testing.T) {
		current, err := events.GetByID(ctx, "evt-1")
		require.NoError(t, err)
		current.Status = entities.EventLocked
		require.NoError(t, events.Update(ctx, current))

		late := &entities.Bid{
			ID: "bid-2", UserID: "u-2", EventID: "evt-1",
			Side: entities.SideAway, Amount: 50, CreatedAt: time.Now().UTC(),
		}
		err = bids.Create(ctx, asUser("u-2"), late, start.Add(24*time.Hour))
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("locked event rejects updates", func(t *testing.T) {
		bid.Amount = 500
		err := bids.Update(ctx, asUser("u-1"), bid, start.Add(24*time.Hour))
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestBidRepositoryListing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	events := NewEventRepository(store, testLogger())
	bids := NewBidRepository(store, testLogger())

	start := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	require.NoError(t, events.Create(ctx, openEvent("evt-1", start)))
	require.NoError(t, events.Create(ctx, openEvent("evt-2", start)))

	for _, b := range []*entities.Bid{
		{ID: "bid-1", UserID: "u-1", EventID: "evt-1", Side: entities.SideHome, Amount: 100, CreatedAt: start.Add(-time.Hour)},
		{ID: "bid-2", UserID: "u-1", EventID: "evt-2", Side: entities.SideAway, Amount: 50, CreatedAt: start.Add(-time.Hour)},
		{ID: "bid-3", UserID: "u-2", EventID: "evt-1", Side: entities.SideAway, Amount: 75, CreatedAt: start.Add(-time.Hour)},
	} {
		require.NoError(t, bids.Create(ctx, asUser(b.UserID), b, start.Add(24*time.Hour)))
	}

	userPage, err := bids.ListByUser(ctx, "u-1", 10, "")
	require.NoError(t, err)
	assert.Len(t, userPage.Bids, 2)

	eventBids, err := bids.ListByEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Len(t, eventBids, 2)

	err = bids.Delete(ctx, asUser("u-2"), "u-1", "bid-1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden), "cancelling another user's bid must fail")

	require.NoError(t, bids.Delete(ctx, asUser("u-1"), "u-1", "bid-1"))
	eventBids, err = bids.ListByEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Len(t, eventBids, 1)

	err = bids.Delete(ctx, asUser("u-1"), "u-1", "bid-1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBetRepositoryCreateAllIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	bets := NewBetRepository(store, testLogger())

	pair := []*entities.Bet{
		{ID: "bet-1", UserID: "u-1", EventID: "evt-1", MatchID: "m-1", OpponentID: "u-2",
			Side: entities.SideHome, Amount: 100, Status: entities.BetPending,
			EventDate: "2025-11-09", Season: "2025", CreatedAt: time.Now().UTC()},
		{ID: "bet-2", UserID: "u-2", EventID: "evt-1", MatchID: "m-1", OpponentID: "u-1",
			Side: entities.SideAway, Amount: 100, Status: entities.BetPending,
			EventDate: "2025-11-09", Season: "2025", CreatedAt: time.Now().UTC()},
	}
	require.NoError(t, bets.CreateAll(ctx, pair))
	require.NoError(t, bets.CreateAll(ctx, pair), "re-run must be a no-op")
	assert.Equal(t, 2, store.Len())

	byEvent, err := bets.ListByEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	byDate, err := bets.ListByDate(ctx, "2025-11-09", 10, "")
	require.NoError(t, err)
	assert.Len(t, byDate.Bets, 2)

	byUser, err := bets.ListByUser(ctx, "u-1", 10, "")
	require.NoError(t, err)
	require.Len(t, byUser.Bets, 1)
	assert.Equal(t, "u-2", byUser.Bets[0].OpponentID)
}

func TestOutcomeRepositoryRankings(t *testing.T) {
	ctx := context.Background()
	repo := NewOutcomeRepository(memory.NewStore(), testLogger())

	now := time.Now().UTC()
	outcomes := []*entities.Outcome{
		{ID: "bet-1", UserID: "u-1", EventID: "evt-1", BetID: "bet-1", Season: "2025", Score: 100, CreatedAt: now},
		{ID: "bet-2", UserID: "u-1", EventID: "evt-2", BetID: "bet-2", Season: "2025", Score: -40, CreatedAt: now},
		{ID: "bet-3", UserID: "u-2", EventID: "evt-1", BetID: "bet-3", Season: "2025", Score: 250, CreatedAt: now},
		{ID: "bet-4", UserID: "u-3", EventID: "evt-2", BetID: "bet-4", Season: "2025", Score: -10, CreatedAt: now},
		{ID: "bet-5", UserID: "u-9", EventID: "evt-9", BetID: "bet-5", Season: "2024", Score: 999, CreatedAt: now},
	}
	for _, o := range outcomes {
		require.NoError(t, repo.Create(ctx, o))
	}

	t.Run("settling a bet twice conflicts", func(t *testing.T) {
		err := repo.Create(ctx, outcomes[0])
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("rankings aggregate and order by season total", func(t *testing.T) {
		rankings, err := repo.GetRankings(ctx, "2025", 10)
		require.NoError(t, err)
		require.Len(t, rankings, 3)
		assert.Equal(t, entities.RankingEntry{UserID: "u-2", Score: 250}, rankings[0])
		assert.Equal(t, entities.RankingEntry{UserID: "u-1", Score: 60}, rankings[1])
		assert.Equal(t, entities.RankingEntry{UserID: "u-3", Score: -10}, rankings[2])
	})

	t.Run("limit truncates", func(t *testing.T) {
		rankings, err := repo.GetRankings(ctx, "2025", 1)
		require.NoError(t, err)
		require.Len(t, rankings, 1)
		assert.Equal(t, "u-2", rankings[0].UserID)
	})

	t.Run("user listing", func(t *testing.T) {
		page, err := repo.ListByUser(ctx, "u-1", 10, "")
		require.NoError(t, err)
		assert.Len(t, page.Outcomes, 2)
	})
}

func TestLeagueRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewLeagueRepository(memory.NewStore(), testLogger())

	now := time.Now().UTC()
	league := &entities.League{ID: "lg-1", Name: "Sunday Degens", AdminUserID: "u-1", CreatedAt: now}
	admin := &entities.Membership{UserID: "u-1", LeagueID: "lg-1", DisplayName: "alice", JoinedAt: now}
	require.NoError(t, repo.Create(ctx, asUser("u-1"), league, admin))

	t.Run("duplicate league conflicts", func(t *testing.T) {
		err := repo.Create(ctx, asUser("u-1"), league, admin)
		assert.True(t, apperrors.IsConflict(err))
	})

	member := &entities.Membership{UserID: "u-2", LeagueID: "lg-1", DisplayName: "bob", JoinedAt: now}
	require.NoError(t, repo.Join(ctx, asUser("u-2"), member))

	t.Run("joining twice conflicts", func(t *testing.T) {
		err := repo.Join(ctx, asUser("u-2"), member)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("joining on behalf of another user is forbidden", func(t *testing.T) {
		impostor := &entities.Membership{UserID: "u-3", LeagueID: "lg-1", DisplayName: "carol", JoinedAt: now}
		err := repo.Join(ctx, asUser("u-2"), impostor)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	})

	t.Run("list members", func(t *testing.T) {
		members, err := repo.ListMembers(ctx, "lg-1")
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("list a user's leagues", func(t *testing.T) {
		leagues, err := repo.ListForUser(ctx, "u-2")
		require.NoError(t, err)
		require.Len(t, leagues, 1)
		assert.Equal(t, "lg-1", leagues[0].LeagueID)
	})
}
