package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	dynamorepo "sidebet-backend/infrastructure/persistence/dynamodb"
	"sidebet-backend/infrastructure/persistence/memory"
	"sidebet-backend/pkg/auth"
)

func asUser(userID string) auth.Identity {
	return auth.Identity{Subject: userID, Scopes: []string{auth.ScopeOpenID}}
}

type fakeFeed struct {
	mu       sync.Mutex
	upcoming map[string][]ports.FeedEvent
	results  map[string]ports.FeedResult
	pending  map[string]bool
	err      error
}

func (f *fakeFeed) FetchUpcomingEvents(ctx context.Context, kind string) ([]ports.FeedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.upcoming[kind], nil
}

func (f *fakeFeed) FetchResult(ctx context.Context, kind, externalID string) (ports.FeedResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending[externalID] {
		return ports.FeedResult{}, ports.ErrResultPending
	}
	return f.results[externalID], nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	removed   []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[string]time.Time)}
}

func (s *fakeScheduler) ScheduleLock(ctx context.Context, eventID string, at time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[eventID] = at
	return "lock-" + eventID, nil
}

func (s *fakeScheduler) RemoveRule(ctx context.Context, ruleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, ruleName)
	return nil
}

type fixture struct {
	events    *dynamorepo.EventRepository
	bids      *dynamorepo.BidRepository
	bets      *dynamorepo.BetRepository
	outcomes  *dynamorepo.OutcomeRepository
	feed      *fakeFeed
	scheduler *fakeScheduler
	orch      *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	f := &fixture{
		events:   dynamorepo.NewEventRepository(store, logger),
		bids:     dynamorepo.NewBidRepository(store, logger),
		bets:     dynamorepo.NewBetRepository(store, logger),
		outcomes: dynamorepo.NewOutcomeRepository(store, logger),
		feed: &fakeFeed{
			upcoming: make(map[string][]ports.FeedEvent),
			results:  make(map[string]ports.FeedResult),
			pending:  make(map[string]bool),
		},
		scheduler: newFakeScheduler(),
	}
	f.orch = NewOrchestrator(f.events, f.bids, f.bets, f.outcomes, f.feed, f.scheduler, []string{"nfl"}, 7, logger)
	return f
}

func TestMatchBidsPairsOldestFirst(t *testing.T) {
	now := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	event := &entities.MarketplaceEvent{ID: "evt-1", StartTime: now, Status: entities.EventOpen}

	bids := []*entities.Bid{
		{ID: "b-home-1", UserID: "u-1", EventID: "evt-1", Side: entities.SideHome, Amount: 100, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "b-away-1", UserID: "u-2", EventID: "evt-1", Side: entities.SideAway, Amount: 60, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "b-away-2", UserID: "u-3", EventID: "evt-1", Side: entities.SideAway, Amount: 70, CreatedAt: now.Add(-1 * time.Hour)},
	}

	bets, leftovers := MatchBids(event, bids, now)
	require.Len(t, bets, 4, "two fills, two bets each")

	// First fill: u-1 vs u-2 for 60.
	assert.Equal(t, int64(60), bets[0].Amount)
	assert.Equal(t, "u-1", bets[0].UserID)
	assert.Equal(t, "u-2", bets[0].OpponentID)
	assert.Equal(t, bets[0].MatchID, bets[1].MatchID)

	// Second fill: u-1's remaining 40 against u-3.
	assert.Equal(t, int64(40), bets[2].Amount)
	assert.Equal(t, "u-3", bets[2].OpponentID)
	assert.NotEqual(t, bets[0].MatchID, bets[2].MatchID)

	// u-3 still has 30 unmatched.
	require.Len(t, leftovers, 1)
	assert.Equal(t, "b-away-2", leftovers[0].ID)
}

func TestMatchBidsDeterministicIDs(t *testing.T) {
	now := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	event := &entities.MarketplaceEvent{ID: "evt-1", StartTime: now}
	bids := []*entities.Bid{
		{ID: "b-1", UserID: "u-1", EventID: "evt-1", Side: entities.SideHome, Amount: 50, CreatedAt: now.Add(-time.Hour)},
		{ID: "b-2", UserID: "u-2", EventID: "evt-1", Side: entities.SideAway, Amount: 50, CreatedAt: now.Add(-time.Hour)},
	}

	first, _ := MatchBids(event, bids, now)
	second, _ := MatchBids(event, bids, now.Add(time.Minute))
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID, "replays must regenerate identical ids")
	assert.Equal(t, first[1].ID, second[1].ID)
}

func TestMatchBidsOneSidedMarket(t *testing.T) {
	now := time.Now().UTC()
	event := &entities.MarketplaceEvent{ID: "evt-1", StartTime: now}
	bids := []*entities.Bid{
		{ID: "b-1", UserID: "u-1", EventID: "evt-1", Side: entities.SideHome, Amount: 50, CreatedAt: now},
		{ID: "b-2", UserID: "u-2", EventID: "evt-1", Side: entities.SideHome, Amount: 80, CreatedAt: now},
	}
	bets, leftovers := MatchBids(event, bids, now)
	assert.Empty(t, bets)
	assert.Len(t, leftovers, 2)
}

func TestParseSpread(t *testing.T) {
	abbrev, points, ok := ParseSpread("KC -3.5")
	require.True(t, ok)
	assert.Equal(t, "KC", abbrev)
	assert.Equal(t, -3.5, points)

	_, _, ok = ParseSpread("")
	assert.False(t, ok)

	_, _, ok = ParseSpread("pick em")
	assert.False(t, ok)
}

func TestScoreBet(t *testing.T) {
	event := &entities.MarketplaceEvent{
		ID:         "evt-1",
		HomeAbbrev: "KC",
		AwayAbbrev: "BUF",
		Spread:     "KC -3.5",
		Result:     &entities.EventResult{HomeScore: 27, AwayScore: 24},
	}
	homeBet := &entities.Bet{Side: entities.SideHome, Amount: 100}
	awayBet := &entities.Bet{Side: entities.SideAway, Amount: 100}

	t.Run("favorite fails to cover", func(t *testing.T) {
		// 27 - 3.5 = 23.5 < 24: away covers.
		status, score := ScoreBet(homeBet, event)
		assert.Equal(t, entities.BetLost, status)
		assert.Equal(t, int64(-100), score)

		status, score = ScoreBet(awayBet, event)
		assert.Equal(t, entities.BetWon, status)
		assert.Equal(t, int64(100), score)
	})

	t.Run("push on integer spread", func(t *testing.T) {
		pushEvent := &entities.MarketplaceEvent{
			HomeAbbrev: "KC", AwayAbbrev: "BUF", Spread: "KC -3",
			Result: &entities.EventResult{HomeScore: 27, AwayScore: 24},
		}
		status, score := ScoreBet(homeBet, pushEvent)
		assert.Equal(t, entities.BetPush, status)
		assert.Zero(t, score)
	})

	t.Run("no spread settles on raw score", func(t *testing.T) {
		straight := &entities.MarketplaceEvent{
			HomeAbbrev: "KC", AwayAbbrev: "BUF",
			Result: &entities.EventResult{HomeScore: 27, AwayScore: 24},
		}
		status, score := ScoreBet(homeBet, straight)
		assert.Equal(t, entities.BetWon, status)
		assert.Equal(t, int64(100), score)
	})
}

func TestPopulateOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC)

	f.feed.upcoming["nfl"] = []ports.FeedEvent{
		{ExternalID: "401", Kind: "nfl", HomeTeam: "Chiefs", AwayTeam: "Bills",
			HomeAbbrev: "KC", AwayAbbrev: "BUF", Spread: "KC -3.5",
			StartTime: now.Add(48 * time.Hour)},
		{ExternalID: "402", Kind: "nfl", HomeTeam: "Eagles", AwayTeam: "Cowboys",
			HomeAbbrev: "PHI", AwayAbbrev: "DAL",
			StartTime: now.Add(-time.Hour)},
	}

	result, err := f.orch.PopulateOnce(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, result.Failures)

	event, err := f.events.GetByID(ctx, "nfl-401")
	require.NoError(t, err)
	assert.Equal(t, entities.EventOpen, event.Status)
	assert.Equal(t, "KC -3.5", event.Spread)

	// Already-started games are not created.
	_, err = f.events.GetByID(ctx, "nfl-402")
	assert.Error(t, err)

	// A lock trigger exists for the new event only.
	assert.Contains(t, f.scheduler.scheduled, "nfl-401")
	assert.NotContains(t, f.scheduler.scheduled, "nfl-402")

	t.Run("second run is a no-op", func(t *testing.T) {
		before := len(f.scheduler.scheduled)
		_, err := f.orch.PopulateOnce(ctx, now)
		require.NoError(t, err)
		assert.Len(t, f.scheduler.scheduled, before)
	})
}

func TestPopulateOnceFeedDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.feed.err = assert.AnError

	result, err := f.orch.PopulateOnce(ctx, time.Now().UTC())
	require.NoError(t, err, "a dead feed defers the run, it does not error it")
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "feed:nfl", result.Failures[0].EventID)
}

func TestLockOnceConvertsBids(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)

	event := &entities.MarketplaceEvent{
		ID: "evt-1", ExternalID: "401", Kind: "nfl",
		HomeAbbrev: "KC", AwayAbbrev: "BUF",
		StartTime: start, Status: entities.EventOpen, CreatedAt: start.Add(-48 * time.Hour),
	}
	require.NoError(t, f.events.Create(ctx, event))

	for _, b := range []*entities.Bid{
		{ID: "b-1", UserID: "u-1", EventID: "evt-1", Side: entities.SideHome, Amount: 100, CreatedAt: start.Add(-2 * time.Hour)},
		{ID: "b-2", UserID: "u-2", EventID: "evt-1", Side: entities.SideAway, Amount: 100, CreatedAt: start.Add(-time.Hour)},
	} {
		require.NoError(t, f.bids.Create(ctx, asUser(b.UserID), b, start.Add(24*time.Hour)))
	}

	require.NoError(t, f.orch.LockOnce(ctx, "evt-1", "lock-evt-1", start))

	locked, err := f.events.GetByID(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, entities.EventLocked, locked.Status)
	assert.Equal(t, int64(100), locked.HomeAmount)
	assert.Equal(t, int64(100), locked.AwayAmount)

	bets, err := f.bets.ListByEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Len(t, bets, 2)

	t.Run("second invocation stands down", func(t *testing.T) {
		require.NoError(t, f.orch.LockOnce(ctx, "evt-1", "lock-evt-1", start.Add(time.Minute)))
		bets, err := f.bets.ListByEvent(ctx, "evt-1")
		require.NoError(t, err)
		assert.Len(t, bets, 2)
	})
}

func TestResolveOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	now := start.Add(4 * time.Hour)

	event := &entities.MarketplaceEvent{
		ID: "nfl-401", ExternalID: "401", Kind: "nfl",
		HomeAbbrev: "KC", AwayAbbrev: "BUF", Spread: "KC -3.5",
		StartTime: start, Status: entities.EventOpen, CreatedAt: start.Add(-48 * time.Hour),
	}
	require.NoError(t, f.events.Create(ctx, event))

	for _, b := range []*entities.Bid{
		{ID: "b-1", UserID: "u-1", EventID: "nfl-401", Side: entities.SideHome, Amount: 100, CreatedAt: start.Add(-2 * time.Hour)},
		{ID: "b-2", UserID: "u-2", EventID: "nfl-401", Side: entities.SideAway, Amount: 100, CreatedAt: start.Add(-time.Hour)},
	} {
		require.NoError(t, f.bids.Create(ctx, asUser(b.UserID), b, start.Add(24*time.Hour)))
	}

	t.Run("pending result defers the event", func(t *testing.T) {
		f.feed.pending["401"] = true
		result, err := f.orch.ResolveOnce(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, result.Processed)
		assert.Empty(t, result.Failures)

		// The overdue open event still got locked by the sweep.
		locked, err := f.events.GetByID(ctx, "nfl-401")
		require.NoError(t, err)
		assert.Equal(t, entities.EventLocked, locked.Status)
	})

	t.Run("final score settles bets and outcomes", func(t *testing.T) {
		f.feed.pending["401"] = false
		f.feed.results["401"] = ports.FeedResult{HomeScore: 27, AwayScore: 24}

		result, err := f.orch.ResolveOnce(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Empty(t, result.Failures)

		resolved, err := f.events.GetByID(ctx, "nfl-401")
		require.NoError(t, err)
		assert.Equal(t, entities.EventResolved, resolved.Status)
		require.NotNil(t, resolved.Result)

		// KC -3.5 with a 3-point win: away covers.
		bets, err := f.bets.ListByEvent(ctx, "nfl-401")
		require.NoError(t, err)
		require.Len(t, bets, 2)
		for _, bet := range bets {
			if bet.Side == entities.SideHome {
				assert.Equal(t, entities.BetLost, bet.Status)
			} else {
				assert.Equal(t, entities.BetWon, bet.Status)
			}
		}

		rankings, err := f.outcomes.GetRankings(ctx, "2025", 10)
		require.NoError(t, err)
		require.Len(t, rankings, 2)
		assert.Equal(t, entities.RankingEntry{UserID: "u-2", Score: 100}, rankings[0])
		assert.Equal(t, entities.RankingEntry{UserID: "u-1", Score: -100}, rankings[1])
	})

	t.Run("resolution is idempotent", func(t *testing.T) {
		result, err := f.orch.ResolveOnce(ctx, now)
		require.NoError(t, err)
		assert.Zero(t, result.Processed)

		rankings, err := f.outcomes.GetRankings(ctx, "2025", 10)
		require.NoError(t, err)
		require.Len(t, rankings, 2)
		assert.Equal(t, int64(100), rankings[0].Score, "scores must not double-count")
	})
}

func TestResolveOnceDefersWhileLockHeld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)

	event := &entities.MarketplaceEvent{
		ID: "nfl-401", ExternalID: "401", Kind: "nfl",
		HomeAbbrev: "KC", AwayAbbrev: "BUF",
		StartTime: start, Status: entities.EventOpen, CreatedAt: start.Add(-48 * time.Hour),
	}
	require.NoError(t, f.events.Create(ctx, event))

	for _, b := range []*entities.Bid{
		{ID: "b-1", UserID: "u-1", EventID: "nfl-401", Side: entities.SideHome, Amount: 100, CreatedAt: start.Add(-2 * time.Hour)},
		{ID: "b-2", UserID: "u-2", EventID: "nfl-401", Side: entities.SideAway, Amount: 100, CreatedAt: start.Add(-time.Hour)},
	} {
		require.NoError(t, f.bids.Create(ctx, asUser(b.UserID), b, start.Add(24*time.Hour)))
	}

	// A one-shot trigger claimed the marker but has not flipped the event
	// yet. The sweep must not match bids over its own snapshot.
	require.NoError(t, f.events.AcquireLock(ctx, "nfl-401", "lock-nfl-401", "trigger", now, now.Add(24*time.Hour)))

	result, err := f.orch.ResolveOnce(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
	assert.Empty(t, result.Failures)

	still, err := f.events.GetByID(ctx, "nfl-401")
	require.NoError(t, err)
	assert.Equal(t, entities.EventOpen, still.Status)

	bets, err := f.bets.ListByEvent(ctx, "nfl-401")
	require.NoError(t, err)
	assert.Empty(t, bets, "a second locker must not write bets")

	t.Run("resumes once the marker holder finished", func(t *testing.T) {
		require.NoError(t, f.orch.LockOnce(ctx, "nfl-401", "lock-nfl-401", now))

		// The trigger holds the marker, so LockOnce stood down; the event
		// is only released by the holder flipping it.
		locked, err := f.events.GetByID(ctx, "nfl-401")
		require.NoError(t, err)
		locked.Status = entities.EventLocked
		require.NoError(t, f.events.Update(ctx, locked))

		f.feed.results["401"] = ports.FeedResult{HomeScore: 21, AwayScore: 17}
		result, err := f.orch.ResolveOnce(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
	})
}

func TestResolveOnceSweepsPastDates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	start := now.AddDate(0, 0, -3)

	// A postponed game: locked days ago, result only final now.
	event := &entities.MarketplaceEvent{
		ID: "nfl-380", ExternalID: "380", Kind: "nfl",
		HomeAbbrev: "KC", AwayAbbrev: "BUF",
		StartTime: start, Status: entities.EventLocked, CreatedAt: start.Add(-48 * time.Hour),
	}
	require.NoError(t, f.events.Create(ctx, event))
	f.feed.results["380"] = ports.FeedResult{HomeScore: 31, AwayScore: 10}

	result, err := f.orch.ResolveOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Empty(t, result.Failures)

	resolved, err := f.events.GetByID(ctx, "nfl-380")
	require.NoError(t, err)
	assert.Equal(t, entities.EventResolved, resolved.Status)
}
