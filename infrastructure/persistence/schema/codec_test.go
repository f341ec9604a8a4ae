package schema

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidebet-backend/domain/entities"
)

func TestEventCodecRoundTrip(t *testing.T) {
	start := time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC)
	event := &entities.MarketplaceEvent{
		ID:         "evt-1",
		ExternalID: "401547321",
		Kind:       "nfl",
		HomeTeam:   "Kansas City Chiefs",
		AwayTeam:   "Buffalo Bills",
		HomeAbbrev: "KC",
		AwayAbbrev: "BUF",
		Spread:     "KC -3.5",
		StartTime:  start,
		Status:     entities.EventOpen,
		HomeAmount: 250,
		AwayAmount: 100,
		Version:    3,
		CreatedAt:  start.Add(-72 * time.Hour),
	}

	rec, err := EncodeEvent(event)
	require.NoError(t, err)
	assert.Equal(t, Key{Partition: "EVENT#evt-1", Sort: "META"}, rec.Key)
	require.NotNil(t, rec.GSI1)
	assert.Equal(t, Key{Partition: "DATE#2025-11-09", Sort: "EVENT#evt-1"}, *rec.GSI1)
	assert.Equal(t, 3, rec.Version)

	decoded, err := DecodeEvent(rec)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.Spread, decoded.Spread)
	assert.Equal(t, entities.EventOpen, decoded.Status)
	assert.Equal(t, event.HomeAmount, decoded.HomeAmount)
	assert.True(t, event.StartTime.Equal(decoded.StartTime))
	assert.Nil(t, decoded.Result)
}

func TestEventCodecCarriesResult(t *testing.T) {
	event := &entities.MarketplaceEvent{
		ID:        "evt-2",
		Kind:      "cfb",
		HomeTeam:  "Georgia",
		AwayTeam:  "Alabama",
		StartTime: time.Date(2025, 9, 27, 23, 30, 0, 0, time.UTC),
		Status:    entities.EventResolved,
		Result: &entities.EventResult{
			HomeScore:  27,
			AwayScore:  24,
			RecordedAt: time.Date(2025, 9, 28, 3, 0, 0, 0, time.UTC),
		},
		Version:   5,
		CreatedAt: time.Now().UTC(),
	}

	rec, err := EncodeEvent(event)
	require.NoError(t, err)
	decoded, err := DecodeEvent(rec)
	require.NoError(t, err)
	require.NotNil(t, decoded.Result)
	assert.Equal(t, float64(27), decoded.Result.HomeScore)
	assert.Equal(t, float64(24), decoded.Result.AwayScore)
}

func TestDecodeEventRejectsUnknownStatus(t *testing.T) {
	event := &entities.MarketplaceEvent{
		ID:        "evt-3",
		Kind:      "nfl",
		StartTime: time.Now().UTC(),
		Status:    entities.EventOpen,
		CreatedAt: time.Now().UTC(),
	}
	rec, err := EncodeEvent(event)
	require.NoError(t, err)

	rec.Payload["Status"] = &types.AttributeValueMemberS{Value: "HALFTIME"}
	_, err = DecodeEvent(rec)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestDecodeRejectsEntityTypeMismatch(t *testing.T) {
	user := &entities.User{ID: "u-1", DisplayName: "alice", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	rec, err := EncodeUser(user)
	require.NoError(t, err)

	_, err = DecodeBid(rec)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestBidCodecRoundTrip(t *testing.T) {
	created := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	bid := &entities.Bid{
		ID:        "bid-1",
		UserID:    "u-1",
		EventID:   "evt-1",
		Side:      entities.SideAway,
		Amount:    150,
		CreatedAt: created,
	}

	rec, err := EncodeBid(bid, created.Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Key{Partition: "USER#u-1", Sort: "BID#bid-1"}, rec.Key)
	require.NotNil(t, rec.GSI1)
	assert.Equal(t, Key{Partition: "EVENT#evt-1", Sort: "BID#bid-1"}, *rec.GSI1)
	assert.Equal(t, created.Add(7*24*time.Hour).Unix(), rec.TTL)

	decoded, err := DecodeBid(rec)
	require.NoError(t, err)
	assert.Equal(t, bid.ID, decoded.ID)
	assert.Equal(t, entities.SideAway, decoded.Side)
	assert.Equal(t, int64(150), decoded.Amount)
}

func TestOutcomeRankProjection(t *testing.T) {
	o := &entities.Outcome{
		ID:        "bet-9",
		UserID:    "u-2",
		EventID:   "evt-1",
		BetID:     "bet-9",
		Season:    "2025",
		Score:     -75,
		CreatedAt: time.Now().UTC(),
	}
	rec, err := EncodeOutcome(o)
	require.NoError(t, err)
	assert.Equal(t, Key{Partition: "USER#u-2", Sort: "OUTCOME#bet-9"}, rec.Key)
	require.NotNil(t, rec.GSI1)
	assert.Equal(t, "RANK#2025", rec.GSI1.Partition)
	assert.Equal(t, "SCORE#0999999999925#u-2", rec.GSI1.Sort)
}

func TestRankSortKeyOrdersNumerically(t *testing.T) {
	scores := []int64{-500, -1, 0, 1, 250, 100000}
	var prev string
	for i, s := range scores {
		key := RankSortKey(s, "u")
		if i > 0 {
			assert.Greater(t, key, prev, "score %d must sort after %d", s, scores[i-1])
		}
		prev = key
	}
}

func TestItemRoundTrip(t *testing.T) {
	bet := &entities.Bet{
		ID:         "bet-1",
		UserID:     "u-1",
		EventID:    "evt-1",
		MatchID:    "m-1",
		OpponentID: "u-2",
		Side:       entities.SideHome,
		Amount:     100,
		Status:     entities.BetPending,
		EventDate:  "2025-11-09",
		Season:     "2025",
		CreatedAt:  time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC),
	}
	rec, err := EncodeBet(bet)
	require.NoError(t, err)

	item := rec.ToItem()
	back, err := FromItem(item)
	require.NoError(t, err)
	assert.Equal(t, rec.Key, back.Key)
	assert.Equal(t, rec.EntityType, back.EntityType)
	require.NotNil(t, back.GSI1)
	require.NotNil(t, back.GSI2)
	assert.Equal(t, *rec.GSI1, *back.GSI1)
	assert.Equal(t, *rec.GSI2, *back.GSI2)

	decoded, err := DecodeBet(back)
	require.NoError(t, err)
	assert.Equal(t, bet, decoded)
}

func TestFromItemRejectsMissingKeys(t *testing.T) {
	_, err := FromItem(map[string]types.AttributeValue{
		"SK": &types.AttributeValueMemberS{Value: "META"},
	})
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}
