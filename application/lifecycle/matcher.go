// Package lifecycle drives the scheduled marketplace jobs: populating events
// from the score feed, locking markets at start time, and settling bets once
// results are final.
package lifecycle

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"sidebet-backend/domain/entities"
)

// matchNamespace seeds deterministic match and bet ids, so re-running the
// lock job after a partial failure regenerates the same rows instead of
// duplicating them.
var matchNamespace = uuid.MustParse("8e0f7c6a-1f7d-4b3a-9a56-3f1f4f0c2d11")

type openBid struct {
	bid       *entities.Bid
	remaining int64
}

// MatchBids pairs opposing bids on one event into bets. Bids are taken
// oldest first; each pairing fills the smaller remaining amount, and a
// larger bid keeps matching against later counterparts. Whatever cannot be
// paired comes back as leftovers and simply expires with the market.
func MatchBids(event *entities.MarketplaceEvent, bids []*entities.Bid, now time.Time) ([]*entities.Bet, []*entities.Bid) {
	sorted := make([]*entities.Bid, len(bids))
	copy(sorted, bids)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var home, away []*openBid
	for _, b := range sorted {
		entry := &openBid{bid: b, remaining: b.Amount}
		if b.Side == entities.SideHome {
			home = append(home, entry)
		} else {
			away = append(away, entry)
		}
	}

	var bets []*entities.Bet
	for len(home) > 0 && len(away) > 0 {
		h, a := home[0], away[0]

		fill := h.remaining
		if a.remaining < fill {
			fill = a.remaining
		}
		bets = append(bets, betPair(event, h.bid, a.bid, fill, now)...)

		h.remaining -= fill
		a.remaining -= fill
		if h.remaining == 0 {
			home = home[1:]
		}
		if a.remaining == 0 {
			away = away[1:]
		}
	}

	var leftovers []*entities.Bid
	for _, entry := range append(home, away...) {
		leftovers = append(leftovers, entry.bid)
	}
	return bets, leftovers
}

// betPair builds the two mirrored bets of one fill. Ids derive from the
// event and the two bid ids, which are unique per pairing.
func betPair(event *entities.MarketplaceEvent, homeBid, awayBid *entities.Bid, amount int64, now time.Time) []*entities.Bet {
	matchID := uuid.NewSHA1(matchNamespace, []byte(event.ID+"|"+homeBid.ID+"|"+awayBid.ID)).String()
	date := event.Date()
	season := event.Season()

	build := func(own, opponent *entities.Bid, side entities.Side) *entities.Bet {
		return &entities.Bet{
			ID:         uuid.NewSHA1(matchNamespace, []byte(matchID+"|"+string(side))).String(),
			UserID:     own.UserID,
			EventID:    event.ID,
			MatchID:    matchID,
			OpponentID: opponent.UserID,
			Side:       side,
			Amount:     amount,
			Status:     entities.BetPending,
			EventDate:  date,
			Season:     season,
			CreatedAt:  now,
		}
	}
	return []*entities.Bet{
		build(homeBid, awayBid, entities.SideHome),
		build(awayBid, homeBid, entities.SideAway),
	}
}
