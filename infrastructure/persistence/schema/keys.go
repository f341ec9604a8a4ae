package schema

import "fmt"

// Key prefixes for the single-table layout.
const (
	prefixUser    = "USER#"
	prefixLeague  = "LEAGUE#"
	prefixMember  = "MEMBER#"
	prefixEvent   = "EVENT#"
	prefixBid     = "BID#"
	prefixBet     = "BET#"
	prefixOutcome = "OUTCOME#"
	prefixDate    = "DATE#"
	prefixRank    = "RANK#"
	prefixScore   = "SCORE#"

	sortProfile = "PROFILE"
	sortMeta    = "META"
	sortLock    = "LOCK"
)

// rankBias shifts signed season scores into non-negative space so the
// zero-padded sort key orders lexicographically the same as numerically.
const rankBias int64 = 1_000_000_000_000

// UserKey addresses a user profile row.
func UserKey(userID string) Key {
	return Key{Partition: prefixUser + userID, Sort: sortProfile}
}

// LeagueKey addresses a league metadata row.
func LeagueKey(leagueID string) Key {
	return Key{Partition: prefixLeague + leagueID, Sort: sortMeta}
}

// MembershipKey addresses a user's membership in a league.
func MembershipKey(userID, leagueID string) Key {
	return Key{Partition: prefixUser + userID, Sort: prefixLeague + leagueID}
}

// MembershipGSI1 projects the membership under the league partition so all
// members of a league are one query.
func MembershipGSI1(leagueID, userID string) Key {
	return Key{Partition: prefixLeague + leagueID, Sort: prefixMember + userID}
}

// EventKey addresses a marketplace event row.
func EventKey(eventID string) Key {
	return Key{Partition: prefixEvent + eventID, Sort: sortMeta}
}

// EventGSI1 projects the event under its calendar date.
func EventGSI1(date, eventID string) Key {
	return Key{Partition: prefixDate + date, Sort: prefixEvent + eventID}
}

// BidKey addresses a bid under its owning user.
func BidKey(userID, bidID string) Key {
	return Key{Partition: prefixUser + userID, Sort: prefixBid + bidID}
}

// BidGSI1 projects the bid under its event for matching.
func BidGSI1(eventID, bidID string) Key {
	return Key{Partition: prefixEvent + eventID, Sort: prefixBid + bidID}
}

// BetKey addresses a bet under its owning user.
func BetKey(userID, betID string) Key {
	return Key{Partition: prefixUser + userID, Sort: prefixBet + betID}
}

// BetGSI1 projects the bet under its event date.
func BetGSI1(date, betID string) Key {
	return Key{Partition: prefixDate + date, Sort: prefixBet + betID}
}

// BetGSI2 projects the bet under its event for settlement.
func BetGSI2(eventID, betID string) Key {
	return Key{Partition: prefixEvent + eventID, Sort: prefixBet + betID}
}

// OutcomeKey addresses a settled outcome under its owning user, keyed by the
// bet it settles so resolution is naturally idempotent.
func OutcomeKey(userID, betID string) Key {
	return Key{Partition: prefixUser + userID, Sort: prefixOutcome + betID}
}

// OutcomeGSI1 projects the outcome into the per-season ranking partition.
func OutcomeGSI1(season string, score int64, userID string) Key {
	return Key{Partition: prefixRank + season, Sort: RankSortKey(score, userID)}
}

// RankSortKey encodes a signed score as a fixed-width decimal so that
// lexicographic order over the sort key matches numeric order over scores.
func RankSortKey(score int64, userID string) string {
	return fmt.Sprintf("%s%013d#%s", prefixScore, rankBias+score, userID)
}

// LockKey addresses the one-shot lock marker for an event.
func LockKey(eventID string) Key {
	return Key{Partition: prefixEvent + eventID, Sort: sortLock}
}

// Query partition and prefix helpers used by repositories.

// UserPartition is the primary partition holding a user's profile, bids,
// bets, outcomes, and memberships.
func UserPartition(userID string) string { return prefixUser + userID }

// LeaguePartition is the GSI1 partition listing a league's members.
func LeaguePartition(leagueID string) string { return prefixLeague + leagueID }

// EventPartition is the GSI partition holding an event's bids and bets.
func EventPartition(eventID string) string { return prefixEvent + eventID }

// DatePartition is the GSI1 partition holding a date's events and bets.
func DatePartition(date string) string { return prefixDate + date }

// RankPartition is the GSI1 partition holding a season's scored outcomes.
func RankPartition(season string) string { return prefixRank + season }

// Sort-key prefixes for range queries within a partition.
const (
	SortPrefixBid     = prefixBid
	SortPrefixBet     = prefixBet
	SortPrefixOutcome = prefixOutcome
	SortPrefixEvent   = prefixEvent
	SortPrefixLeague  = prefixLeague
	SortPrefixMember  = prefixMember
	SortPrefixScore   = prefixScore
)
