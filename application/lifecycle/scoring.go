package lifecycle

import (
	"strconv"
	"strings"

	"sidebet-backend/domain/entities"
)

// ParseSpread splits a line like "KC -3.5" into the favored team's
// abbreviation and the (negative) point spread. A blank or malformed line
// reports ok=false and the game settles on the raw score.
func ParseSpread(spread string) (abbrev string, points float64, ok bool) {
	fields := strings.Fields(spread)
	if len(fields) != 2 {
		return "", 0, false
	}
	points, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "", 0, false
	}
	return fields[0], points, true
}

// winningSide applies the spread to the final score and returns the covering
// side, or nil on a push.
func winningSide(event *entities.MarketplaceEvent) *entities.Side {
	home := event.Result.HomeScore
	away := event.Result.AwayScore

	if abbrev, points, ok := ParseSpread(event.Spread); ok {
		switch abbrev {
		case event.HomeAbbrev:
			home += points
		case event.AwayAbbrev:
			away += points
		}
	}

	switch {
	case home > away:
		side := entities.SideHome
		return &side
	case away > home:
		side := entities.SideAway
		return &side
	default:
		return nil
	}
}

// ScoreBet settles one bet against a resolved event: the covering side wins
// its stake, the other side loses its stake, and a push moves nothing.
func ScoreBet(bet *entities.Bet, event *entities.MarketplaceEvent) (entities.BetStatus, int64) {
	winner := winningSide(event)
	if winner == nil {
		return entities.BetPush, 0
	}
	if bet.Side == *winner {
		return entities.BetWon, bet.Amount
	}
	return entities.BetLost, -bet.Amount
}
