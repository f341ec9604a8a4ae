// Package feed implements the score-feed port against an ESPN-style
// scoreboard API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	apperrors "sidebet-backend/pkg/errors"
)

// League paths per event kind.
var leaguePaths = map[string]string{
	"nfl": "football/nfl",
	"cfb": "football/college-football",
}

// ESPNClient fetches schedules and scores from the scoreboard API.
type ESPNClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewESPNClient creates a feed client against the given base URL.
func NewESPNClient(baseURL string, logger *zap.Logger) *ESPNClient {
	return &ESPNClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Named("feed"),
	}
}

var _ ports.Feed = (*ESPNClient)(nil)

// Scoreboard payload, trimmed to the fields this backend reads.

type scoreboardResponse struct {
	Events []scoreboardEvent `json:"events"`
}

type scoreboardEvent struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Status       eventStatus   `json:"status"`
	Competitions []competition `json:"competitions"`
}

type eventStatus struct {
	Type struct {
		Completed bool `json:"completed"`
	} `json:"type"`
}

type competition struct {
	Competitors []competitor `json:"competitors"`
	Odds        []odds       `json:"odds"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		DisplayName  string `json:"displayName"`
		Abbreviation string `json:"abbreviation"`
	} `json:"team"`
}

type odds struct {
	Details string `json:"details"`
}

// FetchUpcomingEvents lists the provider's current scoreboard window for one
// kind. Games already completed are filtered out.
func (c *ESPNClient) FetchUpcomingEvents(ctx context.Context, kind string) ([]ports.FeedEvent, error) {
	board, err := c.fetchScoreboard(ctx, kind)
	if err != nil {
		return nil, err
	}

	events := make([]ports.FeedEvent, 0, len(board.Events))
	for _, se := range board.Events {
		if se.Status.Type.Completed || len(se.Competitions) == 0 {
			continue
		}
		fe, err := c.toFeedEvent(kind, se)
		if err != nil {
			c.logger.Warn("skipping malformed scoreboard event",
				zap.String("kind", kind),
				zap.String("id", se.ID),
				zap.Error(err))
			continue
		}
		events = append(events, fe)
	}
	return events, nil
}

// FetchResult reads the final score of one game off the scoreboard,
// reporting ErrResultPending until the provider marks it completed.
func (c *ESPNClient) FetchResult(ctx context.Context, kind, externalID string) (ports.FeedResult, error) {
	board, err := c.fetchScoreboard(ctx, kind)
	if err != nil {
		return ports.FeedResult{}, err
	}

	for _, se := range board.Events {
		if se.ID != externalID {
			continue
		}
		if !se.Status.Type.Completed {
			return ports.FeedResult{}, ports.ErrResultPending
		}
		if len(se.Competitions) == 0 {
			return ports.FeedResult{}, ports.ErrResultPending
		}
		return c.toResult(se.Competitions[0])
	}
	// Off the current window; the provider has rotated it out and no score
	// will ever appear here.
	return ports.FeedResult{}, apperrors.NewNotFoundError("scoreboard event " + externalID)
}

func (c *ESPNClient) fetchScoreboard(ctx context.Context, kind string) (*scoreboardResponse, error) {
	path, ok := leaguePaths[kind]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown event kind %q", kind))
	}
	url := fmt.Sprintf("%s/sports/%s/scoreboard", c.baseURL, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("build scoreboard request").WithCause(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("scoreboard", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUpstreamError("scoreboard",
			fmt.Errorf("status %d from %s", resp.StatusCode, url))
	}

	var board scoreboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return nil, apperrors.NewUpstreamError("scoreboard", err)
	}
	return &board, nil
}

func (c *ESPNClient) toFeedEvent(kind string, se scoreboardEvent) (ports.FeedEvent, error) {
	start, err := parseEventTime(se.Date)
	if err != nil {
		return ports.FeedEvent{}, err
	}
	comp := se.Competitions[0]
	home, away, err := splitCompetitors(comp)
	if err != nil {
		return ports.FeedEvent{}, err
	}

	fe := ports.FeedEvent{
		ExternalID: se.ID,
		Kind:       kind,
		HomeTeam:   home.Team.DisplayName,
		AwayTeam:   away.Team.DisplayName,
		HomeAbbrev: home.Team.Abbreviation,
		AwayAbbrev: away.Team.Abbreviation,
		StartTime:  start,
	}
	if len(comp.Odds) > 0 {
		fe.Spread = comp.Odds[0].Details
	}
	return fe, nil
}

func (c *ESPNClient) toResult(comp competition) (ports.FeedResult, error) {
	home, away, err := splitCompetitors(comp)
	if err != nil {
		return ports.FeedResult{}, err
	}
	homeScore, err := strconv.ParseFloat(home.Score, 64)
	if err != nil {
		return ports.FeedResult{}, apperrors.NewUpstreamError("scoreboard",
			fmt.Errorf("home score %q: %w", home.Score, err))
	}
	awayScore, err := strconv.ParseFloat(away.Score, 64)
	if err != nil {
		return ports.FeedResult{}, apperrors.NewUpstreamError("scoreboard",
			fmt.Errorf("away score %q: %w", away.Score, err))
	}
	return ports.FeedResult{HomeScore: homeScore, AwayScore: awayScore}, nil
}

func splitCompetitors(comp competition) (home, away competitor, err error) {
	for _, c := range comp.Competitors {
		switch c.HomeAway {
		case "home":
			home = c
		case "away":
			away = c
		}
	}
	if home.Team.DisplayName == "" || away.Team.DisplayName == "" {
		return home, away, fmt.Errorf("competition missing home or away side")
	}
	return home, away, nil
}

// parseEventTime accepts the feed's minute-precision timestamps as well as
// full RFC3339.
func parseEventTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event time %q", s)
}
