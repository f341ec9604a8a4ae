// Package handlers implements the REST API surface.
package handlers

import (
	"time"

	"sidebet-backend/domain/entities"
)

// Response shapes. Domain entities stay JSON-free; these are the only
// serialized forms.

type userResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toUserResponse(u *entities.User) userResponse {
	return userResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type leagueResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AdminUserID string    `json:"adminUserId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toLeagueResponse(l *entities.League) leagueResponse {
	return leagueResponse{
		ID:          l.ID,
		Name:        l.Name,
		AdminUserID: l.AdminUserID,
		CreatedAt:   l.CreatedAt,
	}
}

type membershipResponse struct {
	UserID      string    `json:"userId"`
	LeagueID    string    `json:"leagueId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
}

func toMembershipResponses(ms []*entities.Membership) []membershipResponse {
	out := make([]membershipResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, membershipResponse{
			UserID:      m.UserID,
			LeagueID:    m.LeagueID,
			DisplayName: m.DisplayName,
			JoinedAt:    m.JoinedAt,
		})
	}
	return out
}

type eventResultResponse struct {
	HomeScore  float64   `json:"homeScore"`
	AwayScore  float64   `json:"awayScore"`
	RecordedAt time.Time `json:"recordedAt"`
}

type eventResponse struct {
	ID         string               `json:"id"`
	Kind       string               `json:"kind"`
	HomeTeam   string               `json:"homeTeam"`
	AwayTeam   string               `json:"awayTeam"`
	HomeAbbrev string               `json:"homeAbbrev,omitempty"`
	AwayAbbrev string               `json:"awayAbbrev,omitempty"`
	Spread     string               `json:"spread,omitempty"`
	StartTime  time.Time            `json:"startTime"`
	Status     string               `json:"status"`
	HomeAmount int64                `json:"homeAmount"`
	AwayAmount int64                `json:"awayAmount"`
	Result     *eventResultResponse `json:"result,omitempty"`
}

func toEventResponse(e *entities.MarketplaceEvent) eventResponse {
	resp := eventResponse{
		ID:         e.ID,
		Kind:       e.Kind,
		HomeTeam:   e.HomeTeam,
		AwayTeam:   e.AwayTeam,
		HomeAbbrev: e.HomeAbbrev,
		AwayAbbrev: e.AwayAbbrev,
		Spread:     e.Spread,
		StartTime:  e.StartTime,
		Status:     string(e.Status),
		HomeAmount: e.HomeAmount,
		AwayAmount: e.AwayAmount,
	}
	if e.Result != nil {
		resp.Result = &eventResultResponse{
			HomeScore:  e.Result.HomeScore,
			AwayScore:  e.Result.AwayScore,
			RecordedAt: e.Result.RecordedAt,
		}
	}
	return resp
}

type eventPageResponse struct {
	Events    []eventResponse `json:"events"`
	NextToken string          `json:"nextToken,omitempty"`
}

type bidResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	EventID   string    `json:"eventId"`
	Side      string    `json:"side"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

func toBidResponse(b *entities.Bid) bidResponse {
	return bidResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		EventID:   b.EventID,
		Side:      string(b.Side),
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	}
}

type bidPageResponse struct {
	Bids      []bidResponse `json:"bids"`
	NextToken string        `json:"nextToken,omitempty"`
}

type betResponse struct {
	ID         string    `json:"id"`
	EventID    string    `json:"eventId"`
	MatchID    string    `json:"matchId"`
	OpponentID string    `json:"opponentId"`
	Side       string    `json:"side"`
	Amount     int64     `json:"amount"`
	Status     string    `json:"status"`
	EventDate  string    `json:"eventDate"`
	Season     string    `json:"season"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toBetResponse(b *entities.Bet) betResponse {
	return betResponse{
		ID:         b.ID,
		EventID:    b.EventID,
		MatchID:    b.MatchID,
		OpponentID: b.OpponentID,
		Side:       string(b.Side),
		Amount:     b.Amount,
		Status:     string(b.Status),
		EventDate:  b.EventDate,
		Season:     b.Season,
		CreatedAt:  b.CreatedAt,
	}
}

type betPageResponse struct {
	Bets      []betResponse `json:"bets"`
	NextToken string        `json:"nextToken,omitempty"`
}

type outcomeResponse struct {
	BetID     string    `json:"betId"`
	EventID   string    `json:"eventId"`
	Season    string    `json:"season"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

type outcomePageResponse struct {
	Outcomes  []outcomeResponse `json:"outcomes"`
	NextToken string            `json:"nextToken,omitempty"`
}

type rankingResponse struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Score  int64  `json:"score"`
}
