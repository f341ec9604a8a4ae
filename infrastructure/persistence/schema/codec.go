package schema

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"sidebet-backend/domain/entities"
)

// Wire shapes carry entity payloads. Keys and index projections live on the
// Record, never in the payload, so key layout can evolve independently.

type userPayload struct {
	ID          string    `dynamodbav:"ID"`
	DisplayName string    `dynamodbav:"DisplayName"`
	Email       string    `dynamodbav:"Email,omitempty"`
	CreatedAt   time.Time `dynamodbav:"CreatedAt"`
	UpdatedAt   time.Time `dynamodbav:"UpdatedAt"`
}

// EncodeUser maps a user profile to its row.
func EncodeUser(u *entities.User) (Record, error) {
	payload, err := attributevalue.MarshalMap(userPayload{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	})
	if err != nil {
		return Record{}, err
	}
	return Record{
		Key:        UserKey(u.ID),
		EntityType: TypeUser,
		Payload:    payload,
	}, nil
}

// DecodeUser maps a row back to a user profile.
func DecodeUser(rec Record) (*entities.User, error) {
	if rec.EntityType != TypeUser {
		return nil, &DecodeError{EntityType: rec.EntityType, Field: AttrEntityType, Reason: "expected " + TypeUser}
	}
	var p userPayload
	if err := attributevalue.UnmarshalMap(rec.Payload, &p); err != nil {
		return nil, &DecodeError{EntityType: TypeUser, Field: "payload", Reason: err.Error()}
	}
	if p.ID == "" {
		return nil, &DecodeError{EntityType: TypeUser, Field: "ID", Reason: "empty"}
	}
	return &entities.User{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

type leaguePayload struct {
	ID          string    `dynamodbav:"ID"`
	Name        string    `dynamodbav:"Name"`
	AdminUserID string    `dynamodbav:"AdminUserID"`
	CreatedAt   time.Time `dynamodbav:"CreatedAt"`
}

// EncodeLeague maps a league to its metadata row.
func EncodeLeague(l *entities.League) (Record, error) {
	payload, err := attributevalue.MarshalMap(leaguePayload{
		ID:          l.ID,
		Name:        l.Name,
		AdminUserID: l.AdminUserID,
		CreatedAt:   l.CreatedAt,
	})
	if err != nil {
		return Record{}, err
	}
	return Record{
		Key:        LeagueKey(l.ID),
		EntityType: TypeLeague,
		Payload:    payload,
	}, nil
}

// DecodeLeague maps a metadata row back to a league.
func DecodeLeague(rec Record) (*entities.League, error) {
	if rec.EntityType != TypeLeague {
		return nil, &DecodeError{EntityType: rec.EntityType, Field: AttrEntityType, Reason: "expected " + TypeLeague}
	}
	var p leaguePayload
	if err := attributevalue.UnmarshalMap(rec.Payload, &p); err != nil {
		return nil, &DecodeError{EntityType: TypeLeague, Field: "payload", Reason: err.Error()}
	}
	if p.ID == "" {
		return nil, &DecodeError{EntityType: TypeLeague, Field: "ID", Reason: "empty"}
	}
	return &entities.League{
		ID:          p.ID,
		Name:        p.Name,
		AdminUserID: p.AdminUserID,
		CreatedAt:   p.CreatedAt,
	}, nil
}

type membershipPayload struct {
	UserID      string    `dynamodbav:"UserID"`
	LeagueID    string    `dynamodbav:"LeagueID"`
	DisplayName string    `dynamodbav:"DisplayName"`
	JoinedAt    time.Time `dynamodbav:"JoinedAt"`
}

// EncodeMembership maps a membership to its row. The row lives in the user
// partition and projects into the league partition on GSI1.
func EncodeMembership(m *entities.Membership) (Record, error) {
	payload, err := attributevalue.MarshalMap(membershipPayload{
		UserID:      m.UserID,
		LeagueID:    m.LeagueID,
		DisplayName: m.DisplayName,
		JoinedAt:    m.JoinedAt,
	})
	if err != nil {
		return Record{}, err
	}
	gsi1 := MembershipGSI1(m.LeagueID, m.UserID)
	return Record{
		Key:        MembershipKey(m.UserID, m.LeagueID),
		GSI1:       &gsi1,
		EntityType: TypeMembership,
		Payload:    payload,
	}, nil
}

// DecodeMembership maps a row back to a membership.
func DecodeMembership(rec Record) (*entities.Membership, error) {
	if rec.EntityType != TypeMembership {
		return nil, &DecodeError{EntityType: rec.EntityType, Field: AttrEntityType, Reason: "expected " + TypeMembership}
	}
	var p membershipPayload
	if err := attributevalue.UnmarshalMap(rec.Payload, &p); err != nil {
		return nil, &DecodeError{EntityType: TypeMembership, Field: "payload", Reason: err.Error()}
	}
	if p.UserID == "" || p.LeagueID == "" {
		return nil, &DecodeError{EntityType: TypeMembership, Field: "UserID/LeagueID", Reason: "empty"}
	}
	return &entities.Membership{
		UserID:      p.UserID,
		LeagueID:    p.LeagueID,
		DisplayName: p.DisplayName,
		JoinedAt:    p.JoinedAt,
	}, nil
}

type eventPayload struct {
	ID         string     `dynamodbav:"ID"`
	ExternalID string     `dynamodbav:"ExternalID,omitempty"`
	Kind       string     `dynamodbav:"Kind"`
	HomeTeam   string     `dynamodbav:"HomeTeam"`
	AwayTeam   string     `dynamodbav:"AwayTeam"`
	HomeAbbrev string     `dynamodbav:"HomeAbbrev,omitempty"`
	AwayAbbrev string     `dynamodbav:"AwayAbbrev,omitempty"`
	Spread     string     `dynamodbav:"Spread,omitempty"`
	StartTime  time.Time  `dynamodbav:"StartTime"`
	Status     string     `dynamodbav:"Status"`
	HomeAmount int64      `dynamodbav:"HomeAmount"`
	AwayAmount int64      `dynamodbav:"AwayAmount"`
	HomeScore  *float64   `dynamodbav:"HomeScore,omitempty"`
	AwayScore  *float64   `dynamodbav:"AwayScore,omitempty"`
	RecordedAt *time.Time `dynamodbav:"RecordedAt,omitempty"`
	CreatedAt  time.Time  `dynamodbav:"CreatedAt"`
}

// EncodeEvent maps a marketplace event to its row, including the date
// projection on GSI1 and the optimistic-concurrency version.
func EncodeEvent(e *entities.MarketplaceEvent) (Record, error) {
	p := eventPayload{
		ID:         e.ID,
		ExternalID: e.ExternalID,
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
		CreatedAt:  e.CreatedAt,
	}
	if e.Result != nil {
		p.HomeScore = &e.Result.HomeScore
		p.AwayScore = &e.Result.AwayScore
		p.RecordedAt = &e.Result.RecordedAt
	}
	payload, err := attributevalue.MarshalMap(p)
	if err != nil {
		return Record{}, err
	}
	gsi1 := EventGSI1(e.Date(), e.ID)
	return Record{
		Key:        EventKey(e.ID),
		GSI1:       &gsi1,
		EntityType: TypeEvent,
		Payload:    payload,
		Version:    e.Version,
	}, nil
}

// DecodeEvent maps a row back to a marketplace event.
func DecodeEvent(rec Record) (*entities.MarketplaceEvent, error) {
	if rec.EntityType != TypeEvent {
		return nil, &DecodeError{EntityType: rec.EntityType, Field: AttrEntityType, Reason: "expected " + TypeEvent}
	}
	var p eventPayload
	if err := attributevalue.UnmarshalMap(rec.Payload, &p); err != nil {
		return nil, &DecodeError{EntityType: TypeEvent, Field: "payload", Reason: err.Error()}
	}
	if p.ID == "" {
		return nil, &DecodeError{EntityType: TypeEvent, Field: "ID", Reason: "empty"}
	}
	status := entities.EventStatus(p.Status)
	switch status {
	case entities.EventOpen, entities.EventLocked, entities.EventResolved:
	default:
		return nil, &DecodeError{EntityType: TypeEvent, Field: "Status", Reason: "unknown value " + p.Status}
	}
	e := &entities.MarketplaceEvent{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		Kind:       p.Kind,
		HomeTeam:   p.HomeTeam,
		AwayTeam:   p.AwayTeam,
		HomeAbbrev: p.HomeAbbrev,
		AwayAbbrev: p.AwayAbbrev,
		Spread:     p.Spread,
		StartTime:  p.StartTime,
		Status:     status,
		HomeAmount: p.HomeAmount,
		AwayAmount: p.AwayAmount,
		Version:    rec.Version,
		CreatedAt:  p.CreatedAt,
	}
	if p.HomeScore != nil && p.AwayScore != nil {
		e.Result = &entities.EventResult{
			HomeScore: *p.HomeScore,
			AwayScore: *p.AwayScore,
		}
		if p.RecordedAt != nil {
			e.Result.RecordedAt = *p.RecordedAt
		}
	}
	return e, nil
}

type bidPayload struct {
	ID        string    `dynamodbav:"ID"`
	UserID    string    `dynamodbav:"UserID"`
	EventID   string    `dynamodbav:"EventID"`
	Side      string    `dynamodbav:"Side"`
	Amount    int64     `dynamodbav:"Amount"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
}

// EncodeBid maps a bid to its row. Unmatched bids carry a TTL so the table
// sheds them after the event has come and gone.
func EncodeBid(b *entities.Bid, expiresAt time.Time) (Record, error) {
	payload, err := attributevalue.MarshalMap(bidPayload{
		ID:        b.ID,
		UserID:    b.UserID,
		EventID:   b.EventID,
		Side:      string(b.Side),
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	})
	if err != nil {
		return Record{}, err
	}
	gsi1 := BidGSI1(b.EventID, b.ID)
	rec := Record{
		Key:        BidKey(b.UserID, b.ID),
		GSI1:       &gsi1,
		EntityType: TypeBid,
		Payload:    payload,
	}
	if !expiresAt.IsZero() {
		rec.TTL = expiresAt.Unix()
	}
	return rec, nil
}

// DecodeBid maps a row back to a bid.
func DecodeBid(rec Record) (*entities.Bid, error) {
	if rec.EntityType != TypeBid {
		return nil, &DecodeError{EntityType: rec.EntityType, Field: AttrEntityType, Reason: "expected " + TypeBid}
	}
	var p bidPayload
	if err := attributevalue.UnmarshalMap(rec.Payload, &p); err != nil {
		return nil, &DecodeError{EntityType: TypeBid, Field: "payload", Reason: err.Error()}
	}
	if p.ID == "" {
		return nil, &DecodeError{EntityType: TypeBid, Field: "ID", Reason: "empty"}
	}
	side := entities.Side(p.Side)
	if side != entities.SideHome && side != entities.SideAway {
		return nil, &DecodeError{EntityType: TypeBid, Field: "Side", Reason: "unknown value " + p.Side}
	}
	return &entities.Bid{
		ID:        p.ID,
		UserID:    p.UserID,
		EventID:   p.EventID,
		Side:      side,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
	}, nil
}

type betPayload struct {
	ID         string    `dynamodbav:"ID"`
	UserID     string    `dynamodbav:"UserID"`
	EventID    string    `dynamodbav:"EventID"`
	MatchID    string    `dynamodbav:"MatchID"`
	OpponentID string    `dynamodbav:"OpponentID"`
	Side       string    `dynamodbav:"Side"`
	Amount     int64     `dynamodbav:"Amount"`
	Status     string    `dynamodbav:"Status"`
	EventDate  string    `dynamodbav:"EventDate"`
	Season     string    `dynamodbav:"Season"`
	CreatedAt  time.Time `dynamodbav:"CreatedAt"`
}

// EncodeBet maps a bet to its row with date and event projections.
func EncodeBet(b *entities.Bet) (Record, error) {
	payload, err := attributevalue.MarshalMap(betPayload{
		ID:         b.ID,
		UserID:     b.UserID,
		EventID:    b.EventID,
		MatchID:    b.MatchID,
		OpponentID: b.OpponentID,
		Side:       string(b.Side),
		Amount:     b.Amount,
		Status:     string(b.Status),
		EventDate:  b.EventDate,
		Season:     b.Season,
		CreatedAt:  b.CreatedAt,
	})
	if err != nil {
		return Record{}, err
	}
	gsi1 := BetGSI1(b.EventDate, b.ID)
	gsi2 := BetGSI2(b.EventID, b.ID)
	return Record{
		Key:        BetKey(b.UserID, b.ID),
		GSI1:       &gsi1,
		GSI2:       &gsi2,
		EntityType: TypeBet,
		Payload:    payload,
	}, nil
}

// DecodeBet maps a row back to a bet.
func DecodeBet(rec Record) (*entities.Bet, error) {
	if rec.EntityType != TypeBet {
		return nil, &DecodeError{EntityType: rec.EntityType, Field: AttrEntityType, Reason: "expected " + TypeBet}
	}
	var p betPayload
	if err := attributevalue.UnmarshalMap(rec.Payload, &p); err != nil {
		return nil, &DecodeError{EntityType: TypeBet, Field: "payload", Reason: err.Error()}
	}
	if p.ID == "" {
		return nil, &DecodeError{EntityType: TypeBet, Field: "ID", Reason: "empty"}
	}
	side := entities.Side(p.Side)
	if side != entities.SideHome && side != entities.SideAway {
		return nil, &DecodeError{EntityType: TypeBet, Field: "Side", Reason: "unknown value " + p.Side}
	}
	status := entities.BetStatus(p.Status)
	switch status {
	case entities.BetPending, entities.BetWon, entities.BetLost, entities.BetPush:
	default:
		return nil, &DecodeError{EntityType: TypeBet, Field: "Status", Reason: "unknown value " + p.Status}
	}
	return &entities.Bet{
		ID:         p.ID,
		UserID:     p.UserID,
		EventID:    p.EventID,
		MatchID:    p.MatchID,
		OpponentID: p.OpponentID,
		Side:       side,
		Amount:     p.Amount,
		Status:     status,
		EventDate:  p.EventDate,
		Season:     p.Season,
		CreatedAt:  p.CreatedAt,
	}, nil
}

type outcomePayload struct {
	ID        string    `dynamodbav:"ID"`
	UserID    string    `dynamodbav:"UserID"`
	EventID   string    `dynamodbav:"EventID"`
	BetID     string    `dynamodbav:"BetID"`
	Season    string    `dynamodbav:"Season"`
	Score     int64     `dynamodbav:"Score"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
}

// EncodeOutcome maps a settled outcome to its row with the per-season
// ranking projection on GSI1.
func EncodeOutcome(o *entities.Outcome) (Record, error) {
	payload, err := attributevalue.MarshalMap(outcomePayload{
		ID:        o.ID,
		UserID:    o.UserID,
		EventID:   o.EventID,
		BetID:     o.BetID,
		Season:    o.Season,
		Score:     o.Score,
		CreatedAt: o.CreatedAt,
	})
	if err != nil {
		return Record{}, err
	}
	gsi1 := OutcomeGSI1(o.Season, o.Score, o.UserID)
	return Record{
		Key:        OutcomeKey(o.UserID, o.BetID),
		GSI1:       &gsi1,
		EntityType: TypeOutcome,
		Payload:    payload,
	}, nil
}

// DecodeOutcome maps a row back to an outcome.
func DecodeOutcome(rec Record) (*entities.Outcome, error) {
	if rec.EntityType != TypeOutcome {
		return nil, &DecodeError{EntityType: rec.EntityType, Field: AttrEntityType, Reason: "expected " + TypeOutcome}
	}
	var p outcomePayload
	if err := attributevalue.UnmarshalMap(rec.Payload, &p); err != nil {
		return nil, &DecodeError{EntityType: TypeOutcome, Field: "payload", Reason: err.Error()}
	}
	if p.BetID == "" {
		return nil, &DecodeError{EntityType: TypeOutcome, Field: "BetID", Reason: "empty"}
	}
	return &entities.Outcome{
		ID:        p.ID,
		UserID:    p.UserID,
		EventID:   p.EventID,
		BetID:     p.BetID,
		Season:    p.Season,
		Score:     p.Score,
		CreatedAt: p.CreatedAt,
	}, nil
}

type lockPayload struct {
	EventID   string    `dynamodbav:"EventID"`
	RuleName  string    `dynamodbav:"RuleName"`
	LockedAt  time.Time `dynamodbav:"LockedAt"`
	LockedBy  string    `dynamodbav:"LockedBy,omitempty"`
	ExpiresAt time.Time `dynamodbav:"LockExpiresAt"`
}

// EncodeLock maps a one-shot lock marker to its row. The marker is written
// conditionally so only one scheduler invocation proceeds per event.
func EncodeLock(eventID, ruleName, owner string, lockedAt, expiresAt time.Time) (Record, error) {
	payload, err := attributevalue.MarshalMap(lockPayload{
		EventID:   eventID,
		RuleName:  ruleName,
		LockedAt:  lockedAt,
		LockedBy:  owner,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return Record{}, err
	}
	return Record{
		Key:        LockKey(eventID),
		EntityType: TypeLock,
		Payload:    payload,
		TTL:        expiresAt.Unix(),
	}, nil
}
