package dynamodb

import (
	"context"

	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	"sidebet-backend/infrastructure/persistence/abstractions"
	"sidebet-backend/infrastructure/persistence/schema"
	"sidebet-backend/pkg/auth"
	apperrors "sidebet-backend/pkg/errors"
)

// LeagueRepository stores leagues and memberships in the single table.
type LeagueRepository struct {
	store  abstractions.Store
	logger *zap.Logger
}

// NewLeagueRepository creates a league repository.
func NewLeagueRepository(store abstractions.Store, logger *zap.Logger) *LeagueRepository {
	return &LeagueRepository{store: store, logger: logger.Named("leagues")}
}

var _ ports.LeagueRepository = (*LeagueRepository)(nil)

// Create writes the league and the admin's founding membership.
func (r *LeagueRepository) Create(ctx context.Context, requester auth.Identity, league *entities.League, admin *entities.Membership) error {
	if err := auth.Authorize(requester, auth.ActionCreateLeague, admin.UserID); err != nil {
		return err
	}
	leagueRec, err := schema.EncodeLeague(league)
	if err != nil {
		return apperrors.NewInternalError("encode league").WithCause(err)
	}
	if err := r.store.Put(ctx, leagueRec, abstractions.Condition{Kind: abstractions.ConditionNotExists}); err != nil {
		return err
	}
	return r.Join(ctx, requester, admin)
}

// GetByID fetches league metadata.
func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (*entities.League, error) {
	rec, err := r.store.Get(ctx, schema.LeagueKey(leagueID))
	if err != nil {
		return nil, err
	}
	return schema.DecodeLeague(rec)
}

// Join adds a membership, failing Conflict if already a member.
func (r *LeagueRepository) Join(ctx context.Context, requester auth.Identity, membership *entities.Membership) error {
	if err := auth.Authorize(requester, auth.ActionJoinLeague, membership.UserID); err != nil {
		return err
	}
	rec, err := schema.EncodeMembership(membership)
	if err != nil {
		return apperrors.NewInternalError("encode membership").WithCause(err)
	}
	return r.store.Put(ctx, rec, abstractions.Condition{Kind: abstractions.ConditionNotExists})
}

// ListMembers returns every membership of a league via the league-partition
// projection.
func (r *LeagueRepository) ListMembers(ctx context.Context, leagueID string) ([]*entities.Membership, error) {
	var members []*entities.Membership
	token := ""
	for {
		page, err := r.store.Query(ctx, abstractions.IndexGSI1, schema.LeaguePartition(leagueID), abstractions.QueryOptions{
			SortPrefix: schema.SortPrefixMember,
			StartToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			m, decErr := schema.DecodeMembership(rec)
			if decErr != nil {
				r.logger.Warn("skipping malformed membership", zap.String("league_id", leagueID), zap.Error(decErr))
				continue
			}
			members = append(members, m)
		}
		if page.NextToken == "" {
			return members, nil
		}
		token = page.NextToken
	}
}

// ListForUser returns the leagues a user belongs to.
func (r *LeagueRepository) ListForUser(ctx context.Context, userID string) ([]*entities.Membership, error) {
	var memberships []*entities.Membership
	token := ""
	for {
		page, err := r.store.Query(ctx, abstractions.IndexPrimary, schema.UserPartition(userID), abstractions.QueryOptions{
			SortPrefix: schema.SortPrefixLeague,
			StartToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			m, decErr := schema.DecodeMembership(rec)
			if decErr != nil {
				r.logger.Warn("skipping malformed membership", zap.String("user_id", userID), zap.Error(decErr))
				continue
			}
			memberships = append(memberships, m)
		}
		if page.NextToken == "" {
			return memberships, nil
		}
		token = page.NextToken
	}
}
