package dynamodb

import (
	"context"

	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	"sidebet-backend/infrastructure/persistence/abstractions"
	"sidebet-backend/infrastructure/persistence/schema"
	apperrors "sidebet-backend/pkg/errors"
)

// BetRepository stores matched bets in the single table.
type BetRepository struct {
	store  abstractions.Store
	logger *zap.Logger
}

// NewBetRepository creates a bet repository.
func NewBetRepository(store abstractions.Store, logger *zap.Logger) *BetRepository {
	return &BetRepository{store: store, logger: logger.Named("bets")}
}

var _ ports.BetRepository = (*BetRepository)(nil)

// CreateAll writes the matched bets with create-if-absent semantics, so a
// re-run after a partial failure converges instead of duplicating.
func (r *BetRepository) CreateAll(ctx context.Context, bets []*entities.Bet) error {
	for _, bet := range bets {
		rec, err := schema.EncodeBet(bet)
		if err != nil {
			return apperrors.NewInternalError("encode bet").WithCause(err)
		}
		err = r.store.Put(ctx, rec, abstractions.Condition{Kind: abstractions.ConditionNotExists})
		if apperrors.IsConflict(err) {
			r.logger.Debug("bet already written", zap.String("bet_id", bet.ID))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches one bet owned by a user.
func (r *BetRepository) GetByID(ctx context.Context, userID, betID string) (*entities.Bet, error) {
	rec, err := r.store.Get(ctx, schema.BetKey(userID, betID))
	if err != nil {
		return nil, err
	}
	return schema.DecodeBet(rec)
}

// Update replaces a bet, typically to settle its status.
func (r *BetRepository) Update(ctx context.Context, bet *entities.Bet) error {
	rec, err := schema.EncodeBet(bet)
	if err != nil {
		return apperrors.NewInternalError("encode bet").WithCause(err)
	}
	return r.store.Put(ctx, rec, abstractions.Condition{})
}

// ListByUser pages a user's bets.
func (r *BetRepository) ListByUser(ctx context.Context, userID string, limit int, startToken string) (ports.BetPage, error) {
	page, err := r.store.Query(ctx, abstractions.IndexPrimary, schema.UserPartition(userID), abstractions.QueryOptions{
		SortPrefix: schema.SortPrefixBet,
		Limit:      limit,
		StartToken: startToken,
	})
	if err != nil {
		return ports.BetPage{}, err
	}
	return r.decodePage(page, "user", userID), nil
}

// ListByEvent returns every bet on an event via the event projection.
func (r *BetRepository) ListByEvent(ctx context.Context, eventID string) ([]*entities.Bet, error) {
	var bets []*entities.Bet
	token := ""
	for {
		page, err := r.store.Query(ctx, abstractions.IndexGSI2, schema.EventPartition(eventID), abstractions.QueryOptions{
			SortPrefix: schema.SortPrefixBet,
			StartToken: token,
		})
		if err != nil {
			return nil, err
		}
		decoded := r.decodePage(page, "event", eventID)
		bets = append(bets, decoded.Bets...)
		if page.NextToken == "" {
			return bets, nil
		}
		token = page.NextToken
	}
}

// ListByDate pages the bets whose event falls on one calendar date.
func (r *BetRepository) ListByDate(ctx context.Context, date string, limit int, startToken string) (ports.BetPage, error) {
	page, err := r.store.Query(ctx, abstractions.IndexGSI1, schema.DatePartition(date), abstractions.QueryOptions{
		SortPrefix: schema.SortPrefixBet,
		Limit:      limit,
		StartToken: startToken,
	})
	if err != nil {
		return ports.BetPage{}, err
	}
	return r.decodePage(page, "date", date), nil
}

func (r *BetRepository) decodePage(page abstractions.QueryResult, scope, scopeValue string) ports.BetPage {
	result := ports.BetPage{NextToken: page.NextToken}
	for _, rec := range page.Records {
		bet, err := schema.DecodeBet(rec)
		if err != nil {
			r.logger.Warn("skipping malformed bet", zap.String(scope, scopeValue), zap.Error(err))
			continue
		}
		result.Bets = append(result.Bets, bet)
	}
	return result
}
