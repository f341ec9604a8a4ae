package dynamodb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	"sidebet-backend/infrastructure/persistence/abstractions"
	"sidebet-backend/infrastructure/persistence/schema"
	"sidebet-backend/pkg/auth"
	apperrors "sidebet-backend/pkg/errors"
)

// BidRepository stores open bids in the single table.
type BidRepository struct {
	store  abstractions.Store
	logger *zap.Logger
}

// NewBidRepository creates a bid repository.
func NewBidRepository(store abstractions.Store, logger *zap.Logger) *BidRepository {
	return &BidRepository{store: store, logger: logger.Named("bids")}
}

var _ ports.BidRepository = (*BidRepository)(nil)

// Create writes a new bid inside a transaction that asserts the target event
// is still open. A bid racing the lock job therefore fails Conflict instead
// of slipping into a locked market.
func (r *BidRepository) Create(ctx context.Context, requester auth.Identity, bid *entities.Bid, expiresAt time.Time) error {
	if err := auth.Authorize(requester, auth.ActionCreateBid, bid.UserID); err != nil {
		return err
	}
	rec, err := schema.EncodeBid(bid, expiresAt)
	if err != nil {
		return apperrors.NewInternalError("encode bid").WithCause(err)
	}
	return r.store.TransactPut(ctx, rec,
		abstractions.Condition{Kind: abstractions.ConditionNotExists},
		openEventCheck(bid.EventID))
}

// Update replaces a bid's side and amount under the same open-event
// assertion.
func (r *BidRepository) Update(ctx context.Context, requester auth.Identity, bid *entities.Bid, expiresAt time.Time) error {
	if err := auth.Authorize(requester, auth.ActionUpdateBid, bid.UserID); err != nil {
		return err
	}
	if _, err := r.GetByID(ctx, bid.UserID, bid.ID); err != nil {
		return err
	}
	rec, err := schema.EncodeBid(bid, expiresAt)
	if err != nil {
		return apperrors.NewInternalError("encode bid").WithCause(err)
	}
	return r.store.TransactPut(ctx, rec, abstractions.Condition{}, openEventCheck(bid.EventID))
}

// GetByID fetches one bid owned by a user.
func (r *BidRepository) GetByID(ctx context.Context, userID, bidID string) (*entities.Bid, error) {
	rec, err := r.store.Get(ctx, schema.BidKey(userID, bidID))
	if err != nil {
		return nil, err
	}
	return schema.DecodeBid(rec)
}

// ListByUser pages a user's open bids.
func (r *BidRepository) ListByUser(ctx context.Context, userID string, limit int, startToken string) (ports.BidPage, error) {
	page, err := r.store.Query(ctx, abstractions.IndexPrimary, schema.UserPartition(userID), abstractions.QueryOptions{
		SortPrefix: schema.SortPrefixBid,
		Limit:      limit,
		StartToken: startToken,
	})
	if err != nil {
		return ports.BidPage{}, err
	}
	result := ports.BidPage{NextToken: page.NextToken}
	for _, rec := range page.Records {
		bid, decErr := schema.DecodeBid(rec)
		if decErr != nil {
			r.logger.Warn("skipping malformed bid", zap.String("user_id", userID), zap.Error(decErr))
			continue
		}
		result.Bids = append(result.Bids, bid)
	}
	return result, nil
}

// ListByEvent returns every open bid on an event via the event projection.
func (r *BidRepository) ListByEvent(ctx context.Context, eventID string) ([]*entities.Bid, error) {
	var bids []*entities.Bid
	token := ""
	for {
		page, err := r.store.Query(ctx, abstractions.IndexGSI1, schema.EventPartition(eventID), abstractions.QueryOptions{
			SortPrefix: schema.SortPrefixBid,
			StartToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			bid, decErr := schema.DecodeBid(rec)
			if decErr != nil {
				r.logger.Warn("skipping malformed bid", zap.String("event_id", eventID), zap.Error(decErr))
				continue
			}
			bids = append(bids, bid)
		}
		if page.NextToken == "" {
			return bids, nil
		}
		token = page.NextToken
	}
}

// Delete removes one bid.
func (r *BidRepository) Delete(ctx context.Context, requester auth.Identity, userID, bidID string) error {
	if err := auth.Authorize(requester, auth.ActionCancelBid, userID); err != nil {
		return err
	}
	return r.store.Delete(ctx, schema.BidKey(userID, bidID))
}

func openEventCheck(eventID string) *abstractions.ConditionCheck {
	return &abstractions.ConditionCheck{
		Key:    schema.EventKey(eventID),
		Field:  "Status",
		Equals: string(entities.EventOpen),
	}
}
