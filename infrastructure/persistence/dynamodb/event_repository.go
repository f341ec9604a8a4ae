package dynamodb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	"sidebet-backend/infrastructure/persistence/abstractions"
	"sidebet-backend/infrastructure/persistence/schema"
	apperrors "sidebet-backend/pkg/errors"
)

// EventRepository stores marketplace events in the single table.
type EventRepository struct {
	store  abstractions.Store
	logger *zap.Logger
}

// NewEventRepository creates an event repository.
func NewEventRepository(store abstractions.Store, logger *zap.Logger) *EventRepository {
	return &EventRepository{store: store, logger: logger.Named("events")}
}

var _ ports.EventRepository = (*EventRepository)(nil)

// Create writes a new event at version 1, failing Conflict if the id exists.
func (r *EventRepository) Create(ctx context.Context, event *entities.MarketplaceEvent) error {
	event.Version = 1
	rec, err := schema.EncodeEvent(event)
	if err != nil {
		return apperrors.NewInternalError("encode event").WithCause(err)
	}
	return r.store.Put(ctx, rec, abstractions.Condition{Kind: abstractions.ConditionNotExists})
}

// GetByID fetches one event.
func (r *EventRepository) GetByID(ctx context.Context, eventID string) (*entities.MarketplaceEvent, error) {
	rec, err := r.store.Get(ctx, schema.EventKey(eventID))
	if err != nil {
		return nil, err
	}
	return schema.DecodeEvent(rec)
}

// Update replaces an event guarded by its version. On success the event's
// version has advanced by one; a stale caller gets Conflict and must reload.
func (r *EventRepository) Update(ctx context.Context, event *entities.MarketplaceEvent) error {
	currentVersion := event.Version
	event.Version = currentVersion + 1

	rec, err := schema.EncodeEvent(event)
	if err != nil {
		event.Version = currentVersion
		return apperrors.NewInternalError("encode event").WithCause(err)
	}
	err = r.store.Put(ctx, rec, abstractions.Condition{
		Kind:    abstractions.ConditionVersionEquals,
		Version: currentVersion,
	})
	if err != nil {
		event.Version = currentVersion
		return err
	}
	return nil
}

// ListByDate pages the events of one calendar date.
func (r *EventRepository) ListByDate(ctx context.Context, date string, limit int, startToken string) (ports.EventPage, error) {
	page, err := r.store.Query(ctx, abstractions.IndexGSI1, schema.DatePartition(date), abstractions.QueryOptions{
		SortPrefix: schema.SortPrefixEvent,
		Limit:      limit,
		StartToken: startToken,
	})
	if err != nil {
		return ports.EventPage{}, err
	}
	result := ports.EventPage{NextToken: page.NextToken}
	for _, rec := range page.Records {
		event, decErr := schema.DecodeEvent(rec)
		if decErr != nil {
			r.logger.Warn("skipping malformed event", zap.String("date", date), zap.Error(decErr))
			continue
		}
		result.Events = append(result.Events, event)
	}
	return result, nil
}

// AcquireLock writes the one-shot lock marker for an event. Exactly one
// caller wins; the rest get Conflict and stand down.
func (r *EventRepository) AcquireLock(ctx context.Context, eventID, ruleName, owner string, now, expiresAt time.Time) error {
	rec, err := schema.EncodeLock(eventID, ruleName, owner, now, expiresAt)
	if err != nil {
		return apperrors.NewInternalError("encode lock").WithCause(err)
	}
	return r.store.Put(ctx, rec, abstractions.Condition{Kind: abstractions.ConditionNotExists})
}
