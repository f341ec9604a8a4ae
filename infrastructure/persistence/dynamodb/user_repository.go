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

// UserRepository stores user profiles in the single table.
type UserRepository struct {
	store  abstractions.Store
	logger *zap.Logger
}

// NewUserRepository creates a user repository.
func NewUserRepository(store abstractions.Store, logger *zap.Logger) *UserRepository {
	return &UserRepository{store: store, logger: logger.Named("users")}
}

var _ ports.UserRepository = (*UserRepository)(nil)

// Create writes the caller's profile, failing Conflict if the id exists.
func (r *UserRepository) Create(ctx context.Context, requester auth.Identity, user *entities.User) error {
	if err := auth.Authorize(requester, auth.ActionCreateUser, user.ID); err != nil {
		return err
	}
	rec, err := schema.EncodeUser(user)
	if err != nil {
		return apperrors.NewInternalError("encode user").WithCause(err)
	}
	return r.store.Put(ctx, rec, abstractions.Condition{Kind: abstractions.ConditionNotExists})
}

// GetByID fetches one profile.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*entities.User, error) {
	rec, err := r.store.Get(ctx, schema.UserKey(userID))
	if err != nil {
		return nil, err
	}
	return schema.DecodeUser(rec)
}

// UpdateDisplayName replaces the profile display name and rewrites the name
// denormalized onto the user's membership rows.
func (r *UserRepository) UpdateDisplayName(ctx context.Context, requester auth.Identity, userID, displayName string) (*entities.User, error) {
	if err := auth.Authorize(requester, auth.ActionUpdateDisplayName, userID); err != nil {
		return nil, err
	}
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.DisplayName = displayName
	user.UpdatedAt = time.Now().UTC()

	rec, err := schema.EncodeUser(user)
	if err != nil {
		return nil, apperrors.NewInternalError("encode user").WithCause(err)
	}
	if err := r.store.Put(ctx, rec, abstractions.Condition{}); err != nil {
		return nil, err
	}
	if err := r.propagateDisplayName(ctx, userID, displayName); err != nil {
		return nil, err
	}
	return user, nil
}

// propagateDisplayName rewrites every membership row carrying the user's
// name. The puts are idempotent, so a failed run is safe to retry.
func (r *UserRepository) propagateDisplayName(ctx context.Context, userID, displayName string) error {
	token := ""
	for {
		page, err := r.store.Query(ctx, abstractions.IndexPrimary, schema.UserPartition(userID), abstractions.QueryOptions{
			SortPrefix: schema.SortPrefixLeague,
			StartToken: token,
		})
		if err != nil {
			return err
		}
		for _, memberRec := range page.Records {
			m, decErr := schema.DecodeMembership(memberRec)
			if decErr != nil {
				r.logger.Warn("skipping malformed membership", zap.String("user_id", userID), zap.Error(decErr))
				continue
			}
			m.DisplayName = displayName
			updated, encErr := schema.EncodeMembership(m)
			if encErr != nil {
				return apperrors.NewInternalError("encode membership").WithCause(encErr)
			}
			if err := r.store.Put(ctx, updated, abstractions.Condition{}); err != nil {
				return err
			}
		}
		if page.NextToken == "" {
			return nil
		}
		token = page.NextToken
	}
}
