package dynamodb

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"sidebet-backend/application/ports"
	"sidebet-backend/domain/entities"
	"sidebet-backend/infrastructure/persistence/abstractions"
	"sidebet-backend/infrastructure/persistence/schema"
	apperrors "sidebet-backend/pkg/errors"
)

// OutcomeRepository stores settled outcomes and serves season rankings.
type OutcomeRepository struct {
	store  abstractions.Store
	logger *zap.Logger
}

// NewOutcomeRepository creates an outcome repository.
func NewOutcomeRepository(store abstractions.Store, logger *zap.Logger) *OutcomeRepository {
	return &OutcomeRepository{store: store, logger: logger.Named("outcomes")}
}

var _ ports.OutcomeRepository = (*OutcomeRepository)(nil)

// Create writes an outcome keyed by its bet. A Conflict means the bet was
// already settled; callers treat that as success.
func (r *OutcomeRepository) Create(ctx context.Context, outcome *entities.Outcome) error {
	rec, err := schema.EncodeOutcome(outcome)
	if err != nil {
		return apperrors.NewInternalError("encode outcome").WithCause(err)
	}
	return r.store.Put(ctx, rec, abstractions.Condition{Kind: abstractions.ConditionNotExists})
}

// ListByUser pages a user's outcomes.
func (r *OutcomeRepository) ListByUser(ctx context.Context, userID string, limit int, startToken string) (ports.OutcomePage, error) {
	page, err := r.store.Query(ctx, abstractions.IndexPrimary, schema.UserPartition(userID), abstractions.QueryOptions{
		SortPrefix: schema.SortPrefixOutcome,
		Limit:      limit,
		StartToken: startToken,
	})
	if err != nil {
		return ports.OutcomePage{}, err
	}
	result := ports.OutcomePage{NextToken: page.NextToken}
	for _, rec := range page.Records {
		outcome, decErr := schema.DecodeOutcome(rec)
		if decErr != nil {
			r.logger.Warn("skipping malformed outcome", zap.String("user_id", userID), zap.Error(decErr))
			continue
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

// GetRankings walks the season's ranking partition best-score-first,
// aggregates per-user totals, and returns the top entries. The partition
// holds one row per settled bet, so totals are summed here rather than read
// off a single row.
func (r *OutcomeRepository) GetRankings(ctx context.Context, season string, limit int) ([]entities.RankingEntry, error) {
	totals := make(map[string]int64)
	token := ""
	for {
		page, err := r.store.Query(ctx, abstractions.IndexGSI1, schema.RankPartition(season), abstractions.QueryOptions{
			SortPrefix: schema.SortPrefixScore,
			Descending: true,
			StartToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			outcome, decErr := schema.DecodeOutcome(rec)
			if decErr != nil {
				r.logger.Warn("skipping malformed outcome", zap.String("season", season), zap.Error(decErr))
				continue
			}
			totals[outcome.UserID] += outcome.Score
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	entries := make([]entities.RankingEntry, 0, len(totals))
	for userID, score := range totals {
		entries = append(entries, entities.RankingEntry{UserID: userID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
