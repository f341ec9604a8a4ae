// Package memory provides an in-memory Store used by repository and
// lifecycle tests. It mirrors the conditional-write and paging semantics of
// the DynamoDB store, including lexicographic sort-key ordering.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"sidebet-backend/infrastructure/persistence/abstractions"
	"sidebet-backend/infrastructure/persistence/schema"
	apperrors "sidebet-backend/pkg/errors"
)

const defaultPageSize = 100

// Store is a mutex-guarded map of records keyed by partition and sort key.
type Store struct {
	mu   sync.RWMutex
	rows map[schema.Key]schema.Record
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{rows: make(map[schema.Key]schema.Record)}
}

// Get fetches one record by primary key.
func (s *Store) Get(ctx context.Context, key schema.Key) (schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.rows[key]
	if !ok {
		return schema.Record{}, apperrors.NewNotFoundError(key.Partition + "/" + key.Sort)
	}
	return cloneRecord(rec), nil
}

// Put writes one record, honoring the precondition.
func (s *Store) Put(ctx context.Context, rec schema.Record, cond abstractions.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(rec, cond)
}

func (s *Store) putLocked(rec schema.Record, cond abstractions.Condition) error {
	existing, exists := s.rows[rec.Key]
	switch cond.Kind {
	case abstractions.ConditionNotExists:
		if exists {
			return apperrors.NewConflictError("conditional write failed")
		}
	case abstractions.ConditionVersionEquals:
		if !exists || existing.Version != cond.Version {
			return apperrors.NewConflictError("conditional write failed")
		}
	}
	s.rows[rec.Key] = cloneRecord(rec)
	return nil
}

// Delete removes one record, failing NotFound if absent.
func (s *Store) Delete(ctx context.Context, key schema.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[key]; !ok {
		return apperrors.NewNotFoundError(key.Partition + "/" + key.Sort)
	}
	delete(s.rows, key)
	return nil
}

// Query pages records within one partition of the given index.
func (s *Store) Query(ctx context.Context, index abstractions.IndexID, partition string, opts abstractions.QueryOptions) (abstractions.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		sortKey string
		rec     schema.Record
	}
	var matched []entry
	for _, rec := range s.rows {
		key, ok := indexKey(rec, index)
		if !ok || key.Partition != partition {
			continue
		}
		if opts.SortPrefix != "" && !strings.HasPrefix(key.Sort, opts.SortPrefix) {
			continue
		}
		matched = append(matched, entry{sortKey: key.Sort, rec: rec})
	}

	sort.Slice(matched, func(i, j int) bool {
		if opts.Descending {
			return matched[i].sortKey > matched[j].sortKey
		}
		return matched[i].sortKey < matched[j].sortKey
	})

	start := 0
	if opts.StartToken != "" {
		found := false
		for i, e := range matched {
			if e.sortKey == opts.StartToken {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return abstractions.QueryResult{}, apperrors.NewValidationError("invalid continuation token")
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	result := abstractions.QueryResult{Records: make([]schema.Record, 0, end-start)}
	for _, e := range matched[start:end] {
		result.Records = append(result.Records, cloneRecord(e.rec))
	}
	if end < len(matched) {
		result.NextToken = matched[end-1].sortKey
	}
	return result, nil
}

// TransactPut writes one record and asserts a string attribute on another
// row atomically.
func (s *Store) TransactPut(ctx context.Context, rec schema.Record, cond abstractions.Condition, check *abstractions.ConditionCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if check != nil {
		target, ok := s.rows[check.Key]
		if !ok {
			return apperrors.NewConflictError("transaction condition failed")
		}
		attr, ok := target.Payload[check.Field].(*types.AttributeValueMemberS)
		if !ok || attr.Value != check.Equals {
			return apperrors.NewConflictError("transaction condition failed")
		}
	}
	return s.putLocked(rec, cond)
}

// Len reports the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func indexKey(rec schema.Record, index abstractions.IndexID) (schema.Key, bool) {
	switch index {
	case abstractions.IndexPrimary:
		return rec.Key, true
	case abstractions.IndexGSI1:
		if rec.GSI1 == nil {
			return schema.Key{}, false
		}
		return *rec.GSI1, true
	case abstractions.IndexGSI2:
		if rec.GSI2 == nil {
			return schema.Key{}, false
		}
		return *rec.GSI2, true
	case abstractions.IndexGSI3:
		if rec.GSI3 == nil {
			return schema.Key{}, false
		}
		return *rec.GSI3, true
	}
	return schema.Key{}, false
}

func cloneRecord(rec schema.Record) schema.Record {
	out := rec
	if rec.GSI1 != nil {
		k := *rec.GSI1
		out.GSI1 = &k
	}
	if rec.GSI2 != nil {
		k := *rec.GSI2
		out.GSI2 = &k
	}
	if rec.GSI3 != nil {
		k := *rec.GSI3
		out.GSI3 = &k
	}
	out.Payload = make(map[string]types.AttributeValue, len(rec.Payload))
	for k, v := range rec.Payload {
		out.Payload[k] = v
	}
	return out
}
