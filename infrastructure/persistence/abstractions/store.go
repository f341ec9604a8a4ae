// Package abstractions defines the storage contract repositories depend on,
// keeping them testable against an in-memory implementation.
package abstractions

import (
	"context"

	"sidebet-backend/infrastructure/persistence/schema"
)

// IndexID selects the table or one of its global secondary indexes.
type IndexID int

const (
	IndexPrimary IndexID = iota
	IndexGSI1
	IndexGSI2
	IndexGSI3
)

// ConditionKind discriminates write preconditions.
type ConditionKind int

const (
	// ConditionNone writes unconditionally.
	ConditionNone ConditionKind = iota
	// ConditionNotExists requires that no row exists at the key.
	ConditionNotExists
	// ConditionVersionEquals requires the stored Version to match.
	ConditionVersionEquals
)

// Condition is a precondition attached to a Put.
type Condition struct {
	Kind    ConditionKind
	Version int
}

// ConditionCheck asserts a string attribute on another row inside the same
// transaction, without modifying that row.
type ConditionCheck struct {
	Key    schema.Key
	Field  string
	Equals string
}

// QueryOptions narrow and page a partition query.
type QueryOptions struct {
	// SortPrefix restricts results to sort keys with this prefix.
	SortPrefix string
	// Descending reverses sort-key order.
	Descending bool
	// Limit caps the page size; zero means the store default.
	Limit int
	// StartToken resumes a prior page.
	StartToken string
}

// QueryResult is one page of records plus the token for the next page.
// An empty NextToken means the partition is exhausted.
type QueryResult struct {
	Records   []schema.Record
	NextToken string
}

// Store is the single-table persistence contract. Conditional failures
// surface as Conflict errors, missing rows as NotFound, and capacity
// pressure as Throttled so callers can branch without provider types.
type Store interface {
	// Get fetches one record by primary key.
	Get(ctx context.Context, key schema.Key) (schema.Record, error)

	// Put writes one record, honoring the precondition.
	Put(ctx context.Context, rec schema.Record, cond Condition) error

	// Delete removes one record, failing NotFound if absent.
	Delete(ctx context.Context, key schema.Key) error

	// Query pages records within one partition of the given index.
	Query(ctx context.Context, index IndexID, partition string, opts QueryOptions) (QueryResult, error)

	// TransactPut writes one record and asserts a condition on another row
	// atomically. A nil check degrades to a plain conditional Put.
	TransactPut(ctx context.Context, rec schema.Record, cond Condition, check *ConditionCheck) error
}
