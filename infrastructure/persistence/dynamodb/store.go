// Package dynamodb implements the persistence contract against a DynamoDB
// single table, plus the repositories built on top of it.
package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"sidebet-backend/infrastructure/persistence/abstractions"
	"sidebet-backend/infrastructure/persistence/schema"
	apperrors "sidebet-backend/pkg/errors"
)

const defaultPageSize = 100

// api is the subset of the DynamoDB client the store uses.
type api interface {
	GetItem(ctx context.Context, params *awsdynamodb.GetItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *awsdynamodb.DeleteItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *awsdynamodb.QueryInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *awsdynamodb.TransactWriteItemsInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.TransactWriteItemsOutput, error)
}

// TableConfig names the table and its indexes.
type TableConfig struct {
	TableName string
	GSI1Name  string
	GSI2Name  string
	GSI3Name  string
}

// Store implements abstractions.Store on DynamoDB.
type Store struct {
	client api
	config TableConfig
	logger *zap.Logger
}

// NewStore creates a DynamoDB-backed store.
func NewStore(client api, config TableConfig, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		config: config,
		logger: logger.Named("dynamodb"),
	}
}

// Get fetches one record by primary key.
func (s *Store) Get(ctx context.Context, key schema.Key) (schema.Record, error) {
	var out *awsdynamodb.GetItemOutput
	err := s.withRetry(ctx, "GetItem", func() error {
		var callErr error
		out, callErr = s.client.GetItem(ctx, &awsdynamodb.GetItemInput{
			TableName: aws.String(s.config.TableName),
			Key:       keyAttributes(key),
		})
		return callErr
	})
	if err != nil {
		return schema.Record{}, s.mapError("GetItem", err)
	}
	if out.Item == nil {
		return schema.Record{}, apperrors.NewNotFoundError(key.Partition + "/" + key.Sort)
	}
	return schema.FromItem(out.Item)
}

// Put writes one record, honoring the precondition.
func (s *Store) Put(ctx context.Context, rec schema.Record, cond abstractions.Condition) error {
	input := &awsdynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      rec.ToItem(),
	}
	if cond.Kind != abstractions.ConditionNone {
		expr, err := buildConditionExpression(cond)
		if err != nil {
			return apperrors.NewInternalError("build condition expression").WithCause(err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	err := s.withRetry(ctx, "PutItem", func() error {
		_, callErr := s.client.PutItem(ctx, input)
		return callErr
	})
	if err != nil {
		return s.mapError("PutItem", err)
	}
	return nil
}

// Delete removes one record, failing NotFound if absent.
func (s *Store) Delete(ctx context.Context, key schema.Key) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(schema.AttrPK))).
		Build()
	if err != nil {
		return apperrors.NewInternalError("build delete expression").WithCause(err)
	}
	err = s.withRetry(ctx, "DeleteItem", func() error {
		_, callErr := s.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
			TableName:                 aws.String(s.config.TableName),
			Key:                       keyAttributes(key),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		return callErr
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.NewNotFoundError(key.Partition + "/" + key.Sort)
		}
		return s.mapError("DeleteItem", err)
	}
	return nil
}

// Query pages records within one partition of the given index.
func (s *Store) Query(ctx context.Context, index abstractions.IndexID, partition string, opts abstractions.QueryOptions) (abstractions.QueryResult, error) {
	pkName, skName, indexName, err := s.indexAttributes(index)
	if err != nil {
		return abstractions.QueryResult{}, err
	}

	keyCond := expression.Key(pkName).Equal(expression.Value(partition))
	if opts.SortPrefix != "" {
		keyCond = keyCond.And(expression.Key(skName).BeginsWith(opts.SortPrefix))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return abstractions.QueryResult{}, apperrors.NewInternalError("build key condition").WithCause(err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	input := &awsdynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
		ScanIndexForward:          aws.Bool(!opts.Descending),
	}
	if indexName != "" {
		input.IndexName = aws.String(indexName)
	}
	if opts.StartToken != "" {
		start, tokErr := decodeToken(opts.StartToken)
		if tokErr != nil {
			return abstractions.QueryResult{}, apperrors.NewValidationError("invalid continuation token")
		}
		input.ExclusiveStartKey = start
	}

	var out *awsdynamodb.QueryOutput
	err = s.withRetry(ctx, "Query", func() error {
		var callErr error
		out, callErr = s.client.Query(ctx, input)
		return callErr
	})
	if err != nil {
		return abstractions.QueryResult{}, s.mapError("Query", err)
	}

	result := abstractions.QueryResult{Records: make([]schema.Record, 0, len(out.Items))}
	for _, item := range out.Items {
		rec, decErr := schema.FromItem(item)
		if decErr != nil {
			// Malformed rows are logged and skipped; one bad row must not
			// poison the whole page.
			s.logger.Warn("skipping malformed row",
				zap.String("partition", partition),
				zap.Error(decErr))
			continue
		}
		result.Records = append(result.Records, rec)
	}
	if len(out.LastEvaluatedKey) > 0 {
		token, tokErr := encodeToken(out.LastEvaluatedKey)
		if tokErr != nil {
			return abstractions.QueryResult{}, apperrors.NewInternalError("encode continuation token").WithCause(tokErr)
		}
		result.NextToken = token
	}
	return result, nil
}

// TransactPut writes one record and asserts a condition on another row
// atomically.
func (s *Store) TransactPut(ctx context.Context, rec schema.Record, cond abstractions.Condition, check *abstractions.ConditionCheck) error {
	if check == nil {
		return s.Put(ctx, rec, cond)
	}

	put := &types.Put{
		TableName: aws.String(s.config.TableName),
		Item:      rec.ToItem(),
	}
	if cond.Kind != abstractions.ConditionNone {
		expr, err := buildConditionExpression(cond)
		if err != nil {
			return apperrors.NewInternalError("build condition expression").WithCause(err)
		}
		put.ConditionExpression = expr.Condition()
		put.ExpressionAttributeNames = expr.Names()
		put.ExpressionAttributeValues = expr.Values()
	}

	checkExpr, err := expression.NewBuilder().
		WithCondition(expression.Equal(expression.Name(check.Field), expression.Value(check.Equals))).
		Build()
	if err != nil {
		return apperrors.NewInternalError("build condition check").WithCause(err)
	}

	err = s.withRetry(ctx, "TransactWriteItems", func() error {
		_, callErr := s.client.TransactWriteItems(ctx, &awsdynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Put: put},
				{ConditionCheck: &types.ConditionCheck{
					TableName:                 aws.String(s.config.TableName),
					Key:                       keyAttributes(check.Key),
					ConditionExpression:       checkExpr.Condition(),
					ExpressionAttributeNames:  checkExpr.Names(),
					ExpressionAttributeValues: checkExpr.Values(),
				}},
			},
		})
		return callErr
	})
	if err != nil {
		return s.mapError("TransactWriteItems", err)
	}
	return nil
}

func (s *Store) indexAttributes(index abstractions.IndexID) (pk, sk, name string, err error) {
	switch index {
	case abstractions.IndexPrimary:
		return schema.AttrPK, schema.AttrSK, "", nil
	case abstractions.IndexGSI1:
		return schema.AttrGSI1PK, schema.AttrGSI1SK, s.config.GSI1Name, nil
	case abstractions.IndexGSI2:
		return schema.AttrGSI2PK, schema.AttrGSI2SK, s.config.GSI2Name, nil
	case abstractions.IndexGSI3:
		return schema.AttrGSI3PK, schema.AttrGSI3SK, s.config.GSI3Name, nil
	default:
		return "", "", "", apperrors.NewInternalError(fmt.Sprintf("unknown index %d", index))
	}
}

// withRetry runs one call with bounded exponential backoff on throttling.
// Conditional failures and validation errors are permanent and returned
// immediately.
func (s *Store) withRetry(ctx context.Context, operation string, call func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := call()
		if err == nil {
			return nil
		}
		if isThrottle(err) {
			s.logger.Warn("throttled, backing off",
				zap.String("operation", operation),
				zap.Int("attempt", attempt))
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func isThrottle(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "RequestLimitExceeded", "ProvisionedThroughputExceededException":
			return true
		}
	}
	return false
}

func (s *Store) mapError(operation string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return apperrors.NewConflictError("conditional write failed").WithCause(err)
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return apperrors.NewConflictError("transaction condition failed").WithCause(err)
			}
		}
		return apperrors.NewConflictError("transaction canceled").WithCause(err)
	}
	if isThrottle(err) {
		return apperrors.NewThrottledError(operation).WithCause(err)
	}
	return apperrors.NewInternalError(operation + " failed").WithCause(err)
}

func keyAttributes(key schema.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		schema.AttrPK: &types.AttributeValueMemberS{Value: key.Partition},
		schema.AttrSK: &types.AttributeValueMemberS{Value: key.Sort},
	}
}

func buildConditionExpression(cond abstractions.Condition) (expression.Expression, error) {
	switch cond.Kind {
	case abstractions.ConditionNotExists:
		return expression.NewBuilder().
			WithCondition(expression.AttributeNotExists(expression.Name(schema.AttrPK))).
			Build()
	case abstractions.ConditionVersionEquals:
		return expression.NewBuilder().
			WithCondition(expression.Equal(expression.Name(schema.AttrVersion), expression.Value(cond.Version))).
			Build()
	default:
		return expression.Expression{}, fmt.Errorf("unsupported condition kind %d", cond.Kind)
	}
}

// Continuation tokens are the opaque form of LastEvaluatedKey. Every key
// attribute in this table is a string, so a flat string map round-trips
// losslessly.

func encodeToken(key map[string]types.AttributeValue) (string, error) {
	flat := make(map[string]string, len(key))
	for k, v := range key {
		sv, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("non-string key attribute %q", k)
		}
		flat[k] = sv.Value
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeToken(token string) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	if len(flat) == 0 {
		return nil, errors.New("empty token")
	}
	key := make(map[string]types.AttributeValue, len(flat))
	for k, v := range flat {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
