// Package schema defines the single-table layout: key construction for every
// entity, the neutral Record shape stores operate on, and the codecs that map
// domain entities to and from records.
package schema

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Attribute names shared by the table and its indexes.
const (
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrGSI2PK     = "GSI2PK"
	AttrGSI2SK     = "GSI2SK"
	AttrGSI3PK     = "GSI3PK"
	AttrGSI3SK     = "GSI3SK"
	AttrEntityType = "EntityType"
	AttrVersion    = "Version"
	AttrExpiresAt  = "ExpiresAt"
)

// Entity type discriminators stored on every row.
const (
	TypeUser       = "USER"
	TypeLeague     = "LEAGUE"
	TypeMembership = "MEMBERSHIP"
	TypeEvent      = "EVENT"
	TypeBid        = "BID"
	TypeBet        = "BET"
	TypeOutcome    = "OUTCOME"
	TypeLock       = "LOCK"
)

// Key is a partition/sort key pair for the table or one of its indexes.
type Key struct {
	Partition string
	Sort      string
}

// Record is the storage-neutral row shape. Codecs produce records from
// domain entities; stores persist them without knowing entity semantics.
type Record struct {
	Key        Key
	GSI1       *Key
	GSI2       *Key
	GSI3       *Key
	EntityType string
	Payload    map[string]types.AttributeValue
	// TTL is an epoch-seconds expiry; zero means no expiry attribute.
	TTL int64
	// Version backs optimistic concurrency; zero means unversioned.
	Version int
}

// ToItem flattens a record into a DynamoDB item map.
func (r Record) ToItem() map[string]types.AttributeValue {
	item := make(map[string]types.AttributeValue, len(r.Payload)+10)
	for k, v := range r.Payload {
		item[k] = v
	}
	item[AttrPK] = &types.AttributeValueMemberS{Value: r.Key.Partition}
	item[AttrSK] = &types.AttributeValueMemberS{Value: r.Key.Sort}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: r.EntityType}
	if r.GSI1 != nil {
		item[AttrGSI1PK] = &types.AttributeValueMemberS{Value: r.GSI1.Partition}
		item[AttrGSI1SK] = &types.AttributeValueMemberS{Value: r.GSI1.Sort}
	}
	if r.GSI2 != nil {
		item[AttrGSI2PK] = &types.AttributeValueMemberS{Value: r.GSI2.Partition}
		item[AttrGSI2SK] = &types.AttributeValueMemberS{Value: r.GSI2.Sort}
	}
	if r.GSI3 != nil {
		item[AttrGSI3PK] = &types.AttributeValueMemberS{Value: r.GSI3.Partition}
		item[AttrGSI3SK] = &types.AttributeValueMemberS{Value: r.GSI3.Sort}
	}
	if r.TTL > 0 {
		item[AttrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(r.TTL, 10)}
	}
	if r.Version > 0 {
		item[AttrVersion] = &types.AttributeValueMemberN{Value: strconv.Itoa(r.Version)}
	}
	return item
}

// FromItem reconstructs a record from a DynamoDB item map.
func FromItem(item map[string]types.AttributeValue) (Record, error) {
	rec := Record{Payload: make(map[string]types.AttributeValue, len(item))}

	pk, ok := stringAttr(item, AttrPK)
	if !ok {
		return Record{}, &DecodeError{Field: AttrPK, Reason: "missing partition key"}
	}
	sk, ok := stringAttr(item, AttrSK)
	if !ok {
		return Record{}, &DecodeError{Field: AttrSK, Reason: "missing sort key"}
	}
	rec.Key = Key{Partition: pk, Sort: sk}

	et, ok := stringAttr(item, AttrEntityType)
	if !ok {
		return Record{}, &DecodeError{Field: AttrEntityType, Reason: "missing entity type"}
	}
	rec.EntityType = et

	if p, okP := stringAttr(item, AttrGSI1PK); okP {
		s, _ := stringAttr(item, AttrGSI1SK)
		rec.GSI1 = &Key{Partition: p, Sort: s}
	}
	if p, okP := stringAttr(item, AttrGSI2PK); okP {
		s, _ := stringAttr(item, AttrGSI2SK)
		rec.GSI2 = &Key{Partition: p, Sort: s}
	}
	if p, okP := stringAttr(item, AttrGSI3PK); okP {
		s, _ := stringAttr(item, AttrGSI3SK)
		rec.GSI3 = &Key{Partition: p, Sort: s}
	}
	if n, okN := item[AttrExpiresAt].(*types.AttributeValueMemberN); okN {
		ttl, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return Record{}, &DecodeError{EntityType: et, Field: AttrExpiresAt, Reason: "not a number"}
		}
		rec.TTL = ttl
	}
	if n, okN := item[AttrVersion].(*types.AttributeValueMemberN); okN {
		v, err := strconv.Atoi(n.Value)
		if err != nil {
			return Record{}, &DecodeError{EntityType: et, Field: AttrVersion, Reason: "not a number"}
		}
		rec.Version = v
	}

	reserved := map[string]bool{
		AttrPK: true, AttrSK: true,
		AttrGSI1PK: true, AttrGSI1SK: true,
		AttrGSI2PK: true, AttrGSI2SK: true,
		AttrGSI3PK: true, AttrGSI3SK: true,
		AttrEntityType: true, AttrExpiresAt: true, AttrVersion: true,
	}
	for k, v := range item {
		if !reserved[k] {
			rec.Payload[k] = v
		}
	}
	return rec, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, bool) {
	s, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// DecodeError reports a stored row that does not match the expected entity
// shape. Readers log and skip these rows instead of failing the whole scan.
type DecodeError struct {
	EntityType string
	Field      string
	Reason     string
}

func (e *DecodeError) Error() string {
	if e.EntityType == "" {
		return fmt.Sprintf("decode: field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("decode %s: field %s: %s", e.EntityType, e.Field, e.Reason)
}

// IsDecodeError reports whether err is a row-shape mismatch.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
