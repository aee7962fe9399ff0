package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

const (
	DefaultTable = "quote_records"
	partitionKey = "quote_id"
)

// API is the subset of the DynamoDB client the index needs.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// RecordIndex stores the latest record per quote. Table PK: quote_id (string).
type RecordIndex struct {
	ddb   API
	table string
}

func NewRecordIndex(ddb API, table string) *RecordIndex {
	if table == "" {
		table = DefaultTable
	}
	return &RecordIndex{ddb: ddb, table: table}
}

// Upsert overwrites any earlier item for the quote.
func (r *RecordIndex) Upsert(ctx context.Context, record domain.StoredRecord) error {
	if record.QuoteID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upsert quote record", errors.New("quote id is required"))
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "marshal quote record", err)
	}
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "put quote record", err)
	}
	return nil
}

func (r *RecordIndex) Get(ctx context.Context, quoteID string) (*domain.StoredRecord, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			partitionKey: &types.AttributeValueMemberS{Value: quoteID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "get quote record", err)
	}
	if len(out.Item) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "get quote record", fmt.Errorf("quote_id=%s", quoteID))
	}

	var rec domain.StoredRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "unmarshal quote record", err)
	}
	return &rec, nil
}
