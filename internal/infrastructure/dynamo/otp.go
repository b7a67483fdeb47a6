package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-tasks-api/internal/domain"
)

// OTPRepo manages one-time codes.
// PK: email, SK: record_id (ULID). Expired rows are reaped by table TTL on expires_at.
type OTPRepo struct {
	client    API
	tableName string
}

func NewOTPRepo(client API, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListByEmail returns records newest first; ULID sort keys order by issue time.
func (r *OTPRepo) ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error) {
	p := dynamodb.NewQueryPaginator(r.client, r.byEmail(email))
	var recs []domain.OTPRecord
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.OTPRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		recs = append(recs, page...)
	}
	return recs, nil
}

func (r *OTPRepo) DeleteByEmail(ctx context.Context, email string) error {
	keys, err := queryKeys(ctx, r.client, r.byEmail(email), "email", "record_id")
	if err != nil {
		return err
	}
	return batchDelete(ctx, r.client, r.tableName, keys)
}

func (r *OTPRepo) byEmail(email string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": "email"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": str(email)},
		ScanIndexForward:          aws.Bool(false),
		ConsistentRead:            aws.Bool(true),
	}
}
