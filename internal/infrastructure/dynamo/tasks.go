package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-tasks-api/internal/domain"
)

const ownerIndex = "owner_id-created_at-index"

// TaskRepo provides typed DynamoDB operations for the tasks table.
// PK: task_id; GSI owner_id + created_at lists an owner's tasks.
type TaskRepo struct {
	client    API
	tableName string
}

func NewTaskRepo(client API, tableName string) *TaskRepo {
	return &TaskRepo{client: client, tableName: tableName}
}

func (r *TaskRepo) Put(ctx context.Context, t *domain.Task) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TaskRepo) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("task_id", taskID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	var t domain.Task
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByOwner returns the owner's tasks, newest first.
func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	p := dynamodb.NewQueryPaginator(r.client, r.byOwner(ownerID))
	tasks := make([]domain.Task, 0)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.Task
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		tasks = append(tasks, page...)
	}
	return tasks, nil
}

func (r *TaskRepo) Delete(ctx context.Context, taskID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("task_id", taskID),
		ConditionExpression: aws.String("attribute_exists(task_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("task not found: %w", domain.ErrNotFound)
	}
	return err
}

func (r *TaskRepo) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	keys, err := queryKeys(ctx, r.client, r.byOwner(ownerID), "task_id")
	if err != nil {
		return 0, err
	}
	if err := batchDelete(ctx, r.client, r.tableName, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// ListOwnerIDs scans owner_id across the table. Only the orphan sweeper calls it.
func (r *TaskRepo) ListOwnerIDs(ctx context.Context) ([]string, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     aws.String("#o"),
		ExpressionAttributeNames: map[string]string{"#o": "owner_id"},
	})
	seen := make(map[string]struct{})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			if v, ok := item["owner_id"].(*types.AttributeValueMemberS); ok {
				seen[v.Value] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *TaskRepo) byOwner(ownerID string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(ownerIndex),
		KeyConditionExpression:    aws.String("#o = :o"),
		ExpressionAttributeNames:  map[string]string{"#o": "owner_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":o": str(ownerID)},
		ScanIndexForward:          aws.Bool(false),
	}
}
