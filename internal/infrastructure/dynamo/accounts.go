package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-tasks-api/internal/domain"
)

// DynamoDB attribute names used in update and condition expressions.
const (
	fieldAccountID           = "account_id"
	fieldEmail               = "email"
	fieldPasswordHash        = "password_hash"
	fieldIsVerified          = "is_verified"
	fieldResetTokenHash      = "reset_token_hash"
	fieldResetTokenExpiresAt = "reset_token_expires_at"
	fieldUpdatedAt           = "updated_at"

	resetTokenIndex = "reset_token_hash-index"
)

// AccountRepo stores accounts in two tables: accounts keyed by account_id and
// account_emails keyed by email. Both are written in one transaction, so the
// email table enforces uniqueness.
type AccountRepo struct {
	client      API
	tableName   string
	emailsTable string
}

func NewAccountRepo(client API, tableName, emailsTable string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName, emailsTable: emailsTable}
}

type emailItem struct {
	Email     string `dynamodbav:"email"`
	AccountID string `dynamodbav:"account_id"`
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	emailRow, err := attributevalue.MarshalMap(emailItem{Email: a.Email, AccountID: a.AccountID})
	if err != nil {
		return fmt.Errorf("marshal account email: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(account_id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.emailsTable),
				Item:                emailRow,
				ConditionExpression: aws.String("attribute_not_exists(email)"),
			}},
		},
	})
	if isTxCancelled(err) {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	return err
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldAccountID, accountID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailsTable),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var row emailItem
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, err
	}
	return r.Get(ctx, row.AccountID)
}

// GetByResetTokenHash queries the sparse reset-token index. The index is
// eventually consistent; ConsumeResetToken re-checks on the base table.
func (r *AccountRepo) GetByResetTokenHash(ctx context.Context, hash string) (*domain.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(resetTokenIndex),
		KeyConditionExpression:    aws.String("#h = :h"),
		ExpressionAttributeNames:  map[string]string{"#h": fieldResetTokenHash},
		ExpressionAttributeValues: map[string]types.AttributeValue{":h": str(hash)},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("reset token not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) MarkVerified(ctx context.Context, accountID string) error {
	return r.update(ctx, accountID, map[string]interface{}{fieldIsVerified: true}, nil, "", nil)
}

func (r *AccountRepo) SetResetToken(ctx context.Context, accountID, hash string, expiresAt time.Time) error {
	return r.update(ctx, accountID, map[string]interface{}{
		fieldResetTokenHash:      hash,
		fieldResetTokenExpiresAt: unix(expiresAt),
	}, nil, "", nil)
}

// ConsumeResetToken sets the new password hash and removes the reset token
// only while the stored token still equals hash and expires after now.
func (r *AccountRepo) ConsumeResetToken(ctx context.Context, accountID, hash, passwordHash string, now time.Time) error {
	err := r.update(ctx, accountID,
		map[string]interface{}{fieldPasswordHash: passwordHash},
		[]string{fieldResetTokenHash, fieldResetTokenExpiresAt},
		"#ch = :ch AND #ce > :now",
		map[string]types.AttributeValue{":ch": str(hash), ":now": unix(now)},
	)
	if err != nil && isConditionFailed(err) {
		return fmt.Errorf("reset token no longer valid: %w", domain.ErrConflict)
	}
	return err
}

func (r *AccountRepo) Delete(ctx context.Context, accountID string) error {
	a, err := r.Get(ctx, accountID)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 strKey(fieldAccountID, accountID),
				ConditionExpression: aws.String("attribute_exists(account_id)"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.emailsTable),
				Key:       strKey(fieldEmail, a.Email),
			}},
		},
	})
	if isTxCancelled(err) {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return err
}

// update applies set/remove to an existing account. cond, when non-empty, is
// AND-ed with the existence check; its names #ch/#ce map to the reset-token fields.
func (r *AccountRepo) update(ctx context.Context, accountID string, set map[string]interface{}, remove []string, cond string, condValues map[string]types.AttributeValue) error {
	set[fieldUpdatedAt] = timestamp(time.Now())
	ue, err := buildUpdateExpr(set, remove...)
	if err != nil {
		return err
	}
	ue.Names["#pk"] = fieldAccountID
	condition := "attribute_exists(#pk)"
	if cond != "" {
		condition += " AND " + cond
		ue.Names["#ch"] = fieldResetTokenHash
		ue.Names["#ce"] = fieldResetTokenExpiresAt
		for k, v := range condValues {
			ue.Values[k] = v
		}
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldAccountID, accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil && cond == "" && isConditionFailed(err) {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return err
}
