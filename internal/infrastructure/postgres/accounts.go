package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-tasks-api/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `account_id, email, password_hash, is_verified,
	reset_token_hash, reset_token_expires_at, created_at, updated_at`

// AccountRepo stores accounts. Email uniqueness is a table constraint.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.AccountID, a.Email, a.PasswordHash, a.IsVerified,
		a.ResetTokenHash, a.ResetTokenExpiresAt, a.CreatedAt, a.UpdatedAt)
	return mapError(err, "account")
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return r.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = $1`, accountID)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *AccountRepo) GetByResetTokenHash(ctx context.Context, hash string) (*domain.Account, error) {
	return r.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_token_hash = $1`, hash)
}

func (r *AccountRepo) MarkVerified(ctx context.Context, accountID string) error {
	return r.exec(ctx, domain.ErrNotFound,
		`UPDATE accounts SET is_verified = TRUE, updated_at = now() WHERE account_id = $1`,
		accountID)
}

func (r *AccountRepo) SetResetToken(ctx context.Context, accountID, hash string, expiresAt time.Time) error {
	return r.exec(ctx, domain.ErrNotFound,
		`UPDATE accounts SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now()
		 WHERE account_id = $1`,
		accountID, hash, expiresAt)
}

// ConsumeResetToken swaps the password hash and clears the token in one
// statement, guarded by the token still matching and being unexpired.
func (r *AccountRepo) ConsumeResetToken(ctx context.Context, accountID, hash, passwordHash string, now time.Time) error {
	return r.exec(ctx, domain.ErrConflict,
		`UPDATE accounts
		 SET password_hash = $3, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
		 WHERE account_id = $1 AND reset_token_hash = $2 AND reset_token_expires_at > $4`,
		accountID, hash, passwordHash, now)
}

// Delete removes the account; its tasks go with it through the foreign key.
func (r *AccountRepo) Delete(ctx context.Context, accountID string) error {
	return r.exec(ctx, domain.ErrNotFound, `DELETE FROM accounts WHERE account_id = $1`, accountID)
}

func (r *AccountRepo) one(ctx context.Context, query string, arg string) (*domain.Account, error) {
	var a domain.Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.AccountID, &a.Email, &a.PasswordHash, &a.IsVerified,
		&a.ResetTokenHash, &a.ResetTokenExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "account")
	}
	a.ResetTokenExpiresAt = utcPtr(a.ResetTokenExpiresAt)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

// exec runs a single-row write and returns noRows when nothing matched.
func (r *AccountRepo) exec(ctx context.Context, noRows error, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "account")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account: %w", noRows)
	}
	return nil
}
