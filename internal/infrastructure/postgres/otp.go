package postgres

import (
	"context"

	"github.com/go-tasks-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OTPRepo stores hashed one-time codes keyed by record_id.
type OTPRepo struct {
	pool *pgxpool.Pool
}

func NewOTPRepo(pool *pgxpool.Pool) *OTPRepo {
	return &OTPRepo{pool: pool}
}

func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO otp_records (record_id, email, code_hash, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.RecordID, rec.Email, rec.CodeHash, rec.CreatedAt, rec.ExpiresAt)
	return mapError(err, "otp record")
}

// ListByEmail returns records newest first.
func (r *OTPRepo) ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT record_id, email, code_hash, created_at, expires_at
		 FROM otp_records WHERE email = $1 ORDER BY record_id DESC`,
		email)
	if err != nil {
		return nil, mapError(err, "otp record")
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OTPRecord, error) {
		var rec domain.OTPRecord
		err := row.Scan(&rec.RecordID, &rec.Email, &rec.CodeHash, &rec.CreatedAt, &rec.ExpiresAt)
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.ExpiresAt = rec.ExpiresAt.UTC()
		return rec, err
	})
	if err != nil {
		return nil, mapError(err, "otp record")
	}
	return recs, nil
}

func (r *OTPRepo) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM otp_records WHERE email = $1`, email)
	return mapError(err, "otp record")
}
