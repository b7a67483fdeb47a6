package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/pkg/id"
)

// Store persists OTP records keyed by email.
type Store interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	// ListByEmail returns all records for email, newest first.
	ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error)
	DeleteByEmail(ctx context.Context, email string) error
}

type codec interface {
	GenerateNumericCode() (string, error)
	HashOpaqueToken(token string) string
}

// Ledger issues and consumes one-time codes. Callers serialize calls per
// email; the ledger itself holds no locks.
type Ledger struct {
	store Store
	codec codec
	ttl   time.Duration
	now   func() time.Time
}

func NewLedger(store Store, c codec, ttl time.Duration) *Ledger {
	return &Ledger{store: store, codec: c, ttl: ttl, now: time.Now}
}

// Issue invalidates every prior code for email and stores a fresh one.
// The plaintext code is returned for delivery and never persisted.
func (l *Ledger) Issue(ctx context.Context, email string) (string, error) {
	code, err := l.codec.GenerateNumericCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if err := l.store.DeleteByEmail(ctx, email); err != nil {
		return "", fmt.Errorf("discard prior codes: %w", err)
	}
	now := l.now().UTC()
	rec := &domain.OTPRecord{
		Email:     email,
		RecordID:  id.New(),
		CodeHash:  l.hash(email, code),
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl),
	}
	if err := l.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// VerifyAndConsume reports whether code matches the newest unexpired record
// for email. On a match commit runs first, then all records for email are
// deleted. A failed commit leaves the records in place.
func (l *Ledger) VerifyAndConsume(ctx context.Context, email, code string, commit func(context.Context) error) (bool, error) {
	recs, err := l.store.ListByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("list codes: %w", err)
	}
	want := l.hash(email, code)
	now := l.now()

	matched := false
	for _, rec := range recs {
		if !now.Before(rec.ExpiresAt) {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(rec.CodeHash), []byte(want)) == 1 {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return false, err
		}
	}
	if err := l.store.DeleteByEmail(ctx, email); err != nil {
		slog.Warn("failed to delete consumed OTP records", "email", email, "err", err)
	}
	return true, nil
}

// Discard removes every record for email.
func (l *Ledger) Discard(ctx context.Context, email string) error {
	return l.store.DeleteByEmail(ctx, email)
}

func (l *Ledger) hash(email, code string) string {
	return l.codec.HashOpaqueToken(email + ":" + code)
}
