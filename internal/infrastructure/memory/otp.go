package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/go-tasks-api/internal/domain"
)

type OTPRepo struct {
	mu      sync.Mutex
	byEmail map[string][]domain.OTPRecord
}

func NewOTPRepo() *OTPRepo {
	return &OTPRepo{byEmail: make(map[string][]domain.OTPRecord)}
}

func (r *OTPRepo) Put(_ context.Context, rec *domain.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEmail[rec.Email] = append(r.byEmail[rec.Email], *rec)
	return nil
}

// ListByEmail returns every record for email, newest first.
func (r *OTPRepo) ListByEmail(_ context.Context, email string) ([]domain.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]domain.OTPRecord(nil), r.byEmail[email]...)
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID > out[j].RecordID })
	return out, nil
}

func (r *OTPRepo) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byEmail, email)
	return nil
}
