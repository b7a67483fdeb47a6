package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/infrastructure/memory"
	"github.com/go-tasks-api/internal/pkg/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, rec *domain.OTPRecord) error {
	return m.Called(ctx, rec).Error(0)
}
func (m *mockStore) ListByEmail(ctx context.Context, email string) ([]domain.OTPRecord, error) {
	args := m.Called(ctx, email)
	recs, _ := args.Get(0).([]domain.OTPRecord)
	return recs, args.Error(1)
}
func (m *mockStore) DeleteByEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type fixedCodec struct {
	*secret.Codec
	codes []string
}

func (f *fixedCodec) GenerateNumericCode() (string, error) {
	c := f.codes[0]
	f.codes = f.codes[1:]
	return c, nil
}

// --- helpers ---

func newLedger(t *testing.T, codes ...string) (*Ledger, *memory.OTPRepo) {
	t.Helper()
	store := memory.NewOTPRepo()
	c := &fixedCodec{Codec: secret.New(bcrypt.MinCost, "pepper"), codes: codes}
	return NewLedger(store, c, 10*time.Minute), store
}

const email = "a@x.com"

// --- tests ---

func TestIssue_StoresOnlyHash(t *testing.T) {
	l, store := newLedger(t, "012345")
	code, err := l.Issue(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, "012345", code)

	recs, err := store.ListByEmail(context.Background(), email)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotContains(t, recs[0].CodeHash, code)
	assert.Equal(t, 10*time.Minute, recs[0].ExpiresAt.Sub(recs[0].CreatedAt))
}

func TestIssue_SupersedesPriorCodes(t *testing.T) {
	l, store := newLedger(t, "111111", "222222")
	ctx := context.Background()
	_, err := l.Issue(ctx, email)
	require.NoError(t, err)
	_, err = l.Issue(ctx, email)
	require.NoError(t, err)

	recs, err := store.ListByEmail(ctx, email)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	ok, err := l.VerifyAndConsume(ctx, email, "111111", nil)
	require.NoError(t, err)
	assert.False(t, ok, "superseded code must not verify")

	ok, err = l.VerifyAndConsume(ctx, email, "222222", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyAndConsume_TotalConsumption(t *testing.T) {
	l, store := newLedger(t, "333333")
	ctx := context.Background()
	_, err := l.Issue(ctx, email)
	require.NoError(t, err)

	committed := 0
	ok, err := l.VerifyAndConsume(ctx, email, "333333", func(context.Context) error { committed++; return nil })
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, committed)

	recs, err := store.ListByEmail(ctx, email)
	require.NoError(t, err)
	assert.Empty(t, recs)

	ok, err = l.VerifyAndConsume(ctx, email, "333333", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAndConsume_WrongCodeDoesNotMutate(t *testing.T) {
	l, store := newLedger(t, "444444")
	ctx := context.Background()
	_, err := l.Issue(ctx, email)
	require.NoError(t, err)

	ok, err := l.VerifyAndConsume(ctx, email, "000000", func(context.Context) error {
		t.Fatal("commit must not run on mismatch")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ok)

	recs, err := store.ListByEmail(ctx, email)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestVerifyAndConsume_CodeBoundToEmail(t *testing.T) {
	l, _ := newLedger(t, "555555")
	ctx := context.Background()
	_, err := l.Issue(ctx, email)
	require.NoError(t, err)

	ok, err := l.VerifyAndConsume(ctx, "b@x.com", "555555", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAndConsume_Expired(t *testing.T) {
	l, _ := newLedger(t, "666666")
	ctx := context.Background()
	_, err := l.Issue(ctx, email)
	require.NoError(t, err)

	l.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	ok, err := l.VerifyAndConsume(ctx, email, "666666", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAndConsume_CommitFailureKeepsRecords(t *testing.T) {
	l, store := newLedger(t, "777777")
	ctx := context.Background()
	_, err := l.Issue(ctx, email)
	require.NoError(t, err)

	boom := errors.New("boom")
	ok, err := l.VerifyAndConsume(ctx, email, "777777", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)

	recs, err := store.ListByEmail(ctx, email)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestVerifyAndConsume_PicksNewestAmongDuplicates(t *testing.T) {
	c := &fixedCodec{Codec: secret.New(bcrypt.MinCost, "pepper")}
	hash := c.HashOpaqueToken(email + ":123123")
	now := time.Now().UTC()

	st := &mockStore{}
	st.On("ListByEmail", mock.Anything, email).Return([]domain.OTPRecord{
		{Email: email, RecordID: "02", CodeHash: hash, CreatedAt: now, ExpiresAt: now.Add(time.Minute)},
		{Email: email, RecordID: "01", CodeHash: hash, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)},
	}, nil)
	st.On("DeleteByEmail", mock.Anything, email).Return(nil)

	l := NewLedger(st, c, time.Minute)
	ok, err := l.VerifyAndConsume(context.Background(), email, "123123", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	st.AssertExpectations(t)
}

func TestIssue_StoreFailure(t *testing.T) {
	st := &mockStore{}
	st.On("DeleteByEmail", mock.Anything, email).Return(nil)
	st.On("Put", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	l := NewLedger(st, &fixedCodec{Codec: secret.New(bcrypt.MinCost, "p"), codes: []string{"1"}}, time.Minute)
	_, err := l.Issue(context.Background(), email)
	assert.ErrorContains(t, err, "store code")
}
