package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-tasks-api/internal/domain"
	jwtinfra "github.com/go-tasks-api/internal/infrastructure/jwt"
	"github.com/go-tasks-api/internal/pkg/keylock"
)

// Service is the account lifecycle: registration, OTP verification, login,
// password reset and deletion, plus bearer authentication for other endpoints.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) error
	VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*domain.AuthResult, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error)
	ResendOTP(ctx context.Context, req domain.EmailRequest) error
	ForgotPassword(ctx context.Context, req domain.EmailRequest) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	DeleteAccount(ctx context.Context, accountID string) error
	Authenticate(ctx context.Context, token string) (domain.AccountSummary, error)
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.Account, error)
	MarkVerified(ctx context.Context, accountID string) error
	SetResetToken(ctx context.Context, accountID, hash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, accountID, hash, passwordHash string, now time.Time) error
	Delete(ctx context.Context, accountID string) error
}

type otpLedger interface {
	Issue(ctx context.Context, email string) (string, error)
	VerifyAndConsume(ctx context.Context, email, code string, commit func(context.Context) error) (bool, error)
	Discard(ctx context.Context, email string) error
}

type secretCodec interface {
	HashPassword(plain string) (string, error)
	VerifyPassword(plain, hash string) bool
	BurnPasswordCheck(plain string)
	GenerateNumericCode() (string, error)
	HashOpaqueToken(token string) string
}

type sessionIssuer interface {
	Sign(accountID string) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

// Notifier delivers a one-time code to an email address.
type Notifier interface {
	SendCode(ctx context.Context, email, code string) error
}

type taskCascader interface {
	DeleteAllForOwner(ctx context.Context, ownerID string) (int, error)
}

type recorder interface {
	Outcome(op, result string)
	DeliveryFailed(op string)
	CascadeFailed()
}

const (
	defaultIOTimeout = 5 * time.Second
	defaultResetTTL  = time.Hour
	cascadeAttempts  = 3
	resetCodeRetries = 5
)

type service struct {
	accounts  accountStore
	ledger    otpLedger
	codec     secretCodec
	issuer    sessionIssuer
	notifier  Notifier
	tasks     taskCascader
	locks     *keylock.Map
	metrics   recorder
	now       func() time.Time
	ioTimeout time.Duration
	resetTTL  time.Duration
	backoff   time.Duration
}

type ServiceDeps struct {
	AccountRepo accountStore
	Ledger      otpLedger
	Codec       secretCodec
	Issuer      sessionIssuer
	Notifier    Notifier
	Tasks       taskCascader
	Locks       *keylock.Map
	Metrics     recorder
	Now         func() time.Time
	IOTimeout   time.Duration
	ResetTTL    time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts:  deps.AccountRepo,
		ledger:    deps.Ledger,
		codec:     deps.Codec,
		issuer:    deps.Issuer,
		notifier:  deps.Notifier,
		tasks:     deps.Tasks,
		locks:     deps.Locks,
		metrics:   deps.Metrics,
		now:       deps.Now,
		ioTimeout: deps.IOTimeout,
		resetTTL:  deps.ResetTTL,
		backoff:   100 * time.Millisecond,
	}
	if s.locks == nil {
		s.locks = keylock.New()
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ioTimeout <= 0 {
		s.ioTimeout = defaultIOTimeout
	}
	if s.resetTTL <= 0 {
		s.resetTTL = defaultResetTTL
	}
	return s
}

// Client-facing messages shared by several operations.
const (
	msgUserNotFound       = "User not found"
	msgAlreadyVerified    = "User already verified. Please login."
	msgEmailRequired      = "Email is required"
	msgInvalidEmail       = "Please provide a valid email address"
	msgInvalidCredentials = "Invalid email or password"
	msgTimeout            = "Request timed out. Please try again."
	msgUnauthenticated    = "Not authorized, token failed"
)

// withTimeout bounds every store and notifier call made by one operation.
func (s *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.ioTimeout)
}

// lock takes the named keys in order and returns a func releasing all of them.
func (s *service) lock(ctx context.Context, keys ...string) (func(), error) {
	var held []func()
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, k := range keys {
		unlock, err := s.locks.Lock(ctx, k)
		if err != nil {
			release()
			return nil, fmt.Errorf("acquire %s: %w", k, err)
		}
		held = append(held, unlock)
	}
	return release, nil
}

// finish classifies *errp for the caller, records the outcome and logs
// anything that is not part of the error taxonomy.
func (s *service) finish(op string, errp *error) {
	err := *errp
	if _, classified := domain.Message(err); err != nil && !classified {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s: %w", op, domain.NewError(domain.ErrTimeout, msgTimeout))
		} else {
			err = fmt.Errorf("%s: %w", op, err)
		}
		*errp = err
	}
	result := resultLabel(err)
	if result == "fatal" {
		slog.Error("auth operation failed", "op", op, "err", err)
	}
	s.metrics.Outcome(op, result)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrDelivery):
		return "delivery"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	default:
		return "fatal"
	}
}

// deliver sends code and maps failure to a delivery error. State changes
// made before delivery stay in place; the resend path recovers them.
func (s *service) deliver(ctx context.Context, op, email, code, msg string) error {
	if err := s.notifier.SendCode(ctx, email, code); err != nil {
		s.metrics.DeliveryFailed(op)
		slog.Warn("code delivery failed", "op", op, "err", err)
		return fmt.Errorf("send code: %w", domain.NewError(domain.ErrDelivery, msg))
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Outcome(string, string) {}
func (nopRecorder) DeliveryFailed(string)  {}
func (nopRecorder) CascadeFailed()         {}
