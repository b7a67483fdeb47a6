package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-tasks-api/internal/domain"
)

// Login rejects unknown, unverified and wrong-password attempts with the same
// error. The reason is logged only.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (res *domain.AuthResult, err error) {
	defer s.finish("login", &err)

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, domain.NewError(domain.ErrValidation, "Email and password are required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.codec.BurnPasswordCheck(req.Password)
		return nil, rejectLogin("no_account", "")
	}
	if err != nil {
		return nil, err
	}
	if !s.codec.VerifyPassword(req.Password, a.PasswordHash) {
		return nil, rejectLogin("bad_password", a.AccountID)
	}
	if !a.IsVerified {
		return nil, rejectLogin("unverified", a.AccountID)
	}

	token, err := s.issuer.Sign(a.AccountID)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &domain.AuthResult{Token: token, Account: a.Summary()}, nil
}

func rejectLogin(reason, accountID string) error {
	slog.Info("login rejected", "reason", reason, "account_id", accountID)
	return domain.NewError(domain.ErrInvalidCredentials, msgInvalidCredentials)
}

func (s *service) Authenticate(ctx context.Context, token string) (sum domain.AccountSummary, err error) {
	defer s.finish("authenticate", &err)

	if token == "" {
		return sum, domain.NewError(domain.ErrUnauthenticated, "Not authorized, no token")
	}
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return sum, domain.NewError(domain.ErrUnauthenticated, msgUnauthenticated)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	a, err := s.accounts.Get(ctx, claims.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		return sum, domain.NewError(domain.ErrUnauthenticated, msgUnauthenticated)
	}
	if err != nil {
		return sum, err
	}
	return a.Summary(), nil
}
