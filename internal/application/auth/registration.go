package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/pkg/id"
	"github.com/go-tasks-api/internal/pkg/keylock"
	"github.com/go-tasks-api/internal/pkg/policy"
	"github.com/go-tasks-api/internal/pkg/validate"
)

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (err error) {
	defer s.finish("register", &err)

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return domain.NewError(domain.ErrValidation, "Email and password are required")
	}
	if !validate.Email(email) {
		return domain.NewError(domain.ErrValidation, msgInvalidEmail)
	}
	if err := policy.Check(req.Password); err != nil {
		return domain.NewError(domain.ErrValidation, err.Error())
	}
	hash, err := s.codec.HashPassword(req.Password)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	unlock, err := s.lock(ctx, keylock.EmailKey(email))
	if err != nil {
		return err
	}
	defer unlock()

	existing, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.IsVerified:
		return domain.NewError(domain.ErrConflict, "User already exists. Please login.")
	case err == nil:
		// Stale unverified registration: discard it and its codes.
		if err := s.accounts.Delete(ctx, existing.AccountID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("discard unverified account: %w", err)
		}
		if err := s.ledger.Discard(ctx, email); err != nil {
			return fmt.Errorf("discard codes: %w", err)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	now := s.now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		Email:        email,
		PasswordHash: hash,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.NewError(domain.ErrConflict, "User already exists. Please login.")
		}
		return err
	}
	code, err := s.ledger.Issue(ctx, email)
	if err != nil {
		return err
	}
	return s.deliver(ctx, "register", email, code, "Failed to send OTP email. Please try again.")
}

func (s *service) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (res *domain.AuthResult, err error) {
	defer s.finish("verify_otp", &err)

	email := strings.TrimSpace(req.Email)
	code := strings.TrimSpace(req.OTP)
	if email == "" || code == "" {
		return nil, domain.NewError(domain.ErrValidation, "Email and OTP are required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	unlock, err := s.lock(ctx, keylock.EmailKey(email))
	if err != nil {
		return nil, err
	}
	defer unlock()

	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.ErrNotFound, msgUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	if a.IsVerified {
		return nil, domain.NewError(domain.ErrConflict, msgAlreadyVerified)
	}

	ok, err := s.ledger.VerifyAndConsume(ctx, email, code, func(ctx context.Context) error {
		return s.accounts.MarkVerified(ctx, a.AccountID)
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewError(domain.ErrInvalidOrExpiredCode, "Invalid or expired OTP")
	}

	token, err := s.issuer.Sign(a.AccountID)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &domain.AuthResult{Token: token, Account: a.Summary()}, nil
}

func (s *service) ResendOTP(ctx context.Context, req domain.EmailRequest) (err error) {
	defer s.finish("resend_otp", &err)

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return domain.NewError(domain.ErrValidation, msgEmailRequired)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	unlock, err := s.lock(ctx, keylock.EmailKey(email))
	if err != nil {
		return err
	}
	defer unlock()

	a, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrNotFound, msgUserNotFound)
	}
	if err != nil {
		return err
	}
	if a.IsVerified {
		return domain.NewError(domain.ErrConflict, msgAlreadyVerified)
	}

	code, err := s.ledger.Issue(ctx, email)
	if err != nil {
		return err
	}
	return s.deliver(ctx, "resend_otp", email, code, "Failed to resend OTP. Please try again.")
}
