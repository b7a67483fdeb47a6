package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/pkg/keylock"
	"github.com/go-tasks-api/internal/pkg/policy"
)

var errResetCodeSpace = errors.New("no free reset code after retries")

const msgInvalidResetCode = "Invalid or expired reset code"

func (s *service) ForgotPassword(ctx context.Context, req domain.EmailRequest) (err error) {
	defer s.finish("forgot_password", &err)

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
		return domain.NewError(domain.ErrNotFound, "No account found with this email")
	}
	if err != nil {
		return err
	}
	if !a.IsVerified {
		return domain.NewError(domain.ErrConflict, "Please verify your email first")
	}

	code, hash, err := s.freeResetCode(ctx)
	if err != nil {
		return err
	}
	expiresAt := s.now().UTC().Add(s.resetTTL)
	if err := s.accounts.SetResetToken(ctx, a.AccountID, hash, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return s.deliver(ctx, "forgot_password", email, code, "Failed to send reset email. Please try again.")
}

// freeResetCode draws codes until one hashes to a value no account holds.
// The code alone identifies the account on reset, so it must be unique.
func (s *service) freeResetCode(ctx context.Context) (string, string, error) {
	for i := 0; i < resetCodeRetries; i++ {
		code, err := s.codec.GenerateNumericCode()
		if err != nil {
			return "", "", fmt.Errorf("generate reset code: %w", err)
		}
		hash := s.codec.HashOpaqueToken(code)
		_, err = s.accounts.GetByResetTokenHash(ctx, hash)
		if errors.Is(err, domain.ErrNotFound) {
			return code, hash, nil
		}
		if err != nil {
			return "", "", err
		}
	}
	return "", "", errResetCodeSpace
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (err error) {
	defer s.finish("reset_password", &err)

	token := strings.TrimSpace(req.Token)
	if token == "" || req.Password == "" {
		return domain.NewError(domain.ErrValidation, "Token and new password are required")
	}
	if err := policy.Check(req.Password); err != nil {
		return domain.NewError(domain.ErrValidation, err.Error())
	}
	newHash, err := s.codec.HashPassword(req.Password)
	if err != nil {
		return err
	}
	tokenHash := s.codec.HashOpaqueToken(token)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a, err := s.accounts.GetByResetTokenHash(ctx, tokenHash)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrInvalidOrExpiredCode, msgInvalidResetCode)
	}
	if err != nil {
		return err
	}
	if !a.HasLiveResetToken(s.now()) {
		return domain.NewError(domain.ErrInvalidOrExpiredCode, msgInvalidResetCode)
	}

	unlock, err := s.lock(ctx, keylock.EmailKey(a.Email))
	if err != nil {
		return err
	}
	defer unlock()

	// The store re-checks hash and expiry, so a concurrent re-issue or reset wins cleanly.
	err = s.accounts.ConsumeResetToken(ctx, a.AccountID, tokenHash, newHash, s.now())
	if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrInvalidOrExpiredCode, msgInvalidResetCode)
	}
	return err
}
