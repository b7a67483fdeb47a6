package domain

import "time"

// Account is the persisted credential record. PasswordHash and the reset-token
// fields never leave the service boundary.
type Account struct {
	AccountID           string     `json:"id" dynamodbav:"account_id"`
	Email               string     `json:"email" dynamodbav:"email"`
	PasswordHash        string     `json:"-" dynamodbav:"password_hash"`
	IsVerified          bool       `json:"is_verified" dynamodbav:"is_verified"`
	ResetTokenHash      *string    `json:"-" dynamodbav:"reset_token_hash,omitempty"`
	ResetTokenExpiresAt *time.Time `json:"-" dynamodbav:"reset_token_expires_at,omitempty,unixtime"`
	CreatedAt           time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt           time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Summary returns the public projection of the account.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{ID: a.AccountID, Email: a.Email}
}

// HasLiveResetToken reports whether a reset token is stored and unexpired at now.
func (a *Account) HasLiveResetToken(now time.Time) bool {
	return a.ResetTokenHash != nil && a.ResetTokenExpiresAt != nil && now.Before(*a.ResetTokenExpiresAt)
}

// AccountSummary is the minimal account view returned to clients.
type AccountSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by operations that mint a session token.
type AuthResult struct {
	Token   string
	Account AccountSummary
}
