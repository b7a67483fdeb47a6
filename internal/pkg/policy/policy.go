// Package policy enforces the password rules shared by registration and reset.
package policy

import (
	"strings"
	"unicode"
)

const (
	MinLength = 8
	// MaxLength is the bcrypt input limit in bytes.
	MaxLength = 72
)

// Symbols is the accepted set of special characters.
const Symbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// Violation names the rule a password failed and the message shown to the user.
type Violation struct {
	Rule    string
	Message string
}

func (v *Violation) Error() string { return v.Message }

var (
	ErrTooShort = &Violation{Rule: "length", Message: "Password must be at least 8 characters"}
	ErrTooLong  = &Violation{Rule: "length", Message: "Password must be at most 72 bytes"}
	ErrNoUpper  = &Violation{Rule: "uppercase", Message: "Password must contain at least one uppercase letter"}
	ErrNoLower  = &Violation{Rule: "lowercase", Message: "Password must contain at least one lowercase letter"}
	ErrNoDigit  = &Violation{Rule: "digit", Message: "Password must contain at least one digit"}
	ErrNoSymbol = &Violation{Rule: "symbol", Message: "Password must contain at least one special character"}
)

// Check returns the first unmet rule, in the order
// length, uppercase, lowercase, digit, symbol.
func Check(password string) error {
	if len([]rune(password)) < MinLength {
		return ErrTooShort
	}
	if len(password) > MaxLength {
		return ErrTooLong
	}
	if !strings.ContainsFunc(password, isASCIIUpper) {
		return ErrNoUpper
	}
	if !strings.ContainsFunc(password, isASCIILower) {
		return ErrNoLower
	}
	if !strings.ContainsFunc(password, isASCIIDigit) {
		return ErrNoDigit
	}
	if !strings.ContainsAny(password, Symbols) {
		return ErrNoSymbol
	}
	return nil
}

func isASCIIUpper(r rune) bool { return r <= unicode.MaxASCII && unicode.IsUpper(r) }
func isASCIILower(r rune) bool { return r <= unicode.MaxASCII && unicode.IsLower(r) }
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }
