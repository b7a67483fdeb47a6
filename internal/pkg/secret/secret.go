// Package secret hashes and verifies account secrets: passwords with bcrypt,
// one-time codes and reset tokens with a keyed SHA-256.
package secret

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// CodeDigits is the fixed width of every generated numeric code.
const CodeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// Codec is safe for concurrent use.
type Codec struct {
	cost   int
	pepper []byte

	dummyOnce sync.Once
	dummyHash []byte
}

// New returns a Codec using the given bcrypt cost and token pepper.
// A cost outside bcrypt's accepted range falls back to bcrypt.DefaultCost.
func New(cost int, pepper string) *Codec {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Codec{cost: cost, pepper: []byte(pepper)}
}

// HashPassword returns a salted bcrypt hash of plain.
func (c *Codec) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), c.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches hash. Malformed hashes never match.
func (c *Codec) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnPasswordCheck performs a comparison against a fixed hash so callers can
// spend the same work on an unknown account as on a real one.
func (c *Codec) BurnPasswordCheck(plain string) {
	c.dummyOnce.Do(func() {
		c.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), c.cost)
	})
	_ = bcrypt.CompareHashAndPassword(c.dummyHash, []byte(plain))
}

// GenerateNumericCode returns a uniformly sampled, zero-padded 6-digit code.
func (c *Codec) GenerateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}

// HashOpaqueToken returns the hex HMAC-SHA256 of token under the codec pepper.
// The result is deterministic, so it can be used as a lookup key.
func (c *Codec) HashOpaqueToken(token string) string {
	mac := hmac.New(sha256.New, c.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// ErrEmptyPepper is returned by Check when the codec has no pepper configured.
var ErrEmptyPepper = errors.New("secret: empty token pepper")

// Check verifies the codec is usable; call it once at startup.
func (c *Codec) Check() error {
	if len(c.pepper) == 0 {
		return ErrEmptyPepper
	}
	return nil
}
