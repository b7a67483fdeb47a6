package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-tasks-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by Verify for any malformed, tampered or expired token.
var ErrInvalidToken = errors.New("invalid token")

// Claims holds the JWT payload fields.
type Claims struct {
	AccountID string `json:"userId"`
	jwt.RegisteredClaims
}

// Provider signs and verifies session JWTs. It uses RS256 when a key pair is
// configured and HS256 over JWT_SECRET otherwise.
type Provider struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	expiry    time.Duration
	now       func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTPrivateKeyPath != "" && cfg.JWTPublicKeyPath != "" {
		return newRSAProvider(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiry)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt: no signing material configured")
	}
	return NewHMACProvider([]byte(cfg.JWTSecret), cfg.JWTExpiry), nil
}

// NewHMACProvider returns an HS256 provider over secret.
func NewHMACProvider(secret []byte, expiry time.Duration) *Provider {
	return &Provider{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		expiry:    expiry,
		now:       time.Now,
	}
}

// NewRSAProvider returns an RS256 provider over an in-memory key pair.
func NewRSAProvider(priv *rsa.PrivateKey, pub *rsa.PublicKey, expiry time.Duration) *Provider {
	return &Provider{
		method:    jwt.SigningMethodRS256,
		signKey:   priv,
		verifyKey: pub,
		expiry:    expiry,
		now:       time.Now,
	}
}

func newRSAProvider(privPath, pubPath string, expiry time.Duration) (*Provider, error) {
	privBytes, err := os.ReadFile(privPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return NewRSAProvider(privKey, pubKey, expiry), nil
}

// Sign mints a token for accountID that expires after the configured expiry.
func (p *Provider) Sign(accountID string) (string, error) {
	now := p.now()
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(p.method, claims)
	return token.SignedString(p.signKey)
}

// Verify checks signature and expiry and returns the embedded claims.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.verifyKey, nil
	},
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
