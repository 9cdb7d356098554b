// Package auth issues and validates host tokens.
//
// There are no user accounts: guests are anonymous display names, and the
// only privileged party is the host of a bill. Bill creation mints a signed
// token carrying the bill id; host-only operations (item edits, payment
// handles, scan ingestion) require it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired host token")
	ErrMissingToken = errors.New("host token required")
)

// HostTokenManager handles host token generation and validation.
type HostTokenManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// HostClaims are the JWT claims carried by a host token.
type HostClaims struct {
	BillID string `json:"bill_id"`
	jwt.RegisteredClaims
}

// NewHostTokenManager creates a manager with the given secret and token
// lifetime. secretKey should be a strong random string; tokenDuration
// should comfortably outlast a bill session (hours, not minutes).
func NewHostTokenManager(secretKey string, tokenDuration time.Duration) *HostTokenManager {
	return &HostTokenManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate creates a host token for the given bill.
func (m *HostTokenManager) Generate(billID string) (string, error) {
	claims := &HostClaims{
		BillID: billID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses and validates a host token, returning its claims.
func (m *HostTokenManager) Validate(tokenString string) (*HostClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&HostClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*HostClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
