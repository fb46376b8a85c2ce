// Package auth issues and validates the bearer tokens that identify group
// members. Account registration and login live outside this service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every token and required on validation.
const Issuer = "groupledger"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Claims identify a member. The member ID doubles as the token subject.
type Claims struct {
	MemberID string `json:"member_id"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs member tokens with a shared HMAC secret.
type JWTManager struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTManager returns a manager whose tokens live for ttl.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	m := &JWTManager{key: []byte(secret), ttl: ttl, now: time.Now}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	return m
}

// Generate signs a token for memberID.
func (m *JWTManager) Generate(memberID, email string) (string, error) {
	if memberID == "" {
		return "", errors.New("member id required")
	}

	issued := m.now()
	claims := Claims{
		MemberID: memberID,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign token for %s: %w", memberID, err)
	}
	return signed, nil
}

// Validate checks the signature, issuer and lifetime of raw and returns its
// claims. Every failure wraps ErrInvalidToken.
func (m *JWTManager) Validate(raw string) (*Claims, error) {
	claims := new(Claims)
	if _, err := m.parser.ParseWithClaims(raw, claims, m.keyFunc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.MemberID == "" || claims.MemberID != claims.Subject {
		return nil, fmt.Errorf("%w: subject does not match member", ErrInvalidToken)
	}
	return claims, nil
}

func (m *JWTManager) keyFunc(*jwt.Token) (any, error) {
	return m.key, nil
}
