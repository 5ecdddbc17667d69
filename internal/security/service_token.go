package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ServiceClaims identify an internal collaborator job, not an administrator.
// The only consumer today is the maintenance sweeper that purges expired rows.
type ServiceClaims struct {
	Component string `json:"component"`
	jwt.RegisteredClaims
}

// ServiceTokenManager signs and verifies short-lived HS256 tokens for
// machine-to-machine calls to /internal endpoints.
type ServiceTokenManager struct {
	issuer   string
	audience string
	secret   []byte
}

func NewServiceTokenManager(issuer, audience, secret string) *ServiceTokenManager {
	return &ServiceTokenManager{issuer: issuer, audience: audience, secret: []byte(secret)}
}

func (m *ServiceTokenManager) Sign(component string, ttl time.Duration) (string, error) {
	claims := ServiceClaims{
		Component: component,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   "service:" + component,
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *ServiceTokenManager) Parse(raw string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid service token")
	}
	if claims.Component == "" {
		return nil, fmt.Errorf("service token missing component claim")
	}
	return claims, nil
}
