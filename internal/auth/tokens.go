package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
)

// Token types carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the JWT claims issued by the service.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is returned at login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer returns an issuer. Zero TTLs fall back to the defaults.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("%w: signing secret must be at least 16 bytes", sharedErrors.ErrValidation)
	}
	if accessTTL <= 0 {
		accessTTL = constants.AccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = constants.RefreshTokenTTL
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue signs a token of tokenType for subject.
func (i *Issuer) Issue(subject, tokenType string) (string, *Claims, error) {
	ttl := i.accessTTL
	if tokenType == TypeRefresh {
		ttl = i.refreshTTL
	}
	now := i.now()
	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, claims, nil
}

// IssuePair signs a fresh access and refresh token for subject.
func (i *Issuer) IssuePair(subject string) (TokenPair, error) {
	access, _, err := i.Issue(subject, TypeAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := i.Issue(subject, TypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Parse verifies token and checks that it carries wantType.
func (i *Issuer) Parse(token, wantType string) (*Claims, error) {
	if token == "" {
		return nil, sharedErrors.ErrTokenMissing
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", sharedErrors.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrTokenInvalid, err)
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", sharedErrors.ErrTokenInvalid, wantType, claims.Type)
	}
	return claims, nil
}
