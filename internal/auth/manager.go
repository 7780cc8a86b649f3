package auth

import (
	"fmt"
	"net/http"
	"strings"

	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
)

// Cookie names used by browser clients.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Manager ties credentials, token issuance and revocation together.
type Manager struct {
	creds    *Credentials
	issuer   *Issuer
	denylist *Denylist
}

// NewManager returns a session manager.
func NewManager(creds *Credentials, issuer *Issuer, denylist *Denylist) *Manager {
	if denylist == nil {
		denylist = NewDenylist(0)
	}
	return &Manager{creds: creds, issuer: issuer, denylist: denylist}
}

// Login verifies the operator and issues a token pair.
func (m *Manager) Login(username, password string) (TokenPair, error) {
	if err := m.creds.Verify(username, password); err != nil {
		return TokenPair{}, err
	}
	return m.issuer.IssuePair(username)
}

// Refresh exchanges a valid refresh token for a new access token.
func (m *Manager) Refresh(refreshToken string) (string, error) {
	claims, err := m.issuer.Parse(refreshToken, TypeRefresh)
	if err != nil {
		return "", err
	}
	if m.denylist.Revoked(claims.ID) {
		return "", fmt.Errorf("%w: %s", sharedErrors.ErrTokenRevoked, claims.ID)
	}
	access, _, err := m.issuer.Issue(claims.Subject, TypeAccess)
	return access, err
}

// Authenticate validates an access token and returns its subject.
func (m *Manager) Authenticate(accessToken string) (string, error) {
	claims, err := m.issuer.Parse(accessToken, TypeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Logout revokes refreshToken. Invalid or missing tokens are ignored.
func (m *Manager) Logout(refreshToken string) {
	claims, err := m.issuer.Parse(refreshToken, TypeRefresh)
	if err != nil {
		return
	}
	m.denylist.Revoke(claims.ID, claims.ExpiresAt.Time)
}

// TokenFromRequest returns the bearer token, falling back to cookieName.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
