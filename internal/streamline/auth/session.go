package auth

import (
	"fmt"
	"net/http"
	"time"
)

// SessionCookie is the cookie name the web client reads.
const SessionCookie = "next-auth.session-token"

// SessionManager stores signed session claims in a cookie. Sessions last
// maxAge and are re-issued once they are older than updateAge.
type SessionManager struct {
	issuer    *Issuer
	maxAge    time.Duration
	updateAge time.Duration
	secure    bool
}

// NewSessionManager creates a cookie session manager signed with secret.
func NewSessionManager(secret string, maxAge, updateAge time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		issuer:    NewIssuer(secret, maxAge),
		maxAge:    maxAge,
		updateAge: updateAge,
		secure:    secure,
	}
}

// Issue writes a fresh session cookie and returns its claims.
func (s *SessionManager) Issue(w http.ResponseWriter, userID, username, role string, permissions []string) (*Claims, error) {
	claims := Claims{Username: username, Role: role, Permissions: permissions}
	token, expiresAt, err := s.issuer.sign(claims, userID)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, s.cookie(token, expiresAt))
	return s.issuer.Parse(token)
}

// Read returns the claims of the session cookie on r.
func (s *SessionManager) Read(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, fmt.Errorf("no session: %w", err)
	}
	return s.issuer.Parse(cookie.Value)
}

// Refresh re-issues the cookie when the session is older than the update age.
// The new cookie carries the current grants of principal when one is given.
// It reports whether a new cookie was written.
func (s *SessionManager) Refresh(w http.ResponseWriter, claims *Claims, principal *Principal) (bool, error) {
	if claims.IssuedAt == nil || s.issuer.now().Sub(claims.IssuedAt.Time) < s.updateAge {
		return false, nil
	}
	username, role, permissions := claims.Username, claims.Role, claims.Permissions
	if principal != nil && principal.User != nil {
		username, role, permissions = principal.User.Username, principal.Role, principal.Permissions
	}
	fresh, err := s.Issue(w, claims.Subject, username, role, permissions)
	if err != nil {
		return false, err
	}
	*claims = *fresh
	return true, nil
}

// Clear expires the session cookie.
func (s *SessionManager) Clear(w http.ResponseWriter) {
	cookie := s.cookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

func (s *SessionManager) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
