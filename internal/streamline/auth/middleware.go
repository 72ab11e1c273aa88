package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PrincipalLoader resolves a token subject into a principal. It must reject
// unknown and inactive users.
type PrincipalLoader interface {
	Principal(ctx context.Context, userID uuid.UUID) (*Principal, error)
}

// Middleware authenticates HTTP requests by bearer token or session cookie.
type Middleware struct {
	issuer   *Issuer
	sessions *SessionManager
	loader   PrincipalLoader
	public   map[string]bool
	logger   *zap.Logger
}

// PublicRoutes are reachable without credentials.
var PublicRoutes = []string{
	"/healthz",
	"/api/auth/login",
	"/api/auth/callback/credentials",
	"/api/auth/session",
	"/api/auth/signout",
	"/api/auth/signin/google",
	"/api/auth/callback/google",
}

// NewMiddleware creates the HTTP authentication middleware.
func NewMiddleware(issuer *Issuer, sessions *SessionManager, loader PrincipalLoader, logger *zap.Logger) *Middleware {
	public := make(map[string]bool, len(PublicRoutes))
	for _, route := range PublicRoutes {
		public[route] = true
	}
	return &Middleware{
		issuer:   issuer,
		sessions: sessions,
		loader:   loader,
		public:   public,
		logger:   logger.Named("auth"),
	}
}

// Wrap authenticates requests with a bearer token or a session cookie and
// stores the principal in the request context. Protected routes without a
// valid principal get 401.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, session, err := m.authenticate(w, r)
		if err == nil {
			ctx := WithPrincipal(r.Context(), principal)
			if session != nil {
				ctx = WithSession(ctx, session)
			}
			r = r.WithContext(ctx)
		}

		if !m.isProtectedRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		if err != nil {
			m.logger.Debug("rejected request", zap.String("path", r.URL.Path), zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate returns the principal of r and, for cookie sessions, the
// possibly refreshed session claims.
func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*Principal, *Claims, error) {
	var claims, session *Claims
	if tokenString, err := extractTokenFromHeader(r); err == nil {
		claims, err = m.issuer.Parse(tokenString)
		if err != nil {
			return nil, nil, err
		}
	} else {
		claims, err = m.sessions.Read(r)
		if err != nil {
			return nil, nil, err
		}
		session = claims
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid subject: %w", err)
	}
	principal, err := m.loader.Principal(r.Context(), userID)
	if err != nil {
		return nil, nil, err
	}

	if session != nil {
		if _, err := m.sessions.Refresh(w, session, principal); err != nil {
			m.logger.Warn("failed to refresh session", zap.Error(err))
		}
	}
	return principal, session, nil
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header required")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		return "", fmt.Errorf("invalid authorization format")
	}

	return tokenString, nil
}

func (m *Middleware) isProtectedRequest(r *http.Request) bool {
	if r.Method == http.MethodOptions || m.public[r.URL.Path] {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
