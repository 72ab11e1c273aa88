package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/streamline/internal/streamline/ability"
	"github.com/gartstein/streamline/internal/streamline/auth"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"go.uber.org/zap"
)

const (
	stateCookie = "streamline.oauth-state"
	stateMaxAge = 10 * time.Minute
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type passwordChange struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type sessionUser struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type sessionResponse struct {
	User    sessionUser    `json:"user"`
	Expires time.Time      `json:"expires"`
	Rules   []ability.Rule `json:"rules"`
}

type meResponse struct {
	User        *models.User   `json:"user"`
	Role        string         `json:"role"`
	Permissions []string       `json:"permissions"`
	Rules       []ability.Rule `json:"rules"`
}

func newSessionResponse(p *auth.Principal, claims *auth.Claims) sessionResponse {
	resp := sessionResponse{
		User: sessionUser{
			ID:          p.User.ID.String(),
			Username:    p.User.Username,
			Name:        p.User.Name,
			Email:       p.User.Email,
			Role:        p.Role,
			Permissions: p.Permissions,
		},
		Rules: p.Ability.Rules(),
	}
	if claims.ExpiresAt != nil {
		resp.Expires = claims.ExpiresAt.Time
	}
	return resp
}

func (a *API) authRoutes() []route {
	return []route{
		{http.MethodPost, "/api/auth/login", a.login},
		{http.MethodPost, "/api/auth/callback/credentials", a.credentialsCallback},
		{http.MethodGet, "/api/auth/session", a.session},
		{http.MethodPost, "/api/auth/signout", a.signOut},
		{http.MethodGet, "/api/auth/me", a.authenticated(a.me)},
		{http.MethodPut, "/api/auth/password", a.authenticated(a.changePassword)},
		{http.MethodGet, "/api/auth/signin/google", a.googleSignIn},
		{http.MethodGet, "/api/auth/callback/google", a.googleCallback},
	}
}

// login exchanges credentials for an API token.
func (a *API) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		writeError(w, a.logger, err)
		return
	}
	user, err := a.services.Auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	token, expiresAt, err := a.issuer.Issue(user.ID.String(), user.Username, user.RoleName())
	if err != nil {
		writeError(w, a.logger, fmt.Errorf("failed to issue token: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// credentialsCallback verifies credentials and starts a cookie session.
func (a *API) credentialsCallback(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		writeError(w, a.logger, err)
		return
	}
	user, err := a.services.Auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	principal, claims, err := a.startSession(w, r, user)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(principal, claims))
}

func (a *API) startSession(w http.ResponseWriter, r *http.Request, user *models.User) (*auth.Principal, *auth.Claims, error) {
	principal, err := a.services.Auth.PrincipalFor(r.Context(), user)
	if err != nil {
		return nil, nil, err
	}
	claims, err := a.sessions.Issue(w, user.ID.String(), user.Username, principal.Role, principal.Permissions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return principal, claims, nil
}

// session reports the current cookie session, or an empty object.
func (a *API) session(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	claims, ok := auth.SessionFrom(r.Context())
	principal, found := auth.PrincipalFrom(r.Context())
	if !ok || !found {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(principal, claims))
}

func (a *API) signOut(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	a.sessions.Clear(w)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (a *API) me(w http.ResponseWriter, _ *http.Request, p *auth.Principal) {
	writeJSON(w, http.StatusOK, meResponse{
		User:        p.User,
		Role:        p.Role,
		Permissions: p.Permissions,
		Rules:       p.Ability.Rules(),
	})
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request, p *auth.Principal) {
	var in passwordChange
	if err := decodeBody(r, &in); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if err := a.services.Auth.ChangePassword(r.Context(), p.User.ID, in.OldPassword, in.NewPassword); err != nil {
		writeError(w, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// googleSignIn redirects to Google's consent page.
func (a *API) googleSignIn(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if a.google == nil {
		writeError(w, a.logger, fmt.Errorf("google sign-in: %w", e.ErrNotFound))
		return
	}
	state := auth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.google.AuthCodeURL(state), http.StatusFound)
}

// googleCallback completes the OAuth flow, upserts the user and starts a
// cookie session.
func (a *API) googleCallback(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if a.google == nil {
		writeError(w, a.logger, fmt.Errorf("google sign-in: %w", e.ErrNotFound))
		return
	}

	q := r.URL.Query()
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		writeError(w, a.logger, fmt.Errorf("%w: oauth state mismatch", e.ErrUnauthorized))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/api/auth", MaxAge: -1, HttpOnly: true, Secure: a.secure})

	code := q.Get("code")
	if code == "" {
		writeError(w, a.logger, fmt.Errorf("%w: code required", e.ErrInvalidInput))
		return
	}

	profile, token, err := a.google.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Warn("Google exchange failed", zap.Error(err))
		writeError(w, a.logger, fmt.Errorf("%w: google exchange failed", e.ErrUnauthorized))
		return
	}
	user, err := a.services.Auth.GoogleSignIn(r.Context(), profile, token.AccessToken, token.RefreshToken)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	if _, _, err := a.startSession(w, r, user); err != nil {
		writeError(w, a.logger, err)
		return
	}
	http.Redirect(w, r, a.clientURL, http.StatusFound)
}
