package auth

import (
	"context"

	"github.com/gartstein/streamline/internal/streamline/ability"
	"github.com/gartstein/streamline/internal/streamline/models"
)

// Principal is the authenticated user of a request.
type Principal struct {
	User        *models.User     `json:"user"`
	Role        string           `json:"role"`
	Permissions []string         `json:"permissions"`
	Ability     *ability.Ability `json:"-"`
}

// NewPrincipal derives the ability of user from its role and permission names.
func NewPrincipal(user *models.User, permissions []string) *Principal {
	if permissions == nil {
		permissions = []string{}
	}
	role := user.RoleName()
	return &Principal{
		User:        user,
		Role:        role,
		Permissions: permissions,
		Ability:     ability.Define(role, permissions),
	}
}

func (p *Principal) Can(action ability.Action, subject ability.Subject) bool {
	return p != nil && p.Ability.Can(action, subject)
}

// Actor names the principal in audit records.
func (p *Principal) Actor() string {
	if p == nil || p.User == nil {
		return "system"
	}
	return p.User.Username
}

type contextKey string

const userContextKey contextKey = "user"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, userContextKey, p)
}

// PrincipalFrom returns the principal stored by the middleware, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(userContextKey).(*Principal)
	return p, ok && p != nil
}

// ActorFrom names the principal of ctx, or "system" when there is none.
func ActorFrom(ctx context.Context) string {
	p, _ := PrincipalFrom(ctx)
	return p.Actor()
}

const sessionContextKey contextKey = "session"

// WithSession stores the claims of the session cookie that authenticated the
// request.
func WithSession(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, sessionContextKey, claims)
}

func SessionFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(sessionContextKey).(*Claims)
	return claims, ok && claims != nil
}
