package principal

import (
	"context"
	"strings"
)

// RoleOperator is the platform role claim that unlocks moderation overrides.
const RoleOperator = "operator"

// Principal is the authenticated caller. Identity is resolved upstream; the
// chat core only trusts what it is handed.
type Principal struct {
	ID    string
	Roles []string
}

func (p Principal) Valid() bool {
	return strings.TrimSpace(p.ID) != ""
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

type contextKey struct{}

// WithPrincipal stores the caller in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	p.ID = strings.TrimSpace(p.ID)
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the caller, if set.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(contextKey{}).(Principal)
	if !ok || !p.Valid() {
		return Principal{}, false
	}
	return p, true
}
