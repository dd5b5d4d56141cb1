package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/groupchat/internal/principal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestOverride(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		p       principal.Principal
		object  string
		action  string
		allowed bool
	}{
		{name: "operator deactivates group", p: principal.Principal{ID: "op", Roles: []string{"operator"}}, object: ObjectGroup, action: ActionGroupDeactivate, allowed: true},
		{name: "operator deletes message", p: principal.Principal{ID: "op", Roles: []string{"Operator"}}, object: ObjectMessage, action: ActionMessageDelete, allowed: true},
		{name: "superuser inherits operator", p: principal.Principal{ID: "su", Roles: []string{"superuser"}}, object: ObjectGroup, action: ActionGroupDeactivate, allowed: true},
		{name: "plain user", p: principal.Principal{ID: "u1"}, object: ObjectGroup, action: ActionGroupDeactivate},
		{name: "unknown role", p: principal.Principal{ID: "u1", Roles: []string{"member"}}, object: ObjectMessage, action: ActionMessageDelete},
		{name: "operator unknown action", p: principal.Principal{ID: "op", Roles: []string{"operator"}}, object: ObjectGroup, action: "group.create"},
		{name: "missing principal id", p: principal.Principal{Roles: []string{"operator"}}, object: ObjectGroup, action: ActionGroupDeactivate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := svc.Override(ctx, tt.p, tt.object, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	before, err := enforcer.GetPolicy()
	require.NoError(t, err)

	require.NoError(t, seedPolicies(enforcer))
	after, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
