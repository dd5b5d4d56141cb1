package principal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(WithPrincipal(context.Background(), Principal{ID: "  "}))
	assert.False(t, ok)

	p, ok := FromContext(WithPrincipal(context.Background(), Principal{ID: " u1 ", Roles: []string{"Operator"}}))
	assert.True(t, ok)
	assert.Equal(t, "u1", p.ID)
	assert.True(t, p.HasRole(RoleOperator))
	assert.False(t, p.HasRole("admin"))
}
