package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/naturants/internal/model"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	adminOrManager := []model.Role{model.RoleAdmin, model.RoleManager}

	tests := []struct {
		name    string
		role    model.Role
		allowed []model.Role
		want    Decision
	}{
		{"admin allowed", model.RoleAdmin, adminOrManager, Allow},
		{"manager allowed", model.RoleManager, adminOrManager, Allow},
		{"user forbidden", model.RoleUser, adminOrManager, DenyForbidden},
		{"chef forbidden", model.RoleChef, adminOrManager, DenyForbidden},
		{"no identity", "", adminOrManager, DenyUnauthenticated},
		{"any authenticated role", model.RoleWaiter, nil, Allow},
		{"no identity without role set", "", nil, DenyUnauthenticated},
		{"no hierarchy: admin is not implied", model.RoleAdmin, []model.Role{model.RoleUser}, DenyForbidden},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Check(tt.role, tt.allowed...))
		})
	}
}

func TestDecisionString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny: forbidden", DenyForbidden.String())
	assert.Equal(t, "deny: unauthenticated", DenyUnauthenticated.String())
}
