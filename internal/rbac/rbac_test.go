package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "member read", role: RoleMember, action: ActionRead, allow: true},
		{name: "member write", role: RoleMember, action: ActionWrite, allow: false},
		{name: "member send", role: RoleMember, action: ActionSend, allow: false},
		{name: "secretary write", role: RoleSecretary, action: ActionWrite, allow: true},
		{name: "secretary process", role: RoleSecretary, action: ActionProcess, allow: true},
		{name: "secretary send", role: RoleSecretary, action: ActionSend, allow: true},
		{name: "secretary admin", role: RoleSecretary, action: ActionAdmin, allow: false},
		{name: "admin admin", role: RoleAdmin, action: ActionAdmin, allow: true},
		{name: "unknown role", role: Role("guest"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equalf(t, tc.allow, Can(tc.role, tc.action), "Can(%q, %q)", tc.role, tc.action)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, RoleSecretary, Normalize("secretary"))
	assert.Equal(t, RoleAdmin, Normalize("admin"))
	assert.Equal(t, RoleMember, Normalize("editor"))
	assert.Equal(t, RoleMember, Normalize(""))
}
