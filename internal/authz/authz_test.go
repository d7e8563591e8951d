package authz

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/tobyns/CoveChat/internal/gateway"
)

func TestEffectiveOwnerOverride(t *testing.T) {
	// Even a restrictive assigned role cannot limit the owner.
	restrictive := &gateway.Role{Name: "Member", Permissions: gateway.PermissionSet{}}

	perms := Effective("u1", "u1", restrictive)
	assert.Equal(t, gateway.Maximal(), perms)
}

func TestEffectiveNilRole(t *testing.T) {
	perms := Effective("owner", "u2", nil)
	assert.Equal(t, gateway.PermissionSet{}, perms)
}

func TestEffectiveRoleGrants(t *testing.T) {
	moderator := &gateway.Role{
		Name:        "Moderator",
		Permissions: gateway.PermissionSet{DeleteMessages: true},
	}

	perms := Effective("owner", "u2", moderator)
	assert.Equal(t, true, perms.DeleteMessages)
	assert.Equal(t, false, perms.CreateChannels)
	assert.Equal(t, false, perms.ManageRoles)
}

func TestAuthorize(t *testing.T) {
	perms := gateway.PermissionSet{DeleteMessages: true}

	decision := Authorize(perms, DeleteMessages)
	assert.Equal(t, true, decision.Allowed())
	assert.Equal(t, "", decision.Reason())

	decision = Authorize(perms, ManageRoles)
	assert.Equal(t, false, decision.Allowed())
	assert.Equal(t, "missing manage_roles permission", decision.Reason())

	decision = Authorize(perms, CreateChannels)
	assert.Equal(t, false, decision.Allowed())

	decision = Authorize(gateway.Maximal(), CreateChannels)
	assert.Equal(t, true, decision.Allowed())
}

func TestAuthorizeUnknownCapability(t *testing.T) {
	decision := Authorize(gateway.Maximal(), Capability("rewrite_history"))
	assert.Equal(t, false, decision.Allowed())
	assert.Equal(t, "unknown capability", decision.Reason())
}
