// Package authz answers one question for every permission-gated action:
// given a server and a user, what may they do. The server owner always holds
// the maximal set, regardless of any role they happen to be assigned.
package authz

import "github.com/tobyns/CoveChat/internal/gateway"

// Capability names a single gated action.
type Capability string

const (
	CreateChannels Capability = "create_channels"
	DeleteMessages Capability = "delete_messages"
	ManageRoles    Capability = "manage_roles"
)

// Decision is the outcome of an authorization query.
type Decision struct {
	allowed bool
	reason  string
}

// Allowed reports whether the action may proceed.
func (d Decision) Allowed() bool { return d.allowed }

// Reason explains a denial. Empty for allowed decisions.
func (d Decision) Reason() string { return d.reason }

// Allow is the positive decision.
func Allow() Decision { return Decision{allowed: true} }

// Deny records why the action was refused.
func Deny(reason string) Decision { return Decision{reason: reason} }

// Effective resolves the permission set a user holds in a server. A nil role
// means the member carries no explicit grants.
func Effective(ownerID, userID string, role *gateway.Role) gateway.PermissionSet {
	if ownerID == userID {
		return gateway.Maximal()
	}
	if role == nil {
		return gateway.PermissionSet{}
	}
	return role.Permissions
}

// Authorize checks a capability against a resolved permission set.
func Authorize(perms gateway.PermissionSet, need Capability) Decision {
	switch need {
	case CreateChannels:
		if perms.CreateChannels {
			return Allow()
		}
		return Deny("missing create_channels permission")
	case DeleteMessages:
		if perms.DeleteMessages {
			return Allow()
		}
		return Deny("missing delete_messages permission")
	case ManageRoles:
		if perms.ManageRoles {
			return Allow()
		}
		return Deny("missing manage_roles permission")
	default:
		return Deny("unknown capability")
	}
}
