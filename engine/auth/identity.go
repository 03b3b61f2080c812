// Package auth provides the request-scoped identity, JWT and API-key gin
// middleware, and permission checks that gate Miniflow's HTTP surface.
package auth

import (
	"context"

	"github.com/miniflow/miniflow/engine/apikey"
	"github.com/miniflow/miniflow/engine/core"
)

type contextKey string

const identityContextKey contextKey = "miniflow:auth_identity"

// Identity is the authenticated caller attached to a request's context,
// scoped to exactly one workspace (Miniflow has no cross-workspace
// principal).
type Identity struct {
	WorkspaceID core.ID
	APIKeyID    core.ID
	Permissions []string
}

// HasPermission reports whether the identity carries permission, treating
// an empty Permissions list as unrestricted (mirrors apikey.APIKey's own
// convention).
func (i Identity) HasPermission(permission string) bool {
	if len(i.Permissions) == 0 {
		return true
	}
	for _, p := range i.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// WithIdentity attaches the authenticated Identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, identityContextKey, id)
	return core.WithWorkspaceID(ctx, id.WorkspaceID)
}

// IdentityFromContext retrieves the authenticated Identity from ctx.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// identityFromAPIKey projects a verified APIKey into the request Identity.
func identityFromAPIKey(key *apikey.APIKey) Identity {
	return Identity{
		WorkspaceID: key.WorkspaceID,
		APIKeyID:    key.ID,
		Permissions: key.Permissions,
	}
}
