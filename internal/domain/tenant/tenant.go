// Package tenant carries the resolved tenant identity through request contexts.
package tenant

import "context"

// Role is the caller's permission level within a tenant.
type Role string

// Caller roles.
const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// IsValid checks if the role is one of the supported values.
func (r Role) IsValid() bool {
	return r == RoleMember || r == RoleAdmin
}

// Context identifies the tenant and role resolved for a request.
type Context struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the caller may use privileged operations.
func (c Context) IsAdmin() bool { return c.Role == RoleAdmin }

type ctxKey struct{}

// NewContext stores a tenant context in ctx.
func NewContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext extracts the tenant context from ctx.
// The second return value is false when no tenant was resolved.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok && tc.ID != ""
}
