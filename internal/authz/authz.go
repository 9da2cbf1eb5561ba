// Package authz decides whether a role may use a route.  Membership is an
// exact set check; no role outranks another.
package authz

import "github.com/iliyamo/naturants/internal/model"

// Decision is the outcome of Check.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny: unauthenticated"
	case DenyForbidden:
		return "deny: forbidden"
	}
	return "unknown"
}

// Check reports whether role is in allowed.  An empty role means nobody is
// authenticated.  With no allowed roles any authenticated caller passes.
func Check(role model.Role, allowed ...model.Role) Decision {
	if role == "" {
		return DenyUnauthenticated
	}
	if len(allowed) == 0 {
		return Allow
	}
	for _, r := range allowed {
		if r == role {
			return Allow
		}
	}
	return DenyForbidden
}
