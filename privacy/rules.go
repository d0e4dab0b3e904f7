package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/dbgraph/action"
	"github.com/syssam/dbgraph/entity"
)

// Viewer represents the authenticated user running actions.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier, or an empty
	// string if not applicable.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string { return v.UserID }

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string { return v.Roles }

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string { return v.TenantID }

// DenyIfNoViewer returns a rule that denies actions run without a viewer
// in the context.
func DenyIfNoViewer() Rule {
	return ContextRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("dbgraph/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows the action if the viewer has role.
func HasRole(role string) Rule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows the action if the viewer has any
// of roles.
func HasAnyRole(roles ...string) Rule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range roles {
			if slices.Contains(viewer.GetRoles(), role) {
				return Allow
			}
		}
		return Skip
	})
}

// instancer is implemented by the row actions.
type instancer interface {
	Instance() *entity.Instance
}

// columnValue returns the value of column of the row changed by a.
func columnValue(a action.Action, column string) (string, bool) {
	i, ok := a.(instancer)
	if !ok {
		return "", false
	}
	v, ok := i.Instance().Value(column)
	if !ok || v == nil {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return fmt.Sprint(v), true
	}
}

// IsOwner returns a rule that allows row actions whose column holds the
// viewer's ID.
//
//	privacy.Policy{
//		privacy.DenyIfNoViewer(),
//		privacy.IsOwner("owner_id"),
//		privacy.AlwaysDenyRule(),
//	}
func IsOwner(column string) Rule {
	return RuleFunc(func(ctx context.Context, a action.Action) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		if v, ok := columnValue(a, column); ok && v == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}

// TenantRule returns a rule isolating tenants: row actions whose column
// holds another tenant than the viewer's are denied.
func TenantRule(column string) Rule {
	return RuleFunc(func(ctx context.Context, a action.Action) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Skip
		}
		v, ok := columnValue(a, column)
		if !ok {
			return Skip
		}
		if v == viewer.GetTenantID() {
			return Allow
		}
		return Denyf("dbgraph/privacy: tenant mismatch")
	})
}
