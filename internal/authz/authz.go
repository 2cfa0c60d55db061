// Package authz resolves role-based access as an explicit tri-state
// decision evaluated before any ownership or state check. Elevated
// roles (admin, controller) short-circuit to Allow; clients defer to
// the per-resource rules of the calling service.
package authz

import "gravado/internal/domain"

type Decision int

const (
	Defer Decision = iota
	Allow
	Deny
)

type Action string

const (
	QuoteList    Action = "quote.list"
	QuoteView    Action = "quote.view"
	QuoteCreate  Action = "quote.create"
	QuoteUpdate  Action = "quote.update"
	QuoteDelete  Action = "quote.delete"
	QuoteConvert Action = "quote.convert"
	OrderList    Action = "order.list"
	OrderView    Action = "order.view"
	OrderUpdate  Action = "order.update"
	OrderCancel  Action = "order.cancel"
	AdminManage  Action = "admin.manage"
)

// Decide returns the before-hook decision for an actor and action.
// Defer means the caller must apply ownership and state checks.
func Decide(actor *domain.User, action Action) Decision {
	if actor == nil {
		return Deny
	}
	if actor.Elevated() {
		// AdminManage stays admin-only: controllers review quotes and
		// orders but do not manage catalog, discounts or users.
		if action == AdminManage && actor.Role != domain.RoleAdmin {
			return Deny
		}
		return Allow
	}
	if actor.Role != domain.RoleClient {
		return Deny
	}
	switch action {
	case AdminManage:
		return Deny
	case QuoteCreate:
		// Creating a quote is a client capability in itself.
		return Allow
	default:
		return Defer
	}
}

// OwnerOrDeny collapses a Defer into an ownership check.
func OwnerOrDeny(d Decision, actorID, ownerID int64) bool {
	switch d {
	case Allow:
		return true
	case Deny:
		return false
	default:
		return actorID == ownerID
	}
}
