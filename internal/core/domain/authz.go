package domain

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) Allowed() bool { return d == Allow }

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// PendingWrite describes the role changes a write request would apply,
// so the decision can veto self-service privilege escalation.
type PendingWrite struct {
	RequestedRoles []RoleName
}

func (w *PendingWrite) requestsAdministrator() bool {
	if w == nil {
		return false
	}
	for _, r := range w.RequestedRoles {
		if r == RoleAdministrator {
			return true
		}
	}
	return false
}

// AuthorizationRequest is the tuple a single authorization decision is
// made from. Principal nil means the caller is unauthenticated.
// ResourceOwnerID, when set, identifies the user record the call targets.
type AuthorizationRequest struct {
	Principal       *Principal
	AllowedRoles    []RoleName
	ResourceOwnerID *int64
	PendingWrite    *PendingWrite
}

// Decide evaluates an authorization request. It is a pure, total
// function: callers use it both as a request-blocking guard and as a
// plain predicate, and act on the Deny themselves.
//
// Rules, first match wins:
//  1. No principal: allow, unless the pending write requests the
//     Administrator role (anonymous signup may not self-elevate).
//  2. The principal holds one of the allowed roles: allow. Role
//     membership bypasses ownership checks entirely.
//  3. The principal owns the targeted record: allow, unless the pending
//     write requests the Administrator role. Ownership is a weaker
//     grant and must never buy a stronger one.
//  4. Deny.
func Decide(req AuthorizationRequest) Decision {
	if req.Principal == nil {
		if req.PendingWrite.requestsAdministrator() {
			return Deny
		}
		return Allow
	}

	for _, allowed := range req.AllowedRoles {
		if req.Principal.HasRole(allowed) {
			return Allow
		}
	}

	if req.ResourceOwnerID != nil && *req.ResourceOwnerID == req.Principal.Subject.ID {
		if req.PendingWrite.requestsAdministrator() {
			return Deny
		}
		return Allow
	}

	return Deny
}
