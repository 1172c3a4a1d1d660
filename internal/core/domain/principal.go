package domain

import "time"

// Principal is the verified claim set extracted from a bearer token.
// It lives for one request and is never persisted.
type Principal struct {
	// Subject is the public user summary carried in the sub claim.
	Subject   User
	IssuedAt  time.Time
	ExpiresAt time.Time
	Roles     []RoleName
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(name RoleName) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}
