// README: Identity model and the closed set of roles.
package directory

import (
	"strings"

	"semas/internal/types"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

type User struct {
	ID     types.ID `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   Role     `json:"role"`
	Avatar string   `json:"avatar,omitempty"`
	Phone  string   `json:"phone,omitempty"`
}

// IsStaff reports whether the identity works the job queue.
func (u User) IsStaff() bool {
	return u.Role == RoleTechnician || u.Role == RoleAdmin
}

// NormalizeEmail is the canonical form used for email comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
