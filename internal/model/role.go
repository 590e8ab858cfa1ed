package model

// Role is the caller role carried in access tokens.
type Role string

const (
	RolePassenger Role = "PASSENGER"
	RoleEmployee  Role = "EMPLOYEE"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePassenger || r == RoleEmployee
}
