package types

import "time"

// Role indicates a user's authorization level within the system.
type Role string

// Supported role values.
const (
	// RoleAdmin is the system administrator. Admins bypass dataset
	// privacy and may review approvals and annotations.
	RoleAdmin Role = "admin"

	// RoleDataAdmin is a data steward with the same review and
	// privacy-bypass privileges as an admin.
	RoleDataAdmin Role = "data_admin"

	// RoleResearcher is the default role for registered users.
	RoleResearcher Role = "researcher"
)

// Privileged reports whether the role bypasses dataset privacy and may
// review approvals, annotations, and audit logs. Privacy protects peer
// researchers, not auditors, so admin and data_admin both qualify.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleDataAdmin
}

// Valid reports whether the role is one of the supported values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDataAdmin, RoleResearcher:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Role is the user's authorization level. The persisted role is
	// authoritative for every permission decision; the role claim in an
	// identity token is informational only.
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
