package models

// Role represents user roles in the system.
type Role string

const (
	RoleAdmin  Role = "admin"  // full access, may record attendance and manage members
	RoleMember Role = "member" // access to own profile and password only
)

func (r Role) String() string {
	return string(r)
}

// AuthenticatedUser is the identity resolved from a session token and carried
// in the request context by the session middleware.
type AuthenticatedUser struct {
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	MemberNumber string `json:"member_number"`
	FirstName    string `json:"first_name"`
	Surname      string `json:"surname"`
}

// IsAdmin reports whether the user may call admin-only endpoints.
func (u *AuthenticatedUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}
