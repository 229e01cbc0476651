package models

// UserRole represents the available roles.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is a registered account keyed by email.
type User struct {
	FullName     string   `json:"fullName"`
	Email        string   `json:"email"`
	Faculty      string   `json:"faculty"`
	Prodi        string   `json:"prodi"`
	Role         UserRole `json:"role,omitempty"`
	IsSuperAdmin bool     `json:"isSuperAdmin,omitempty"`
	PasswordHash string   `json:"passwordHash,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Public strips the password hash.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Search string
	Role   UserRole
}
