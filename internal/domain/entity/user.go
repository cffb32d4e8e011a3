package entity

// Role represents a user's role within the company
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleEmployee
}

// UserStatus represents whether a user account is active
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is a member of the company roster. ManagerID is a reporting
// reference to another user, never ownership.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	ManagerID string     `json:"manager_id,omitempty"`
	Status    UserStatus `json:"status"`
}

// IsActiveManager reports whether the user can serve as a fallback approver
func (u *User) IsActiveManager() bool {
	return u.Role == RoleManager && u.Status == UserStatusActive
}
