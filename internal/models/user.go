package models

// Role names a level of access a user holds.
type Role string

const (
	RoleDiner      Role = "diner"
	RoleFranchisee Role = "franchisee"
	RoleAdmin      Role = "admin"
)

// UserRole is a single role assignment. Franchisee assignments carry the
// franchise they are scoped to: Object holds the franchise name on input,
// ObjectID the resolved franchise id once persisted.
type UserRole struct {
	Role     Role   `json:"role"`
	Object   string `json:"object,omitempty"`
	ObjectID int64  `json:"objectId,omitempty"`
}

// User captures application-facing fields for an identity. Password is only
// populated on inbound payloads; stores never return it.
type User struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password,omitempty"`
	Roles    []UserRole `json:"roles,omitempty"`
}
