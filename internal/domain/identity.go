package domain

// Identity is the verified caller attached to each authenticated request.
// It carries no persistence concerns and is what services receive instead
// of a User row.
type Identity struct {
	ID         string
	Name       string
	Email      string
	Department string
	Role       Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// DisplayName renders the caller as "name (email)".
func (i Identity) DisplayName() string {
	return i.Name + " (" + i.Email + ")"
}

// IdentityOf builds the Identity snapshot for u.
func IdentityOf(u User) Identity {
	return Identity{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Department,
		Role:       u.Role,
	}
}
