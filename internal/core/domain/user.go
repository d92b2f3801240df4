package domain

type UserID string

// Identity is the externally owned privilege record of a user.
type Identity struct {
	UserID           UserID   `json:"userId" yaml:"user_id"`
	IsAdmin          bool     `json:"isAdmin" yaml:"is_admin"`
	IsPrivilegedRole bool     `json:"isPrivilegedRole" yaml:"is_privileged_role"`
	Roles            []string `json:"roles" yaml:"roles"`
}

// Permissions is the read-only projection of an Identity handed back to callers.
type Permissions struct {
	IsAdmin          bool
	IsPrivilegedRole bool
	Roles            []string
}

func (i *Identity) Permissions() *Permissions {
	roles := i.Roles
	if roles == nil {
		roles = []string{}
	}
	return &Permissions{
		IsAdmin:          i.IsAdmin,
		IsPrivilegedRole: i.IsPrivilegedRole,
		Roles:            roles,
	}
}
