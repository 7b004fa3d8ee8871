package models

// Identity is the authenticated principal resolved by the session or bearer
// middleware and handed explicitly to the services.
type Identity struct {
	UserID  uint
	IsAdmin bool
}

// Anonymous reports whether no user has been resolved
func (i Identity) Anonymous() bool {
	return i.UserID == 0
}

// IdentityOf builds the identity of a loaded user
func IdentityOf(u *User) Identity {
	if u == nil {
		return Identity{}
	}
	return Identity{UserID: u.ID, IsAdmin: u.IsAdmin}
}
