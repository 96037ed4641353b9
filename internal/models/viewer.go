package models

// Viewer is the user on whose behalf a request runs. The zero value is an anonymous visitor.
type Viewer struct {
	UserID   int
	Username string
	Role     Role
}

// IsAuthenticated reports whether the viewer is logged in
func (v Viewer) IsAuthenticated() bool {
	return v.UserID > 0
}

// IsAdmin reports whether the viewer is a logged-in admin
func (v Viewer) IsAdmin() bool {
	return v.IsAuthenticated() && v.Role == RoleAdmin
}

// CanManage reports whether the viewer owns the resource or is an admin
func (v Viewer) CanManage(ownerID int) bool {
	return v.IsAuthenticated() && (v.UserID == ownerID || v.IsAdmin())
}
