package domain

// User is the subset of an account the event engine needs.
// Accounts are managed elsewhere; EventSphere only reads them.
type User struct {
	Syncable
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
