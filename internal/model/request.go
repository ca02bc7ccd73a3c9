package model

type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type DeleteUserRequest struct {
	Password string `json:"password"`
}

// ProfilePatch is a partial profile update. Values staged under the New* keys
// are committed onto their canonical field when the patch is resolved; a
// staged value wins over the canonical key sent in the same patch.
// Password carries the current password and is only used for re-authentication.
type ProfilePatch struct {
	Name      *string   `json:"name,omitempty"`
	Username  *string   `json:"username,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Password  *string   `json:"password,omitempty"`
	Favorites *[]string `json:"favorites,omitempty"`

	NewName     *string `json:"newName,omitempty"`
	NewUsername *string `json:"newUsername,omitempty"`
	NewEmail    *string `json:"newEmail,omitempty"`
	NewPassword *string `json:"newPassword,omitempty"`
}

// ProfileChanges is a resolved ProfilePatch: only canonical fields remain.
type ProfileChanges struct {
	Name        *string
	Username    *string
	Email       *string
	NewPassword *string
	Favorites   *[]string
}

func (c ProfileChanges) Empty() bool {
	return c.Name == nil && c.Username == nil && c.Email == nil && c.NewPassword == nil && c.Favorites == nil
}

func (p ProfilePatch) Resolve() ProfileChanges {
	return ProfileChanges{
		Name:        staged(p.NewName, p.Name),
		Username:    staged(p.NewUsername, p.Username),
		Email:       staged(p.NewEmail, p.Email),
		NewPassword: staged(p.NewPassword, nil),
		Favorites:   p.Favorites,
	}
}

// staged prefers a non-empty pending value; an empty one counts as absent.
func staged(pending *string, canonical *string) *string {
	if pending != nil && *pending != "" {
		return pending
	}
	return canonical
}
